package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
)

// Subscribe opens the day's running-timer event stream. The first value is the
// current running task (nil when none). The channel closes when ctx is done or
// the stream breaks; callers reconnect.
func (c *Client) Subscribe(ctx context.Context, day domain.Day) (<-chan *domain.Task, error) {
	resp, err := c.send(ctx, http.MethodGet, dayPath(day)+"/timer/events", nil, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, decodeError(resp.StatusCode, body)
	}

	out := make(chan *domain.Task, 1)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		err := readEvents(resp, func(event, data string) error {
			if event != "running" {
				return nil
			}
			var payload api.TaskResponse
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				return fmt.Errorf("decoding event: %w", err)
			}
			task, err := decodeTask(payload)
			if err != nil {
				return err
			}

			select {
			case out <- task:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "Timer event stream ended", "day", day.String(), "error", err)
		}
	}()
	return out, nil
}

// readEvents parses a text/event-stream body, calling fn once per dispatched
// event. Comment lines are ignored; multi-line data is joined with newlines.
func readEvents(resp *http.Response, fn func(event, data string) error) error {
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		event string
		data  []string
	)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if len(data) > 0 {
				name := event
				if name == "" {
					name = "message"
				}
				if err := fn(name, strings.Join(data, "\n")); err != nil {
					return err
				}
			}
			event, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: event stream closed", domain.ErrStoreUnavailable)
}

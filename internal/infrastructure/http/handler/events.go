package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

// EventRunning is the SSE event name of running-timer updates.
const EventRunning = "running"

// TimerEvents streams the running task of the day as Server-Sent Events.
// The current value is sent at once, then again after every change. The data
// of each event is an api.TaskResponse; a null task means nothing runs.
// GET /v1/days/{day}/timer/events
func (h *Handler) TimerEvents(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.DebugContext(r.Context(), "write deadline not adjustable", "error", err)
	}

	updates, err := h.timers.Subscribe(r.Context(), userID, day)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.WarnContext(r.Context(), "event stream not flushable", "error", err)
		return
	}

	slog.DebugContext(r.Context(), "timer event stream opened",
		"user_id", userID,
		"day", day.String())

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	var seq int
	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}

		case task, ok := <-updates:
			if !ok {
				return
			}
			seq++
			if err := h.writeEvent(w, seq, task); err != nil {
				slog.DebugContext(r.Context(), "timer event stream closed", "error", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeEvent(w http.ResponseWriter, id int, task *domain.Task) error {
	var payload api.TaskResponse
	if task != nil {
		dto := api.TaskToDTO(task, h.clock.Now())
		payload.Task = &dto
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, EventRunning, data)
	return err
}

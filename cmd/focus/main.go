// Command focus is the terminal client: today's schedule with live countdowns
// kept in sync with the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rezkam/focusflow/internal/application/countdown"
	"github.com/rezkam/focusflow/internal/config"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/client"
	"github.com/rezkam/focusflow/internal/infrastructure/observability"
	"github.com/rezkam/focusflow/internal/timeutil"
	"github.com/rezkam/focusflow/internal/ui"
)

// Version information set via ldflags
var version = "dev"

// resubscribeDelay spaces out reconnects of the running-timer stream.
const resubscribeDelay = 5 * time.Second

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("focus %s\n", version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logOutput, closeLog, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := observability.Setup(ctx, observability.Config{
		ServiceName: "focus",
		Level:       cfg.Level(),
		Output:      logOutput,
	})
	if err != nil {
		return err
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()
	slog.SetDefault(telemetry.Logger)

	api := client.New(client.Config{
		BaseURL: cfg.ServerURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
	})
	day := domain.Day(timeutil.Today(timeutil.SystemClock{}))

	manager := countdown.New(api.Day(day), countdown.Config{
		TickInterval:      cfg.TickInterval,
		FlushInterval:     cfg.FlushInterval,
		RecomputeInterval: cfg.RecomputeInterval,
	})

	schedule := make(chan []*domain.Task, 1)
	visible := make(chan struct{}, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := manager.Run(ctx, countdown.Inputs{
			Running:  subscribe(ctx, api, day),
			Schedule: schedule,
			Visible:  visible,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("countdown manager stopped", "error", err)
		}
	}()

	model := ui.New(ctx, api, manager, ui.Config{
		Day:            day,
		RequestTimeout: cfg.RequestTimeout,
		Schedule:       func(tasks []*domain.Task) { sendLatest(schedule, tasks) },
		Visible:        func() { sendLatest(visible, struct{}{}) },
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	_, runErr := p.Run()

	// The manager flushes buffered durations on the way out.
	cancel()
	wg.Wait()

	return runErr
}

// subscribe keeps a running-timer stream open for the life of ctx,
// reconnecting after failures. The returned channel closes with ctx.
func subscribe(ctx context.Context, api *client.Client, day domain.Day) <-chan *domain.Task {
	out := make(chan *domain.Task)
	go func() {
		defer close(out)
		for {
			updates, err := api.Subscribe(ctx, day)
			if err != nil {
				slog.Warn("running timer subscription failed", "error", err)
			} else {
				for task := range updates {
					select {
					case out <- task:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
		}
	}()
	return out
}

// sendLatest replaces any value still waiting in ch with v.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// openLog returns the log destination. The terminal belongs to the UI, so
// without a log file logs are discarded.
func openLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

package main

import (
	"context"
	"io"
	"log/slog"
)

// shutdowner abstracts the authenticator and telemetry so tests can verify
// cleanup order without real infrastructure.
type shutdowner interface {
	Shutdown(context.Context) error
}

// newCleanup builds the shutdown hook: drain pending key usage writes, close
// the store, then flush telemetry so the earlier steps still get logged.
// Nil steps are skipped.
func newCleanup(authenticator shutdowner, store io.Closer, telemetry shutdowner) func(ctx context.Context) {
	return func(ctx context.Context) {
		if authenticator != nil {
			if err := authenticator.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to shut down authenticator", slog.String("error", err.Error()))
			}
		}

		if store != nil {
			if err := store.Close(); err != nil {
				slog.ErrorContext(ctx, "failed to close store", slog.String("error", err.Error()))
			}
		}

		if telemetry != nil {
			if err := telemetry.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to shut down telemetry", slog.String("error", err.Error()))
			}
		}
	}
}

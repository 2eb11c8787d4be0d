// Package reset runs the daily sweep that clears manual statuses and restarts
// every countdown shortly after midnight.
package reset

import (
	"context"
	"log/slog"
	"time"

	"github.com/rezkam/focusflow/internal/ptr"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Resetter performs one sweep and reports how many tasks it touched.
type Resetter interface {
	ResetAll(ctx context.Context) (int, error)
}

// Config holds configuration for the reset worker.
type Config struct {
	// At is the local wall-clock time of the sweep (default: 00:01 when nil).
	At *timeutil.TimeOfDay

	Clock timeutil.Clock

	// After waits for d. Defaults to a time.Timer; tests substitute their own.
	After func(d time.Duration) <-chan time.Time
}

// DefaultConfig returns the production schedule.
func DefaultConfig() Config {
	return Config{
		At:    ptr.To(timeutil.TimeOfDay{Hours: 0, Minutes: 1}),
		Clock: timeutil.SystemClock{},
		After: time.After,
	}
}

// Worker fires the sweep once a day.
type Worker struct {
	resetter Resetter
	cfg      Config
	at       timeutil.TimeOfDay
}

// NewWorker creates a reset worker. Zero config fields take the defaults.
func NewWorker(resetter Resetter, cfg Config) *Worker {
	def := DefaultConfig()
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if cfg.After == nil {
		cfg.After = def.After
	}
	return &Worker{resetter: resetter, cfg: cfg, at: ptr.Deref(cfg.At, *def.At)}
}

// Run waits for the next sweep time, sweeps, and repeats until ctx is done.
// The next run is computed from the wall clock each time so DST shifts keep the
// sweep at the configured local time.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "reset worker starting", "at", w.at.String())

	for {
		now := w.cfg.Clock.Now()
		wait := NextRun(now, w.at).Sub(now)

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reset worker stopping")
			return ctx.Err()
		case <-w.cfg.After(wait):
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Errors are logged; the sweep is retried on
// the next day.
func (w *Worker) RunOnce(ctx context.Context) {
	start := w.cfg.Clock.Now()
	n, err := w.resetter.ResetAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "daily reset failed", "error", err, "reset", n)
		return
	}

	slog.InfoContext(ctx, "daily reset completed",
		"reset", n,
		"duration", w.cfg.Clock.Now().Sub(start))
}

// NextRun returns the first occurrence of at strictly after now, in now's location.
func NextRun(now time.Time, at timeutil.TimeOfDay) time.Time {
	next := at.On(now)
	if !next.After(now) {
		y, m, d := now.Date()
		next = at.On(time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()))
	}
	return next
}

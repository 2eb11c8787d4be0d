package countdown

import (
	"context"
	"log/slog"

	"github.com/rezkam/focusflow/internal/domain"
)

// Inputs are the event sources Run listens to. Nil channels are never selected.
type Inputs struct {
	// Running carries pushes of the authoritative running task.
	Running <-chan *domain.Task

	// Schedule carries the day's task list whenever it changes.
	Schedule <-chan []*domain.Task

	// Visible fires when the client becomes visible again after being suspended.
	Visible <-chan struct{}
}

// Run drives the manager until ctx is done: a tick every TickInterval, a flush
// every FlushInterval and a recompute every RecomputeInterval, plus the inputs.
// A final flush is attempted on the way out.
func (m *Manager) Run(ctx context.Context, in Inputs) error {
	tick := m.config.NewTicker(m.config.TickInterval)
	defer tick.Stop()
	flush := m.config.NewTicker(m.config.FlushInterval)
	defer flush.Stop()
	recompute := m.config.NewTicker(m.config.RecomputeInterval)
	defer recompute.Stop()

	slog.InfoContext(ctx, "Countdown manager started",
		slog.Duration("tick", m.config.TickInterval),
		slog.Duration("flush", m.config.FlushInterval),
		slog.Duration("recompute", m.config.RecomputeInterval))

	m.Recompute(m.config.Clock.Now())

	for {
		select {
		case <-ctx.Done():
			m.shutdownFlush(ctx)
			return ctx.Err()

		case <-tick.C():
			m.Tick(ctx)

		case <-flush.C():
			// Failures keep the buffer; the next flush retries.
			_ = m.Flush(ctx)

		case <-recompute.C():
			m.Recompute(m.config.Clock.Now())

		case task, ok := <-in.Running:
			if !ok {
				slog.WarnContext(ctx, "Running timer subscription closed")
				in.Running = nil
				continue
			}
			m.OnRunningTimer(task)

		case tasks, ok := <-in.Schedule:
			if !ok {
				in.Schedule = nil
				continue
			}
			m.OnSchedule(tasks)
			m.Recompute(m.config.Clock.Now())

		case _, ok := <-in.Visible:
			if !ok {
				in.Visible = nil
				continue
			}
			_ = m.Resync(ctx)
		}
	}
}

func (m *Manager) shutdownFlush(ctx context.Context) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.ShutdownTimeout)
	defer cancel()

	if err := m.Flush(flushCtx); err != nil {
		slog.WarnContext(flushCtx, "Final duration flush failed",
			slog.String("error", err.Error()))
	}
}

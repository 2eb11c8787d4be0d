package countdown

import (
	"context"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
)

// Store is the authoritative timer as seen by one client for one day.
// Implementations bind the user and day; errors reaching the network wrap
// domain.ErrStoreUnavailable.
type Store interface {
	StartTimer(ctx context.Context, taskID string) (*domain.Task, error)
	StopTimer(ctx context.Context, taskID string) (*domain.Task, error)
	PauseTimer(ctx context.Context, taskID string) (*domain.Task, error)
	ResumeTimer(ctx context.Context, taskID string) (*domain.Task, error)
	BatchUpdateDurations(ctx context.Context, updates []domain.DurationUpdate) error
	GetRunningTimer(ctx context.Context) (*domain.Task, error)
}

// Ticker is the part of time.Ticker the manager uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc creates a ticker firing every d.
type NewTickerFunc func(d time.Duration) Ticker

type stdTicker struct {
	t *time.Ticker
}

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker wraps time.NewTicker.
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

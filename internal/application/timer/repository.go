package timer

import (
	"context"

	"github.com/rezkam/focusflow/internal/domain"
)

// Scope is the transactional view of one user's day. It is only valid inside the
// AtomicTimer or AtomicSchedule callback that produced it.
type Scope interface {
	// ListTasks returns every task of the scope.
	ListTasks(ctx context.Context) ([]*domain.Task, error)

	// FindTask returns one task of the scope.
	// Returns domain.ErrTaskNotFound if it doesn't exist in this scope.
	FindTask(ctx context.Context, id string) (*domain.Task, error)

	// SaveTimer persists the task's timer fields and UpdatedAt, and bumps its version.
	SaveTimer(ctx context.Context, task *domain.Task) error
}

// Repository defines storage operations for the authoritative timer.
type Repository interface {
	// AtomicTimer runs fn atomically for the (userID, day) scope. Calls for the same
	// scope are serialized, so fn observes the state left by the previous call.
	// An error from fn rolls every write back.
	AtomicTimer(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope Scope) error) error

	// FindRunningTask returns the running task of the scope, or nil when none runs.
	FindRunningTask(ctx context.Context, userID string, day domain.Day) (*domain.Task, error)
}

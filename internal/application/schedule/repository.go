package schedule

import (
	"context"
	"time"

	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/domain"
)

// Scope extends the timer scope with whole-task writes.
type Scope interface {
	timer.Scope

	// InsertTask stores a new task together with its subtasks.
	InsertTask(ctx context.Context, task *domain.Task) error

	// SaveTask persists every field of the task and replaces its subtasks.
	// Bumps the version and writes it back to task.Version.
	SaveTask(ctx context.Context, task *domain.Task) error

	// DeleteTask removes the task and its subtasks.
	// Returns domain.ErrTaskNotFound if it doesn't exist in this scope.
	DeleteTask(ctx context.Context, id string) error
}

// ScopeKey names one user's day.
type ScopeKey struct {
	UserID string
	Day    domain.Day
}

// Repository defines storage operations for schedule management.
type Repository interface {
	// AtomicSchedule runs fn atomically and serialized with every other write
	// (timer operations included) to the same (userID, day).
	AtomicSchedule(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope Scope) error) error

	// ListTasks returns every task of the day with subtasks, oldest first.
	ListTasks(ctx context.Context, userID string, day domain.Day) ([]*domain.Task, error)

	// ListTasksSince returns the tasks of the day updated strictly after since.
	ListTasksSince(ctx context.Context, userID string, day domain.Day, since time.Time) ([]*domain.Task, error)

	// ListScopes returns every (user, day) that holds at least one task.
	ListScopes(ctx context.Context) ([]ScopeKey, error)
}

// RunningNotifier is told when a write outside the timer service may have changed
// the running task of a scope.
type RunningNotifier interface {
	NotifyRunning(ctx context.Context, userID string, day domain.Day)
}

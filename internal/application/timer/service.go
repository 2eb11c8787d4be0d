// Package timer is the authoritative timer store: it owns which task of a user's
// day is running and folds elapsed time at every state transition, using the
// server clock only.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Config holds configuration for the Service.
type Config struct {
	Clock timeutil.Clock // defaults to the system clock
	Meter metric.Meter   // defaults to the global meter provider
}

// Service provides the timer operations.
type Service struct {
	repo    Repository
	broker  *Broker
	clock   timeutil.Clock
	metrics *metrics
}

// NewService creates a timer service. A nil broker gets a fresh one.
func NewService(repo Repository, broker *Broker, config Config) *Service {
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if broker == nil {
		broker = NewBroker()
	}

	return &Service{
		repo:    repo,
		broker:  broker,
		clock:   config.Clock,
		metrics: newMetrics(config.Meter),
	}
}

// StartTimer makes taskID the single running task of its day. Every other running
// task in the scope is stopped first, with its elapsed time folded up to now.
// Starting the task that already runs folds its segment and restarts it at now.
func (s *Service) StartTimer(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
	now := s.clock.Now()

	var (
		started *domain.Task
		stopped []int64
	)
	err := s.repo.AtomicTimer(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		target, err := scope.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !target.IsTimed() {
			return fmt.Errorf("%w: %s", domain.ErrTaskNotTimed, taskID)
		}

		tasks, err := scope.ListTasks(ctx)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if t.ID == target.ID || !t.IsRunning() {
				continue
			}
			folded, _ := t.Timer.Stop(now)
			t.UpdatedAt = now
			if err := scope.SaveTimer(ctx, t); err != nil {
				return fmt.Errorf("failed to stop task %s: %w", t.ID, err)
			}
			stopped = append(stopped, folded)
		}

		folded := target.Timer.Start(now)
		target.UpdatedAt = now
		if err := scope.SaveTimer(ctx, target); err != nil {
			return fmt.Errorf("failed to start task %s: %w", target.ID, err)
		}
		stopped = append(stopped, folded)
		started = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, folded := range stopped {
		op := "stop"
		if i == len(stopped)-1 {
			op = "start"
		}
		s.metrics.transition(ctx, op, folded)
	}
	slog.DebugContext(ctx, "Timer started",
		slog.String("user_id", userID),
		slog.String("day", day.String()),
		slog.String("task_id", taskID),
		slog.Int("stopped", len(stopped)-1))

	s.broker.Publish(userID, day, started)
	return started, nil
}

// StopTimer folds the running segment and clears the running state.
// Stopping a missing task returns nil, nil; stopping a task that isn't running
// returns it unchanged.
func (s *Service) StopTimer(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
	var folded int64
	task, changed, err := s.mutate(ctx, userID, day, taskID, func(t *domain.Timer) bool {
		var ok bool
		folded, ok = t.Stop(s.clock.Now())
		return ok
	})
	if err != nil || !changed {
		return task, err
	}

	s.metrics.transition(ctx, "stop", folded)
	s.broker.Publish(userID, day, nil)
	return task, nil
}

// PauseTimer folds the running segment and freezes accounting.
// No-op unless the task is running and not paused.
func (s *Service) PauseTimer(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
	var folded int64
	task, changed, err := s.mutate(ctx, userID, day, taskID, func(t *domain.Timer) bool {
		var ok bool
		folded, ok = t.Pause(s.clock.Now())
		return ok
	})
	if err != nil || !changed {
		return task, err
	}

	s.metrics.transition(ctx, "pause", folded)
	s.broker.Publish(userID, day, task)
	return task, nil
}

// ResumeTimer opens a new segment at now. No-op unless the task is paused.
func (s *Service) ResumeTimer(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
	task, changed, err := s.mutate(ctx, userID, day, taskID, func(t *domain.Timer) bool {
		return t.Resume(s.clock.Now())
	})
	if err != nil || !changed {
		return task, err
	}

	s.metrics.transition(ctx, "resume", 0)
	s.broker.Publish(userID, day, task)
	return task, nil
}

// UpdateTimerDuration overwrites the remaining duration with a client-computed value.
// It never folds elapsed time. A missing task returns nil, nil.
func (s *Service) UpdateTimerDuration(ctx context.Context, userID string, day domain.Day, taskID string, remaining int64) (*domain.Task, error) {
	task, changed, err := s.mutate(ctx, userID, day, taskID, func(t *domain.Timer) bool {
		t.SetRemaining(remaining)
		return true
	})
	if err != nil || !changed {
		return task, err
	}

	if task.IsRunning() {
		s.broker.Publish(userID, day, s.project(task))
	}
	return task, nil
}

// BatchUpdateDurations applies every update in one atomic write. Unknown or
// timeless tasks are skipped. Returns the number of tasks updated.
// Re-sending the same batch leaves the store unchanged.
func (s *Service) BatchUpdateDurations(ctx context.Context, userID string, day domain.Day, updates []domain.DurationUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	now := s.clock.Now()
	var (
		applied int
		running *domain.Task
	)
	err := s.repo.AtomicTimer(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		applied, running = 0, nil
		for _, u := range updates {
			task, err := scope.FindTask(ctx, u.TaskID)
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if task.Timer == nil {
				continue
			}

			task.Timer.SetRemaining(u.RemainingDuration)
			task.UpdatedAt = now
			if err := scope.SaveTimer(ctx, task); err != nil {
				return fmt.Errorf("failed to update duration of task %s: %w", task.ID, err)
			}
			applied++
			if task.IsRunning() {
				running = task
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.batch(ctx, len(updates))
	if applied < len(updates) {
		slog.DebugContext(ctx, "Skipped duration updates for unknown tasks",
			slog.String("user_id", userID),
			slog.String("day", day.String()),
			slog.Int("skipped", len(updates)-applied))
	}
	if running != nil {
		s.broker.Publish(userID, day, s.project(running))
	}
	return applied, nil
}

// GetRunningTimer returns the running task of the scope, or nil when none runs.
// Its RemainingDuration is projected to the server's now.
func (s *Service) GetRunningTimer(ctx context.Context, userID string, day domain.Day) (*domain.Task, error) {
	task, err := s.repo.FindRunningTask(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return s.project(task), nil
}

// Subscribe streams the running task of the scope: the current value first, then
// one value after every committed change. The channel closes when ctx is done.
func (s *Service) Subscribe(ctx context.Context, userID string, day domain.Day) (<-chan *domain.Task, error) {
	ctx, cancel := context.WithCancel(ctx)
	updates := s.broker.Subscribe(ctx, userID, day)

	current, err := s.GetRunningTimer(ctx, userID, day)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan *domain.Task, 1)
	go func() {
		defer close(out)
		defer cancel()

		select {
		case out <- current:
		case <-ctx.Done():
			return
		}
		for task := range updates {
			select {
			case out <- task:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// NotifyRunning republishes the scope's running task. Used after changes made
// outside this service, such as edits or deletes of the running task.
func (s *Service) NotifyRunning(ctx context.Context, userID string, day domain.Day) {
	task, err := s.GetRunningTimer(ctx, userID, day)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read running timer for notification",
			slog.String("user_id", userID),
			slog.String("day", day.String()),
			slog.String("error", err.Error()))
		return
	}
	s.broker.Publish(userID, day, task)
}

// mutate loads one task inside the scope, applies fn to its timer and saves it when
// fn reports a change. Missing tasks are a benign no-op.
func (s *Service) mutate(ctx context.Context, userID string, day domain.Day, taskID string, fn func(*domain.Timer) bool) (*domain.Task, bool, error) {
	var (
		task    *domain.Task
		changed bool
	)
	err := s.repo.AtomicTimer(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		t, err := scope.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		if t.Timer == nil {
			return fmt.Errorf("%w: %s", domain.ErrTaskNotTimed, taskID)
		}

		task = t
		if changed = fn(t.Timer); !changed {
			return nil
		}
		t.UpdatedAt = s.clock.Now()
		return scope.SaveTimer(ctx, t)
	})
	if errors.Is(err, domain.ErrTaskNotFound) {
		slog.DebugContext(ctx, "Timer operation on missing task ignored",
			slog.String("user_id", userID),
			slog.String("task_id", taskID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return task, changed, nil
}

// project returns a copy whose RemainingDuration reflects the active segment up to now.
func (s *Service) project(task *domain.Task) *domain.Task {
	if task == nil || task.Timer == nil {
		return task
	}
	p := task.Clone()
	p.Timer.RemainingDuration = p.Timer.Projected(s.clock.Now())
	return p
}

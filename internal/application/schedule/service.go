// Package schedule manages a user's tasks for a day: creation, edits, subtasks,
// manual status, whole-day replacement, statistics and generated imports.
package schedule

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Config holds configuration for the Service.
type Config struct {
	Clock timeutil.Clock // defaults to the system clock
}

// Service provides business logic for schedule management.
type Service struct {
	repo      Repository
	notifier  RunningNotifier
	generator Generator
	clock     timeutil.Clock
}

// NewService creates a schedule service. notifier and generator may be nil;
// without a generator Generate fails with ErrGeneratorUnavailable.
func NewService(repo Repository, notifier RunningNotifier, generator Generator, config Config) *Service {
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}

	return &Service{
		repo:      repo,
		notifier:  notifier,
		generator: generator,
		clock:     config.Clock,
	}
}

// ListTasks returns the day's tasks in display order.
func (s *Service) ListTasks(ctx context.Context, userID string, day domain.Day) ([]*domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	sortTasks(tasks)
	return tasks, nil
}

// ListTasksSince returns the day's tasks changed after since, for delta sync.
// Deletions are not reported.
func (s *Service) ListTasksSince(ctx context.Context, userID string, day domain.Day, since time.Time) ([]*domain.Task, error) {
	tasks, err := s.repo.ListTasksSince(ctx, userID, day, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks since %s: %w", since.Format(time.RFC3339), err)
	}
	sortTasks(tasks)
	return tasks, nil
}

// GetTask returns one task of the day.
func (s *Service) GetTask(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
	var task *domain.Task
	err := s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		var err error
		task, err = scope.FindTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask validates the input and stores a new task.
func (s *Service) CreateTask(ctx context.Context, userID string, day domain.Day, input TaskInput) (*domain.Task, error) {
	task, err := s.newTask(userID, day, input)
	if err != nil {
		return nil, err
	}

	err = s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		return scope.InsertTask(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return task, nil
}

// UpdateTask applies a partial update. A schedule change restarts the countdown
// from the new full duration and stops the timer if it was running.
func (s *Service) UpdateTask(ctx context.Context, userID string, day domain.Day, params UpdateTaskParams) (*domain.Task, error) {
	var (
		title    *domain.Title
		schedule domain.Schedule
	)
	if params.Title != nil {
		t, err := domain.NewTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		title = &t
	}
	if params.Schedule != nil {
		sc, err := params.Schedule.Build()
		if err != nil {
			return nil, err
		}
		schedule = sc
	}

	var (
		updated    *domain.Task
		wasRunning bool
	)
	err := s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		task, err := scope.FindTask(ctx, params.TaskID)
		if err != nil {
			return err
		}
		if params.Etag != nil && strings.Trim(*params.Etag, `"`) != task.Etag() {
			return fmt.Errorf("%w: task %s is at version %s", domain.ErrVersionConflict, task.ID, task.Etag())
		}

		now := s.clock.Now()
		if title != nil {
			task.Title = title.String()
		}
		if schedule != nil {
			wasRunning = task.Reschedule(schedule, now)
		}
		if params.Icon != nil {
			task.Icon = *params.Icon
		}
		if params.Color != nil {
			task.Color = *params.Color
		}
		task.UpdatedAt = now

		updated = task
		return scope.SaveTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if wasRunning {
		s.notify(ctx, userID, day)
	}
	return updated, nil
}

// DeleteTask removes a task and its subtasks.
func (s *Service) DeleteTask(ctx context.Context, userID string, day domain.Day, taskID string) error {
	var wasRunning bool
	err := s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		task, err := scope.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		wasRunning = task.IsRunning()
		return scope.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return err
	}

	if wasRunning {
		s.notify(ctx, userID, day)
	}
	return nil
}

// ReplaceDay swaps the whole schedule of a day for inputs in one atomic write.
// Every input is validated before anything is removed.
func (s *Service) ReplaceDay(ctx context.Context, userID string, day domain.Day, inputs []TaskInput) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0, len(inputs))
	for i, in := range inputs {
		task, err := s.newTask(userID, day, in)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		tasks = append(tasks, task)
	}

	var hadRunning bool
	err := s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		existing, err := scope.ListTasks(ctx)
		if err != nil {
			return err
		}
		for _, t := range existing {
			hadRunning = hadRunning || t.IsRunning()
			if err := scope.DeleteTask(ctx, t.ID); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			if err := scope.InsertTask(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace schedule: %w", err)
	}

	slog.InfoContext(ctx, "Schedule replaced",
		slog.String("user_id", userID),
		slog.String("day", day.String()),
		slog.Int("tasks", len(tasks)))

	if hadRunning {
		s.notify(ctx, userID, day)
	}
	sortTasks(tasks)
	return tasks, nil
}

// SetManualStatus sets or, with an empty status, clears the manual override.
func (s *Service) SetManualStatus(ctx context.Context, userID string, day domain.Day, taskID, status string) (*domain.Task, error) {
	ms, err := domain.NewManualStatus(status)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, userID, day, taskID, func(task *domain.Task) error {
		task.ManualStatus = ms
		return nil
	})
}

// AddSubtask appends a subtask.
func (s *Service) AddSubtask(ctx context.Context, userID string, day domain.Day, taskID, text string) (*domain.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrSubtaskTextRequired
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	return s.update(ctx, userID, day, taskID, func(task *domain.Task) error {
		now := s.clock.Now()
		task.Subtasks = append(task.Subtasks, domain.Subtask{
			ID:        id.String(),
			Text:      text,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
}

// UpdateSubtask edits the text and/or completion of a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, userID string, day domain.Day, taskID, subtaskID string, params UpdateSubtaskParams) (*domain.Task, error) {
	var text string
	if params.Text != nil {
		text = strings.TrimSpace(*params.Text)
		if text == "" {
			return nil, domain.ErrSubtaskTextRequired
		}
	}

	return s.update(ctx, userID, day, taskID, func(task *domain.Task) error {
		sub, err := task.Subtask(subtaskID)
		if err != nil {
			return err
		}
		if params.Text != nil {
			sub.Text = text
		}
		if params.Completed != nil {
			sub.Completed = *params.Completed
		}
		sub.UpdatedAt = s.clock.Now()
		return nil
	})
}

// ToggleSubtask flips the completion of a subtask.
func (s *Service) ToggleSubtask(ctx context.Context, userID string, day domain.Day, taskID, subtaskID string) (*domain.Task, error) {
	return s.update(ctx, userID, day, taskID, func(task *domain.Task) error {
		sub, err := task.Subtask(subtaskID)
		if err != nil {
			return err
		}
		sub.Completed = !sub.Completed
		sub.UpdatedAt = s.clock.Now()
		return nil
	})
}

// DeleteSubtask removes a subtask, keeping the order of the rest.
func (s *Service) DeleteSubtask(ctx context.Context, userID string, day domain.Day, taskID, subtaskID string) (*domain.Task, error) {
	return s.update(ctx, userID, day, taskID, func(task *domain.Task) error {
		i := slices.IndexFunc(task.Subtasks, func(st domain.Subtask) bool { return st.ID == subtaskID })
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrSubtaskNotFound, subtaskID)
		}
		task.Subtasks = slices.Delete(task.Subtasks, i, i+1)
		return nil
	})
}

// Stats classifies the day's tasks as of now.
func (s *Service) Stats(ctx context.Context, userID string, day domain.Day) (domain.Stats, error) {
	tasks, err := s.repo.ListTasks(ctx, userID, day)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	return domain.ComputeStats(tasks, s.clock.Now()), nil
}

// ResetAll clears manual status and restarts every countdown in the store.
// Running timers are stopped. Returns the number of tasks reset.
func (s *Service) ResetAll(ctx context.Context) (int, error) {
	scopes, err := s.repo.ListScopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list scopes: %w", err)
	}

	var total int
	for _, key := range scopes {
		var (
			n          int
			hadRunning bool
		)
		err := s.repo.AtomicSchedule(ctx, key.UserID, key.Day, func(ctx context.Context, scope Scope) error {
			n, hadRunning = 0, false
			tasks, err := scope.ListTasks(ctx)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			for _, t := range tasks {
				hadRunning = hadRunning || t.IsRunning()
				t.ResetForNewDay()
				t.UpdatedAt = now
				if err := scope.SaveTask(ctx, t); err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("failed to reset %s/%s: %w", key.UserID, key.Day, err)
		}

		total += n
		if hadRunning {
			s.notify(ctx, key.UserID, key.Day)
		}
	}
	return total, nil
}

// update loads a task, applies fn and saves it inside one scope.
func (s *Service) update(ctx context.Context, userID string, day domain.Day, taskID string, fn func(*domain.Task) error) (*domain.Task, error) {
	var updated *domain.Task
	err := s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
		task, err := scope.FindTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		task.UpdatedAt = s.clock.Now()
		updated = task
		return scope.SaveTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// newTask validates input and builds an unsaved task with fresh ids.
func (s *Service) newTask(userID string, day domain.Day, in TaskInput) (*domain.Task, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}
	schedule, err := in.Schedule.Build()
	if err != nil {
		return nil, err
	}
	status, err := domain.NewManualStatus(in.ManualStatus)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	now := s.clock.Now()
	task := &domain.Task{
		ID:           id.String(),
		UserID:       userID,
		Date:         day,
		Title:        title.String(),
		Schedule:     schedule,
		ManualStatus: status,
		Icon:         cmp.Or(in.Icon, domain.DefaultIcon),
		Color:        cmp.Or(in.Color, domain.DefaultColor),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if domain.IsTimed(schedule) {
		task.Timer = domain.NewTimer(schedule.FullDuration())
		if in.RemainingDuration != nil {
			if *in.RemainingDuration < 0 {
				return nil, fmt.Errorf("%w: remaining duration %d", domain.ErrInvalidDuration, *in.RemainingDuration)
			}
			task.Timer.SetRemaining(*in.RemainingDuration)
		}
	}

	for _, text := range in.Subtasks {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		sid, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate id: %w", err)
		}
		task.Subtasks = append(task.Subtasks, domain.Subtask{ID: sid.String(), Text: text, CreatedAt: now, UpdatedAt: now})
	}

	return task, nil
}

func (s *Service) notify(ctx context.Context, userID string, day domain.Day) {
	if s.notifier != nil {
		s.notifier.NotifyRunning(ctx, userID, day)
	}
}

// sortTasks orders fixed tasks by start, then flexible tasks by suggested start,
// then everything else by creation.
func sortTasks(tasks []*domain.Task) {
	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		ka, kb := sortKey(a), sortKey(b)
		if c := cmp.Compare(ka, kb); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

const unplaced = 24 * 60

func sortKey(t *domain.Task) int {
	switch sc := t.Schedule.(type) {
	case domain.FixedSchedule:
		return sc.Start.MinutesOfDay()
	case domain.FlexibleSchedule:
		if sc.SuggestedStart != nil {
			return sc.SuggestedStart.MinutesOfDay()
		}
	}
	return unplaced
}

// isValidation reports whether err is a caller mistake rather than a failure.
func isValidation(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidFormat, domain.ErrInvalidDuration, domain.ErrInvalidTimeRange,
		domain.ErrInvalidTimeSlot, domain.ErrInvalidSchedule, domain.ErrTitleRequired,
		domain.ErrTitleTooLong, domain.ErrInvalidManualStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/domain"
)

// === Task Repository Implementation ===
// Reads on the store go straight to the pool; writes go through scope, the
// transaction-bound view handed to AtomicTimer and AtomicSchedule callbacks.

// uniqueViolation is the SQLSTATE of a unique index violation.
const uniqueViolation = "23505"

// FindRunningTask implements timer.Repository.
func (s *Store) FindRunningTask(ctx context.Context, userID string, day domain.Day) (*domain.Task, error) {
	tasks, err := s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND day = $2 AND is_running`,
		userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find running task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

// ListTasks implements schedule.Repository.
func (s *Store) ListTasks(ctx context.Context, userID string, day domain.Day) ([]*domain.Task, error) {
	tasks, err := s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 AND day = $2 ORDER BY created_at, id`,
		userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListTasksSince implements schedule.Repository.
func (s *Store) ListTasksSince(ctx context.Context, userID string, day domain.Day, since time.Time) ([]*domain.Task, error) {
	tasks, err := s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE user_id = $1 AND day = $2 AND updated_at > $3
		 ORDER BY created_at, id`,
		userID, day.String(), timeToPgtype(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks since %s: %w", since.Format(time.RFC3339), err)
	}
	return tasks, nil
}

// ListScopes implements schedule.Repository.
func (s *Store) ListScopes(ctx context.Context) ([]schedule.ScopeKey, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT user_id, day FROM tasks ORDER BY user_id, day`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list scopes: %w", domain.ErrStoreUnavailable, err)
	}

	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schedule.ScopeKey, error) {
		var k schedule.ScopeKey
		var day string
		if err := row.Scan(&k.UserID, &day); err != nil {
			return k, err
		}
		k.Day = domain.Day(day)
		return k, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan scopes: %w", err)
	}
	return keys, nil
}

// queryTasks runs a task query and attaches each task's subtasks.
func (s *Store) queryTasks(ctx context.Context, sql string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Task, error) {
		var r taskRow
		if err := row.Scan(r.fields()...); err != nil {
			return nil, err
		}
		return taskRowToDomain(r)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}

	if err := s.attachSubtasks(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *Store) attachSubtasks(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, len(tasks))
	byID := make(map[string]*domain.Task, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		byID[t.ID] = t
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+subtaskColumns+` FROM subtasks WHERE task_id = ANY($1::text[]::uuid[]) ORDER BY task_id, position`,
		ids)
	if err != nil {
		return fmt.Errorf("%w: failed to load subtasks: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		taskID, st, err := scanSubtask(rows)
		if err != nil {
			return fmt.Errorf("failed to scan subtask: %w", err)
		}
		if t, ok := byID[taskID]; ok {
			t.Subtasks = append(t.Subtasks, st)
		}
	}
	return rows.Err()
}

// scope is the transactional view of one (user, day).
type scope struct {
	store  *Store
	userID string
	day    domain.Day
}

func (sc *scope) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	return sc.store.ListTasks(ctx, sc.userID, sc.day)
}

func (sc *scope) FindTask(ctx context.Context, id string) (*domain.Task, error) {
	pgID, err := parseUUID(id)
	if err != nil {
		// Not a key this store could have issued.
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	tasks, err := sc.store.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2 AND day = $3`,
		pgID, sc.userID, sc.day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return tasks[0], nil
}

func (sc *scope) SaveTimer(ctx context.Context, task *domain.Task) error {
	var r taskRow
	setTimerColumns(&r, task.Timer)

	pgID, err := parseUUID(task.ID)
	if err != nil {
		return err
	}

	var version int
	err = sc.store.db.QueryRow(ctx,
		`UPDATE tasks SET
			remaining_duration = $4, segment_remaining = $5, total_elapsed = $6,
			is_running = $7, is_paused = $8, started_at = $9, paused_at = $10,
			updated_at = $11, version = version + 1
		 WHERE id = $1 AND user_id = $2 AND day = $3
		 RETURNING version`,
		pgID, sc.userID, sc.day.String(),
		r.RemainingDuration, r.SegmentRemaining, r.TotalElapsed,
		r.IsRunning, r.IsPaused, r.StartedAt, r.PausedAt,
		timeToPgtype(task.UpdatedAt),
	).Scan(&version)
	if err != nil {
		return sc.writeErr("save timer", task.ID, err)
	}

	task.Version = version
	return nil
}

func (sc *scope) InsertTask(ctx context.Context, task *domain.Task) error {
	task.UserID = sc.userID
	task.Date = sc.day
	task.Version = 1

	r, err := domainTaskToRow(task)
	if err != nil {
		return err
	}

	_, err = sc.store.db.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		r.values()...)
	if err != nil {
		return sc.writeErr("insert task", task.ID, err)
	}

	return sc.replaceSubtasks(ctx, r.ID, task.Subtasks)
}

func (sc *scope) SaveTask(ctx context.Context, task *domain.Task) error {
	task.UserID = sc.userID
	task.Date = sc.day

	r, err := domainTaskToRow(task)
	if err != nil {
		return err
	}

	var version int
	err = sc.store.db.QueryRow(ctx,
		`UPDATE tasks SET
			title = $4, schedule_kind = $5, start_time = $6, end_time = $7,
			duration_minutes = $8, preferred_slots = $9, earliest_start = $10, latest_end = $11,
			suggested_start = $12, suggested_end = $13,
			remaining_duration = $14, segment_remaining = $15, total_elapsed = $16,
			is_running = $17, is_paused = $18, started_at = $19, paused_at = $20,
			manual_status = $21, icon = $22, color = $23, updated_at = $24,
			version = version + 1
		 WHERE id = $1 AND user_id = $2 AND day = $3
		 RETURNING version`,
		r.ID, r.UserID, r.Day,
		r.Title, r.ScheduleKind, r.StartTime, r.EndTime,
		r.DurationMinutes, r.PreferredSlots, r.EarliestStart, r.LatestEnd,
		r.SuggestedStart, r.SuggestedEnd,
		r.RemainingDuration, r.SegmentRemaining, r.TotalElapsed,
		r.IsRunning, r.IsPaused, r.StartedAt, r.PausedAt,
		r.ManualStatus, r.Icon, r.Color, r.UpdatedAt,
	).Scan(&version)
	if err != nil {
		return sc.writeErr("save task", task.ID, err)
	}
	task.Version = version

	return sc.replaceSubtasks(ctx, r.ID, task.Subtasks)
}

func (sc *scope) DeleteTask(ctx context.Context, id string) error {
	pgID, err := parseUUID(id)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	tag, err := sc.store.db.Exec(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2 AND day = $3`,
		pgID, sc.userID, sc.day.String())
	if err != nil {
		return sc.writeErr("delete task", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return nil
}

// replaceSubtasks rewrites the subtask rows of a task in one batch.
func (sc *scope) replaceSubtasks(ctx context.Context, taskID any, subtasks []domain.Subtask) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM subtasks WHERE task_id = $1`, taskID)
	for i, st := range subtasks {
		id, err := parseUUID(st.ID)
		if err != nil {
			return fmt.Errorf("subtask %q: %w", st.ID, err)
		}
		batch.Queue(
			`INSERT INTO subtasks (`+subtaskColumns+`, position) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			taskID, id, st.Text, st.Completed, timeToPgtype(st.CreatedAt), timeToPgtype(st.UpdatedAt), i)
	}

	if err := sc.store.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write subtasks: %w", err)
	}
	return nil
}

func (sc *scope) writeErr(op, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("failed to %s %s: %s: %w", op, id, pgErr.ConstraintName, err)
	}
	return fmt.Errorf("failed to %s %s: %w", op, id, err)
}

package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/ptr"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// === pgtype Conversion Helpers ===

// uuidToPgtype converts google/uuid.UUID to pgtype.UUID.
func uuidToPgtype(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// parseUUID converts a string id to pgtype.UUID, wrapping domain.ErrInvalidID.
func parseUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: %w", domain.ErrInvalidID, err)
	}
	return uuidToPgtype(id), nil
}

// pgtypeToUUIDString converts pgtype.UUID to string (empty if invalid).
func pgtypeToUUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

// timeToPgtype converts time.Time to pgtype.Timestamptz.
func timeToPgtype(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// pgtypeToTime converts pgtype.Timestamptz to time.Time (zero if invalid).
// Always returns time in UTC location for consistent timezone handling.
func pgtypeToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}

// pgtypeToTimePtr converts pgtype.Timestamptz to *time.Time (nil if invalid).
func pgtypeToTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return ptr.To(t.Time.UTC())
}

// timePtrToPgtype converts *time.Time to pgtype.Timestamptz; nil stores NULL.
func timePtrToPgtype(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func clockToPgtype(t timeutil.TimeOfDay) pgtype.Text {
	return pgtype.Text{String: t.String(), Valid: true}
}

func clockPtrToPgtype(t *timeutil.TimeOfDay) pgtype.Text {
	if t == nil {
		return pgtype.Text{}
	}
	return clockToPgtype(*t)
}

func pgtypeToClock(column string, t pgtype.Text) (timeutil.TimeOfDay, error) {
	if !t.Valid {
		return timeutil.TimeOfDay{}, fmt.Errorf("%w: %s is NULL", domain.ErrInvalidSchedule, column)
	}
	v, err := timeutil.ParseTime(t.String)
	if err != nil {
		return timeutil.TimeOfDay{}, fmt.Errorf("%s: %w", column, err)
	}
	return v, nil
}

func pgtypeToClockPtr(column string, t pgtype.Text) (*timeutil.TimeOfDay, error) {
	if !t.Valid {
		return nil, nil
	}
	v, err := pgtypeToClock(column, t)
	if err != nil {
		return nil, err
	}
	return ptr.To(v), nil
}

func int8Ptr(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: true}
}

// === API Key Conversions ===

const apiKeyColumns = `id, user_id, key_type, service, version, short_token, long_secret_hash,
	name, is_active, created_at, last_used_at, expires_at`

func scanAPIKey(row pgx.Row) (*domain.APIKey, error) {
	var (
		id                   pgtype.UUID
		createdAt            pgtype.Timestamptz
		lastUsedAt, expireAt pgtype.Timestamptz
		key                  domain.APIKey
	)
	err := row.Scan(&id, &key.UserID, &key.KeyType, &key.Service, &key.Version, &key.ShortToken,
		&key.LongSecretHash, &key.Name, &key.IsActive, &createdAt, &lastUsedAt, &expireAt)
	if err != nil {
		return nil, err
	}

	key.ID = pgtypeToUUIDString(id)
	key.CreatedAt = pgtypeToTime(createdAt)
	key.LastUsedAt = pgtypeToTimePtr(lastUsedAt)
	key.ExpiresAt = pgtypeToTimePtr(expireAt)
	return &key, nil
}

// === Task Conversions ===

// taskColumns lists the tasks table in the order of taskRow.fields.
const taskColumns = `id, user_id, day, title,
	schedule_kind, start_time, end_time, duration_minutes, preferred_slots,
	earliest_start, latest_end, suggested_start, suggested_end,
	remaining_duration, segment_remaining, total_elapsed, is_running, is_paused, started_at, paused_at,
	manual_status, icon, color, created_at, updated_at, version`

// taskRow is one row of the tasks table. Schedule and timer columns are
// nullable and only set for the kinds that use them.
type taskRow struct {
	ID     pgtype.UUID
	UserID string
	Day    string
	Title  string

	ScheduleKind    string
	StartTime       pgtype.Text
	EndTime         pgtype.Text
	DurationMinutes pgtype.Int4
	PreferredSlots  []string
	EarliestStart   pgtype.Text
	LatestEnd       pgtype.Text
	SuggestedStart  pgtype.Text
	SuggestedEnd    pgtype.Text

	RemainingDuration pgtype.Int8
	SegmentRemaining  pgtype.Int8
	TotalElapsed      pgtype.Int8
	IsRunning         bool
	IsPaused          bool
	StartedAt         pgtype.Timestamptz
	PausedAt          pgtype.Timestamptz

	ManualStatus string
	Icon         string
	Color        string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	Version      int
}

// fields returns pointers to every column in taskColumns order, for Scan.
func (r *taskRow) fields() []any {
	return []any{
		&r.ID, &r.UserID, &r.Day, &r.Title,
		&r.ScheduleKind, &r.StartTime, &r.EndTime, &r.DurationMinutes, &r.PreferredSlots,
		&r.EarliestStart, &r.LatestEnd, &r.SuggestedStart, &r.SuggestedEnd,
		&r.RemainingDuration, &r.SegmentRemaining, &r.TotalElapsed, &r.IsRunning, &r.IsPaused, &r.StartedAt, &r.PausedAt,
		&r.ManualStatus, &r.Icon, &r.Color, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	}
}

// values returns every column in taskColumns order, for Exec.
func (r *taskRow) values() []any {
	return []any{
		r.ID, r.UserID, r.Day, r.Title,
		r.ScheduleKind, r.StartTime, r.EndTime, r.DurationMinutes, r.PreferredSlots,
		r.EarliestStart, r.LatestEnd, r.SuggestedStart, r.SuggestedEnd,
		r.RemainingDuration, r.SegmentRemaining, r.TotalElapsed, r.IsRunning, r.IsPaused, r.StartedAt, r.PausedAt,
		r.ManualStatus, r.Icon, r.Color, r.CreatedAt, r.UpdatedAt, r.Version,
	}
}

func domainTaskToRow(t *domain.Task) (taskRow, error) {
	id, err := parseUUID(t.ID)
	if err != nil {
		return taskRow{}, err
	}

	r := taskRow{
		ID:           id,
		UserID:       t.UserID,
		Day:          t.Date.String(),
		Title:        t.Title,
		ManualStatus: string(t.ManualStatus),
		Icon:         t.Icon,
		Color:        t.Color,
		CreatedAt:    timeToPgtype(t.CreatedAt),
		UpdatedAt:    timeToPgtype(t.UpdatedAt),
		Version:      t.Version,
	}

	switch s := t.Schedule.(type) {
	case domain.FixedSchedule:
		r.ScheduleKind = string(domain.ScheduleFixed)
		r.StartTime = clockToPgtype(s.Start)
		r.EndTime = clockToPgtype(s.End)
	case domain.FlexibleSchedule:
		r.ScheduleKind = string(domain.ScheduleFlexible)
		r.DurationMinutes = pgtype.Int4{Int32: int32(s.DurationMinutes), Valid: true}
		r.PreferredSlots = make([]string, len(s.PreferredSlots))
		for i, slot := range s.PreferredSlots {
			r.PreferredSlots[i] = string(slot)
		}
		r.EarliestStart = clockToPgtype(s.EarliestStart)
		r.LatestEnd = clockToPgtype(s.LatestEnd)
		r.SuggestedStart = clockPtrToPgtype(s.SuggestedStart)
		r.SuggestedEnd = clockPtrToPgtype(s.SuggestedEnd)
	case domain.TimelessSchedule:
		r.ScheduleKind = string(domain.ScheduleTimeless)
	default:
		return taskRow{}, fmt.Errorf("%w: %T", domain.ErrInvalidSchedule, t.Schedule)
	}

	setTimerColumns(&r, t.Timer)
	return r, nil
}

func setTimerColumns(r *taskRow, tm *domain.Timer) {
	if tm == nil {
		r.RemainingDuration = pgtype.Int8{}
		r.SegmentRemaining = pgtype.Int8{}
		r.TotalElapsed = pgtype.Int8{}
		r.IsRunning, r.IsPaused = false, false
		r.StartedAt, r.PausedAt = pgtype.Timestamptz{}, pgtype.Timestamptz{}
		return
	}

	r.RemainingDuration = int8Ptr(tm.RemainingDuration)
	r.SegmentRemaining = int8Ptr(tm.SegmentRemaining)
	r.TotalElapsed = int8Ptr(tm.TotalElapsed)
	r.IsRunning = tm.IsRunning
	r.IsPaused = tm.IsPaused
	r.StartedAt = timePtrToPgtype(tm.StartedAt)
	r.PausedAt = timePtrToPgtype(tm.PausedAt)
}

func taskRowToDomain(r taskRow) (*domain.Task, error) {
	t := &domain.Task{
		ID:           pgtypeToUUIDString(r.ID),
		UserID:       r.UserID,
		Date:         domain.Day(r.Day),
		Title:        r.Title,
		ManualStatus: domain.ManualStatus(r.ManualStatus),
		Icon:         r.Icon,
		Color:        r.Color,
		CreatedAt:    pgtypeToTime(r.CreatedAt),
		UpdatedAt:    pgtypeToTime(r.UpdatedAt),
		Version:      r.Version,
	}

	sched, err := rowSchedule(r)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Schedule = sched

	if domain.IsTimed(sched) {
		t.Timer = &domain.Timer{
			RemainingDuration: r.RemainingDuration.Int64,
			SegmentRemaining:  r.SegmentRemaining.Int64,
			TotalElapsed:      r.TotalElapsed.Int64,
			IsRunning:         r.IsRunning,
			IsPaused:          r.IsPaused,
			StartedAt:         pgtypeToTimePtr(r.StartedAt),
			PausedAt:          pgtypeToTimePtr(r.PausedAt),
		}
		if !r.RemainingDuration.Valid {
			t.Timer = domain.NewTimer(sched.FullDuration())
		}
	}
	return t, nil
}

func rowSchedule(r taskRow) (domain.Schedule, error) {
	switch domain.ScheduleKind(r.ScheduleKind) {
	case domain.ScheduleFixed:
		start, err := pgtypeToClock("start_time", r.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := pgtypeToClock("end_time", r.EndTime)
		if err != nil {
			return nil, err
		}
		return domain.FixedSchedule{Start: start, End: end}, nil

	case domain.ScheduleFlexible:
		fs := domain.FlexibleSchedule{DurationMinutes: int(r.DurationMinutes.Int32)}
		for _, s := range r.PreferredSlots {
			fs.PreferredSlots = append(fs.PreferredSlots, domain.TimeSlot(s))
		}

		var err error
		if fs.EarliestStart, err = pgtypeToClock("earliest_start", r.EarliestStart); err != nil {
			return nil, err
		}
		if fs.LatestEnd, err = pgtypeToClock("latest_end", r.LatestEnd); err != nil {
			return nil, err
		}
		if fs.SuggestedStart, err = pgtypeToClockPtr("suggested_start", r.SuggestedStart); err != nil {
			return nil, err
		}
		if fs.SuggestedEnd, err = pgtypeToClockPtr("suggested_end", r.SuggestedEnd); err != nil {
			return nil, err
		}
		return fs, nil

	case domain.ScheduleTimeless:
		return domain.TimelessSchedule{}, nil

	default:
		return nil, fmt.Errorf("%w: kind %q", domain.ErrInvalidSchedule, r.ScheduleKind)
	}
}

// === Subtask Conversions ===

const subtaskColumns = `task_id, id, text, completed, created_at, updated_at`

func scanSubtask(rows pgx.Rows) (taskID string, st domain.Subtask, err error) {
	var (
		tid, id              pgtype.UUID
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := rows.Scan(&tid, &id, &st.Text, &st.Completed, &createdAt, &updatedAt); err != nil {
		return "", domain.Subtask{}, err
	}

	st.ID = pgtypeToUUIDString(id)
	st.CreatedAt = pgtypeToTime(createdAt)
	st.UpdatedAt = pgtypeToTime(updatedAt)
	return pgtypeToUUIDString(tid), st, nil
}

package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

func newTestTask(t *testing.T, s domain.Schedule) *domain.Task {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	task := &domain.Task{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    "user-1",
		Date:      "2026-03-14",
		Title:     "Focus",
		Schedule:  s,
		Icon:      domain.DefaultIcon,
		Color:     domain.DefaultColor,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   3,
	}
	if domain.IsTimed(s) {
		task.Timer = domain.NewTimer(s.FullDuration())
	}
	return task
}

func TestTaskRow_FixedRunningTimer(t *testing.T) {
	s, err := domain.NewFixedSchedule("09:00", "10:00")
	require.NoError(t, err)
	task := newTestTask(t, s)
	task.Timer.Start(task.CreatedAt)
	task.Timer.TotalElapsed = 120

	r, err := domainTaskToRow(task)
	require.NoError(t, err)
	assert.Equal(t, "fixed", r.ScheduleKind)
	assert.Equal(t, "09:00", r.StartTime.String)
	assert.True(t, r.IsRunning)
	assert.False(t, r.DurationMinutes.Valid)

	got, err := taskRowToDomain(r)
	require.NoError(t, err)
	assert.Equal(t, task.Schedule, got.Schedule)
	assert.Equal(t, task.Timer.RemainingDuration, got.Timer.RemainingDuration)
	assert.Equal(t, int64(120), got.Timer.TotalElapsed)
	require.NotNil(t, got.Timer.StartedAt)
	assert.True(t, task.Timer.StartedAt.Equal(*got.Timer.StartedAt))
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, 3, got.Version)
}

func TestTaskRow_FlexibleKeepsSuggestion(t *testing.T) {
	s, err := domain.NewFlexibleSchedule(domain.FlexibleParams{
		DurationMinutes: 45,
		PreferredSlots:  []string{"morning", "evening"},
		SuggestedStart:  "07:30",
		SuggestedEnd:    "08:15",
	})
	require.NoError(t, err)
	task := newTestTask(t, s)

	r, err := domainTaskToRow(task)
	require.NoError(t, err)
	assert.Equal(t, []string{"morning", "evening"}, r.PreferredSlots)
	assert.Equal(t, "06:00", r.EarliestStart.String)

	got, err := taskRowToDomain(r)
	require.NoError(t, err)
	fs, ok := got.Schedule.(domain.FlexibleSchedule)
	require.True(t, ok)
	assert.Equal(t, 45, fs.DurationMinutes)
	assert.Equal(t, []domain.TimeSlot{domain.TimeSlotMorning, domain.TimeSlotEvening}, fs.PreferredSlots)
	require.NotNil(t, fs.SuggestedStart)
	assert.Equal(t, timeutil.MustParseTime("07:30"), *fs.SuggestedStart)
	assert.Equal(t, int64(2700), got.Timer.RemainingDuration)
}

func TestTaskRow_TimelessHasNoTimerColumns(t *testing.T) {
	task := newTestTask(t, domain.TimelessSchedule{})
	task.ManualStatus = domain.ManualStatusDone

	r, err := domainTaskToRow(task)
	require.NoError(t, err)
	assert.False(t, r.RemainingDuration.Valid)
	assert.False(t, r.IsRunning)

	got, err := taskRowToDomain(r)
	require.NoError(t, err)
	assert.Nil(t, got.Timer)
	assert.Equal(t, domain.ManualStatusDone, got.ManualStatus)
}

func TestTaskRow_MissingTimerColumnsStartFresh(t *testing.T) {
	s, err := domain.NewFixedSchedule("13:00", "13:30")
	require.NoError(t, err)
	r, err := domainTaskToRow(newTestTask(t, s))
	require.NoError(t, err)
	r.RemainingDuration = pgtype.Int8{}

	got, err := taskRowToDomain(r)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), got.Timer.RemainingDuration)
}

func TestTaskRow_Errors(t *testing.T) {
	t.Run("non uuid id", func(t *testing.T) {
		task := newTestTask(t, domain.TimelessSchedule{})
		task.ID = "not-a-uuid"
		_, err := domainTaskToRow(task)
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := taskRowToDomain(taskRow{ScheduleKind: "weekly"})
		assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
	})

	t.Run("fixed without start", func(t *testing.T) {
		_, err := taskRowToDomain(taskRow{
			ScheduleKind: "fixed",
			EndTime:      pgtype.Text{String: "10:00", Valid: true},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidSchedule)
	})

	t.Run("malformed clock", func(t *testing.T) {
		_, err := taskRowToDomain(taskRow{
			ScheduleKind: "fixed",
			StartTime:    pgtype.Text{String: "9am", Valid: true},
			EndTime:      pgtype.Text{String: "10:00", Valid: true},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidFormat)
	})
}

func TestScopeLockKey(t *testing.T) {
	assert.Equal(t, "user-1/2026-03-14", scopeLockKey("user-1", "2026-03-14"))
	assert.NotEqual(t, scopeLockKey("a", "2026-03-14"), scopeLockKey("a", "2026-03-15"))
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedTask(t *testing.T, start, end string) *Task {
	t.Helper()
	s, err := NewFixedSchedule(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return &Task{ID: "t1", Date: "2026-03-14", Title: "Focus", Schedule: s, Timer: NewTimer(s.FullDuration())}
}

func TestIsCompleted_Precedence(t *testing.T) {
	task := fixedTask(t, "09:00", "10:00")

	task.ManualStatus = ManualStatusDone
	assert.True(t, IsCompleted(task), "manual done wins regardless of timer")

	task.Timer.RemainingDuration = 0
	task.ManualStatus = ManualStatusMissed
	assert.False(t, IsCompleted(task), "manual missed wins over exhausted timer")

	task.ManualStatus = ManualStatusNone
	assert.True(t, IsCompleted(task))

	task.Timer.RemainingDuration = 50
	assert.False(t, IsCompleted(task))
}

func TestIsCompleted_Timeless(t *testing.T) {
	task := &Task{Schedule: TimelessSchedule{}}
	assert.False(t, IsCompleted(task))

	task.ManualStatus = ManualStatusDone
	assert.True(t, IsCompleted(task))
}

func TestClassifyStatus(t *testing.T) {
	before := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)
	after := time.Date(2026, 3, 14, 10, 30, 0, 0, time.Local)
	nextDay := time.Date(2026, 3, 15, 8, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		remaining int64
		manual    ManualStatus
		now       time.Time
		want      Status
	}{
		{"pending inside window", 50, ManualStatusNone, before, StatusPending},
		{"missed after window", 50, ManualStatusNone, after, StatusMissed},
		{"missed on a later day", 50, ManualStatusNone, nextDay, StatusMissed},
		{"done when exhausted", 0, ManualStatusNone, after, StatusDone},
		{"manual done before window ends", 50, ManualStatusDone, before, StatusDone},
		{"manual missed inside window", 0, ManualStatusMissed, before, StatusMissed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := fixedTask(t, "09:00", "10:00")
			task.Timer.RemainingDuration = tc.remaining
			task.ManualStatus = tc.manual
			assert.Equal(t, tc.want, ClassifyStatus(task, tc.now))
		})
	}
}

func TestClassifyStatus_FlexibleNeverMissedByClock(t *testing.T) {
	s, _ := NewFlexibleSchedule(FlexibleParams{DurationMinutes: 30})
	task := &Task{Date: "2026-03-14", Schedule: s, Timer: NewTimer(s.FullDuration())}

	assert.Equal(t, StatusPending, ClassifyStatus(task, time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local)))
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.Local)

	done := fixedTask(t, "09:00", "10:00")
	done.Timer.RemainingDuration = 0
	done.Timer.TotalElapsed = 3600

	missed := fixedTask(t, "10:00", "11:00")
	pending := fixedTask(t, "13:00", "14:00")
	todo := &Task{Schedule: TimelessSchedule{}, ManualStatus: ManualStatusDone}

	stats := ComputeStats([]*Task{done, missed, pending, todo}, now)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Missed)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 50, stats.Percentage)
	assert.Equal(t, int64(3600), stats.Focused)
}

func TestTask_RescheduleAndReset(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	task := fixedTask(t, "09:00", "10:00")
	task.Timer.Start(now)

	longer, _ := NewFixedSchedule("09:00", "11:00")
	stopped := task.Reschedule(longer, now.Add(20*time.Second))

	assert.True(t, stopped)
	assert.False(t, task.Timer.IsRunning)
	assert.Equal(t, int64(7200), task.Timer.RemainingDuration)
	assert.Equal(t, int64(20), task.Timer.TotalElapsed)

	task.Reschedule(TimelessSchedule{}, now)
	assert.Nil(t, task.Timer)

	task.Reschedule(longer, now)
	task.ManualStatus = ManualStatusDone
	task.Timer.RemainingDuration = 12
	task.ResetForNewDay()
	assert.Equal(t, ManualStatusNone, task.ManualStatus)
	assert.Equal(t, int64(7200), task.Timer.RemainingDuration)
}

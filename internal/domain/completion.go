package domain

import (
	"time"

	"github.com/rezkam/focusflow/internal/timeutil"
)

// Status is the derived completion state of a task.
type Status string

const (
	StatusDone    Status = "done"
	StatusMissed  Status = "missed"
	StatusPending Status = "pending"
)

// IsCompleted applies the completion precedence: a manual done wins, a manual
// missed loses, otherwise a timed task is complete once its countdown is exhausted.
// Timeless tasks without an override are never complete on their own.
func IsCompleted(t *Task) bool {
	switch t.ManualStatus {
	case ManualStatusDone:
		return true
	case ManualStatusMissed:
		return false
	}

	return t.Timer != nil && t.Timer.RemainingDuration <= 0
}

// ClassifyStatus derives done, missed or pending. An incomplete fixed task whose
// window on its own day has closed by now is missed.
func ClassifyStatus(t *Task, now time.Time) Status {
	if t.ManualStatus == ManualStatusMissed {
		return StatusMissed
	}
	if IsCompleted(t) {
		return StatusDone
	}

	fixed, ok := t.Schedule.(FixedSchedule)
	if !ok {
		return StatusPending
	}

	day, err := timeutil.ParseDay(t.Date.String())
	if err != nil {
		day = now
	}
	if now.After(fixed.End.On(day)) {
		return StatusMissed
	}
	return StatusPending
}

// Stats summarizes completion for one day.
type Stats struct {
	Total      int
	Completed  int
	Missed     int
	Pending    int
	Percentage int   // completed share, rounded down
	Focused    int64 // seconds of running time across all tasks
}

// ComputeStats classifies every task as of now.
func ComputeStats(tasks []*Task, now time.Time) Stats {
	var s Stats
	for _, t := range tasks {
		s.Total++
		switch ClassifyStatus(t, now) {
		case StatusDone:
			s.Completed++
		case StatusMissed:
			s.Missed++
		default:
			s.Pending++
		}
		if t.Timer != nil {
			s.Focused += t.Timer.TotalElapsed + t.Timer.Elapsed(now)
		}
	}
	if s.Total > 0 {
		s.Percentage = s.Completed * 100 / s.Total
	}
	return s
}

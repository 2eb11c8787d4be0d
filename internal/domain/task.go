package domain

import (
	"fmt"
	"time"
)

// Task is one schedule entry for a user on a given day.
//
// Timer is nil exactly when Schedule is timeless.
type Task struct {
	ID     string
	UserID string // opaque, supplied by the identity provider
	Date   Day

	Title    string
	Schedule Schedule
	Timer    *Timer

	ManualStatus ManualStatus
	Subtasks     []Subtask

	// Cosmetic
	Icon  string
	Color string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Optimistic locking version for concurrent update protection
	Version int
}

// Subtask is a checklist entry of a task. Subtasks never affect the timer.
type Subtask struct {
	ID        string
	Text      string
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Etag returns the entity tag for this task, derived from its version.
func (t *Task) Etag() string {
	return fmt.Sprintf("%d", t.Version)
}

// IsTimed reports whether the task carries a countdown timer.
func (t *Task) IsTimed() bool {
	return IsTimed(t.Schedule)
}

// IsRunning reports whether the task's timer is running, paused or not.
func (t *Task) IsRunning() bool {
	return t.Timer != nil && t.Timer.IsRunning
}

// Reschedule replaces the schedule and rebuilds the timer for it.
// A changed countdown length starts over from the new full duration; elapsed
// history is kept. Returns true if a running timer was stopped.
func (t *Task) Reschedule(s Schedule, now time.Time) bool {
	wasRunning := t.IsRunning()
	t.Schedule = s

	if !IsTimed(s) {
		t.Timer = nil
		return wasRunning
	}

	if t.Timer == nil {
		t.Timer = NewTimer(s.FullDuration())
		return false
	}

	t.Timer.Stop(now)
	elapsed := t.Timer.TotalElapsed
	t.Timer.Reset(s.FullDuration())
	t.Timer.TotalElapsed = elapsed
	return wasRunning
}

// ResetForNewDay clears the manual override and restarts the countdown from the
// full duration. Run by the daily reset sweep.
func (t *Task) ResetForNewDay() {
	t.ManualStatus = ManualStatusNone
	if t.Timer != nil {
		t.Timer.Reset(t.Schedule.FullDuration())
	}
}

// Subtask returns the subtask with the given id.
func (t *Task) Subtask(id string) (*Subtask, error) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSubtaskNotFound, id)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Timer = t.Timer.Clone()
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		copy(c.Subtasks, t.Subtasks)
	}
	if fs, ok := t.Schedule.(FlexibleSchedule); ok {
		fs.PreferredSlots = append([]TimeSlot(nil), fs.PreferredSlots...)
		c.Schedule = fs
	}
	return &c
}

// DurationUpdate carries one client-computed remaining duration for a batched sync.
type DurationUpdate struct {
	TaskID            string
	RemainingDuration int64
}

package domain

import "time"

// Timer is the countdown state of a fixed or flexible task.
//
// Elapsed time is folded at state transitions only: the seconds since StartedAt are
// added to TotalElapsed and subtracted from SegmentRemaining, the remaining value
// captured when the segment began. Periodic overwrites of RemainingDuration by
// clients are a display cache and never feed the fold, so a flush followed by a
// stop cannot count the same seconds twice.
type Timer struct {
	RemainingDuration int64 // seconds, never negative
	IsRunning         bool
	IsPaused          bool // only meaningful while IsRunning
	StartedAt         *time.Time
	PausedAt          *time.Time
	TotalElapsed      int64 // seconds spent running and not paused

	// SegmentRemaining is RemainingDuration as of StartedAt.
	SegmentRemaining int64
}

// NewTimer returns a stopped timer with the full countdown left.
func NewTimer(full int64) *Timer {
	full = max(0, full)
	return &Timer{RemainingDuration: full, SegmentRemaining: full}
}

// Active reports whether the timer is accumulating time.
func (t *Timer) Active() bool {
	return t.IsRunning && !t.IsPaused
}

// Elapsed returns whole seconds since the current segment began, or 0 when not active.
func (t *Timer) Elapsed(now time.Time) int64 {
	if !t.Active() || t.StartedAt == nil {
		return 0
	}
	return max(0, int64(now.Sub(*t.StartedAt)/time.Second))
}

// Projected returns the remaining duration as of now without mutating the timer.
func (t *Timer) Projected(now time.Time) int64 {
	if !t.Active() || t.StartedAt == nil {
		return t.RemainingDuration
	}
	return max(0, t.SegmentRemaining-t.Elapsed(now))
}

// Fold commits the active segment up to now and opens a new segment at now.
// It returns the seconds folded.
func (t *Timer) Fold(now time.Time) int64 {
	if !t.Active() || t.StartedAt == nil {
		return 0
	}

	elapsed := t.Elapsed(now)
	t.TotalElapsed += elapsed
	t.RemainingDuration = max(0, t.SegmentRemaining-elapsed)

	// Keep the sub-second remainder in the new segment so repeated folds don't lose it.
	next := t.StartedAt.Add(time.Duration(elapsed) * time.Second)
	t.StartedAt = &next
	t.SegmentRemaining = t.RemainingDuration
	return elapsed
}

// Start begins a new running segment at now. Restarting a running timer folds the
// old segment first.
func (t *Timer) Start(now time.Time) int64 {
	folded := t.Fold(now)

	t.IsRunning = true
	t.IsPaused = false
	t.StartedAt = &now
	t.PausedAt = nil
	t.SegmentRemaining = t.RemainingDuration
	return folded
}

// Stop folds the active segment and clears every running field.
// Returns the seconds folded and whether the timer was running.
func (t *Timer) Stop(now time.Time) (int64, bool) {
	if !t.IsRunning {
		return 0, false
	}

	folded := t.Fold(now)
	t.clearRunning()
	return folded, true
}

// Pause folds the active segment and freezes accounting until Resume.
// It is a no-op unless the timer is running and not paused.
func (t *Timer) Pause(now time.Time) (int64, bool) {
	if !t.Active() {
		return 0, false
	}

	folded := t.Fold(now)
	t.IsPaused = true
	t.PausedAt = &now
	return folded, true
}

// Resume opens a new segment at now. It is a no-op unless the timer is paused.
func (t *Timer) Resume(now time.Time) bool {
	if !t.IsRunning || !t.IsPaused {
		return false
	}

	t.IsPaused = false
	t.PausedAt = nil
	t.StartedAt = &now
	t.SegmentRemaining = t.RemainingDuration
	return true
}

// SetRemaining overwrites the displayed remaining duration, clamped at zero.
// Outside an active segment it also moves the fold baseline.
func (t *Timer) SetRemaining(seconds int64) {
	t.RemainingDuration = max(0, seconds)
	if !t.Active() {
		t.SegmentRemaining = t.RemainingDuration
	}
}

// Reset returns the timer to a fresh countdown of full seconds.
func (t *Timer) Reset(full int64) {
	*t = *NewTimer(full)
}

func (t *Timer) clearRunning() {
	t.IsRunning = false
	t.IsPaused = false
	t.StartedAt = nil
	t.PausedAt = nil
	t.SegmentRemaining = t.RemainingDuration
}

// Clone returns a deep copy.
func (t *Timer) Clone() *Timer {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartedAt != nil {
		s := *t.StartedAt
		c.StartedAt = &s
	}
	if t.PausedAt != nil {
		p := *t.PausedAt
		c.PausedAt = &p
	}
	return &c
}

package domain

import (
	"fmt"

	"github.com/rezkam/focusflow/internal/timeutil"
)

// ScheduleKind names the variant of a Schedule.
type ScheduleKind string

const (
	ScheduleFixed    ScheduleKind = "fixed"
	ScheduleFlexible ScheduleKind = "flexible"
	ScheduleTimeless ScheduleKind = "timeless"
)

// Flexible duration bounds, in minutes.
const (
	MinFlexibleMinutes = 15
	MaxFlexibleMinutes = 240
)

// Bounds applied to flexible tasks that do not specify their own.
var (
	DefaultEarliestStart = timeutil.TimeOfDay{Hours: 6}
	DefaultLatestEnd     = timeutil.TimeOfDay{Hours: 23}
)

// Schedule is how a task is placed on its day. Exactly three implementations exist:
// FixedSchedule, FlexibleSchedule and TimelessSchedule.
type Schedule interface {
	Kind() ScheduleKind

	// FullDuration is the countdown length in seconds a fresh timer starts from.
	// Zero for timeless tasks.
	FullDuration() int64

	schedule()
}

// FixedSchedule is a same-day wall-clock window. Start is strictly before End.
type FixedSchedule struct {
	Start timeutil.TimeOfDay
	End   timeutil.TimeOfDay
}

// NewFixedSchedule parses and validates an "HH:MM" window.
// Windows that cross midnight are rejected.
func NewFixedSchedule(start, end string) (FixedSchedule, error) {
	s, err := timeutil.ParseTime(start)
	if err != nil {
		return FixedSchedule{}, fmt.Errorf("start: %w", err)
	}
	e, err := timeutil.ParseTime(end)
	if err != nil {
		return FixedSchedule{}, fmt.Errorf("end: %w", err)
	}
	if !s.Before(e) {
		return FixedSchedule{}, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, start, end)
	}
	return FixedSchedule{Start: s, End: e}, nil
}

func (FixedSchedule) Kind() ScheduleKind { return ScheduleFixed }

func (f FixedSchedule) FullDuration() int64 {
	return timeutil.CalculateDuration(f.Start, f.End)
}

func (FixedSchedule) schedule() {}

// FlexibleSchedule has a duration and placement preferences but no fixed window.
// Suggested bounds come from the generator and are advisory only.
type FlexibleSchedule struct {
	DurationMinutes int
	PreferredSlots  []TimeSlot
	EarliestStart   timeutil.TimeOfDay
	LatestEnd       timeutil.TimeOfDay
	SuggestedStart  *timeutil.TimeOfDay
	SuggestedEnd    *timeutil.TimeOfDay
}

// FlexibleParams are the raw inputs of a flexible schedule. Empty strings take defaults.
type FlexibleParams struct {
	DurationMinutes int
	PreferredSlots  []string
	EarliestStart   string
	LatestEnd       string
	SuggestedStart  string
	SuggestedEnd    string
}

// NewFlexibleSchedule validates the params and fills defaults: slots fall back to
// anytime and bounds to 06:00-23:00.
func NewFlexibleSchedule(p FlexibleParams) (FlexibleSchedule, error) {
	if p.DurationMinutes < MinFlexibleMinutes || p.DurationMinutes > MaxFlexibleMinutes {
		return FlexibleSchedule{}, fmt.Errorf("%w: %d minutes (must be %d-%d)",
			ErrInvalidDuration, p.DurationMinutes, MinFlexibleMinutes, MaxFlexibleMinutes)
	}

	fs := FlexibleSchedule{
		DurationMinutes: p.DurationMinutes,
		EarliestStart:   DefaultEarliestStart,
		LatestEnd:       DefaultLatestEnd,
	}

	seen := make(map[TimeSlot]bool, len(p.PreferredSlots))
	for _, raw := range p.PreferredSlots {
		slot, err := NewTimeSlot(raw)
		if err != nil {
			return FlexibleSchedule{}, err
		}
		if !seen[slot] {
			seen[slot] = true
			fs.PreferredSlots = append(fs.PreferredSlots, slot)
		}
	}
	if len(fs.PreferredSlots) == 0 {
		fs.PreferredSlots = []TimeSlot{TimeSlotAnytime}
	}

	var err error
	if p.EarliestStart != "" {
		if fs.EarliestStart, err = timeutil.ParseTime(p.EarliestStart); err != nil {
			return FlexibleSchedule{}, fmt.Errorf("earliest start: %w", err)
		}
	}
	if p.LatestEnd != "" {
		if fs.LatestEnd, err = timeutil.ParseTime(p.LatestEnd); err != nil {
			return FlexibleSchedule{}, fmt.Errorf("latest end: %w", err)
		}
	}
	if !fs.EarliestStart.Before(fs.LatestEnd) {
		return FlexibleSchedule{}, fmt.Errorf("%w: bounds %s-%s", ErrInvalidTimeRange, fs.EarliestStart, fs.LatestEnd)
	}

	// Suggestions come as a pair or not at all.
	if p.SuggestedStart != "" && p.SuggestedEnd != "" {
		s, err := timeutil.ParseTime(p.SuggestedStart)
		if err != nil {
			return FlexibleSchedule{}, fmt.Errorf("suggested start: %w", err)
		}
		e, err := timeutil.ParseTime(p.SuggestedEnd)
		if err != nil {
			return FlexibleSchedule{}, fmt.Errorf("suggested end: %w", err)
		}
		if !s.Before(e) {
			return FlexibleSchedule{}, fmt.Errorf("%w: suggestion %s-%s", ErrInvalidTimeRange, s, e)
		}
		fs.SuggestedStart, fs.SuggestedEnd = &s, &e
	}

	return fs, nil
}

func (FlexibleSchedule) Kind() ScheduleKind { return ScheduleFlexible }

func (f FlexibleSchedule) FullDuration() int64 {
	return timeutil.MinutesToSeconds(f.DurationMinutes)
}

func (FlexibleSchedule) schedule() {}

// TimelessSchedule is a plain todo. It never carries a timer.
type TimelessSchedule struct{}

func (TimelessSchedule) Kind() ScheduleKind { return ScheduleTimeless }

func (TimelessSchedule) FullDuration() int64 { return 0 }

func (TimelessSchedule) schedule() {}

// IsTimed reports whether tasks with this schedule carry a countdown timer.
func IsTimed(s Schedule) bool {
	return s != nil && s.Kind() != ScheduleTimeless
}

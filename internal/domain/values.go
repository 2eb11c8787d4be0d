package domain

import (
	"fmt"
	"strings"

	"github.com/rezkam/focusflow/internal/timeutil"
)

// Day is a local calendar day key in YYYY-MM-DD form. It scopes every task and
// the single running timer.
type Day string

// NewDay validates a day key.
func NewDay(s string) (Day, error) {
	if _, err := timeutil.ParseDay(s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return Day(s), nil
}

func (d Day) String() string {
	return string(d)
}

// Title is a validated title value object (1-255 characters).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	if len(s) > 255 {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// ManualStatus is a user override of the automatic completion rule.
// The zero value means no override.
type ManualStatus string

const (
	ManualStatusNone   ManualStatus = ""
	ManualStatusDone   ManualStatus = "done"
	ManualStatusMissed ManualStatus = "missed"
)

// NewManualStatus validates a manual status. The empty string clears the override.
func NewManualStatus(s string) (ManualStatus, error) {
	status := ManualStatus(strings.ToLower(strings.TrimSpace(s)))

	switch status {
	case ManualStatusNone, ManualStatusDone, ManualStatusMissed:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidManualStatus, s)
	}
}

// TimeSlot is a preferred part of the day for a flexible task.
type TimeSlot string

const (
	TimeSlotMorning   TimeSlot = "morning"
	TimeSlotAfternoon TimeSlot = "afternoon"
	TimeSlotEvening   TimeSlot = "evening"
	TimeSlotAnytime   TimeSlot = "anytime"
)

// NewTimeSlot validates and creates a TimeSlot.
func NewTimeSlot(s string) (TimeSlot, error) {
	slot := TimeSlot(strings.ToLower(s))

	switch slot {
	case TimeSlotMorning, TimeSlotAfternoon, TimeSlotEvening, TimeSlotAnytime:
		return slot, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTimeSlot, s)
	}
}

// Cosmetic defaults applied when a task is created without them.
const (
	DefaultIcon  = "📋"
	DefaultColor = "#3b82f6"
)

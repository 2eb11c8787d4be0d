// Package timeutil holds the wall-clock helpers shared by the timer store and the
// client countdown: "HH:MM" parsing, durations, remaining-time previews and display
// formatting. Everything here is pure; the current time is always passed in.
package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidFormat is returned when a time-of-day or day string is malformed.
var ErrInvalidFormat = errors.New("invalid time format")

// DayLayout is the layout of a local calendar day key (YYYY-MM-DD).
const DayLayout = "2006-01-02"

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// TimeOfDay is a wall-clock time without a date, e.g. 09:30.
type TimeOfDay struct {
	Hours   int
	Minutes int
}

// ParseTime parses an "HH:MM" string.
func ParseTime(s string) (TimeOfDay, error) {
	if !hhmm.MatchString(s) {
		return TimeOfDay{}, fmt.Errorf("%w: %q (expected HH:MM)", ErrInvalidFormat, s)
	}

	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q out of range", ErrInvalidFormat, s)
	}

	return TimeOfDay{Hours: h, Minutes: m}, nil
}

// MustParseTime is ParseTime for constants and tests. It panics on malformed input.
func MustParseTime(s string) TimeOfDay {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the zero-padded "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes)
}

// MinutesOfDay returns minutes since midnight.
func (t TimeOfDay) MinutesOfDay() int {
	return t.Hours*60 + t.Minutes
}

// Before reports whether t is strictly earlier than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.MinutesOfDay() < u.MinutesOfDay()
}

// On anchors the time of day to the calendar day of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	y, mo, d := ref.Date()
	return time.Date(y, mo, d, t.Hours, t.Minutes, 0, 0, ref.Location())
}

// CalculateDuration returns the length of the same-day window [start, end] in seconds.
// A window whose end is not after its start has no duration.
func CalculateDuration(start, end TimeOfDay) int64 {
	minutes := end.MinutesOfDay() - start.MinutesOfDay()
	return int64(max(0, minutes)) * 60
}

// CalculateRemainingTime returns how many seconds of the window are left at now.
// Before the window opens the full duration is left; after it closes nothing is.
func CalculateRemainingTime(now time.Time, start, end TimeOfDay) int64 {
	startAt := start.On(now)
	endAt := end.On(now)

	switch {
	case now.Before(startAt):
		return CalculateDuration(start, end)
	case now.After(endAt):
		return 0
	default:
		return int64(endAt.Sub(now) / time.Second)
	}
}

// IsActive reports whether now falls inside the window, bounds included.
func IsActive(now time.Time, start, end TimeOfDay) bool {
	return !now.Before(start.On(now)) && !now.After(end.On(now))
}

// FormatTime renders seconds as H:MM:SS when at least an hour is left, M:SS otherwise.
// Negative input renders as zero.
func FormatTime(seconds int64) string {
	seconds = max(0, seconds)
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60

	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// MinutesToSeconds converts minutes to seconds.
func MinutesToSeconds(minutes int) int64 {
	return int64(minutes) * 60
}

// SecondsToMinutes converts seconds to whole minutes, rounding down.
func SecondsToMinutes(seconds int64) int {
	return int(seconds / 60)
}

// DayKey returns the local calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseDay validates a YYYY-MM-DD day key.
func ParseDay(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DayLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q (expected YYYY-MM-DD)", ErrInvalidFormat, s)
	}
	return d, nil
}

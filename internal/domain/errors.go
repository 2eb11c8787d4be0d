package domain

import (
	"errors"

	"github.com/rezkam/focusflow/internal/timeutil"
)

// Domain errors returned by services and repository implementations.

var (
	// ErrInvalidFormat indicates a malformed "HH:MM" time or day key.
	// Aliases the timeutil sentinel so parsing errors match with errors.Is at any layer.
	ErrInvalidFormat = timeutil.ErrInvalidFormat

	// ErrInvalidDuration indicates a duration outside the accepted range.
	ErrInvalidDuration = errors.New("invalid duration")

	// ErrInvalidTimeRange indicates a start that is not strictly before its end.
	ErrInvalidTimeRange = errors.New("start must be before end")

	// ErrInvalidTimeSlot indicates an unknown preferred time slot.
	ErrInvalidTimeSlot = errors.New("invalid time slot")

	// ErrInvalidManualStatus indicates a manual status other than done or missed.
	ErrInvalidManualStatus = errors.New("invalid manual status")

	// ErrInvalidSchedule indicates an unknown or inconsistent schedule kind.
	ErrInvalidSchedule = errors.New("invalid schedule")

	ErrTitleRequired = errors.New("title is required")
	ErrTitleTooLong  = errors.New("title must be at most 255 characters")

	// ErrSubtaskTextRequired indicates an empty subtask text.
	ErrSubtaskTextRequired = errors.New("subtask text is required")

	// ErrInvalidDay indicates a day key that is not YYYY-MM-DD.
	ErrInvalidDay = errors.New("invalid day")

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrTaskNotFound indicates the task does not exist in the given scope.
	ErrTaskNotFound = errors.New("task not found")

	// ErrSubtaskNotFound indicates the subtask does not exist on the task.
	ErrSubtaskNotFound = errors.New("subtask not found")

	// ErrTaskNotTimed indicates a timer operation on a timeless task.
	ErrTaskNotTimed = errors.New("task has no timer")

	// ErrVersionConflict indicates the caller's etag no longer matches the stored version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrStoreUnavailable indicates the authoritative store could not be reached.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrBatchWriteFailed indicates a batched duration flush did not reach the store.
	// Pending values are kept and retried on the next flush.
	ErrBatchWriteFailed = errors.New("batch duration write failed")

	// ErrPromptRequired indicates an empty generator prompt.
	ErrPromptRequired = errors.New("prompt is required")

	// ErrGeneratorUnavailable indicates the schedule generator could not be reached
	// or returned an unusable response.
	ErrGeneratorUnavailable = errors.New("schedule generator unavailable")

	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidAPIKeyFormat = errors.New("invalid API key format")
)

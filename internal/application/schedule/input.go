package schedule

import (
	"fmt"

	"github.com/rezkam/focusflow/internal/domain"
)

// ScheduleInput is the raw, unvalidated placement of a task.
type ScheduleInput struct {
	Kind     domain.ScheduleKind
	Start    string // fixed only
	End      string // fixed only
	Flexible domain.FlexibleParams
}

// Build validates the input into one of the three schedule variants.
func (in ScheduleInput) Build() (domain.Schedule, error) {
	switch in.Kind {
	case domain.ScheduleFixed:
		return domain.NewFixedSchedule(in.Start, in.End)
	case domain.ScheduleFlexible:
		return domain.NewFlexibleSchedule(in.Flexible)
	case domain.ScheduleTimeless:
		return domain.TimelessSchedule{}, nil
	default:
		return nil, fmt.Errorf("%w: kind %q", domain.ErrInvalidSchedule, in.Kind)
	}
}

// TaskInput describes a task to create.
type TaskInput struct {
	Title    string
	Schedule ScheduleInput

	// RemainingDuration seeds the countdown instead of the full duration.
	RemainingDuration *int64

	ManualStatus string
	Icon         string
	Color        string
	Subtasks     []string
}

// UpdateTaskParams carries a partial task update. Nil fields are left unchanged.
type UpdateTaskParams struct {
	TaskID string

	// Etag for optimistic concurrency control. If provided and it doesn't match
	// the current version, the update fails with ErrVersionConflict.
	Etag *string

	Title    *string
	Schedule *ScheduleInput
	Icon     *string
	Color    *string
}

// UpdateSubtaskParams carries a partial subtask update.
type UpdateSubtaskParams struct {
	Text      *string
	Completed *bool
}

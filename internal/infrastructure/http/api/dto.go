// Package api holds the JSON wire types of the HTTP API and their mapping to
// domain types. Both the server handlers and the client use it.
package api

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// ScheduleDTO is the tagged schedule of a task. Fields not used by Kind are omitted.
type ScheduleDTO struct {
	Kind string `json:"kind"`

	// fixed
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// flexible
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	PreferredSlots  []string `json:"preferred_slots,omitempty"`
	EarliestStart   string   `json:"earliest_start,omitempty"`
	LatestEnd       string   `json:"latest_end,omitempty"`
	SuggestedStart  string   `json:"suggested_start,omitempty"`
	SuggestedEnd    string   `json:"suggested_end,omitempty"`
}

// TimerDTO is the countdown state of a timed task.
type TimerDTO struct {
	RemainingDuration int64      `json:"remaining_duration"`
	IsRunning         bool       `json:"is_running"`
	IsPaused          bool       `json:"is_paused"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	PausedAt          *time.Time `json:"paused_at,omitempty"`
	TotalElapsed      int64      `json:"total_elapsed"`
}

// SubtaskDTO is one checklist entry.
type SubtaskDTO struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskDTO is a task as returned by the API.
type TaskDTO struct {
	ID           string       `json:"id"`
	Day          string       `json:"day"`
	Title        string       `json:"title"`
	Schedule     ScheduleDTO  `json:"schedule"`
	Timer        *TimerDTO    `json:"timer,omitempty"`
	ManualStatus string       `json:"manual_status,omitempty"`
	Status       string       `json:"status"` // classified at response time
	Subtasks     []SubtaskDTO `json:"subtasks"`
	Icon         string       `json:"icon"`
	Color        string       `json:"color"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Etag         string       `json:"etag"`
}

// StatsDTO is the completion summary of a day.
type StatsDTO struct {
	Total          int   `json:"total"`
	Completed      int   `json:"completed"`
	Missed         int   `json:"missed"`
	Pending        int   `json:"pending"`
	Percentage     int   `json:"percentage"`
	FocusedSeconds int64 `json:"focused_seconds"`
}

// DurationUpdateDTO is one entry of a batch duration write.
type DurationUpdateDTO struct {
	TaskID            string `json:"task_id"`
	RemainingDuration int64  `json:"remaining_duration"`
}

// === Requests ===

// CreateTaskRequest creates one task.
type CreateTaskRequest struct {
	Title             string      `json:"title"`
	Schedule          ScheduleDTO `json:"schedule"`
	RemainingDuration *int64      `json:"remaining_duration,omitempty"`
	ManualStatus      string      `json:"manual_status,omitempty"`
	Icon              string      `json:"icon,omitempty"`
	Color             string      `json:"color,omitempty"`
	Subtasks          []string    `json:"subtasks,omitempty"`
}

// ReplaceDayRequest replaces every task of a day.
type ReplaceDayRequest struct {
	Tasks []CreateTaskRequest `json:"tasks"`
}

// UpdateTaskRequest is a partial update; absent fields are left unchanged.
// The etag may also be sent in If-Match.
type UpdateTaskRequest struct {
	Etag     *string      `json:"etag,omitempty"`
	Title    *string      `json:"title,omitempty"`
	Schedule *ScheduleDTO `json:"schedule,omitempty"`
	Icon     *string      `json:"icon,omitempty"`
	Color    *string      `json:"color,omitempty"`
}

// SetStatusRequest sets or, with an empty status, clears the manual status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// AddSubtaskRequest adds a subtask.
type AddSubtaskRequest struct {
	Text string `json:"text"`
}

// UpdateSubtaskRequest is a partial subtask update.
type UpdateSubtaskRequest struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// UpdateDurationRequest overwrites one task's remaining duration.
type UpdateDurationRequest struct {
	RemainingDuration int64 `json:"remaining_duration"`
}

// BatchDurationsRequest overwrites several remaining durations at once.
type BatchDurationsRequest struct {
	Updates []DurationUpdateDTO `json:"updates"`
}

// GenerateRequest asks the schedule generator for tasks.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// === Responses ===

// TaskResponse wraps a single task. Task is null when an operation had nothing to act on.
type TaskResponse struct {
	Task *TaskDTO `json:"task"`
}

// TaskListResponse wraps a list of tasks with the server time they were read at.
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	ServerTime time.Time `json:"server_time"`
}

// BatchDurationsResponse reports how many updates were applied.
type BatchDurationsResponse struct {
	Applied int `json:"applied"`
}

// === Mapping ===

// ScheduleToDTO maps a domain schedule.
func ScheduleToDTO(s domain.Schedule) ScheduleDTO {
	switch v := s.(type) {
	case domain.FixedSchedule:
		return ScheduleDTO{Kind: string(domain.ScheduleFixed), Start: v.Start.String(), End: v.End.String()}
	case domain.FlexibleSchedule:
		dto := ScheduleDTO{
			Kind:            string(domain.ScheduleFlexible),
			DurationMinutes: v.DurationMinutes,
			EarliestStart:   v.EarliestStart.String(),
			LatestEnd:       v.LatestEnd.String(),
		}
		for _, slot := range v.PreferredSlots {
			dto.PreferredSlots = append(dto.PreferredSlots, string(slot))
		}
		if v.SuggestedStart != nil && v.SuggestedEnd != nil {
			dto.SuggestedStart = v.SuggestedStart.String()
			dto.SuggestedEnd = v.SuggestedEnd.String()
		}
		return dto
	default:
		return ScheduleDTO{Kind: string(domain.ScheduleTimeless)}
	}
}

// Input converts the DTO into unvalidated schedule input.
func (d ScheduleDTO) Input() schedule.ScheduleInput {
	return schedule.ScheduleInput{
		Kind:  domain.ScheduleKind(d.Kind),
		Start: d.Start,
		End:   d.End,
		Flexible: domain.FlexibleParams{
			DurationMinutes: d.DurationMinutes,
			PreferredSlots:  d.PreferredSlots,
			EarliestStart:   d.EarliestStart,
			LatestEnd:       d.LatestEnd,
			SuggestedStart:  d.SuggestedStart,
			SuggestedEnd:    d.SuggestedEnd,
		},
	}
}

// Input converts the request into unvalidated task input.
func (r CreateTaskRequest) Input() schedule.TaskInput {
	return schedule.TaskInput{
		Title:             r.Title,
		Schedule:          r.Schedule.Input(),
		RemainingDuration: r.RemainingDuration,
		ManualStatus:      r.ManualStatus,
		Icon:              r.Icon,
		Color:             r.Color,
		Subtasks:          r.Subtasks,
	}
}

// TaskToDTO maps a domain task, classifying its status as of now.
func TaskToDTO(t *domain.Task, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:           t.ID,
		Day:          t.Date.String(),
		Title:        t.Title,
		Schedule:     ScheduleToDTO(t.Schedule),
		ManualStatus: string(t.ManualStatus),
		Status:       string(domain.ClassifyStatus(t, now)),
		Subtasks:     make([]SubtaskDTO, 0, len(t.Subtasks)),
		Icon:         t.Icon,
		Color:        t.Color,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Etag:         t.Etag(),
	}

	if t.Timer != nil {
		dto.Timer = &TimerDTO{
			RemainingDuration: t.Timer.RemainingDuration,
			IsRunning:         t.Timer.IsRunning,
			IsPaused:          t.Timer.IsPaused,
			StartedAt:         t.Timer.StartedAt,
			PausedAt:          t.Timer.PausedAt,
			TotalElapsed:      t.Timer.TotalElapsed,
		}
	}

	for _, st := range t.Subtasks {
		dto.Subtasks = append(dto.Subtasks, SubtaskDTO{
			ID:        st.ID,
			Text:      st.Text,
			Completed: st.Completed,
			CreatedAt: st.CreatedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}
	return dto
}

// TasksToDTO maps a list of tasks.
func TasksToDTO(tasks []*domain.Task, now time.Time) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, TaskToDTO(t, now))
	}
	return out
}

// TaskFromDTO rebuilds a domain task from its wire form.
func TaskFromDTO(dto TaskDTO) (*domain.Task, error) {
	sched, err := scheduleFromDTO(dto.Schedule)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", dto.ID, err)
	}

	version, _ := strconv.Atoi(dto.Etag)

	t := &domain.Task{
		ID:           dto.ID,
		Date:         domain.Day(dto.Day),
		Title:        dto.Title,
		Schedule:     sched,
		ManualStatus: domain.ManualStatus(dto.ManualStatus),
		Icon:         dto.Icon,
		Color:        dto.Color,
		CreatedAt:    dto.CreatedAt,
		UpdatedAt:    dto.UpdatedAt,
		Version:      version,
	}

	if dto.Timer != nil && domain.IsTimed(sched) {
		t.Timer = &domain.Timer{
			RemainingDuration: dto.Timer.RemainingDuration,
			SegmentRemaining:  dto.Timer.RemainingDuration,
			IsRunning:         dto.Timer.IsRunning,
			IsPaused:          dto.Timer.IsPaused,
			StartedAt:         dto.Timer.StartedAt,
			PausedAt:          dto.Timer.PausedAt,
			TotalElapsed:      dto.Timer.TotalElapsed,
		}
	} else if domain.IsTimed(sched) {
		t.Timer = domain.NewTimer(sched.FullDuration())
	}

	for _, st := range dto.Subtasks {
		t.Subtasks = append(t.Subtasks, domain.Subtask{
			ID:        st.ID,
			Text:      st.Text,
			Completed: st.Completed,
			CreatedAt: st.CreatedAt,
			UpdatedAt: st.UpdatedAt,
		})
	}
	return t, nil
}

// scheduleFromDTO trusts the server's values and only parses clock strings.
func scheduleFromDTO(d ScheduleDTO) (domain.Schedule, error) {
	switch domain.ScheduleKind(d.Kind) {
	case domain.ScheduleFixed:
		return domain.NewFixedSchedule(d.Start, d.End)
	case domain.ScheduleFlexible:
		fs := domain.FlexibleSchedule{DurationMinutes: d.DurationMinutes}
		for _, s := range d.PreferredSlots {
			fs.PreferredSlots = append(fs.PreferredSlots, domain.TimeSlot(s))
		}
		var err error
		if fs.EarliestStart, err = timeutil.ParseTime(d.EarliestStart); err != nil {
			return nil, err
		}
		if fs.LatestEnd, err = timeutil.ParseTime(d.LatestEnd); err != nil {
			return nil, err
		}
		if d.SuggestedStart != "" && d.SuggestedEnd != "" {
			s, err := timeutil.ParseTime(d.SuggestedStart)
			if err != nil {
				return nil, err
			}
			e, err := timeutil.ParseTime(d.SuggestedEnd)
			if err != nil {
				return nil, err
			}
			fs.SuggestedStart, fs.SuggestedEnd = &s, &e
		}
		return fs, nil
	case domain.ScheduleTimeless:
		return domain.TimelessSchedule{}, nil
	default:
		return nil, fmt.Errorf("%w: kind %q", domain.ErrInvalidSchedule, d.Kind)
	}
}

// StatsToDTO maps day statistics.
func StatsToDTO(s domain.Stats) StatsDTO {
	return StatsDTO{
		Total:          s.Total,
		Completed:      s.Completed,
		Missed:         s.Missed,
		Pending:        s.Pending,
		Percentage:     s.Percentage,
		FocusedSeconds: s.Focused,
	}
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Generator turns a natural-language request into task descriptors. Existing tasks
// are passed so the generator can avoid conflicts.
type Generator interface {
	Generate(ctx context.Context, prompt string, existing []*domain.Task) ([]Descriptor, error)
}

// Descriptor is an untrusted task suggestion as produced by a generator.
type Descriptor struct {
	Title          string
	Start          string
	End            string
	IsFlexible     bool
	Duration       int // minutes
	PreferredSlots []string
	EarliestStart  string
	LatestEnd      string
	IsTimeless     bool
}

// Generated task limits.
const (
	MaxGeneratedTitle = 38
	MaxGeneratedSlots = 3
)

// Fallback flexible bounds for generated tasks.
const (
	generatedEarliest = "06:00"
	generatedLatest   = "22:00"
)

// Sanitize converts descriptors into task inputs, dropping entries that cannot be
// made valid. Titles are cut to MaxGeneratedTitle characters and flexible durations
// below the minimum are raised to it.
func Sanitize(descs []Descriptor) []TaskInput {
	inputs := make([]TaskInput, 0, len(descs))

	for _, d := range descs {
		in := TaskInput{Title: generatedTitle(d.Title)}

		switch {
		case d.IsTimeless:
			in.Schedule = ScheduleInput{Kind: domain.ScheduleTimeless}

		case d.IsFlexible:
			if d.Duration <= 0 || d.Duration > domain.MaxFlexibleMinutes {
				continue
			}
			in.Schedule = ScheduleInput{
				Kind: domain.ScheduleFlexible,
				Flexible: domain.FlexibleParams{
					DurationMinutes: max(d.Duration, domain.MinFlexibleMinutes),
					PreferredSlots:  generatedSlots(d.PreferredSlots),
					EarliestStart:   validTimeOr(d.EarliestStart, generatedEarliest),
					LatestEnd:       validTimeOr(d.LatestEnd, generatedLatest),
				},
			}

		default:
			if !isTime(d.Start) || !isTime(d.End) {
				continue
			}
			in.Schedule = ScheduleInput{Kind: domain.ScheduleFixed, Start: d.Start, End: d.End}
		}

		if _, err := in.Schedule.Build(); err != nil {
			continue
		}
		inputs = append(inputs, in)
	}

	return inputs
}

// Generate asks the generator for tasks and adds the valid ones to the day.
func (s *Service) Generate(ctx context.Context, userID string, day domain.Day, prompt string) ([]*domain.Task, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrPromptRequired
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: no generator configured", domain.ErrGeneratorUnavailable)
	}

	existing, err := s.repo.ListTasks(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	descs, err := s.generator.Generate(ctx, prompt, existing)
	if err != nil {
		if errors.Is(err, domain.ErrGeneratorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGeneratorUnavailable, err)
	}

	inputs := Sanitize(descs)
	tasks := make([]*domain.Task, 0, len(inputs))
	for _, in := range inputs {
		task, err := s.newTask(userID, day, in)
		if err != nil {
			if isValidation(err) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if len(tasks) > 0 {
		err = s.repo.AtomicSchedule(ctx, userID, day, func(ctx context.Context, scope Scope) error {
			for _, t := range tasks {
				if err := scope.InsertTask(ctx, t); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store generated tasks: %w", err)
		}
	}

	slog.InfoContext(ctx, "Generated tasks added",
		slog.String("user_id", userID),
		slog.String("day", day.String()),
		slog.Int("suggested", len(descs)),
		slog.Int("added", len(tasks)))

	sortTasks(tasks)
	return tasks, nil
}

func generatedTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Untitled"
	}
	if r := []rune(title); len(r) > MaxGeneratedTitle {
		return strings.TrimSpace(string(r[:MaxGeneratedTitle]))
	}
	return title
}

func generatedSlots(raw []string) []string {
	var slots []string
	for _, s := range raw {
		if len(slots) == MaxGeneratedSlots {
			break
		}
		if slot, err := domain.NewTimeSlot(s); err == nil {
			slots = append(slots, string(slot))
		}
	}
	return slots
}

func isTime(s string) bool {
	_, err := timeutil.ParseTime(s)
	return err == nil
}

func validTimeOr(s, fallback string) string {
	if isTime(s) {
		return s
	}
	return fallback
}

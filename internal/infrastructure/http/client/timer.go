package client

import (
	"context"
	"net/http"

	"github.com/rezkam/focusflow/internal/application/countdown"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
)

// Day is the client bound to one day.
type Day struct {
	c   *Client
	day domain.Day
}

var _ countdown.Store = (*Day)(nil)

// Day binds the client to day.
func (c *Client) Day(day domain.Day) *Day {
	return &Day{c: c, day: day}
}

// Key returns the bound day.
func (d *Day) Key() domain.Day {
	return d.day
}

func (d *Day) control(ctx context.Context, taskID, op string) (*domain.Task, error) {
	var resp api.TaskResponse
	if err := d.c.do(ctx, http.MethodPost, taskPath(d.day, taskID)+"/timer/"+op, nil, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

// StartTimer implements countdown.Store.
func (d *Day) StartTimer(ctx context.Context, taskID string) (*domain.Task, error) {
	return d.control(ctx, taskID, "start")
}

// StopTimer implements countdown.Store.
func (d *Day) StopTimer(ctx context.Context, taskID string) (*domain.Task, error) {
	return d.control(ctx, taskID, "stop")
}

// PauseTimer implements countdown.Store.
func (d *Day) PauseTimer(ctx context.Context, taskID string) (*domain.Task, error) {
	return d.control(ctx, taskID, "pause")
}

// ResumeTimer implements countdown.Store.
func (d *Day) ResumeTimer(ctx context.Context, taskID string) (*domain.Task, error) {
	return d.control(ctx, taskID, "resume")
}

// UpdateTimerDuration overwrites one task's remaining duration.
func (d *Day) UpdateTimerDuration(ctx context.Context, taskID string, remaining int64) (*domain.Task, error) {
	var resp api.TaskResponse
	req := api.UpdateDurationRequest{RemainingDuration: remaining}
	if err := d.c.do(ctx, http.MethodPut, taskPath(d.day, taskID)+"/timer/duration", req, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

// BatchUpdateDurations implements countdown.Store.
func (d *Day) BatchUpdateDurations(ctx context.Context, updates []domain.DurationUpdate) error {
	req := api.BatchDurationsRequest{Updates: make([]api.DurationUpdateDTO, len(updates))}
	for i, u := range updates {
		req.Updates[i] = api.DurationUpdateDTO{TaskID: u.TaskID, RemainingDuration: u.RemainingDuration}
	}
	return d.c.do(ctx, http.MethodPost, dayPath(d.day)+"/timer/durations", req, &api.BatchDurationsResponse{})
}

// GetRunningTimer implements countdown.Store.
func (d *Day) GetRunningTimer(ctx context.Context) (*domain.Task, error) {
	var resp api.TaskResponse
	if err := d.c.do(ctx, http.MethodGet, dayPath(d.day)+"/timer/running", nil, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
)

// ListTasks returns the day's tasks and the server time they were read at.
func (c *Client) ListTasks(ctx context.Context, day domain.Day) ([]*domain.Task, time.Time, error) {
	var resp api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, dayPath(day)+"/tasks", nil, &resp); err != nil {
		return nil, time.Time{}, err
	}
	tasks, err := decodeTasks(resp.Tasks)
	return tasks, resp.ServerTime, err
}

// ListTasksSince returns the tasks updated after since. Deletions are not reported.
func (c *Client) ListTasksSince(ctx context.Context, day domain.Day, since time.Time) ([]*domain.Task, time.Time, error) {
	q := url.Values{"since": {since.UTC().Format(time.RFC3339Nano)}}

	var resp api.TaskListResponse
	if err := c.do(ctx, http.MethodGet, dayPath(day)+"/tasks?"+q.Encode(), nil, &resp); err != nil {
		return nil, time.Time{}, err
	}
	tasks, err := decodeTasks(resp.Tasks)
	return tasks, resp.ServerTime, err
}

// CreateTask adds a task to the day.
func (c *Client) CreateTask(ctx context.Context, day domain.Day, req api.CreateTaskRequest) (*domain.Task, error) {
	var resp api.TaskResponse
	if err := c.do(ctx, http.MethodPost, dayPath(day)+"/tasks", req, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, day domain.Day, taskID string) error {
	return c.do(ctx, http.MethodDelete, taskPath(day, taskID), nil, nil)
}

// SetManualStatus sets done or missed; an empty status clears the override.
func (c *Client) SetManualStatus(ctx context.Context, day domain.Day, taskID, status string) (*domain.Task, error) {
	var resp api.TaskResponse
	if err := c.do(ctx, http.MethodPut, taskPath(day, taskID)+"/status", api.SetStatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

// ToggleSubtask flips a subtask's completion.
func (c *Client) ToggleSubtask(ctx context.Context, day domain.Day, taskID, subtaskID string) (*domain.Task, error) {
	var resp api.TaskResponse
	path := taskPath(day, taskID) + "/subtasks/" + url.PathEscape(subtaskID) + "/toggle"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return nil, err
	}
	return decodeTask(resp)
}

// Stats returns the day's completion summary.
func (c *Client) Stats(ctx context.Context, day domain.Day) (api.StatsDTO, error) {
	var stats api.StatsDTO
	err := c.do(ctx, http.MethodGet, dayPath(day)+"/stats", nil, &stats)
	return stats, err
}

package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

// ListTasks returns the day's tasks in display order. With ?since=<RFC3339> only
// tasks updated after that instant are returned.
// GET /v1/days/{day}/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var (
		tasks []*domain.Task
		err   error
	)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, perr := time.Parse(time.RFC3339Nano, raw)
		if perr != nil {
			response.ValidationError(w, "since", "expected RFC 3339 timestamp")
			return
		}
		tasks, err = h.schedule.ListTasksSince(r.Context(), userID, day, since)
	} else {
		tasks, err = h.schedule.ListTasks(r.Context(), userID, day)
	}
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	now := h.clock.Now()
	response.OK(w, api.TaskListResponse{
		Tasks:      api.TasksToDTO(tasks, now),
		ServerTime: now.UTC(),
	})
}

// GetTask returns one task.
// GET /v1/days/{day}/tasks/{taskID}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	task, err := h.schedule.GetTask(r.Context(), userID, day, chi.URLParam(r, "taskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// CreateTask adds a task to the day.
// POST /v1/days/{day}/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.CreateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.schedule.CreateTask(r.Context(), userID, day, req.Input())
	if err != nil {
		slog.InfoContext(r.Context(), "failed to create task via HTTP",
			"day", day.String(),
			"title", req.Title,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "task created via HTTP",
		"task_id", task.ID,
		"day", day.String())

	dto := api.TaskToDTO(task, h.clock.Now())
	response.Created(w, api.TaskResponse{Task: &dto})
}

// ReplaceDay replaces the whole schedule of the day.
// PUT /v1/days/{day}/tasks
func (h *Handler) ReplaceDay(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.ReplaceDayRequest
	if !decode(w, r, &req) {
		return
	}

	inputs := make([]schedule.TaskInput, len(req.Tasks))
	for i, t := range req.Tasks {
		inputs[i] = t.Input()
	}

	tasks, err := h.schedule.ReplaceDay(r.Context(), userID, day, inputs)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	now := h.clock.Now()
	response.OK(w, api.TaskListResponse{
		Tasks:      api.TasksToDTO(tasks, now),
		ServerTime: now.UTC(),
	})
}

// UpdateTask applies a partial update. The etag comes from If-Match or the body.
// PATCH /v1/days/{day}/tasks/{taskID}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.UpdateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	params := schedule.UpdateTaskParams{
		TaskID: chi.URLParam(r, "taskID"),
		Etag:   req.Etag,
		Title:  req.Title,
		Icon:   req.Icon,
		Color:  req.Color,
	}
	if ifMatch := strings.TrimSpace(r.Header.Get("If-Match")); ifMatch != "" {
		params.Etag = &ifMatch
	}
	if req.Schedule != nil {
		in := req.Schedule.Input()
		params.Schedule = &in
	}

	task, err := h.schedule.UpdateTask(r.Context(), userID, day, params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// DeleteTask removes a task and its subtasks.
// DELETE /v1/days/{day}/tasks/{taskID}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.schedule.DeleteTask(r.Context(), userID, day, chi.URLParam(r, "taskID")); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.NoContent(w)
}

// SetManualStatus sets or clears the manual done/missed override.
// PUT /v1/days/{day}/tasks/{taskID}/status
func (h *Handler) SetManualStatus(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.SetStatusRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.schedule.SetManualStatus(r.Context(), userID, day, chi.URLParam(r, "taskID"), req.Status)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// Stats summarizes completion for the day.
// GET /v1/days/{day}/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	stats, err := h.schedule.Stats(r.Context(), userID, day)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, api.StatsToDTO(stats))
}

// Generate asks the schedule generator for tasks and adds the valid ones.
// POST /v1/days/{day}/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.GenerateRequest
	if !decode(w, r, &req) {
		return
	}

	tasks, err := h.schedule.Generate(r.Context(), userID, day, req.Prompt)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	now := h.clock.Now()
	response.Created(w, api.TaskListResponse{
		Tasks:      api.TasksToDTO(tasks, now),
		ServerTime: now.UTC(),
	})
}

// writeTask sends a task with its etag header, or a null task.
func (h *Handler) writeTask(w http.ResponseWriter, task *domain.Task) {
	if task == nil {
		response.OK(w, api.TaskResponse{})
		return
	}

	dto := api.TaskToDTO(task, h.clock.Now())
	w.Header().Set("ETag", `"`+dto.Etag+`"`)
	response.OK(w, api.TaskResponse{Task: &dto})
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

// AddSubtask appends a subtask.
// POST /v1/days/{day}/tasks/{taskID}/subtasks
func (h *Handler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.AddSubtaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.schedule.AddSubtask(r.Context(), userID, day, chi.URLParam(r, "taskID"), req.Text)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	dto := api.TaskToDTO(task, h.clock.Now())
	response.Created(w, api.TaskResponse{Task: &dto})
}

// UpdateSubtask edits a subtask's text or completion.
// PATCH /v1/days/{day}/tasks/{taskID}/subtasks/{subtaskID}
func (h *Handler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.UpdateSubtaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := h.schedule.UpdateSubtask(r.Context(), userID, day,
		chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"),
		schedule.UpdateSubtaskParams{Text: req.Text, Completed: req.Completed})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// ToggleSubtask flips a subtask's completion.
// POST /v1/days/{day}/tasks/{taskID}/subtasks/{subtaskID}/toggle
func (h *Handler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	task, err := h.schedule.ToggleSubtask(r.Context(), userID, day, chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// DeleteSubtask removes a subtask.
// DELETE /v1/days/{day}/tasks/{taskID}/subtasks/{subtaskID}
func (h *Handler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	task, err := h.schedule.DeleteSubtask(r.Context(), userID, day, chi.URLParam(r, "taskID"), chi.URLParam(r, "subtaskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

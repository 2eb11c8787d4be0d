package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/api"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

type timerOp func(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error)

// timerControl runs one timer transition. Transitions with nothing to act on
// answer 200 with a null task.
func (h *Handler) timerControl(w http.ResponseWriter, r *http.Request, op timerOp) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	task, err := op(r.Context(), userID, day, chi.URLParam(r, "taskID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

// StartTimer makes the task the single running task of its day.
// POST /v1/days/{day}/tasks/{taskID}/timer/start
func (h *Handler) StartTimer(w http.ResponseWriter, r *http.Request) {
	h.timerControl(w, r, h.timers.StartTimer)
}

// StopTimer folds and clears the running state.
// POST /v1/days/{day}/tasks/{taskID}/timer/stop
func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	h.timerControl(w, r, h.timers.StopTimer)
}

// PauseTimer freezes the running task's accounting.
// POST /v1/days/{day}/tasks/{taskID}/timer/pause
func (h *Handler) PauseTimer(w http.ResponseWriter, r *http.Request) {
	h.timerControl(w, r, h.timers.PauseTimer)
}

// ResumeTimer continues a paused task.
// POST /v1/days/{day}/tasks/{taskID}/timer/resume
func (h *Handler) ResumeTimer(w http.ResponseWriter, r *http.Request) {
	h.timerControl(w, r, h.timers.ResumeTimer)
}

// UpdateTimerDuration overwrites one task's remaining duration.
// PUT /v1/days/{day}/tasks/{taskID}/timer/duration
func (h *Handler) UpdateTimerDuration(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateDurationRequest
	if !decode(w, r, &req) {
		return
	}

	h.timerControl(w, r, func(ctx context.Context, userID string, day domain.Day, taskID string) (*domain.Task, error) {
		return h.timers.UpdateTimerDuration(ctx, userID, day, taskID, req.RemainingDuration)
	})
}

// BatchUpdateDurations writes several remaining durations in one transaction.
// POST /v1/days/{day}/timer/durations
func (h *Handler) BatchUpdateDurations(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req api.BatchDurationsRequest
	if !decode(w, r, &req) {
		return
	}

	updates := make([]domain.DurationUpdate, len(req.Updates))
	for i, u := range req.Updates {
		updates[i] = domain.DurationUpdate{TaskID: u.TaskID, RemainingDuration: u.RemainingDuration}
	}

	applied, err := h.timers.BatchUpdateDurations(r.Context(), userID, day, updates)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, api.BatchDurationsResponse{Applied: applied})
}

// GetRunningTimer returns the running task with its remaining duration
// projected to now, or a null task.
// GET /v1/days/{day}/timer/running
func (h *Handler) GetRunningTimer(w http.ResponseWriter, r *http.Request) {
	userID, day, ok := h.scope(w, r)
	if !ok {
		return
	}

	task, err := h.timers.GetRunningTimer(r.Context(), userID, day)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	h.writeTask(w, task)
}

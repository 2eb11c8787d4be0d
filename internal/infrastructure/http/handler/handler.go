package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/domain"
	mw "github.com/rezkam/focusflow/internal/infrastructure/http/middleware"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// DefaultHeartbeat is how often an idle event stream sends a keep-alive comment.
const DefaultHeartbeat = 25 * time.Second

// Config holds configuration for the Handler.
type Config struct {
	Clock     timeutil.Clock
	Heartbeat time.Duration
}

// Handler adapts HTTP requests to the schedule and timer services.
type Handler struct {
	schedule  *schedule.Service
	timers    *timer.Service
	clock     timeutil.Clock
	heartbeat time.Duration
}

// NewHandler creates a new HTTP API handler.
func NewHandler(scheduleService *schedule.Service, timerService *timer.Service, config Config) *Handler {
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = DefaultHeartbeat
	}

	return &Handler{
		schedule:  scheduleService,
		timers:    timerService,
		clock:     config.Clock,
		heartbeat: config.Heartbeat,
	}
}

// NewRouter mounts every API route on a chi router. The caller is expected to
// authenticate and put the user id into the request context.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.RequireUser)

	r.Route("/v1/days/{day}", func(r chi.Router) {
		r.Get("/tasks", h.ListTasks)
		r.Post("/tasks", h.CreateTask)
		r.Put("/tasks", h.ReplaceDay)

		r.Route("/tasks/{taskID}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Patch("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Put("/status", h.SetManualStatus)

			r.Post("/subtasks", h.AddSubtask)
			r.Patch("/subtasks/{subtaskID}", h.UpdateSubtask)
			r.Post("/subtasks/{subtaskID}/toggle", h.ToggleSubtask)
			r.Delete("/subtasks/{subtaskID}", h.DeleteSubtask)

			r.Post("/timer/start", h.StartTimer)
			r.Post("/timer/stop", h.StopTimer)
			r.Post("/timer/pause", h.PauseTimer)
			r.Post("/timer/resume", h.ResumeTimer)
			r.Put("/timer/duration", h.UpdateTimerDuration)
		})

		r.Post("/timer/durations", h.BatchUpdateDurations)
		r.Get("/timer/running", h.GetRunningTimer)
		r.Get("/timer/events", h.TimerEvents)

		r.Get("/stats", h.Stats)
		r.Post("/generate", h.Generate)
	})

	return r
}

// scope extracts the authenticated user and the validated day of the request.
// On failure the error response has already been written.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (string, domain.Day, bool) {
	userID, ok := mw.UserIDFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "missing user")
		return "", "", false
	}

	day, err := domain.NewDay(chi.URLParam(r, "day"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return "", "", false
	}
	return userID, day, true
}

// decode reads a JSON body into v, writing 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid JSON")
		return false
	}
	return true
}

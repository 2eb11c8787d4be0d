package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/focusflow/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details,omitempty"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error codes shared with API clients.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeConflict             = "CONFLICT"
	CodeUnavailable          = "UNAVAILABLE"
	CodeGeneratorUnavailable = "GENERATOR_UNAVAILABLE"
	CodeInternal             = "INTERNAL_ERROR"
)

// BadRequest sends a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, CodeInvalidRequest, message, http.StatusBadRequest)
}

// ValidationError sends a 400 validation error with field details.
func ValidationError(w http.ResponseWriter, field, issue string) {
	write(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    CodeValidation,
			Message: "validation failed",
			Details: []ErrorField{{Field: field, Issue: issue}},
		},
	})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, CodeNotFound, resource+" not found", http.StatusNotFound)
}

// Unauthorized sends a 401 Unauthorized error.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, CodeUnauthorized, message, http.StatusUnauthorized)
}

// Conflict sends a 409 Conflict error.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, CodeConflict, message, http.StatusConflict)
}

// Unavailable sends a 503 Service Unavailable error with a retry hint.
func Unavailable(w http.ResponseWriter, r *http.Request, err error) {
	slog.WarnContext(r.Context(), "Store unavailable", "error", err)
	w.Header().Set("Retry-After", "5")
	Error(w, CodeUnavailable, "service temporarily unavailable", http.StatusServiceUnavailable)
}

// InternalError sends a 500 Internal Server Error.
// The error is logged server-side; the client gets a generic message.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "Internal server error", "error", err)
	}
	Error(w, CodeInternal, "an internal error occurred", http.StatusInternalServerError)
}

// Error sends a generic error response.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	write(w, statusCode, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// validationFields maps validation sentinels to the request field they concern.
var validationFields = []struct {
	err   error
	field string
	issue string
}{
	{domain.ErrTitleRequired, "title", "required field missing"},
	{domain.ErrTitleTooLong, "title", "must be 255 characters or less"},
	{domain.ErrInvalidFormat, "time", "expected HH:MM"},
	{domain.ErrInvalidDuration, "duration_minutes", "must be between 15 and 240"},
	{domain.ErrInvalidTimeRange, "schedule", "start must be before end"},
	{domain.ErrInvalidTimeSlot, "preferred_slots", "must be morning, afternoon, evening or anytime"},
	{domain.ErrInvalidSchedule, "schedule", "invalid schedule"},
	{domain.ErrInvalidManualStatus, "status", "must be done, missed or empty"},
	{domain.ErrSubtaskTextRequired, "text", "required field missing"},
	{domain.ErrInvalidDay, "day", "expected YYYY-MM-DD"},
	{domain.ErrInvalidID, "id", "invalid ID format"},
	{domain.ErrPromptRequired, "prompt", "required field missing"},
	{domain.ErrTaskNotTimed, "task_id", "task has no timer"},
}

// FromDomainError maps domain errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, v := range validationFields {
		if errors.Is(err, v.err) {
			ValidationError(w, v.field, v.issue)
			return
		}
	}

	switch {
	case errors.Is(err, domain.ErrSubtaskNotFound):
		NotFound(w, "subtask")
	case errors.Is(err, domain.ErrTaskNotFound):
		NotFound(w, "task")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource")

	case errors.Is(err, domain.ErrUnauthorized):
		Unauthorized(w, "invalid or missing API key")

	case errors.Is(err, domain.ErrVersionConflict):
		Conflict(w, err.Error())

	case errors.Is(err, domain.ErrStoreUnavailable):
		Unavailable(w, r, err)
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		slog.WarnContext(r.Context(), "Schedule generator failed", "error", err)
		Error(w, CodeGeneratorUnavailable, "schedule generator unavailable", http.StatusBadGateway)

	default:
		InternalError(w, r, err)
	}
}

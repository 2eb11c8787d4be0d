package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/http/response"
)

// unencodable fails during JSON encoding.
type unencodable struct{}

func (unencodable) MarshalJSON() ([]byte, error) {
	return nil, errors.New("cannot encode")
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp response.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestOK_EncodingFailureReturns500(t *testing.T) {
	for name, send := range map[string]func(http.ResponseWriter, any){
		"ok":      response.OK,
		"created": response.Created,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			send(w, unencodable{})

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, response.CodeInternal, resp.Error.Code)
			assert.Equal(t, "failed to encode response", resp.Error.Message)
		})
	}
}

func TestCreated_WritesBody(t *testing.T) {
	w := httptest.NewRecorder()
	response.Created(w, map[string]string{"id": "new-task"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "new-task", got["id"])
}

func TestFromDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"title", domain.ErrTitleRequired, http.StatusBadRequest, response.CodeValidation, "title"},
		{"wrapped time format", fmt.Errorf("start: %w", domain.ErrInvalidFormat), http.StatusBadRequest, response.CodeValidation, "time"},
		{"overnight window", domain.ErrInvalidTimeRange, http.StatusBadRequest, response.CodeValidation, "schedule"},
		{"duration", domain.ErrInvalidDuration, http.StatusBadRequest, response.CodeValidation, "duration_minutes"},
		{"timeless timer", domain.ErrTaskNotTimed, http.StatusBadRequest, response.CodeValidation, "task_id"},
		{"day", domain.ErrInvalidDay, http.StatusBadRequest, response.CodeValidation, "day"},
		{"task missing", fmt.Errorf("%w: abc", domain.ErrTaskNotFound), http.StatusNotFound, response.CodeNotFound, ""},
		{"subtask missing", domain.ErrSubtaskNotFound, http.StatusNotFound, response.CodeNotFound, ""},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, response.CodeUnauthorized, ""},
		{"stale etag", domain.ErrVersionConflict, http.StatusConflict, response.CodeConflict, ""},
		{"store down", fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, response.CodeUnavailable, ""},
		{"generator", domain.ErrGeneratorUnavailable, http.StatusBadGateway, response.CodeGeneratorUnavailable, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.CodeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			response.FromDomainError(w, r, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error.Code)
			if tt.field != "" {
				require.Len(t, resp.Error.Details, 1)
				assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			}
		})
	}
}

func TestFromDomainError_InternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	response.FromDomainError(w, r, errors.New("pq: password authentication failed for user admin"))

	resp := decodeError(t, w)
	assert.Equal(t, "an internal error occurred", resp.Error.Message)
}

func TestUnavailable_SetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	response.Unavailable(w, r, domain.ErrStoreUnavailable)

	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

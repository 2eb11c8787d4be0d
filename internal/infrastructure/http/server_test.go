package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/application/auth"
	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/infrastructure/http/handler"
	"github.com/rezkam/focusflow/internal/infrastructure/persistence/memory"
)

func newTestServer(t *testing.T, cfg ServerConfig) (*APIServer, string) {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	key, err := auth.CreateAPIKey(ctx, store, auth.CreateKeyParams{
		UserID:  "user-1",
		KeyType: "sk",
		Service: "focus",
		Version: "v1",
		Name:    "test",
	})
	require.NoError(t, err)

	authenticator := auth.NewAuthenticator(ctx, store, auth.Config{OperationTimeout: time.Second})
	t.Cleanup(func() { _ = authenticator.Shutdown(context.Background()) })

	timers := timer.NewService(store, nil, timer.Config{})
	svc := schedule.NewService(store, timers, nil, schedule.Config{})
	api := handler.NewRouter(handler.NewHandler(svc, timers, handler.Config{}))

	return NewAPIServer(api, authenticator, cfg), key
}

func TestAPIServer_Routes(t *testing.T) {
	srv, key := newTestServer(t, ServerConfig{Tracing: true})

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		status int
	}{
		{"health is open", http.MethodGet, "/health", "", "", http.StatusOK},
		{"api requires a key", http.MethodGet, "/api/v1/days/2026-03-14/tasks", "", "", http.StatusUnauthorized},
		{"api with key", http.MethodGet, "/api/v1/days/2026-03-14/tasks", "Bearer " + key, "", http.StatusOK},
		{"create with key", http.MethodPost, "/api/v1/days/2026-03-14/tasks", "Bearer " + key,
			`{"title":"Deep work","schedule":{"kind":"fixed","start":"09:00","end":"10:00"}}`, http.StatusCreated},
		{"unknown route", http.MethodGet, "/api/v2/nothing", "Bearer " + key, "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAPIServer_BodyLimit(t *testing.T) {
	srv, key := newTestServer(t, ServerConfig{MaxBodyBytes: 64})

	body := `{"title":"` + strings.Repeat("x", 200) + `","schedule":{"kind":"timeless"}}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/days/2026-03-14/tasks", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+key)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestServerConfig_ApplyDefaults(t *testing.T) {
	t.Run("zero config", func(t *testing.T) {
		cfg := ServerConfig{}
		cfg.applyDefaults()

		assert.Equal(t, DefaultPort, cfg.Port)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
		assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
		assert.Equal(t, DefaultIdleTimeout, cfg.IdleTimeout)
		assert.Equal(t, DefaultReadHeaderTimeout, cfg.ReadHeaderTimeout)
		assert.Equal(t, DefaultMaxHeaderBytes, cfg.MaxHeaderBytes)
		assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	})

	t.Run("keeps set values", func(t *testing.T) {
		cfg := ServerConfig{Host: "127.0.0.1", Port: "9000", MaxBodyBytes: 4096}
		cfg.applyDefaults()

		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, int64(4096), cfg.MaxBodyBytes)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	})

	t.Run("listen address", func(t *testing.T) {
		srv := NewAPIServer(http.NotFoundHandler(), nil, ServerConfig{Host: "127.0.0.1", Port: "9000"})
		assert.Equal(t, "127.0.0.1:9000", srv.Addr())
	})
}

package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfig(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	t.Setenv("FOCUS_DB_DSN", "postgres://focus:secret@db:5432/focus")
	t.Setenv("FOCUS_DB_MAX_OPEN_CONNS", "50")
	t.Setenv("FOCUS_HTTP_PORT", "9000")
	t.Setenv("FOCUS_HTTP_WRITE_TIMEOUT", "30s")
	t.Setenv("FOCUS_RESET_AT", "03:30")
	t.Setenv("FOCUS_GEMINI_API_KEY", "g-key")
	t.Setenv("FOCUS_OTEL_ENABLED", "true")
	t.Setenv("FOCUS_LOG_LEVEL", "debug")
	t.Setenv("FOCUS_SHUTDOWN_TIMEOUT", "20s")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://focus:secret@db:5432/focus", cfg.Database.DSN)
	assert.False(t, cfg.Database.InMemory())
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, "9000", cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, "03:30", cfg.Reset.At)
	assert.Equal(t, "g-key", cfg.Generator.APIKey)
	assert.True(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.Level())
	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeout)
}

func TestLoadServerConfig_ZeroValues(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadServerConfig()
	require.NoError(t, err)

	// Defaults belong to the consuming layers.
	assert.True(t, cfg.Database.InMemory())
	assert.Empty(t, cfg.HTTP.Port)
	assert.Zero(t, cfg.ShutdownTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.Observability.Level())
}

func TestLoadServerConfig_InvalidResetTime(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FOCUS_RESET_AT", "25:00")

	_, err := LoadServerConfig()
	assert.Error(t, err)
}

func TestLoadServerConfig_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FOCUS_HTTP_READ_TIMEOUT", "soon")

	_, err := LoadServerConfig()
	assert.ErrorContains(t, err, "FOCUS_HTTP_READ_TIMEOUT")
}

func TestLoadClientConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
		wantURL string
	}{
		{
			name:    "defaults the server",
			env:     map[string]string{"FOCUS_API_KEY": "sk-focus-v1-x-y"},
			wantURL: "http://localhost:8080",
		},
		{
			name:    "missing key",
			env:     map[string]string{"FOCUS_SERVER_URL": "http://focus.local"},
			wantErr: "FOCUS_API_KEY",
		},
		{
			name:    "bad url",
			env:     map[string]string{"FOCUS_SERVER_URL": "focus.local", "FOCUS_API_KEY": "k"},
			wantErr: "FOCUS_SERVER_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadClientConfig()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.ServerURL)
		})
	}
}

func TestLoadAPIKeyGenConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := LoadAPIKeyGenConfig("laptop", "user-1", 30)
	assert.ErrorIs(t, err, ErrDSNRequired)

	t.Setenv("FOCUS_DB_DSN", "postgres://localhost/focus")

	_, err = LoadAPIKeyGenConfig("", "user-1", 30)
	assert.ErrorContains(t, err, "-name")

	_, err = LoadAPIKeyGenConfig("laptop", "", 30)
	assert.ErrorContains(t, err, "-user-id")

	_, err = LoadAPIKeyGenConfig("laptop", "user-1", -1)
	assert.Error(t, err)

	cfg, err := LoadAPIKeyGenConfig("laptop", "user-1", 0)
	require.NoError(t, err)
	assert.Equal(t, "user-1", cfg.UserID)
}

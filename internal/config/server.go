package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/focusflow/internal/env"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// ServerConfig holds all configuration for the server binary.
type ServerConfig struct {
	Database        DatabaseConfig
	HTTP            HTTPConfig
	Auth            AuthConfig
	Reset           ResetConfig
	Generator       GeneratorConfig
	Observability   ObservabilityConfig
	ShutdownTimeout time.Duration `env:"FOCUS_SHUTDOWN_TIMEOUT"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Host              string        `env:"FOCUS_HTTP_HOST"`
	Port              string        `env:"FOCUS_HTTP_PORT"`
	ReadTimeout       time.Duration `env:"FOCUS_HTTP_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"FOCUS_HTTP_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"FOCUS_HTTP_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"FOCUS_HTTP_READ_HEADER_TIMEOUT"`
	MaxHeaderBytes    int           `env:"FOCUS_HTTP_MAX_HEADER_BYTES"`
	MaxBodyBytes      int64         `env:"FOCUS_HTTP_MAX_BODY_BYTES"`

	// SSEHeartbeat is the keep-alive interval of timer event streams.
	SSEHeartbeat time.Duration `env:"FOCUS_SSE_HEARTBEAT"`
}

// AuthConfig holds authenticator configuration.
type AuthConfig struct {
	OperationTimeout time.Duration `env:"FOCUS_AUTH_OPERATION_TIMEOUT"`
	UsageQueueSize   int           `env:"FOCUS_AUTH_USAGE_QUEUE_SIZE"`
}

// ResetConfig configures the daily reset sweep.
type ResetConfig struct {
	Disabled bool   `env:"FOCUS_RESET_DISABLED"`
	At       string `env:"FOCUS_RESET_AT"` // local HH:MM, default 00:01
}

// Validate checks the reset time format.
func (c *ResetConfig) Validate() error {
	if c.At == "" {
		return nil
	}
	if _, err := timeutil.ParseTime(c.At); err != nil {
		return fmt.Errorf("FOCUS_RESET_AT: %w", err)
	}
	return nil
}

// GeneratorConfig configures the AI schedule generator. Without an API key
// generation answers 502.
type GeneratorConfig struct {
	APIKey  string        `env:"FOCUS_GEMINI_API_KEY"`
	Model   string        `env:"FOCUS_GEMINI_MODEL"`
	BaseURL string        `env:"FOCUS_GEMINI_BASE_URL"`
	Timeout time.Duration `env:"FOCUS_GEMINI_TIMEOUT"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	OTelEnabled bool   `env:"FOCUS_OTEL_ENABLED"`
	ServiceName string `env:"OTEL_SERVICE_NAME"`
	LogLevel    string `env:"FOCUS_LOG_LEVEL"` // debug, info, warn, error
}

// Level parses LogLevel, defaulting to info.
func (c ObservabilityConfig) Level() slog.Level {
	return parseLevel(c.LogLevel)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadServerConfig loads and validates server configuration from the
// environment, after reading .env when present.
func LoadServerConfig() (*ServerConfig, error) {
	if err := env.LoadDotenv(); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return cfg, nil
}

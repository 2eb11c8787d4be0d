package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/rezkam/focusflow/internal/env"
)

// ClientConfig holds configuration for the terminal client.
type ClientConfig struct {
	ServerURL string `env:"FOCUS_SERVER_URL"`
	APIKey    string `env:"FOCUS_API_KEY"`

	// Countdown intervals; zero takes the manager's defaults.
	TickInterval      time.Duration `env:"FOCUS_TICK_INTERVAL"`
	FlushInterval     time.Duration `env:"FOCUS_FLUSH_INTERVAL"`
	RecomputeInterval time.Duration `env:"FOCUS_RECOMPUTE_INTERVAL"`

	RequestTimeout time.Duration `env:"FOCUS_REQUEST_TIMEOUT"`

	// LogFile receives the client's logs; the terminal belongs to the UI.
	LogFile  string `env:"FOCUS_LOG_FILE"`
	LogLevel string `env:"FOCUS_LOG_LEVEL"`
}

// Level parses LogLevel, defaulting to info.
func (c *ClientConfig) Level() slog.Level {
	return parseLevel(c.LogLevel)
}

// Validate checks the server address and key.
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		c.ServerURL = "http://localhost:8080"
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("FOCUS_SERVER_URL must be an http(s) URL, got %q", c.ServerURL)
	}
	if c.APIKey == "" {
		return errors.New("FOCUS_API_KEY is required")
	}
	return nil
}

// LoadClientConfig loads and validates client configuration.
func LoadClientConfig() (*ClientConfig, error) {
	if err := env.LoadDotenv(); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load client config: %w", err)
	}

	return cfg, nil
}

package config

import (
	"errors"
	"fmt"

	"github.com/rezkam/focusflow/internal/env"
)

// APIKeyConfig holds the API key format.
type APIKeyConfig struct {
	KeyType     string `env:"FOCUS_API_KEY_TYPE"`
	ServiceName string `env:"FOCUS_API_SERVICE_NAME"`
	Version     string `env:"FOCUS_API_VERSION"`
}

// APIKeyGenConfig holds all configuration for the apikey binary.
type APIKeyGenConfig struct {
	Database DatabaseConfig
	APIKey   APIKeyConfig

	Name      string
	UserID    string
	DaysValid int
}

// LoadAPIKeyGenConfig loads and validates apikey generation configuration.
// name, userID and daysValid come from flags.
func LoadAPIKeyGenConfig(name, userID string, daysValid int) (*APIKeyGenConfig, error) {
	if err := env.LoadDotenv(); err != nil {
		return nil, err
	}

	cfg := &APIKeyGenConfig{
		Name:      name,
		UserID:    userID,
		DaysValid: daysValid,
	}

	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load apikey config: %w", err)
	}

	return cfg, nil
}

// Validate validates apikey generation configuration.
func (c *APIKeyGenConfig) Validate() error {
	if c.Database.InMemory() {
		return ErrDSNRequired
	}
	if c.Name == "" {
		return errors.New("name is required (use -name flag)")
	}
	if c.UserID == "" {
		return errors.New("user id is required (use -user-id flag)")
	}
	if c.DaysValid < 0 {
		return errors.New("days must be >= 0 (0 = never expires)")
	}
	return nil
}

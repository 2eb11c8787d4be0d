package auth

import (
	"context"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
)

// Repository defines storage operations for API keys.
type Repository interface {
	// FindByShortToken returns the active key with the given short token.
	// Returns an error wrapping domain.ErrNotFound if there is none.
	FindByShortToken(ctx context.Context, shortToken string) (*domain.APIKey, error)

	// UpdateLastUsed records when a key was last presented.
	UpdateLastUsed(ctx context.Context, keyID string, timestamp time.Time) error

	// Create stores a new key.
	Create(ctx context.Context, key *domain.APIKey) error
}

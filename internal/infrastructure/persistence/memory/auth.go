package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
)

// FindByShortToken implements auth.Repository.
func (s *Store) FindByShortToken(_ context.Context, shortToken string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[shortToken]
	if !ok || !key.IsActive {
		return nil, fmt.Errorf("%w: api key", domain.ErrNotFound)
	}
	c := *key
	return &c, nil
}

// UpdateLastUsed implements auth.Repository.
func (s *Store) UpdateLastUsed(_ context.Context, keyID string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.keys {
		if key.ID == keyID {
			ts := timestamp
			key.LastUsedAt = &ts
			return nil
		}
	}
	return fmt.Errorf("%w: api key %s", domain.ErrNotFound, keyID)
}

// Create implements auth.Repository.
func (s *Store) Create(_ context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key.ShortToken]; ok {
		return fmt.Errorf("api key with short token %s already exists", key.ShortToken)
	}
	c := *key
	s.keys[key.ShortToken] = &c
	return nil
}

// Package auth validates API keys and resolves the user they act for.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/keygen"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Default configuration values.
const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultUsageQueueSize   = 256
)

// Config holds configuration for the Authenticator.
type Config struct {
	OperationTimeout time.Duration  // per storage call; zero waits indefinitely
	UsageQueueSize   int            // pending last-used writes before new ones are dropped
	Clock            timeutil.Clock // defaults to the system clock
}

type usage struct {
	keyID string
	at    time.Time
}

// Authenticator checks API keys. Last-used timestamps are written by one
// background goroutine so validation never waits on them.
type Authenticator struct {
	repo    Repository
	clock   timeutil.Clock
	timeout time.Duration

	usages chan usage
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewAuthenticator creates an authenticator and starts its usage writer.
// ctx bounds the writer's storage calls; Shutdown stops it.
func NewAuthenticator(ctx context.Context, repo Repository, config Config) *Authenticator {
	if config.OperationTimeout < 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.UsageQueueSize <= 0 {
		config.UsageQueueSize = DefaultUsageQueueSize
	}
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}

	a := &Authenticator{
		repo:    repo,
		clock:   config.Clock,
		timeout: config.OperationTimeout,
		usages:  make(chan usage, config.UsageQueueSize),
		stop:    make(chan struct{}),
	}

	a.wg.Add(1)
	go a.writeUsages(ctx)

	return a
}

func (a *Authenticator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *Authenticator) record(ctx context.Context, u usage) {
	opCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.repo.UpdateLastUsed(opCtx, u.keyID, u.at); err != nil {
		slog.WarnContext(opCtx, "Failed to update API key last_used_at",
			slog.String("key_id", u.keyID),
			slog.String("error", err.Error()))
	}
}

func (a *Authenticator) writeUsages(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case u := <-a.usages:
			a.record(ctx, u)
		case <-a.stop:
			// Flush what is queued; ctx may already be cancelled at this point.
			for {
				select {
				case u := <-a.usages:
					a.record(context.WithoutCancel(ctx), u)
				default:
					return
				}
			}
		}
	}
}

// Shutdown stops the usage writer after it drains the queue, or when ctx expires.
// Safe to call more than once.
func (a *Authenticator) Shutdown(ctx context.Context) error {
	var err error
	a.once.Do(func() {
		close(a.stop)

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("shutdown timeout: %w", ctx.Err())
		}
	})
	return err
}

// ValidateAPIKey returns the key record for a valid, unexpired key.
// Every failure is reported as domain.ErrUnauthorized.
func (a *Authenticator) ValidateAPIKey(ctx context.Context, apiKey string) (*domain.APIKey, error) {
	parts, err := keygen.ParseAPIKey(strings.TrimSpace(apiKey))
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	opCtx, cancel := a.withTimeout(ctx)
	defer cancel()

	key, err := a.repo.FindByShortToken(opCtx, parts.ShortToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	hash := keygen.HashSecret(parts.LongSecret)
	if subtle.ConstantTimeCompare([]byte(key.LongSecretHash), []byte(hash)) != 1 {
		return nil, domain.ErrUnauthorized
	}

	now := a.clock.Now().UTC()
	if !key.IsActive || (key.ExpiresAt != nil && key.ExpiresAt.Before(now)) {
		return nil, domain.ErrUnauthorized
	}

	select {
	case a.usages <- usage{keyID: key.ID, at: now}:
	default:
		slog.WarnContext(ctx, "Dropped last_used_at update due to full queue",
			slog.String("key_id", key.ID))
	}

	return key, nil
}

// CreateKeyParams describes a key to issue.
type CreateKeyParams struct {
	UserID    string
	KeyType   string
	Service   string
	Version   string
	Name      string
	ExpiresAt *time.Time
}

// CreateAPIKey issues a key bound to params.UserID and returns the full key.
// The full key is not stored and cannot be recovered later.
func CreateAPIKey(ctx context.Context, repo Repository, params CreateKeyParams) (string, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidID)
	}

	parts, err := keygen.GenerateAPIKey(params.KeyType, params.Service, params.Version)
	if err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate key ID: %w", err)
	}

	err = repo.Create(ctx, &domain.APIKey{
		ID:             id.String(),
		UserID:         params.UserID,
		KeyType:        parts.KeyType,
		Service:        parts.Service,
		Version:        parts.Version,
		ShortToken:     parts.ShortToken,
		LongSecretHash: keygen.HashSecret(parts.LongSecret),
		Name:           params.Name,
		IsActive:       true,
		CreatedAt:      time.Now().UTC(),
		ExpiresAt:      params.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create API key: %w", err)
	}

	return parts.FullKey, nil
}

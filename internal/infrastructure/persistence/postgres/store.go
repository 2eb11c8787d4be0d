package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/focusflow/internal/application/auth"
	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/domain"
)

// dbtx is the query surface shared by the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store provides the PostgreSQL implementation of the repository interfaces.
//
// Writes to one (user, day) run in a transaction that first takes a
// transaction-scoped advisory lock on the scope, so concurrent timer and schedule
// writes to the same day are serialized while other days proceed in parallel.
type Store struct {
	pool *pgxpool.Pool
	db   dbtx
}

// Compile-time verification that Store implements all repository interfaces.
var (
	_ auth.Repository     = (*Store)(nil)
	_ timer.Repository    = (*Store)(nil)
	_ schedule.Repository = (*Store)(nil)
)

// NewStore creates a new PostgreSQL store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// finalizeTx rolls back on error and commits otherwise.
// Panics are handled by the caller before finalizeTx runs.
func finalizeTx(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		slog.DebugContext(ctx, "transaction failed, rolling back",
			"error", *err)
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "rollback failed",
				"original_error", *err,
				"rollback_error", rbErr)
			*err = fmt.Errorf("transaction failed: %w (rollback error: %v)", *err, rbErr)
		}
		return
	}

	if cErr := tx.Commit(ctx); cErr != nil {
		slog.ErrorContext(ctx, "transaction commit failed",
			"error", cErr)
		*err = fmt.Errorf("%w: commit: %w", domain.ErrStoreUnavailable, cErr)
	}
}

// executeInTransaction runs fn against a transaction-bound store with logging and
// panic recovery.
func (s *Store) executeInTransaction(ctx context.Context, operationName string, fn func(txStore *Store) error) (err error) {
	start := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to begin transaction",
			"operation", operationName,
			"error", err)
		return fmt.Errorf("%w: failed to begin transaction: %w", domain.ErrStoreUnavailable, err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "transaction panic, rolling back",
				"operation", operationName,
				"panic", p)
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				slog.ErrorContext(ctx, "rollback after panic failed",
					"operation", operationName,
					"panic", p,
					"rollback_error", rbErr)
			}
			panic(p)
		}

		finalizeTx(ctx, tx, &err)
		if err == nil {
			slog.DebugContext(ctx, "transaction completed",
				"operation", operationName,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	err = fn(&Store{pool: s.pool, db: tx})
	return
}

// withScope runs fn in a transaction holding the scope's advisory lock.
func (s *Store) withScope(ctx context.Context, operationName, userID string, day domain.Day, fn func(sc *scope) error) error {
	return s.executeInTransaction(ctx, operationName, func(txStore *Store) error {
		if _, err := txStore.db.Exec(ctx, lockScopeSQL, scopeLockKey(userID, day)); err != nil {
			return fmt.Errorf("failed to lock scope: %w", err)
		}
		return fn(&scope{store: txStore, userID: userID, day: day})
	})
}

const lockScopeSQL = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`

func scopeLockKey(userID string, day domain.Day) string {
	return userID + "/" + day.String()
}

// AtomicTimer implements timer.Repository.
func (s *Store) AtomicTimer(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope timer.Scope) error) error {
	return s.withScope(ctx, "atomic_timer", userID, day, func(sc *scope) error {
		return fn(ctx, sc)
	})
}

// AtomicSchedule implements schedule.Repository.
func (s *Store) AtomicSchedule(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope schedule.Scope) error) error {
	return s.withScope(ctx, "atomic_schedule", userID, day, func(sc *scope) error {
		return fn(ctx, sc)
	})
}

// Package memory is an in-process implementation of the repository interfaces,
// used by tests and by the server when no database is configured. State is lost
// on restart.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rezkam/focusflow/internal/application/auth"
	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/domain"
)

type scopeKey struct {
	userID string
	day    domain.Day
}

// Store keeps tasks and API keys in maps. Writes to one (user, day) are
// serialized by a per-scope mutex and applied on commit, so a failed callback
// leaves nothing behind.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task   // by id
	keys  map[string]*domain.APIKey // by short token

	locksMu sync.Mutex
	locks   map[scopeKey]*sync.Mutex
}

// Compile-time verification that Store implements all repository interfaces.
var (
	_ auth.Repository     = (*Store)(nil)
	_ timer.Repository    = (*Store)(nil)
	_ schedule.Repository = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tasks: make(map[string]*domain.Task),
		keys:  make(map[string]*domain.APIKey),
		locks: make(map[scopeKey]*sync.Mutex),
	}
}

// AtomicTimer implements timer.Repository.
func (s *Store) AtomicTimer(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope timer.Scope) error) error {
	return s.atomic(ctx, scopeKey{userID: userID, day: day}, func(ctx context.Context, tx *scopeTx) error {
		return fn(ctx, tx)
	})
}

// AtomicSchedule implements schedule.Repository.
func (s *Store) AtomicSchedule(ctx context.Context, userID string, day domain.Day, fn func(ctx context.Context, scope schedule.Scope) error) error {
	return s.atomic(ctx, scopeKey{userID: userID, day: day}, func(ctx context.Context, tx *scopeTx) error {
		return fn(ctx, tx)
	})
}

func (s *Store) atomic(ctx context.Context, key scopeKey, fn func(ctx context.Context, tx *scopeTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.scopeLock(key)
	lock.Lock()
	defer lock.Unlock()

	tx := &scopeTx{
		store:   s,
		key:     key,
		staged:  make(map[string]*domain.Task),
		deleted: make(map[string]bool),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	tx.commit()
	return nil
}

func (s *Store) scopeLock(key scopeKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// FindRunningTask implements timer.Repository.
func (s *Store) FindRunningTask(_ context.Context, userID string, day domain.Day) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.UserID == userID && t.Date == day && t.IsRunning() {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

// ListTasks implements schedule.Repository.
func (s *Store) ListTasks(_ context.Context, userID string, day domain.Day) ([]*domain.Task, error) {
	return s.list(func(t *domain.Task) bool {
		return t.UserID == userID && t.Date == day
	}), nil
}

// ListTasksSince implements schedule.Repository.
func (s *Store) ListTasksSince(_ context.Context, userID string, day domain.Day, since time.Time) ([]*domain.Task, error) {
	return s.list(func(t *domain.Task) bool {
		return t.UserID == userID && t.Date == day && t.UpdatedAt.After(since)
	}), nil
}

// ListScopes implements schedule.Repository.
func (s *Store) ListScopes(_ context.Context) ([]schedule.ScopeKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[schedule.ScopeKey]bool)
	var keys []schedule.ScopeKey
	for _, t := range s.tasks {
		k := schedule.ScopeKey{UserID: t.UserID, Day: t.Date}
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b schedule.ScopeKey) int {
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.Day, b.Day))
	})
	return keys, nil
}

func (s *Store) list(match func(*domain.Task) bool) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Task
	for _, t := range s.tasks {
		if match(t) {
			out = append(out, t.Clone())
		}
	}
	sortByCreation(out)
	return out
}

func sortByCreation(tasks []*domain.Task) {
	slices.SortFunc(tasks, func(a, b *domain.Task) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}

// scopeTx stages writes for one scope until commit.
type scopeTx struct {
	store   *Store
	key     scopeKey
	staged  map[string]*domain.Task
	deleted map[string]bool
}

// current returns the task as this transaction sees it, without copying.
func (tx *scopeTx) current(id string) (*domain.Task, bool) {
	if tx.deleted[id] {
		return nil, false
	}
	if t, ok := tx.staged[id]; ok {
		return t, true
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()
	t, ok := tx.store.tasks[id]
	if !ok || t.UserID != tx.key.userID || t.Date != tx.key.day {
		return nil, false
	}
	return t, true
}

func (tx *scopeTx) ListTasks(_ context.Context) ([]*domain.Task, error) {
	tx.store.mu.RLock()
	ids := make([]string, 0)
	for id, t := range tx.store.tasks {
		if t.UserID == tx.key.userID && t.Date == tx.key.day {
			ids = append(ids, id)
		}
	}
	tx.store.mu.RUnlock()

	for id := range tx.staged {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	out := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := tx.current(id); ok {
			out = append(out, t.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (tx *scopeTx) FindTask(_ context.Context, id string) (*domain.Task, error) {
	t, ok := tx.current(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return t.Clone(), nil
}

func (tx *scopeTx) SaveTimer(_ context.Context, task *domain.Task) error {
	base, ok := tx.current(task.ID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, task.ID)
	}

	next := base.Clone()
	next.Timer = task.Timer.Clone()
	next.UpdatedAt = task.UpdatedAt
	next.Version = base.Version + 1
	task.Version = next.Version

	tx.staged[task.ID] = next
	return nil
}

func (tx *scopeTx) InsertTask(_ context.Context, task *domain.Task) error {
	if _, ok := tx.current(task.ID); ok {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.UserID = tx.key.userID
	task.Date = tx.key.day
	task.Version = 1

	delete(tx.deleted, task.ID)
	tx.staged[task.ID] = task.Clone()
	return nil
}

func (tx *scopeTx) SaveTask(_ context.Context, task *domain.Task) error {
	base, ok := tx.current(task.ID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, task.ID)
	}

	task.Version = base.Version + 1
	tx.staged[task.ID] = task.Clone()
	return nil
}

func (tx *scopeTx) DeleteTask(_ context.Context, id string) error {
	if _, ok := tx.current(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	delete(tx.staged, id)
	tx.deleted[id] = true
	return nil
}

func (tx *scopeTx) commit() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	for id := range tx.deleted {
		delete(tx.store.tasks, id)
	}
	for id, t := range tx.staged {
		tx.store.tasks[id] = t
	}
}

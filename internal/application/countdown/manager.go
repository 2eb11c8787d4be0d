// Package countdown keeps a client's per-second countdown of its day's tasks and
// reconciles it with the authoritative timer store.
//
// Local ticks are an approximation. They are written back in batches and replaced
// by the store's value on resync and after every control call.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

// Default intervals.
const (
	DefaultTickInterval      = time.Second
	DefaultFlushInterval     = 30 * time.Second
	DefaultRecomputeInterval = 10 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
	DefaultEventBuffer       = 16
)

// Config holds configuration for the Manager.
type Config struct {
	TickInterval      time.Duration
	FlushInterval     time.Duration
	RecomputeInterval time.Duration
	ShutdownTimeout   time.Duration // bound on the final flush
	EventBuffer       int

	Clock     timeutil.Clock
	NewTicker NewTickerFunc
}

// EventType names a manager notification.
type EventType string

// EventFinished is emitted once when a running countdown reaches zero.
const EventFinished EventType = "finished"

// Event is a notification for the UI.
type Event struct {
	Type   EventType
	TaskID string
}

// Snapshot is a copy of the manager state for rendering.
type Snapshot struct {
	Timers    map[string]int64
	RunningID string
	Paused    bool
	Pending   int
}

// Manager owns the local countdown map, the mirrored running task and the
// buffer of durations not yet written back.
//
// Run drives it from tickers and channels; every step is also a method so it can
// be driven directly.
type Manager struct {
	store  Store
	config Config
	events chan Event

	mu       sync.Mutex
	timers   map[string]int64
	schedule map[string]*domain.Task
	running  *domain.Task
	pending  map[string]int64
	finished map[string]bool
}

// New creates a manager. Zero config values take the defaults.
func New(store Store, config Config) *Manager {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.RecomputeInterval <= 0 {
		config.RecomputeInterval = DefaultRecomputeInterval
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock{}
	}
	if config.NewTicker == nil {
		config.NewTicker = NewStdTicker
	}

	return &Manager{
		store:    store,
		config:   config,
		events:   make(chan Event, config.EventBuffer),
		timers:   make(map[string]int64),
		schedule: make(map[string]*domain.Task),
		pending:  make(map[string]int64),
		finished: make(map[string]bool),
	}
}

// Events delivers finish notifications. Events are dropped when nobody reads.
func (m *Manager) Events() <-chan Event {
	return m.events
}

// OnRunningTimer mirrors the authoritative running task; nil means none runs.
func (m *Manager) OnRunningTimer(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setRunning(task)
}

func (m *Manager) setRunning(task *domain.Task) {
	stillRunning := task != nil && task.Timer != nil && task.Timer.IsRunning

	// The store folded the previous runner when it stopped; its queued values
	// would overwrite that accounting.
	if m.running != nil && (!stillRunning || m.running.ID != task.ID) {
		delete(m.pending, m.running.ID)
	}

	if !stillRunning {
		m.running = nil
		return
	}

	m.running = task.Clone()
	if _, ok := m.timers[task.ID]; !ok {
		m.timers[task.ID] = task.Timer.RemainingDuration
	}
}

// OnSchedule (re)initializes the countdown of every timed task from its persisted
// remaining duration. The running task keeps its live local value.
func (m *Manager) OnSchedule(tasks []*domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()

	schedule := make(map[string]*domain.Task, len(tasks))
	timers := make(map[string]int64, len(tasks))
	for _, t := range tasks {
		if !t.IsTimed() {
			continue
		}
		schedule[t.ID] = t.Clone()

		switch {
		case m.running != nil && m.running.ID == t.ID && m.hasTimer(t.ID):
			timers[t.ID] = m.timers[t.ID]
		case t.Timer != nil:
			timers[t.ID] = t.Timer.RemainingDuration
		default:
			timers[t.ID] = t.Schedule.FullDuration()
		}
	}

	m.schedule = schedule
	m.timers = timers
}

func (m *Manager) hasTimer(id string) bool {
	_, ok := m.timers[id]
	return ok
}

// Tick advances the running countdown by one second. Reaching zero, or ticking at
// zero, stops the timer in the store and emits EventFinished once.
func (m *Manager) Tick(ctx context.Context) {
	m.mu.Lock()
	if m.running == nil || m.running.Timer.IsPaused {
		m.mu.Unlock()
		return
	}

	id := m.running.ID
	remaining := m.timers[id]
	if remaining > 0 {
		remaining--
		m.timers[id] = remaining
		m.pending[id] = remaining
	}
	if remaining > 0 {
		m.mu.Unlock()
		return
	}

	announce := !m.finished[id]
	m.finished[id] = true
	m.mu.Unlock()

	if announce {
		m.emit(ctx, Event{Type: EventFinished, TaskID: id})
	}

	// A failed stop is retried on the next tick.
	if _, err := m.Stop(ctx, id); err != nil {
		slog.WarnContext(ctx, "Failed to stop finished timer",
			slog.String("task_id", id),
			slog.String("error", err.Error()))
	}
}

// Flush writes every pending duration in one batch. On failure the buffer is kept
// for the next flush and the error wraps domain.ErrBatchWriteFailed.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}
	sent := maps.Clone(m.pending)
	m.mu.Unlock()

	updates := make([]domain.DurationUpdate, 0, len(sent))
	for _, id := range slices.Sorted(maps.Keys(sent)) {
		updates = append(updates, domain.DurationUpdate{TaskID: id, RemainingDuration: sent[id]})
	}

	if err := m.store.BatchUpdateDurations(ctx, updates); err != nil {
		slog.WarnContext(ctx, "Batch duration write failed, keeping updates for retry",
			slog.Int("updates", len(updates)),
			slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", domain.ErrBatchWriteFailed, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, v := range sent {
		// A later tick may have queued a newer value meanwhile; keep that one.
		if cur, ok := m.pending[id]; ok && cur == v {
			delete(m.pending, id)
		}
	}
	return nil
}

// Resync overwrites the running countdown with the authoritative value. When the
// store can't be reached local state is left untouched and the error returned.
func (m *Manager) Resync(ctx context.Context) error {
	task, err := m.store.GetRunningTimer(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Resync failed, keeping local countdown",
			slog.String("error", err.Error()))
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.setRunning(task)
	if task != nil && task.Timer != nil && task.Timer.IsRunning {
		m.timers[task.ID] = task.Timer.RemainingDuration
		delete(m.pending, task.ID)
	}
	return nil
}

// Recompute refreshes the wall-clock preview of every fixed task except the
// running one. Flexible tasks have no window and are left alone.
func (m *Manager) Recompute(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.schedule {
		if m.running != nil && m.running.ID == id {
			continue
		}
		if fixed, ok := t.Schedule.(domain.FixedSchedule); ok {
			m.timers[id] = timeutil.CalculateRemainingTime(now, fixed.Start, fixed.End)
		}
	}
}

// Start starts taskID in the store and adopts the authoritative countdown.
func (m *Manager) Start(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.StartTimer(ctx, taskID)
	if err != nil {
		return nil, m.controlFailed(ctx, "start", taskID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.adopt(task)
	m.setRunning(task)
	delete(m.finished, taskID)
	return task, nil
}

// Stop stops taskID in the store and adopts the folded countdown.
func (m *Manager) Stop(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.StopTimer(ctx, taskID)
	if err != nil {
		return nil, m.controlFailed(ctx, "stop", taskID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running != nil && m.running.ID == taskID {
		m.running = nil
	}
	m.adopt(task)
	return task, nil
}

// Pause pauses taskID in the store.
func (m *Manager) Pause(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.PauseTimer(ctx, taskID)
	if err != nil {
		return nil, m.controlFailed(ctx, "pause", taskID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.adopt(task)
	if task != nil {
		m.setRunning(task)
	}
	return task, nil
}

// Resume resumes taskID in the store.
func (m *Manager) Resume(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := m.store.ResumeTimer(ctx, taskID)
	if err != nil {
		return nil, m.controlFailed(ctx, "resume", taskID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if task != nil {
		m.setRunning(task)
	}
	return task, nil
}

// adopt takes the store's remaining duration for task and drops its queued value.
func (m *Manager) adopt(task *domain.Task) {
	if task == nil || task.Timer == nil {
		return
	}
	m.timers[task.ID] = task.Timer.RemainingDuration
	delete(m.pending, task.ID)
}

func (m *Manager) controlFailed(ctx context.Context, op, taskID string, err error) error {
	level := slog.LevelWarn
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		level = slog.LevelInfo
	}
	slog.Log(ctx, level, "Timer control call failed",
		slog.String("op", op),
		slog.String("task_id", taskID),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s timer: %w", op, err)
}

func (m *Manager) emit(ctx context.Context, ev Event) {
	select {
	case m.events <- ev:
	default:
		slog.DebugContext(ctx, "Dropped countdown event",
			slog.String("type", string(ev.Type)),
			slog.String("task_id", ev.TaskID))
	}
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Timers:  maps.Clone(m.timers),
		Pending: len(m.pending),
	}
	if m.running != nil {
		s.RunningID = m.running.ID
		s.Paused = m.running.Timer.IsPaused
	}
	return s
}

package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/application/countdown"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/timeutil"
)

const testDay = domain.Day("2026-03-14")

type fakeStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	calls []string
	now   func() time.Time
}

func (s *fakeStore) control(op, id string, fn func(*domain.Timer, time.Time)) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+":"+id)

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	fn(t.Timer, s.now())
	return t.Clone(), nil
}

func (s *fakeStore) StartTimer(_ context.Context, id string) (*domain.Task, error) {
	return s.control("start", id, func(t *domain.Timer, now time.Time) { t.Start(now) })
}

func (s *fakeStore) StopTimer(_ context.Context, id string) (*domain.Task, error) {
	return s.control("stop", id, func(t *domain.Timer, now time.Time) { t.Stop(now) })
}

func (s *fakeStore) PauseTimer(_ context.Context, id string) (*domain.Task, error) {
	return s.control("pause", id, func(t *domain.Timer, now time.Time) { t.Pause(now) })
}

func (s *fakeStore) ResumeTimer(_ context.Context, id string) (*domain.Task, error) {
	return s.control("resume", id, func(t *domain.Timer, now time.Time) { t.Resume(now) })
}

func (s *fakeStore) BatchUpdateDurations(context.Context, []domain.DurationUpdate) error {
	return nil
}

func (s *fakeStore) GetRunningTimer(context.Context) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		if t.IsRunning() {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

type fakeScheduler struct {
	store    *fakeStore
	statuses map[string]string
	sinceErr error
}

func (f *fakeScheduler) ListTasks(context.Context, domain.Day) ([]*domain.Task, time.Time, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var out []*domain.Task
	for _, id := range []string{"a", "b", "c"} {
		if t, ok := f.store.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, f.store.now(), nil
}

func (f *fakeScheduler) ListTasksSince(context.Context, domain.Day, time.Time) ([]*domain.Task, time.Time, error) {
	return nil, f.store.now(), f.sinceErr
}

func (f *fakeScheduler) SetManualStatus(_ context.Context, _ domain.Day, taskID, status string) (*domain.Task, error) {
	f.statuses[taskID] = status
	return nil, nil
}

type fixture struct {
	clock     *timeutil.FakeClock
	store     *fakeStore
	scheduler *fakeScheduler
	manager   *countdown.Manager
	model     Model
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	clock := timeutil.NewFakeClock(time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local))
	store := &fakeStore{
		now: clock.Now,
		tasks: map[string]*domain.Task{
			"a": {
				ID:       "a",
				Title:    "Deep work",
				Schedule: domain.FixedSchedule{Start: timeutil.MustParseTime("09:00"), End: timeutil.MustParseTime("10:00")},
				Timer:    domain.NewTimer(3600),
			},
			"b": {
				ID:       "b",
				Title:    "Read",
				Schedule: domain.TimelessSchedule{},
			},
		},
	}
	scheduler := &fakeScheduler{store: store, statuses: make(map[string]string)}
	manager := countdown.New(store, countdown.Config{Clock: clock})

	cfg.Day = testDay
	cfg.Clock = clock
	return &fixture{
		clock:     clock,
		store:     store,
		scheduler: scheduler,
		manager:   manager,
		model:     New(context.Background(), scheduler, manager, cfg),
	}
}

// send runs msg through Update and keeps the new model.
func (f *fixture) send(t *testing.T, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := f.model.Update(msg)
	f.model = next.(Model)
	return cmd
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.send(t, f.model.load()())
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadAndRender(t *testing.T) {
	f := newFixture(t, Config{})

	assert.Contains(t, f.model.View(), "Loading")

	f.load(t)

	view := f.model.View()
	assert.Contains(t, view, "Deep work")
	assert.Contains(t, view, "09:00-10:00")
	assert.Contains(t, view, "1:00:00")
	assert.Contains(t, view, "anytime")
	assert.Contains(t, view, "0/2 done")
	assert.Contains(t, view, "Saturday, 14 Mar")
}

func TestModel_StartTicksAndStops(t *testing.T) {
	f := newFixture(t, Config{})
	f.load(t)

	cmd := f.send(t, keyMsg("s"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, actionMsg{}, msg)
	require.NoError(t, msg.(actionMsg).err)
	f.send(t, msg)

	assert.Equal(t, []string{"start:a"}, f.store.calls)

	for range 10 {
		f.clock.Advance(time.Second)
		f.manager.Tick(context.Background())
	}
	f.send(t, tickMsg(f.clock.Now()))

	view := f.model.View()
	assert.Contains(t, view, "59:50")
	assert.Contains(t, view, "▶")

	msg = f.send(t, keyMsg("x"))()
	require.NoError(t, msg.(actionMsg).err)
	assert.Equal(t, []string{"start:a", "stop:a"}, f.store.calls)
}

func TestModel_TimelessTaskHasNoTimer(t *testing.T) {
	f := newFixture(t, Config{})
	f.load(t)

	f.send(t, keyMsg("j"))
	cmd := f.send(t, keyMsg("s"))

	assert.Nil(t, cmd)
	assert.Empty(t, f.store.calls)
	assert.Contains(t, f.model.View(), "Read has no timer")
}

func TestModel_ManualStatus(t *testing.T) {
	f := newFixture(t, Config{})
	f.load(t)

	f.send(t, keyMsg("d"))()
	assert.Equal(t, "done", f.scheduler.statuses["a"])

	f.send(t, keyMsg("m"))()
	assert.Equal(t, "missed", f.scheduler.statuses["a"])

	f.send(t, keyMsg("u"))()
	assert.Equal(t, "", f.scheduler.statuses["a"])
}

func TestModel_FocusResyncs(t *testing.T) {
	var visible int
	f := newFixture(t, Config{Visible: func() { visible++ }})

	cmd := f.send(t, tea.FocusMsg{})

	assert.Equal(t, 1, visible)
	require.NotNil(t, cmd)
	assert.IsType(t, tasksMsg{}, cmd())
}

func TestModel_ScheduleHook(t *testing.T) {
	var got []*domain.Task
	f := newFixture(t, Config{Schedule: func(tasks []*domain.Task) { got = tasks }})

	f.load(t)

	require.Len(t, got, 2)
	// Only the hook sees the list; the manager has nothing to count down.
	assert.Empty(t, f.manager.Snapshot().Timers)
}

func TestModel_DeltaErrorKeepsTasks(t *testing.T) {
	f := newFixture(t, Config{})
	f.load(t)
	f.scheduler.sinceErr = errors.Join(domain.ErrStoreUnavailable, errors.New("dial tcp: refused"))

	f.send(t, f.model.loadSince()())

	view := f.model.View()
	assert.Contains(t, view, "Deep work")
	assert.Contains(t, view, "Server unreachable")
}

func TestMerge(t *testing.T) {
	a := &domain.Task{ID: "a", Title: "A"}
	b := &domain.Task{ID: "b", Title: "B"}
	a2 := &domain.Task{ID: "a", Title: "A2"}
	c := &domain.Task{ID: "c", Title: "C"}

	got := merge([]*domain.Task{a, b}, []*domain.Task{a2, c})

	require.Len(t, got, 3)
	assert.Equal(t, "A2", got[0].Title)
	assert.Equal(t, "B", got[1].Title)
	assert.Equal(t, "C", got[2].Title)
	assert.Equal(t, "A", a.Title)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.True(t, strings.HasSuffix(truncate("ünïcödé title", 6), "…"))
}

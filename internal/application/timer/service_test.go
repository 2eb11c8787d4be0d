package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/application/timer"
	"github.com/rezkam/focusflow/internal/domain"
	"github.com/rezkam/focusflow/internal/infrastructure/persistence/memory"
	"github.com/rezkam/focusflow/internal/timeutil"
)

const (
	user = "user-1"
	day  = domain.Day("2026-03-14")
)

type fixture struct {
	clock    *timeutil.FakeClock
	store    *memory.Store
	timers   *timer.Service
	schedule *schedule.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := timeutil.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local))
	store := memory.NewStore()
	timers := timer.NewService(store, nil, timer.Config{Clock: clock})

	return &fixture{
		clock:    clock,
		store:    store,
		timers:   timers,
		schedule: schedule.NewService(store, timers, nil, schedule.Config{Clock: clock}),
	}
}

func (f *fixture) fixed(t *testing.T, title, start, end string) *domain.Task {
	t.Helper()
	task, err := f.schedule.CreateTask(context.Background(), user, day, schedule.TaskInput{
		Title:    title,
		Schedule: schedule.ScheduleInput{Kind: domain.ScheduleFixed, Start: start, End: end},
	})
	require.NoError(t, err)
	return task
}

func (f *fixture) get(t *testing.T, id string) *domain.Task {
	t.Helper()
	task, err := f.schedule.GetTask(context.Background(), user, day, id)
	require.NoError(t, err)
	return task
}

func (f *fixture) runningCount(t *testing.T) int {
	t.Helper()
	tasks, err := f.schedule.ListTasks(context.Background(), user, day)
	require.NoError(t, err)

	n := 0
	for _, task := range tasks {
		if task.IsRunning() {
			n++
		}
	}
	return n
}

func TestFocusScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	focus := f.fixed(t, "Focus", "09:00", "10:00")
	assert.Equal(t, int64(3600), focus.Timer.RemainingDuration)

	_, err := f.timers.StartTimer(ctx, user, day, focus.ID)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	stopped, err := f.timers.StopTimer(ctx, user, day, focus.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(3590), stopped.Timer.RemainingDuration)
	assert.Equal(t, int64(10), stopped.Timer.TotalElapsed)
	assert.False(t, stopped.Timer.IsRunning)

	stored := f.get(t, focus.ID)
	assert.Equal(t, int64(3590), stored.Timer.RemainingDuration)
	assert.Equal(t, int64(10), stored.Timer.TotalElapsed)
}

func TestStartTimer_SingleRunner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tasks := []*domain.Task{
		f.fixed(t, "A", "09:00", "10:00"),
		f.fixed(t, "B", "10:00", "11:00"),
		f.fixed(t, "C", "11:00", "12:00"),
	}
	assert.Equal(t, 0, f.runningCount(t))

	for _, id := range []int{0, 1, 2, 1, 1, 0} {
		_, err := f.timers.StartTimer(ctx, user, day, tasks[id].ID)
		require.NoError(t, err)
		f.clock.Advance(3 * time.Second)

		assert.Equal(t, 1, f.runningCount(t))
		running, err := f.timers.GetRunningTimer(ctx, user, day)
		require.NoError(t, err)
		assert.Equal(t, tasks[id].ID, running.ID)
	}
}

func TestStartTimer_FinalizesPreviousRunner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.fixed(t, "A", "09:00", "10:00")
	b := f.fixed(t, "B", "10:00", "11:00")

	_, err := f.timers.StartTimer(ctx, user, day, a.ID)
	require.NoError(t, err)
	f.clock.Advance(25 * time.Second)

	startOfB := f.clock.Now()
	started, err := f.timers.StartTimer(ctx, user, day, b.ID)
	require.NoError(t, err)

	require.NotNil(t, started.Timer.StartedAt)
	assert.Equal(t, startOfB, *started.Timer.StartedAt)
	assert.True(t, started.Timer.IsRunning)

	prev := f.get(t, a.ID)
	assert.False(t, prev.Timer.IsRunning)
	assert.Nil(t, prev.Timer.StartedAt)
	assert.Equal(t, int64(25), prev.Timer.TotalElapsed)
	assert.Equal(t, int64(3575), prev.Timer.RemainingDuration)
}

func TestPauseFreezesAccounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	_, err := f.timers.StartTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	paused, err := f.timers.PauseTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.True(t, paused.Timer.IsPaused)
	assert.True(t, paused.Timer.IsRunning)
	f.clock.Advance(10 * time.Second)

	_, err = f.timers.ResumeTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	stopped, err := f.timers.StopTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stopped.Timer.TotalElapsed)
	assert.Equal(t, int64(3590), stopped.Timer.RemainingDuration)
}

func TestBatchUpdateDurations_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	updates := []domain.DurationUpdate{
		{TaskID: task.ID, RemainingDuration: 3000},
		{TaskID: "missing", RemainingDuration: 10},
	}

	n, err := f.timers.BatchUpdateDurations(ctx, user, day, updates)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	first := f.get(t, task.ID)

	n, err = f.timers.BatchUpdateDurations(ctx, user, day, updates)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	second := f.get(t, task.ID)

	assert.Equal(t, int64(3000), first.Timer.RemainingDuration)
	assert.Equal(t, first.Timer.RemainingDuration, second.Timer.RemainingDuration)
}

func TestFlushThenStop_NoDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	_, err := f.timers.StartTimer(ctx, user, day, task.ID)
	require.NoError(t, err)

	f.clock.Advance(30 * time.Second)
	_, err = f.timers.BatchUpdateDurations(ctx, user, day, []domain.DurationUpdate{{TaskID: task.ID, RemainingDuration: 3570}})
	require.NoError(t, err)

	f.clock.Advance(15 * time.Second)
	stopped, err := f.timers.StopTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3555), stopped.Timer.RemainingDuration)
	assert.Equal(t, int64(45), stopped.Timer.TotalElapsed)
}

func TestBenignNoOps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	got, err := f.timers.StopTimer(ctx, user, day, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.timers.PauseTimer(ctx, user, day, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.timers.UpdateTimerDuration(ctx, user, day, "missing", 10)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = f.timers.StopTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Version, got.Version, "stopping an idle timer writes nothing")

	got, err = f.timers.ResumeTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Timer.IsRunning)
}

func TestStartTimer_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	todo, err := f.schedule.CreateTask(ctx, user, day, schedule.TaskInput{
		Title:    "Call mom",
		Schedule: schedule.ScheduleInput{Kind: domain.ScheduleTimeless},
	})
	require.NoError(t, err)

	_, err = f.timers.StartTimer(ctx, user, day, todo.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotTimed)

	_, err = f.timers.StartTimer(ctx, user, day, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	// Another user's day is a different scope.
	task := f.fixed(t, "Focus", "09:00", "10:00")
	_, err = f.timers.StartTimer(ctx, "user-2", day, task.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestUpdateTimerDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	got, err := f.timers.UpdateTimerDuration(ctx, user, day, task.ID, -20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Timer.RemainingDuration)

	got, err = f.timers.UpdateTimerDuration(ctx, user, day, task.ID, 1200)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.Timer.RemainingDuration)
	assert.Equal(t, int64(1200), got.Timer.SegmentRemaining)
}

func TestGetRunningTimer_Projects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.fixed(t, "Focus", "09:00", "10:00")

	running, err := f.timers.GetRunningTimer(ctx, user, day)
	require.NoError(t, err)
	assert.Nil(t, running)

	_, err = f.timers.StartTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	f.clock.Advance(42 * time.Second)

	running, err = f.timers.GetRunningTimer(ctx, user, day)
	require.NoError(t, err)
	require.NotNil(t, running)
	assert.Equal(t, int64(3558), running.Timer.RemainingDuration)
	assert.Equal(t, int64(3600), f.get(t, task.ID).Timer.RemainingDuration, "projection is not persisted")
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := f.fixed(t, "Focus", "09:00", "10:00")

	updates, err := f.timers.Subscribe(ctx, user, day)
	require.NoError(t, err)

	assert.Nil(t, receive(t, updates), "nothing runs initially")

	_, err = f.timers.StartTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	got := receive(t, updates)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)

	_, err = f.timers.StopTimer(ctx, user, day, task.ID)
	require.NoError(t, err)
	assert.Nil(t, receive(t, updates))

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribe_DeleteOfRunningTaskNotifies(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task := f.fixed(t, "Focus", "09:00", "10:00")
	_, err := f.timers.StartTimer(ctx, user, day, task.ID)
	require.NoError(t, err)

	updates, err := f.timers.Subscribe(ctx, user, day)
	require.NoError(t, err)
	require.NotNil(t, receive(t, updates))

	require.NoError(t, f.schedule.DeleteTask(ctx, user, day, task.ID))
	assert.Nil(t, receive(t, updates))
}

func receive(t *testing.T, ch <-chan *domain.Task) *domain.Task {
	t.Helper()
	select {
	case task, ok := <-ch:
		require.True(t, ok, "channel closed")
		return task
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for running-timer update")
		return nil
	}
}

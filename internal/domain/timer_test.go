package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

func TestTimer_StartStopConservesElapsed(t *testing.T) {
	timer := NewTimer(3600)

	timer.Start(t0)
	folded, wasRunning := timer.Stop(t0.Add(sec(10)))

	assert.True(t, wasRunning)
	assert.Equal(t, int64(10), folded)
	assert.Equal(t, int64(3590), timer.RemainingDuration)
	assert.Equal(t, int64(10), timer.TotalElapsed)
	assert.False(t, timer.IsRunning)
	assert.Nil(t, timer.StartedAt)
}

func TestTimer_PauseFreezesAccounting(t *testing.T) {
	timer := NewTimer(600)

	timer.Start(t0)
	_, ok := timer.Pause(t0.Add(sec(5)))
	require.True(t, ok)
	assert.True(t, timer.IsRunning)
	assert.True(t, timer.IsPaused)

	// Time spent paused is never folded.
	assert.Equal(t, int64(0), timer.Elapsed(t0.Add(sec(15))))
	require.True(t, timer.Resume(t0.Add(sec(15))))
	timer.Stop(t0.Add(sec(20)))

	assert.Equal(t, int64(10), timer.TotalElapsed)
	assert.Equal(t, int64(590), timer.RemainingDuration)
}

func TestTimer_OverwriteDoesNotDoubleCount(t *testing.T) {
	timer := NewTimer(3600)
	timer.Start(t0)

	// A client flush after 30 ticks lands mid-segment.
	timer.SetRemaining(3570)
	assert.Equal(t, int64(3570), timer.RemainingDuration)

	timer.Stop(t0.Add(sec(40)))
	assert.Equal(t, int64(3560), timer.RemainingDuration)
	assert.Equal(t, int64(40), timer.TotalElapsed)
}

func TestTimer_RestartFoldsOldSegment(t *testing.T) {
	timer := NewTimer(100)
	timer.Start(t0)

	folded := timer.Start(t0.Add(sec(7)))
	assert.Equal(t, int64(7), folded)
	assert.Equal(t, t0.Add(sec(7)), *timer.StartedAt)
	assert.Equal(t, int64(93), timer.SegmentRemaining)

	timer.Stop(t0.Add(sec(10)))
	assert.Equal(t, int64(90), timer.RemainingDuration)
	assert.Equal(t, int64(10), timer.TotalElapsed)
}

func TestTimer_RemainingFloorsAtZero(t *testing.T) {
	timer := NewTimer(5)
	timer.Start(t0)
	timer.Stop(t0.Add(sec(30)))

	assert.Equal(t, int64(0), timer.RemainingDuration)
	assert.Equal(t, int64(30), timer.TotalElapsed)

	timer.SetRemaining(-3)
	assert.Equal(t, int64(0), timer.RemainingDuration)
}

func TestTimer_SubSecondRemainderSurvivesFold(t *testing.T) {
	timer := NewTimer(100)
	timer.Start(t0)

	timer.Fold(t0.Add(1500 * time.Millisecond))
	timer.Fold(t0.Add(3000 * time.Millisecond))

	assert.Equal(t, int64(3), timer.TotalElapsed)
	assert.Equal(t, int64(97), timer.RemainingDuration)
}

func TestTimer_NoOps(t *testing.T) {
	timer := NewTimer(60)

	_, ok := timer.Stop(t0)
	assert.False(t, ok)
	_, ok = timer.Pause(t0)
	assert.False(t, ok)
	assert.False(t, timer.Resume(t0))

	timer.Start(t0)
	assert.False(t, timer.Resume(t0), "resume requires a paused timer")
}

func TestTimer_Projected(t *testing.T) {
	timer := NewTimer(60)
	assert.Equal(t, int64(60), timer.Projected(t0.Add(sec(10))))

	timer.Start(t0)
	assert.Equal(t, int64(50), timer.Projected(t0.Add(sec(10))))
	assert.Equal(t, int64(60), timer.RemainingDuration, "projection must not mutate")
	assert.Equal(t, int64(0), timer.Projected(t0.Add(sec(90))))
}

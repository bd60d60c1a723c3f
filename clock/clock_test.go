package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaoyu21git/astockquant/clock"
)

func TestBacktestClockAdvanceMonotonic(t *testing.T) {
	start := time.Unix(0, 0)
	end := start.Add(100 * time.Second)
	c := clock.NewBacktestClock(start, end, time.Second)

	require.NoError(t, c.AdvanceTo(start.Add(10*time.Second)))
	assert.Equal(t, start.Add(10*time.Second), c.Now())

	err := c.AdvanceTo(start.Add(5 * time.Second))
	assert.ErrorIs(t, err, clock.ErrInvalidArgument)
	assert.Equal(t, start.Add(10*time.Second), c.Now(), "rejected advance must not move current time")
}

func TestBacktestClockRejectsPastEnd(t *testing.T) {
	start := time.Unix(0, 0)
	end := start.Add(10 * time.Second)
	c := clock.NewBacktestClock(start, end, time.Second)

	err := c.AdvanceTo(end.Add(time.Second))
	assert.ErrorIs(t, err, clock.ErrInvalidArgument)
}

func TestBacktestClockReset(t *testing.T) {
	start := time.Unix(0, 0)
	c := clock.NewBacktestClock(start, start.Add(time.Hour), time.Second)
	require.NoError(t, c.AdvanceTo(start.Add(time.Minute)))
	require.NoError(t, c.Reset(start))
	assert.Equal(t, start, c.Now())
}

func TestRealtimeClockAdvanceUnsupported(t *testing.T) {
	c := clock.NewRealtimeClock()
	assert.ErrorIs(t, c.AdvanceTo(time.Now()), clock.ErrInvalidArgument)
	assert.ErrorIs(t, c.Reset(time.Now()), clock.ErrUnsupported)
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}

func TestAcceleratedClockScalesWallTime(t *testing.T) {
	simStart := time.Unix(1000, 0)
	c := clock.NewAcceleratedClock(simStart, 60)

	time.Sleep(20 * time.Millisecond)
	now := c.Now()
	assert.True(t, now.After(simStart), "accelerated clock must move forward")

	elapsedSim := now.Sub(simStart)
	assert.Greater(t, elapsedSim, 500*time.Millisecond, "60x factor over 20ms wall should yield >500ms sim")
}

func TestClockRunStateIdempotency(t *testing.T) {
	c := clock.NewRealtimeClock()
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), clock.ErrAlreadyRunning)
	require.NoError(t, c.Stop())
	assert.ErrorIs(t, c.Stop(), clock.ErrNotRunning)
}

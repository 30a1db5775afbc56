package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_AdvanceFiresDueTimersInOrder(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	var fired []string

	clock.AfterFunc(300*time.Millisecond, func() { fired = append(fired, "late") })
	clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })

	clock.Advance(99 * time.Millisecond)
	assert.Empty(t, fired)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"early"}, fired)

	clock.Advance(time.Second)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 0, clock.PendingTimers())
}

func TestFakeClock_StoppedTimerNeverFires(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	fired := false

	timer := clock.AfterFunc(time.Second, func() { fired = true })
	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeClock_SleepRecordsWithoutBlocking(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))

	require.NoError(t, clock.Sleep(context.Background(), time.Second))
	require.NoError(t, clock.Sleep(context.Background(), 2*time.Second))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.Sleeps())
	assert.Equal(t, time.Unix(0, 0), clock.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clock.Sleep(ctx, time.Second), context.Canceled)
}

func TestFakeClock_TimerScheduledDuringAdvance(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	count := 0

	clock.AfterFunc(time.Second, func() {
		count++
		clock.AfterFunc(time.Second, func() { count++ })
	})

	clock.Advance(3 * time.Second)
	assert.Equal(t, 2, count)
}

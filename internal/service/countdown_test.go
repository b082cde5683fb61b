package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	mu        sync.Mutex
	remaining int
}

func (c *counter) tick(<-chan struct{}) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining, true
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func TestCountdownDecrementsOncePerTick(t *testing.T) {
	ticker := newManualTicker()
	c := &counter{remaining: 5}
	cd := NewCountdown(time.Second, ticker.source, c.tick, nil)
	cd.Start()
	defer cd.Stop()

	for i := 1; i <= 3; i++ {
		require.True(t, ticker.tick())
		want := 5 - i
		assert.Eventually(t, func() bool { return c.get() == want }, time.Second, 5*time.Millisecond)
	}
	assert.True(t, cd.Running())
}

func TestCountdownExpiresExactlyOnce(t *testing.T) {
	ticker := newManualTicker()
	c := &counter{remaining: 2}
	var fired atomic.Int32
	cd := NewCountdown(time.Second, ticker.source, c.tick, func() { fired.Add(1) })
	cd.Start()

	require.True(t, ticker.tick())
	require.True(t, ticker.tick())

	select {
	case <-cd.Expired():
	case <-time.After(time.Second):
		t.Fatal("countdown did not expire")
	}
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, c.get())
	assert.False(t, cd.Running())

	assert.Eventually(t, ticker.idle, time.Second, 5*time.Millisecond)

	// 重新启动后再次归零也不会重复触发
	cd.Start()
	require.True(t, ticker.tick())
	assert.Eventually(t, func() bool { return !cd.Running() }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestCountdownStopIsIdempotentAndResumable(t *testing.T) {
	ticker := newManualTicker()
	c := &counter{remaining: 10}
	cd := NewCountdown(time.Second, ticker.source, c.tick, nil)

	cd.Start()
	cd.Start()
	require.True(t, ticker.tick())
	assert.Eventually(t, func() bool { return c.get() == 9 }, time.Second, 5*time.Millisecond)

	cd.Stop()
	cd.Stop()
	assert.False(t, cd.Running())
	assert.Eventually(t, ticker.idle, time.Second, 5*time.Millisecond)
	assert.Equal(t, 9, c.get())

	cd.Start()
	require.True(t, ticker.tick())
	assert.Eventually(t, func() bool { return c.get() == 8 }, time.Second, 5*time.Millisecond)
	cd.Stop()
}

func TestCountdownStopsWhenTickHookDeclines(t *testing.T) {
	ticker := newManualTicker()
	var fired atomic.Bool
	cd := NewCountdown(time.Second, ticker.source, func(<-chan struct{}) (int, bool) { return 0, false }, func() { fired.Store(true) })
	cd.Start()

	require.True(t, ticker.tick())
	assert.Eventually(t, func() bool { return !cd.Running() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, ticker.idle, time.Second, 5*time.Millisecond)
	assert.False(t, fired.Load())
}

func TestCountdownStopFromInsideTickHook(t *testing.T) {
	ticker := newManualTicker()
	var cd *Countdown
	cd = NewCountdown(time.Second, ticker.source, func(<-chan struct{}) (int, bool) {
		cd.Stop()
		return 5, true
	}, nil)
	cd.Start()

	require.True(t, ticker.tick())
	assert.Eventually(t, func() bool { return !cd.Running() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, ticker.idle, time.Second, 5*time.Millisecond)
}

func TestRealTickSource(t *testing.T) {
	ch, release := RealTickSource(5 * time.Millisecond)
	defer release()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no tick from real ticker")
	}
}

func TestCountdownTickHookSeesStopSignal(t *testing.T) {
	ticker := newManualTicker()
	stopped := make(chan bool, 1)
	var cd *Countdown
	cd = NewCountdown(time.Second, ticker.source, func(done <-chan struct{}) (int, bool) {
		cd.Stop()
		select {
		case <-done:
			stopped <- true
		default:
			stopped <- false
		}
		return 5, true
	}, nil)
	cd.Start()

	require.True(t, ticker.tick())
	assert.True(t, <-stopped)
}

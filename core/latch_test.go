package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitAsync(l *Latch) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()
	return done
}

func isClosed(ch <-chan struct{}, within time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(within):
		return false
	}
}

// TestLatch_CountDownReleasesWaiters
// Given: a latch of 3 with two waiters
// When: CountDown is called three times
// Then: waiters stay blocked until the third call, then all are released
func TestLatch_CountDownReleasesWaiters(t *testing.T) {
	l := NewLatch(3)
	first, second := waitAsync(l), waitAsync(l)

	l.CountDown()
	l.CountDown()
	assert.False(t, isClosed(first, 30*time.Millisecond))
	assert.Equal(t, 1, l.Count())

	l.CountDown()
	assert.True(t, isClosed(first, time.Second))
	assert.True(t, isClosed(second, time.Second))

	// future waits return at once
	assert.True(t, isClosed(waitAsync(l), time.Second))
}

// TestLatch_CountDownAtZeroIsNoop
// Given: a latch that reached zero
// When: CountDown is called again
// Then: the count stays at zero
func TestLatch_CountDownAtZeroIsNoop(t *testing.T) {
	l := NewLatch(3)
	for range 4 {
		l.CountDown()
	}
	assert.Equal(t, 0, l.Count())
	l.Wait()
}

// TestLatch_CountUpRearms
// Given: a latch that reached zero
// When: CountUp is called
// Then: new waits block until the next CountDown
func TestLatch_CountUpRearms(t *testing.T) {
	l := NewLatch(1)
	l.CountDown()
	l.Wait()

	l.CountUp()
	assert.Equal(t, 1, l.Count())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitContext(ctx), context.DeadlineExceeded)

	waiter := waitAsync(l)
	assert.False(t, isClosed(waiter, 30*time.Millisecond))
	l.CountDown()
	assert.True(t, isClosed(waiter, time.Second))
}

// TestLatch_ZeroAndNegativeInitial
// Given: latches created with 0 and -5
// When: Wait is called
// Then: it returns immediately and Count is 0
func TestLatch_ZeroAndNegativeInitial(t *testing.T) {
	for _, initial := range []int{0, -5} {
		l := NewLatch(initial)
		assert.Equal(t, 0, l.Count())
		assert.True(t, isClosed(waitAsync(l), time.Second))
		require.NoError(t, l.WaitContext(context.Background()))
	}
}

// TestLatch_ConcurrentCountDown
// Given: a latch of 100
// When: 100 goroutines count down concurrently
// Then: Wait returns and the count is exactly zero
func TestLatch_ConcurrentCountDown(t *testing.T) {
	l := NewLatch(100)
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.CountDown()
		}()
	}

	assert.True(t, isClosed(waitAsync(l), 2*time.Second))
	wg.Wait()
	assert.Equal(t, 0, l.Count())
}

// TestLatch_AsBarrier
// Given: a latch sized to a pool
// When: every member counts down from its own thread
// Then: the submitter unblocks once all members have run
func TestLatch_AsBarrier(t *testing.T) {
	p, err := NewWorkerPoolWithConfig("barrier", 4, quietConfig())
	require.NoError(t, err)
	t.Cleanup(p.Stop)

	l := NewLatch(p.Size())
	for range p.Size() {
		p.Submit(l.CountDown)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.WaitContext(ctx))
}

package core

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedPool(t testing.TB, n int) *WorkerPool {
	t.Helper()
	p, err := NewWorkerPoolWithConfig("test", n, quietConfig())
	require.NoError(t, err)
	t.Cleanup(p.Stop)
	return p
}

// currentMember returns the index of the member running the caller, or -1.
func currentMember(p *WorkerPool) int {
	for i := range p.Size() {
		if p.Worker(i).IsCurrent() {
			return i
		}
	}
	return -1
}

// TestWorkerPool_StartsBoundMembers
// Given: a pool of 3
// When: the constructor returns
// Then: every member is bound, named after the pool, and on its own thread
func TestWorkerPool_StartsBoundMembers(t *testing.T) {
	p := startedPool(t, 3)

	require.Equal(t, 3, p.Size())
	assert.True(t, p.IsRunning())
	for i := range p.Size() {
		w := p.Worker(i)
		assert.True(t, w.IsBound(), "member %d", i)
		assert.Equal(t, []string{"test-0", "test-1", "test-2"}[i], w.Name())
	}
}

// TestWorkerPool_RoundRobin
// Given: a pool of 3
// When: 9 tasks are dispatched one after another
// Then: task k runs on member k mod 3
func TestWorkerPool_RoundRobin(t *testing.T) {
	p := startedPool(t, 3)

	got := make([]int, 9)
	for k := range got {
		require.NoError(t, p.SubmitAndWait(func() {
			got[k] = currentMember(p)
		}))
	}

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, got)
	assert.Equal(t, uint64(9), p.Stats().Dispatched)
}

// TestWorkerPool_SubmitRunsEverything
// Given: a pool of 4
// When: 200 fire-and-forget tasks are submitted
// Then: all of them run and each member ran its share
func TestWorkerPool_SubmitRunsEverything(t *testing.T) {
	p := startedPool(t, 4)

	var mu sync.Mutex
	perMember := make(map[int]int)
	l := NewLatch(200)
	for range 200 {
		p.Submit(func() {
			idx := currentMember(p)
			mu.Lock()
			perMember[idx]++
			mu.Unlock()
			l.CountDown()
		})
	}
	l.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[int]int{0: 50, 1: 50, 2: 50, 3: 50}, perMember)
}

// TestWorkerPool_DefaultSize
// Given: a requested size of 0
// When: the pool is created
// Then: it has GOMAXPROCS members
func TestWorkerPool_DefaultSize(t *testing.T) {
	p := startedPool(t, 0)
	assert.Equal(t, runtime.GOMAXPROCS(0), p.Size())
}

// TestWorkerPool_StopIsIdempotent
// Given: a running pool
// When: Stop is called twice
// Then: every member is stopped and later submissions are rejected
func TestWorkerPool_StopIsIdempotent(t *testing.T) {
	p, err := NewWorkerPoolWithConfig("stop", 2, quietConfig())
	require.NoError(t, err)

	p.Stop()
	p.Stop()

	assert.False(t, p.IsRunning())
	for i := range p.Size() {
		assert.True(t, p.Worker(i).IsStopped())
	}
	assert.ErrorIs(t, p.SubmitAndWait(func() {}), ErrWorkerStopped)

	stats := p.Stats()
	assert.False(t, stats.Running)
	assert.Equal(t, 2, stats.Workers)
	assert.Len(t, stats.Members, 2)
}

// TestWorkerPool_PanicStaysOnMember
// Given: a pool of 2
// When: a task panics
// Then: the caller gets a *PanicError and the member keeps serving
func TestWorkerPool_PanicStaysOnMember(t *testing.T) {
	p := startedPool(t, 2)

	err := p.SubmitAndWait(func() { panic("boom") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)

	for range 4 {
		assert.NoError(t, p.SubmitAndWait(func() {}))
	}
	assert.Equal(t, int64(1), p.Worker(0).Stats().Panicked)
}

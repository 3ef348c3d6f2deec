package core

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// WorkerPool is a fixed set of spawned Workers with round-robin dispatch.
//
// The k-th submitted task goes to worker k mod N. There is no load
// awareness: under skewed task durations one member's queue can grow while
// the others idle. Use it for background work that has no thread-affinity
// requirement of its own.
type WorkerPool struct {
	name    string
	workers []*Worker
	next    atomic.Uint64
	logger  Logger

	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewWorkerPool starts n workers with the default configuration.
func NewWorkerPool(n int) (*WorkerPool, error) {
	return NewWorkerPoolWithConfig("pool", n, nil)
}

// NewWorkerPoolWithConfig starts n workers named "<name>-<i>" and returns
// once every one of them is bound to its thread. n <= 0 uses GOMAXPROCS.
//
// If any worker fails to start, the ones already started are stopped and
// the error is returned.
func NewWorkerPoolWithConfig(name string, n int, cfg *WorkerConfig) (*WorkerPool, error) {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	c := cfg.withDefaults()

	p := &WorkerPool{
		name:    name,
		workers: make([]*Worker, n),
		logger:  c.Logger,
	}
	for i := range p.workers {
		p.workers[i] = NewWorkerWithConfig(fmt.Sprintf("%s-%d", name, i), &c)
	}

	var g errgroup.Group
	for _, w := range p.workers {
		g.Go(w.Start)
	}
	if err := g.Wait(); err != nil {
		p.Stop()
		return nil, fmt.Errorf("start pool %q: %w", name, err)
	}

	p.logger.Debug("pool started", F("pool", name), F("workers", n))
	return p, nil
}

// pick returns the worker for the next dispatch.
func (p *WorkerPool) pick() *Worker {
	k := p.next.Add(1) - 1
	return p.workers[k%uint64(len(p.workers))]
}

// Submit dispatches task to the next worker in round-robin order.
func (p *WorkerPool) Submit(task Task) {
	p.pick().Submit(task)
}

// SubmitAndWait dispatches task to the next worker and waits for it.
func (p *WorkerPool) SubmitAndWait(task Task) error {
	return p.pick().SubmitAndWait(task)
}

// Worker returns member i.
func (p *WorkerPool) Worker(i int) *Worker {
	return p.workers[i]
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// Name returns the pool name; members are named after it.
func (p *WorkerPool) Name() string {
	return p.name
}

// IsRunning returns whether the pool is running
func (p *WorkerPool) IsRunning() bool {
	return !p.stopped.Load()
}

// Stop stops every member and waits for all of them to exit. Tasks still
// queued on any member are discarded. Stop is idempotent.
//
// Stop must not be called from a task running on the pool: the member
// running that task would be waited on by its own stop.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)

		var g errgroup.Group
		for _, w := range p.workers {
			g.Go(func() error {
				w.Stop()
				return nil
			})
		}
		_ = g.Wait()

		p.logger.Debug("pool stopped", F("pool", p.name), F("dispatched", p.next.Load()))
	})
}

// Stats returns a snapshot of the pool and each member.
func (p *WorkerPool) Stats() PoolStats {
	stats := PoolStats{
		Name:       p.name,
		Workers:    len(p.workers),
		Dispatched: p.next.Load(),
		Running:    p.IsRunning(),
		Members:    make([]WorkerStats, len(p.workers)),
	}
	for i, w := range p.workers {
		ws := w.Stats()
		stats.Members[i] = ws
		stats.Pending += ws.Pending
	}
	return stats
}

package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-thread-worker/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// WorkerSnapshotProvider provides current worker stats snapshots.
type WorkerSnapshotProvider interface {
	Stats() core.WorkerStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports worker/pool Stats() snapshots into Prometheus gauges.
//
// Counters kept by the workers themselves (executed, panicked, ...) are
// exported as gauges holding the latest snapshot value.
type SnapshotPoller struct {
	interval time.Duration

	workersMu sync.RWMutex
	workers   map[string]WorkerSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	workerPending   *prom.GaugeVec
	workerExecuted  *prom.GaugeVec
	workerPanicked  *prom.GaugeVec
	workerRejected  *prom.GaugeVec
	workerDiscarded *prom.GaugeVec
	workerBound     *prom.GaugeVec

	poolPending    *prom.GaugeVec
	poolDispatched *prom.GaugeVec
	poolWorkers    *prom.GaugeVec
	poolRunning    *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSnapshotGauge(name, help string, labels ...string) *prom.GaugeVec {
	return prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "threadworker",
		Name:      name,
		Help:      help,
	}, labels)
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval: interval,
		workers:  make(map[string]WorkerSnapshotProvider),
		pools:    make(map[string]PoolSnapshotProvider),

		workerPending:   newSnapshotGauge("worker_pending", "Number of queued tasks per worker.", "worker"),
		workerExecuted:  newSnapshotGauge("worker_executed", "Tasks executed per worker (snapshot).", "worker"),
		workerPanicked:  newSnapshotGauge("worker_panicked", "Tasks that panicked per worker (snapshot).", "worker"),
		workerRejected:  newSnapshotGauge("worker_rejected", "Tasks submitted after stop per worker (snapshot).", "worker"),
		workerDiscarded: newSnapshotGauge("worker_discarded", "Tasks dropped at stop per worker (snapshot).", "worker"),
		workerBound:     newSnapshotGauge("worker_bound", "Worker bound state (1=bound, 0=idle or stopped).", "worker"),

		poolPending:    newSnapshotGauge("pool_pending", "Queued tasks across a pool.", "pool"),
		poolDispatched: newSnapshotGauge("pool_dispatched", "Tasks dispatched by a pool (snapshot).", "pool"),
		poolWorkers:    newSnapshotGauge("pool_workers", "Worker count per pool.", "pool"),
		poolRunning:    newSnapshotGauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.workerPending, &p.workerExecuted, &p.workerPanicked,
		&p.workerRejected, &p.workerDiscarded, &p.workerBound,
		&p.poolPending, &p.poolDispatched, &p.poolWorkers, &p.poolRunning,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}
	return p, nil
}

// AddWorker adds or replaces a worker snapshot provider by name.
func (p *SnapshotPoller) AddWorker(name string, provider WorkerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "worker")
	p.workersMu.Lock()
	p.workers[name] = provider
	p.workersMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	cancel()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce takes one snapshot of every registered provider.
func (p *SnapshotPoller) CollectOnce() {
	p.workersMu.RLock()
	for name, provider := range p.workers {
		p.setWorker(name, provider.Stats())
	}
	p.workersMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.poolDispatched.WithLabelValues(name).Set(float64(stats.Dispatched))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
		for _, member := range stats.Members {
			p.setWorker(normalizeLabel(member.Name, name), member)
		}
	}
	p.poolsMu.RUnlock()
}

func (p *SnapshotPoller) setWorker(name string, stats core.WorkerStats) {
	p.workerPending.WithLabelValues(name).Set(float64(stats.Pending))
	p.workerExecuted.WithLabelValues(name).Set(float64(stats.Executed))
	p.workerPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
	p.workerRejected.WithLabelValues(name).Set(float64(stats.Rejected))
	p.workerDiscarded.WithLabelValues(name).Set(float64(stats.Discarded))
	p.workerBound.WithLabelValues(name).Set(boolGauge(stats.State == core.WorkerBound))
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

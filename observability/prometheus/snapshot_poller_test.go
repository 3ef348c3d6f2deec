package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-thread-worker/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerStub struct {
	stats core.WorkerStats
}

func (s workerStub) Stats() core.WorkerStats { return s.stats }

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

// TestSnapshotPoller_CollectsWorkerAndPoolStats verifies the polling loop exports snapshots
// Given: a poller with a worker stub and a pool stub
// When: the poller is started
// Then: gauges eventually mirror the stub values, pool members included
func TestSnapshotPoller_CollectsWorkerAndPoolStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	require.NoError(t, err)

	poller.AddWorker("main", workerStub{stats: core.WorkerStats{
		Name:      "main",
		State:     core.WorkerBound,
		Pending:   3,
		Executed:  10,
		Rejected:  2,
		Discarded: 1,
	}})
	poller.AddPool("pool", poolStub{stats: core.PoolStats{
		Name:       "pool",
		Workers:    2,
		Pending:    4,
		Dispatched: 9,
		Running:    true,
		Members: []core.WorkerStats{
			{Name: "pool-0", State: core.WorkerBound, Pending: 4},
			{Name: "pool-1", State: core.WorkerStopped},
		},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	require.Eventually(t, func() bool {
		pending := testutil.ToFloat64(poller.workerPending.WithLabelValues("main"))
		dispatched := testutil.ToFloat64(poller.poolDispatched.WithLabelValues("pool"))
		return pending == 3 && dispatched == 9
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(poller.workerBound.WithLabelValues("main")))
	assert.Equal(t, 10.0, testutil.ToFloat64(poller.workerExecuted.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poller.poolRunning.WithLabelValues("pool")))
	assert.Equal(t, 2.0, testutil.ToFloat64(poller.poolWorkers.WithLabelValues("pool")))
	assert.Equal(t, 4.0, testutil.ToFloat64(poller.workerPending.WithLabelValues("pool-0")))
	assert.Equal(t, 0.0, testutil.ToFloat64(poller.workerBound.WithLabelValues("pool-1")))
}

// TestSnapshotPoller_LivePool verifies a real pool can be polled
// Given: a running pool of 2 that has dispatched 4 tasks
// When: one collection runs
// Then: the dispatch count and member bound state are exported
func TestSnapshotPoller_LivePool(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Hour)
	require.NoError(t, err)

	pool, err := core.NewWorkerPoolWithConfig("live", 2, &core.WorkerConfig{Logger: core.NewNoOpLogger()})
	require.NoError(t, err)
	defer pool.Stop()

	for range 4 {
		require.NoError(t, pool.SubmitAndWait(func() {}))
	}
	poller.AddPool("live", pool)
	poller.CollectOnce()

	assert.Equal(t, 4.0, testutil.ToFloat64(poller.poolDispatched.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poller.workerBound.WithLabelValues("live-0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(poller.workerExecuted.WithLabelValues("live-1")))
}

// TestSnapshotPoller_StartStopIdempotent verifies lifecycle calls are safe to repeat
func TestSnapshotPoller_StartStopIdempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 5*time.Millisecond)
	require.NoError(t, err)

	poller.Start(context.Background())
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()

	poller.Start(context.Background())
	poller.Stop()
}

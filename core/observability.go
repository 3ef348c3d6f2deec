package core

// WorkerState is the lifecycle state of a Worker.
type WorkerState int32

const (
	// WorkerIdle: constructed, tasks may be queued, no thread bound yet.
	WorkerIdle WorkerState = iota
	// WorkerBound: a thread is bound and draining the queue.
	WorkerBound
	// WorkerStopped: terminal.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBound:
		return "bound"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// WorkerStats represents runtime observability state for a worker.
type WorkerStats struct {
	Name        string
	State       WorkerState
	GoroutineID uint64
	OSThreadID  int
	Pending     int
	Executed    int64
	Panicked    int64
	Rejected    int64
	Discarded   int64
}

// PoolStats represents runtime observability state for a worker pool.
type PoolStats struct {
	Name       string
	Workers    int
	Pending    int
	Dispatched uint64
	Running    bool
	Members    []WorkerStats
}

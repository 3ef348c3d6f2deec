package threadworker

import "github.com/Swind/go-thread-worker/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the threadworker package for most use cases.

// Task is the unit of work
type Task = core.Task

// Runner is implemented by Worker and WorkerPool
type Runner = core.Runner

// Worker executes tasks on exactly one OS thread
type Worker = core.Worker

// WorkerPool dispatches tasks round-robin over spawned Workers
type WorkerPool = core.WorkerPool

// Latch is a resettable countdown latch
type Latch = core.Latch

// ResourceStack owns release actions in nested groups
type ResourceStack = core.ResourceStack

// ResourceHold pops one ResourceStack group
type ResourceHold = core.ResourceHold

// WorkerConfig holds the logger, metrics and panic handler of a worker
type WorkerConfig = core.WorkerConfig

// Error values, re-exported for errors.Is.
var (
	ErrDoubleBind     = core.ErrDoubleBind
	ErrWorkerStopped  = core.ErrWorkerStopped
	ErrStackUnderflow = core.ErrStackUnderflow
	ErrUnbalancedHold = core.ErrUnbalancedHold
)

// PanicError wraps a value recovered from a panicking task
type PanicError = core.PanicError

// NewWorker creates an unbound Worker.
func NewWorker(name string) *Worker {
	return core.NewWorker(name)
}

// NewWorkerPool starts a pool of n workers; n <= 0 uses GOMAXPROCS.
func NewWorkerPool(n int) (*WorkerPool, error) {
	return core.NewWorkerPool(n)
}

// NewLatch creates a latch with the given count.
func NewLatch(count int) *Latch {
	return core.NewLatch(count)
}

// NewResourceStack creates a stack holding one empty base group.
func NewResourceStack() *ResourceStack {
	return core.NewResourceStack()
}

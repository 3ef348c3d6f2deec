package core

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Swind/go-thread-worker/internal/goid"
)

// Worker executes tasks on exactly one OS thread.
//
// A Worker owns a TaskQueue and is bound to a thread at most once, either by
// spawning a goroutine locked to a fresh OS thread (Start / Bind(true)) or
// by parking the calling goroutine (Run / Bind(false)). The second form is
// how the process main thread, which windowing and graphics APIs require,
// becomes a Worker.
//
// Thread Safety:
// - Submit, SubmitAndWait, Stop and the accessors may be called from any goroutine.
// - Tasks submitted by one goroutine run in submission order.
// - A task submitted from the bound goroutine runs inline, so a Worker never waits on itself.
// - A panicking task is recovered, reported, and the loop keeps going.
//
// Tasks still queued when the Worker stops are discarded.
type Worker struct {
	name  string
	queue *TaskQueue

	state    atomic.Int32
	boundGID atomic.Uint64
	tid      atomic.Int64
	spawned  atomic.Bool

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	executed  atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64
	discarded atomic.Int64
}

// NewWorker creates an unbound Worker with the default configuration.
func NewWorker(name string) *Worker {
	return NewWorkerWithConfig(name, nil)
}

// NewWorkerWithConfig creates an unbound Worker. A nil cfg uses defaults.
func NewWorkerWithConfig(name string, cfg *WorkerConfig) *Worker {
	c := cfg.withDefaults()
	return &Worker{
		name:         name,
		queue:        NewTaskQueue(),
		stopCh:       make(chan struct{}),
		done:         make(chan struct{}),
		logger:       c.Logger,
		metrics:      c.Metrics,
		panicHandler: c.PanicHandler,
	}
}

// Name returns the name of the worker
func (w *Worker) Name() string {
	return w.name
}

// Start spawns a dedicated thread and binds it. Equivalent to Bind(true).
func (w *Worker) Start() error {
	return w.Bind(true)
}

// Run parks the calling goroutine on this worker and drains the queue until
// Stop is called. Equivalent to Bind(false).
//
// To run on the process main thread, call runtime.LockOSThread from an init
// function and call Run from main.main.
func (w *Worker) Run() error {
	return w.Bind(false)
}

// Bind binds the worker to a thread and starts the drain loop.
//
// With spawn set, a new goroutine is started and locked to its own OS
// thread; Bind returns once that goroutine holds the binding. Without
// spawn, the calling goroutine is locked and runs the loop itself; Bind
// returns nil after Stop.
//
// Binding an already bound worker returns a *DoubleBindError. Binding a
// stopped worker returns ErrWorkerStopped.
func (w *Worker) Bind(spawn bool) error {
	if !spawn {
		return w.park(nil)
	}

	ready := make(chan error, 1)
	go func() {
		_ = w.park(ready)
	}()
	return <-ready
}

// park binds the calling goroutine and runs the loop on it.
func (w *Worker) park(ready chan<- error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := w.bind(ready != nil); err != nil {
		if ready != nil {
			ready <- err
		}
		return err
	}
	if ready != nil {
		ready <- nil
	}

	w.loop()
	return nil
}

func (w *Worker) bind(spawned bool) error {
	gid := goid.Get()
	if !w.state.CompareAndSwap(int32(WorkerIdle), int32(WorkerBound)) {
		if WorkerState(w.state.Load()) == WorkerBound {
			err := &DoubleBindError{Worker: w.name, GoroutineID: w.boundGID.Load()}
			w.logger.Error("rejected second bind", F("worker", w.name), F("goroutine", gid), F("error", err))
			return err
		}
		return ErrWorkerStopped
	}
	w.boundGID.Store(gid)
	w.tid.Store(int64(osThreadID()))
	w.spawned.Store(spawned)

	w.logger.Info("worker bound",
		F("worker", w.name),
		F("goroutine", gid),
		F("os_thread", w.tid.Load()),
		F("spawned", w.spawned.Load()),
	)
	return nil
}

// loop is the drain loop; it occupies the bound goroutine until Stop.
func (w *Worker) loop() {
	defer w.finish()

	for {
		select {
		case <-w.stopCh:
			return
		case <-w.queue.Signal():
		}

		batch := w.queue.Drain()
		if len(batch) == 0 {
			continue
		}
		w.metrics.RecordQueueDepth(w.name, 0)

		for i, t := range batch {
			if w.stopRequested() {
				w.discard(batch[i:])
				return
			}
			t()
			batch[i] = nil
		}
	}
}

// finish closes the queue, drops what is left and releases Stop and any
// SubmitAndWait callers.
func (w *Worker) finish() {
	w.discard(w.queue.Close())
	w.boundGID.Store(0)

	w.logger.Info("worker stopped",
		F("worker", w.name),
		F("executed", w.executed.Load()),
		F("panicked", w.panicked.Load()),
		F("discarded", w.discarded.Load()),
	)
	close(w.done)
}

func (w *Worker) discard(tasks []Task) {
	if len(tasks) == 0 {
		return
	}
	w.discarded.Add(int64(len(tasks)))
	for range tasks {
		w.metrics.RecordTaskRejected(w.name, "discarded")
	}
	w.logger.Debug("discarded queued tasks", F("worker", w.name), F("count", len(tasks)))
}

func (w *Worker) stopRequested() bool {
	select {
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// execute runs task with panic recovery and accounting. The returned error
// is a *PanicError if the task panicked.
func (w *Worker) execute(task Task) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			w.panicked.Add(1)
			w.metrics.RecordTaskPanic(w.name, r)
			w.panicHandler.HandlePanic(w.name, r, stack)
			err = &PanicError{Value: r, Stack: stack}
		}
		w.executed.Add(1)
		w.metrics.RecordTaskDuration(w.name, time.Since(start))
	}()

	task()
	return nil
}

// enqueue pushes an already wrapped task. It reports false if the worker
// no longer accepts tasks.
func (w *Worker) enqueue(t Task) bool {
	depth, ok := w.queue.Push(t)
	if !ok {
		w.reject()
		return false
	}
	w.metrics.RecordQueueDepth(w.name, depth)
	return true
}

func (w *Worker) reject() {
	w.rejected.Add(1)
	w.metrics.RecordTaskRejected(w.name, "stopped")
	w.logger.Warn("task submitted to stopped worker", F("worker", w.name))
}

// Submit schedules task on the bound thread.
//
// Called from the bound goroutine, task runs inline before Submit returns.
// Otherwise it is appended to the queue; tasks queued before the worker is
// bound run once it is. Submissions after Stop are dropped and counted as
// rejected.
func (w *Worker) Submit(task Task) {
	if task == nil {
		return
	}
	if w.IsCurrent() {
		if w.IsStopped() {
			w.reject()
			return
		}
		_ = w.execute(task)
		return
	}
	w.enqueue(func() {
		_ = w.execute(task)
	})
}

// SubmitAndWait schedules task like Submit and blocks until it has run.
//
// The result is nil on success, a *PanicError if the task panicked, or
// ErrWorkerStopped if the worker stopped before running it.
func (w *Worker) SubmitAndWait(task Task) error {
	return w.SubmitAndWaitContext(context.Background(), task)
}

// SubmitAndWaitContext is SubmitAndWait with cancellation. If ctx ends
// first, ctx.Err() is returned and the task stays queued; it may still run.
func (w *Worker) SubmitAndWaitContext(ctx context.Context, task Task) error {
	if task == nil {
		return nil
	}
	if w.IsCurrent() {
		if w.IsStopped() {
			w.reject()
			return ErrWorkerStopped
		}
		return w.execute(task)
	}

	result := make(chan error, 1)
	if !w.enqueue(func() {
		result <- w.execute(task)
	}) {
		return ErrWorkerStopped
	}

	select {
	case err := <-result:
		return err
	case <-w.done:
		// The loop may have run the task just before exiting.
		select {
		case err := <-result:
			return err
		default:
			return ErrWorkerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitIdle blocks until every task queued before the call has run.
//
// This is implemented by posting a barrier task and waiting for it. Called
// from the bound goroutine it returns immediately.
func (w *Worker) WaitIdle(ctx context.Context) error {
	return w.SubmitAndWaitContext(ctx, func() {})
}

// Stop stops the worker. The task in flight finishes; everything still
// queued is discarded and SubmitAndWait callers get ErrWorkerStopped.
//
// Stop blocks until the loop has exited, except when called from the bound
// goroutine itself, where it only requests the stop. Stop is idempotent.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		prev := WorkerState(w.state.Swap(int32(WorkerStopped)))
		close(w.stopCh)
		if prev == WorkerIdle {
			// Never bound: no loop will run finish for us.
			w.finish()
		}
	})

	if w.IsCurrent() {
		return
	}
	<-w.done
}

// Done is closed once the worker has stopped and its loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// State returns the lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// IsBound reports whether a thread is currently bound and draining.
func (w *Worker) IsBound() bool {
	return w.State() == WorkerBound
}

// IsStopped reports whether Stop has been called.
func (w *Worker) IsStopped() bool {
	return w.State() == WorkerStopped
}

// IsCurrent reports whether the caller is running on the bound goroutine.
func (w *Worker) IsCurrent() bool {
	gid := w.boundGID.Load()
	if gid == 0 {
		return false
	}
	return goid.Get() == gid
}

// Pending returns the number of queued tasks.
func (w *Worker) Pending() int {
	return w.queue.Len()
}

// Stats returns a snapshot of the worker's state and counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Name:        w.name,
		State:       w.State(),
		GoroutineID: w.boundGID.Load(),
		OSThreadID:  int(w.tid.Load()),
		Pending:     w.queue.Len(),
		Executed:    w.executed.Load(),
		Panicked:    w.panicked.Load(),
		Rejected:    w.rejected.Load(),
		Discarded:   w.discarded.Load(),
	}
}

package core

// Task is the unit of work: a zero-argument closure executed on a worker's
// bound thread. A Task may panic; the worker recovers and reports it.
type Task func()

// Runner is anything that can execute tasks on a particular thread.
// Worker and WorkerPool both implement it.
type Runner interface {
	// Submit enqueues task without waiting for it.
	Submit(task Task)

	// SubmitAndWait enqueues task and blocks until it has finished.
	SubmitAndWait(task Task) error
}

var (
	_ Runner = (*Worker)(nil)
	_ Runner = (*WorkerPool)(nil)
)

package core

import (
	"sync"
)

const defaultQueueCap = 16

// TaskQueue is an unbounded FIFO of tasks, safe for many producers and the
// single consumer that owns it.
//
// Producers call Push. The owner blocks on Signal and then takes the whole
// backlog with Drain. Signal has a buffer of one, so a push that happens
// between the owner's Drain and its next receive is never missed.
//
// Once closed, Push refuses new tasks. Close and Push share the queue lock,
// so a task is either handed back by Close or refused by Push, never lost
// in between.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  []Task
	closed bool
	signal chan struct{}
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tasks:  make([]Task, 0, defaultQueueCap),
		signal: make(chan struct{}, 1),
	}
}

// Push appends t at the tail and wakes the owner. It returns the depth
// after the push, and false if the queue is closed.
func (q *TaskQueue) Push(t Task) (int, bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0, false
	}
	q.tasks = append(q.tasks, t)
	depth := len(q.tasks)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return depth, true
}

// Drain removes and returns every queued task in FIFO order. It returns nil
// when the queue is empty.
func (q *TaskQueue) Drain() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	batch := q.tasks
	// Fresh backing array: the caller owns batch from here on.
	q.tasks = make([]Task, 0, defaultQueueCap)
	return batch
}

// Signal returns the wake channel pulsed by Push.
func (q *TaskQueue) Signal() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// IsEmpty reports whether nothing is queued.
func (q *TaskQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear removes all tasks from the queue and releases references.
// It returns how many tasks were dropped.
func (q *TaskQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.tasks)
	q.tasks = make([]Task, 0, defaultQueueCap)
	return n
}

// Close refuses further pushes and returns whatever was still queued.
// Closing twice returns nil the second time.
func (q *TaskQueue) Close() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	rest := q.tasks
	q.tasks = nil
	return rest
}

// IsClosed reports whether Close has been called.
func (q *TaskQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

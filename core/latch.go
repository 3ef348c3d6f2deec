package core

import (
	"context"
	"sync"
)

// Latch is a reusable countdown synchronizer.
//
// Wait blocks while the count is above zero. CountDown decrements (never
// below zero) and releases every waiter when the count reaches zero.
// CountUp increments, re-arming a latch that has already opened.
//
// The open state is a channel that is closed when the count reaches zero
// and replaced when CountUp leaves zero, so waiters block in the runtime
// rather than polling.
type Latch struct {
	mu    sync.Mutex
	count int
	zero  chan struct{}
}

// NewLatch creates a latch with the given initial count. Negative values
// are treated as zero.
func NewLatch(initial int) *Latch {
	l := &Latch{
		count: max(initial, 0),
		zero:  make(chan struct{}),
	}
	if l.count == 0 {
		close(l.zero)
	}
	return l
}

// opened returns the channel that is closed while the count is zero.
func (l *Latch) opened() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zero
}

// Wait blocks until the count is zero. It returns immediately if it
// already is.
func (l *Latch) Wait() {
	<-l.opened()
}

// WaitContext is Wait with cancellation.
func (l *Latch) WaitContext(ctx context.Context) error {
	select {
	case <-l.opened():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CountDown decrements the count and wakes all waiters when it reaches
// zero. At zero it is a no-op.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.zero)
	}
}

// CountUp increments the count. Leaving zero re-arms the latch so later
// calls to Wait block again; waiters that were already released stay
// released.
func (l *Latch) CountUp() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		l.zero = make(chan struct{})
	}
	l.count++
}

// Count returns the current count.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

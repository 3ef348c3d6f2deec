package core

import (
	"errors"
	"fmt"
)

var (
	// ErrDoubleBind is matched by every DoubleBindError.
	ErrDoubleBind = errors.New("worker is already bound to a thread")

	// ErrWorkerStopped is returned when a worker can no longer run tasks,
	// either because Bind was called after Stop or because a waited task was
	// discarded during teardown.
	ErrWorkerStopped = errors.New("worker is stopped")

	// ErrStackUnderflow is returned by Pop when only the base group is left.
	ErrStackUnderflow = errors.New("resource stack: cannot pop the base group")

	// ErrUnbalancedHold is returned by ResourceHold.Release when a group pushed
	// after the hold is still on the stack.
	ErrUnbalancedHold = errors.New("resource stack: hold released out of order")
)

// DoubleBindError reports an attempt to bind a Worker that already has a
// bound thread.
type DoubleBindError struct {
	Worker      string
	GoroutineID uint64
}

func (e *DoubleBindError) Error() string {
	return fmt.Sprintf("worker %q is already bound to goroutine %d", e.Worker, e.GoroutineID)
}

// Unwrap allows errors.Is(err, ErrDoubleBind).
func (e *DoubleBindError) Unwrap() error {
	return ErrDoubleBind
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error, so that errors.Is and
// errors.As see through the panic.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ReleaseError reports a release action that failed while popping a group.
type ReleaseError struct {
	// Depth is the 1-based depth of the group being released (1 = base group).
	Depth int
	// Index is the attachment index of the action within its group.
	Index int
	Err   error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("resource stack: release %d of group %d failed: %v", e.Index, e.Depth, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

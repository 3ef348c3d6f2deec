package core

import (
	"errors"
	"sync"
)

// ResourceHold scopes one resource group, similar to a lock guard.
//
// Creating a hold pushes a group on its stack; Release pops that group.
// Pair them with defer so the group is released on every exit path,
// including early error returns and panics:
//
//	hold := stack.Hold()
//	defer hold.Release()
//	stack.Attach(buffer)
type ResourceHold struct {
	stack *ResourceStack
	group uint64

	mu       sync.Mutex
	released bool
	err      error
}

// NewResourceHold pushes a new group on stack.
func NewResourceHold(stack *ResourceStack) *ResourceHold {
	return &ResourceHold{
		stack: stack,
		group: stack.push(),
	}
}

// Release pops the hold's group and returns any release failures. The
// group is released once; later calls return the same result.
//
// If a group pushed after this hold is still on the stack, Release returns
// ErrUnbalancedHold and pops nothing, and may be called again once the
// inner group is gone. If the group was already released by
// ResourceStack.Close, Release returns nil.
func (h *ResourceHold) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return h.err
	}
	err := h.stack.popGroup(h.group)
	if errors.Is(err, ErrUnbalancedHold) {
		return err
	}
	h.released = true
	h.err = err
	return err
}

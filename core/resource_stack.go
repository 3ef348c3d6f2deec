package core

import (
	"errors"
	"io"
	"runtime/debug"
	"sync"
)

// ResourceStack is a tiered owner of release actions.
//
// The stack holds groups; each group is an ordered list of release actions
// recorded by Attach while that group was on top. Push opens a new group,
// Pop runs every action of the top group in attachment order and removes
// it. Groups nest LIFO; actions within a group do not.
//
// A base group always exists. Popping it is a contract violation reported
// as ErrStackUnderflow; Close is the way to release it at teardown.
//
// All methods are safe for concurrent use. Release actions run outside the
// stack lock, so an action may itself attach, push or pop.
type ResourceStack struct {
	name    string
	logger  Logger
	metrics Metrics

	mu     sync.Mutex
	groups []*resourceGroup
	nextID uint64
}

type resourceGroup struct {
	id       uint64
	releases []func() error
}

// ResourceStackConfig holds optional collaborators for a ResourceStack.
type ResourceStackConfig struct {
	// Logger receives release failures. Defaults to NewDefaultLogger().
	Logger Logger

	// Metrics counts release failures. Defaults to NilMetrics.
	Metrics Metrics
}

// NewResourceStack creates a stack holding one empty base group.
func NewResourceStack() *ResourceStack {
	return NewResourceStackWithConfig("resources", nil)
}

// NewResourceStackWithConfig creates a named stack. A nil cfg uses defaults.
func NewResourceStackWithConfig(name string, cfg *ResourceStackConfig) *ResourceStack {
	s := &ResourceStack{name: name}
	if cfg != nil {
		s.logger = cfg.Logger
		s.metrics = cfg.Metrics
	}
	if s.logger == nil {
		s.logger = NewDefaultLogger()
	}
	if s.metrics == nil {
		s.metrics = &NilMetrics{}
	}
	s.groups = []*resourceGroup{s.newGroupLocked()}
	return s
}

func (s *ResourceStack) newGroupLocked() *resourceGroup {
	s.nextID++
	return &resourceGroup{id: s.nextID}
}

// Name returns the stack name used in logs and metrics.
func (s *ResourceStack) Name() string {
	return s.name
}

// Push opens a new empty group on top of the stack.
func (s *ResourceStack) Push() {
	s.push()
}

func (s *ResourceStack) push() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.newGroupLocked()
	s.groups = append(s.groups, g)
	return g.id
}

// Pop releases the top group: every action runs, in the order it was
// attached, then the group is removed. A failing action is logged and the
// rest still run; all failures are joined into the returned error.
//
// Pop returns ErrStackUnderflow, and releases nothing, when only the base
// group is left.
func (s *ResourceStack) Pop() error {
	s.mu.Lock()
	if len(s.groups) <= 1 {
		s.mu.Unlock()
		return ErrStackUnderflow
	}
	depth := len(s.groups)
	top := s.takeTopLocked()
	s.mu.Unlock()

	return s.release(depth, top)
}

// popGroup pops the group with the given id if it is on top. It returns
// ErrUnbalancedHold if the group is buried under a later one, and nil if
// the group is already gone. id always comes from push, so it never names
// the base group.
func (s *ResourceStack) popGroup(id uint64) error {
	s.mu.Lock()
	depth := len(s.groups)
	if s.groups[depth-1].id != id {
		buried := false
		for _, g := range s.groups[:depth-1] {
			if g.id == id {
				buried = true
				break
			}
		}
		s.mu.Unlock()
		if buried {
			return ErrUnbalancedHold
		}
		return nil
	}
	top := s.takeTopLocked()
	s.mu.Unlock()

	return s.release(depth, top)
}

func (s *ResourceStack) takeTopLocked() *resourceGroup {
	n := len(s.groups)
	top := s.groups[n-1]
	s.groups[n-1] = nil
	s.groups = s.groups[:n-1]
	return top
}

// Attach hands res to the top group; res.Close is called exactly once,
// when that group is released. The stack owns res from here on.
func (s *ResourceStack) Attach(res io.Closer) {
	if res == nil {
		return
	}
	s.AttachFunc(res.Close)
}

// AttachFunc records a bare release action against the top group.
func (s *ResourceStack) AttachFunc(release func() error) {
	if release == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	top := s.groups[len(s.groups)-1]
	top.releases = append(top.releases, release)
}

// AttachOn is Attach for thread-affine resources: res.Close is executed on
// runner (for example the worker owning a graphics context) and the release
// waits for it.
func (s *ResourceStack) AttachOn(runner Runner, res io.Closer) {
	if res == nil {
		return
	}
	s.AttachFunc(func() error {
		var closeErr error
		if err := runner.SubmitAndWait(func() {
			closeErr = res.Close()
		}); err != nil {
			return err
		}
		return closeErr
	})
}

// Depth returns the number of groups, base group included.
func (s *ResourceStack) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// Pending returns the number of release actions in the top group.
func (s *ResourceStack) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups[len(s.groups)-1].releases)
}

// Hold pushes a group and returns the hold that pops it.
func (s *ResourceStack) Hold() *ResourceHold {
	return NewResourceHold(s)
}

// Close releases every group from the top down, the base group included,
// and leaves the stack with a fresh empty base group.
func (s *ResourceStack) Close() error {
	s.mu.Lock()
	groups := s.groups
	s.groups = []*resourceGroup{s.newGroupLocked()}
	s.mu.Unlock()

	var errs []error
	for depth := len(groups); depth >= 1; depth-- {
		if err := s.release(depth, groups[depth-1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// release runs every action of g in attachment order.
func (s *ResourceStack) release(depth int, g *resourceGroup) error {
	var errs []error
	for i, fn := range g.releases {
		if err := s.runRelease(fn); err != nil {
			rerr := &ReleaseError{Depth: depth, Index: i, Err: err}
			s.metrics.RecordReleaseFailure(s.name)
			s.logger.Error("resource release failed",
				F("stack", s.name),
				F("depth", depth),
				F("index", i),
				F("error", err),
			)
			errs = append(errs, rerr)
		}
		g.releases[i] = nil
	}
	return errors.Join(errs...)
}

func (s *ResourceStack) runRelease(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

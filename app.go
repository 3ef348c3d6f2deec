package threadworker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/Swind/go-thread-worker/core"
	"github.com/rs/zerolog"
)

// ErrAlreadyRan is returned by Application.Run on its second call.
var ErrAlreadyRan = errors.New("threadworker: application already ran")

// Config configures an Application.
type Config struct {
	// Name prefixes worker, pool and stack names. Defaults to "app".
	Name string

	// PoolSize is the number of background workers. <= 0 uses GOMAXPROCS.
	PoolSize int

	// LogLevel is a zerolog level name ("debug", "info", ...). Ignored when
	// Logger is set.
	LogLevel string

	// Logger overrides the zerolog console logger.
	Logger core.Logger

	// Metrics receives worker and release metrics. Defaults to NilMetrics.
	Metrics core.Metrics

	// PanicHandler overrides the logging panic handler.
	PanicHandler core.PanicHandler
}

// DefaultConfig returns the configuration used by New when fields are left empty.
func DefaultConfig() Config {
	return Config{
		Name:     "app",
		PoolSize: 0,
		LogLevel: zerolog.InfoLevel.String(),
	}
}

// Application bundles the pieces a thread-affine program needs: a Worker
// for the process main thread, a WorkerPool for background work, and a
// ResourceStack whose contents are released on the main thread at exit.
//
// There are no package level singletons; pass the Application (or the
// pieces it owns) to the code that needs them.
type Application struct {
	Main      *core.Worker
	Pool      *core.WorkerPool
	Resources *core.ResourceStack

	name   string
	logger core.Logger
	hold   *core.ResourceHold

	ctx    context.Context
	cancel context.CancelFunc

	ran      atomic.Bool
	closing  atomic.Bool
	closed   chan struct{}
	closeErr error
}

// RunFunc is the body of an application. It runs on its own goroutine
// while the main thread serves app.Main.
type RunFunc func(ctx context.Context, app *Application) error

// New creates the main worker (unbound), starts the pool and opens the
// application's resource scope.
func New(cfg Config) (*Application, error) {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}

	logger := cfg.Logger
	if logger == nil {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("threadworker: log level: %w", err)
		}
		logger = core.NewLeveledLogger(level)
	}

	wc := &core.WorkerConfig{
		Logger:       logger,
		Metrics:      cfg.Metrics,
		PanicHandler: cfg.PanicHandler,
	}

	pool, err := core.NewWorkerPoolWithConfig(cfg.Name+"-pool", cfg.PoolSize, wc)
	if err != nil {
		return nil, err
	}

	resources := core.NewResourceStackWithConfig(cfg.Name, &core.ResourceStackConfig{
		Logger:  logger,
		Metrics: cfg.Metrics,
	})

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		Main:      core.NewWorkerWithConfig(cfg.Name+"-main", wc),
		Pool:      pool,
		Resources: resources,
		name:      cfg.Name,
		logger:    logger,
		hold:      resources.Hold(),
		ctx:       ctx,
		cancel:    cancel,
		closed:    make(chan struct{}),
	}
	logger.Debug("application created", core.F("app", cfg.Name), core.F("pool_size", pool.Size()))
	return app, nil
}

// Context is cancelled when the application closes.
func (a *Application) Context() context.Context {
	return a.ctx
}

// Run binds the calling goroutine as the main worker and runs fn on a new
// goroutine. Run returns after fn has returned and the application has been
// closed; the result joins fn's error with any release failure.
//
// Call Run from main.main with the main goroutine locked to the main
// thread (runtime.LockOSThread in an init function). A panic in fn is
// returned as a *core.PanicError.
func (a *Application) Run(fn RunFunc) error {
	if !a.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRan
	}
	if a.Main.State() != core.WorkerIdle {
		return fmt.Errorf("threadworker: main worker is %s", a.Main.State())
	}

	result := make(chan error, 1)
	// fn starts only once the main worker is bound, so it can submit to it at once.
	a.Main.Submit(func() {
		go func() {
			err := a.call(fn)
			// Off the main thread, so Main keeps draining while the pool stops.
			_ = a.Close()
			result <- err
		}()
	})

	if err := a.Main.Run(); err != nil {
		_ = a.Close()
		return err
	}

	err := <-result
	return errors.Join(err, a.Close())
}

func (a *Application) call(fn RunFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.PanicError{Value: r, Stack: debug.Stack()}
			a.logger.Error("application body panicked", core.F("app", a.name), core.F("panic", r))
		}
	}()
	return fn(a.ctx, a)
}

// Close tears the application down: the resource stack is released on the
// main thread while it is still served, then the pool is stopped, then the
// main worker. Every call waits for the teardown and returns the same
// error.
//
// If the main worker was never bound it is stopped first, so resources
// attached with AttachOn(app.Main, ...) report ErrWorkerStopped instead of
// waiting forever. Called from a main worker task, Close starts the
// teardown and returns nil at once; the teardown completes after the task
// returns. Close must not be called from a pool task, and release actions
// must not wait on pool tasks that themselves wait on the main thread.
func (a *Application) Close() error {
	if a.Main.IsCurrent() {
		go a.Close()
		return nil
	}
	if a.closing.CompareAndSwap(false, true) {
		a.teardown()
	}
	<-a.closed
	return a.closeErr
}

// teardown runs once, never on the main worker's goroutine.
func (a *Application) teardown() {
	defer close(a.closed)
	a.cancel()

	var relErr error
	switch a.Main.State() {
	case core.WorkerIdle:
		// Nothing will ever drain the main queue.
		a.Main.Stop()
		relErr = a.release()
	case core.WorkerBound:
		err := a.Main.SubmitAndWait(func() { relErr = a.release() })
		if errors.Is(err, core.ErrWorkerStopped) {
			// Main stopped before the release task ran.
			relErr = a.release()
		}
	default:
		relErr = a.release()
	}

	// Main is still draining here, so pool tasks blocked on it can finish.
	a.Pool.Stop()
	a.Main.Stop()

	a.closeErr = relErr
	a.logger.Debug("application closed", core.F("app", a.name), core.F("error", a.closeErr))
}

func (a *Application) release() error {
	var errs []error
	if err := a.hold.Release(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Resources.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

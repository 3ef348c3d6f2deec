package core

import (
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution.
// This allows custom panic handling, logging, and recovery strategies.
//
// Implementations should be thread-safe as they may be called concurrently
// from every worker of a pool.
type PanicHandler interface {
	// HandlePanic is called on the worker's bound thread after the panic has
	// been recovered.
	//
	// Parameters:
	// - workerName: The name of the worker where the panic occurred
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(workerName string, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics at error level through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic value and stack.
func (h *LoggingPanicHandler) HandlePanic(workerName string, panicInfo any, stackTrace []byte) {
	h.Logger.Error("task panicked",
		F("worker", workerName),
		F("panic", panicInfo),
		F("stack", stackTrace),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution performance.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute.
	RecordTaskDuration(workerName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(workerName string, panicInfo any)

	// RecordQueueDepth records the queue depth observed after a push or drain.
	RecordQueueDepth(workerName string, depth int)

	// RecordTaskRejected records that a task was rejected or discarded.
	// reason is "stopped" for submissions after Stop and "discarded" for
	// tasks dropped from the queue during teardown.
	RecordTaskRejected(workerName string, reason string)

	// RecordReleaseFailure records a resource release action that failed.
	RecordReleaseFailure(stackName string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(workerName string, duration time.Duration) {}
func (m *NilMetrics) RecordTaskPanic(workerName string, panicInfo any)             {}
func (m *NilMetrics) RecordQueueDepth(workerName string, depth int)                {}
func (m *NilMetrics) RecordTaskRejected(workerName string, reason string)          {}
func (m *NilMetrics) RecordReleaseFailure(stackName string)                        {}

// =============================================================================
// WorkerConfig: Configuration for Worker and WorkerPool
// =============================================================================

// WorkerConfig holds configuration options for workers.
// All fields are optional; nil fields are replaced with defaults.
type WorkerConfig struct {
	// Logger receives lifecycle events. Defaults to NewDefaultLogger().
	Logger Logger

	// Metrics records task execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a task panics. Defaults to a
	// LoggingPanicHandler on Logger.
	PanicHandler PanicHandler
}

// DefaultWorkerConfig returns a config with default handlers.
func DefaultWorkerConfig() *WorkerConfig {
	logger := NewDefaultLogger()
	return &WorkerConfig{
		Logger:       logger,
		Metrics:      &NilMetrics{},
		PanicHandler: &LoggingPanicHandler{Logger: logger},
	}
}

// withDefaults returns a copy of cfg with every nil field filled in.
func (cfg *WorkerConfig) withDefaults() WorkerConfig {
	var out WorkerConfig
	if cfg != nil {
		out = *cfg
	}
	if out.Logger == nil {
		out.Logger = NewDefaultLogger()
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &LoggingPanicHandler{Logger: out.Logger}
	}
	return out
}

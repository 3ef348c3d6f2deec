package core

import (
	"sync"
	"testing"
	"time"
)

// recordingMetrics is a Metrics fake that counts every call.
type recordingMetrics struct {
	mu              sync.Mutex
	durations       map[string]int
	panics          map[string]int
	rejected        map[string]int
	releaseFailures map[string]int
	lastDepth       map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		durations:       make(map[string]int),
		panics:          make(map[string]int),
		rejected:        make(map[string]int),
		releaseFailures: make(map[string]int),
		lastDepth:       make(map[string]int),
	}
}

func (m *recordingMetrics) RecordTaskDuration(workerName string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[workerName]++
}

func (m *recordingMetrics) RecordTaskPanic(workerName string, panicInfo any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[workerName]++
}

func (m *recordingMetrics) RecordQueueDepth(workerName string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDepth[workerName] = depth
}

func (m *recordingMetrics) RecordTaskRejected(workerName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) RecordReleaseFailure(stackName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseFailures[stackName]++
}

func (m *recordingMetrics) count(table map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return table[key]
}

// recordingPanicHandler remembers every recovered value.
type recordingPanicHandler struct {
	mu     sync.Mutex
	values []any
}

func (h *recordingPanicHandler) HandlePanic(workerName string, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, panicInfo)
}

func (h *recordingPanicHandler) recovered() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any(nil), h.values...)
}

func quietConfig() *WorkerConfig {
	return &WorkerConfig{Logger: NewNoOpLogger()}
}

// startedWorker returns a spawned worker that is stopped at test cleanup.
func startedWorker(t testing.TB, name string, cfg *WorkerConfig) *Worker {
	t.Helper()
	if cfg == nil {
		cfg = quietConfig()
	}
	w := NewWorkerWithConfig(name, cfg)
	if err := w.Start(); err != nil {
		t.Fatalf("start %s: %v", name, err)
	}
	t.Cleanup(w.Stop)
	return w
}

package core

import (
	"context"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution. The panic is
// still delivered to the task's Future as a *PanicError; the handler is for
// side effects such as reporting.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - ctx: The context the task ran with (carries the worker identity)
	// - poolName: The ID of the pool the task ran on
	// - workerID: The ID of the worker that ran the task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte)
}

// PanicHandlerFunc adapts a function to PanicHandler.
type PanicHandlerFunc func(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte)

func (f PanicHandlerFunc) HandlePanic(ctx context.Context, poolName string, workerID int, panicInfo any, stackTrace []byte) {
	f(ctx, poolName, workerID, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting task execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from worker goroutines on the hot path; they should be
// non-blocking and fast.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute and which
	// queue tier it was taken from.
	RecordTaskDuration(poolName string, source TaskSource, duration time.Duration)

	// RecordTaskFailed records a task that returned an error ("error") or
	// panicked ("panic").
	RecordTaskFailed(poolName string, reason string)

	// RecordTaskStolen records a task taken from a peer worker's queue.
	RecordTaskStolen(poolName string, workerID int)

	// RecordTaskAbandoned records tasks that never ran because the pool stopped.
	RecordTaskAbandoned(poolName string, count int)

	// RecordQueueDepth records the total number of queued tasks.
	RecordQueueDepth(poolName string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskDuration(poolName string, source TaskSource, duration time.Duration) {
}
func (m *NilMetrics) RecordTaskFailed(poolName string, reason string) {}
func (m *NilMetrics) RecordTaskStolen(poolName string, workerID int)  {}
func (m *NilMetrics) RecordTaskAbandoned(poolName string, count int)  {}
func (m *NilMetrics) RecordQueueDepth(poolName string, depth int)     {}

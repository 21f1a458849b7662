package worksteal

import (
	"context"

	"github.com/Swind/go-worksteal/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the worksteal package for most use cases.

// Pool is the work-stealing worker pool
type Pool = core.Pool

// Config holds the pool configuration
type Config = core.Config

// Option configures a Pool
type Option = core.Option

// Task is a fire-and-forget unit of work (Closure)
type Task = core.Task

// TaskWithResult is a unit of work producing a value or an error
type TaskWithResult[T any] = core.TaskWithResult[T]

// Future is the result handle returned by submission
type Future[T any] = core.Future[T]

// RoutingPolicy decides where submissions are queued
type RoutingPolicy = core.RoutingPolicy

// PoolStats and TaskExecutionRecord are the observability snapshots
type PoolStats = core.PoolStats
type TaskExecutionRecord = core.TaskExecutionRecord

// Error types
type PanicError = core.PanicError
type ShutdownTimeoutError = core.ShutdownTimeoutError
type StartError = core.StartError

// Routing constants
const (
	RoutingAffinity = core.RoutingAffinity
	RoutingRandom   = core.RoutingRandom
)

// Errors
var (
	ErrAbandoned       = core.ErrAbandoned
	ErrTaskExited      = core.ErrTaskExited
	ErrNotReady        = core.ErrNotReady
	ErrNilTask         = core.ErrNilTask
	ErrShutdownTimeout = core.ErrShutdownTimeout
	ErrInvalidConfig   = core.ErrInvalidConfig
	ErrWorkerStart     = core.ErrWorkerStart

	IsAbandoned = core.IsAbandoned
)

// Constructors and options
var (
	NewPool           = core.NewPool
	NewPoolWithConfig = core.NewPoolWithConfig
	DefaultConfig     = core.DefaultConfig
	NewSlogLogger     = core.NewSlogLogger

	ParseRoutingPolicy = core.ParseRoutingPolicy

	WithID              = core.WithID
	WithWorkers         = core.WithWorkers
	WithRouting         = core.WithRouting
	WithIdleSpins       = core.WithIdleSpins
	WithIdleBackoff     = core.WithIdleBackoff
	WithShutdownTimeout = core.WithShutdownTimeout
	WithLockOSThread    = core.WithLockOSThread
	WithHistoryCapacity = core.WithHistoryCapacity
	WithWorkerHooks     = core.WithWorkerHooks
	WithLogger          = core.WithLogger
	WithMetrics         = core.WithMetrics
	WithPanicHandler    = core.WithPanicHandler
)

// CurrentWorkerID retrieves the ID of the worker running the current task
var CurrentWorkerID = core.CurrentWorkerID

// Submit queues fn on pool and returns its result handle.
// Re-exported as a function because generic functions cannot be assigned.
func Submit[T any](ctx context.Context, pool *Pool, fn TaskWithResult[T]) *Future[T] {
	return core.Submit(ctx, pool, fn)
}

// SubmitNamed is Submit with a task name used in execution history.
func SubmitNamed[T any](ctx context.Context, pool *Pool, name string, fn TaskWithResult[T]) *Future[T] {
	return core.SubmitNamed(ctx, pool, name, fn)
}

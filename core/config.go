package core

import (
	"fmt"
	"runtime"
	"time"
)

// RoutingPolicy decides which queue a submission is pushed to.
type RoutingPolicy int

const (
	// RoutingAffinity pushes to the submitting worker's own queue when the
	// submission comes from inside a task of the same pool, and to the shared
	// queue otherwise. Continuations stay close to their producer.
	RoutingAffinity RoutingPolicy = iota

	// RoutingRandom pushes to a uniformly random worker queue regardless of the
	// caller. Bursts from outside the pool are spread evenly up front.
	RoutingRandom
)

func (r RoutingPolicy) String() string {
	switch r {
	case RoutingAffinity:
		return "affinity"
	case RoutingRandom:
		return "random"
	default:
		return fmt.Sprintf("RoutingPolicy(%d)", int(r))
	}
}

// ParseRoutingPolicy parses "affinity" or "random".
func ParseRoutingPolicy(s string) (RoutingPolicy, error) {
	switch s {
	case "affinity", "":
		return RoutingAffinity, nil
	case "random":
		return RoutingRandom, nil
	default:
		return 0, errInvalidConfig(fmt.Sprintf("unknown routing policy %q", s))
	}
}

const (
	// DefaultIdleSpins is the number of consecutive empty scans a worker
	// answers with runtime.Gosched before it starts sleeping.
	DefaultIdleSpins = 64

	// DefaultIdleBackoff is how long an idle worker sleeps between scans once
	// it has spun DefaultIdleSpins times.
	DefaultIdleBackoff = 50 * time.Microsecond

	// DefaultShutdownTimeout bounds how long Stop waits for workers.
	DefaultShutdownTimeout = 5 * time.Second
)

// Config contains all configuration options for a Pool.
type Config struct {
	// ID names the pool in logs, metrics and stats. Defaults to "worksteal".
	ID string

	// Workers is the number of workers. 0 means runtime.GOMAXPROCS(0).
	Workers int

	// Routing selects the submission routing policy. Defaults to RoutingAffinity.
	Routing RoutingPolicy

	// IdleSpins is the number of empty scans answered by yielding before the
	// worker falls back to sleeping IdleBackoff.
	IdleSpins int

	// IdleBackoff is the sleep between empty scans after IdleSpins.
	// 0 means the worker only ever yields.
	IdleBackoff time.Duration

	// ShutdownTimeout bounds how long Stop waits for workers to exit.
	// A value <= 0 waits forever.
	ShutdownTimeout time.Duration

	// LockOSThread pins every worker goroutine to its own OS thread.
	LockOSThread bool

	// HistoryCapacity is the number of task execution records kept for
	// RecentTasks. Defaults to 100.
	HistoryCapacity int

	// OnWorkerStart runs on the worker goroutine before it takes any task.
	// A non-nil error (or a panic) fails pool construction.
	OnWorkerStart func(workerID int) error

	// OnWorkerStop runs on the worker goroutine after it leaves its loop.
	OnWorkerStop func(workerID int)

	Logger       Logger
	Metrics      Metrics
	PanicHandler PanicHandler
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ID:              "worksteal",
		Workers:         0, // resolved to runtime.GOMAXPROCS(0)
		Routing:         RoutingAffinity,
		IdleSpins:       DefaultIdleSpins,
		IdleBackoff:     DefaultIdleBackoff,
		ShutdownTimeout: DefaultShutdownTimeout,
		HistoryCapacity: defaultTaskHistoryCapacity,
	}
}

// Validate checks the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errInvalidConfig("Workers must be >= 0")
	}

	if c.Routing != RoutingAffinity && c.Routing != RoutingRandom {
		return errInvalidConfig(fmt.Sprintf("unknown routing policy %d", int(c.Routing)))
	}

	if c.IdleSpins < 0 {
		return errInvalidConfig("IdleSpins must be >= 0")
	}

	if c.IdleBackoff < 0 {
		return errInvalidConfig("IdleBackoff must be >= 0")
	}

	if c.HistoryCapacity < 0 {
		return errInvalidConfig("HistoryCapacity must be >= 0")
	}

	return nil
}

// withDefaults fills zero-valued fields that have a non-zero default.
func (c Config) withDefaults() Config {
	if c.ID == "" {
		c.ID = "worksteal"
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = defaultTaskHistoryCapacity
	}
	if c.Logger == nil {
		c.Logger = NewNoOpLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	return c
}

// =============================================================================
// Functional options
// =============================================================================

// Option configures a Pool.
type Option func(*Config)

// WithID names the pool.
func WithID(id string) Option {
	return func(c *Config) { c.ID = id }
}

// WithWorkers sets the number of workers (0 = runtime.GOMAXPROCS(0)).
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithRouting selects the submission routing policy.
func WithRouting(r RoutingPolicy) Option {
	return func(c *Config) { c.Routing = r }
}

// WithIdleSpins sets how many empty scans are answered by yielding.
func WithIdleSpins(n int) Option {
	return func(c *Config) { c.IdleSpins = n }
}

// WithIdleBackoff sets the idle sleep between scans (0 = yield only).
func WithIdleBackoff(d time.Duration) Option {
	return func(c *Config) { c.IdleBackoff = d }
}

// WithShutdownTimeout bounds Stop. A value <= 0 waits forever.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// WithLockOSThread pins each worker to its own OS thread.
func WithLockOSThread(lock bool) Option {
	return func(c *Config) { c.LockOSThread = lock }
}

// WithHistoryCapacity sets the size of the execution history.
func WithHistoryCapacity(n int) Option {
	return func(c *Config) { c.HistoryCapacity = n }
}

// WithWorkerHooks installs worker lifecycle hooks. Either may be nil.
func WithWorkerHooks(onStart func(workerID int) error, onStop func(workerID int)) Option {
	return func(c *Config) {
		c.OnWorkerStart = onStart
		c.OnWorkerStop = onStop
	}
}

// WithLogger sets the logger. The pool never logs anywhere else.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithPanicHandler sets a handler called for every task panic.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *Config) { c.PanicHandler = h }
}

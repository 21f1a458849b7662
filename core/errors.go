package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors returned by the pool and by result handles.
var (
	// ErrAbandoned is returned by a Future whose task was still queued when the
	// pool shut down, or that was submitted after shutdown. The task never ran.
	ErrAbandoned = &PoolError{msg: "task abandoned, never ran"}

	// ErrTaskExited is delivered when a task ended its goroutine with
	// runtime.Goexit instead of returning. It wraps ErrAbandoned.
	ErrTaskExited error = taskExitedError{}

	// ErrNotReady is returned by Future.TryGet before the task has resolved.
	ErrNotReady = &PoolError{msg: "result not ready"}

	// ErrNilTask is delivered through the Future when a nil function is submitted.
	ErrNilTask = &PoolError{msg: "task is nil"}

	// ErrShutdownTimeout is wrapped by ShutdownTimeoutError.
	ErrShutdownTimeout = &PoolError{msg: "shutdown timed out"}

	// ErrInvalidConfig is wrapped by configuration validation failures.
	ErrInvalidConfig = &PoolError{msg: "invalid config"}

	// ErrWorkerStart is wrapped by StartError.
	ErrWorkerStart = &PoolError{msg: "worker failed to start"}
)

// PoolError is the error type behind the package sentinels. It may wrap an
// underlying error.
type PoolError struct {
	msg string
	err error
}

func (e *PoolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("worksteal: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("worksteal: %s", e.msg)
}

func (e *PoolError) Unwrap() error {
	return e.err
}

type taskExitedError struct{}

func (taskExitedError) Error() string { return "worksteal: task exited its goroutine" }

func (taskExitedError) Unwrap() error { return ErrAbandoned }

func errInvalidConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// PanicError carries a panic recovered while running a task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worksteal: task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ShutdownTimeoutError is returned by Pool.Stop when some workers did not exit
// before the deadline. Those workers are detached: they finish their current
// task, observe the stop flag and exit on their own.
type ShutdownTimeoutError struct {
	WorkerIDs []int
	Timeout   time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	ids := make([]string, len(e.WorkerIDs))
	for i, id := range e.WorkerIDs {
		ids[i] = fmt.Sprint(id)
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("worksteal: shutdown timed out after %v, workers still running: [%s]",
			e.Timeout, strings.Join(ids, " "))
	}
	return fmt.Sprintf("worksteal: shutdown interrupted, workers still running: [%s]", strings.Join(ids, " "))
}

func (e *ShutdownTimeoutError) Unwrap() error {
	return ErrShutdownTimeout
}

// StartError is returned by NewPool when one or more workers failed to start.
// No worker of the failed pool is left running.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("worksteal: pool start failed: %v", e.Err)
}

func (e *StartError) Unwrap() []error {
	return []error{ErrWorkerStart, e.Err}
}

// errWorker tags err with the worker that produced it.
func errWorker(workerID int, err error) error {
	return fmt.Errorf("worker %d: %w", workerID, err)
}

// IsAbandoned reports whether err means the task never ran.
func IsAbandoned(err error) bool {
	return errors.Is(err, ErrAbandoned)
}

package core

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Task is the unit of work (Closure). Arguments are captured by the closure.
type Task func(ctx context.Context)

// TaskWithResult is a unit of work that produces a value or an error.
type TaskWithResult[T any] func(ctx context.Context) (T, error)

// TaskID identifies a submitted task. IDs are unique within a process.
type TaskID uint64

var lastTaskID atomic.Uint64

// GenerateTaskID returns a new process-unique task ID.
func GenerateTaskID() TaskID {
	return TaskID(lastTaskID.Add(1))
}

func (id TaskID) String() string {
	return fmt.Sprintf("task-%d", uint64(id))
}

// =============================================================================
// taskItem: the queued, type-erased form of a submission
// =============================================================================

// taskOutcome is what a worker learns from running a task.
type taskOutcome struct {
	err      error
	panicked bool
	exited   bool
}

// taskItem binds a computation to its Future. The zero value is an empty
// placeholder that is never run.
type taskItem struct {
	id         TaskID
	name       string
	enqueuedAt time.Time

	run     func(ctx context.Context) taskOutcome
	abandon func()
}

func (t taskItem) valid() bool {
	return t.run != nil
}

// bindTask wraps fn so that running it resolves fut exactly once. Errors and
// panics raised by fn are delivered through fut and never escape run. If fn
// calls runtime.Goexit, fut resolves to ErrTaskExited while the goroutine
// unwinds.
func bindTask[T any](name string, fn TaskWithResult[T], fut *Future[T]) taskItem {
	id := GenerateTaskID()
	return taskItem{
		id:   id,
		name: resolveTaskName(fn, name),
		run: func(ctx context.Context) taskOutcome {
			returned := false
			defer func() {
				if !returned {
					fut.abandonWith(ErrTaskExited)
				}
			}()
			v, panicked, err := callTask(ctx, fn)
			returned = true
			fut.resolve(v, err)
			return taskOutcome{err: err, panicked: panicked}
		},
		abandon: func() {
			fut.abandon()
		},
	}
}

func callTask[T any](ctx context.Context, fn TaskWithResult[T]) (v T, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			panicked = true
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	v, err = fn(ctx)
	return v, false, err
}

// adaptTask turns a fire-and-forget Task into a TaskWithResult.
func adaptTask(task Task) TaskWithResult[struct{}] {
	if task == nil {
		return nil
	}
	return func(ctx context.Context) (struct{}, error) {
		task(ctx)
		return struct{}{}, nil
	}
}

// resolveTaskName returns explicit if set, otherwise the function's symbol name.
func resolveTaskName(task any, explicit string) string {
	if explicit != "" {
		return explicit
	}

	if task == nil {
		return "anonymous"
	}

	v := reflect.ValueOf(task)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}

	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return "anonymous"
	}

	name := fn.Name()
	if name == "" {
		return "anonymous"
	}
	return name
}

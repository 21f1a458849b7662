package core

import (
	"context"
	"sync"
	"sync/atomic"
)

// FutureState is the resolution state of a Future.
type FutureState int32

const (
	FuturePending FutureState = iota
	FutureSucceeded
	FutureFailed
	FutureAbandoned
)

func (s FutureState) String() string {
	switch s {
	case FuturePending:
		return "pending"
	case FutureSucceeded:
		return "succeeded"
	case FutureFailed:
		return "failed"
	case FutureAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Future is the result handle of a submitted task. It resolves exactly once:
// with the task's value, with its error or panic, or with ErrAbandoned when
// the task never ran. Any number of goroutines may wait on it.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	state atomic.Int32

	// written once before done is closed
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done returns a channel that is closed once the Future has resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the Future has resolved.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// State returns the current resolution state.
func (f *Future[T]) State() FutureState {
	return FutureState(f.state.Load())
}

// Wait blocks until the Future resolves (returning nil, whatever the outcome)
// or ctx ends (returning ctx.Err()).
func (f *Future[T]) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get blocks until the Future resolves and returns its outcome. An abandoned
// task yields ErrAbandoned; a panicking task yields a *PanicError.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.value, f.err
}

// GetContext is like Get but gives up when ctx ends.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	if err := f.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return f.value, f.err
}

// TryGet returns the outcome without blocking, or ErrNotReady.
func (f *Future[T]) TryGet() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, ErrNotReady
	}
	return f.value, f.err
}

// resolve publishes the task outcome. Only the first resolution wins.
func (f *Future[T]) resolve(v T, err error) bool {
	state := FutureSucceeded
	if err != nil {
		state = FutureFailed
	}
	return f.complete(state, v, err)
}

func (f *Future[T]) abandon() bool {
	return f.abandonWith(ErrAbandoned)
}

func (f *Future[T]) abandonWith(err error) bool {
	var zero T
	return f.complete(FutureAbandoned, zero, err)
}

func (f *Future[T]) complete(state FutureState, v T, err error) bool {
	won := false
	f.once.Do(func() {
		f.value = v
		f.err = err
		f.state.Store(int32(state))
		close(f.done)
		won = true
	})
	return won
}

package worksteal

import (
	"context"
	"sync"

	"github.com/Swind/go-worksteal/core"
)

// =============================================================================
// Global Pool Helper (Singleton)
// =============================================================================

var (
	globalPool *core.Pool
	globalMu   sync.Mutex
)

// InitGlobalPool creates and starts the global pool with the specified number
// of workers (0 = runtime.GOMAXPROCS(0)) and any extra options. Calling it
// again while a global pool exists is a no-op.
func InitGlobalPool(workers int, opts ...Option) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool != nil {
		return nil // Already initialized
	}

	opts = append([]Option{core.WithID("global-pool"), core.WithWorkers(workers)}, opts...)
	pool, err := core.NewPool(opts...)
	if err != nil {
		return err
	}
	globalPool = pool
	return nil
}

// GetGlobalPool returns the global pool instance.
// It panics if InitGlobalPool has not been called.
func GetGlobalPool() *Pool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		panic("global pool not initialized. Call InitGlobalPool() first.")
	}
	return globalPool
}

// ShutdownGlobalPool stops the global pool and forgets it, so a later
// InitGlobalPool starts a fresh one.
func ShutdownGlobalPool() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalPool == nil {
		return nil
	}
	err := globalPool.Stop()
	globalPool = nil
	return err
}

// Go submits fn to the global pool.
func Go[T any](ctx context.Context, fn TaskWithResult[T]) *Future[T] {
	return core.Submit(ctx, GetGlobalPool(), fn)
}

// Package worksteal provides a work-stealing task pool for Go.
//
// A Pool runs a fixed number of workers. Every worker owns a local FIFO queue
// and the pool owns one shared queue. A worker takes work from its own queue
// first, then from the shared queue, then steals from its peers, scanning them
// round-robin starting with its right-hand neighbour. No single lock
// serializes dispatch: every queue has its own pair of head and tail locks.
//
// # Quick Start
//
//	pool, err := worksteal.NewPool(worksteal.WithWorkers(4))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Stop()
//
//	fut := worksteal.Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
//		return 1 + 2, nil
//	})
//	v, err := fut.Get() // 3, nil
//
// # Result handles
//
// Submission never blocks and never fails synchronously; it returns a Future.
// A Future resolves exactly once, to the task's value, to the error it
// returned, to a *PanicError if it panicked, or to ErrAbandoned if the pool
// stopped before the task ran.
//
// # Routing
//
// With RoutingAffinity (the default), a task that submits more work passing
// its own ctx queues that work on its worker's local queue; submissions from
// outside the pool go to the shared queue. With RoutingRandom every
// submission goes to a uniformly random worker queue.
//
//	worksteal.Submit(ctx, pool, func(ctx context.Context) (int, error) {
//		child := worksteal.Submit(ctx, pool, step) // lands on this worker's queue
//		return child.Get()
//	})
//
// Beware that a task blocking on a Future it submitted ties up its worker;
// with a single worker that is a deadlock.
//
// # Shutdown
//
// Stop sets the stop flag, waits (bounded by the configured shutdown timeout)
// for every worker to finish its current task and leave its loop, then
// abandons every task still queued. Workers that fail to exit in time are
// reported through a *ShutdownTimeoutError and left to exit on their own.
//
// For more details, see https://github.com/Swind/go-worksteal
package worksteal

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/Swind/go-worksteal/core"
	"golang.org/x/sync/errgroup"
)

// expected is what every benchmark task must return.
const expected = 1 + 2

type scenario struct {
	Threads         int
	Tasks           int
	TaskDuration    time.Duration
	Producers       int
	Skew            bool
	Routing         core.RoutingPolicy
	ShutdownTimeout time.Duration

	// Observe, when set, is called with the pool right after it starts.
	Observe func(*core.Pool)
}

func (s scenario) validate() error {
	switch {
	case s.Threads < 0:
		return errors.New("threads must be >= 0")
	case s.Tasks < 1:
		return errors.New("tasks must be >= 1")
	case s.TaskDuration < 0:
		return errors.New("task-duration must be >= 0")
	case s.Producers < 1:
		return errors.New("producers must be >= 1")
	}
	return nil
}

type report struct {
	Threads int
	Tasks   int
	Skew    bool
	Routing core.RoutingPolicy

	Correct int
	Wrong   int
	Failed  int

	Elapsed time.Duration
	Ideal   time.Duration

	Stats       core.PoolStats
	ShutdownErr error
}

// idealDuration is ceil(tasks/threads) x d: the wall time of a perfect
// schedule with no overhead.
func idealDuration(tasks, threads int, d time.Duration) time.Duration {
	if threads < 1 {
		threads = 1
	}
	rounds := (tasks + threads - 1) / threads
	return time.Duration(rounds) * d
}

// runScenario starts a pool, runs the scenario's tasks, checks every result
// and stops the pool. Task failures are counted in the report; only setup
// errors and ctx cancellation are returned.
func runScenario(ctx context.Context, sc scenario, opts ...core.Option) (report, error) {
	if err := sc.validate(); err != nil {
		return report{}, err
	}

	threads := sc.Threads
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}

	opts = append([]core.Option{
		core.WithWorkers(threads),
		core.WithRouting(sc.Routing),
		core.WithShutdownTimeout(sc.ShutdownTimeout),
	}, opts...)

	pool, err := core.NewPool(opts...)
	if err != nil {
		return report{}, err
	}
	if sc.Observe != nil {
		sc.Observe(pool)
	}

	task := func(ctx context.Context) (int, error) {
		if sc.TaskDuration > 0 {
			time.Sleep(sc.TaskDuration)
		}
		return 1 + 2, nil
	}

	start := time.Now()
	var futures []*core.Future[int]
	if sc.Skew {
		futures, err = submitFromWorker(ctx, pool, sc.Tasks, task)
	} else {
		futures, err = submitFromProducers(ctx, pool, sc.Tasks, sc.Producers, task)
	}
	if err != nil {
		_ = pool.Stop()
		return report{}, err
	}

	rep := report{
		Threads: threads,
		Tasks:   sc.Tasks,
		Skew:    sc.Skew,
		Routing: sc.Routing,
		Ideal:   idealDuration(sc.Tasks, threads, sc.TaskDuration),
	}
	for _, f := range futures {
		v, err := f.GetContext(ctx)
		switch {
		case ctx.Err() != nil:
			_ = pool.Stop()
			return report{}, ctx.Err()
		case err != nil:
			rep.Failed++
		case v != expected:
			rep.Wrong++
		default:
			rep.Correct++
		}
	}
	rep.Elapsed = time.Since(start)

	rep.ShutdownErr = pool.Stop()
	rep.Stats = pool.Stats()
	return rep, nil
}

// submitFromProducers splits tasks over n goroutines submitting from outside
// the pool.
func submitFromProducers(ctx context.Context, pool *core.Pool, tasks, n int, task core.TaskWithResult[int]) ([]*core.Future[int], error) {
	futures := make([]*core.Future[int], tasks)

	g, gctx := errgroup.WithContext(ctx)
	for p := range n {
		g.Go(func() error {
			for i := p; i < tasks; i += n {
				if err := gctx.Err(); err != nil {
					return err
				}
				futures[i] = core.Submit(gctx, pool, task)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return futures, nil
}

// submitFromWorker submits every task from inside a single pool task. With
// affinity routing they all land on that worker's queue and the other
// workers only get work by stealing.
func submitFromWorker(ctx context.Context, pool *core.Pool, tasks int, task core.TaskWithResult[int]) ([]*core.Future[int], error) {
	return core.SubmitNamed(ctx, pool, "producer", func(wctx context.Context) ([]*core.Future[int], error) {
		futures := make([]*core.Future[int], tasks)
		for i := range futures {
			futures[i] = core.Submit(wctx, pool, task)
		}
		return futures, nil
	}).GetContext(ctx)
}

func (r report) print(w io.Writer) {
	mode := "producers"
	if r.Skew {
		mode = "skew"
	}
	fmt.Fprintf(w, "workers:   %d (%s routing, %s)\n", r.Threads, r.Routing, mode)
	fmt.Fprintf(w, "tasks:     %d\n", r.Tasks)
	fmt.Fprintf(w, "results:   %d correct, %d wrong, %d failed\n", r.Correct, r.Wrong, r.Failed)
	fmt.Fprintf(w, "wall time: %v\n", r.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(w, "ideal:     %v\n", r.Ideal)
	if r.Ideal > 0 {
		fmt.Fprintf(w, "ratio:     %.2f\n", float64(r.Elapsed)/float64(r.Ideal))
	}
	fmt.Fprintf(w, "stolen:    %d\n", r.Stats.Stolen)
	for _, ws := range r.Stats.WorkerStats {
		fmt.Fprintf(w, "  worker %d: executed=%d local=%d shared=%d stolen=%d\n",
			ws.WorkerID, ws.Executed, ws.LocalHits, ws.SharedHits, ws.Stolen)
	}
	if r.ShutdownErr != nil {
		fmt.Fprintf(w, "shutdown:  %v\n", r.ShutdownErr)
	}
}

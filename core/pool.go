package core

import (
	"cmp"
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// queueDepthSampleEvery controls how often submissions report queue depth.
const queueDepthSampleEvery = 64

// Pool is a fixed set of workers, one local queue per worker and one shared
// queue. Idle workers steal from their peers. All methods are safe for
// concurrent use.
type Pool struct {
	cfg Config

	shared  *ConcurrentQueue[taskItem]
	queues  []*ConcurrentQueue[taskItem] // queues[i] belongs to workers[i]; length fixed
	workers []*worker

	// stopped is the only pool-wide value read by every worker on every
	// iteration. It goes false -> true once.
	stopped atomic.Bool

	active    atomic.Int32
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	stolen    atomic.Uint64
	abandoned atomic.Uint64

	stopOnce sync.Once
	stopErr  error
}

// NewPool creates and starts a pool configured by opts.
//
// Example:
//
//	pool, err := core.NewPool(
//	    core.WithWorkers(4),
//	    core.WithRouting(core.RoutingRandom),
//	)
func NewPool(opts ...Option) (*Pool, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewPoolWithConfig(cfg)
}

// NewPoolWithConfig creates and starts a pool. It allocates every local queue
// before starting any worker. If a worker fails to start, the stop flag is set
// at once, every started worker is waited for, and a *StartError is returned;
// no worker of the failed pool keeps running.
func NewPoolWithConfig(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	n := cfg.Workers
	p := &Pool{
		cfg:     cfg,
		shared:  NewConcurrentQueue[taskItem](),
		queues:  make([]*ConcurrentQueue[taskItem], n),
		workers: make([]*worker, n),
	}

	for i := range n {
		p.queues[i] = NewConcurrentQueue[taskItem]()
	}
	for i := range n {
		p.workers[i] = newWorker(i, p, p.queues[i])
	}

	started := make(chan error, n)
	for _, w := range p.workers {
		go w.run(started)
	}

	var errs []error
	for range n {
		if err := <-started; err != nil {
			p.stopped.Store(true)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		for _, w := range p.workers {
			<-w.done
		}
		err := &StartError{Err: errors.Join(errs...)}
		cfg.Logger.Error("pool start failed", F("pool", cfg.ID), F("error", err))
		return nil, err
	}

	cfg.Logger.Info("pool started",
		F("pool", cfg.ID),
		F("workers", n),
		F("routing", cfg.Routing.String()),
	)
	return p, nil
}

// =============================================================================
// Submission
// =============================================================================

// Submit queues fn on p and returns its result handle immediately. It never
// blocks and never fails synchronously: a nil fn resolves to ErrNilTask and a
// submission to a stopped pool resolves to ErrAbandoned.
//
// ctx is used for routing only. Under RoutingAffinity, passing the ctx a task
// received queues the new task on the submitting worker's own queue.
func Submit[T any](ctx context.Context, p *Pool, fn TaskWithResult[T]) *Future[T] {
	return SubmitNamed(ctx, p, "", fn)
}

// SubmitNamed is Submit with a task name used in execution history.
func SubmitNamed[T any](ctx context.Context, p *Pool, name string, fn TaskWithResult[T]) *Future[T] {
	fut := newFuture[T]()
	if fn == nil {
		var zero T
		fut.resolve(zero, ErrNilTask)
		return fut
	}
	p.enqueue(ctx, bindTask(name, fn, fut))
	return fut
}

// PostTask queues a fire-and-forget task. The returned Future resolves when
// the task has run (or carries its panic) or was abandoned.
func (p *Pool) PostTask(ctx context.Context, task Task) *Future[struct{}] {
	return p.PostTaskNamed(ctx, "", task)
}

// PostTaskNamed is PostTask with a task name used in execution history.
func (p *Pool) PostTaskNamed(ctx context.Context, name string, task Task) *Future[struct{}] {
	return SubmitNamed(ctx, p, resolveTaskName(task, name), adaptTask(task))
}

func (p *Pool) enqueue(ctx context.Context, item taskItem) {
	if p.stopped.Load() {
		item.abandon()
		p.recordAbandoned(1)
		return
	}

	item.enqueuedAt = time.Now()
	q := p.route(ctx)

	submitted := p.submitted.Add(1)
	q.Push(item)

	// Stop may have drained the queues between the check above and the push.
	// Whoever sees the flag after pushing abandons what is left, so a task is
	// never stranded.
	if p.stopped.Load() {
		p.abandonAll(q)
		return
	}

	if submitted%queueDepthSampleEvery == 0 {
		p.cfg.Metrics.RecordQueueDepth(p.cfg.ID, p.QueuedTaskCount())
	}
}

// route picks the queue for a new task according to the routing policy.
func (p *Pool) route(ctx context.Context) *ConcurrentQueue[taskItem] {
	switch p.cfg.Routing {
	case RoutingRandom:
		if len(p.queues) == 0 {
			return p.shared
		}
		return p.queues[rand.IntN(len(p.queues))]
	default:
		if w := p.workerFromContext(ctx); w != nil {
			return w.local
		}
		return p.shared
	}
}

// workerFromContext returns the worker of this pool carried by ctx, if any.
func (p *Pool) workerFromContext(ctx context.Context) *worker {
	if ctx == nil {
		return nil
	}
	w, ok := ctx.Value(workerKey).(*worker)
	if !ok || w.pool != p {
		return nil
	}
	return w
}

// =============================================================================
// Shutdown
// =============================================================================

// Stop shuts the pool down, waiting at most Config.ShutdownTimeout for the
// workers (forever if the timeout is <= 0). See StopContext.
func (p *Pool) Stop() error {
	ctx := context.Background()
	timeout := p.cfg.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.stop(ctx, timeout)
}

// StopContext sets the stop flag, waits for every worker to leave its loop
// until ctx ends, then abandons every task still queued: their Futures
// resolve to ErrAbandoned. Running tasks are never interrupted.
//
// Workers that did not exit in time are reported in a *ShutdownTimeoutError.
// They are detached, not killed: each exits by itself once its current task
// returns, and none of them keeps the process alive.
//
// Only the first call does the work; later calls return its result.
func (p *Pool) StopContext(ctx context.Context) error {
	return p.stop(ctx, 0)
}

func (p *Pool) stop(ctx context.Context, timeout time.Duration) error {
	p.stopOnce.Do(func() {
		p.stopErr = p.shutdown(ctx, timeout)
	})
	return p.stopErr
}

func (p *Pool) shutdown(ctx context.Context, timeout time.Duration) error {
	p.stopped.Store(true)
	p.cfg.Logger.Debug("stopping pool", F("pool", p.cfg.ID))

	var stuck []int
	for _, w := range p.workers {
		if !waitWorker(ctx, w) {
			stuck = append(stuck, w.id)
		}
	}

	abandoned := p.abandonQueued()
	p.cfg.Metrics.RecordQueueDepth(p.cfg.ID, 0)

	if len(stuck) > 0 {
		err := &ShutdownTimeoutError{WorkerIDs: stuck, Timeout: timeout}
		p.cfg.Logger.Warn("pool stopped with unresponsive workers",
			F("pool", p.cfg.ID),
			F("workers", stuck),
			F("abandoned", abandoned),
		)
		return err
	}

	p.cfg.Logger.Info("pool stopped", F("pool", p.cfg.ID), F("abandoned", abandoned))
	return nil
}

// waitWorker reports whether w exited before ctx ended.
func waitWorker(ctx context.Context, w *worker) bool {
	select {
	case <-w.done:
		return true
	default:
	}
	select {
	case <-w.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// abandonQueued gathers every queued task into one queue and abandons them.
func (p *Pool) abandonQueued() int {
	leftovers := NewConcurrentQueue[taskItem]()
	leftovers.TransferFrom(p.shared)
	for _, q := range p.queues {
		leftovers.TransferFrom(q)
	}
	return p.abandonAll(leftovers)
}

func (p *Pool) abandonAll(q *ConcurrentQueue[taskItem]) int {
	n := 0
	for {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		item.abandon()
		n++
	}
	p.recordAbandoned(n)
	return n
}

func (p *Pool) recordAbandoned(n int) {
	if n == 0 {
		return
	}
	p.abandoned.Add(uint64(n))
	p.cfg.Metrics.RecordTaskAbandoned(p.cfg.ID, n)
}

// =============================================================================
// Observability
// =============================================================================

// ID returns the pool ID.
func (p *Pool) ID() string {
	return p.cfg.ID
}

// WorkerCount returns the number of workers, fixed at construction.
func (p *Pool) WorkerCount() int {
	return len(p.workers)
}

// Routing returns the submission routing policy.
func (p *Pool) Routing() RoutingPolicy {
	return p.cfg.Routing
}

// IsRunning reports whether Stop has not been called yet.
func (p *Pool) IsRunning() bool {
	return !p.stopped.Load()
}

// QueuedTaskCount returns the approximate number of queued tasks.
func (p *Pool) QueuedTaskCount() int {
	total := p.shared.Len()
	for _, q := range p.queues {
		total += q.Len()
	}
	return total
}

// ActiveTaskCount returns the number of tasks running right now.
func (p *Pool) ActiveTaskCount() int {
	return int(p.active.Load())
}

// Stats returns a snapshot of pool statistics. Counters are read without a
// common lock and may be slightly inconsistent with each other.
func (p *Pool) Stats() PoolStats {
	workerStats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		workerStats[i] = w.stats()
	}

	return PoolStats{
		ID:           p.cfg.ID,
		Workers:      len(p.workers),
		Routing:      p.cfg.Routing.String(),
		Queued:       p.QueuedTaskCount(),
		SharedQueued: p.shared.Len(),
		Active:       p.ActiveTaskCount(),
		Submitted:    p.submitted.Load(),
		Completed:    p.completed.Load(),
		Failed:       p.failed.Load(),
		Stolen:       p.stolen.Load(),
		Abandoned:    p.abandoned.Load(),
		Running:      p.IsRunning(),
		WorkerStats:  workerStats,
	}
}

// RecentTasks returns up to limit execution records across all workers,
// newest first. limit <= 0 returns everything retained.
func (p *Pool) RecentTasks(limit int) []TaskExecutionRecord {
	var all []TaskExecutionRecord
	for _, w := range p.workers {
		all = append(all, w.history.Recent(0)...)
	}

	slices.SortFunc(all, func(a, b TaskExecutionRecord) int {
		return cmp.Compare(b.FinishedAt.UnixNano(), a.FinishedAt.UnixNano())
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

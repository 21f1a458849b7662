package core

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"
)

type workerState int32

const (
	workerStarting workerState = iota
	workerIdle
	workerRunning
	workerStopped
)

func (s workerState) String() string {
	switch s {
	case workerStarting:
		return "starting"
	case workerIdle:
		return "idle"
	case workerRunning:
		return "running"
	case workerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// =============================================================================
// Context Helper
// =============================================================================

type workerKeyType struct{}

var workerKey workerKeyType

// CurrentWorkerID returns the ID of the worker running the task that owns
// ctx. It reports false outside of pool tasks.
func CurrentWorkerID(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	if w, ok := ctx.Value(workerKey).(*worker); ok {
		return w.id, true
	}
	return 0, false
}

// =============================================================================
// worker: one execution loop bound to one local queue
// =============================================================================

// worker state is written only by its own goroutine; the atomics are there
// so Stats can read them.
type worker struct {
	id    int
	pool  *Pool
	local *ConcurrentQueue[taskItem]

	// ctx is handed to every task this worker runs; it identifies the worker
	// for affinity routing.
	ctx  context.Context
	done chan struct{}

	history *executionHistory

	state      atomic.Int32
	executed   atomic.Uint64
	failed     atomic.Uint64
	stolen     atomic.Uint64
	localHits  atomic.Uint64
	sharedHits atomic.Uint64
	restarts   atomic.Uint64
}

func newWorker(id int, pool *Pool, local *ConcurrentQueue[taskItem]) *worker {
	w := &worker{
		id:      id,
		pool:    pool,
		local:   local,
		done:    make(chan struct{}),
		history: newExecutionHistory(pool.cfg.HistoryCapacity),
	}
	w.ctx = context.WithValue(context.Background(), workerKey, w)
	w.state.Store(int32(workerStarting))
	return w
}

// run is the worker goroutine. It reports the start verdict on started
// exactly once, then serves until the pool's stop flag is set.
func (w *worker) run(started chan<- error) {
	if w.pool.cfg.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	if err := w.start(); err != nil {
		started <- errWorker(w.id, err)
		w.state.Store(int32(workerStopped))
		close(w.done)
		return
	}
	started <- nil

	w.serve()
}

// serve runs the loop on the calling goroutine. When a task ends that
// goroutine with runtime.Goexit, the loop carries on in a new one.
func (w *worker) serve() {
	returned := false
	defer func() {
		if !returned {
			w.restarts.Add(1)
			go w.resume()
			return
		}
		w.stopHook()
		w.state.Store(int32(workerStopped))
		close(w.done)
	}()

	w.loop()
	returned = true
}

func (w *worker) resume() {
	if w.pool.cfg.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	w.serve()
}

func (w *worker) start() (err error) {
	onStart := w.pool.cfg.OnWorkerStart
	if onStart == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start hook panicked: %v", r)
		}
	}()
	return onStart(w.id)
}

func (w *worker) stopHook() {
	onStop := w.pool.cfg.OnWorkerStop
	if onStop == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.pool.cfg.Logger.Error("stop hook panicked",
				F("pool", w.pool.cfg.ID),
				F("worker", w.id),
				F("panic", fmt.Sprint(r)),
				F("stack", string(debug.Stack())),
			)
		}
	}()
	onStop(w.id)
}

func (w *worker) loop() {
	stopped := &w.pool.stopped
	idleScans := 0

	for !stopped.Load() {
		item, source, ok := w.findTask()
		if !ok {
			idleScans++
			w.idle(idleScans)
			continue
		}

		idleScans = 0
		w.execute(item, source)
	}
}

// findTask tries, in order: own queue, shared queue, peers.
func (w *worker) findTask() (taskItem, TaskSource, bool) {
	if item, ok := w.local.TryPop(); ok {
		w.localHits.Add(1)
		return item, SourceLocal, true
	}

	if item, ok := w.pool.shared.TryPop(); ok {
		w.sharedHits.Add(1)
		return item, SourceShared, true
	}

	if item, ok := w.steal(); ok {
		w.stolen.Add(1)
		return item, SourceStolen, true
	}

	return taskItem{}, 0, false
}

// steal scans peers starting at id+1 around the ring, checking each peer
// exactly once, and takes the first task it finds.
func (w *worker) steal() (taskItem, bool) {
	queues := w.pool.queues
	n := len(queues)

	for i := 1; i < n; i++ {
		victim := (w.id + i) % n
		if item, ok := queues[victim].TryPop(); ok {
			w.pool.cfg.Metrics.RecordTaskStolen(w.pool.cfg.ID, w.id)
			return item, true
		}
	}
	return taskItem{}, false
}

// idle yields after an empty scan, and sleeps once the scan streak exceeds
// IdleSpins.
func (w *worker) idle(scans int) {
	w.state.Store(int32(workerIdle))

	cfg := &w.pool.cfg
	if cfg.IdleBackoff <= 0 || scans <= cfg.IdleSpins {
		runtime.Gosched()
		return
	}
	time.Sleep(cfg.IdleBackoff)
}

// execute runs item synchronously on this goroutine. The bookkeeping is
// deferred so it also happens when the task calls runtime.Goexit.
func (w *worker) execute(item taskItem, source TaskSource) {
	if !item.valid() {
		return
	}

	w.state.Store(int32(workerRunning))
	w.pool.active.Add(1)

	startedAt := time.Now()
	outcome := taskOutcome{err: ErrTaskExited, exited: true}
	defer func() {
		w.finish(item, source, startedAt, outcome)
	}()
	outcome = item.run(w.ctx)
}

func (w *worker) finish(item taskItem, source TaskSource, startedAt time.Time, outcome taskOutcome) {
	p := w.pool
	finishedAt := time.Now()

	p.active.Add(-1)
	w.state.Store(int32(workerIdle))

	w.executed.Add(1)
	p.completed.Add(1)
	if source == SourceStolen {
		p.stolen.Add(1)
	}

	duration := finishedAt.Sub(startedAt)
	p.cfg.Metrics.RecordTaskDuration(p.cfg.ID, source, duration)

	if outcome.err != nil {
		w.failed.Add(1)
		p.failed.Add(1)
		reason := "error"
		switch {
		case outcome.panicked:
			reason = "panic"
			w.reportPanic(item, outcome.err)
		case outcome.exited:
			reason = "exit"
			p.cfg.Logger.Warn("task exited its goroutine",
				F("pool", p.cfg.ID),
				F("worker", w.id),
				F("task", item.name),
			)
		}
		p.cfg.Metrics.RecordTaskFailed(p.cfg.ID, reason)
	}

	w.history.Add(TaskExecutionRecord{
		TaskID:     item.id,
		Name:       item.name,
		PoolName:   p.cfg.ID,
		WorkerID:   w.id,
		Source:     source,
		EnqueuedAt: item.enqueuedAt,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Duration:   duration,
		Failed:     outcome.err != nil,
		Panicked:   outcome.panicked,
		Exited:     outcome.exited,
	})
}

// reportPanic logs a task panic and forwards it to the PanicHandler. A
// panicking handler is contained so the worker stays in its loop.
func (w *worker) reportPanic(item taskItem, err error) {
	p := w.pool
	pe, _ := err.(*PanicError)
	if pe == nil {
		pe = &PanicError{Value: err}
	}

	p.cfg.Logger.Error("task panicked",
		F("pool", p.cfg.ID),
		F("worker", w.id),
		F("task", item.name),
		F("panic", fmt.Sprint(pe.Value)),
	)

	if p.cfg.PanicHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("panic handler panicked",
				F("pool", p.cfg.ID),
				F("worker", w.id),
				F("panic", fmt.Sprint(r)),
				F("stack", string(debug.Stack())),
			)
		}
	}()
	p.cfg.PanicHandler.HandlePanic(w.ctx, p.cfg.ID, w.id, pe.Value, pe.Stack)
}

func (w *worker) stats() WorkerStats {
	ws := WorkerStats{
		WorkerID:   w.id,
		State:      workerState(w.state.Load()).String(),
		QueueDepth: w.local.Len(),
		Executed:   w.executed.Load(),
		Failed:     w.failed.Load(),
		Stolen:     w.stolen.Load(),
		LocalHits:  w.localHits.Load(),
		SharedHits: w.sharedHits.Load(),
		Restarts:   w.restarts.Load(),
	}
	if last, ok := w.history.Last(); ok {
		ws.LastTaskAt = last.FinishedAt
		ws.LastTaskRun = last.Name
	}
	return ws
}

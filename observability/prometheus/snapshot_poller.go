package prometheus

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Swind/go-worksteal/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	poolQueued       *prom.GaugeVec
	poolSharedQueued *prom.GaugeVec
	poolActive       *prom.GaugeVec
	poolWorkers      *prom.GaugeVec
	poolRunning      *prom.GaugeVec
	poolSubmitted    *prom.GaugeVec
	poolCompleted    *prom.GaugeVec

	workerQueueDepth *prom.GaugeVec
	workerExecuted   *prom.GaugeVec
	workerStolen     *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "worksteal",
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval:         interval,
		pools:            make(map[string]PoolSnapshotProvider),
		poolQueued:       gauge("pool_queued", "Queued tasks per pool, all queues.", "pool"),
		poolSharedQueued: gauge("pool_shared_queued", "Tasks in the shared queue per pool.", "pool"),
		poolActive:       gauge("pool_active", "Running tasks per pool.", "pool"),
		poolWorkers:      gauge("pool_workers", "Worker count per pool.", "pool"),
		poolRunning:      gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),
		poolSubmitted:    gauge("pool_submitted", "Submitted task count snapshot.", "pool"),
		poolCompleted:    gauge("pool_completed", "Completed task count snapshot.", "pool"),
		workerQueueDepth: gauge("worker_queue_depth", "Tasks in a worker's local queue.", "pool", "worker"),
		workerExecuted:   gauge("worker_executed", "Tasks executed by a worker.", "pool", "worker"),
		workerStolen:     gauge("worker_stolen", "Tasks a worker stole from peers.", "pool", "worker"),
	}

	for _, g := range []**prom.GaugeVec{
		&p.poolQueued, &p.poolSharedQueued, &p.poolActive, &p.poolWorkers, &p.poolRunning,
		&p.poolSubmitted, &p.poolCompleted,
		&p.workerQueueDepth, &p.workerExecuted, &p.workerStolen,
	} {
		registered, err := registerCollector(reg, *g)
		if err != nil {
			return nil, err
		}
		*g = registered
	}

	return p, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// RemovePool stops exporting the named pool.
func (p *SnapshotPoller) RemovePool(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	delete(p.pools, name)
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolSharedQueued.WithLabelValues(name).Set(float64(stats.SharedQueued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolSubmitted.WithLabelValues(name).Set(float64(stats.Submitted))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}

		for _, ws := range stats.WorkerStats {
			worker := strconv.Itoa(ws.WorkerID)
			p.workerQueueDepth.WithLabelValues(name, worker).Set(float64(ws.QueueDepth))
			p.workerExecuted.WithLabelValues(name, worker).Set(float64(ws.Executed))
			p.workerStolen.WithLabelValues(name, worker).Set(float64(ws.Stolen))
		}
	}
}

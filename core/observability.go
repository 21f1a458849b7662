package core

import "time"

// TaskSource tells which acquisition tier a worker took a task from.
type TaskSource int

const (
	SourceLocal TaskSource = iota
	SourceShared
	SourceStolen
)

func (s TaskSource) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceShared:
		return "shared"
	case SourceStolen:
		return "stolen"
	default:
		return "unknown"
	}
}

// TaskExecutionRecord captures a completed task execution event.
type TaskExecutionRecord struct {
	TaskID     TaskID
	Name       string
	PoolName   string
	WorkerID   int
	Source     TaskSource
	EnqueuedAt time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Failed     bool
	Panicked   bool
	Exited     bool
}

// WorkerStats represents runtime observability state for one worker.
type WorkerStats struct {
	WorkerID    int
	State       string
	QueueDepth  int
	Executed    uint64
	Failed      uint64
	Stolen      uint64
	LocalHits   uint64
	SharedHits  uint64
	Restarts    uint64
	LastTaskAt  time.Time
	LastTaskRun string
}

// PoolStats represents runtime observability state for a pool.
type PoolStats struct {
	ID      string
	Workers int
	Routing string

	// Queued is the total of SharedQueued and every local queue.
	Queued       int
	SharedQueued int
	Active       int

	Submitted uint64
	Completed uint64
	Failed    uint64
	Stolen    uint64
	Abandoned uint64

	Running     bool
	WorkerStats []WorkerStats
}

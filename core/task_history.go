package core

import "sync"

const defaultTaskHistoryCapacity = 100

// executionHistory keeps the last few executions of one worker. Records are
// appended until the capacity is reached, after which the oldest slot is
// overwritten.
type executionHistory struct {
	mu      sync.Mutex
	records []TaskExecutionRecord
	limit   int
	written uint64
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &executionHistory{limit: capacity}
}

// Add stores a finished execution.
func (h *executionHistory) Add(record TaskExecutionRecord) {
	h.mu.Lock()
	if len(h.records) < h.limit {
		h.records = append(h.records, record)
	} else {
		h.records[h.written%uint64(h.limit)] = record
	}
	h.written++
	h.mu.Unlock()
}

// Recent copies out at most limit executions, the latest one first. A
// non-positive limit returns everything retained.
func (h *executionHistory) Recent(limit int) []TaskExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.records)
	if n == 0 {
		return nil
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]TaskExecutionRecord, n)
	for i := range out {
		out[i] = h.at(i)
	}
	return out
}

// Last is the latest execution, if the worker has finished any.
func (h *executionHistory) Last() (TaskExecutionRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == 0 {
		return TaskExecutionRecord{}, false
	}
	return h.at(0), true
}

// at returns the execution age steps back from the latest. Callers hold mu.
func (h *executionHistory) at(age int) TaskExecutionRecord {
	latest := (h.written - 1) % uint64(h.limit)
	idx := (latest + uint64(h.limit) - uint64(age)) % uint64(h.limit)
	return h.records[idx]
}

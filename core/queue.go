package core

import (
	"sync"
	"sync/atomic"
)

// queueSerial hands out a stable ordering key to every queue so that
// operations locking two queues always take the locks in the same order.
var queueSerial atomic.Uint64

type queueNode[T any] struct {
	value T
	next  *queueNode[T]
}

// =============================================================================
// ConcurrentQueue: unbounded FIFO with separate head and tail locks
// =============================================================================

// ConcurrentQueue is an unbounded FIFO safe for any number of producers and
// consumers. It is a singly-linked list that always ends in an empty sentinel
// node; head == tail means the queue is empty.
//
// Producers only take the tail lock and consumers only take the head lock, so
// a push and a pop contend only while the queue moves between its one-node
// and two-node states. TryPop reads the tail under the tail lock while holding
// the head lock (head before tail); no other single-queue operation holds both.
//
// A ConcurrentQueue must be created with NewConcurrentQueue and must not be
// copied after first use.
type ConcurrentQueue[T any] struct {
	serial uint64

	headMu sync.Mutex
	head   *queueNode[T]

	tailMu sync.Mutex
	tail   *queueNode[T] // not owning: always reachable from head

	length atomic.Int64
}

// NewConcurrentQueue returns an empty queue holding only its sentinel node.
func NewConcurrentQueue[T any]() *ConcurrentQueue[T] {
	sentinel := &queueNode[T]{}
	return &ConcurrentQueue[T]{
		serial: queueSerial.Add(1),
		head:   sentinel,
		tail:   sentinel,
	}
}

// Push appends v to the back of the queue. It never blocks beyond the
// tail-lock hold and never fails.
func (q *ConcurrentQueue[T]) Push(v T) {
	// Allocate the new sentinel outside the critical section.
	next := &queueNode[T]{}

	q.tailMu.Lock()
	q.tail.value = v
	q.tail.next = next
	q.tail = next
	q.tailMu.Unlock()

	q.length.Add(1)
}

// TryPop removes and returns the front value. It reports false when the
// queue is empty at the instant the head lock is held.
func (q *ConcurrentQueue[T]) TryPop() (T, bool) {
	q.headMu.Lock()
	defer q.headMu.Unlock()

	var zero T
	if q.head == q.loadTail() {
		return zero, false
	}

	old := q.head
	v := old.value
	q.head = old.next

	// Release references held by the discarded node.
	old.value = zero
	old.next = nil

	q.length.Add(-1)
	return v, true
}

// IsEmpty reports whether the queue was empty when checked. The answer may be
// stale by the time it is returned.
func (q *ConcurrentQueue[T]) IsEmpty() bool {
	q.headMu.Lock()
	defer q.headMu.Unlock()
	return q.head == q.loadTail()
}

// Len returns an approximate number of queued values.
func (q *ConcurrentQueue[T]) Len() int {
	n := q.length.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// TransferFrom moves every value queued in src to the back of q, preserving
// order, and leaves src empty. It returns the number of values moved.
//
// Both head locks are taken before both tail locks, and each pair is taken in
// queue serial order, so a transfer cannot deadlock with TryPop on either
// queue or with a concurrent transfer in the opposite direction.
func (q *ConcurrentQueue[T]) TransferFrom(src *ConcurrentQueue[T]) int {
	if src == nil || src == q {
		return 0
	}

	first, second := q, src
	if second.serial < first.serial {
		first, second = second, first
	}

	first.headMu.Lock()
	defer first.headMu.Unlock()
	second.headMu.Lock()
	defer second.headMu.Unlock()
	first.tailMu.Lock()
	defer first.tailMu.Unlock()
	second.tailMu.Lock()
	defer second.tailMu.Unlock()

	if src.head == src.tail {
		return 0
	}

	moved := 0
	for n := src.head; n != src.tail; n = n.next {
		moved++
	}

	// Our sentinel takes the first source value and the rest of the source
	// chain is linked behind it; the source sentinel becomes ours.
	srcHead := src.head
	q.tail.value = srcHead.value
	q.tail.next = srcHead.next
	q.tail = src.tail

	var zero T
	srcHead.value = zero
	srcHead.next = nil

	sentinel := &queueNode[T]{}
	src.head = sentinel
	src.tail = sentinel

	q.length.Add(int64(moved))
	src.length.Add(-int64(moved))
	return moved
}

// loadTail reads the tail pointer under the tail lock.
func (q *ConcurrentQueue[T]) loadTail() *queueNode[T] {
	q.tailMu.Lock()
	defer q.tailMu.Unlock()
	return q.tail
}

package event

import "sync/atomic"

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 256

// Queue is a bounded single-producer/single-consumer mailbox.
//
// The producer (control context) calls Push; the consumer (render context)
// calls Snapshot then Release once per block. Neither side ever blocks or
// allocates. Several producers must be serialized by the caller.
type Queue struct {
	buf     []Event
	mask    uint64
	head    atomic.Uint64 // next slot to read, written by the consumer
	tail    atomic.Uint64 // next slot to write, written by the producer
	dropped atomic.Uint64
}

// NewQueue returns a queue holding at least capacity events, rounded up to
// a power of two. Non-positive capacities select DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Queue{
		buf:  make([]Event, size),
		mask: uint64(size - 1),
	}
}

// Cap returns the number of events the queue can hold.
func (q *Queue) Cap() int { return len(q.buf) }

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Dropped returns how many pushes were rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Push appends e in arrival order. It reports false and drops e when the
// queue is full.
func (q *Queue) Push(e Event) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		q.dropped.Add(1)
		return false
	}
	q.buf[tail&q.mask] = e
	q.tail.Store(tail + 1)
	return true
}

// Snapshot copies the events pending right now into dst's backing array,
// oldest first, and returns them. Events pushed afterwards stay queued.
// At most cap(dst) events are copied.
func (q *Queue) Snapshot(dst []Event) []Event {
	head := q.head.Load()
	n := q.tail.Load() - head
	if n > uint64(cap(dst)) {
		n = uint64(cap(dst))
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = q.buf[(head+uint64(i))&q.mask]
	}
	return dst
}

// Release discards the n oldest events, normally the ones the last Snapshot
// returned.
func (q *Queue) Release(n int) {
	if n <= 0 {
		return
	}
	q.head.Add(uint64(n))
}

// Reset discards every pending event. Only the consumer may call it.
func (q *Queue) Reset() {
	q.head.Store(q.tail.Load())
}

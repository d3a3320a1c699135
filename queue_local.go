package asyncrt

import (
	"sync/atomic"
)

// localQueueCapacity is the default number of slots in each worker's
// local run queue (WithQueueCapacity overrides it). Sized as a power of two so index arithmetic can use a mask
// instead of a modulo; chosen to match the teacher's ring buffer sizing
// philosophy (fixed capacity, overflow handled explicitly) rather than
// growing unbounded.
const localQueueCapacity = 256

// localQueue is a single-producer/single-consumer-owned, multi-consumer
// stealable deque: a Chase-Lev work-stealing deque. The owning worker
// pushes and pops its own end LIFO (PushBack/PopBack), which favors
// cache-hot continuations the way a stack favors the most recent frame.
// Other workers steal from the opposite end FIFO (Steal), so a task
// that sits unclaimed long enough to be stolen is the oldest one
// present — the same freshness split the teacher's MicrotaskRing makes
// between its lock-free ring (hot path) and its overflow slice (spill).
//
// When the owner's push would exceed capacity, the caller is expected
// to spill a batch to the global injection queue instead (see
// Scheduler.enqueue) rather than growing this buffer, keeping the
// per-worker memory footprint bounded.
type localQueue struct {
	_      [sizeOfCacheLine]byte
	buf    []*Task
	cap    int64
	top    atomic.Int64 // stealers race to advance this
	_      [sizeOfCacheLine - 8]byte
	bottom atomic.Int64 // only the owner writes this
}

// newLocalQueue builds a local queue with capacity slots. capacity must
// be a positive power of two; WithQueueCapacity validates this at
// config time.
func newLocalQueue(capacity int) *localQueue {
	return &localQueue{buf: make([]*Task, capacity), cap: int64(capacity)}
}

func (q *localQueue) mask(i int64) int64 {
	return i & (q.cap - 1)
}

// Len is an approximation safe to call from any goroutine.
func (q *localQueue) Len() int {
	b := q.bottom.Load()
	t := q.top.Load()
	if b < t {
		return 0
	}
	return int(b - t)
}

// PushBack is owner-only. It returns false if the queue is full, in
// which case the caller must route the task elsewhere (the global
// queue).
func (q *localQueue) PushBack(t *Task) bool {
	b := q.bottom.Load()
	top := q.top.Load()
	if b-top >= q.cap {
		return false
	}
	q.buf[q.mask(b)] = t
	q.bottom.Store(b + 1)
	return true
}

// PopBack is owner-only; LIFO.
func (q *localQueue) PopBack() (*Task, bool) {
	b := q.bottom.Load() - 1
	q.bottom.Store(b)
	t := q.top.Load()
	if t > b {
		q.bottom.Store(b + 1)
		return nil, false
	}
	task := q.buf[q.mask(b)]
	if t == b {
		if !q.top.CompareAndSwap(t, t+1) {
			task = nil
		}
		q.bottom.Store(b + 1)
		return task, task != nil
	}
	return task, true
}

// Steal removes one task from the opposite end (FIFO relative to push
// order). Safe to call from any goroutine, including the owner's own
// (though the owner should prefer PopBack). Returns false if the queue
// was empty or lost a race with another stealer/the owner.
func (q *localQueue) Steal() (*Task, bool) {
	t := q.top.Load()
	b := q.bottom.Load()
	if t >= b {
		return nil, false
	}
	task := q.buf[q.mask(t)]
	if !q.top.CompareAndSwap(t, t+1) {
		return nil, false
	}
	return task, true
}

// StealInto steals roughly half of src's contents into q (the caller's
// own queue, which q must own), returning one stolen task directly to
// run immediately. Any stolen tasks that don't fit in q (because q is
// nearly full) are returned in overflow so the caller can route them to
// the global queue instead of dropping them — Steal never loses a
// task, it only relocates it.
func (q *localQueue) StealInto(src *localQueue) (first *Task, overflow []*Task) {
	t := src.top.Load()
	b := src.bottom.Load()
	n := b - t
	if n <= 0 {
		return nil, nil
	}
	n -= n / 2 // take ceil(n/2), leaving the owner floor(n/2)
	if n <= 0 {
		n = 1
	}
	first, ok := src.Steal()
	if !ok {
		return nil, nil
	}
	for i := int64(1); i < n; i++ {
		task, ok := src.Steal()
		if !ok {
			break
		}
		if !q.PushBack(task) {
			overflow = append(overflow, task)
		}
	}
	return first, overflow
}

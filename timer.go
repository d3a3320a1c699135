package asyncrt

import (
	"container/heap"
	"sync"
	"time"
)

// noTimeout tells the reactor to block without a deadline: there are no
// pending timers to bound the wait by.
const noTimeout time.Duration = -1

// maxTimerHorizon bounds how far in the future a timer may be scheduled,
// matching spec §7's TimerError::TooFarInFuture.
const maxTimerHorizon = 10 * 365 * 24 * time.Hour

// timerEntry is one scheduled wakeup. Cancellation is lazy: Cancel just
// flags the entry, and FireExpired skips flagged entries when it pops
// them, the same tombstone approach the teacher's ChunkedIngress uses
// for exhausted chunks rather than doing a heap removal in place.
type timerEntry struct {
	deadline  time.Time
	waker     Waker
	index     int
	cancelled bool
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)         { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// timerWheel is the runtime's deadline queue: a binary min-heap, one of
// the two representations the spec allows (hierarchical wheel is the
// other), grounded directly on the teacher's timerHeap.
type timerWheel struct {
	mu sync.Mutex
	h  timerHeap
}

func newTimerWheel() *timerWheel {
	return &timerWheel{}
}

// TimerHandle lets the registrant cancel a pending timer before it
// fires.
type TimerHandle struct {
	w  *timerWheel
	e  *timerEntry
}

// Cancel prevents the timer from waking its waker, if it hasn't fired
// already. Safe to call more than once or after it has already fired.
func (h TimerHandle) Cancel() {
	if h.e == nil {
		return
	}
	h.w.mu.Lock()
	h.e.cancelled = true
	h.w.mu.Unlock()
}

// Register schedules waker to be woken at deadline. Returns
// ErrTimerTooFarInFuture if deadline is further out than the wheel's
// representable horizon.
func (w *timerWheel) Register(deadline time.Time, waker Waker) (TimerHandle, error) {
	if time.Until(deadline) > maxTimerHorizon {
		return TimerHandle{}, ErrTimerTooFarInFuture
	}
	e := &timerEntry{deadline: deadline, waker: waker}
	w.mu.Lock()
	heap.Push(&w.h, e)
	w.mu.Unlock()
	return TimerHandle{w: w, e: e}, nil
}

// NextWait returns how long it is safe to block before the earliest
// live timer needs attention, or noTimeout if no timers are pending.
// Monotonic: never returns a negative duration other than noTimeout.
func (w *timerWheel) NextWait() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.h.Len() > 0 {
		top := w.h[0]
		if top.cancelled {
			heap.Pop(&w.h)
			continue
		}
		d := time.Until(top.deadline)
		if d < 0 {
			return 0
		}
		return d
	}
	return noTimeout
}

// FireExpired pops and wakes every non-cancelled timer whose deadline
// has passed.
func (w *timerWheel) FireExpired() {
	now := time.Now()
	var fired []Waker
	w.mu.Lock()
	for w.h.Len() > 0 && !w.h[0].deadline.After(now) {
		e := heap.Pop(&w.h).(*timerEntry)
		if !e.cancelled {
			fired = append(fired, e.waker)
		}
	}
	w.mu.Unlock()
	for _, wk := range fired {
		wk.WakeByRef()
		wk.Drop()
	}
}

// sleepFuture implements the spec's canonical "one-shot delay" future
// (scenario S2): Pending until its deadline registers and fires, then
// Ready exactly once.
type sleepFuture struct {
	deadline time.Time
	handle   *TimerHandle
}

// Sleep returns a Future that completes once d has elapsed, the
// runtime's equivalent of a one-shot timer future.
func Sleep(d time.Duration) Future[struct{}] {
	return &sleepFuture{deadline: time.Now().Add(d)}
}

func (f *sleepFuture) Poll(ctx *Context) (struct{}, bool) {
	if !time.Now().Before(f.deadline) {
		return struct{}{}, true
	}
	if f.handle == nil {
		sched := ctx.scheduler()
		if sched == nil || sched.timers == nil {
			// No timer wheel available (disabled, or polled outside a
			// worker via BlockOn): fall back to a standalone one-shot
			// timer rather than busy-repolling.
			w := ctx.Waker().Clone()
			time.AfterFunc(time.Until(f.deadline), func() {
				w.WakeByRef()
				w.Drop()
			})
			f.handle = &TimerHandle{}
			return struct{}{}, false
		}
		h, err := sched.timers.Register(f.deadline, ctx.Waker().Clone())
		if err != nil {
			return struct{}{}, true
		}
		f.handle = &h
	}
	return struct{}{}, false
}

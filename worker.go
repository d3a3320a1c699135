package asyncrt

import (
	"math/rand/v2"
	"time"
)

// worker is one slot in the scheduler's fixed-size pool; each runs its
// own goroutine executing the poll loop: periodic global probe (every
// globalQueueInterval calls), local pop, global pop, batch refill from
// the global queue, steal from a random peer, then park. Every
// eventInterval ticks, a worker that has just run a task also turns the
// reactor without blocking and fires expired timers.
type worker struct {
	id    int
	sched *Scheduler
	local *localQueue
	tick  uint32
}

func (w *worker) run() {
	gid := getGoroutineID()
	workerRegistry.Store(gid, w)
	defer workerRegistry.Delete(gid)
	defer w.sched.wg.Done()

	for {
		if t := w.nextTask(); t != nil {
			w.runTask(t)
			if w.tick%w.sched.cfg.eventInterval == 0 {
				if w.sched.reactor != nil && w.sched.reactorLock.CompareAndSwap(false, true) {
					if err := w.sched.reactor.Turn(0); err != nil {
						w.sched.logger().Error("reactor turn failed", "err", err)
					}
					w.sched.reactorLock.Store(false)
				}
				if w.sched.timers != nil {
					w.sched.timers.FireExpired()
				}
			}
			continue
		}

		if w.sched.runState.RunState() != RunStateRunning && w.sched.isQuiescent() {
			return
		}

		w.park()
	}
}

// nextTask implements the poll-loop priority order. It never blocks.
func (w *worker) nextTask() *Task {
	w.tick++

	if w.tick%w.sched.cfg.globalQueueInterval == 0 {
		if t, ok := w.sched.global.Pop(); ok {
			return t
		}
	}

	if t, ok := w.local.PopBack(); ok {
		return t
	}

	if t, ok := w.sched.global.Pop(); ok {
		return t
	}

	if t := w.refillFromGlobal(); t != nil {
		return t
	}

	return w.steal()
}

// refillFromGlobal pulls a batch from the global queue into the local
// queue in one critical section, returning one task to run immediately.
// This amortizes the global queue's mutex over many tasks instead of
// paying it once per task, the same batching rationale behind the
// teacher's ChunkedIngress chunk sizing.
func (w *worker) refillFromGlobal() *Task {
	batch := w.sched.global.PopBatch(int(w.local.cap / 2))
	if len(batch) == 0 {
		return nil
	}
	first := batch[0]
	for _, t := range batch[1:] {
		if !w.local.PushBack(t) {
			w.sched.global.Push(t)
		}
	}
	return first
}

func (w *worker) steal() *Task {
	n := len(w.sched.workers)
	if n <= 1 {
		return nil
	}
	start := rand.IntN(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if idx == w.id {
			continue
		}
		peer := w.sched.workers[idx]
		first, overflow := w.local.StealInto(peer.local)
		if first == nil {
			continue
		}
		w.sched.stats.steals.Add(1)
		if len(overflow) > 0 {
			w.sched.global.PushBatch(overflow)
		}
		return first
	}
	return nil
}

// runTask drives one poll of t, recovering a panic at the task
// boundary the way the teacher's safeExecute recovers one at the
// callback boundary, and applies the resulting state transition.
func (w *worker) runTask(t *Task) {
	if !t.tryBeginPoll() {
		return
	}

	var (
		out     any
		ready   bool
		panicky any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicky = r
			}
		}()
		ctx := &Context{waker: taskWaker(t), sched: w.sched}
		out, ready = t.pollFn(ctx)
		ctx.waker.Drop()
	}()

	if panicky != nil {
		w.sched.logger().Error("task panicked", "task_id", t.id, "panic", panicky)
		t.finishReady(nil)
		return
	}

	if ready {
		t.finishReady(out)
		return
	}

	if t.finishPending() {
		// a wake arrived while this poll was in flight; the task is
		// already re-marked SCHEDULED, so requeue it.
		w.sched.enqueue(t)
	}
}

// park implements the check -> set-bit -> recheck -> park sequence, and
// designates at most one worker at a time as the reactor driver so only
// one goroutine is ever blocked inside epoll_wait/kevent/GetQueuedCompletionStatus.
func (w *worker) park() {
	w.sched.parker.PrepareToPark(w.id)

	if t := w.nextTask(); t != nil {
		w.sched.parker.CancelPark(w.id)
		w.runTask(t)
		return
	}

	w.sched.stats.parks.Add(1)

	if w.sched.reactor != nil && w.sched.reactorLock.CompareAndSwap(false, true) {
		defer w.sched.reactorLock.Store(false)
		w.driveReactor()
		w.sched.parker.CancelPark(w.id)
		return
	}

	if w.sched.timers != nil {
		if wait := w.sched.timers.NextWait(); wait != noTimeout {
			timer := time.NewTimer(wait)
			select {
			case <-w.sched.parker.signal[w.id]:
			case <-timer.C:
			}
			timer.Stop()
			w.sched.parker.CancelPark(w.id)
			w.sched.timers.FireExpired()
			return
		}
	}

	w.sched.parker.Park(w.id)
}

// driveReactor computes how long it is safe to block (bounded by the
// nearest timer deadline), turns the reactor once, and fires any
// timers that expired either because of the wait or because the
// reactor returned early due to I/O readiness.
func (w *worker) driveReactor() {
	maxWait := noTimeout
	if w.sched.timers != nil {
		maxWait = w.sched.timers.NextWait()
	}
	if err := w.sched.reactor.Turn(maxWait); err != nil {
		w.sched.logger().Error("reactor turn failed", "err", err)
	}
	if w.sched.timers != nil {
		w.sched.timers.FireExpired()
	}
}

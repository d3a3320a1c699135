package asyncrt

import (
	"sync/atomic"
)

// Task flag bits occupy the low 16 bits of the packed state word; the
// remaining 48 bits hold the refcount. 48 bits of refcount is enormous
// headroom (no realistic program holds 2^48 live Waker clones of one
// task) and leaving flags their own byte-aligned range keeps the CAS
// arithmetic readable.
const (
	taskFlagScheduled           uint64 = 1 << 0
	taskFlagRunning             uint64 = 1 << 1
	taskFlagComplete            uint64 = 1 << 2
	taskFlagCancelled           uint64 = 1 << 3
	taskFlagJoinInterest        uint64 = 1 << 4
	taskFlagJoinWakerRegistered uint64 = 1 << 5
	taskFlagNotifyWhileRunning  uint64 = 1 << 6

	taskFlagMask  uint64 = 1<<16 - 1
	taskRefUnit   uint64 = 1 << 16
	taskRefShift         = 16
)

func taskRefcount(word uint64) uint64 { return word >> taskRefShift }
func taskFlags(word uint64) uint64    { return word & taskFlagMask }

// Task is the scheduler's unit of work: a type-erased future plus the
// packed atomic state word that drives its lifecycle (spawned, queued,
// polling, suspended, complete or cancelled) and its refcount (one
// share per outstanding JoinHandle, queue entry, and cloned Waker).
//
// Task deliberately has no destructor-equivalent: once its refcount
// drops to zero the Go garbage collector reclaims it like any other
// value. decRef only needs to notice the zero crossing so it can assert
// the task had already reached a terminal state.
type Task struct {
	id    uint64
	state PaddedState

	pollFn func(ctx *Context) (any, bool)
	dropFn func()

	next atomic.Pointer[Task]

	output    any
	joinWaker atomic.Pointer[Waker]

	sched *Scheduler
}

var taskIDCounter atomic.Uint64

func nextTaskID() uint64 {
	return taskIDCounter.Add(1)
}

// newTask builds a Task with refcount 1 (the JoinHandle's implicit
// share) and no flags set. It is not yet visible to the scheduler until
// schedule() is called on it (spawn's first schedule IS the task's
// entry into the run queue, unified with every later re-wake).
func newTask(sched *Scheduler, pollFn func(ctx *Context) (any, bool), dropFn func()) *Task {
	t := &Task{
		id:     nextTaskID(),
		sched:  sched,
		pollFn: pollFn,
		dropFn: dropFn,
	}
	t.state.Store(1 * taskRefUnit)
	return t
}

func (t *Task) incRef() {
	t.state.v.Add(taskRefUnit)
}

func (t *Task) decRef() {
	word := t.state.v.Add(-taskRefUnit)
	if taskRefcount(word) == 0 && taskFlags(word)&(taskFlagComplete|taskFlagCancelled) == 0 && t.sched != nil {
		t.sched.logger().Error("task refcount reached zero before completion", "task_id", t.id)
	}
}

// schedule makes the task runnable: it is the single path used both for
// the initial spawn and for every later wake. If the task is currently
// executing on a worker, schedule instead records that a re-poll is
// owed once the in-flight poll returns (the "Schedule while running"
// transition), which carries the existing queue refcount share forward
// without incrementing it again.
func (t *Task) schedule() {
	for {
		old := t.state.Load()
		flags := taskFlags(old)
		if flags&(taskFlagComplete|taskFlagCancelled) != 0 {
			return
		}
		if flags&taskFlagRunning != 0 {
			if flags&taskFlagNotifyWhileRunning != 0 {
				return
			}
			newWord := old | taskFlagNotifyWhileRunning
			if t.state.v.CompareAndSwap(old, newWord) {
				return
			}
			continue
		}
		if flags&taskFlagScheduled != 0 {
			return
		}
		newWord := (old | taskFlagScheduled) + taskRefUnit
		if t.state.v.CompareAndSwap(old, newWord) {
			t.sched.enqueue(t)
			return
		}
	}
}

// wake is called by a Waker; it is identical to schedule but named
// separately so the call sites in waker.go read naturally.
func (t *Task) wake() {
	t.schedule()
}

// tryBeginPoll transitions SCHEDULED -> RUNNING. Returns false if the
// task was cancelled or completed before the worker got to it.
func (t *Task) tryBeginPoll() bool {
	for {
		old := t.state.Load()
		flags := taskFlags(old)
		if flags&(taskFlagComplete|taskFlagCancelled) != 0 {
			return false
		}
		newWord := (old &^ taskFlagScheduled) | taskFlagRunning
		if t.state.v.CompareAndSwap(old, newWord) {
			return true
		}
	}
}

// finishPending is called by the worker after Poll returns (_, false).
// It reports whether the task must be immediately re-enqueued because a
// wake arrived while it was running.
func (t *Task) finishPending() (reschedule bool) {
	for {
		old := t.state.Load()
		flags := taskFlags(old)
		if flags&taskFlagCancelled != 0 {
			newWord := old &^ (taskFlagRunning | taskFlagNotifyWhileRunning)
			if t.state.v.CompareAndSwap(old, newWord) {
				if t.dropFn != nil {
					t.dropFn()
				}
				if w := t.joinWaker.Load(); w != nil {
					w.WakeByRef()
					w.Drop()
				}
				t.decRef() // cancelled mid-poll: finish what cancel() deferred
				return false
			}
			continue
		}
		if flags&taskFlagNotifyWhileRunning != 0 {
			newWord := (old &^ (taskFlagRunning | taskFlagNotifyWhileRunning)) | taskFlagScheduled
			if t.state.v.CompareAndSwap(old, newWord) {
				return true
			}
			continue
		}
		newWord := old &^ taskFlagRunning
		if t.state.v.CompareAndSwap(old, newWord) {
			t.decRef() // release the queue's share; nothing else references this task until woken
			return false
		}
	}
}

// finishReady is called by the worker after Poll returns (out, true).
func (t *Task) finishReady(out any) {
	for {
		old := t.state.Load()
		newWord := (old &^ (taskFlagRunning | taskFlagNotifyWhileRunning)) | taskFlagComplete
		if t.state.v.CompareAndSwap(old, newWord) {
			break
		}
	}
	t.output = out
	if t.dropFn != nil {
		t.dropFn()
	}
	if w := t.joinWaker.Load(); w != nil {
		w.WakeByRef()
		w.Drop()
	}
	t.decRef() // release the queue's share now that the task is terminal
}

// cancel requests cooperative cancellation by setting the CANCELLED
// flag. A task that is not mid-poll has its drop hook run and its join
// waker woken at once; a task that is mid-poll gets the same when that
// poll returns Pending (finishPending), while a poll that returns Ready
// still completes it normally. The worker never polls a cancelled task
// again (tryBeginPoll refuses it); a poll already in progress is not
// interrupted.
func (t *Task) cancel() bool {
	for {
		old := t.state.Load()
		flags := taskFlags(old)
		if flags&taskFlagComplete != 0 {
			return false
		}
		if flags&taskFlagCancelled != 0 {
			return true
		}
		newWord := old | taskFlagCancelled
		if t.state.v.CompareAndSwap(old, newWord) {
			if flags&taskFlagRunning == 0 {
				if t.dropFn != nil {
					t.dropFn()
				}
				if w := t.joinWaker.Load(); w != nil {
					w.WakeByRef()
					w.Drop()
				}
			}
			return true
		}
	}
}

func (t *Task) isComplete() bool {
	return taskFlags(t.state.Load())&taskFlagComplete != 0
}

func (t *Task) isCancelled() bool {
	return taskFlags(t.state.Load())&taskFlagCancelled != 0
}

// registerJoinWaker stashes w so it is woken exactly once, on
// completion or cancellation. Replaces any previously registered waker
// (a JoinHandle polled from two different wakers keeps only the latest
// one, matching how a Rust JoinHandle future behaves under re-poll).
func (t *Task) registerJoinWaker(w Waker) {
	nw := new(Waker)
	*nw = w
	old := t.joinWaker.Swap(nw)
	if old != nil {
		old.Drop()
	}
	for {
		word := t.state.Load()
		newWord := word | taskFlagJoinWakerRegistered
		if word&taskFlagJoinWakerRegistered != 0 || t.state.v.CompareAndSwap(word, newWord) {
			break
		}
	}
	if t.isComplete() || t.isCancelled() {
		if cur := t.joinWaker.Swap(nil); cur != nil {
			cur.WakeByRef()
			cur.Drop()
		}
	}
}

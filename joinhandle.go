package asyncrt

import (
	"context"
	"sync/atomic"
	"unsafe"
)

// JoinHandle is returned by Spawn; it owns the task's initial refcount
// share and is the only way to retrieve its output or cancel it early.
//
// Go has no deterministic destructor, so unlike the source runtime's
// Drop-triggered detach, a JoinHandle that is simply discarded leaks
// its refcount share until the task completes and finishReady releases
// the queue's share — at that point the task is unreachable garbage
// regardless, since nothing else pointed at it. Callers that want to
// explicitly detach without awaiting the result should call Detach.
type JoinHandle[T any] struct {
	task *Task
}

func newJoinHandle[T any](t *Task) JoinHandle[T] {
	return JoinHandle[T]{task: t}
}

// Detach releases this handle's refcount share without waiting for the
// task to finish, analogous to dropping a JoinHandle in the source
// model: the task keeps running to completion, but nothing can observe
// its output any more.
func (h JoinHandle[T]) Detach() {
	if h.task == nil {
		return
	}
	h.task.decRef()
}

// Abort requests cooperative cancellation of the task. It does not
// block; the task is never polled again, and a poll already in progress
// runs to its end first (if that poll returns Ready, the task completes
// with its output).
func (h JoinHandle[T]) Abort() {
	if h.task == nil {
		return
	}
	h.task.cancel()
}

// IsFinished reports whether the task has completed or been cancelled.
func (h JoinHandle[T]) IsFinished() bool {
	return h.task != nil && (h.task.isComplete() || h.task.isCancelled())
}

// Poll implements Future[T]: it checks COMPLETE and, if set, extracts
// the output and returns Ready; otherwise it registers a clone of the
// current Waker in the task's join-waker slot (the same CAS-guarded
// registerJoinWaker that backs Join) and returns Pending. This lets a
// spawned task be awaited cooperatively from inside another future's
// Poll — e.g. nested inside select! or join! combinators — without
// parking a whole OS thread the way Join does.
//
// A cancelled-but-not-yet-complete task is reported Ready with the zero
// value: Future[T] carries no error channel, so distinguishing
// cancellation from a genuine output is Join's job, not Poll's.
func (h JoinHandle[T]) Poll(ctx *Context) (T, bool) {
	var zero T
	if h.task == nil {
		return zero, true
	}
	if h.task.isComplete() {
		out, _ := h.task.output.(T)
		return out, true
	}
	if h.task.isCancelled() {
		return zero, true
	}

	h.task.registerJoinWaker(ctx.Waker().Clone())

	// registerJoinWaker already re-wakes if completion/cancellation
	// raced its own CAS, but the waker it wakes is the one just
	// registered, not this call's return value, so re-check here to
	// report Ready synchronously rather than forcing a needless
	// round-trip through the scheduler.
	if h.task.isComplete() {
		out, _ := h.task.output.(T)
		return out, true
	}
	if h.task.isCancelled() {
		return zero, true
	}
	return zero, false
}

// Join blocks the calling goroutine (not a worker — see BlockOn for the
// runtime's own cooperative equivalent) until the task finishes, then
// releases this handle's refcount share and returns the output.
//
// Join is a convenience wrapper around Poll: it bridges Poll's
// Waker-based notification to a channel so an ordinary goroutine
// outside the runtime can block without driving the scheduler itself,
// and it recovers the JoinReasonCancelled distinction that Poll's bare
// (T, bool) return can't carry.
func (h JoinHandle[T]) Join(ctx context.Context) (T, error) {
	var zero T
	if h.task == nil {
		return zero, &JoinError{Reason: JoinReasonCancelled}
	}
	defer h.task.decRef()

	done := make(chan struct{})
	pollCtx := &Context{waker: channelWaker(done)}
	out, ready := h.Poll(pollCtx)

	if !ready {
		select {
		case <-done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		out, _ = h.task.output.(T)
	}

	if h.task.isCancelled() && !h.task.isComplete() {
		return zero, &JoinError{Reason: JoinReasonCancelled}
	}
	return out, nil
}

// channelWaker returns a Waker whose Wake/WakeByRef close done exactly
// once; used by Join to bridge the Waker world to a plain channel so
// non-worker goroutines can block without touching the scheduler.
func channelWaker(done chan struct{}) Waker {
	return newChannelWaker(done, new(atomic.Bool))
}

func newChannelWaker(done chan struct{}, closed *atomic.Bool) Waker {
	return Waker{
		data: nil,
		vtable: &wakerVTable{
			clone: func(_ unsafe.Pointer) Waker { return newChannelWaker(done, closed) },
			wake: func(_ unsafe.Pointer) {
				if closed.CompareAndSwap(false, true) {
					close(done)
				}
			},
			drop: func(_ unsafe.Pointer) {},
		},
	}
}

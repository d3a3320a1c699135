package asyncrt

import (
	"context"
	"testing"
)

// Test_JoinHandle_PollPendingThenReady verifies JoinHandle.Poll reports
// Pending while the underlying task hasn't completed, registers a
// waker via the task's join-waker slot, and reports Ready with the
// output once it has — the same contract Join relies on, but driven
// directly rather than through a blocking channel.
func Test_JoinHandle_PollPendingThenReady(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(1), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	release := make(chan struct{})
	h, err := spawnTask[int](sched, FutureFunc[int](func(ctx *Context) (int, bool) {
		<-release
		return 7, true
	}))
	if err != nil {
		t.Fatalf("spawnTask: %v", err)
	}

	done := make(chan struct{})
	pollCtx := &Context{waker: channelWaker(done)}
	if _, ready := h.Poll(pollCtx); ready {
		t.Fatal("Poll should report Pending before the task completes")
	}

	close(release)
	<-done

	out, ready := h.Poll(pollCtx)
	if !ready {
		t.Fatal("Poll should report Ready once the task has completed")
	}
	if out != 7 {
		t.Fatalf("expected 7, got %d", out)
	}
}

// Test_JoinHandle_PollNestedInsideAnotherFuture verifies a JoinHandle
// can be awaited from inside another future's Poll (e.g. a join/select
// combinator) purely via Poll, without ever blocking a thread the way
// Join does.
func Test_JoinHandle_PollNestedInsideAnotherFuture(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(2), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	child, err := spawnTask[int](sched, FutureFunc[int](func(ctx *Context) (int, bool) {
		return 99, true
	}))
	if err != nil {
		t.Fatalf("spawnTask(child): %v", err)
	}

	parent := FutureFunc[int](func(ctx *Context) (int, bool) {
		return child.Poll(ctx)
	})

	outer, err := spawnTask[int](sched, parent)
	if err != nil {
		t.Fatalf("spawnTask(parent): %v", err)
	}

	out, err := outer.Join(context.Background())
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out != 99 {
		t.Fatalf("expected 99, got %d", out)
	}
}

// Test_JoinHandle_PollCancelledReportsReadyZero verifies Poll treats a
// cancelled-but-incomplete task as Ready with the zero value, since
// Future[T] has no error channel to carry JoinReasonCancelled through
// (that distinction is Join's job).
func Test_JoinHandle_PollCancelledReportsReadyZero(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(1), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	block := make(chan struct{})
	h, err := spawnTask[int](sched, FutureFunc[int](func(ctx *Context) (int, bool) {
		<-block
		return 1, true
	}))
	if err != nil {
		t.Fatalf("spawnTask: %v", err)
	}
	h.Abort()

	pollCtx := &Context{waker: channelWaker(make(chan struct{}))}
	out, ready := h.Poll(pollCtx)
	if !ready {
		t.Fatal("Poll should report Ready for a cancelled task")
	}
	if out != 0 {
		t.Fatalf("expected zero value, got %d", out)
	}
	close(block)
}

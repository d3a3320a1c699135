package asyncrt

import (
	"sync"
	"sync/atomic"
	"testing"
)

// Test_Task_ScheduleOnce verifies spawning a task transitions it into
// the Scheduled flag exactly once and enqueues it.
func Test_Task_ScheduleOnce(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(1), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	var polled atomic.Int32
	done := make(chan struct{})
	task := newTask(sched, func(ctx *Context) (any, bool) {
		polled.Add(1)
		close(done)
		return 42, true
	}, nil)

	task.schedule()
	<-done

	if polled.Load() != 1 {
		t.Fatalf("expected exactly one poll, got %d", polled.Load())
	}
}

// Test_Task_ScheduleWhileRunning verifies a wake delivered mid-poll is
// recorded (not dropped, not double-enqueued) and causes exactly one
// re-poll afterward.
func Test_Task_ScheduleWhileRunning(t *testing.T) {
	t.Parallel()

	task := newTask(nil, nil, nil)
	if !task.tryBeginPoll() {
		t.Fatal("tryBeginPoll should succeed on a fresh task")
	}

	// A wake while running must not enqueue (sched is nil; schedule()
	// would panic on enqueue if it tried) and must not increment the
	// refcount a second time.
	before := taskRefcount(task.state.Load())
	task.schedule()
	task.schedule() // idempotent: NotifyWhileRunning already set
	after := taskRefcount(task.state.Load())
	if before != after {
		t.Fatalf("NotifyWhileRunning must not change refcount: before=%d after=%d", before, after)
	}

	reschedule := task.finishPending()
	if !reschedule {
		t.Fatal("finishPending should report reschedule=true after a wake-while-running")
	}
	if task.isComplete() {
		t.Fatal("task should not be complete")
	}
}

// Test_Task_FinishPendingNoWake verifies that a poll returning pending
// with no wake in flight does not ask for reschedule. It does not check
// the refcount.
func Test_Task_FinishPendingNoWake(t *testing.T) {
	t.Parallel()

	task := newTask(nil, nil, nil)
	task.incRef() // second share so decRef inside finishPending doesn't hit zero
	task.tryBeginPoll()

	if task.finishPending() {
		t.Fatal("finishPending should not request reschedule with no pending wake")
	}
}

// Test_Task_CancelBeforeComplete verifies cancel is observed and is
// idempotent, and that it has no effect once the task has completed.
func Test_Task_CancelBeforeComplete(t *testing.T) {
	t.Parallel()

	task := newTask(nil, nil, nil)
	if !task.cancel() {
		t.Fatal("cancel should succeed on a fresh task")
	}
	if !task.isCancelled() {
		t.Fatal("task should report cancelled")
	}
	if !task.cancel() {
		t.Fatal("cancel should be idempotent (still reports true)")
	}

	task2 := newTask(nil, nil, nil)
	task2.tryBeginPoll()
	task2.finishReady("done")
	if task2.cancel() {
		t.Fatal("cancel must fail once the task has completed")
	}
}

// Test_Task_RefcountSafety has a task clone its waker and wake it from a
// fresh goroutine on each of its first four polls, and asserts the task
// completes exactly once. It does not inspect the refcount.
func Test_Task_RefcountSafety(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(4), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	var completions atomic.Int32
	done := make(chan struct{})

	var pollCount atomic.Int32
	task := newTask(sched, func(ctx *Context) (any, bool) {
		if pollCount.Add(1) < 5 {
			w := ctx.Waker().Clone()
			go func() {
				w.Wake()
			}()
			return nil, false
		}
		completions.Add(1)
		close(done)
		return nil, true
	}, nil)

	task.schedule()
	<-done

	if completions.Load() != 1 {
		t.Fatalf("task should complete exactly once, got %d", completions.Load())
	}
}

// Test_Task_ConcurrentWake hammers wakes from many goroutines at once
// on a task held mid-poll on a real scheduler, so every wake takes the
// wake-while-running path; it passes if none of them panics or
// deadlocks, and makes no refcount assertion.
func Test_Task_ConcurrentWake(t *testing.T) {
	t.Parallel()

	sched, err := NewScheduler(WithWorkerThreads(2), WithIO(false))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	defer sched.Shutdown()

	block := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	task := newTask(sched, func(ctx *Context) (any, bool) {
		once.Do(func() { close(block) })
		<-proceed
		return nil, true
	}, nil)

	task.schedule()
	<-block // task is now Running

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.wake()
		}()
	}
	wg.Wait()
	close(proceed)
}

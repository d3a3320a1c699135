package asyncrt

import (
	"context"
	"errors"
	"sync"
)

// Runtime is the facade spec §4.9 names: it binds one Scheduler (with
// its worker pool, reactor, and timer wheel) and is the entry point
// most callers use instead of Scheduler directly.
type Runtime struct {
	sched *Scheduler

	closeOnce sync.Once
}

// New builds and starts a Runtime. Workers begin polling immediately;
// there is no separate Run step, since unlike the teacher's
// single-goroutine Loop (which the caller drives explicitly), a
// multi-worker pool has nothing useful to hand control back to the
// caller for.
func New(opts ...Option) (*Runtime, error) {
	sched, err := NewScheduler(opts...)
	if err != nil {
		return nil, err
	}
	return &Runtime{sched: sched}, nil
}

// Spawn submits fut to the scheduler and returns a JoinHandle for it.
// Spawn is a package-level function, not a method, because Go methods
// cannot introduce their own type parameters.
func Spawn[T any](rt *Runtime, fut Future[T]) (JoinHandle[T], error) {
	return spawnTask(rt.sched, fut)
}

// SpawnBlocking offloads fn onto the blocking pool rather than the
// cooperative scheduler, for calls that cannot be written as a
// non-blocking Future (synchronous I/O, cgo, a blocking library).
func SpawnBlocking[T any](rt *Runtime, fn func() T) JoinHandle[T] {
	return spawnBlocking(rt.sched.blockingPool, fn)
}

// errReentrantBlockOn is returned when BlockOn is called from a
// goroutine that is already inside another BlockOn call.
var errReentrantBlockOn = errors.New("asyncrt: BlockOn called reentrantly on the same goroutine")

// blockOnGoroutines tracks which goroutines are currently inside a
// BlockOn call, the thread-local-equivalent "current runtime" guard
// spec §9 calls for, adapted to Go via the same getGoroutineID trick
// the teacher used to recognize its own loop goroutine.
var blockOnGoroutines sync.Map // uint64 goroutine id -> struct{}

// BlockOn drives fut to completion on the calling goroutine, without
// submitting it to the worker pool: it polls fut directly, parking the
// calling goroutine on a channel between polls and waking it via a
// plain Waker whenever fut's Poll requests it. This is the runtime's
// answer to "run one future to completion from outside any worker",
// e.g. a program's main function bridging into async code.
//
// BlockOn rejects reentrant calls on the same goroutine: a future
// polled from inside BlockOn that itself calls BlockOn (directly or
// transitively) would deadlock waiting for a parent poll that can never
// return.
func BlockOn[T any](ctx context.Context, fut Future[T]) (T, error) {
	var zero T

	gid := getGoroutineID()
	if _, already := blockOnGoroutines.LoadOrStore(gid, struct{}{}); already {
		return zero, errReentrantBlockOn
	}
	defer blockOnGoroutines.Delete(gid)

	for {
		done := make(chan struct{})
		w := channelWaker(done)
		pollCtx := &Context{waker: w}

		out, ready := fut.Poll(pollCtx)
		if ready {
			return out, nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// RuntimeBlockOn drives fut to completion against rt's live scheduler:
// fut is spawned as a real task, so unlike bare BlockOn its Poll sees a
// non-nil ctx.scheduler() and can register with rt's actual reactor and
// timer wheel instead of falling back to the scheduler-less path (see
// sleepFuture.Poll). One of rt's own workers performs the polling and
// drives whatever reactor Turn / timer FireExpired the future needs;
// the calling goroutine only waits for the result, via the same
// Waker-to-channel bridge JoinHandle.Join uses, which is what makes it
// safe to call from a goroutine with no worker of its own.
//
// This is the entry point spec §4.6 describes as "the calling thread
// becomes a temporary worker for this one future": submitting the
// future onto the pool and waiting for it is how that temporary-worker
// role is realized when, as here, a real pool of workers already exists
// to do the actual driving.
//
// RuntimeBlockOn is a package-level function, not a method, because Go
// methods cannot introduce their own type parameters (see Spawn).
func RuntimeBlockOn[T any](rt *Runtime, ctx context.Context, fut Future[T]) (T, error) {
	handle, err := spawnTask(rt.sched, fut)
	if err != nil {
		var zero T
		return zero, err
	}
	return handle.Join(ctx)
}

// Shutdown stops the runtime: see Scheduler.Shutdown.
func (rt *Runtime) Shutdown() error {
	var err error
	rt.closeOnce.Do(func() {
		err = rt.sched.Shutdown()
	})
	return err
}

// Scheduler returns the runtime's underlying Scheduler, for callers
// that need direct access to Stats or the Reactor.
func (rt *Runtime) Scheduler() *Scheduler {
	return rt.sched
}

// Package asyncrt is a cooperative, multi-worker async runtime built
// around a Future/Poll/Waker contract: futures are polled by worker
// goroutines until ready, and register a Waker to be notified when
// they can make progress again instead of being polled in a busy loop.
//
// # Architecture
//
//   - [Future], [Waker], [Context]: the polling contract. A Future's
//     Poll method either returns a value (ready) or registers the
//     supplied Context's Waker and returns not-ready (pending).
//   - [Task]: the scheduler's unit of work, wrapping one spawned
//     Future with a packed atomic state word (flags + refcount) that
//     drives its lifecycle through Scheduled, Running, Complete, and
//     Cancelled.
//   - [Scheduler]: owns a fixed pool of worker goroutines, each with
//     its own lock-free work-stealing local run queue, backed by a
//     shared unbounded global injection queue for overflow and
//     external spawns. Idle workers park on a sleeping-workers bitmap
//     and are woken on demand rather than spinning.
//   - [Reactor]: the cross-platform I/O readiness bridge (epoll on
//     Linux, kqueue on Darwin, IOCP on Windows), registered with the
//     scheduler so a single worker at a time can drive native polling
//     on behalf of the whole pool.
//   - Timers: a binary min-heap wheel backing [Sleep], the one-shot
//     delay future every other timing primitive is built from.
//   - [Runtime]: the facade most callers use — [New] builds one,
//     [Spawn] and [SpawnBlocking] submit work, [BlockOn] drives a
//     future to completion from a non-worker goroutine (typically
//     main), and Shutdown drains and stops the pool.
//
// # Platform Support
//
// The reactor has a build-tagged backend per platform: epoll (Linux),
// kqueue (Darwin), and IOCP (Windows). All three expose the same
// FastPoller surface so reactor.go stays platform-tag-free.
//
// # Thread Safety
//
// Scheduler, Reactor, and Runtime are safe for concurrent use from any
// goroutine. A Task's Poll method is never invoked concurrently with
// itself — the scheduler guarantees at most one active poll per task —
// but a Waker obtained from a Context may be cloned and woken from any
// goroutine, including from inside a reactor dispatch callback.
//
// # Usage
//
//	rt, err := asyncrt.New(asyncrt.WithWorkerThreads(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Shutdown()
//
//	handle, err := asyncrt.Spawn(rt, asyncrt.Sleep(100*time.Millisecond))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := handle.Join(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package provides a small error taxonomy rather than one generic
// error:
//   - [ConfigurationError]: invalid Option values passed to New.
//   - [SpawnError]: spawning onto a runtime that is shutting down.
//   - [JoinError]: a JoinHandle's Join failed, discriminated by
//     [JoinReason]. Join reports cancellation this way; a task whose
//     future panicked completes with its zero value and no error, and a
//     Join whose context expires returns the context's error.
//   - [ReactorError]: I/O reactor setup or registration failures,
//     discriminated by [ReactorErrorKind].
//   - [TimerError]: a timer deadline lies beyond the wheel's fixed
//     horizon (maxTimerHorizon).
//
// All error types implement the standard [error] interface, support
// [errors.Unwrap] where they wrap a cause, and type-based matching via
// Is().
package asyncrt

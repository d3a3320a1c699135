package asyncrt

import (
	"sync"
	"sync/atomic"
	"time"
)

// schedulerStats holds the counters Scheduler.Stats exposes for tests
// to observe the otherwise-invisible work-stealing behavior the spec's
// testable properties ask for (queue conservation, steal correctness,
// local-queue overflow).
type schedulerStats struct {
	spawned  atomic.Uint64
	overflow atomic.Uint64
	steals   atomic.Uint64
	parks    atomic.Uint64
}

// Stats is a point-in-time snapshot of Scheduler counters, exposed for
// tests and diagnostics only — not a metrics product.
type Stats struct {
	Spawned          uint64
	LocalOverflowed  uint64
	StealsSucceeded  uint64
	WorkerParkEvents uint64
}

// Scheduler owns the pool of worker goroutines, their local run queues,
// the global injection queue, the sleeping-workers parker, the reactor,
// and the timer wheel. It is the work-stealing core the Runtime facade
// wraps; most callers use Runtime rather than Scheduler directly.
type Scheduler struct {
	cfg *config

	workers []*worker
	global  *globalQueue
	parker  *parker

	runState PaddedState

	reactor      *reactor
	reactorLock  atomic.Bool
	timers       *timerWheel
	blockingPool *blockingPool

	wg    sync.WaitGroup
	stats schedulerStats
	log   Logger
}

// NewScheduler builds and starts a Scheduler according to opts. Workers
// begin polling immediately.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:    cfg,
		global: newGlobalQueue(),
		parker: newParker(cfg.workerThreads),
		log:    cfg.logger,
	}
	s.runState.Store(uint64(RunStateCreated))

	if cfg.timersEnabled {
		s.timers = newTimerWheel()
	}
	if cfg.ioEnabled {
		r, err := newReactor()
		if err != nil {
			return nil, &ReactorError{Kind: ReactorErrorIO, Cause: err}
		}
		s.reactor = r
	}
	s.blockingPool = newBlockingPool(cfg.logger)

	s.workers = make([]*worker, cfg.workerThreads)
	for i := range s.workers {
		s.workers[i] = &worker{
			id:    i,
			sched: s,
			local: newLocalQueue(cfg.queueCapacity),
		}
	}

	s.runState.Store(uint64(RunStateRunning))
	s.wg.Add(len(s.workers))
	for _, w := range s.workers {
		go w.run()
	}
	return s, nil
}

func (s *Scheduler) logger() Logger {
	if s.log == nil {
		return noopLogger{}
	}
	return s.log
}

// spawnTask creates and schedules a new Task wrapping fut, returning a
// JoinHandle for it. Rejected with ErrShuttingDown once Shutdown has
// begun.
func spawnTask[T any](s *Scheduler, fut Future[T]) (JoinHandle[T], error) {
	if s.runState.RunState() != RunStateRunning {
		return JoinHandle[T]{}, &SpawnError{Cause: ErrShuttingDown}
	}
	var drop func()
	if d, ok := fut.(interface{ Drop() }); ok {
		drop = d.Drop
	}
	t := newTask(s, func(ctx *Context) (any, bool) {
		v, ready := fut.Poll(ctx)
		if !ready {
			return nil, false
		}
		return v, true
	}, drop)
	s.stats.spawned.Add(1)
	t.schedule()
	return newJoinHandle[T](t), nil
}

// enqueue places t on the run queue: if called from within a worker
// goroutine, it prefers that worker's own local queue (LIFO, cache
// hot). If that queue is full, the older half of it moves to the global
// injection queue in one batch together with t; from outside a worker,
// t goes to the global queue alone. Either global path wakes one
// parked worker so the task is not stranded.
func (s *Scheduler) enqueue(t *Task) {
	if w := currentWorker(); w != nil && w.sched == s {
		if w.local.PushBack(t) {
			return
		}
		s.stats.overflow.Add(1)
		batch := make([]*Task, 0, w.local.Len()/2+1)
		for i := w.local.Len() / 2; i > 0; i-- {
			if old, ok := w.local.Steal(); ok {
				batch = append(batch, old)
			}
		}
		s.global.PushBatch(append(batch, t))
	} else {
		s.global.Push(t)
	}
	s.parker.UnparkAny()
	// The worker UnparkAny just picked might not be genuinely parked on
	// its channel: it could instead be the reactor owner, blocked inside
	// the native poll syscall with its sleeping bit set (see
	// worker.park/driveReactor). A channel signal alone never reaches
	// that worker, so it would sit in Turn until something else (I/O,
	// a timer) returns it — silently losing this wake. Poking the
	// reactor here interrupts Turn unconditionally, so whichever worker
	// actually owns it notices promptly regardless of which one
	// UnparkAny happened to pick.
	if s.reactor != nil {
		s.reactor.Wake()
	}
}

// Shutdown stops accepting new spawns, waits for in-flight tasks to
// drain from every queue (up to the configured shutdown timeout), and
// waits for all worker goroutines to exit.
func (s *Scheduler) Shutdown() error {
	if !s.runState.TransitionAny([]uint64{uint64(RunStateRunning), uint64(RunStateCreated)}, uint64(RunStateShuttingDown)) {
		return nil // already shutting down or shut down
	}

	deadline := time.Now().Add(s.cfg.shutdownTimeout)
	for time.Now().Before(deadline) {
		if s.isQuiescent() {
			break
		}
		// wake everyone so they notice the state change and drain
		for i := range s.workers {
			s.parker.Unpark(i)
		}
		if s.reactor != nil {
			s.reactor.Wake()
		}
		time.Sleep(time.Millisecond)
	}

	for i := range s.workers {
		s.parker.Unpark(i)
	}
	if s.reactor != nil {
		s.reactor.Wake()
	}
	s.wg.Wait()
	s.runState.Store(uint64(RunStateShutdown))

	if s.reactor != nil {
		if err := s.reactor.Close(); err != nil {
			s.logger().Error("reactor close failed during shutdown", "err", err)
		}
	}
	s.blockingPool.Close()
	return nil
}

func (s *Scheduler) isQuiescent() bool {
	if s.global.Len() != 0 {
		return false
	}
	for _, w := range s.workers {
		if w.local.Len() != 0 {
			return false
		}
	}
	return true
}

// Reactor exposes the scheduler's I/O reactor so out-of-scope I/O
// wrapper types (sockets, pipes, files — built on top of this runtime,
// not by it) can register interest and arm wakers. Returns nil if I/O
// was disabled via WithIO(false).
func (s *Scheduler) Reactor() *Reactor {
	return s.reactor
}

// Stats returns a snapshot of internal counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Spawned:          s.stats.spawned.Load(),
		LocalOverflowed:  s.stats.overflow.Load(),
		StealsSucceeded:  s.stats.steals.Load(),
		WorkerParkEvents: s.stats.parks.Load(),
	}
}

// workerRegistry associates the goroutine currently executing a
// worker's poll loop with that *worker, so spawn/wake calls made from
// inside a task's Poll can take the fast local-queue path instead of
// always falling back to the global queue. Grounded on the teacher's
// getGoroutineID/isLoopThread pattern in loop.go, generalized from "am
// I the one designated loop goroutine" to "which of N workers am I".
var workerRegistry sync.Map // uint64 goroutine id -> *worker

func currentWorker() *worker {
	v, ok := workerRegistry.Load(getGoroutineID())
	if !ok {
		return nil
	}
	return v.(*worker)
}

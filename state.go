package asyncrt

import (
	"sync/atomic"
)

// RunState represents the lifecycle of the scheduler as a whole.
//
// State Machine:
//
//	RunStateCreated (0) → RunStateRunning (1)      [NewScheduler]
//	RunStateRunning (1) → RunStateShuttingDown (2) [Scheduler.Shutdown]
//	RunStateShuttingDown (2) → RunStateShutdown (3) [last worker exits]
//	RunStateShutdown (3) → (terminal)
//
// Transition rules mirror the task state word in task.go: temporary
// states are moved with a CAS, the terminal state is moved with Store.
type RunState uint64

const (
	// RunStateCreated indicates the scheduler has been built but
	// NewScheduler has not yet started any worker.
	RunStateCreated RunState = 0
	// RunStateRunning indicates workers are active and accepting spawns.
	RunStateRunning RunState = 1
	// RunStateShuttingDown indicates Shutdown has been called; workers
	// keep running tasks until the global queue and every local queue
	// are empty, then exit.
	RunStateShuttingDown RunState = 2
	// RunStateShutdown indicates every worker has exited.
	RunStateShutdown RunState = 3
)

func (s RunState) String() string {
	switch s {
	case RunStateCreated:
		return "Created"
	case RunStateRunning:
		return "Running"
	case RunStateShuttingDown:
		return "ShuttingDown"
	case RunStateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// PaddedState is a lock-free state machine with cache-line padding, used
// wherever a hot CAS loop shares a cache line with unrelated fields would
// otherwise cause false sharing: the scheduler's run state and the task
// state word both embed one.
type PaddedState struct { // betteralign:ignore
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte //nolint:unused
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte //nolint:unused
}

// NewPaddedState creates a state machine initialized to v.
func NewPaddedState(v uint64) *PaddedState {
	s := &PaddedState{}
	s.v.Store(v)
	return s
}

// Load returns the current value atomically.
func (s *PaddedState) Load() uint64 {
	return s.v.Load()
}

// Store atomically stores a new value, bypassing transition validation.
// Only safe for terminal, one-way transitions.
func (s *PaddedState) Store(v uint64) {
	s.v.Store(v)
}

// CAS attempts to atomically transition from `from` to `to`.
func (s *PaddedState) CAS(from, to uint64) bool {
	return s.v.CompareAndSwap(from, to)
}

// TransitionAny attempts to move from any of validFrom to to, returning
// true on the first successful CAS.
func (s *PaddedState) TransitionAny(validFrom []uint64, to uint64) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(from, to) {
			return true
		}
	}
	return false
}

// RunState returns the current value reinterpreted as a RunState; used
// by Scheduler, whose state word stores RunState values directly.
func (s *PaddedState) RunState() RunState {
	return RunState(s.Load())
}

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asyncrt

import (
	"runtime"
	"time"
)

// config holds the resolved configuration for a Scheduler, built from
// Option values by New.
type config struct {
	workerThreads       int
	queueCapacity       int
	globalQueueInterval uint32
	eventInterval       uint32
	threadStackSize     int // recorded for parity with the source config table; Go has no per-goroutine stack size knob, so this is a no-op
	ioEnabled           bool
	timersEnabled       bool
	shutdownTimeout     time.Duration
	logger              Logger
}

// Option configures a Scheduler at construction time.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithWorkerThreads sets the number of worker goroutines. Defaults to
// runtime.GOMAXPROCS(0), capped at parkerMaxWorkers (64). Must be
// between 1 and parkerMaxWorkers.
func WithWorkerThreads(n int) Option {
	return optionFunc(func(c *config) error {
		if n < 1 {
			return &ConfigurationError{Field: "WorkerThreads", Message: "must be at least 1"}
		}
		if n > parkerMaxWorkers {
			return &ConfigurationError{Field: "WorkerThreads", Message: "must be at most 64"}
		}
		c.workerThreads = n
		return nil
	})
}

// WithQueueCapacity sets the fixed capacity of each worker's local run
// queue. Must be a power of two; defaults to localQueueCapacity.
func WithQueueCapacity(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 || n&(n-1) != 0 {
			return &ConfigurationError{Field: "QueueCapacity", Message: "must be a positive power of two"}
		}
		c.queueCapacity = n
		return nil
	})
}

// WithGlobalQueueInterval sets how many tasks a worker polls from its
// local queue before it checks the global queue, bounding how long a
// busy worker can starve the global queue. Defaults to 61, matching the
// de-facto industry default (a prime, to avoid falling into lockstep
// with other periodic checks).
func WithGlobalQueueInterval(n uint32) Option {
	return optionFunc(func(c *config) error {
		if n == 0 {
			return &ConfigurationError{Field: "GlobalQueueInterval", Message: "must be at least 1"}
		}
		c.globalQueueInterval = n
		return nil
	})
}

// WithEventInterval sets how many tasks a worker polls between reactor
// turns, bounding I/O-event latency under sustained CPU-bound load.
func WithEventInterval(n uint32) Option {
	return optionFunc(func(c *config) error {
		if n == 0 {
			return &ConfigurationError{Field: "EventInterval", Message: "must be at least 1"}
		}
		c.eventInterval = n
		return nil
	})
}

// WithIO enables or disables the reactor. Disabling it is useful for
// CPU-only workloads that never register I/O sources, saving the
// dedicated poller setup.
func WithIO(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.ioEnabled = enabled
		return nil
	})
}

// WithTimers enables or disables the timer wheel.
func WithTimers(enabled bool) Option {
	return optionFunc(func(c *config) error {
		c.timersEnabled = enabled
		return nil
	})
}

// WithThreadStackSize is recorded for parity with the source runtime's
// configuration surface but has no effect: Go does not expose a
// per-goroutine stack size knob (goroutine stacks start small and grow
// automatically), so this is kept as a documented no-op rather than
// silently dropped from the config table.
func WithThreadStackSize(bytes int) Option {
	return optionFunc(func(c *config) error {
		c.threadStackSize = bytes
		return nil
	})
}

// WithShutdownTimeout bounds how long Shutdown keeps waking workers
// while it waits for the run queues to drain. Shutdown does not report
// a timeout as an error: once the timeout passes it still waits for
// every worker goroutine to exit, then returns nil.
func WithShutdownTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return &ConfigurationError{Field: "ShutdownTimeout", Message: "must be positive"}
		}
		c.shutdownTimeout = d
		return nil
	})
}

// WithLogger installs a Logger the scheduler and reactor use for
// diagnostic events (worker panics, reactor errors, shutdown anomalies).
func WithLogger(l Logger) Option {
	return optionFunc(func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	})
}

// resolveConfig applies opts over the defaults, validating as it goes.
func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		workerThreads:       min(runtime.GOMAXPROCS(0), parkerMaxWorkers),
		queueCapacity:       localQueueCapacity,
		globalQueueInterval: 61,
		eventInterval:       61,
		ioEnabled:           true,
		timersEnabled:       true,
		shutdownTimeout:     30 * time.Second,
		logger:              noopLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

package asyncrt

import (
	"testing"
	"time"
)

// Test_ResolveConfig_Defaults verifies the zero-option defaults match
// what NewScheduler documents.
func Test_ResolveConfig_Defaults(t *testing.T) {
	t.Parallel()

	c, err := resolveConfig(nil)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if c.queueCapacity != localQueueCapacity {
		t.Fatalf("expected default queue capacity %d, got %d", localQueueCapacity, c.queueCapacity)
	}
	if c.globalQueueInterval != 61 {
		t.Fatalf("expected default global queue interval 61, got %d", c.globalQueueInterval)
	}
	if !c.ioEnabled || !c.timersEnabled {
		t.Fatal("IO and timers should be enabled by default")
	}
	if c.workerThreads < 1 {
		t.Fatalf("expected at least one worker thread by default, got %d", c.workerThreads)
	}
}

// Test_WithWorkerThreads_RejectsZeroOrNegative verifies validation.
func Test_WithWorkerThreads_RejectsZeroOrNegative(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -1} {
		if _, err := resolveConfig([]Option{WithWorkerThreads(n)}); err == nil {
			t.Fatalf("expected an error for WithWorkerThreads(%d)", n)
		}
	}
	if _, err := resolveConfig([]Option{WithWorkerThreads(3)}); err != nil {
		t.Fatalf("WithWorkerThreads(3) should be valid: %v", err)
	}
}

// Test_WithQueueCapacity_RequiresPowerOfTwo verifies the validation
// that keeps the local queue's mask arithmetic correct.
func Test_WithQueueCapacity_RequiresPowerOfTwo(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -4, 3, 17, 100} {
		if _, err := resolveConfig([]Option{WithQueueCapacity(n)}); err == nil {
			t.Fatalf("expected an error for WithQueueCapacity(%d)", n)
		}
	}
	c, err := resolveConfig([]Option{WithQueueCapacity(64)})
	if err != nil {
		t.Fatalf("WithQueueCapacity(64) should be valid: %v", err)
	}
	if c.queueCapacity != 64 {
		t.Fatalf("expected queueCapacity 64, got %d", c.queueCapacity)
	}
}

// Test_WithGlobalQueueInterval_RejectsZero verifies validation.
func Test_WithGlobalQueueInterval_RejectsZero(t *testing.T) {
	t.Parallel()

	if _, err := resolveConfig([]Option{WithGlobalQueueInterval(0)}); err == nil {
		t.Fatal("expected an error for WithGlobalQueueInterval(0)")
	}
	c, err := resolveConfig([]Option{WithGlobalQueueInterval(7)})
	if err != nil {
		t.Fatalf("WithGlobalQueueInterval(7) should be valid: %v", err)
	}
	if c.globalQueueInterval != 7 {
		t.Fatalf("expected 7, got %d", c.globalQueueInterval)
	}
}

// Test_WithShutdownTimeout_RejectsNonPositive verifies validation.
func Test_WithShutdownTimeout_RejectsNonPositive(t *testing.T) {
	t.Parallel()

	if _, err := resolveConfig([]Option{WithShutdownTimeout(0)}); err == nil {
		t.Fatal("expected an error for a zero shutdown timeout")
	}
	c, err := resolveConfig([]Option{WithShutdownTimeout(5 * time.Second)})
	if err != nil {
		t.Fatalf("valid timeout should not error: %v", err)
	}
	if c.shutdownTimeout != 5*time.Second {
		t.Fatalf("expected 5s, got %v", c.shutdownTimeout)
	}
}

// Test_WithLogger_NilIsIgnored verifies passing a nil Logger leaves the
// default noopLogger in place rather than overwriting it with nil.
func Test_WithLogger_NilIsIgnored(t *testing.T) {
	t.Parallel()

	c, err := resolveConfig([]Option{WithLogger(nil)})
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}
	if c.logger == nil {
		t.Fatal("WithLogger(nil) should not clear the default logger")
	}
}

// Test_ResolveConfig_NilOptionIsSkipped verifies a nil Option in the
// slice (e.g. from a conditional caller) is simply skipped.
func Test_ResolveConfig_NilOptionIsSkipped(t *testing.T) {
	t.Parallel()

	if _, err := resolveConfig([]Option{nil, WithWorkerThreads(2), nil}); err != nil {
		t.Fatalf("nil options should be skipped without error: %v", err)
	}
}

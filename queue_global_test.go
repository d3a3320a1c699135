package asyncrt

import (
	"sync"
	"testing"
)

// Test_GlobalQueue_PushPopFIFO verifies single-task Push/Pop preserves
// FIFO order.
func Test_GlobalQueue_PushPopFIFO(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	for i := uint64(1); i <= 3; i++ {
		q.Push(newTestTask(i))
	}

	for _, want := range []uint64{1, 2, 3} {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop should succeed while queue is non-empty")
		}
		if got.id != want {
			t.Fatalf("expected FIFO order: want task %d, got %d", want, got.id)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Fatal("Pop on an empty queue should report false")
	}
}

// Test_GlobalQueue_PushBatchPreservesOrder verifies a single PushBatch
// call enqueues its tasks in the given order.
func Test_GlobalQueue_PushBatchPreservesOrder(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	batch := []*Task{newTestTask(1), newTestTask(2), newTestTask(3)}
	q.PushBatch(batch)

	if q.Len() != 3 {
		t.Fatalf("expected length 3 after PushBatch, got %d", q.Len())
	}
	for _, want := range []uint64{1, 2, 3} {
		got, ok := q.Pop()
		if !ok || got.id != want {
			t.Fatalf("expected task %d next, got %v (ok=%v)", want, got, ok)
		}
	}
}

// Test_GlobalQueue_PushBatchEmptyIsNoOp verifies an empty batch doesn't
// allocate a chunk or otherwise disturb the queue.
func Test_GlobalQueue_PushBatchEmptyIsNoOp(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	q.PushBatch(nil)
	if q.Len() != 0 {
		t.Fatalf("expected length 0, got %d", q.Len())
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop should fail on a queue that only received an empty batch")
	}
}

// Test_GlobalQueue_PopBatchRespectsMax verifies PopBatch never returns
// more than max tasks and drains exactly what's available when the
// queue holds fewer than max.
func Test_GlobalQueue_PopBatchRespectsMax(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	for i := uint64(1); i <= 5; i++ {
		q.Push(newTestTask(i))
	}

	batch := q.PopBatch(3)
	if len(batch) != 3 {
		t.Fatalf("expected PopBatch(3) to return 3 tasks, got %d", len(batch))
	}
	for i, want := range []uint64{1, 2, 3} {
		if batch[i].id != want {
			t.Fatalf("batch[%d]: want task %d, got %d", i, want, batch[i].id)
		}
	}

	rest := q.PopBatch(10)
	if len(rest) != 2 {
		t.Fatalf("expected remaining 2 tasks, got %d", len(rest))
	}
}

// Test_GlobalQueue_ChunkBoundaryCrossing pushes more tasks than fit in a
// single chunk to exercise chunk allocation, linking, and recycling via
// returnGlobalChunk/the sync.Pool.
func Test_GlobalQueue_ChunkBoundaryCrossing(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	const n = globalChunkSize*2 + 17
	for i := uint64(1); i <= n; i++ {
		q.Push(newTestTask(i))
	}
	if q.Len() != n {
		t.Fatalf("expected length %d, got %d", n, q.Len())
	}

	for i := uint64(1); i <= n; i++ {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop should succeed for task %d", i)
		}
		if got.id != i {
			t.Fatalf("expected task %d in order, got %d", i, got.id)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("queue should be empty after draining every pushed task")
	}
}

// Test_GlobalQueue_ConcurrentPushPopConserveTasks verifies many
// concurrent pushers and poppers observe every task exactly once.
func Test_GlobalQueue_ConcurrentPushPopConserveTasks(t *testing.T) {
	t.Parallel()

	const n = 4000
	q := newGlobalQueue()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < n/4; i++ {
				q.Push(newTestTask(uint64(w*(n/4) + i + 1)))
			}
		}(w)
	}
	wg.Wait()

	if q.Len() != n {
		t.Fatalf("expected length %d after concurrent pushes, got %d", n, q.Len())
	}

	seen := make([]int32, n+1)
	var mu sync.Mutex
	var popWg sync.WaitGroup
	for w := 0; w < 4; w++ {
		popWg.Add(1)
		go func() {
			defer popWg.Done()
			for {
				task, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[task.id]++
				mu.Unlock()
			}
		}()
	}
	popWg.Wait()

	for id := uint64(1); id <= n; id++ {
		if seen[id] != 1 {
			t.Fatalf("task %d observed %d times, want exactly 1", id, seen[id])
		}
	}
}

// Test_GlobalQueue_LenAfterInterleavedOps verifies Len tracks the true
// outstanding count through a mix of Push, PushBatch, Pop and PopBatch.
func Test_GlobalQueue_LenAfterInterleavedOps(t *testing.T) {
	t.Parallel()

	q := newGlobalQueue()
	q.Push(newTestTask(1))
	q.PushBatch([]*Task{newTestTask(2), newTestTask(3)})
	if q.Len() != 3 {
		t.Fatalf("expected length 3, got %d", q.Len())
	}
	q.Pop()
	if q.Len() != 2 {
		t.Fatalf("expected length 2 after Pop, got %d", q.Len())
	}
	q.PopBatch(2)
	if q.Len() != 0 {
		t.Fatalf("expected length 0 after draining, got %d", q.Len())
	}
}

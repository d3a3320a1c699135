package asyncrt

import (
	"fmt"
	"testing"
	"unsafe"
)

// TestPaddedStateAlign verifies PaddedState's atomic word sits alone on
// its own cache line, front and back padded, the same layout invariant
// the teacher verified for FastState.
func TestPaddedStateAlign(t *testing.T) {
	s := &PaddedState{}

	vOffset := unsafe.Offsetof(s.v)
	vSize := unsafe.Sizeof(s.v)
	vEnd := vOffset + vSize
	fmt.Printf("=== PaddedState ===\n")
	fmt.Printf("v: offset=%d, size=%d, ends at %d\n", vOffset, vSize, vEnd)

	cacheLineStart := vOffset / sizeOfCacheLine * sizeOfCacheLine
	cacheLineEnd := cacheLineStart + sizeOfCacheLine
	if vEnd > cacheLineEnd {
		t.Errorf("FAIL: v shares a cache line (ends at %d, line ends at %d)", vEnd, cacheLineEnd)
	}

	// front pad + v + back pad, both pads sized sizeOfCacheLine-vSize.
	expectedSize := 2*sizeOfCacheLine - vSize
	actualSize := unsafe.Sizeof(*s)
	if actualSize != expectedSize {
		t.Errorf("expected size %d, got %d", expectedSize, actualSize)
	}
}

// TestLocalQueueAlign verifies the Chase-Lev deque's top and bottom
// indices, which the owner and stealers write from different
// goroutines, land on separate cache lines — the same false-sharing
// check the teacher ran against MicrotaskRing's head/tail.
func TestLocalQueueAlign(t *testing.T) {
	q := &localQueue{}

	topOffset := unsafe.Offsetof(q.top)
	bottomOffset := unsafe.Offsetof(q.bottom)
	fmt.Printf("=== localQueue ===\n")
	fmt.Printf("top offset: %d\n", topOffset)
	fmt.Printf("bottom offset: %d\n", bottomOffset)

	topLine := topOffset / sizeOfCacheLine
	bottomLine := bottomOffset / sizeOfCacheLine
	if topLine == bottomLine {
		t.Errorf("FAIL: top and bottom share cache line %d (offsets %d, %d)", topLine, topOffset, bottomOffset)
	}

	fmt.Printf("Total: %d bytes\n", unsafe.Sizeof(*q))
}

package alloc

import "github.com/joshuapare/heapkit/internal/format"

// Ptr is the payload offset of a block within the arena. Zero is never a
// payload and doubles as the nil pointer.
type Ptr = uint32

// Nil is the pointer that addresses no block.
const Nil Ptr = 0

// Allocator is the allocate/free/resize contract.
//
// Implementations:
//   - Heap: explicit free list with boundary tags
//
// The trace driver and the CLI are written against this interface.
type Allocator interface {
	// Alloc returns a block whose payload holds at least n bytes and is
	// 8-byte aligned.
	Alloc(n int) (Ptr, error)

	// Free releases a block returned by Alloc or Realloc.
	Free(p Ptr) error

	// Realloc resizes the block at p to hold n bytes, possibly moving it.
	// Realloc(Nil, n) allocates; Realloc(p, 0) frees and returns p.
	Realloc(p Ptr, n int) (Ptr, error)

	// Payload returns the caller-owned bytes of an allocated block.
	Payload(p Ptr) ([]byte, error)

	// Extent returns the number of arena bytes in use by the heap.
	Extent() int

	// CheckHeap verifies every structural invariant.
	CheckHeap(verbose bool) error
}

// Block describes one ordinary block as seen by Walk.
type Block struct {
	Ptr       Ptr  // Payload offset
	Size      int  // Whole block span including both tags
	Allocated bool // Allocated bit
}

// Usable returns the number of payload bytes the block holds.
func (b Block) Usable() int { return format.PayloadSize(b.Size) }

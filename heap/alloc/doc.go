// Package alloc implements an explicit free-list allocator over a growable arena.
//
// # Overview
//
// The heap is one contiguous byte region supplied by an arena.Arena. Every
// block carries a boundary tag (size | allocated bit) at both ends, and free
// blocks thread a doubly linked list through their own payload. All pointers
// are uint32 payload offsets into the arena, so the image is position
// independent and can be persisted or inspected byte for byte.
//
//	offset 0      4          8          12          16
//	       | pad  | pro hdr  | pro ftr  | block hdr | payload ... | block ftr | ... | epi hdr |
//
// The prologue and epilogue are always-allocated sentinels, so coalescing
// never has to special-case the ends of the heap.
//
// # Operations
//
//   - Alloc(n): best-fit search with an early exit once a block is within
//     Config.FitMargin bytes of the request. On a miss the arena grows by the
//     request, or only by the shortfall when the last block is already free.
//   - Free(p): clears the allocated bit and merges with free neighbours.
//   - Realloc(p, n): shrinks in place, grows into a free right neighbour, a
//     free left neighbour (moving the payload down) or both, and only then
//     falls back to allocate, copy and free.
//   - CheckHeap(verbose): cross-checks the block sequence and the free list
//     with the verify package.
//
// # Usage Example
//
//	h, err := alloc.New(arena.NewMem(nil), nil)
//	if err != nil {
//	    return err
//	}
//	p, err := h.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	buf, _ := h.Payload(p)
//	copy(buf, "hello")
//	p, err = h.Realloc(p, 4000)
//	...
//	err = h.Free(p)
//
// # Errors
//
// Exhaustion of the arena is reported as ErrNoSpace and leaves the heap
// untouched. Freeing a block twice is reported as ErrDoubleFree, and a pointer
// that does not decode to a block as ErrBadPtr.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. Callers must serialize access.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/arena: the growth primitive
//   - github.com/joshuapare/heapkit/heap/dirty: tracks written ranges for file arenas
//   - github.com/joshuapare/heapkit/heap/verify: invariant checker
//   - github.com/joshuapare/heapkit/internal/format: tag layout and constants
package alloc

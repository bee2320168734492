package alloc

// Stats holds allocator counters and the current shape of the heap.
type Stats struct {
	AllocCalls   int   // Total Alloc() calls
	FreeCalls    int   // Total Free() calls
	ReallocCalls int   // Total Realloc() calls
	FitHits      int   // Allocations served from the free list
	FitMisses    int   // Allocations that required growth
	GrowCalls    int   // Arena growths
	GrowBytes    int64 // Bytes requested from the arena
	Splits       int   // Blocks split on placement

	CoalesceNone int // Frees with both neighbours allocated
	CoalesceNext int // Merges with the right neighbour only
	CoalescePrev int // Merges with the left neighbour only
	CoalesceBoth int // Merges with both neighbours

	ReallocSame   int // Same block size, nothing to do
	ReallocShrink int // Shrunk in place
	ReallocNext   int // Grew into the right neighbour
	ReallocPrev   int // Grew into the left neighbour (payload moved down)
	ReallocBoth   int // Grew into both neighbours (payload moved down)
	ReallocMoves  int // Fell back to allocate, copy and free

	// Heap shape, computed by walking the blocks when Stats is called.
	Extent          int
	AllocatedBlocks int
	AllocatedBytes  int64 // Block bytes, tags included
	FreeBlocks      int
	FreeBytes       int64
	LargestFree     int
}

// Stats returns the counters and walks the heap for its current shape.
func (h *Heap) Stats() Stats {
	s := h.stats
	if h.ready() != nil {
		return s
	}
	s.Extent = len(h.data)
	_ = h.Walk(func(b Block) error {
		if b.Allocated {
			s.AllocatedBlocks++
			s.AllocatedBytes += int64(b.Size)
			return nil
		}
		s.FreeBlocks++
		s.FreeBytes += int64(b.Size)
		s.LargestFree = max(s.LargestFree, b.Size)
		return nil
	})
	return s
}

// Overhead returns the bytes of the extent not handed out as allocated
// blocks: the sentinels plus all free space.
func (s Stats) Overhead() int64 {
	if s.Extent == 0 {
		return 0
	}
	return int64(s.Extent) - s.AllocatedBytes
}


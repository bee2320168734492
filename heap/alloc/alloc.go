package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Alloc returns a block with at least n payload bytes, aligned to 8 bytes.
func (h *Heap) Alloc(n int) (Ptr, error) {
	h.stats.AllocCalls++
	if err := h.ready(); err != nil {
		return Nil, err
	}
	asize, ok := format.BlockSizeFor(n)
	if !ok {
		return Nil, fmt.Errorf("alloc %d bytes: %w", n, ErrBadSize)
	}
	bp, err := h.allocBlock(asize)
	if err != nil {
		return Nil, fmt.Errorf("alloc %d bytes: %w", n, err)
	}
	return Ptr(bp), nil
}

// allocBlock finds or makes room for a block of asize bytes and marks it
// allocated.
func (h *Heap) allocBlock(asize int) (int, error) {
	bp := h.findFit(asize)
	if bp == format.NilLink {
		h.stats.FitMisses++
		h.log.Debug("fit miss", "asize", asize, "extent", len(h.data))

		var err error
		if bp, err = h.extend(asize); err != nil {
			return format.NilLink, err
		}
	} else {
		h.stats.FitHits++
	}
	h.place(bp, asize)
	return bp, nil
}

// Free releases the block at p and merges it with free neighbours.
func (h *Heap) Free(p Ptr) error {
	h.stats.FreeCalls++
	t, err := h.lookup(p)
	if err != nil {
		return fmt.Errorf("free: %w", err)
	}
	if !t.Allocated {
		return fmt.Errorf("free 0x%X: %w", p, ErrDoubleFree)
	}
	h.release(t.Payload, t.Size)
	return nil
}

func (h *Heap) release(bp, size int) {
	h.setTags(bp, size, false)
	h.coalesce(bp)
}

// findFit scans the free list for the block with the least surplus over
// asize, stopping at the first block whose surplus is under the fit margin.
func (h *Heap) findFit(asize int) int {
	best, bestSurplus := format.NilLink, 0
	for bp := h.head; bp != format.NilLink; bp = h.nextFree(bp) {
		size := h.size(bp)
		if size < asize {
			continue
		}
		surplus := size - asize
		if surplus < h.cfg.FitMargin {
			return bp
		}
		if best == format.NilLink || surplus < bestSurplus {
			best, bestSurplus = bp, surplus
		}
	}
	return best
}

// extend grows the arena so a block of asize bytes exists at the end of the
// heap and returns it, free and on the free list.
func (h *Heap) extend(asize int) (int, error) {
	need := asize
	if !h.cfg.GrowFull {
		// The epilogue's predecessor is reached through its footer, which
		// sits right before the epilogue header.
		tail := h.prevTag(len(h.data))
		if !format.TagAllocated(tail) {
			need = asize - format.TagSize(tail)
		}
	}
	need = max(need, h.cfg.MinGrow)
	return h.grow(need)
}

// grow appends n bytes as one free block. The old epilogue header becomes the
// new block's header and a fresh epilogue closes the heap. The block is
// coalesced with a free tail, so the returned payload may lie before the
// growth point.
func (h *Heap) grow(n int) (int, error) {
	if len(h.data)+n > format.MaxHeapSize {
		return format.NilLink, fmt.Errorf("%w: grow %d bytes at extent %d exceeds %d",
			ErrNoSpace, n, len(h.data), format.MaxHeapSize)
	}
	old, err := h.a.Grow(n)
	if err != nil {
		return format.NilLink, fmt.Errorf("%w: grow %d bytes: %w", ErrNoSpace, n, err)
	}
	h.data = h.a.Bytes()
	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(n)

	bp := old
	h.setTags(bp, n, false)
	h.putWord(format.HeaderOff(bp+n), format.Pack(0, true))

	h.log.Debug("grow", "bytes", n, "extent", len(h.data), "grows", h.stats.GrowCalls)
	return h.coalesce(bp), nil
}

// place marks asize bytes at bp allocated, splitting off the rest as a free
// block when it is large enough to stand alone. bp may be free (it is taken
// off the list) or already allocated (a realloc resizing in place).
func (h *Heap) place(bp, asize int) {
	size := h.size(bp)
	if !h.allocated(bp) {
		h.remove(bp)
	}
	if rest := size - asize; rest >= format.MinBlockSize {
		h.stats.Splits++
		h.setTags(bp, asize, true)
		h.setTags(bp+asize, rest, false)
		// A shrinking realloc can leave the remainder next to a free block.
		h.coalesce(bp + asize)
		return
	}
	h.setTags(bp, size, true)
}

// coalesce merges the free block at bp with whichever neighbours are free,
// puts the result on the front of the free list and returns its address.
//
//	prev   next   result
//	alloc  alloc  bp as is
//	alloc  free   bp absorbs next
//	free   alloc  prev absorbs bp
//	free   free   prev absorbs bp and next
func (h *Heap) coalesce(bp int) int {
	size := h.size(bp)
	prevTag := h.prevTag(bp)
	prevAlloc := format.TagAllocated(prevTag)
	next := bp + size
	nextAlloc := h.allocated(next)

	switch {
	case prevAlloc && nextAlloc:
		h.stats.CoalesceNone++

	case prevAlloc && !nextAlloc:
		h.stats.CoalesceNext++
		h.remove(next)
		size += h.size(next)

	case !prevAlloc && nextAlloc:
		h.stats.CoalescePrev++
		prev := bp - format.TagSize(prevTag)
		h.remove(prev)
		size += format.TagSize(prevTag)
		bp = prev

	default:
		h.stats.CoalesceBoth++
		prev := bp - format.TagSize(prevTag)
		h.remove(prev)
		h.remove(next)
		size += format.TagSize(prevTag) + h.size(next)
		bp = prev
	}

	h.setTags(bp, size, false)
	h.insertFront(bp)
	return bp
}

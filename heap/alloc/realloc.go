package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Realloc resizes the block at p to hold n bytes.
//
//   - Realloc(Nil, n) is Alloc(n).
//   - Realloc(p, 0) frees p and returns p, which must not be used again.
//   - A shrink splits the tail off in place when it is large enough.
//   - A grow tries, in order, the free right neighbour, the free left
//     neighbour and both together; the left cases move the payload down and
//     return the new address. Otherwise the payload is copied to a fresh block
//     and p is freed.
//
// When no block can be found the error wraps ErrNoSpace and p is left
// allocated with its contents intact.
func (h *Heap) Realloc(p Ptr, n int) (Ptr, error) {
	h.stats.ReallocCalls++
	if err := h.ready(); err != nil {
		return Nil, err
	}
	if p == Nil {
		return h.Alloc(n)
	}
	if n == 0 {
		if err := h.Free(p); err != nil {
			return Nil, fmt.Errorf("realloc: %w", err)
		}
		return p, nil
	}

	t, err := h.lookup(p)
	if err != nil {
		return Nil, fmt.Errorf("realloc: %w", err)
	}
	if !t.Allocated {
		return Nil, fmt.Errorf("realloc 0x%X: %w", p, ErrDoubleFree)
	}
	asize, ok := format.BlockSizeFor(n)
	if !ok {
		return Nil, fmt.Errorf("realloc 0x%X to %d bytes: %w", p, n, ErrBadSize)
	}

	bp, old := t.Payload, t.Size
	switch {
	case asize == old:
		h.stats.ReallocSame++
		return p, nil
	case asize < old:
		h.stats.ReallocShrink++
		h.place(bp, asize)
		h.log.Debug("realloc", "path", "shrink", "ptr", bp, "from", old, "to", asize)
		return p, nil
	}

	next := bp + old
	nextFree := !h.allocated(next)
	nextSize := 0
	if nextFree {
		nextSize = h.size(next)
	}
	prevTag := h.prevTag(bp)
	prevFree := !format.TagAllocated(prevTag)
	prevSize := 0
	if prevFree {
		prevSize = format.TagSize(prevTag)
	}
	prev := bp - prevSize

	switch {
	case nextFree && old+nextSize >= asize:
		h.stats.ReallocNext++
		h.remove(next)
		h.setTags(bp, old+nextSize, true)
		h.place(bp, asize)
		h.log.Debug("realloc", "path", "next", "ptr", bp, "from", old, "to", asize)
		return p, nil

	case prevFree && prevSize+old >= asize:
		h.stats.ReallocPrev++
		h.remove(prev)
		h.moveDown(prev, bp, old)
		h.setTags(prev, prevSize+old, true)
		h.place(prev, asize)
		h.log.Debug("realloc", "path", "prev", "ptr", bp, "new", prev, "from", old, "to", asize)
		return Ptr(prev), nil

	case prevFree && nextFree && prevSize+old+nextSize >= asize:
		h.stats.ReallocBoth++
		h.remove(prev)
		h.remove(next)
		h.moveDown(prev, bp, old)
		h.setTags(prev, prevSize+old+nextSize, true)
		h.place(prev, asize)
		h.log.Debug("realloc", "path", "both", "ptr", bp, "new", prev, "from", old, "to", asize)
		return Ptr(prev), nil
	}

	nbp, err := h.allocBlock(asize)
	if err != nil {
		return Nil, fmt.Errorf("realloc 0x%X to %d bytes: %w", p, n, err)
	}
	h.stats.ReallocMoves++
	keep := min(format.PayloadSize(old), n)
	copy(h.data[nbp:nbp+keep], h.data[bp:bp+keep])
	h.touch(nbp, keep)
	h.release(bp, old)
	h.log.Debug("realloc", "path", "move", "ptr", bp, "new", nbp, "from", old, "to", asize)
	return Ptr(nbp), nil
}

// moveDown copies the payload of the block at bp (size bytes) to dst, which
// is lower in the heap. The ranges may overlap.
func (h *Heap) moveDown(dst, bp, size int) {
	n := format.PayloadSize(size)
	copy(h.data[dst:dst+n], h.data[bp:bp+n])
	h.touch(dst, n)
}

func (h *Heap) touch(off, n int) {
	if h.dt != nil && n > 0 {
		h.dt.Add(off, n)
	}
}

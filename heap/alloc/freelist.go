package alloc

import "github.com/joshuapare/heapkit/internal/format"

// insertFront pushes a free block onto the head of the list.
func (h *Heap) insertFront(bp int) {
	h.setNextFree(bp, h.head)
	h.setPrevFree(bp, format.NilLink)
	if h.head != format.NilLink {
		h.setPrevFree(h.head, bp)
	}
	h.head = bp
}

// remove splices a free block out of the list using its own links. bp must
// be on the list.
func (h *Heap) remove(bp int) {
	next, prev := h.nextFree(bp), h.prevFree(bp)
	if prev == format.NilLink {
		h.head = next
	} else {
		h.setNextFree(prev, next)
	}
	if next != format.NilLink {
		h.setPrevFree(next, prev)
	}
}

package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

// Walk calls fn for every ordinary block in address order. The prologue and
// epilogue are skipped. Returning format.ErrStop ends the walk early.
func (h *Heap) Walk(fn func(Block) error) error {
	if err := h.ready(); err != nil {
		return err
	}
	return format.WalkBlocks(h.data, func(t format.BlockTag) error {
		if t.Payload == format.ProloguePayload || t.IsEpilogue() {
			return nil
		}
		return fn(Block{Ptr: Ptr(t.Payload), Size: t.Size, Allocated: t.Allocated})
	})
}

// FreeList calls fn for every block on the free list, most recently inserted
// first.
func (h *Heap) FreeList(fn func(Block) error) error {
	if err := h.ready(); err != nil {
		return err
	}
	return format.WalkFree(h.data, h.head, func(l format.FreeLinks) error {
		return fn(Block{Ptr: Ptr(l.Payload), Size: h.size(l.Payload)})
	})
}

// Payload returns the payload of the allocated block at p. The slice aliases
// the arena and is invalidated by any call that grows the heap. The range is
// reported to the dirty tracker since the caller is expected to write it.
func (h *Heap) Payload(p Ptr) ([]byte, error) {
	t, err := h.lookup(p)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	if !t.Allocated {
		return nil, fmt.Errorf("payload 0x%X: %w", p, ErrDoubleFree)
	}
	n := format.PayloadSize(t.Size)
	h.touch(t.Payload, n)
	return h.data[t.Payload : t.Payload+n : t.Payload+n], nil
}

// UsableSize returns how many payload bytes the allocated block at p holds.
func (h *Heap) UsableSize(p Ptr) (int, error) {
	t, err := h.lookup(p)
	if err != nil {
		return 0, fmt.Errorf("usable size: %w", err)
	}
	if !t.Allocated {
		return 0, fmt.Errorf("usable size 0x%X: %w", p, ErrDoubleFree)
	}
	return format.PayloadSize(t.Size), nil
}

// Snapshot returns the raw heap image and free-list head. Data aliases the
// arena; copy it to keep it past the next heap operation.
func (h *Heap) Snapshot() verify.Image {
	if h.ready() != nil {
		return verify.Image{FreeHead: format.NilLink}
	}
	return verify.Image{Data: h.data, FreeHead: h.head}
}

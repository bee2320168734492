package alloc

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/internal/format"
)

// Heap is an explicit free-list allocator over one arena.
type Heap struct {
	a   arena.Arena
	dt  DirtyTracker
	log *slog.Logger
	cfg Config

	data   []byte // a.Bytes(), refreshed after every Grow
	head   int    // payload offset of the first free block, format.NilLink if none
	inited bool

	stats Stats
}

// New creates a heap over a and initializes it.
//
// Parameters:
//   - a: The arena to carve blocks from; it is reset by Init
//   - cfg: Tuning and collaborators (use nil for DefaultConfig)
func New(a arena.Arena, cfg *Config) (*Heap, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	c := *cfg
	if c.FitMargin == 0 {
		c.FitMargin = DefaultFitMargin
	}
	if c.MinGrow > 0 {
		c.MinGrow = format.Align8(c.MinGrow)
	}

	h := &Heap{
		a:   a,
		dt:  c.Tracker,
		log: c.logger(),
		cfg: c,
	}
	if err := h.Init(); err != nil {
		return nil, err
	}
	return h, nil
}

// Init resets the arena and lays out an empty heap: padding, the prologue and
// the epilogue. Calling Init again discards every block.
func (h *Heap) Init() error {
	h.inited = false
	h.data = nil
	h.head = format.NilLink
	h.stats = Stats{}

	if err := h.a.Reset(); err != nil {
		return fmt.Errorf("alloc: init: %w", err)
	}
	base, err := h.a.Grow(format.InitialSize)
	if err != nil {
		return fmt.Errorf("%w: init: %w", ErrNoSpace, err)
	}
	if base != 0 {
		return fmt.Errorf("alloc: init: arena not empty after reset (extent %d)", base)
	}
	h.data = h.a.Bytes()

	h.putWord(0, 0)
	h.setTags(format.ProloguePayload, format.PrologueSize, true)
	h.putWord(format.HeaderOff(format.InitialSize), format.Pack(0, true))
	h.inited = true

	h.log.Debug("init", "extent", format.InitialSize)
	return nil
}

// Extent returns the number of arena bytes the heap spans.
func (h *Heap) Extent() int {
	if h.ready() != nil {
		return 0
	}
	return len(h.data)
}

// ready re-reads the arena's bytes before an operation touches them. A closed
// arena has none, and the heap then refuses work as if Init never ran.
func (h *Heap) ready() error {
	if !h.inited {
		return ErrNotInitialized
	}
	h.data = h.a.Bytes()
	if len(h.data) == 0 {
		return fmt.Errorf("arena released: %w", ErrNotInitialized)
	}
	return nil
}

// Block accessors. These trust the heap's own invariants; pointers coming from
// callers are validated by lookup first.

func (h *Heap) word(off int) uint32 {
	return format.ReadU32(h.data, off)
}

func (h *Heap) putWord(off int, w uint32) {
	format.PutU32(h.data, off, w)
	if h.dt != nil {
		h.dt.Add(off, format.WordSize)
	}
}

func (h *Heap) size(bp int) int {
	return format.TagSize(h.word(format.HeaderOff(bp)))
}

func (h *Heap) allocated(bp int) bool {
	return format.TagAllocated(h.word(format.HeaderOff(bp)))
}

// setTags writes the same tag word into the header and footer of bp.
func (h *Heap) setTags(bp, size int, allocated bool) {
	w := format.Pack(size, allocated)
	h.putWord(format.HeaderOff(bp), w)
	h.putWord(format.FooterOff(bp, size), w)
}

// prevTag returns the footer of the block before bp. The prologue guarantees
// there is one.
func (h *Heap) prevTag(bp int) uint32 {
	return h.word(bp - format.TagOverhead)
}

func (h *Heap) nextFree(bp int) int { return int(h.word(format.NextLinkOff(bp))) }
func (h *Heap) prevFree(bp int) int { return int(h.word(format.PrevLinkOff(bp))) }

func (h *Heap) setNextFree(bp, v int) { h.putWord(format.NextLinkOff(bp), uint32(v)) }
func (h *Heap) setPrevFree(bp, v int) { h.putWord(format.PrevLinkOff(bp), uint32(v)) }

// lookup validates a caller's pointer and decodes its block. The header is
// checked to lie inside the heap before the footer is read.
func (h *Heap) lookup(p Ptr) (format.BlockTag, error) {
	if err := h.ready(); err != nil {
		return format.BlockTag{}, err
	}
	bp := int(p)
	if bp < format.ProloguePayload+format.PrologueSize || bp >= len(h.data) || !format.IsAligned(bp) {
		return format.BlockTag{}, fmt.Errorf("pointer 0x%X outside heap [0x%X, 0x%X): %w",
			bp, format.ProloguePayload+format.PrologueSize, len(h.data), ErrBadPtr)
	}
	t, err := format.DecodeBlock(h.data, bp)
	if err != nil {
		return t, fmt.Errorf("pointer 0x%X: %w: %w", bp, ErrBadPtr, err)
	}
	if t.IsEpilogue() || t.Size < format.MinBlockSize || !t.Consistent() {
		return t, fmt.Errorf("pointer 0x%X does not address a block: %w", bp, ErrBadPtr)
	}
	return t, nil
}

var _ Allocator = (*Heap)(nil)

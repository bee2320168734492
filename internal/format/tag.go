package format

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/buf"
)

// Block tag layout (little-endian uint32, repeated as header and footer):
//
//	 31                     3  2  1  0
//	-----------------------------------
//	| s  s  s  s  ... s  s  s  0  0  a |
//	-----------------------------------
//
// s is the whole block span (header + payload + footer), always a multiple of
// Alignment, and a is set iff the block is allocated.
//
// A block is addressed by its payload offset bp:
//
//	bp-4            bp                          bp+size-8     bp+size-4
//	| header | next link | prev link | ...     | footer |
//
// The link words exist only while the block is free; an allocated block hands
// the whole payload to the caller.

// Pack encodes a block size and allocated flag into one tag word.
func Pack(size int, allocated bool) uint32 {
	w := uint32(size) &^ flagMask
	if allocated {
		w |= allocBit
	}
	return w
}

// TagSize extracts the block size from a tag word.
func TagSize(w uint32) int {
	return int(w &^ flagMask)
}

// TagAllocated extracts the allocated flag from a tag word.
func TagAllocated(w uint32) bool {
	return w&allocBit != 0
}

// HeaderOff returns the offset of the header tag of the block with payload bp.
func HeaderOff(bp int) int { return bp - WordSize }

// FooterOff returns the offset of the footer tag of a block of the given size.
func FooterOff(bp, size int) int { return bp + size - TagOverhead }

// NextLinkOff returns the offset of the next-free link of a free block.
func NextLinkOff(bp int) int { return bp }

// PrevLinkOff returns the offset of the prev-free link of a free block.
func PrevLinkOff(bp int) int { return bp + WordSize }

// ReadWord reads the word at off, failing instead of panicking when the word
// is not inside b.
func ReadWord(b []byte, off int) (uint32, error) {
	if !buf.Has(b, off, WordSize) {
		return 0, fmt.Errorf("word at 0x%X: %w", off, ErrTruncated)
	}
	return ReadU32(b, off), nil
}

// BlockTag is a decoded block: both tags plus the values they carry.
type BlockTag struct {
	Payload   int    // Payload offset (block address)
	Size      int    // Whole block span; 0 for the epilogue
	Allocated bool   // Allocated bit from the header
	Header    uint32 // Raw header word
	Footer    uint32 // Raw footer word (0 for the epilogue)
}

// IsEpilogue reports whether the tag is the zero-size terminator.
func (t BlockTag) IsEpilogue() bool { return t.Size == 0 }

// Next returns the payload offset of the block that follows.
func (t BlockTag) Next() int { return t.Payload + t.Size }

// DecodeBlock reads the header at bp, checks that it carries no flag bit other
// than the allocated bit and that the size it claims stays inside b, and only
// then reads the footer. A zero size is
// the epilogue and has no footer.
func DecodeBlock(b []byte, bp int) (BlockTag, error) {
	hdr, err := ReadWord(b, HeaderOff(bp))
	if err != nil {
		return BlockTag{}, fmt.Errorf("block 0x%X header: %w", bp, err)
	}
	size := TagSize(hdr)
	t := BlockTag{
		Payload:   bp,
		Size:      size,
		Allocated: TagAllocated(hdr),
		Header:    hdr,
	}
	if stray := hdr & flagMask &^ allocBit; stray != 0 {
		return t, fmt.Errorf("block 0x%X header 0x%08X has flag bits 0x%X: %w", bp, hdr, stray, ErrBadTag)
	}
	if size == 0 {
		return t, nil
	}
	if size < TagOverhead || !IsAligned(size) {
		return t, fmt.Errorf("block 0x%X size %d: %w", bp, size, ErrBadTag)
	}
	if _, err := buf.CheckRange(len(b), HeaderOff(bp), size); err != nil {
		return t, fmt.Errorf("block 0x%X size %d: %w (%v)", bp, size, ErrBadTag, err)
	}
	t.Footer = ReadU32(b, FooterOff(bp, size))
	return t, nil
}

// Consistent reports whether header and footer encode the same pair.
func (t BlockTag) Consistent() bool {
	return t.IsEpilogue() || t.Header == t.Footer
}

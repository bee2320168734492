// Package format houses the low-level layout of the heap image: boundary tag
// words, link words and the alignment rules that every block obeys. Higher
// level packages never touch raw bytes directly; they go through the helpers
// here so the byte order and word widths live in one place.
package format

const (
	// WordSize is the width of a boundary tag and of a free-list link.
	WordSize = 4

	// Alignment is the payload alignment. Every block size is a multiple of it.
	Alignment = 8

	// AlignmentMask is the bitmask used for aligning to 8-byte boundaries (Alignment - 1).
	AlignmentMask = Alignment - 1

	// TagOverhead is the space taken by the header and footer of one block.
	TagOverhead = 2 * WordSize

	// LinkOverhead is the space a free block needs for its next and prev links.
	LinkOverhead = 2 * WordSize

	// MinBlockSize is the smallest block that can hold both tags and both links.
	// A split remainder smaller than this is absorbed into the allocated block.
	MinBlockSize = TagOverhead + LinkOverhead

	// PrologueSize is the size recorded in the prologue tags (header + footer only).
	PrologueSize = TagOverhead

	// InitialSize is the number of bytes the arena must supply at init:
	//
	//	Offset  Size  Description
	//	0x00    4     Padding so payloads land on 8-byte boundaries.
	//	0x04    4     Prologue header (8 | allocated).
	//	0x08    4     Prologue footer (8 | allocated).
	//	0x0C    4     Epilogue header (0 | allocated).
	InitialSize = 4 * WordSize

	// ProloguePayload is the payload offset of the prologue block. Block walks
	// start here.
	ProloguePayload = 2 * WordSize

	// NilLink is the link value meaning "no block". Offset 0 is padding and is
	// never the payload of a block.
	NilLink = 0

	// MaxHeapSize bounds the arena extent (2GB - 8) so every offset and size
	// fits a tag word with room to spare on 32-bit platforms.
	MaxHeapSize = 0x7FFFFFF8

	// allocBit marks a block as allocated in its tags.
	allocBit = 0x1

	// flagMask covers the low bits that are free for flags because sizes are
	// multiples of Alignment.
	flagMask = AlignmentMask
)

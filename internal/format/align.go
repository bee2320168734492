package format

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

// BlockSizeFor returns the block size needed to hand out a payload of n bytes:
// the payload plus both tags, rounded to the alignment, with a floor of
// MinBlockSize so the block can rejoin the free list later.
//
// ok is false when n is not positive or the result would not fit a tag word.
//
// Example:
//
//	BlockSizeFor(1)   = 16
//	BlockSizeFor(8)   = 16
//	BlockSizeFor(9)   = 24
//	BlockSizeFor(100) = 112
func BlockSizeFor(n int) (size int, ok bool) {
	if n <= 0 {
		return 0, false
	}
	if n <= Alignment {
		return MinBlockSize, true
	}
	if n > MaxHeapSize-TagOverhead-AlignmentMask {
		return 0, false
	}
	return Align8(n + TagOverhead), true
}

// PayloadSize returns how many payload bytes a block of the given size holds.
func PayloadSize(blockSize int) int {
	if blockSize < TagOverhead {
		return 0
	}
	return blockSize - TagOverhead
}

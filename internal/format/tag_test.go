package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackRoundTrip(t *testing.T) {
	cases := []struct {
		size      int
		allocated bool
	}{
		{0, true},
		{PrologueSize, true},
		{MinBlockSize, false},
		{MinBlockSize, true},
		{4096, false},
		{MaxHeapSize, true},
	}
	for _, tc := range cases {
		w := Pack(tc.size, tc.allocated)
		require.Equal(t, tc.size, TagSize(w), "size of %#x", w)
		require.Equal(t, tc.allocated, TagAllocated(w), "alloc bit of %#x", w)
	}
}

func TestPackDropsLowBits(t *testing.T) {
	// Sizes are always aligned; stray low bits must never leak into the flag.
	w := Pack(24|0x6, false)
	require.Equal(t, 24, TagSize(w))
	require.False(t, TagAllocated(w))
}

func TestTagOffsets(t *testing.T) {
	require.Equal(t, 4, HeaderOff(ProloguePayload))
	require.Equal(t, 8, FooterOff(ProloguePayload, PrologueSize))
	require.Equal(t, 16, NextLinkOff(16))
	require.Equal(t, 20, PrevLinkOff(16))
}

// newImage lays out prologue, one block of the given size and the epilogue.
func newImage(size int, allocated bool) []byte {
	b := make([]byte, InitialSize+size)
	PutU32(b, HeaderOff(ProloguePayload), Pack(PrologueSize, true))
	PutU32(b, FooterOff(ProloguePayload, PrologueSize), Pack(PrologueSize, true))
	bp := ProloguePayload + PrologueSize
	PutU32(b, HeaderOff(bp), Pack(size, allocated))
	PutU32(b, FooterOff(bp, size), Pack(size, allocated))
	PutU32(b, HeaderOff(bp+size), Pack(0, true))
	return b
}

func TestDecodeBlock(t *testing.T) {
	b := newImage(32, false)

	pro, err := DecodeBlock(b, ProloguePayload)
	require.NoError(t, err)
	require.Equal(t, PrologueSize, pro.Size)
	require.True(t, pro.Allocated)
	require.True(t, pro.Consistent())

	blk, err := DecodeBlock(b, pro.Next())
	require.NoError(t, err)
	require.Equal(t, 32, blk.Size)
	require.False(t, blk.Allocated)
	require.True(t, blk.Consistent())

	epi, err := DecodeBlock(b, blk.Next())
	require.NoError(t, err)
	require.True(t, epi.IsEpilogue())
	require.True(t, epi.Allocated)
}

func TestDecodeBlockRejectsImplausibleSize(t *testing.T) {
	b := newImage(32, true)
	bp := ProloguePayload + PrologueSize

	// Claim a span running past the end of the image.
	PutU32(b, HeaderOff(bp), Pack(4096, true))
	_, err := DecodeBlock(b, bp)
	require.ErrorIs(t, err, ErrBadTag)

	// Unaligned sizes cannot be produced by Pack, so write the word raw.
	PutU32(b, HeaderOff(bp), 12)
	_, err = DecodeBlock(b, bp)
	require.ErrorIs(t, err, ErrBadTag)
}

func TestDecodeBlockRejectsStrayFlagBits(t *testing.T) {
	b := newImage(32, true)
	bp := ProloguePayload + PrologueSize

	// A matching header and footer still cannot carry unused flag bits.
	for _, w := range []uint32{0x0C, 0x0A | 32, 0x07 | 32} {
		PutU32(b, HeaderOff(bp), w)
		PutU32(b, FooterOff(bp, 32), w)
		_, err := DecodeBlock(b, bp)
		require.ErrorIs(t, err, ErrBadTag, "header 0x%X", w)
	}

	// Nor can the epilogue.
	epi := bp + 32
	PutU32(b, HeaderOff(bp), Pack(32, true))
	PutU32(b, FooterOff(bp, 32), Pack(32, true))
	PutU32(b, HeaderOff(epi), 0x05)
	_, err := DecodeBlock(b, epi)
	require.ErrorIs(t, err, ErrBadTag)
}

func TestDecodeBlockMismatch(t *testing.T) {
	b := newImage(32, true)
	bp := ProloguePayload + PrologueSize
	PutU32(b, FooterOff(bp, 32), Pack(32, false))

	blk, err := DecodeBlock(b, bp)
	require.NoError(t, err)
	require.False(t, blk.Consistent())
}

func TestDecodeBlockTruncated(t *testing.T) {
	_, err := DecodeBlock(make([]byte, 2), ProloguePayload)
	require.ErrorIs(t, err, ErrTruncated)
}

package format

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalkBlocks(t *testing.T) {
	b := newImage(48, false)

	var seen []BlockTag
	err := WalkBlocks(b, func(bt BlockTag) error {
		seen = append(seen, bt)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 3, "prologue, block, epilogue")
	require.Equal(t, ProloguePayload, seen[0].Payload)
	require.Equal(t, 48, seen[1].Size)
	require.True(t, seen[2].IsEpilogue())
	require.Equal(t, len(b), seen[2].Payload)
}

func TestWalkBlocksStop(t *testing.T) {
	b := newImage(48, false)
	n := 0
	err := WalkBlocks(b, func(BlockTag) error {
		n++
		return ErrStop
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestWalkBlocksCorrupt(t *testing.T) {
	b := newImage(48, false)
	PutU32(b, HeaderOff(ProloguePayload+PrologueSize), Pack(1<<20, false))
	err := WalkBlocks(b, func(BlockTag) error { return nil })
	require.ErrorIs(t, err, ErrBadTag)

	err = WalkBlocks(make([]byte, 8), func(BlockTag) error { return nil })
	require.ErrorIs(t, err, ErrTruncated)
}

func TestWalkBlocksCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := WalkBlocks(newImage(16, true), func(BlockTag) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestWalkFree(t *testing.T) {
	b := make([]byte, 64)
	// Two-node list: 16 -> 40.
	PutU32(b, NextLinkOff(16), 40)
	PutU32(b, PrevLinkOff(16), NilLink)
	PutU32(b, NextLinkOff(40), NilLink)
	PutU32(b, PrevLinkOff(40), 16)

	var got []FreeLinks
	err := WalkFree(b, 16, func(l FreeLinks) error {
		got = append(got, l)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []FreeLinks{
		{Payload: 16, Next: 40, Prev: NilLink},
		{Payload: 40, Next: NilLink, Prev: 16},
	}, got)

	require.NoError(t, WalkFree(b, NilLink, func(FreeLinks) error {
		t.Fatal("empty list must not call back")
		return nil
	}))
}

func TestWalkFreeCycle(t *testing.T) {
	b := make([]byte, 64)
	PutU32(b, NextLinkOff(16), 40)
	PutU32(b, NextLinkOff(40), 16)
	err := WalkFree(b, 16, func(FreeLinks) error { return nil })
	require.ErrorIs(t, err, ErrCycle)
}

func TestWalkFreeOutOfBounds(t *testing.T) {
	b := make([]byte, 32)
	PutU32(b, NextLinkOff(16), 4000)
	err := WalkFree(b, 16, func(FreeLinks) error { return nil })
	require.ErrorIs(t, err, ErrTruncated)
}

package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAlign8(t *testing.T) {
	for in, want := range map[int]int{0: 0, 1: 8, 7: 8, 8: 8, 9: 16, 16: 16, 17: 24} {
		require.Equal(t, want, Align8(in), "Align8(%d)", in)
	}
	require.True(t, IsAligned(64))
	require.False(t, IsAligned(60))
}

func TestBlockSizeFor(t *testing.T) {
	cases := []struct {
		n    int
		want int
		ok   bool
	}{
		{-1, 0, false},
		{0, 0, false},
		{1, MinBlockSize, true},
		{8, MinBlockSize, true},
		{9, 24, true},
		{16, 24, true},
		{17, 32, true},
		{100, 112, true},
		{MaxHeapSize, 0, false},
	}
	for _, tc := range cases {
		got, ok := BlockSizeFor(tc.n)
		require.Equal(t, tc.ok, ok, "BlockSizeFor(%d) ok", tc.n)
		require.Equal(t, tc.want, got, "BlockSizeFor(%d)", tc.n)
		if ok {
			require.GreaterOrEqual(t, PayloadSize(got), tc.n, "payload must cover the request")
			require.True(t, IsAligned(got))
		}
	}
}

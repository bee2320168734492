package arena

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/internal/format"
)

func TestMemGrowReturnsOldExtent(t *testing.T) {
	m := NewMem(nil)
	require.Equal(t, 0, m.Extent())
	require.Equal(t, format.MaxHeapSize, m.Limit())

	old, err := m.Grow(16)
	require.NoError(t, err)
	require.Equal(t, 0, old)

	old, err = m.Grow(24)
	require.NoError(t, err)
	require.Equal(t, 16, old)
	require.Equal(t, 40, m.Extent())
	require.Len(t, m.Bytes(), 40)
}

func TestMemGrowKeepsContents(t *testing.T) {
	m := NewMem(&MemOptions{InitialCap: 8})
	_, err := m.Grow(8)
	require.NoError(t, err)
	m.Bytes()[3] = 0xAB

	_, err = m.Grow(1024)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), m.Bytes()[3])
	require.Equal(t, byte(0), m.Bytes()[1000])
}

func TestMemLimit(t *testing.T) {
	m := NewMem(&MemOptions{Limit: 64})

	_, err := m.Grow(64)
	require.NoError(t, err)

	_, err = m.Grow(8)
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 64, m.Extent(), "failed growth must not change the extent")
}

func TestMemBadGrow(t *testing.T) {
	m := NewMem(nil)
	_, err := m.Grow(0)
	require.ErrorIs(t, err, ErrBadGrow)
	_, err = m.Grow(-8)
	require.ErrorIs(t, err, ErrBadGrow)
}

func TestMemReset(t *testing.T) {
	m := NewMem(&MemOptions{Limit: 32})
	_, err := m.Grow(32)
	require.NoError(t, err)
	m.Bytes()[0] = 1

	require.NoError(t, m.Reset())
	require.Equal(t, 0, m.Extent())

	_, err = m.Grow(32)
	require.NoError(t, err, "reset must give the full limit back")
	require.Equal(t, byte(0), m.Bytes()[0], "reused bytes must read as zero")
}

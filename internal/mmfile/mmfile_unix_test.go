//go:build unix

package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, size int) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.img")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(int64(size)))
	t.Cleanup(func() { f.Close() })
	return f
}

func TestMapReadWriteUnix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mmap test in short mode")
	}
	f := openTemp(t, 16)
	m, err := Map(f, 16)
	require.NoError(t, err)
	defer func() { require.NoError(t, m.Close()) }()

	copy(m.Bytes(), []byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, m.Sync(0, 4))

	onDisk, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, onDisk[:4])
}

func TestResizeKeepsContentsUnix(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mmap test in short mode")
	}
	f := openTemp(t, 8)
	m, err := Map(f, 8)
	require.NoError(t, err)
	defer m.Close()

	m.Bytes()[7] = 0x42
	require.NoError(t, m.Resize(PageSize()*2))
	require.Len(t, m.Bytes(), PageSize()*2)
	require.Equal(t, byte(0x42), m.Bytes()[7])
	require.Equal(t, byte(0), m.Bytes()[PageSize()+1], "extension must read as zero")

	// Sync an unaligned range in the second page.
	m.Bytes()[PageSize()+3] = 0x7f
	require.NoError(t, m.Sync(PageSize()+3, 1))
}

func TestMapZeroLengthUnix(t *testing.T) {
	f := openTemp(t, 0)
	m, err := Map(f, 0)
	require.NoError(t, err)
	require.Empty(t, m.Bytes())
	require.NoError(t, m.Sync(0, 10))
	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "double close is a no-op")
}

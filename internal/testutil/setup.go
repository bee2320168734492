// Package testutil holds fixtures shared by the heap, trace and CLI tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/heap/dirty"
)

// SampleTrace allocates two blocks, grows the first and frees both.
const SampleTrace = `20000
2
5
1
a 0 512
a 1 128
r 0 640
f 1
f 0
`

// SetupHeap returns a heap over an in-memory arena. A limit of 0 means the
// format limit.
func SetupHeap(t testing.TB, limit int, cfg *alloc.Config) *alloc.Heap {
	t.Helper()
	h, err := alloc.New(arena.NewMem(&arena.MemOptions{Limit: limit}), cfg)
	require.NoError(t, err)
	return h
}

// FileHeap is a heap over a file arena with dirty tracking.
type FileHeap struct {
	*alloc.Heap
	Arena   *arena.File
	Tracker *dirty.Tracker
	Path    string
}

// SetupFileHeap creates a file-backed heap in the test's temp dir. The arena
// is closed when the test ends.
//
// Example:
//
//	fh := testutil.SetupFileHeap(t)
//	p, _ := fh.Alloc(64)
//	require.NoError(t, fh.Tracker.Flush(ctx, fh.Arena))
func SetupFileHeap(t testing.TB) *FileHeap {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.img")
	a, err := arena.OpenFile(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	dt := dirty.NewTracker()
	h, err := alloc.New(a, &alloc.Config{Tracker: dt})
	require.NoError(t, err)
	return &FileHeap{Heap: h, Arena: a, Tracker: dt, Path: path}
}

// WriteImage saves a copy of the heap's current image and returns its path.
func WriteImage(t testing.TB, h *alloc.Heap) string {
	t.Helper()
	data := append([]byte(nil), h.Snapshot().Data...)
	return WriteTemp(t, "heap.img", string(data))
}

// WriteTemp writes content to name under a fresh temp dir and returns the path.
func WriteTemp(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

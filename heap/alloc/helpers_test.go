package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/arena"
)

// newHeap creates a heap over an unlimited in-memory arena.
func newHeap(t testing.TB, cfg *Config) *Heap {
	t.Helper()
	h, err := New(arena.NewMem(nil), cfg)
	require.NoError(t, err)
	return h
}

// newLimitedHeap creates a heap whose arena cannot grow past limit bytes.
func newLimitedHeap(t testing.TB, limit int) *Heap {
	t.Helper()
	h, err := New(arena.NewMem(&arena.MemOptions{Limit: limit}), nil)
	require.NoError(t, err)
	return h
}

func mustAlloc(t testing.TB, h *Heap, n int) Ptr {
	t.Helper()
	p, err := h.Alloc(n)
	require.NoError(t, err, "Alloc(%d)", n)
	return p
}

func mustFree(t testing.TB, h *Heap, p Ptr) {
	t.Helper()
	require.NoError(t, h.Free(p), "Free(0x%X)", p)
}

func requireHeapOK(t testing.TB, h *Heap) {
	t.Helper()
	require.NoError(t, h.CheckHeap(false))
}

// blocks returns every ordinary block in address order.
func blocks(t testing.TB, h *Heap) []Block {
	t.Helper()
	var out []Block
	require.NoError(t, h.Walk(func(b Block) error {
		out = append(out, b)
		return nil
	}))
	return out
}

// freePtrs returns the free list in list order.
func freePtrs(t testing.TB, h *Heap) []Ptr {
	t.Helper()
	var out []Ptr
	require.NoError(t, h.FreeList(func(b Block) error {
		out = append(out, b.Ptr)
		return nil
	}))
	return out
}

// fill writes a pattern derived from seed over the first n payload bytes.
func fill(t testing.TB, h *Heap, p Ptr, n int, seed byte) {
	t.Helper()
	buf, err := h.Payload(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), n)
	for i := range n {
		buf[i] = seed + byte(i)
	}
}

// requireFilled checks the pattern written by fill.
func requireFilled(t testing.TB, h *Heap, p Ptr, n int, seed byte) {
	t.Helper()
	buf, err := h.Payload(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(buf), n)
	want := make([]byte, n)
	for i := range want {
		want[i] = seed + byte(i)
	}
	if bytes.Equal(buf[:n], want) {
		return
	}
	for i := range n {
		if buf[i] != want[i] {
			require.Failf(t, "payload corrupted", "block 0x%X byte %d: got %d, want %d",
				p, i, buf[i], want[i])
		}
	}
}

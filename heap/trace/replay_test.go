package trace

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/testutil"
)

func newHeap(t *testing.T, limit int) *alloc.Heap {
	t.Helper()
	return testutil.SetupHeap(t, limit, nil)
}

func mustParse(t *testing.T, s string) *Trace {
	t.Helper()
	tr, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return tr
}

func TestReplay_Sample(t *testing.T) {
	h := newHeap(t, 0)
	res, err := Replay(context.Background(), h, mustParse(t, sample), &Options{CheckEvery: 1, VerifyData: true})
	require.NoError(t, err)

	require.Equal(t, 5, res.Ops)
	require.Equal(t, 2, res.Allocs)
	require.Equal(t, 1, res.Reallocs)
	require.Equal(t, 2, res.Frees)
	require.Equal(t, 6, res.Checks, "one per op plus the final check")
	require.Equal(t, 640+128, res.PeakPayload)
	require.Equal(t, h.Extent(), res.PeakExtent)
	require.Greater(t, res.Utilization(), 0.5)
	require.LessOrEqual(t, res.Utilization(), 1.0)
}

func TestReplay_Generated(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3} {
		tr := Generate(seed, GenOptions{Ops: 1500, MaxLive: 100, MaxSize: 3000, ReallocPct: 25})
		h := newHeap(t, 0)
		res, err := Replay(context.Background(), h, tr, &Options{CheckEvery: 50, VerifyData: true})
		require.NoError(t, err, "seed %d", seed)
		require.Equal(t, len(tr.Ops), res.Ops)
		require.NoError(t, h.CheckHeap(false))
	}
}

func TestReplay_ZeroSizeOps(t *testing.T) {
	tr := mustParse(t, "100\n2\n6\n1\na 0 0\nr 0 64\nr 0 0\na 1 8\nf 0\nf 1\n")
	res, err := Replay(context.Background(), newHeap(t, 0), tr, &Options{VerifyData: true})
	require.NoError(t, err)
	require.Equal(t, 6, res.Ops)
}

func TestReplay_UnknownID(t *testing.T) {
	tr := mustParse(t, "100\n2\n2\n1\na 0 8\nf 1\n")
	_, err := Replay(context.Background(), newHeap(t, 0), tr, nil)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, 1, opErr.Index)
	require.Equal(t, 6, opErr.Op.Line)
	require.ErrorIs(t, err, ErrUnknownID)
}

func TestReplay_Exhaustion(t *testing.T) {
	tr := mustParse(t, "100\n2\n2\n1\na 0 64\na 1 100000\n")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	res, err := Replay(context.Background(), newHeap(t, 4096), tr, &Options{Logger: logger})
	require.ErrorIs(t, err, alloc.ErrNoSpace)
	require.Equal(t, 1, res.Ops)
	require.Contains(t, logs.String(), "replay failed")
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, newHeap(t, 0), mustParse(t, sample), nil)
	require.ErrorIs(t, err, context.Canceled)
}

// overlapping hands out the same block twice.
type overlapping struct {
	*alloc.Heap
	first alloc.Ptr
}

func (o *overlapping) Alloc(n int) (alloc.Ptr, error) {
	if o.first != alloc.Nil {
		return o.first, nil
	}
	p, err := o.Heap.Alloc(n)
	o.first = p
	return p, err
}

func TestReplay_DetectsOverlap(t *testing.T) {
	tr := mustParse(t, "100\n2\n2\n1\na 0 16\na 1 16\n")
	_, err := Replay(context.Background(), &overlapping{Heap: newHeap(t, 0)}, tr, nil)
	require.ErrorIs(t, err, ErrOverlap)
}

// scribbling corrupts the first payload on the second allocation.
type scribbling struct {
	*alloc.Heap
	first alloc.Ptr
}

func (s *scribbling) Alloc(n int) (alloc.Ptr, error) {
	p, err := s.Heap.Alloc(n)
	if s.first == alloc.Nil {
		s.first = p
	} else if buf, perr := s.Heap.Payload(s.first); perr == nil {
		buf[0] ^= 0xFF
	}
	return p, err
}

func TestReplay_DetectsCorruption(t *testing.T) {
	tr := mustParse(t, "100\n2\n4\n1\na 0 16\na 1 16\nf 0\nf 1\n")
	_, err := Replay(context.Background(), &scribbling{Heap: newHeap(t, 0)}, tr, &Options{VerifyData: true})
	require.ErrorIs(t, err, ErrCorrupted)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, OpFree, opErr.Op.Kind)
}

package dirty

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingFlusher collects the ranges it is asked to flush.
type recordingFlusher struct {
	got  []Range
	fail error
}

func (r *recordingFlusher) FlushRange(off, n int) error {
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, Range{Off: int64(off), Len: int64(n)})
	return nil
}

func newTestTracker() *Tracker {
	t := NewTracker()
	t.pageSize = 4096
	return t
}

func Test_DirtyTracker_PageAlignment(t *testing.T) {
	tracker := newTestTracker()
	tracker.Add(100, 200)

	got := tracker.Ranges()
	require.Equal(t, []Range{{Off: 0, Len: 4096}}, got)
}

func Test_DirtyTracker_Coalesce(t *testing.T) {
	tests := []struct {
		name string
		adds [][2]int
		want []Range
	}{
		{
			name: "adjacent pages merge",
			adds: [][2]int{{4096, 4096}, {8192, 4096}},
			want: []Range{{Off: 4096, Len: 8192}},
		},
		{
			name: "overlapping ranges merge",
			adds: [][2]int{{10, 5000}, {4000, 100}},
			want: []Range{{Off: 0, Len: 8192}},
		},
		{
			name: "distant ranges stay apart, sorted",
			adds: [][2]int{{20000, 4}, {4, 4}},
			want: []Range{{Off: 0, Len: 4096}, {Off: 16384, Len: 4096}},
		},
		{
			name: "empty ranges are ignored",
			adds: [][2]int{{4, 0}},
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tracker := newTestTracker()
			for _, a := range tc.adds {
				tracker.Add(a[0], a[1])
			}
			require.Equal(t, tc.want, tracker.Ranges())
		})
	}
}

func Test_DirtyTracker_FlushClears(t *testing.T) {
	tracker := newTestTracker()
	tracker.Add(4, 4)
	tracker.Add(12, 4)
	require.Equal(t, 2, tracker.Len())

	f := &recordingFlusher{}
	require.NoError(t, tracker.Flush(context.Background(), f))
	require.Equal(t, []Range{{Off: 0, Len: 4096}}, f.got)
	require.Equal(t, 0, tracker.Len())

	// Nothing left: a second flush does no work.
	require.NoError(t, tracker.Flush(context.Background(), f))
	require.Len(t, f.got, 1)
}

func Test_DirtyTracker_FlushErrorKeepsRanges(t *testing.T) {
	tracker := newTestTracker()
	tracker.Add(0, 8)

	boom := errors.New("boom")
	err := tracker.Flush(context.Background(), &recordingFlusher{fail: boom})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, tracker.Len())
}

func Test_DirtyTracker_FlushCancelled(t *testing.T) {
	tracker := newTestTracker()
	tracker.Add(0, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tracker.Flush(ctx, &recordingFlusher{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, tracker.Len())
}

func Test_DirtyTracker_Reset(t *testing.T) {
	tracker := newTestTracker()
	tracker.Add(0, 8)
	tracker.Reset()
	require.Equal(t, 0, tracker.Len())
	require.Nil(t, tracker.Ranges())
}

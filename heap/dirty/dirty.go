// Package dirty tracks which byte ranges of a heap image have been written so
// a file-backed arena can persist only what changed.
//
// The allocator reports every tag and link write through the DirtyTracker
// interface. At flush time the tracker page-aligns the ranges, sorts and
// merges them, and hands each merged range to an arena.Flusher.
//
//	dt := dirty.NewTracker()
//	a, _ := arena.OpenFile("heap.img", nil)
//	al, _ := alloc.New(a, &alloc.Config{Tracker: dt})
//	// ... Alloc / Free / Realloc ...
//	err := dt.Flush(ctx, a)
package dirty

import (
	"context"
	"sort"

	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// DirtyTracker is the minimal interface for reporting modified byte ranges.
// Components that only write (the allocator) depend on this, not on Tracker.
type DirtyTracker interface {
	// Add marks [off, off+length) as dirty.
	Add(off, length int)
}

// Range represents a dirty byte range (absolute arena offsets).
type Range struct {
	Off int64 // Absolute offset in the arena
	Len int64 // Length in bytes
}

// Tracker accumulates dirty ranges and flushes them efficiently.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Tracker struct {
	ranges   []Range // Raw ranges, coalesced at flush time
	pageSize int64
}

// NewTracker creates a tracker aligned to the OS page size.
func NewTracker() *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: int64(mmfile.PageSize()),
	}
}

// Add records a dirty range. Empty ranges are ignored.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{
		Off: int64(off),
		Len: int64(length),
	})
}

// Len returns the number of raw (uncoalesced) ranges recorded.
func (t *Tracker) Len() int { return len(t.ranges) }

// Ranges returns the page-aligned, sorted, merged ranges a flush would write.
func (t *Tracker) Ranges() []Range {
	return t.coalesce()
}

// Reset clears all tracked ranges.
func (t *Tracker) Reset() {
	t.ranges = t.ranges[:0]
}

// Flush writes every dirty page through f and clears the tracker.
//
// The context can be used to cancel the flush. If cancelled midway, some
// ranges may have been flushed while others have not; the tracker keeps all
// ranges so a retry flushes everything again.
func (t *Tracker) Flush(ctx context.Context, f arena.Flusher) error {
	if len(t.ranges) == 0 {
		return nil
	}
	for _, r := range t.coalesce() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.FlushRange(int(r.Off), int(r.Len)); err != nil {
			return err
		}
	}
	t.ranges = t.ranges[:0]
	return nil
}

// coalesce page-aligns all ranges, sorts them, and merges overlapping/adjacent ranges.
func (t *Tracker) coalesce() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / t.pageSize) * t.pageSize
		end := r.Off + r.Len
		if end%t.pageSize != 0 {
			end = ((end / t.pageSize) + 1) * t.pageSize
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.Off+current.Len {
			end := max(current.Off+current.Len, next.Off+next.Len)
			current.Len = end - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

var _ DirtyTracker = (*Tracker)(nil)

// Package arena provides the contiguous, append-only byte regions that back a
// heap. An arena only knows how to report its extent and grow at the end; the
// block layout inside it belongs to the allocator.
//
// Two implementations are provided:
//
//   - Mem: a byte slice with an optional hard limit, useful for tests and for
//     simulating exhaustion.
//   - File: a file mapped read/write, grown with ftruncate + remap, so the heap
//     image can be inspected after the process is done with it.
//
// Offsets handed out by an arena never move: growth only appends. The slice
// returned by Bytes may be replaced by a later Grow, so callers must re-fetch
// it after growing rather than holding on to it.
package arena

// Arena is the growth primitive the allocator is built on.
type Arena interface {
	// Grow extends the region by n bytes and returns the previous extent,
	// which is the offset of the first new byte. New bytes read as zero.
	// Returns ErrExhausted when the region cannot supply n more bytes.
	Grow(n int) (int, error)

	// Extent returns the current size of the region in bytes.
	Extent() int

	// Bytes returns the whole region. Invalidated by Grow and Reset.
	Bytes() []byte

	// Reset shrinks the region back to zero bytes.
	Reset() error
}

// Flusher is implemented by arenas whose contents can be persisted.
type Flusher interface {
	// FlushRange persists [off, off+n).
	FlushRange(off, n int) error
}

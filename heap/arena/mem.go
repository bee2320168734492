package arena

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// MemOptions configures an in-memory arena.
type MemOptions struct {
	// Limit is the largest extent the arena may reach. Zero means the
	// format limit (format.MaxHeapSize).
	Limit int

	// InitialCap preallocates capacity so early growth does not copy.
	InitialCap int
}

// Mem is an arena backed by a byte slice.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type Mem struct {
	buf   []byte
	limit int
}

// NewMem creates an empty in-memory arena. opts may be nil.
func NewMem(opts *MemOptions) *Mem {
	m := &Mem{limit: format.MaxHeapSize}
	if opts != nil {
		if opts.Limit > 0 && opts.Limit < m.limit {
			m.limit = opts.Limit
		}
		if opts.InitialCap > 0 {
			m.buf = make([]byte, 0, min(opts.InitialCap, m.limit))
		}
	}
	return m
}

// Grow appends n zero bytes.
func (m *Mem) Grow(n int) (int, error) {
	if n <= 0 {
		return 0, ErrBadGrow
	}
	old := len(m.buf)
	if n > m.limit-old {
		return 0, fmt.Errorf("grow by %d at extent %d (limit %d): %w", n, old, m.limit, ErrExhausted)
	}
	m.buf = append(m.buf, make([]byte, n)...)
	return old, nil
}

// Extent returns the current size.
func (m *Mem) Extent() int { return len(m.buf) }

// Bytes returns the backing slice.
func (m *Mem) Bytes() []byte { return m.buf }

// Limit returns the largest extent the arena may reach.
func (m *Mem) Limit() int { return m.limit }

// Reset drops all bytes but keeps the capacity for reuse.
func (m *Mem) Reset() error {
	clear(m.buf)
	m.buf = m.buf[:0]
	return nil
}

var _ Arena = (*Mem)(nil)

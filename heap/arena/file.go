package arena

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

// FileOptions configures a file-backed arena.
type FileOptions struct {
	// Limit is the largest extent the arena may reach. Zero means the
	// format limit (format.MaxHeapSize).
	Limit int
}

// File is an arena whose bytes live in a memory-mapped file. The file is
// created (or truncated) on open and grows as the arena grows.
//
// NOT thread-safe. Only one goroutine should use it at a time.
type File struct {
	f     *os.File
	m     *mmfile.Mapping
	limit int
}

// OpenFile creates or truncates the file at path and returns an empty arena
// backed by it. opts may be nil.
func OpenFile(path string, opts *FileOptions) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("arena: open %s: %w", path, err)
	}
	m, err := mmfile.Map(f, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("arena: map %s: %w", path, err)
	}
	a := &File{f: f, m: m, limit: format.MaxHeapSize}
	if opts != nil && opts.Limit > 0 && opts.Limit < a.limit {
		a.limit = opts.Limit
	}
	return a, nil
}

// Grow extends the file by n bytes and remaps it.
func (a *File) Grow(n int) (int, error) {
	if a.m == nil {
		return 0, ErrClosed
	}
	if n <= 0 {
		return 0, ErrBadGrow
	}
	old := len(a.m.Bytes())
	if n > a.limit-old {
		return 0, fmt.Errorf("grow by %d at extent %d (limit %d): %w", n, old, a.limit, ErrExhausted)
	}
	if err := a.m.Resize(old + n); err != nil {
		// A failed ftruncate/mmap is resource exhaustion from the caller's view.
		return 0, fmt.Errorf("%w: %w", ErrExhausted, err)
	}
	return old, nil
}

// Extent returns the current file size.
func (a *File) Extent() int {
	if a.m == nil {
		return 0
	}
	return len(a.m.Bytes())
}

// Bytes returns the mapped region.
func (a *File) Bytes() []byte {
	if a.m == nil {
		return nil
	}
	return a.m.Bytes()
}

// Reset truncates the file to zero bytes.
func (a *File) Reset() error {
	if a.m == nil {
		return ErrClosed
	}
	return a.m.Resize(0)
}

// FlushRange persists [off, off+n) to the file.
func (a *File) FlushRange(off, n int) error {
	if a.m == nil {
		return ErrClosed
	}
	return a.m.Sync(off, n)
}

// Sync persists the whole region and the file metadata.
func (a *File) Sync() error {
	if err := a.FlushRange(0, a.Extent()); err != nil {
		return err
	}
	return a.f.Sync()
}

// Name returns the backing file path.
func (a *File) Name() string { return a.f.Name() }

// Close unmaps and closes the file. The image stays on disk.
func (a *File) Close() error {
	if a.m == nil {
		return nil
	}
	err := a.m.Close()
	a.m = nil
	if cerr := a.f.Close(); err == nil {
		err = cerr
	}
	return err
}

var (
	_ Arena   = (*File)(nil)
	_ Flusher = (*File)(nil)
)

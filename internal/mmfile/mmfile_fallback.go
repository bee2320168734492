//go:build !unix

// Package mmfile provides platform-specific helpers for memory-mapping heap image files.
package mmfile

import (
	"fmt"
	"io"
	"os"
)

const fallbackPageSize = 4096

// Mapping holds the file contents in memory when mmap is not available.
// Sync writes ranges back with WriteAt.
type Mapping struct {
	f    *os.File
	data []byte
}

// Map reads the first size bytes of f into memory.
func Map(f *os.File, size int) (*Mapping, error) {
	data := make([]byte, size)
	if size > 0 {
		if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
			return nil, fmt.Errorf("mmfile: read %d bytes: %w", size, err)
		}
	}
	return &Mapping{f: f, data: data}, nil
}

// Bytes returns the in-memory image.
func (m *Mapping) Bytes() []byte { return m.data }

// Resize truncates or extends the file and the in-memory image to size bytes.
func (m *Mapping) Resize(size int) error {
	if err := m.f.Truncate(int64(size)); err != nil {
		return fmt.Errorf("mmfile: truncate to %d: %w", size, err)
	}
	data := make([]byte, size)
	copy(data, m.data)
	m.data = data
	return nil
}

// Sync writes [off, off+n) back to the file.
func (m *Mapping) Sync(off, n int) error {
	if n <= 0 || off >= len(m.data) {
		return nil
	}
	end := min(off+n, len(m.data))
	_, err := m.f.WriteAt(m.data[off:end], int64(off))
	return err
}

// Close drops the in-memory image.
func (m *Mapping) Close() error {
	m.data = nil
	return nil
}

// PageSize returns the page size used to align flushes.
func PageSize() int { return fallbackPageSize }

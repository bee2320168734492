//go:build unix

// Package mmfile provides platform-specific helpers for memory-mapping heap image files.
package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a read/write shared mapping of a whole file.
type Mapping struct {
	f    *os.File
	data []byte
}

// Map maps the first size bytes of f read/write. The file must already be at
// least size bytes long. A zero size yields an empty mapping.
func Map(f *os.File, size int) (*Mapping, error) {
	m := &Mapping{f: f}
	if err := m.mmap(size); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mapping) mmap(size int) error {
	if size == 0 {
		m.data = nil
		return nil
	}
	if size < 0 || int64(size) > int64(^uint(0)>>1) {
		return fmt.Errorf("mmfile: cannot map %d bytes", size)
	}
	data, err := unix.Mmap(int(m.f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmfile: mmap %d bytes: %w", size, err)
	}
	m.data = data
	return nil
}

func (m *Mapping) munmap() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

// Bytes returns the mapped region. The slice is invalidated by Resize and Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Resize truncates or extends the file to size bytes and remaps it. New bytes
// read as zero. On failure the previous mapping is restored when possible.
func (m *Mapping) Resize(size int) error {
	oldSize := len(m.data)
	if err := m.munmap(); err != nil {
		return fmt.Errorf("mmfile: unmap before resize: %w", err)
	}
	if err := m.f.Truncate(int64(size)); err != nil {
		_ = m.mmap(oldSize)
		return fmt.Errorf("mmfile: truncate to %d: %w", size, err)
	}
	if err := m.mmap(size); err != nil {
		_ = m.f.Truncate(int64(oldSize))
		_ = m.mmap(oldSize)
		return err
	}
	return nil
}

// Sync flushes [off, off+n) to the file. off is rounded down to a page
// boundary because msync requires a page-aligned address.
func (m *Mapping) Sync(off, n int) error {
	if n <= 0 || off >= len(m.data) {
		return nil
	}
	page := PageSize()
	start := (off / page) * page
	end := min(off+n, len(m.data))
	return unix.Msync(m.data[start:end], unix.MS_SYNC)
}

// Close unmaps the region. The file itself is left open for the caller.
func (m *Mapping) Close() error {
	return m.munmap()
}

// PageSize returns the OS page size.
func PageSize() int {
	return unix.Getpagesize()
}

package pager

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// NewMapped returns a Memory backed by an anonymous memory mapping of at
// least initialSize bytes. Page payloads then live outside the Go heap.
// No file is involved; the contents vanish with Close().
func NewMapped(initialSize int) (*Mapped, error) {
	m := &Mapped{}
	if err := m.remap(initialSize); err != nil {
		return nil, err
	}
	return m, nil
}

// Mapped implements Memory over an anonymous mmap region. The region grows
// by mapping a larger one and copying, so slices returned by Slice() are
// invalid after the next Alloc().
type Mapped struct {
	data   mmap.MMap
	used   int
	closed bool
}

// Alloc reserves n zeroed bytes, growing the mapping when needed.
func (m *Mapped) Alloc(n int) (int, error) {
	if m.closed {
		return 0, os.ErrClosed
	} else if n < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", n)
	}

	if m.used+n > len(m.data) {
		target := 2 * len(m.data)
		if target < m.used+n {
			target = m.used + n
		}
		if err := m.remap(target); err != nil {
			return 0, err
		}
	}

	offset := m.used
	m.used += n
	return offset, nil
}

// Slice returns a view into the mapped region.
func (m *Mapped) Slice(offset, n int) ([]byte, error) {
	if m.closed {
		return nil, os.ErrClosed
	}
	return slice(m.data, m.used, offset, n)
}

// Size returns the number of bytes handed out by Alloc.
func (m *Mapped) Size() int { return m.used }

// Capacity returns the size of the current mapping.
func (m *Mapped) Capacity() int { return len(m.data) }

// Close unmaps the region.
func (m *Mapped) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	return m.unmap()
}

func (m *Mapped) String() string {
	return fmt.Sprintf("Mapped{used=%d, capacity=%d}", m.used, len(m.data))
}

// remap replaces the mapping with one of at least size bytes (rounded up to
// the system page size) holding the bytes used so far.
func (m *Mapped) remap(size int) error {
	pageSz := os.Getpagesize()
	if size < pageSz {
		size = pageSz
	}
	size = ((size + pageSz - 1) / pageSz) * pageSz

	d, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	copy(d, m.data[:m.used])

	if err := m.unmap(); err != nil {
		_ = d.Unmap()
		return err
	}
	m.data = d
	return nil
}

func (m *Mapped) unmap() error {
	if m.data == nil {
		return nil
	}
	err := m.data.Unmap()
	m.data = nil
	return err
}

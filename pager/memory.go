package pager

import (
	"fmt"
	"io"
	"os"
)

var (
	_ Memory = (*InMem)(nil)
	_ Memory = (*Mapped)(nil)
)

// Memory is a growable byte region the pager lays page extents out in.
// Memory implementations are NOT safe for concurrent use; the pager
// serializes access.
type Memory interface {
	io.Closer

	// Alloc should grow the region by n zeroed bytes and return the offset
	// of the first one.
	Alloc(n int) (offset int, err error)

	// Slice should return the n bytes starting at offset. Alloc() calls may
	// invalidate the returned slice.
	Slice(offset, n int) ([]byte, error)

	// Size should return the number of bytes allocated so far.
	Size() int
}

// InMem implements Memory using a Go byte slice. Zero value is ready to use.
type InMem struct {
	data   []byte
	closed bool
}

// Alloc appends n zeroed bytes and returns the offset of the first.
func (mem *InMem) Alloc(n int) (int, error) {
	if mem.closed {
		return 0, os.ErrClosed
	} else if n < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", n)
	}

	offset := len(mem.data)
	mem.data = append(mem.data, make([]byte, n)...)
	return offset, nil
}

// Slice returns a view into the region.
func (mem *InMem) Slice(offset, n int) ([]byte, error) {
	if mem.closed {
		return nil, os.ErrClosed
	}
	return slice(mem.data, len(mem.data), offset, n)
}

// Size returns the number of bytes allocated.
func (mem *InMem) Size() int { return len(mem.data) }

// Close releases the region.
func (mem *InMem) Close() error {
	if mem.closed {
		return nil
	}
	mem.data = nil
	mem.closed = true
	return nil
}

func slice(region []byte, used, offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > used {
		return nil, fmt.Errorf("range [%d, %d) out of bounds (size=%d)",
			offset, offset+n, used)
	}
	return region[offset : offset+n : offset+n], nil
}

// Package pager allocates variable sized pages, assigns them sequential ids
// and keeps them in a byte memory region. Pages are never freed or re-used.
package pager

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

var (
	// ErrPageNotFound is returned when an operation refers to a page id that
	// was never allocated.
	ErrPageNotFound = errors.New("page not found")

	// ErrCorrupt is returned when a page payload does not match its header.
	ErrCorrupt = errors.New("corrupt page")
)

// PageID identifies a page. The n-th page stored gets id n, starting at 0.
type PageID uint64

// New creates an empty pager. If 'opts' is nil, defaultOptions are used.
func New(opts *Options) (*Pager, error) {
	if opts == nil {
		opts = &defaultOptions
	}

	mem, err := opts.memory()
	if err != nil {
		return nil, err
	}

	return &Pager{
		mem: mem,
		log: opts.logger(),
	}, nil
}

// Pager owns all pages. Each page is an extent in the backing memory made
// of a Header followed by the payload. Update writes a fresh extent and
// leaves the old one as dead space. Pager is safe for concurrent use.
type Pager struct {
	mu      sync.RWMutex
	mem     Memory
	extents []int // page id -> offset of its extent in mem
	closed  bool
	log     *slog.Logger

	// i/o tracking
	allocs    int
	writes    int
	liveBytes int
	deadBytes int
	reads     atomic.Int64
	misses    atomic.Int64
}

// StoreNew appends a new page holding a copy of payload and returns its id.
// StoreNew only fails when the pager is closed or the backing memory cannot
// grow, which never happens for the default in-memory backend.
func (p *Pager) StoreNew(payload []byte) (PageID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, os.ErrClosed
	}

	offset, err := p.writeExtent(payload)
	if err != nil {
		return 0, err
	}

	id := PageID(len(p.extents))
	p.extents = append(p.extents, offset)
	p.allocs++
	p.liveBytes += len(payload)

	p.log.Debug("page stored", "page_id", id, "size", len(payload))
	return id, nil
}

// Update replaces the payload of the page with given id. Returns
// ErrPageNotFound if the page does not exist.
func (p *Pager) Update(id PageID, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return os.ErrClosed
	} else if id >= PageID(len(p.extents)) {
		return fmt.Errorf("update page %d: %w (count=%d)", id, ErrPageNotFound, len(p.extents))
	}

	old, err := p.headerAt(p.extents[id])
	if err != nil {
		return err
	}

	offset, err := p.writeExtent(payload)
	if err != nil {
		return err
	}

	p.extents[id] = offset
	p.writes++
	p.liveBytes += len(payload) - int(old.Size)
	p.deadBytes += HeaderSize + int(old.Size)

	p.log.Debug("page updated", "page_id", id, "size", len(payload), "old_size", old.Size)
	return nil
}

// Read returns a copy of the page with given id. The second return value
// is false if no such page exists or the pager is closed.
func (p *Pager) Read(id PageID) (Page, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || id >= PageID(len(p.extents)) {
		p.misses.Add(1)
		return Page{}, false
	}

	pg, err := p.pageAt(p.extents[id])
	if err != nil {
		p.log.Error("failed to read page extent", "page_id", id, "err", err)
		p.misses.Add(1)
		return Page{}, false
	}

	p.reads.Add(1)
	return pg, true
}

// Count returns the number of pages allocated so far.
func (p *Pager) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.extents)
}

// Check verifies every page against its header and returns the first
// mismatch found.
func (p *Pager) Check() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return os.ErrClosed
	}

	for id, offset := range p.extents {
		pg, err := p.pageAt(offset)
		if err != nil {
			return fmt.Errorf("page %d: %w", id, err)
		}
		if err := pg.Verify(); err != nil {
			return fmt.Errorf("page %d: %w", id, err)
		}
	}
	return nil
}

// Close releases the backing memory and marks the pager as closed for use.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.extents = nil
	return p.mem.Close()
}

// Stats returns i/o stats collected by this pager.
func (p *Pager) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return Stats{
		Pages:     len(p.extents),
		Allocs:    p.allocs,
		Writes:    p.writes,
		Reads:     int(p.reads.Load()),
		Misses:    int(p.misses.Load()),
		LiveBytes: p.liveBytes,
		DeadBytes: p.deadBytes,
		Memory:    p.mem.Size(),
	}
}

func (p *Pager) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return "Pager{closed=true}"
	}
	_, offHeap := p.mem.(*Mapped)
	return fmt.Sprintf("Pager{count=%d, memory=%d, offHeap=%t}",
		len(p.extents), p.mem.Size(), offHeap)
}

// writeExtent lays out header and payload in fresh memory and returns the
// offset of the extent.
func (p *Pager) writeExtent(payload []byte) (int, error) {
	h := headerFor(payload)
	hd, err := h.MarshalBinary()
	if err != nil {
		return 0, err
	}

	offset, err := p.mem.Alloc(HeaderSize + len(payload))
	if err != nil {
		return 0, fmt.Errorf("allocate extent: %w", err)
	}

	buf, err := p.mem.Slice(offset, HeaderSize+len(payload))
	if err != nil {
		return 0, err
	}
	copy(buf, hd)
	copy(buf[HeaderSize:], payload)
	return offset, nil
}

func (p *Pager) headerAt(offset int) (Header, error) {
	var h Header
	d, err := p.mem.Slice(offset, HeaderSize)
	if err != nil {
		return h, err
	}
	return h, h.UnmarshalBinary(d)
}

func (p *Pager) pageAt(offset int) (Page, error) {
	h, err := p.headerAt(offset)
	if err != nil {
		return Page{}, err
	}

	d, err := p.mem.Slice(offset+HeaderSize, int(h.Size))
	if err != nil {
		return Page{}, err
	}

	return Page{
		Header: h,
		Data:   append([]byte{}, d...),
	}, nil
}

// Stats represents I/O statistics collected by the pager.
type Stats struct {
	Pages     int `json:"pages"`
	Allocs    int `json:"allocs"`
	Writes    int `json:"writes"`
	Reads     int `json:"reads"`
	Misses    int `json:"misses"`
	LiveBytes int `json:"live_bytes"`
	DeadBytes int `json:"dead_bytes"`
	Memory    int `json:"memory"`
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats{pages=%d, allocs=%d, writes=%d, reads=%d, misses=%d, live=%d, dead=%d, memory=%d}",
		s.Pages, s.Allocs, s.Writes, s.Reads, s.Misses, s.LiveBytes, s.DeadBytes, s.Memory,
	)
}

package pager

import "log/slog"

var defaultOptions = Options{
	OffHeap:     false,
	InitialSize: 0,
}

// Options represents configuration options for pager.
type Options struct {
	// OffHeap places page extents in an anonymous memory mapping instead
	// of a Go byte slice.
	OffHeap bool

	// InitialSize pre-sizes the backing memory in bytes. Only used when
	// OffHeap is set.
	InitialSize int

	// Logger receives debug logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (opts *Options) memory() (Memory, error) {
	if opts.OffHeap {
		return NewMapped(opts.InitialSize)
	}
	return &InMem{}, nil
}

func (opts *Options) logger() *slog.Logger {
	if opts.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return opts.Logger
}

package recdb

import "log/slog"

var defaultOptions = Options{
	OffHeap:     false,
	InitialSize: 0,
}

// Options represents configuration settings for a StorageManager.
type Options struct {
	// OffHeap keeps page payloads in an anonymous memory mapping instead
	// of the Go heap.
	OffHeap bool

	// InitialSize pre-sizes the off-heap region in bytes.
	InitialSize int

	// Logger receives structured logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

package alloc

import (
	"log/slog"
	"os"
)

// DefaultFitMargin is the surplus under which a free block is taken without
// looking at the rest of the free list.
const DefaultFitMargin = 512

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// Config tunes a Heap. The zero value is usable and equals DefaultConfig.
type Config struct {
	// FitMargin ends the best-fit scan early once a block's surplus over the
	// request is below this many bytes. Zero selects DefaultFitMargin; a
	// negative value scans the whole list every time.
	FitMargin int

	// GrowFull grows the arena by the whole request on a miss even when the
	// last block is free. By default only the shortfall is requested and the
	// new space is coalesced with the free tail.
	GrowFull bool

	// MinGrow is the smallest number of bytes requested from the arena per
	// growth, rounded up to the alignment. Zero grows by exactly what is needed.
	MinGrow int

	// Tracker, if set, is told about every byte range the allocator writes.
	Tracker DirtyTracker

	// Logger receives debug records for growth, fit misses and realloc
	// paths, and CheckHeap's verbose dump. When nil, records are discarded
	// unless HEAP_LOG_ALLOC is set, in which case they go to stderr.
	Logger *slog.Logger
}

// DefaultConfig is used by New when cfg is nil.
var DefaultConfig = Config{
	FitMargin: DefaultFitMargin,
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if logAlloc {
		h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h).With("component", "alloc")
	}
	return slog.New(slog.DiscardHandler)
}

// Package printer renders a heap image for humans and tools: a summary of
// allocated and free space, the block sequence, the free list in list order
// and the result of the invariant check.
package printer

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/heapkit/heap/verify"
)

const (
	DefaultIndentSize = 2
	DefaultMaxBlocks  = 0
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"
)

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// IndentSize is the number of spaces per indent level (text format only).
	// Default: 2
	IndentSize int

	// ShowBlocks lists every block by address.
	// Default: true
	ShowBlocks bool

	// ShowFreeList lists the free list in list order.
	// Default: true
	ShowFreeList bool

	// ShowTags includes raw header and footer words for each block.
	// Default: false
	ShowTags bool

	// MaxBlocks limits how many blocks are listed (0 = unlimited). The
	// summary always covers the whole heap.
	// Default: 0
	MaxBlocks int

	// Check runs the invariant checker and prints its findings.
	// Default: true
	Check bool

	// Language selects digit grouping for sizes in text output.
	// Default: language.English
	Language language.Tag
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:       FormatText,
		IndentSize:   DefaultIndentSize,
		ShowBlocks:   true,
		ShowFreeList: true,
		ShowTags:     false,
		MaxBlocks:    DefaultMaxBlocks,
		Check:        true,
		Language:     language.English,
	}
}

// Printer handles formatted output of heap images.
type Printer struct {
	opts   Options
	writer io.Writer
	num    *message.Printer
}

// New creates a new Printer.
//
// Example:
//
//	p := printer.New(os.Stdout, printer.DefaultOptions())
//	p.PrintHeap(h.Snapshot())
func New(w io.Writer, opts Options) *Printer {
	if opts.IndentSize <= 0 {
		opts.IndentSize = DefaultIndentSize
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	return &Printer{
		opts:   opts,
		writer: w,
		num:    message.NewPrinter(opts.Language),
	}
}

// PrintHeap prints the summary, and per Options the blocks, the free list
// and the check result.
func (p *Printer) PrintHeap(img verify.Image) error {
	r := Inspect(img, p.opts.Check)
	switch p.opts.Format {
	case FormatJSON:
		return p.printJSON(r)
	default:
		return p.printText(r)
	}
}

// PrintSummary prints only the summary.
func (p *Printer) PrintSummary(img verify.Image) error {
	r := Inspect(img, false)
	switch p.opts.Format {
	case FormatJSON:
		return p.printJSONValue(r.Summary)
	default:
		return p.printSummaryText(r)
	}
}

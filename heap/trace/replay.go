package trace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
)

var (
	// ErrMisaligned indicates a payload that is not 8-byte aligned.
	ErrMisaligned = errors.New("trace: payload not aligned")

	// ErrOutOfBounds indicates a payload that runs past the heap extent or is
	// shorter than requested.
	ErrOutOfBounds = errors.New("trace: payload outside heap")

	// ErrOverlap indicates a payload that overlaps another live payload.
	ErrOverlap = errors.New("trace: payloads overlap")

	// ErrCorrupted indicates payload bytes changed while the block was live.
	ErrCorrupted = errors.New("trace: payload corrupted")

	// ErrUnknownID indicates realloc or free of an id that is not live.
	ErrUnknownID = errors.New("trace: id not allocated")
)

// OpError reports the operation that failed during Replay.
type OpError struct {
	Index int // 0-based op index
	Op    Op
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %d (line %d, %s): %v", e.Index, e.Op.Line, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Options controls Replay.
type Options struct {
	// CheckEvery runs the allocator's invariant checker after every N ops
	// (0 = only once at the end).
	CheckEvery int

	// VerifyData fills payloads with a per-id pattern and verifies it.
	VerifyData bool

	// Logger receives a record per failed op and a summary at the end.
	Logger *slog.Logger
}

// Result summarises a replay.
type Result struct {
	Ops      int
	Allocs   int
	Reallocs int
	Frees    int
	Checks   int

	PeakPayload int // Largest sum of live requested bytes
	PeakExtent  int // Largest heap extent seen
	Elapsed     time.Duration
}

// Utilization is the peak live payload over the peak heap extent.
func (r *Result) Utilization() float64 {
	if r.PeakExtent == 0 {
		return 0
	}
	return float64(r.PeakPayload) / float64(r.PeakExtent)
}

// Throughput returns operations per second.
func (r *Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

type liveBlock struct {
	ptr  alloc.Ptr
	size int
}

// span is a live payload [start, end) for overlap detection.
type span struct {
	start, end int
	id         int
}

type replayer struct {
	a     alloc.Allocator
	opts  Options
	log   *slog.Logger
	live  map[int]liveBlock
	spans []span // sorted by start
	res   Result
	bytes int
}

// Replay runs every operation of tr against a and verifies the results. The
// first failure ends the replay with an *OpError. The allocator should be
// freshly initialized.
func Replay(ctx context.Context, a alloc.Allocator, tr *Trace, opts *Options) (*Result, error) {
	r := &replayer{a: a, live: make(map[int]liveBlock, tr.NumIDs)}
	if opts != nil {
		r.opts = *opts
	}
	r.log = r.opts.Logger
	if r.log == nil {
		r.log = slog.New(slog.DiscardHandler)
	}

	start := time.Now()
	for i, op := range tr.Ops {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return &r.res, err
			}
		}
		if err := r.step(op); err != nil {
			r.res.Elapsed = time.Since(start)
			r.log.Error("replay failed", "trace", tr.Name, "index", i, "op", op.String(), "err", err)
			return &r.res, &OpError{Index: i, Op: op, Err: err}
		}
		r.res.Ops++
		r.res.PeakExtent = max(r.res.PeakExtent, a.Extent())

		if r.opts.CheckEvery > 0 && (i+1)%r.opts.CheckEvery == 0 {
			r.res.Checks++
			if err := a.CheckHeap(false); err != nil {
				r.res.Elapsed = time.Since(start)
				return &r.res, &OpError{Index: i, Op: op, Err: err}
			}
		}
	}
	r.res.Elapsed = time.Since(start)

	r.res.Checks++
	if err := a.CheckHeap(false); err != nil {
		return &r.res, fmt.Errorf("trace: final check: %w", err)
	}
	r.log.Info("replay done",
		"trace", tr.Name,
		"ops", r.res.Ops,
		"peak_payload", r.res.PeakPayload,
		"peak_extent", r.res.PeakExtent,
		"util", fmt.Sprintf("%.1f%%", r.res.Utilization()*100),
	)
	return &r.res, nil
}

func (r *replayer) step(op Op) error {
	switch op.Kind {
	case OpAlloc:
		r.res.Allocs++
		if _, ok := r.live[op.ID]; ok {
			return fmt.Errorf("id %d already live: %w", op.ID, ErrSyntax)
		}
		if op.Size == 0 {
			r.live[op.ID] = liveBlock{}
			return nil
		}
		p, err := r.a.Alloc(op.Size)
		if err != nil {
			return err
		}
		return r.track(op.ID, p, op.Size, 0)

	case OpRealloc:
		r.res.Reallocs++
		old, ok := r.live[op.ID]
		if !ok {
			return fmt.Errorf("realloc id %d: %w", op.ID, ErrUnknownID)
		}
		if err := r.verify(op.ID, old); err != nil {
			return err
		}
		r.untrack(op.ID, old)
		if op.Size == 0 {
			if old.ptr != alloc.Nil {
				if err := r.a.Free(old.ptr); err != nil {
					return err
				}
			}
			r.live[op.ID] = liveBlock{}
			return nil
		}
		p, err := r.a.Realloc(old.ptr, op.Size)
		if err != nil {
			return err
		}
		return r.track(op.ID, p, op.Size, min(old.size, op.Size))

	case OpFree:
		r.res.Frees++
		old, ok := r.live[op.ID]
		if !ok {
			return fmt.Errorf("free id %d: %w", op.ID, ErrUnknownID)
		}
		if err := r.verify(op.ID, old); err != nil {
			return err
		}
		r.untrack(op.ID, old)
		delete(r.live, op.ID)
		if old.ptr == alloc.Nil {
			return nil
		}
		return r.a.Free(old.ptr)
	}
	return fmt.Errorf("unknown op %s: %w", op.Kind, ErrSyntax)
}

// track validates a newly placed payload, checks that its first kept bytes
// still carry the pattern and writes the pattern over the rest.
func (r *replayer) track(id int, p alloc.Ptr, size, kept int) error {
	bp := int(p)
	if !format.IsAligned(bp) {
		return fmt.Errorf("payload 0x%X: %w", bp, ErrMisaligned)
	}
	if bp+size > r.a.Extent() {
		return fmt.Errorf("payload [0x%X, 0x%X) past extent 0x%X: %w", bp, bp+size, r.a.Extent(), ErrOutOfBounds)
	}
	buf, err := r.a.Payload(p)
	if err != nil {
		return err
	}
	if len(buf) < size {
		return fmt.Errorf("payload 0x%X holds %d bytes, want %d: %w", bp, len(buf), size, ErrOutOfBounds)
	}
	if err := r.insertSpan(span{start: bp, end: bp + size, id: id}); err != nil {
		return err
	}

	if r.opts.VerifyData {
		for i := range kept {
			if buf[i] != pattern(id, i) {
				return fmt.Errorf("id %d byte %d lost across realloc: %w", id, i, ErrCorrupted)
			}
		}
		for i := kept; i < size; i++ {
			buf[i] = pattern(id, i)
		}
	}

	r.live[id] = liveBlock{ptr: p, size: size}
	r.bytes += size
	r.res.PeakPayload = max(r.res.PeakPayload, r.bytes)
	return nil
}

func (r *replayer) untrack(id int, b liveBlock) {
	if b.ptr == alloc.Nil {
		return
	}
	r.bytes -= b.size
	i, found := slices.BinarySearchFunc(r.spans, int(b.ptr), func(s span, start int) int { return s.start - start })
	if found && r.spans[i].id == id {
		r.spans = slices.Delete(r.spans, i, i+1)
	}
}

func (r *replayer) insertSpan(s span) error {
	i, _ := slices.BinarySearchFunc(r.spans, s.start, func(e span, start int) int { return e.start - start })
	if i > 0 && r.spans[i-1].end > s.start {
		prev := r.spans[i-1]
		return fmt.Errorf("id %d [0x%X, 0x%X) overlaps id %d [0x%X, 0x%X): %w",
			s.id, s.start, s.end, prev.id, prev.start, prev.end, ErrOverlap)
	}
	if i < len(r.spans) && r.spans[i].start < s.end {
		next := r.spans[i]
		return fmt.Errorf("id %d [0x%X, 0x%X) overlaps id %d [0x%X, 0x%X): %w",
			s.id, s.start, s.end, next.id, next.start, next.end, ErrOverlap)
	}
	r.spans = slices.Insert(r.spans, i, s)
	return nil
}

// verify checks that a live payload still carries its pattern.
func (r *replayer) verify(id int, b liveBlock) error {
	if !r.opts.VerifyData || b.ptr == alloc.Nil {
		return nil
	}
	buf, err := r.a.Payload(b.ptr)
	if err != nil {
		return err
	}
	for i := range b.size {
		if buf[i] != pattern(id, i) {
			return fmt.Errorf("id %d byte %d at 0x%X: %w", id, i, int(b.ptr)+i, ErrCorrupted)
		}
	}
	return nil
}

func pattern(id, i int) byte {
	return byte(id*131 + i*7 + 1)
}

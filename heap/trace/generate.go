package trace

import "math/rand/v2"

// GenOptions shapes a generated trace.
type GenOptions struct {
	Ops        int // Number of operations
	MaxLive    int // Most ids live at once
	MaxSize    int // Largest request in bytes
	ReallocPct int // Share of realloc among ops on live ids, in percent
}

// DefaultGenOptions is a small mixed workload.
var DefaultGenOptions = GenOptions{
	Ops:        2000,
	MaxLive:    200,
	MaxSize:    4096,
	ReallocPct: 20,
}

// Generate builds a random but well-formed trace: every id is allocated
// before it is resized or freed, and every id is freed by the end.
func Generate(seed uint64, opts GenOptions) *Trace {
	if opts.Ops <= 0 {
		opts.Ops = DefaultGenOptions.Ops
	}
	if opts.MaxLive <= 0 {
		opts.MaxLive = DefaultGenOptions.MaxLive
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultGenOptions.MaxSize
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))

	tr := &Trace{Weight: 1}
	var live []int
	nextID := 0
	size := func() int {
		// Mostly small requests with an occasional large one.
		if rng.IntN(8) == 0 {
			return 1 + rng.IntN(opts.MaxSize)
		}
		return 1 + rng.IntN(min(opts.MaxSize, 128))
	}

	for len(tr.Ops)+len(live) < opts.Ops {
		if len(live) == 0 || (len(live) < opts.MaxLive && rng.IntN(2) == 0) {
			tr.Ops = append(tr.Ops, Op{Kind: OpAlloc, ID: nextID, Size: size()})
			live = append(live, nextID)
			nextID++
			continue
		}
		i := rng.IntN(len(live))
		if rng.IntN(100) < opts.ReallocPct {
			tr.Ops = append(tr.Ops, Op{Kind: OpRealloc, ID: live[i], Size: size()})
			continue
		}
		tr.Ops = append(tr.Ops, Op{Kind: OpFree, ID: live[i]})
		live[i] = live[len(live)-1]
		live = live[:len(live)-1]
	}
	for _, id := range live {
		tr.Ops = append(tr.Ops, Op{Kind: OpFree, ID: id})
	}

	tr.NumIDs = nextID
	tr.NumOps = len(tr.Ops)
	peak := 0
	for _, op := range tr.Ops {
		peak += op.Size
	}
	tr.SuggestedHeap = peak
	return tr
}

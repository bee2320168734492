package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/cmd/heapctl/logger"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/arena"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	runImage  string
	runMaxOps int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().Int("fit-margin", alloc.DefaultFitMargin, "Stop the best-fit scan below this surplus (negative = full scan)")
	cmd.Flags().Bool("grow-full", false, "Grow by the whole request even when the last block is free")
	cmd.Flags().String("min-grow", "", "Smallest arena growth, e.g. 4KiB")
	cmd.Flags().String("arena", arenaMem, "Arena kind: mem or file")
	cmd.Flags().String("limit", "", "Largest heap extent, e.g. 64MiB (default unlimited)")
	cmd.Flags().Int("check-every", 0, "Run the heap checker every N ops (0 = at the end only)")
	cmd.Flags().Bool("verify-data", true, "Fill payloads with a pattern and verify it")
	cmd.Flags().StringVar(&runImage, "image", "", "Keep the heap in this file (implies --arena file, one trace only)")
	cmd.Flags().IntVar(&runMaxOps, "max-ops", 0, "Stop each trace after N ops, leaving its blocks live (0 = all)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>...",
		Short: "Replay allocation traces",
		Long: `The run command replays each trace against a fresh heap and checks every
returned payload for alignment, bounds, overlap with live payloads and data
integrity. It reports peak utilization and throughput per trace.

Example:
  heapctl run traces/*.rep
  heapctl run --check-every 1 --limit 16MiB short1.rep
  heapctl run --image /tmp/heap.img --max-ops 500 realloc.rep
  heapctl run --json amptjp.rep`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args, cfg)
		},
	}
	return cmd
}

// traceResult is one row of run output.
type traceResult struct {
	Trace       string       `json:"trace"`
	Ops         int          `json:"ops"`
	Allocs      int          `json:"allocs"`
	Reallocs    int          `json:"reallocs"`
	Frees       int          `json:"frees"`
	Checks      int          `json:"checks"`
	PeakPayload int          `json:"peak_payload"`
	PeakExtent  int          `json:"peak_extent"`
	Utilization float64      `json:"utilization"`
	Throughput  float64      `json:"ops_per_sec"`
	Elapsed     string       `json:"elapsed"`
	Stats       *alloc.Stats `json:"stats,omitempty"`
	Error       string       `json:"error,omitempty"`
}

func runReplay(ctx context.Context, paths []string, c Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if runImage != "" {
		if len(paths) != 1 {
			return errors.New("--image takes exactly one trace")
		}
		c.Arena = arenaFile
	}

	var results []traceResult
	failed := 0
	for _, path := range paths {
		printVerbose("Replaying: %s\n", path)
		r, err := replayOne(ctx, path, c)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			failed++
			r.Error = err.Error()
			logger.Error("trace failed", "trace", path, "err", err)
		}
		results = append(results, r)
	}

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
	} else {
		printResults(results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d traces failed", failed, len(paths))
	}
	return nil
}

func replayOne(ctx context.Context, path string, c Config) (traceResult, error) {
	out := traceResult{Trace: path}

	tr, err := trace.ParseFile(path)
	if err != nil {
		return out, err
	}
	if runMaxOps > 0 && runMaxOps < len(tr.Ops) {
		tr.Ops = tr.Ops[:runMaxOps]
	}

	h, done, err := openHeap(ctx, c, tr)
	if err != nil {
		return out, err
	}

	res, rerr := trace.Replay(ctx, h, tr, &trace.Options{
		CheckEvery: c.CheckEvery,
		VerifyData: c.VerifyData,
		Logger:     logger.L.With("trace", path),
	})
	// The file arena is unmapped by done, so the heap is read first.
	if verbose {
		s := h.Stats()
		out.Stats = &s
	}
	if derr := done(); rerr == nil {
		rerr = derr
	}

	out.Ops = res.Ops
	out.Allocs = res.Allocs
	out.Reallocs = res.Reallocs
	out.Frees = res.Frees
	out.Checks = res.Checks
	out.PeakPayload = res.PeakPayload
	out.PeakExtent = res.PeakExtent
	out.Utilization = res.Utilization()
	out.Throughput = res.Throughput()
	out.Elapsed = res.Elapsed.Round(time.Microsecond).String()
	return out, rerr
}

// openHeap builds a heap over the configured arena. The returned function
// flushes and releases a file arena; for a memory arena it does nothing.
func openHeap(ctx context.Context, c Config, tr *trace.Trace) (*alloc.Heap, func() error, error) {
	nop := func() error { return nil }
	limit, err := c.LimitBytes()
	if err != nil {
		return nil, nop, err
	}
	acfg, err := c.AllocConfig()
	if err != nil {
		return nil, nop, err
	}
	acfg.Logger = logger.L.With("component", "alloc", "trace", tr.Name)

	if c.Arena == arenaMem {
		a := arena.NewMem(&arena.MemOptions{Limit: limit, InitialCap: tr.SuggestedHeap})
		h, err := alloc.New(a, acfg)
		return h, nop, err
	}

	path, temp := runImage, runImage == ""
	if temp {
		f, err := os.CreateTemp("", "heapctl-*.heap")
		if err != nil {
			return nil, nop, err
		}
		path = f.Name()
		f.Close()
	}
	fa, err := arena.OpenFile(path, &arena.FileOptions{Limit: limit})
	if err != nil {
		return nil, nop, err
	}
	dt := dirty.NewTracker()
	acfg.Tracker = dt

	h, err := alloc.New(fa, acfg)
	if err != nil {
		fa.Close()
		return nil, nop, err
	}
	done := func() error {
		extent := h.Extent()
		ferr := dt.Flush(ctx, fa)
		if err := fa.Close(); ferr == nil {
			ferr = err
		}
		if temp {
			os.Remove(path)
		} else if ferr == nil {
			printVerbose("Heap image written: %s (%s)\n", path, formatBytes(int64(extent)))
		}
		return ferr
	}
	return h, done, nil
}

func printResults(results []traceResult) {
	if quiet {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "trace\tops\tpeak payload\tpeak extent\tutil\tops/s\tresult\t")

	var ops, okN int
	var util, secs float64
	for _, r := range results {
		status := "ok"
		if r.Error != "" {
			status = "FAIL"
		} else {
			okN++
			util += r.Utilization
		}
		ops += r.Ops
		if r.Throughput > 0 {
			secs += float64(r.Ops) / r.Throughput
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f%%\t%s\t%s\t\n",
			r.Trace, formatCount(r.Ops), formatCount(r.PeakPayload), formatCount(r.PeakExtent),
			r.Utilization*100, formatCount(int(r.Throughput)), status)
	}
	tw.Flush()

	for _, r := range results {
		if r.Error != "" {
			printInfo("\n%s: %s\n", r.Trace, r.Error)
		}
		if r.Stats != nil {
			printStats(r.Trace, r.Stats)
		}
	}

	if len(results) > 1 {
		mean := 0.0
		if okN > 0 {
			mean = util / float64(okN)
		}
		tput := 0.0
		if secs > 0 {
			tput = float64(ops) / secs
		}
		printInfo("\nTotal: %d traces, %s ops, mean utilization %.1f%%, %s ops/s\n",
			len(results), formatCount(ops), mean*100, formatCount(int(tput)))
	}
}

func printStats(name string, s *alloc.Stats) {
	printInfo("\n%s allocator stats:\n", name)
	printInfo("  calls:     alloc %s, free %s, realloc %s\n",
		formatCount(s.AllocCalls), formatCount(s.FreeCalls), formatCount(s.ReallocCalls))
	printInfo("  fit:       %s hits, %s misses, %s splits\n",
		formatCount(s.FitHits), formatCount(s.FitMisses), formatCount(s.Splits))
	printInfo("  growth:    %s calls, %s\n", formatCount(s.GrowCalls), formatBytes(s.GrowBytes))
	printInfo("  coalesce:  none %d, next %d, prev %d, both %d\n",
		s.CoalesceNone, s.CoalesceNext, s.CoalescePrev, s.CoalesceBoth)
	printInfo("  realloc:   same %d, shrink %d, next %d, prev %d, both %d, moved %d\n",
		s.ReallocSame, s.ReallocShrink, s.ReallocNext, s.ReallocPrev, s.ReallocBoth, s.ReallocMoves)
	printInfo("  final:     extent %s, %d allocated, %d free (largest %s)\n",
		formatBytes(int64(s.Extent)), s.AllocatedBlocks, s.FreeBlocks, formatBytes(int64(s.LargestFree)))
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	genSeed       uint64
	genOut        string
	genOps        int
	genMaxLive    int
	genMaxSize    int
	genReallocPct int
)

func init() {
	cmd := newGenCmd()
	d := trace.DefaultGenOptions
	cmd.Flags().Uint64Var(&genSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVarP(&genOut, "output", "o", "", "Write the trace here instead of stdout")
	cmd.Flags().IntVar(&genOps, "ops", d.Ops, "Number of operations")
	cmd.Flags().IntVar(&genMaxLive, "max-live", d.MaxLive, "Most blocks live at once")
	cmd.Flags().IntVar(&genMaxSize, "max-size", d.MaxSize, "Largest request in bytes")
	cmd.Flags().IntVar(&genReallocPct, "realloc-pct", d.ReallocPct, "Share of reallocs among ops on live blocks, in percent")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random allocation trace",
		Long: `The gen command writes a random but well-formed trace: every block is
allocated before it is resized or freed and every block is freed by the end.
The same seed always produces the same trace.

Example:
  heapctl gen --seed 7 --ops 10000 -o random7.rep
  heapctl gen --max-size 64 --realloc-pct 50 | heapctl run /dev/stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if genOut == "" {
				return runGen(os.Stdout)
			}
			f, err := os.Create(genOut)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			if err := runGen(f); err != nil {
				f.Close()
				return err
			}
			printVerbose("Trace written: %s\n", genOut)
			return f.Close()
		},
	}
	return cmd
}

func runGen(w io.Writer) error {
	tr := trace.Generate(genSeed, trace.GenOptions{
		Ops:        genOps,
		MaxLive:    genMaxLive,
		MaxSize:    genMaxSize,
		ReallocPct: genReallocPct,
	})
	return trace.Write(w, tr)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/joshuapare/heapkit/heap/printer"
)

var (
	dumpTags       bool
	dumpMaxBlocks  int
	dumpNoBlocks   bool
	dumpNoFreeList bool
	dumpNoCheck    bool
	dumpSummary    bool
	dumpLang       string
)

func init() {
	cmd := newDumpCmd()
	cmd.Flags().BoolVar(&dumpTags, "tags", false, "Show raw header and footer words")
	cmd.Flags().IntVar(&dumpMaxBlocks, "max-blocks", 0, "List at most N blocks (0 = unlimited)")
	cmd.Flags().BoolVar(&dumpNoBlocks, "no-blocks", false, "Do not list blocks")
	cmd.Flags().BoolVar(&dumpNoFreeList, "no-free-list", false, "Do not list the free list")
	cmd.Flags().BoolVar(&dumpNoCheck, "no-check", false, "Skip the invariant check")
	cmd.Flags().BoolVar(&dumpSummary, "summary", false, "Print only the summary")
	cmd.Flags().StringVar(&dumpLang, "lang", "en", "Language for number grouping (BCP 47 tag)")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <image>",
		Short: "Human-readable dump of a heap image",
		Long: `The dump command lists every block of a heap image by address, the free
list in list order and the result of the invariant check.

Example:
  heapctl dump /tmp/heap.img
  heapctl dump /tmp/heap.img --tags --max-blocks 20
  heapctl dump /tmp/heap.img --summary --lang de
  heapctl dump /tmp/heap.img --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
	return cmd
}

func runDump(args []string) error {
	printVerbose("Opening image: %s\n", args[0])
	img, err := readImage(args[0])
	if err != nil {
		return err
	}
	lang, err := language.Parse(dumpLang)
	if err != nil {
		return err
	}

	opts := printer.DefaultOptions()
	opts.ShowTags = dumpTags
	opts.MaxBlocks = dumpMaxBlocks
	opts.ShowBlocks = !dumpNoBlocks
	opts.ShowFreeList = !dumpNoFreeList
	opts.Check = !dumpNoCheck
	opts.Language = lang
	if jsonOut {
		opts.Format = printer.FormatJSON
	}

	p := printer.New(os.Stdout, opts)
	if dumpSummary {
		return p.PrintSummary(img)
	}
	return p.PrintHeap(img)
}

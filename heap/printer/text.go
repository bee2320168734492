package printer

import (
	"fmt"
	"strings"
)

func hex(off int) string {
	if off < 0 {
		return "-"
	}
	return fmt.Sprintf("0x%X", off)
}

// printSummaryText prints the one-paragraph heap summary.
func (p *Printer) printSummaryText(r *Report) error {
	s := r.Summary
	indent := strings.Repeat(" ", p.opts.IndentSize)

	p.num.Fprintf(p.writer, "heap: %d bytes, %d blocks\n", s.Extent, s.Blocks)
	p.num.Fprintf(p.writer, "%sallocated: %d bytes in %d blocks\n", indent, s.AllocatedBytes, s.AllocatedBlocks)
	p.num.Fprintf(p.writer, "%sfree:      %d bytes in %d blocks, largest %d, fragmentation %.1f%%\n",
		indent, s.FreeBytes, s.FreeBlocks, s.LargestFree, s.Fragmentation*100)
	head := "nil"
	if s.FreeHead != 0 {
		head = hex(s.FreeHead)
	}
	_, err := p.num.Fprintf(p.writer, "%sfree list: %d entries, head %s\n", indent, s.FreeListLen, head)
	return err
}

// printText prints the full text report.
func (p *Printer) printText(r *Report) error {
	if err := p.printSummaryText(r); err != nil {
		return err
	}
	indent := strings.Repeat(" ", p.opts.IndentSize)

	if p.opts.ShowBlocks {
		fmt.Fprintf(p.writer, "\nblocks:\n")
		for i, b := range r.Blocks {
			if p.opts.MaxBlocks > 0 && i >= p.opts.MaxBlocks {
				fmt.Fprintf(p.writer, "%s... %d more\n", indent, len(r.Blocks)-i)
				break
			}
			p.num.Fprintf(p.writer, "%s%10s %10d  %s", indent, hex(b.Ptr), b.Size, b.Kind)
			if p.opts.ShowTags {
				fmt.Fprintf(p.writer, "  hdr=0x%08X ftr=0x%08X", b.Header, b.Footer)
			}
			fmt.Fprintln(p.writer)
		}
	}

	if p.opts.ShowFreeList {
		fmt.Fprintf(p.writer, "\nfree list:")
		if len(r.FreeList) == 0 {
			fmt.Fprintf(p.writer, " empty")
		}
		fmt.Fprintln(p.writer)
		for _, e := range r.FreeList {
			p.num.Fprintf(p.writer, "%s%10s %10d  prev=%s next=%s\n", indent, hex(e.Ptr), e.Size, hex(e.Prev), hex(e.Next))
		}
	}

	if r.WalkError != "" {
		fmt.Fprintf(p.writer, "\nwalk stopped: %s\n", r.WalkError)
	}

	if r.Checked {
		if len(r.Violations) == 0 {
			fmt.Fprintf(p.writer, "\ncheck: ok\n")
		} else {
			fmt.Fprintf(p.writer, "\ncheck: %d violations\n", len(r.Violations))
			for _, v := range r.Violations {
				fmt.Fprintf(p.writer, "%s%s at %s: %s\n", indent, v.Type, hex(v.Offset), v.Message)
			}
		}
	}
	return nil
}

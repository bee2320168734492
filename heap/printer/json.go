package printer

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// printJSON prints the full report as one JSON document.
func (p *Printer) printJSON(r *Report) error {
	out := *r
	if !p.opts.ShowBlocks {
		out.Blocks = nil
	} else if p.opts.MaxBlocks > 0 && len(out.Blocks) > p.opts.MaxBlocks {
		out.Blocks = out.Blocks[:p.opts.MaxBlocks]
	}
	if !p.opts.ShowFreeList {
		out.FreeList = nil
	}
	return p.printJSONValue(out)
}

func (p *Printer) printJSONValue(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal heap report: %w", err)
	}
	_, err = fmt.Fprintf(p.writer, "%s\n", data)
	return err
}

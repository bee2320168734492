package alloc

import (
	"errors"

	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

// CheckHeap walks the blocks and the free list independently and
// cross-checks them. It returns nil or verify.Violations.
//
// With verbose set, every block and every violation is logged at info level
// to the configured logger.
func (h *Heap) CheckHeap(verbose bool) error {
	if err := h.ready(); err != nil {
		return err
	}
	err := verify.AllInvariants(h.Snapshot())
	if !verbose {
		return err
	}

	h.log.Info("heap", "extent", len(h.data), "free_head", h.head)
	_ = format.WalkBlocks(h.data, func(t format.BlockTag) error {
		h.log.Info("block",
			"ptr", t.Payload,
			"size", t.Size,
			"allocated", t.Allocated,
			"header", t.Header,
			"footer", t.Footer,
		)
		return nil
	})
	var v verify.Violations
	if errors.As(err, &v) {
		for _, e := range v {
			h.log.Warn("violation", "type", e.Type, "offset", e.Offset, "msg", e.Message)
		}
	}
	return err
}

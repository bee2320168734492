package printer

import (
	"errors"

	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/format"
)

// BlockInfo is one block as decoded from the image.
type BlockInfo struct {
	Ptr       int    `json:"ptr"`
	Size      int    `json:"size"`
	Allocated bool   `json:"allocated"`
	Kind      string `json:"kind"`
	Header    uint32 `json:"header"`
	Footer    uint32 `json:"footer"`
}

// Block kinds.
const (
	KindPrologue = "prologue"
	KindEpilogue = "epilogue"
	KindAlloc    = "alloc"
	KindFree     = "free"
)

// FreeEntry is one free-list node in list order.
type FreeEntry struct {
	Ptr  int `json:"ptr"`
	Size int `json:"size"`
	Next int `json:"next"`
	Prev int `json:"prev"`
}

// Summary aggregates the block walk.
type Summary struct {
	Extent          int     `json:"extent"`
	Blocks          int     `json:"blocks"`
	AllocatedBlocks int     `json:"allocated_blocks"`
	AllocatedBytes  int     `json:"allocated_bytes"`
	FreeBlocks      int     `json:"free_blocks"`
	FreeBytes       int     `json:"free_bytes"`
	LargestFree     int     `json:"largest_free"`
	FreeListLen     int     `json:"free_list_len"`
	FreeHead        int     `json:"free_head"`
	Fragmentation   float64 `json:"fragmentation"` // 1 - largest free / total free
}

// Violation is a checker finding in printable form.
type Violation struct {
	Type    string `json:"type"`
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

// Report is everything the printer knows about one image.
type Report struct {
	Summary    Summary     `json:"summary"`
	Blocks     []BlockInfo `json:"blocks"`
	FreeList   []FreeEntry `json:"free_list"`
	Checked    bool        `json:"checked"`
	Violations []Violation `json:"violations,omitempty"`
	WalkError  string      `json:"walk_error,omitempty"`
}

// OK reports whether the image was checked and found consistent.
func (r *Report) OK() bool {
	return r.Checked && len(r.Violations) == 0 && r.WalkError == ""
}

// Inspect decodes an image into a Report. Decoding stops at the first block
// or link that cannot be read; what was decoded so far is kept and the error
// is recorded in WalkError. With check set the invariant checker runs too.
func Inspect(img verify.Image, check bool) *Report {
	r := &Report{Checked: check}
	r.Summary.Extent = len(img.Data)

	err := format.WalkBlocks(img.Data, func(t format.BlockTag) error {
		b := BlockInfo{
			Ptr:       t.Payload,
			Size:      t.Size,
			Allocated: t.Allocated,
			Header:    t.Header,
			Footer:    t.Footer,
		}
		switch {
		case t.Payload == format.ProloguePayload:
			b.Kind = KindPrologue
		case t.IsEpilogue():
			b.Kind = KindEpilogue
		case t.Allocated:
			b.Kind = KindAlloc
			r.Summary.Blocks++
			r.Summary.AllocatedBlocks++
			r.Summary.AllocatedBytes += t.Size
		default:
			b.Kind = KindFree
			r.Summary.Blocks++
			r.Summary.FreeBlocks++
			r.Summary.FreeBytes += t.Size
			r.Summary.LargestFree = max(r.Summary.LargestFree, t.Size)
		}
		r.Blocks = append(r.Blocks, b)
		return nil
	})
	if err != nil {
		r.WalkError = err.Error()
	}
	if r.Summary.FreeBytes > 0 {
		r.Summary.Fragmentation = 1 - float64(r.Summary.LargestFree)/float64(r.Summary.FreeBytes)
	}

	head := img.FreeHead
	var headErr error
	if head == verify.UnknownHead {
		head, headErr = verify.DeriveHead(img.Data)
	}
	r.Summary.FreeHead = head
	if err == nil {
		r.FreeList, err = freeList(img.Data, head)
		if err != nil {
			r.WalkError = err.Error()
		}
	}
	r.Summary.FreeListLen = len(r.FreeList)

	if check {
		// AllInvariants is handed the derived head, so it cannot see that
		// the head itself was ambiguous.
		img.FreeHead = head
		r.addViolations(headErr)
		r.addViolations(verify.AllInvariants(img))
	}
	return r
}

func (r *Report) addViolations(err error) {
	var v verify.Violations
	if !errors.As(err, &v) {
		return
	}
	for _, e := range v {
		r.Violations = append(r.Violations, Violation{Type: e.Type, Offset: e.Offset, Message: e.Message})
	}
}

func freeList(data []byte, head int) ([]FreeEntry, error) {
	var out []FreeEntry
	seen := map[int]bool{}
	err := format.WalkFree(data, head, func(l format.FreeLinks) error {
		if seen[l.Payload] {
			return format.ErrStop
		}
		seen[l.Payload] = true
		size := 0
		if w, err := format.ReadWord(data, format.HeaderOff(l.Payload)); err == nil {
			size = format.TagSize(w)
		}
		out = append(out, FreeEntry{Ptr: l.Payload, Size: size, Next: l.Next, Prev: l.Prev})
		return nil
	})
	return out, err
}

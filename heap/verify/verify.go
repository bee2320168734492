package verify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/joshuapare/heapkit/internal/format"
)

// ErrInvariant is the cause of every ValidationError.
var ErrInvariant = errors.New("verify: heap invariant violated")

// UnknownHead asks the checker to derive the free-list head from the image.
const UnknownHead = -1

// Violation categories.
const (
	TypeImage       = "Image"
	TypeWalk        = "Walk"
	TypePrologue    = "Prologue"
	TypeEpilogue    = "Epilogue"
	TypeAlignment   = "Alignment"
	TypeTagMismatch = "TagMismatch"
	TypeBlockSize   = "BlockSize"
	TypeAdjacent    = "AdjacentFree"
	TypeFreeHead    = "FreeHead"
	TypeFreeLink    = "FreeLink"
	TypeFreeAlloc   = "FreeListAllocated"
	TypeFreeCycle   = "FreeListCycle"
	TypeNotListed   = "FreeNotListed"
)

// Image is a heap image plus the free-list head that goes with it.
type Image struct {
	Data     []byte
	FreeHead int // payload offset of the first free block, 0 if empty, UnknownHead to derive
}

// ValidationError describes one violated invariant.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvariant }

// Violations is every invariant violation found in one check.
type Violations []*ValidationError

func (v Violations) Error() string {
	switch len(v) {
	case 0:
		return "no violations"
	case 1:
		return v[0].Error()
	}
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d heap invariant violations: %s", len(v), strings.Join(parts, "; "))
}

func (v Violations) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// Has reports whether any violation has the given type.
func (v Violations) Has(typ string) bool {
	for _, e := range v {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func (v Violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AllInvariants runs both traversals and returns every violation found as
// Violations, or nil when the image is consistent.
func AllInvariants(img Image) error {
	l, v := scan(img.Data)
	v = append(v, checkFreeList(img, l)...)
	return v.err()
}

// Blocks checks the block walk alone.
func Blocks(data []byte) error {
	_, v := scan(data)
	return v.err()
}

// FreeList checks the free list alone against the blocks it can reach.
func FreeList(img Image) error {
	l, _ := scan(img.Data)
	return checkFreeList(img, l).err()
}

// DeriveHead finds the free-list head of an image: the free block whose prev
// link is nil. It returns 0 when the image has no free blocks.
func DeriveHead(data []byte) (int, error) {
	l, _ := scan(data)
	head, v := deriveHead(data, l)
	if len(v) > 0 {
		return head, v
	}
	return head, nil
}

// layout is what the block walk learned about the image.
type layout struct {
	blocks map[int]format.BlockTag // ordinary blocks by payload offset
	free   []int                   // free payload offsets in address order
}

func scan(data []byte) (*layout, Violations) {
	l := &layout{blocks: make(map[int]format.BlockTag)}
	var v Violations

	if len(data) < format.InitialSize {
		v = append(v, &ValidationError{
			Type:    TypeImage,
			Message: fmt.Sprintf("image too small: %d bytes (need %d)", len(data), format.InitialSize),
			Offset:  -1,
		})
		return l, v
	}

	var prev format.BlockTag
	first := true
	next := format.ProloguePayload
	err := format.WalkBlocks(data, func(t format.BlockTag) error {
		defer func() { prev, first = t, false }()
		next = t.Next()

		if first {
			if t.Size != format.PrologueSize || !t.Allocated || !t.Consistent() {
				v = append(v, &ValidationError{
					Type:    TypePrologue,
					Message: fmt.Sprintf("bad prologue: header=0x%08X footer=0x%08X", t.Header, t.Footer),
					Offset:  t.Payload,
					Details: map[string]any{
						"expected": format.Pack(format.PrologueSize, true),
						"header":   t.Header,
						"footer":   t.Footer,
					},
				})
			}
			return nil
		}

		if t.IsEpilogue() {
			if !t.Allocated {
				v = append(v, &ValidationError{
					Type:    TypeEpilogue,
					Message: "epilogue is not marked allocated",
					Offset:  t.Payload,
				})
			}
			if end := format.HeaderOff(t.Payload) + format.WordSize; end != len(data) {
				v = append(v, &ValidationError{
					Type:    TypeEpilogue,
					Message: fmt.Sprintf("epilogue ends at 0x%X, extent is 0x%X", end, len(data)),
					Offset:  t.Payload,
					Details: map[string]any{"expected": len(data), "actual": end},
				})
			}
			return nil
		}

		if !format.IsAligned(t.Payload) {
			v = append(v, &ValidationError{
				Type:    TypeAlignment,
				Message: fmt.Sprintf("payload not %d-byte aligned", format.Alignment),
				Offset:  t.Payload,
			})
		}
		if !t.Consistent() {
			v = append(v, &ValidationError{
				Type:    TypeTagMismatch,
				Message: fmt.Sprintf("header 0x%08X does not match footer 0x%08X", t.Header, t.Footer),
				Offset:  t.Payload,
				Details: map[string]any{"expected": t.Header, "actual": t.Footer},
			})
		}
		if t.Size < format.MinBlockSize {
			v = append(v, &ValidationError{
				Type:    TypeBlockSize,
				Message: fmt.Sprintf("block size %d below minimum %d", t.Size, format.MinBlockSize),
				Offset:  t.Payload,
				Details: map[string]any{"expected": format.MinBlockSize, "actual": t.Size},
			})
		}
		if !t.Allocated && !prev.Allocated {
			v = append(v, &ValidationError{
				Type:    TypeAdjacent,
				Message: fmt.Sprintf("free block follows free block at 0x%X", prev.Payload),
				Offset:  t.Payload,
				Details: map[string]any{"prev": prev.Payload},
			})
		}

		l.blocks[t.Payload] = t
		if !t.Allocated {
			l.free = append(l.free, t.Payload)
		}
		return nil
	})
	if err != nil {
		v = append(v, &ValidationError{
			Type:    TypeWalk,
			Message: err.Error(),
			Offset:  next,
		})
	}
	return l, v
}

func deriveHead(data []byte, l *layout) (int, Violations) {
	var heads []int
	for _, bp := range l.free {
		links, err := format.ReadLinks(data, bp)
		if err != nil {
			continue
		}
		if links.Prev == format.NilLink {
			heads = append(heads, bp)
		}
	}
	switch {
	case len(heads) == 1:
		return heads[0], nil
	case len(heads) == 0 && len(l.free) == 0:
		return format.NilLink, nil
	case len(heads) == 0:
		return format.NilLink, Violations{{
			Type:    TypeFreeHead,
			Message: fmt.Sprintf("%d free blocks but none has a nil prev link", len(l.free)),
			Offset:  -1,
		}}
	}
	sort.Ints(heads)
	return heads[0], Violations{{
		Type:    TypeFreeHead,
		Message: fmt.Sprintf("%d free blocks claim to be the list head", len(heads)),
		Offset:  heads[1],
		Details: map[string]any{"heads": heads},
	}}
}

func checkFreeList(img Image, l *layout) Violations {
	var v Violations
	data := img.Data
	if len(data) < format.InitialSize {
		return v
	}

	head := img.FreeHead
	if head == UnknownHead {
		var dv Violations
		head, dv = deriveHead(data, l)
		v = append(v, dv...)
	}

	visited := make(map[int]bool, len(l.free))
	prev := format.NilLink
	err := format.WalkFree(data, head, func(links format.FreeLinks) error {
		bp := links.Payload
		t, ok := l.blocks[bp]
		if !ok {
			v = append(v, &ValidationError{
				Type:    TypeFreeLink,
				Message: fmt.Sprintf("free list entry (reached from 0x%X) is not a block", prev),
				Offset:  bp,
				Details: map[string]any{"from": prev},
			})
			return format.ErrStop
		}
		if visited[bp] {
			v = append(v, &ValidationError{
				Type:    TypeFreeCycle,
				Message: fmt.Sprintf("free list revisits block (reached from 0x%X)", prev),
				Offset:  bp,
			})
			return format.ErrStop
		}
		visited[bp] = true

		if t.Allocated {
			v = append(v, &ValidationError{
				Type:    TypeFreeAlloc,
				Message: "block on the free list is marked allocated",
				Offset:  bp,
			})
		}
		if links.Prev != prev {
			v = append(v, &ValidationError{
				Type:    TypeFreeLink,
				Message: fmt.Sprintf("prev link is 0x%X, expected 0x%X", links.Prev, prev),
				Offset:  bp,
				Details: map[string]any{"expected": prev, "actual": links.Prev},
			})
		}
		prev = bp
		return nil
	})
	if err != nil {
		typ := TypeFreeLink
		if errors.Is(err, format.ErrCycle) {
			typ = TypeFreeCycle
		}
		v = append(v, &ValidationError{
			Type:    typ,
			Message: err.Error(),
			Offset:  prev,
		})
	}

	for _, bp := range l.free {
		if !visited[bp] {
			v = append(v, &ValidationError{
				Type:    TypeNotListed,
				Message: "free block is not reachable from the free list",
				Offset:  bp,
			})
		}
	}
	return v
}

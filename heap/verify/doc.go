// Package verify checks the structural invariants of a heap image.
//
// # Overview
//
// A heap image is the raw arena: a padding word, the prologue block, any
// number of ordinary blocks and the epilogue header at the very end. The
// checker performs two independent traversals and cross-validates them:
//
//   - Block walk: every block from the prologue to the epilogue, by address.
//     Header and footer must agree, payloads must be 8-byte aligned, ordinary
//     blocks must be at least the minimum block size, and no two consecutive
//     blocks may both be free.
//   - Free-list walk: starting from the list head, every entry must be a block
//     found by the block walk, must be marked free, and must link back to its
//     predecessor. Every free block from the block walk must be on the list.
//
// # Quick Start
//
//	img := a.Snapshot()
//	if err := verify.AllInvariants(img); err != nil {
//	    var v verify.Violations
//	    if errors.As(err, &v) {
//	        for _, e := range v {
//	            fmt.Println(e)
//	        }
//	    }
//	}
//
// Images loaded from disk do not carry the free-list head. Set FreeHead to
// UnknownHead and the checker derives it from the one free block whose prev
// link is nil.
//
// # ValidationError
//
// Every violation is a *ValidationError:
//
//	type ValidationError struct {
//	    Type    string         // Category (e.g. "TagMismatch")
//	    Message string         // Human-readable description
//	    Offset  int            // Payload offset of the block (-1 if N/A)
//	    Details map[string]any // Expected/actual values
//	}
//
// ValidationError unwraps to ErrInvariant, so errors.Is(err, ErrInvariant)
// holds for anything the checker reports.
package verify

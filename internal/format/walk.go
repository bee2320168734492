package format

import (
	"errors"
	"fmt"
)

// ErrStop can be returned by a walk callback to end the walk early without error.
var ErrStop = errors.New("format: stop walk")

// WalkBlocks visits every block by address, from the prologue to the
// epilogue inclusive. Each header is validated before its footer is read, so a
// corrupt size stops the walk with an error instead of running off the image.
func WalkBlocks(b []byte, fn func(BlockTag) error) error {
	if len(b) < InitialSize {
		return fmt.Errorf("walk: image of %d bytes: %w", len(b), ErrTruncated)
	}
	bp := ProloguePayload
	for {
		t, err := DecodeBlock(b, bp)
		if err != nil {
			return fmt.Errorf("walk: %w", err)
		}
		if err := fn(t); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		if t.IsEpilogue() {
			return nil
		}
		bp = t.Next()
	}
}

// FreeLinks is the pair of links stored in a free block's payload.
type FreeLinks struct {
	Payload int
	Next    int
	Prev    int
}

// ReadLinks reads the next/prev links of the free block at bp.
func ReadLinks(b []byte, bp int) (FreeLinks, error) {
	next, err := ReadWord(b, NextLinkOff(bp))
	if err != nil {
		return FreeLinks{}, fmt.Errorf("links of 0x%X: %w", bp, err)
	}
	prev, err := ReadWord(b, PrevLinkOff(bp))
	if err != nil {
		return FreeLinks{}, fmt.Errorf("links of 0x%X: %w", bp, err)
	}
	return FreeLinks{Payload: bp, Next: int(next), Prev: int(prev)}, nil
}

// ErrCycle indicates a free list that does not terminate.
var ErrCycle = errors.New("format: free list does not terminate")

// WalkFree visits the free list starting at head by following next links.
// The walk is bounded by the number of blocks the image could possibly hold,
// so a cyclic list ends with ErrCycle.
func WalkFree(b []byte, head int, fn func(FreeLinks) error) error {
	limit := len(b)/MinBlockSize + 1
	for cur, steps := head, 0; cur != NilLink; steps++ {
		if steps > limit {
			return fmt.Errorf("walk free from 0x%X: %w", head, ErrCycle)
		}
		l, err := ReadLinks(b, cur)
		if err != nil {
			return fmt.Errorf("walk free: %w", err)
		}
		if err := fn(l); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		cur = l.Next
	}
	return nil
}

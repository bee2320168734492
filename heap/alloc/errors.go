package alloc

import "errors"

var (
	// ErrNotInitialized indicates use of a heap whose Init failed or never ran.
	ErrNotInitialized = errors.New("alloc: heap not initialized")

	// ErrBadSize indicates a non-positive request or one too large to encode.
	ErrBadSize = errors.New("alloc: bad request size")

	// ErrNoSpace indicates that no free block was large enough and the arena
	// could not grow.
	ErrNoSpace = errors.New("alloc: no space")

	// ErrBadPtr indicates a pointer that does not address a block in this heap.
	ErrBadPtr = errors.New("alloc: bad pointer")

	// ErrDoubleFree indicates an operation on a block that is already free.
	ErrDoubleFree = errors.New("alloc: block already free")
)

package arena

import "errors"

var (
	// ErrExhausted indicates the arena cannot grow by the requested amount.
	ErrExhausted = errors.New("arena: exhausted")

	// ErrBadGrow indicates a non-positive growth request.
	ErrBadGrow = errors.New("arena: grow size must be positive")

	// ErrClosed indicates use of an arena after Close.
	ErrClosed = errors.New("arena: closed")
)

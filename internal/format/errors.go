package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a tag or link.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadTag indicates a tag word whose size is not aligned or not plausible.
	ErrBadTag = errors.New("format: implausible block tag")
	// ErrTagMismatch indicates a block whose header and footer disagree.
	ErrTagMismatch = errors.New("format: header/footer mismatch")
)

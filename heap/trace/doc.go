// Package trace reads allocation traces and replays them against an
// allocator, checking every result along the way.
//
// # Trace Format
//
// A trace is plain text. Four header numbers come first, one per line, then
// one operation per line:
//
//	<suggested heap size>
//	<number of ids>
//	<number of ops>
//	<weight>
//	a <id> <bytes>    allocate bytes and remember the block as id
//	r <id> <bytes>    resize block id to bytes
//	f <id>            free block id
//
// Blank lines and lines starting with '#' are ignored.
//
// # Replay Checks
//
// Each returned block must be 8-byte aligned, lie inside the heap, hold the
// requested bytes and not overlap any other live block. With VerifyData set
// every payload is filled with a pattern derived from its id, which must
// survive until the block is freed and across realloc up to the smaller of
// the two sizes. CheckEvery runs the allocator's own invariant checker.
package trace

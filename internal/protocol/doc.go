// Package protocol owns the wire contract and parsing primitives.
//
// Ownership boundary:
// - fixed 16-byte message header
// - length-prefixed payload primitives (string, i32, i64)
// - pack/unpack entry points
package protocol

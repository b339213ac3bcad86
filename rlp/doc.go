// Package rlp implements the RLP (Recursive Length Prefix) serialization
// format used throughout the RLPx transport and its subprotocols: frame
// headers, Hello/Status handshakes, and every ETH/SNAP message body.
//
// RLP is in scope for this module rather than an external collaborator: the
// wire format itself is part of what the transport specifies. The encoding
// rules mirror the reference implementation's conventions exactly (big
// integers as minimal big-endian byte strings, booleans as 0x80/0x01,
// structs as ordered lists of their fields) so that messages produced here
// interoperate with any conforming peer.
//
// Supported Go types:
//
//	uint, uint8..uint64, bool, string, []byte, *big.Int
//	arrays and slices of any supported type
//	structs, using the order of the fields; a trailing field tagged
//	`rlp:"tail"` (used for version-gated optional fields like ForkID) is
//	omitted from the encoding when it is the zero value, and optional on
//	decode
//	pointers, which are treated as the pointed-to value (nil is not
//	supported on encode, except that a nil *big.Int or *uint256.Int
//	struct field encodes as zero)
//
// Types implementing Encoder/Decoder are given full control of their own
// wire representation; this is used for HashOrNumber (a length-based union)
// and for passthrough of already-encoded RawValue payloads.
package rlp

// Package baohash implements the bao tree hash: a deterministic binary-tree
// layout over fixed-size chunks, hashed with domain-separated BLAKE2b.
//
// The package exposes a one-shot Sum function, a streaming Writer that
// consumes bytes and finalizes to a root, and a ParallelWriter/SumParallel
// pair that compute the same root using a recursive, potentially
// concurrent, split-and-join strategy (see package baojoin).
package baohash

import (
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
)

const (
	// ChunkSize is the maximum number of input bytes hashed into a single
	// leaf node.
	ChunkSize = 4096

	// Size is the length in bytes of a bao hash.
	Size = 32

	// ParentSize is the length in bytes of a parent node: two concatenated
	// child hashes.
	ParentSize = 2 * Size

	// HeaderSize is the length in bytes of the little-endian content
	// length prefix on every encoding.
	HeaderSize = 8

	// MaxDepth is the maximum depth of the subtree stack: ceil(log2(2^64 /
	// ChunkSize)). 52 entries comfortably bounds every input length that
	// fits in a uint64.
	MaxDepth = 52
)

// Hash is a 32-byte bao root or chaining value.
type Hash [Size]byte

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns h as a freshly allocated byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// Equal reports whether h and other are the same hash. The comparison runs
// in constant time, since every call site on the verification path is
// comparing an attacker-influenced value against a secret-equivalent
// expected hash.
func (h Hash) Equal(other Hash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

func encodeLen(n uint64) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	return buf
}

// DecodeLen decodes an 8-byte little-endian header into a content length.
func DecodeLen(header [HeaderSize]byte) uint64 {
	return binary.LittleEndian.Uint64(header[:])
}

// EncodeLen encodes a content length as an 8-byte little-endian header.
func EncodeLen(n uint64) [HeaderSize]byte {
	return encodeLen(n)
}

// LeftLen returns the size in bytes of the left subtree of a subtree
// spanning n bytes, where n > ChunkSize: the largest multiple of ChunkSize
// that is itself a power of two multiple of ChunkSize and strictly less
// than n.
func LeftLen(n uint64) uint64 {
	// available is how many whole chunks precede the final, possibly
	// partial, chunk; at least one chunk must remain for the right side.
	available := (n - 1) / ChunkSize
	power := uint64(1) << (bitLen64(available) - 1)
	return power * ChunkSize
}

func bitLen64(x uint64) uint {
	n := uint(0)
	for x > 0 {
		x >>= 1
		n++
	}
	return n
}

// CountChunks returns the number of chunks a content length spans. The
// empty input still counts as one (empty) chunk. The division is split
// so lengths near the top of the uint64 range don't overflow.
func CountChunks(contentLen uint64) uint64 {
	if contentLen == 0 {
		return 1
	}
	chunks := contentLen / ChunkSize
	if contentLen%ChunkSize != 0 {
		chunks++
	}
	return chunks
}

// Package baoenc builds bao's encoded formats: the combined encoding,
// which interleaves parent nodes with chunk bytes in pre-order, and the
// outboard encoding, which stores the same parent nodes in their own
// stream and leaves the original content untouched.
//
// Both formats begin with an 8-byte little-endian header giving the
// total content length, followed by the tree's parent nodes and chunks
// in pre-order: a node's left subtree is written in full before its
// right subtree, recursively.
package baoenc

import (
	"math/bits"

	"github.com/pombredanne/bao/baoerr"
	"github.com/pombredanne/bao/baohash"
)

// Encode returns the combined encoding of data together with its root
// hash. The combined encoding holds everything needed to verify and
// reproduce data from a single stream.
func Encode(data []byte) ([]byte, baohash.Hash) {
	root, body := encodeRecurse(data, true, uint64(len(data)), false)
	header := baohash.EncodeLen(uint64(len(data)))
	out := make([]byte, 0, baohash.HeaderSize+len(body))
	out = append(out, header[:]...)
	out = append(out, body...)
	return out, root
}

// EncodeOutboard returns the outboard encoding of data: the same parent
// nodes as Encode, but with chunk bytes omitted since the original data
// stream can supply them during decoding.
func EncodeOutboard(data []byte) ([]byte, baohash.Hash) {
	root, body := encodeRecurse(data, true, uint64(len(data)), true)
	header := baohash.EncodeLen(uint64(len(data)))
	out := make([]byte, 0, baohash.HeaderSize+len(body))
	out = append(out, header[:]...)
	out = append(out, body...)
	return out, root
}

// encodeRecurse hashes and encodes data as a single subtree, returning
// its chaining value and its pre-order encoding (sans header). isRoot
// and totalLen are threaded down exactly as in baohash, so the same node
// ends up finalized as root in both the hash and the encoding.
func encodeRecurse(data []byte, isRoot bool, totalLen uint64, outboard bool) (baohash.Hash, []byte) {
	if len(data) <= baohash.ChunkSize {
		cv := baohash.HashChunk(data, isRoot, totalLen)
		if outboard {
			return cv, nil
		}
		return cv, append([]byte(nil), data...)
	}

	split := baohash.LeftLen(uint64(len(data)))
	leftHash, leftEncoded := encodeRecurse(data[:split], false, totalLen, outboard)
	rightHash, rightEncoded := encodeRecurse(data[split:], false, totalLen, outboard)

	parent := baohash.JoinParent(leftHash, rightHash)
	cv := baohash.HashParent(parent, isRoot, totalLen)

	encoded := make([]byte, 0, baohash.ParentSize+len(leftEncoded)+len(rightEncoded))
	encoded = append(encoded, parent[:]...)
	encoded = append(encoded, leftEncoded...)
	encoded = append(encoded, rightEncoded...)
	return cv, encoded
}

// EncodedSize returns the length in bytes of the combined encoding of a
// contentLen-byte input: the 8-byte header, one 64-byte parent node per
// internal tree node, and the content bytes themselves.
func EncodedSize(contentLen uint64) uint64 {
	return baohash.HeaderSize + encodedSubtreeSize(contentLen, false)
}

// OutboardSize returns the length in bytes of the outboard encoding of a
// contentLen-byte input: the 8-byte header plus one 64-byte parent node
// per internal tree node, with no content bytes.
func OutboardSize(contentLen uint64) uint64 {
	return baohash.HeaderSize + encodedSubtreeSize(contentLen, true)
}

func encodedSubtreeSize(contentLen uint64, outboard bool) uint64 {
	return EncodedSubtreeSize(contentLen, outboard)
}

// EncodedSubtreeSize returns the number of encoded bytes (not counting
// any header) that a subtree spanning contentLen content bytes occupies:
// one 64-byte parent node per internal node of its own subtree, plus its
// content bytes unless outboard is true. Decoders that need to skip over
// an unwanted subtree while seeking use this to compute how far to jump.
func EncodedSubtreeSize(contentLen uint64, outboard bool) uint64 {
	parentsSize := baohash.ParentSize * (baohash.CountChunks(contentLen) - 1)
	if outboard {
		return parentsSize
	}
	return parentsSize + contentLen
}

// EncodedSizeChecked is EncodedSize (or OutboardSize, when outboard is
// true) with overflow detection: content lengths near the top of the
// uint64 range have encodings larger than 2^64-1 bytes, which no real
// stream can hold, and a decoder must reject such a header with
// baoerr.ErrOverflow rather than wrap its offset arithmetic.
func EncodedSizeChecked(contentLen uint64, outboard bool) (uint64, error) {
	parentsSize := uint64(baohash.ParentSize) * (baohash.CountChunks(contentLen) - 1)
	size, carry := bits.Add64(parentsSize, baohash.HeaderSize, 0)
	if !outboard {
		var c uint64
		size, c = bits.Add64(size, contentLen, 0)
		carry |= c
	}
	if carry != 0 {
		return 0, baoerr.ErrOverflow
	}
	return size, nil
}

// Writer accumulates written bytes and produces a combined or outboard
// encoding on Finalize. Because bao's pre-order layout places every
// parent node before its children, and the root node's span isn't known
// until the last byte has been seen, an encoder fundamentally cannot
// stream its output incrementally without either buffering the input (as
// here) or writing a post-order encoding to a seekable sink and flipping
// it afterward. Writer takes the simpler of the two: it is meant for
// in-memory or already-materialized inputs, not multi-gigabyte streaming
// encodes.
type Writer struct {
	buf      []byte
	outboard bool
}

// NewWriter returns a Writer that will produce a combined encoding.
func NewWriter() *Writer {
	return &Writer{}
}

// NewOutboardWriter returns a Writer that will produce an outboard
// encoding.
func NewOutboardWriter() *Writer {
	return &Writer{outboard: true}
}

func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Finalize returns the accumulated encoding and its root hash.
func (w *Writer) Finalize() ([]byte, baohash.Hash) {
	root, body := encodeRecurse(w.buf, true, uint64(len(w.buf)), w.outboard)
	header := baohash.EncodeLen(uint64(len(w.buf)))
	out := make([]byte, 0, baohash.HeaderSize+len(body))
	out = append(out, header[:]...)
	out = append(out, body...)
	return out, root
}

// Reset discards all buffered input.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

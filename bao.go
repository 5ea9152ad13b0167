// Package bao is the front door to the bao tree hash and its verified
// streaming formats. It re-exports the small number of names most
// callers need — the hash itself, the combined and outboard encoders,
// the verified readers, and slice extraction — so that typical use is a
// single import. The underlying packages (baohash, baoenc, baodec,
// baoslice, baojoin) remain importable directly for anything beyond
// this surface.
package bao

import (
	"io"

	"github.com/pombredanne/bao/baodec"
	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baohash"
	"github.com/pombredanne/bao/baoslice"
)

// Hash is a 32-byte bao root hash or chaining value.
type Hash = baohash.Hash

const (
	// ChunkSize is the number of content bytes per leaf of the tree.
	ChunkSize = baohash.ChunkSize

	// HashSize is the length in bytes of a bao hash.
	HashSize = baohash.Size
)

// Sum computes the bao tree hash of data in one call.
func Sum(data []byte) Hash {
	return baohash.Sum(data)
}

// SumParallel computes the same root as Sum using potentially parallel
// subtree hashing.
func SumParallel(data []byte) Hash {
	return baohash.SumParallel(data)
}

// NewHasher returns a streaming hasher: an io.Writer whose Sum32 method
// yields the bao root of everything written to it.
func NewHasher() *baohash.Writer {
	return baohash.NewWriter()
}

// Encode returns the combined encoding of data and its root hash.
func Encode(data []byte) ([]byte, Hash) {
	return baoenc.Encode(data)
}

// EncodeOutboard returns the outboard encoding of data and its root
// hash; the content bytes themselves are not part of the encoding.
func EncodeOutboard(data []byte) ([]byte, Hash) {
	return baoenc.EncodeOutboard(data)
}

// NewReader returns a verifying reader over a combined encoding. It
// implements io.Seeker whenever src does.
func NewReader(src io.Reader, root Hash) *baodec.Reader {
	return baodec.NewReader(src, root)
}

// NewOutboardReader returns a verifying reader over an outboard
// encoding, with content bytes supplied by a second stream.
func NewOutboardReader(tree, content io.Reader, root Hash) *baodec.OutboardReader {
	return baodec.NewOutboardReader(tree, content, root)
}

// ExtractSlice writes the minimal slice of a combined encoding covering
// [offset, offset+length) to dst.
func ExtractSlice(src io.ReadSeeker, offset, length uint64, dst io.Writer) error {
	return baoslice.Extract(src, offset, length, dst)
}

// DecodeSlice verifies a slice against root and writes the content
// bytes of [offset, offset+length) to dst.
func DecodeSlice(src io.Reader, root Hash, offset, length uint64, dst io.Writer) error {
	return baoslice.Decode(src, root, offset, length, dst)
}

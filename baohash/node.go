package baohash

import (
	"github.com/minio/blake2b-simd"
)

const (
	chunkNodeDepth  = 0
	parentNodeDepth = 1
)

// treeParams builds the BLAKE2b tree configuration shared by every node
// hash in bao: output length 32, fanout 2, max depth 64, max leaf length
// 4096, inner hash length 32, node offset 0. nodeDepth and isRoot are the
// only parameters that vary between calls.
func treeParams(nodeDepth uint8, isRoot bool) *blake2b.Config {
	return &blake2b.Config{
		Size: Size,
		Tree: &blake2b.Tree{
			Fanout:        2,
			MaxDepth:      64,
			LeafSize:      ChunkSize,
			NodeOffset:    0,
			NodeDepth:     nodeDepth,
			InnerHashSize: Size,
			IsLastNode:    isRoot,
		},
	}
}

// hashChunk hashes up to ChunkSize bytes of chunk data. If isRoot is true,
// the 8-byte little-endian totalLen is appended before finalization and
// the BLAKE2b last-node flag is set; this is the only way a chunk can
// become a root. A zero-length chunk is only valid when isRoot is true and
// totalLen is 0 (the whole-input-empty case).
func hashChunk(chunk []byte, isRoot bool, totalLen uint64) Hash {
	h, err := blake2b.New(treeParams(chunkNodeDepth, isRoot))
	if err != nil {
		panic("baohash: blake2b config rejected: " + err.Error())
	}
	h.Write(chunk)
	if isRoot {
		suffix := encodeLen(totalLen)
		h.Write(suffix[:])
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// hashParent hashes a 64-byte parent node (left hash || right hash). The
// root rule is identical to hashChunk's.
func hashParent(parent [ParentSize]byte, isRoot bool, totalLen uint64) Hash {
	h, err := blake2b.New(treeParams(parentNodeDepth, isRoot))
	if err != nil {
		panic("baohash: blake2b config rejected: " + err.Error())
	}
	h.Write(parent[:])
	if isRoot {
		suffix := encodeLen(totalLen)
		h.Write(suffix[:])
	}
	var out Hash
	h.Sum(out[:0])
	return out
}

// joinParent concatenates two child hashes into a 64-byte parent node.
func joinParent(left, right Hash) [ParentSize]byte {
	var p [ParentSize]byte
	copy(p[:Size], left[:])
	copy(p[Size:], right[:])
	return p
}

// HashChunk is the exported form of hashChunk, for packages that build
// or walk bao's encoded formats (baoenc, baodec, baoslice) and need to
// hash leaf chunks using the exact same tree parameters as Sum.
func HashChunk(chunk []byte, isRoot bool, totalLen uint64) Hash {
	return hashChunk(chunk, isRoot, totalLen)
}

// HashParent is the exported form of hashParent.
func HashParent(parent [ParentSize]byte, isRoot bool, totalLen uint64) Hash {
	return hashParent(parent, isRoot, totalLen)
}

// JoinParent is the exported form of joinParent.
func JoinParent(left, right Hash) [ParentSize]byte {
	return joinParent(left, right)
}

// SplitParent decomposes a 64-byte parent node back into its left and
// right child hashes, the inverse of JoinParent.
func SplitParent(parent [ParentSize]byte) (left, right Hash) {
	copy(left[:], parent[:Size])
	copy(right[:], parent[Size:])
	return left, right
}

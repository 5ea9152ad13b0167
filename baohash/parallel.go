package baohash

import (
	"hash"

	"github.com/pombredanne/bao/baojoin"
)

// SumParallel computes the same 32-byte root as Sum, but by recursively
// splitting data at each subtree boundary and potentially hashing the two
// halves on separate goroutines via baojoin.Join. Its output is always
// bit-identical to Sum's.
func SumParallel(data []byte) Hash {
	return hashParallelSubtree(data, true, uint64(len(data)))
}

// hashParallelSubtree hashes data as a single subtree: a chunk if it fits
// in one, otherwise a parent joining the recursively hashed left and right
// spans. isRoot and totalLen carry the root finalization decision down to
// whichever leaf or parent turns out to be the top of the whole tree.
func hashParallelSubtree(data []byte, isRoot bool, totalLen uint64) Hash {
	if len(data) <= ChunkSize {
		return hashChunk(data, isRoot, totalLen)
	}

	// A subtree of exactly four chunks always has four full, non-root
	// leaves as its grandchildren: hash them in one lockstep batch instead
	// of recursing two levels deep.
	if len(data) == 4*ChunkSize {
		var chunks [4][]byte
		for i := range chunks {
			chunks[i] = data[i*ChunkSize : (i+1)*ChunkSize]
		}
		cvs := FourWayChunkHasher{}.HashFour(chunks)
		leftHash := hashParent(joinParent(cvs[0], cvs[1]), false, totalLen)
		rightHash := hashParent(joinParent(cvs[2], cvs[3]), false, totalLen)
		return hashParent(joinParent(leftHash, rightHash), isRoot, totalLen)
	}

	split := LeftLen(uint64(len(data)))
	left, right := data[:split], data[split:]

	var leftHash, rightHash Hash
	if shouldSplitInParallel(len(data)) {
		baojoin.Join(
			func() { leftHash = hashParallelSubtree(left, false, totalLen) },
			func() { rightHash = hashParallelSubtree(right, false, totalLen) },
		)
	} else {
		leftHash = hashParallelSubtree(left, false, totalLen)
		rightHash = hashParallelSubtree(right, false, totalLen)
	}

	parent := joinParent(leftHash, rightHash)
	return hashParent(parent, isRoot, totalLen)
}

// shouldSplitInParallel reports whether a subtree of n bytes is large
// enough that spawning a goroutine for its right half is worth the cost.
// Correctness never depends on this choice; only throughput does.
func shouldSplitInParallel(n int) bool {
	return uint64(n)/ChunkSize >= uint64(baojoin.MinParallelChunks)
}

var _ hash.Hash = (*ParallelWriter)(nil)

// ParallelWriter offers the same hash.Hash-shaped API as Writer, but
// computes its root with SumParallel instead of the sequential
// subtree-stack algorithm. Because SumParallel needs to know the total
// input length before it can choose a split point, ParallelWriter buffers
// everything written to it; it trades the single-pass, bounded-memory
// property of Writer for parallel throughput on large, fully-buffered
// inputs. Writer remains the right choice for unbounded or memory-
// constrained streaming.
type ParallelWriter struct {
	buf []byte
}

// NewParallelWriter returns a ParallelWriter ready to accumulate input.
func NewParallelWriter() *ParallelWriter {
	return &ParallelWriter{}
}

func (w *ParallelWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// Sum appends the 32-byte root to b and returns the resulting slice,
// without clearing the buffered input.
func (w *ParallelWriter) Sum(b []byte) []byte {
	root := SumParallel(w.buf)
	return append(b, root[:]...)
}

// Sum32 is a typed convenience wrapper around Sum.
func (w *ParallelWriter) Sum32() Hash {
	var h Hash
	copy(h[:], w.Sum(nil))
	return h
}

// Finalize is the bao-native equivalent of Sum32, matching Writer's
// naming.
func (w *ParallelWriter) Finalize() Hash {
	return w.Sum32()
}

// Reset discards all buffered input.
func (w *ParallelWriter) Reset() {
	w.buf = w.buf[:0]
}

// Size returns the number of bytes Sum will append: 32.
func (w *ParallelWriter) Size() int { return Size }

// BlockSize returns the hasher's natural block size: one chunk.
func (w *ParallelWriter) BlockSize() int { return ChunkSize }

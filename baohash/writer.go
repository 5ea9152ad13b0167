package baohash

import (
	"errors"
	"hash"
)

// ErrFinalized is returned by Update when called after Finalize on the
// same Writer. A single-pass hasher cannot un-finalize: once it has
// decided whether the last node is the root, feeding it more bytes would
// require re-hashing nodes already folded into the stack.
var ErrFinalized = errors.New("baohash: Update called after Finalize")

var _ hash.Hash = (*Writer)(nil)

// Writer is the single-pass subtree-stack hasher described in bao's
// design: it consumes bytes in one forward pass, keeping a bounded stack
// of chaining values for completed subtrees, and folds the final partial
// chunk and the stack together on Finalize to produce the root. The chunk
// buffer and the subtree stack are both fixed-size arrays, so its own
// state does not grow with the input.
//
// Writer implements hash.Hash so it composes with io.Copy and the rest of
// the standard hash ecosystem. Sum is read-only with respect to Writer:
// calling it takes a snapshot and finalizes a private copy, so it is safe
// to keep writing afterward, per the hash.Hash contract. Finalize, by
// contrast, is bao's native one-shot operation: once called, further
// Update/Write calls fail with ErrFinalized.
type Writer struct {
	stack     [MaxDepth]stackEntry
	stackLen  int
	buf       [ChunkSize]byte
	bufLen    int
	total     uint64
	finalized bool
}

type stackEntry struct {
	hash   Hash
	chunks uint64 // always a power of two for entries produced during Update
}

// NewWriter returns a Writer ready to hash a new input.
func NewWriter() *Writer {
	return &Writer{}
}

// Update appends bytes to the hash. It never returns an error except
// ErrFinalized.
func (w *Writer) Update(p []byte) error {
	if w.finalized {
		return ErrFinalized
	}
	w.total += uint64(len(p))
	for len(p) > 0 {
		// A full buffered chunk is only folded into the stack once at
		// least one more input byte is known to follow it. A chunk with
		// nothing after it might be the root (or the right child of the
		// root), and the root-vs-not decision can only be made at
		// Finalize, once we know no more bytes are coming.
		if w.bufLen == ChunkSize {
			cv := hashChunk(w.buf[:ChunkSize], false, 0)
			w.bufLen = 0
			w.pushMerge(cv, 1)
		}
		take := ChunkSize - w.bufLen
		if take > len(p) {
			take = len(p)
		}
		copy(w.buf[w.bufLen:], p[:take])
		w.bufLen += take
		p = p[take:]
	}
	return nil
}

// pushMerge pushes cv (spanning the given number of chunks) onto the
// stack, first merging it with any equal-span entries already on top —
// the rule that produces exactly the binary tree layout of the overall
// hash.
func (w *Writer) pushMerge(cv Hash, span uint64) {
	for w.stackLen > 0 && w.stack[w.stackLen-1].chunks == span {
		top := w.stack[w.stackLen-1]
		w.stackLen--
		parent := joinParent(top.hash, cv)
		cv = hashParent(parent, false, 0)
		span *= 2
	}
	w.stack[w.stackLen] = stackEntry{hash: cv, chunks: span}
	w.stackLen++
}

// Finalize consumes the Writer and returns the 32-byte root. After
// Finalize, Update returns ErrFinalized.
func (w *Writer) Finalize() Hash {
	root := w.finalize(w.stack, w.stackLen, w.buf, w.bufLen, w.total)
	w.finalized = true
	return root
}

func (w *Writer) finalize(stack [MaxDepth]stackEntry, stackLen int, buf [ChunkSize]byte, bufLen int, total uint64) Hash {
	if stackLen == 0 {
		// Everything fit in a single, possibly empty or partial, chunk:
		// that chunk is the whole tree and is hashed directly as root.
		return hashChunk(buf[:bufLen], true, total)
	}

	// The stack is non-empty, so at least one byte followed every chunk
	// folded into it: the buffer holds the final, non-empty (possibly
	// full) chunk, which cannot be the root.
	cv := hashChunk(buf[:bufLen], false, 0)
	for stackLen > 0 {
		stackLen--
		top := stack[stackLen]
		isRoot := stackLen == 0
		parent := joinParent(top.hash, cv)
		cv = hashParent(parent, isRoot, total)
	}
	return cv
}

// Write implements io.Writer / hash.Hash by delegating to Update. It
// panics if called after Finalize, since hash.Hash.Write is documented to
// never return an error.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.Update(p); err != nil {
		panic(err)
	}
	return len(p), nil
}

// Sum appends the 32-byte root to b and returns the resulting slice,
// without mutating w: a private snapshot of the stack and buffer is
// finalized instead, so additional Write calls after Sum continue the
// original, unfinalized hash.
func (w *Writer) Sum(b []byte) []byte {
	root := w.finalize(w.stack, w.stackLen, w.buf, w.bufLen, w.total)
	return append(b, root[:]...)
}

// Sum32 is a typed convenience wrapper around Sum for callers that want a
// Hash value instead of a byte slice.
func (w *Writer) Sum32() Hash {
	var h Hash
	copy(h[:], w.Sum(nil))
	return h
}

// Reset discards all bytes written so far, returning w to its initial
// state.
func (w *Writer) Reset() {
	*w = Writer{}
}

// Size returns the number of bytes Sum will append: 32.
func (w *Writer) Size() int { return Size }

// BlockSize returns the hasher's natural block size: one chunk.
func (w *Writer) BlockSize() int { return ChunkSize }

// Sum computes the bao tree hash of data in one call.
func Sum(data []byte) Hash {
	w := NewWriter()
	_ = w.Update(data)
	return w.Finalize()
}

// Package baodec implements bao's verified streaming decoder: a state
// machine that walks an encoding's parent nodes and chunks in pre-order,
// verifying every hash against its parent's chaining value before ever
// handing content bytes to the caller. The root hash is always the one
// supplied by the caller; nothing the encoding itself claims is trusted
// without that chain of verification reaching back to it.
//
// State is the machine itself, independent of any particular io.Reader;
// Reader and OutboardReader adapt it to the standard streaming and
// seeking interfaces.
package baodec

import (
	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baoerr"
	"github.com/pombredanne/bao/baohash"
)

// Error kinds surfaced by this package, re-exported from baoerr so that
// callers holding only a Reader don't need a second import. A State that
// returns any of these is poisoned: every subsequent call fails with the
// same error, since the decoder can no longer trust its own position in
// the tree.
var (
	ErrHashMismatch = baoerr.ErrHashMismatch
	ErrTruncated    = baoerr.ErrTruncated
	ErrOverflow     = baoerr.ErrOverflow
)

// subtree is one entry of the decoder's stack: a chaining value together
// with the content byte range it is responsible for.
type subtree struct {
	hash  baohash.Hash
	start uint64
	end   uint64
}

func (s subtree) length() uint64 { return s.end - s.start }

// isRoot reports whether s is the whole tree: only the root subtree may
// be finalized with the last-node flag set.
func (s subtree) isRoot(contentLength uint64) bool {
	return s.start == 0 && s.end == contentLength
}

// instrKind enumerates what a State expects to be fed next.
type instrKind int

const (
	instrHeader instrKind = iota
	instrParent
	instrChunk
	instrDone
)

// instruction describes the next thing a caller of State must supply:
// the 8-byte header, a 64-byte parent node, or up to size bytes of chunk
// content (of which the first skip bytes, already verified as part of
// the chunk hash, should be discarded rather than delivered to the
// caller — used when seeking lands inside a chunk).
type instruction struct {
	kind instrKind
	size uint64
	skip uint64
}

// State is bao's decoder state machine. It owns no I/O; callers read
// whatever bytes State.Next calls for and feed them back via FeedHeader,
// FeedParent, or FeedChunk.
//
// Alongside the subtree stack, State tracks the absolute offset in the
// encoded stream (the tree stream, for outboard decoding) where its next
// expected node lives, so seeking callers can position their source with
// a single absolute seek instead of replaying the stream.
type State struct {
	stack         []subtree
	rootHash      baohash.Hash
	contentLength uint64
	lengthKnown   bool
	rootVerified  bool
	contentPos    uint64
	encodedPos    uint64
	outboard      bool
	err           error
}

// NewState returns a State that will verify a stream against root.
func NewState(root baohash.Hash) *State {
	return &State{rootHash: root, stack: make([]subtree, 0, baohash.MaxDepth)}
}

// NewOutboardState is like NewState, but configures the offset
// arithmetic for an outboard encoding's tree stream, which has no
// content bytes interleaved with its parent nodes.
func NewOutboardState(root baohash.Hash) *State {
	s := NewState(root)
	s.outboard = true
	return s
}

// Position returns the content offset the next chunk byte emitted by the
// decoder will have.
func (s *State) Position() uint64 { return s.contentPos }

// ContentLength reports the verified content length, if the header has
// already been fed.
func (s *State) ContentLength() (uint64, bool) {
	return s.contentLength, s.lengthKnown
}

// poison marks s failed with err; every subsequent call returns err.
func (s *State) poison(err error) error {
	s.err = err
	return err
}

func (s *State) resetToRoot() {
	s.stack = s.stack[:0]
	s.stack = append(s.stack, subtree{hash: s.rootHash, start: 0, end: s.contentLength})
	s.contentPos = 0
	s.encodedPos = baohash.HeaderSize
}

// Next reports what the caller should read and feed back next.
func (s *State) Next() (instruction, error) {
	if s.err != nil {
		return instruction{}, s.err
	}
	if !s.lengthKnown {
		return instruction{kind: instrHeader}, nil
	}
	if len(s.stack) == 0 {
		return instruction{kind: instrDone}, nil
	}
	top := s.stack[len(s.stack)-1]
	if top.length() <= baohash.ChunkSize {
		return instruction{kind: instrChunk, size: top.length(), skip: s.contentPos - top.start}, nil
	}
	return instruction{kind: instrParent}, nil
}

// FeedHeader supplies the 8-byte length header. It must be the first
// thing fed to a fresh State. Lengths whose encoded size would not fit
// in a uint64 are rejected with ErrOverflow before any node is read.
func (s *State) FeedHeader(header [baohash.HeaderSize]byte) error {
	if s.err != nil {
		return s.err
	}
	s.contentLength = baohash.DecodeLen(header)
	if _, err := baoenc.EncodedSizeChecked(s.contentLength, s.outboard); err != nil {
		return s.poison(err)
	}
	s.lengthKnown = true
	s.resetToRoot()
	return nil
}

// FeedParent supplies a 64-byte parent node for the subtree currently on
// top of the stack. It is verified against that subtree's chaining
// value, then split into its left and right children, which replace it
// on the stack.
func (s *State) FeedParent(parent [baohash.ParentSize]byte) error {
	if s.err != nil {
		return s.err
	}
	top := s.stack[len(s.stack)-1]
	isRoot := top.isRoot(s.contentLength)
	got := baohash.HashParent(parent, isRoot, s.contentLength)
	if !got.Equal(top.hash) {
		return s.poison(ErrHashMismatch)
	}
	if isRoot {
		s.rootVerified = true
	}
	left, right := baohash.SplitParent(parent)
	mid := top.start + baohash.LeftLen(top.length())
	s.stack = s.stack[:len(s.stack)-1]
	s.stack = append(s.stack, subtree{hash: right, start: mid, end: top.end})
	s.stack = append(s.stack, subtree{hash: left, start: top.start, end: mid})
	s.encodedPos += baohash.ParentSize
	return nil
}

// FeedChunk supplies the full content bytes of the chunk currently on
// top of the stack (size given by the preceding Next call's instruction,
// regardless of how many of them the caller ultimately wants). It is
// verified against that chunk's chaining value, then popped, and the
// decoder's content position advances by the chunk's length.
func (s *State) FeedChunk(chunk []byte) error {
	if s.err != nil {
		return s.err
	}
	top := s.stack[len(s.stack)-1]
	isRoot := top.isRoot(s.contentLength)
	got := baohash.HashChunk(chunk, isRoot, s.contentLength)
	if !got.Equal(top.hash) {
		return s.poison(ErrHashMismatch)
	}
	if isRoot {
		s.rootVerified = true
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.contentPos = top.end
	if !s.outboard {
		s.encodedPos += uint64(len(chunk))
	}
	return nil
}

// seekTo rewinds or advances the stack toward target, a content offset
// that is clamped to the content length. It returns the absolute offset
// in the encoded (tree) stream of the next node the caller must read,
// and whether the seek is complete.
//
// When done is false the caller must read and feed the node at
// encodedOffset — a parent on the descent path, or, for a single-chunk
// tree, the root chunk itself — and call seekTo again. The root node is
// always verified this way before any subtree is skipped or any content
// position honored, even when target is at or past the end of the
// content and no byte will ever be emitted.
//
// seekTo assumes the header has already been fed.
func (s *State) seekTo(target uint64) (encodedOffset uint64, done bool, err error) {
	if s.err != nil {
		return 0, false, s.err
	}
	if target > s.contentLength {
		target = s.contentLength
	}
	for {
		if len(s.stack) == 0 {
			if target < s.contentLength {
				s.resetToRoot()
				continue
			}
			s.contentPos = s.contentLength
			return s.encodedPos, true, nil
		}
		top := s.stack[len(s.stack)-1]
		if target < top.start {
			// Everything still pending lies after target: only a restart
			// from the root can get back to it.
			s.resetToRoot()
			continue
		}
		if !s.rootVerified {
			// The stack holds exactly the root; it must be read and
			// verified before anything may be skipped over.
			return s.encodedPos, false, nil
		}
		if target >= top.end {
			// The whole subtree precedes target: skip its encoded bytes
			// without reading them.
			s.stack = s.stack[:len(s.stack)-1]
			s.encodedPos += baoenc.EncodedSubtreeSize(top.length(), s.outboard)
			s.contentPos = top.end
			continue
		}
		if top.length() <= baohash.ChunkSize {
			// target lands inside this chunk; the next Read fetches it
			// whole and discards the first target-top.start bytes.
			s.contentPos = target
			return s.encodedPos, true, nil
		}
		return s.encodedPos, false, nil
	}
}

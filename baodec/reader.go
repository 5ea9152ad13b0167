package baodec

import (
	"errors"
	"io"

	"github.com/pombredanne/bao/baoerr"
	"github.com/pombredanne/bao/baohash"
)

// ErrNotSeekable is returned by Seek when the underlying source (or, for
// an outboard decode, either of the two sources) does not implement
// io.Seeker.
var ErrNotSeekable = errors.New("baodec: underlying reader does not support seeking")

// readNode fills buf from r, mapping an end-of-stream in the middle of a
// node to baoerr.ErrTruncated. A node that can't be read in full means
// the encoding stopped short of what its own header promised.
func readNode(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return baoerr.ErrTruncated
		}
		return err
	}
	return nil
}

// Reader verifies and decodes a combined bao encoding as it is read. No
// content byte reaches a caller of Read until the chain of parent and
// chunk hashes leading to it has been checked against root.
type Reader struct {
	source   io.Reader
	state    *State
	leftover []byte
}

// NewReader returns a Reader that decodes src against root.
func NewReader(src io.Reader, root baohash.Hash) *Reader {
	return &Reader{source: src, state: NewState(root)}
}

func (r *Reader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if len(r.leftover) > 0 {
			n := copy(p[total:], r.leftover)
			r.leftover = r.leftover[n:]
			total += n
			continue
		}
		ins, err := r.state.Next()
		if err != nil {
			return total, err
		}
		switch ins.kind {
		case instrDone:
			if total > 0 {
				return total, nil
			}
			return 0, io.EOF
		case instrHeader:
			var header [baohash.HeaderSize]byte
			if err := readNode(r.source, header[:]); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedHeader(header); err != nil {
				return total, err
			}
		case instrParent:
			var parent [baohash.ParentSize]byte
			if err := readNode(r.source, parent[:]); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedParent(parent); err != nil {
				return total, err
			}
		case instrChunk:
			buf := make([]byte, ins.size)
			if err := readNode(r.source, buf); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedChunk(buf); err != nil {
				return total, err
			}
			r.leftover = buf[ins.skip:]
		}
	}
	return total, nil
}

// Seek implements io.Seeker when the source Reader passed to NewReader
// also does. Seeking forces the header (and therefore the content
// length) to be read if that hasn't happened yet, and always leaves the
// root node verified before returning, even for a seek to or past the
// end of the content. Positions past the end are clamped to the content
// length; the returned offset is the clamped position.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := r.source.(io.Seeker)
	if !ok {
		return 0, ErrNotSeekable
	}
	if r.state.err != nil {
		return 0, r.state.err
	}
	if !r.state.lengthKnown {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		var header [baohash.HeaderSize]byte
		if err := readNode(r.source, header[:]); err != nil {
			return 0, r.state.poison(err)
		}
		if err := r.state.FeedHeader(header); err != nil {
			return 0, err
		}
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(r.state.Position()) - int64(len(r.leftover)) + offset
	case io.SeekEnd:
		target = int64(r.state.contentLength) + offset
	default:
		return 0, errors.New("baodec: invalid whence")
	}
	if target < 0 {
		return 0, baoerr.ErrInvalidRange
	}
	if uint64(target) > r.state.contentLength {
		target = int64(r.state.contentLength)
	}

	if err := r.descendTo(seeker, uint64(target)); err != nil {
		return 0, err
	}
	return target, nil
}

// descendTo repositions state and the underlying stream so that the
// next Read picks up from contentPos == target (or the decoder is done,
// if target is at the content length). Parent nodes along the descent
// path are read and verified here; the chunk target lands in is left for
// Read, except when the whole tree is a single chunk, which doubles as
// the root and so must be verified as part of the seek itself.
func (r *Reader) descendTo(seeker io.Seeker, target uint64) error {
	r.leftover = nil
	for {
		off, done, err := r.state.seekTo(target)
		if err != nil {
			return err
		}
		if _, err := seeker.Seek(int64(off), io.SeekStart); err != nil {
			return r.state.poison(err)
		}
		if done {
			return nil
		}
		ins, err := r.state.Next()
		if err != nil {
			return err
		}
		if ins.kind == instrChunk {
			buf := make([]byte, ins.size)
			if err := readNode(r.source, buf); err != nil {
				return r.state.poison(err)
			}
			if err := r.state.FeedChunk(buf); err != nil {
				return err
			}
			r.leftover = buf[target:]
			return nil
		}
		var parent [baohash.ParentSize]byte
		if err := readNode(r.source, parent[:]); err != nil {
			return r.state.poison(err)
		}
		if err := r.state.FeedParent(parent); err != nil {
			return err
		}
	}
}

// OutboardReader verifies and decodes an outboard bao encoding: parent
// nodes come from tree, the matching content bytes come from content.
type OutboardReader struct {
	tree     io.Reader
	content  io.Reader
	state    *State
	leftover []byte
}

// NewOutboardReader returns an OutboardReader that decodes content
// against root, using tree for the side channel of parent nodes.
func NewOutboardReader(tree, content io.Reader, root baohash.Hash) *OutboardReader {
	return &OutboardReader{tree: tree, content: content, state: NewOutboardState(root)}
}

func (r *OutboardReader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if len(r.leftover) > 0 {
			n := copy(p[total:], r.leftover)
			r.leftover = r.leftover[n:]
			total += n
			continue
		}
		ins, err := r.state.Next()
		if err != nil {
			return total, err
		}
		switch ins.kind {
		case instrDone:
			if total > 0 {
				return total, nil
			}
			return 0, io.EOF
		case instrHeader:
			var header [baohash.HeaderSize]byte
			if err := readNode(r.tree, header[:]); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedHeader(header); err != nil {
				return total, err
			}
		case instrParent:
			var parent [baohash.ParentSize]byte
			if err := readNode(r.tree, parent[:]); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedParent(parent); err != nil {
				return total, err
			}
		case instrChunk:
			buf := make([]byte, ins.size)
			if err := readNode(r.content, buf); err != nil {
				return total, r.state.poison(err)
			}
			if err := r.state.FeedChunk(buf); err != nil {
				return total, err
			}
			r.leftover = buf[ins.skip:]
		}
	}
	return total, nil
}

// Seek implements io.Seeker when both the tree and content sources
// passed to NewOutboardReader also do. Semantics match Reader.Seek: the
// root is always verified, positions past the end are clamped, and the
// clamped position is returned.
func (r *OutboardReader) Seek(offset int64, whence int) (int64, error) {
	treeSeeker, treeOK := r.tree.(io.Seeker)
	contentSeeker, contentOK := r.content.(io.Seeker)
	if !treeOK || !contentOK {
		return 0, ErrNotSeekable
	}
	if r.state.err != nil {
		return 0, r.state.err
	}
	if !r.state.lengthKnown {
		if _, err := treeSeeker.Seek(0, io.SeekStart); err != nil {
			return 0, err
		}
		var header [baohash.HeaderSize]byte
		if err := readNode(r.tree, header[:]); err != nil {
			return 0, r.state.poison(err)
		}
		if err := r.state.FeedHeader(header); err != nil {
			return 0, err
		}
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(r.state.Position()) - int64(len(r.leftover)) + offset
	case io.SeekEnd:
		target = int64(r.state.contentLength) + offset
	default:
		return 0, errors.New("baodec: invalid whence")
	}
	if target < 0 {
		return 0, baoerr.ErrInvalidRange
	}
	if uint64(target) > r.state.contentLength {
		target = int64(r.state.contentLength)
	}

	r.leftover = nil
	for {
		off, done, err := r.state.seekTo(uint64(target))
		if err != nil {
			return 0, err
		}
		if _, err := treeSeeker.Seek(int64(off), io.SeekStart); err != nil {
			return 0, r.state.poison(err)
		}
		if done {
			break
		}
		ins, err := r.state.Next()
		if err != nil {
			return 0, err
		}
		if ins.kind == instrChunk {
			// Single-chunk tree: the root chunk lives at the start of the
			// content stream and is verified as part of the seek.
			if _, err := contentSeeker.Seek(0, io.SeekStart); err != nil {
				return 0, r.state.poison(err)
			}
			buf := make([]byte, ins.size)
			if err := readNode(r.content, buf); err != nil {
				return 0, r.state.poison(err)
			}
			if err := r.state.FeedChunk(buf); err != nil {
				return 0, err
			}
			r.leftover = buf[target:]
			return target, nil
		}
		var parent [baohash.ParentSize]byte
		if err := readNode(r.tree, parent[:]); err != nil {
			return 0, r.state.poison(err)
		}
		if err := r.state.FeedParent(parent); err != nil {
			return 0, err
		}
	}

	// Line the content stream up with the chunk the next Read will ask
	// for, if any remains.
	ins, err := r.state.Next()
	if err != nil {
		return 0, err
	}
	if ins.kind == instrChunk {
		chunkStart := r.state.Position() - ins.skip
		if _, err := contentSeeker.Seek(int64(chunkStart), io.SeekStart); err != nil {
			return 0, r.state.poison(err)
		}
	}
	return target, nil
}

// HashFromEncoded reads just enough of a combined encoding — the header,
// and either the root chunk or the root parent node — to recompute its
// root hash, without verifying or returning any content. A caller who
// wants a verified result should still decode the full stream with
// Reader, or compare the returned hash against a trusted root with
// baohash.Hash.Equal.
func HashFromEncoded(r io.Reader) (baohash.Hash, error) {
	var header [baohash.HeaderSize]byte
	if err := readNode(r, header[:]); err != nil {
		return baohash.Hash{}, err
	}
	contentLen := baohash.DecodeLen(header)
	if contentLen <= baohash.ChunkSize {
		buf := make([]byte, contentLen)
		if err := readNode(r, buf); err != nil {
			return baohash.Hash{}, err
		}
		return baohash.HashChunk(buf, true, contentLen), nil
	}
	var parent [baohash.ParentSize]byte
	if err := readNode(r, parent[:]); err != nil {
		return baohash.Hash{}, err
	}
	return baohash.HashParent(parent, true, contentLen), nil
}

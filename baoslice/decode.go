package baoslice

import (
	"bytes"
	"io"

	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baoerr"
	"github.com/pombredanne/bao/baohash"
)

// Decode reads a slice produced by Extract from src, verifies it against
// root, and writes the content bytes within [offset, offset+length) to
// dst. offset and length are clamped exactly as Extract clamped them; a
// slice decoded with a different (offset, length) than it was cut for
// either fails verification or silently yields fewer bytes, depending on
// where the mismatch falls, so callers must pass the same range used to
// produce the slice.
func Decode(src io.Reader, root baohash.Hash, offset, length uint64, dst io.Writer) error {
	var header [baohash.HeaderSize]byte
	if err := readNode(src, header[:]); err != nil {
		return err
	}
	contentLen := baohash.DecodeLen(header)
	if _, err := baoenc.EncodedSizeChecked(contentLen, false); err != nil {
		return err
	}
	sliceStart, sliceEnd := clampRange(offset, length, contentLen)
	return decodeSliceRecurse(src, dst, root, 0, contentLen, contentLen, true, sliceStart, sliceEnd)
}

// readNode fills buf from r, mapping an end-of-stream in the middle of a
// node to baoerr.ErrTruncated, the same way baodec does.
func readNode(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return baoerr.ErrTruncated
		}
		return err
	}
	return nil
}

// decodeSliceRecurse mirrors sliceRecurse's traversal decisions exactly,
// so that it reads precisely the nodes Extract wrote and no others, but
// additionally verifies each node against subtreeHash before trusting
// it. contentLen is threaded through separately from subtreeLen because
// root finalization always hashes against the whole content's length,
// not the (sub)tree currently being visited.
func decodeSliceRecurse(src io.Reader, dst io.Writer, subtreeHash baohash.Hash, subtreeStart, subtreeLen, contentLen uint64, isRoot bool, sliceStart, sliceEnd uint64) error {
	subtreeEnd := subtreeStart + subtreeLen
	if !isRoot && subtreeEnd <= sliceStart {
		return nil
	}
	if !isRoot && subtreeStart >= sliceEnd {
		return nil
	}

	if subtreeLen <= baohash.ChunkSize {
		buf := make([]byte, subtreeLen)
		if err := readNode(src, buf); err != nil {
			return err
		}
		got := baohash.HashChunk(buf, isRoot, contentLen)
		if !got.Equal(subtreeHash) {
			return baoerr.ErrHashMismatch
		}
		relStart, relEnd := clampToChunk(subtreeStart, subtreeLen, sliceStart, sliceEnd)
		_, err := dst.Write(buf[relStart:relEnd])
		return err
	}

	var parent [baohash.ParentSize]byte
	if err := readNode(src, parent[:]); err != nil {
		return err
	}
	got := baohash.HashParent(parent, isRoot, contentLen)
	if !got.Equal(subtreeHash) {
		return baoerr.ErrHashMismatch
	}
	left, right := baohash.SplitParent(parent)
	mid := subtreeStart + baohash.LeftLen(subtreeLen)

	if err := decodeSliceRecurse(src, dst, left, subtreeStart, mid-subtreeStart, contentLen, false, sliceStart, sliceEnd); err != nil {
		return err
	}
	return decodeSliceRecurse(src, dst, right, mid, subtreeEnd-mid, contentLen, false, sliceStart, sliceEnd)
}

// clampToChunk returns the byte range within a subtreeLen-byte chunk
// starting at subtreeStart that falls inside [sliceStart, sliceEnd).
func clampToChunk(subtreeStart, subtreeLen, sliceStart, sliceEnd uint64) (relStart, relEnd uint64) {
	start := int64(0)
	if sliceStart > subtreeStart {
		start = int64(sliceStart - subtreeStart)
	}
	end := int64(subtreeLen)
	if sliceEnd < subtreeStart+subtreeLen {
		if sliceEnd > subtreeStart {
			end = int64(sliceEnd - subtreeStart)
		} else {
			end = 0
		}
	}
	if start > int64(subtreeLen) {
		start = int64(subtreeLen)
	}
	if end > int64(subtreeLen) {
		end = int64(subtreeLen)
	}
	if start > end {
		start = end
	}
	return uint64(start), uint64(end)
}

// Decoder is an io.Reader over a slice stream: a strictly sequential,
// non-seeking verified decode of exactly the [offset, offset+length)
// range the slice was cut for. Unlike baodec.Reader, Decoder has nothing
// to skip — every byte a slice stream holds is part of the answer — so
// its whole job is read-verify-clamp-emit, once, in traversal order.
//
// Decoder runs its decode eagerly on construction rather than lazily
// per-Read: a slice's size is bounded by its requested range plus
// O(log n) path nodes, so buffering it is cheap, and doing so keeps the
// Read side a plain bytes.Reader instead of a second state machine.
type Decoder struct {
	buf *bytes.Reader
	err error
}

// NewDecoder verifies src as a slice against root restricted to
// [offset, offset+length) and returns a Decoder ready to stream out the
// resulting content bytes. Any verification failure is returned
// immediately, before NewDecoder returns, rather than deferred to Read.
func NewDecoder(src io.Reader, root baohash.Hash, offset, length uint64) (*Decoder, error) {
	var out bytes.Buffer
	if err := Decode(src, root, offset, length, &out); err != nil {
		return nil, err
	}
	return &Decoder{buf: bytes.NewReader(out.Bytes())}, nil
}

func (d *Decoder) Read(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	n, err := d.buf.Read(p)
	if err != nil && err != io.EOF {
		d.err = err
	}
	return n, err
}

// Package baoslice extracts and decodes minimal sub-encodings ("slices")
// covering a single byte range of a bao tree: the root node plus
// whichever parent nodes and chunks actually overlap [offset,
// offset+length), with every other subtree skipped over rather than
// copied. The root node is always included, regardless of offset or
// length, so a slice always authenticates back to the same root hash as
// the full encoding it was cut from.
package baoslice

import (
	"io"

	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baohash"
)

// Extract reads a combined bao encoding from src and writes the minimal
// slice covering [offset, offset+length) to dst. offset past the end of
// the content is permitted and yields a slice containing only the root;
// length extending past the end of the content is silently clamped.
func Extract(src io.ReadSeeker, offset, length uint64, dst io.Writer) error {
	var header [baohash.HeaderSize]byte
	if err := readNode(src, header[:]); err != nil {
		return err
	}
	contentLen := baohash.DecodeLen(header)
	if _, err := baoenc.EncodedSizeChecked(contentLen, false); err != nil {
		return err
	}
	if _, err := dst.Write(header[:]); err != nil {
		return err
	}

	sliceStart, sliceEnd := clampRange(offset, length, contentLen)
	return sliceRecurse(src, dst, 0, contentLen, true, sliceStart, sliceEnd, false)
}

// ExtractOutboard is Extract for an outboard encoding: tree carries the
// parent nodes, content carries the matching bytes. The written slice is
// always a self-contained combined-format stream, since a slice is meant
// to be handed to Decode on its own.
func ExtractOutboard(tree, content io.ReadSeeker, offset, length uint64, dst io.Writer) error {
	var header [baohash.HeaderSize]byte
	if err := readNode(tree, header[:]); err != nil {
		return err
	}
	contentLen := baohash.DecodeLen(header)
	if _, err := baoenc.EncodedSizeChecked(contentLen, true); err != nil {
		return err
	}
	if _, err := dst.Write(header[:]); err != nil {
		return err
	}

	sliceStart, sliceEnd := clampRange(offset, length, contentLen)
	return sliceRecurseOutboard(tree, content, dst, 0, contentLen, true, sliceStart, sliceEnd)
}

// clampRange resolves a requested byte range against the content length
// per the bao worked examples: an offset past the end still authenticates
// the root against zero content bytes, and length is silently clamped to
// whatever remains.
func clampRange(offset, length, contentLen uint64) (start, end uint64) {
	if offset > contentLen {
		offset = contentLen
	}
	end = offset + length
	if end < offset || end > contentLen {
		end = contentLen
	}
	return offset, end
}

// sliceRecurse walks the same pre-order traversal Extract's source was
// encoded in. A subtree entirely before sliceStart is skipped by seeking
// src forward over its encoded bytes without reading them; a subtree
// entirely at or after sliceEnd is skipped by doing nothing at all, since
// pre-order position tracks content order and nothing after it will ever
// be needed. Everything else is copied verbatim: chunks whole, parent
// nodes followed by both children.
func sliceRecurse(src io.ReadSeeker, dst io.Writer, subtreeStart, subtreeLen uint64, isRoot bool, sliceStart, sliceEnd uint64, outboard bool) error {
	subtreeEnd := subtreeStart + subtreeLen
	if !isRoot && subtreeEnd <= sliceStart {
		skip := baoenc.EncodedSubtreeSize(subtreeLen, outboard)
		_, err := src.Seek(int64(skip), io.SeekCurrent)
		return err
	}
	if !isRoot && subtreeStart >= sliceEnd {
		return nil
	}

	if subtreeLen <= baohash.ChunkSize {
		buf := make([]byte, subtreeLen)
		if err := readNode(src, buf); err != nil {
			return err
		}
		_, err := dst.Write(buf)
		return err
	}

	var parent [baohash.ParentSize]byte
	if err := readNode(src, parent[:]); err != nil {
		return err
	}
	if _, err := dst.Write(parent[:]); err != nil {
		return err
	}

	mid := subtreeStart + baohash.LeftLen(subtreeLen)
	if err := sliceRecurse(src, dst, subtreeStart, mid-subtreeStart, false, sliceStart, sliceEnd, outboard); err != nil {
		return err
	}
	return sliceRecurse(src, dst, mid, subtreeEnd-mid, false, sliceStart, sliceEnd, outboard)
}

// sliceRecurseOutboard mirrors sliceRecurse, but reads parent nodes from
// tree and chunk content from content, keeping both streams in lockstep
// so that a skipped subtree advances both by the right amount.
func sliceRecurseOutboard(tree, content io.ReadSeeker, dst io.Writer, subtreeStart, subtreeLen uint64, isRoot bool, sliceStart, sliceEnd uint64) error {
	subtreeEnd := subtreeStart + subtreeLen
	if !isRoot && subtreeEnd <= sliceStart {
		treeSkip := baoenc.EncodedSubtreeSize(subtreeLen, true)
		if _, err := tree.Seek(int64(treeSkip), io.SeekCurrent); err != nil {
			return err
		}
		_, err := content.Seek(int64(subtreeLen), io.SeekCurrent)
		return err
	}
	if !isRoot && subtreeStart >= sliceEnd {
		return nil
	}

	if subtreeLen <= baohash.ChunkSize {
		buf := make([]byte, subtreeLen)
		if err := readNode(content, buf); err != nil {
			return err
		}
		_, err := dst.Write(buf)
		return err
	}

	var parent [baohash.ParentSize]byte
	if err := readNode(tree, parent[:]); err != nil {
		return err
	}
	if _, err := dst.Write(parent[:]); err != nil {
		return err
	}

	mid := subtreeStart + baohash.LeftLen(subtreeLen)
	if err := sliceRecurseOutboard(tree, content, dst, subtreeStart, mid-subtreeStart, false, sliceStart, sliceEnd); err != nil {
		return err
	}
	return sliceRecurseOutboard(tree, content, dst, mid, subtreeEnd-mid, false, sliceStart, sliceEnd)
}

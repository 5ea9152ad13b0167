package baodec

import (
	"bytes"
	"io"
	"testing"

	"github.com/pombredanne/bao/baoenc"
	"github.com/pombredanne/bao/baohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSizes() []int {
	return []int{0, 1, 4095, 4096, 4097, 8191, 8192, 8193, 16384, 16385, 5*baohash.ChunkSize + 42, 50 * baohash.ChunkSize}
}

func fill(n int, seed byte) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i) + seed
	}
	return data
}

func TestReaderRoundTrip(t *testing.T) {
	for _, n := range testSizes() {
		data := fill(n, 11)
		encoded, root := baoenc.Encode(data)

		r := NewReader(bytes.NewReader(encoded), root)
		got, err := io.ReadAll(r)
		require.NoError(t, err, "size %d", n)
		assert.Equal(t, data, got, "size %d", n)
	}
}

func TestOutboardReaderRoundTrip(t *testing.T) {
	for _, n := range testSizes() {
		data := fill(n, 22)
		outboard, root := baoenc.EncodeOutboard(data)

		r := NewOutboardReader(bytes.NewReader(outboard), bytes.NewReader(data), root)
		got, err := io.ReadAll(r)
		require.NoError(t, err, "size %d", n)
		assert.Equal(t, data, got, "size %d", n)
	}
}

func TestReaderRejectsWrongRoot(t *testing.T) {
	data := fill(20000, 3)
	encoded, root := baoenc.Encode(data)
	root[0] ^= 0xFF

	r := NewReader(bytes.NewReader(encoded), root)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestReaderRejectsCorruptedChunk(t *testing.T) {
	data := fill(20000, 4)
	encoded, root := baoenc.Encode(data)
	// Flip a byte well past the header and the first few parent nodes,
	// inside what will be actual chunk content.
	encoded[len(encoded)-1] ^= 0x01

	r := NewReader(bytes.NewReader(encoded), root)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestReaderRejectsCorruptedParent(t *testing.T) {
	data := fill(20000, 5)
	encoded, root := baoenc.Encode(data)
	// The root parent node sits immediately after the 8-byte header.
	encoded[baohash.HeaderSize] ^= 0x01

	r := NewReader(bytes.NewReader(encoded), root)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestReaderRejectsTruncatedInput(t *testing.T) {
	data := fill(20000, 6)
	encoded, root := baoenc.Encode(data)
	truncated := encoded[:len(encoded)-100]

	r := NewReader(bytes.NewReader(truncated), root)
	_, err := io.ReadAll(r)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, nil)
}

func TestReaderPoisonsAfterMismatch(t *testing.T) {
	data := fill(20000, 7)
	encoded, root := baoenc.Encode(data)
	encoded[baohash.HeaderSize] ^= 0x01

	r := NewReader(bytes.NewReader(encoded), root)
	buf := make([]byte, 16)
	_, err1 := r.Read(buf)
	require.ErrorIs(t, err1, ErrHashMismatch)
	_, err2 := r.Read(buf)
	assert.ErrorIs(t, err2, ErrHashMismatch)
}

func TestReaderSeekThenReadMatchesSlice(t *testing.T) {
	n := 30 * baohash.ChunkSize
	data := fill(n, 8)
	encoded, root := baoenc.Encode(data)

	offsets := []int64{0, 1, 4095, 4096, 4097, int64(n) / 2, int64(n) - 1, int64(n)}
	for _, off := range offsets {
		r := NewReader(bytes.NewReader(encoded), root)
		got, err := r.Seek(off, io.SeekStart)
		require.NoError(t, err, "offset %d", off)
		assert.Equal(t, off, got, "offset %d", off)

		rest, err := io.ReadAll(r)
		require.NoError(t, err, "offset %d", off)
		assert.Equal(t, data[off:], rest, "offset %d", off)
	}
}

func TestReaderSeekRejectsNonSeekableSource(t *testing.T) {
	data := fill(5000, 9)
	encoded, root := baoenc.Encode(data)
	r := NewReader(io.NopCloser(bytes.NewReader(encoded)), root)
	_, err := r.Seek(0, io.SeekStart)
	assert.ErrorIs(t, err, ErrNotSeekable)
}

func TestHashFromEncodedMatchesRoot(t *testing.T) {
	for _, n := range testSizes() {
		data := fill(n, 10)
		encoded, root := baoenc.Encode(data)
		got, err := HashFromEncoded(bytes.NewReader(encoded))
		require.NoError(t, err, "size %d", n)
		assert.True(t, root.Equal(got), "size %d", n)
	}
}

func TestSeekToEndStillVerifiesRoot(t *testing.T) {
	data := fill(20000, 12)
	encoded, root := baoenc.Encode(data)
	// Corrupt the root parent node, which sits right after the header.
	encoded[baohash.HeaderSize] ^= 0x01

	r := NewReader(bytes.NewReader(encoded), root)
	_, err := r.Seek(int64(len(data)), io.SeekStart)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestSeekToEndOfSingleChunkStillVerifiesRoot(t *testing.T) {
	data := fill(100, 13)
	encoded, root := baoenc.Encode(data)
	// The whole tree is one chunk; corrupt a content byte.
	encoded[baohash.HeaderSize+50] ^= 0x01

	r := NewReader(bytes.NewReader(encoded), root)
	_, err := r.Seek(int64(len(data)), io.SeekStart)
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestSeekBackwardRestartsVerification(t *testing.T) {
	n := 12 * baohash.ChunkSize
	data := fill(n, 14)
	encoded, root := baoenc.Encode(data)

	r := NewReader(bytes.NewReader(encoded), root)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, data, all)

	pos, err := r.Seek(int64(baohash.ChunkSize+7), io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(baohash.ChunkSize+7), pos)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[baohash.ChunkSize+7:], rest)
}

func TestSeekCurrentAccountsForPartialChunkReads(t *testing.T) {
	n := 8 * baohash.ChunkSize
	data := fill(n, 15)
	encoded, root := baoenc.Encode(data)

	r := NewReader(bytes.NewReader(encoded), root)
	head := make([]byte, 100)
	_, err := io.ReadFull(r, head)
	require.NoError(t, err)
	require.Equal(t, data[:100], head)

	pos, err := r.Seek(50, io.SeekCurrent)
	require.NoError(t, err)
	require.Equal(t, int64(150), pos)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data[150:], rest)
}

func TestSeekPastEndClampsAndReadsNothing(t *testing.T) {
	data := fill(9000, 16)
	encoded, root := baoenc.Encode(data)

	r := NewReader(bytes.NewReader(encoded), root)
	pos, err := r.Seek(int64(len(data))+500, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), pos)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestOutboardSeekThenReadMatchesContent(t *testing.T) {
	n := 20 * baohash.ChunkSize
	data := fill(n, 17)
	outboard, root := baoenc.EncodeOutboard(data)

	offsets := []int64{0, 1, baohash.ChunkSize - 1, baohash.ChunkSize, int64(n) / 2, int64(n) - 1, int64(n)}
	for _, off := range offsets {
		r := NewOutboardReader(bytes.NewReader(outboard), bytes.NewReader(data), root)
		pos, err := r.Seek(off, io.SeekStart)
		require.NoError(t, err, "offset %d", off)
		require.Equal(t, off, pos, "offset %d", off)
		rest, err := io.ReadAll(r)
		require.NoError(t, err, "offset %d", off)
		assert.Equal(t, data[off:], rest, "offset %d", off)
	}
}

func TestTruncatedHeaderIsTruncatedError(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{1, 2, 3}), baohash.Hash{})
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestTruncatedNodeIsTruncatedError(t *testing.T) {
	data := fill(20000, 18)
	encoded, root := baoenc.Encode(data)

	r := NewReader(bytes.NewReader(encoded[:len(encoded)-100]), root)
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestOversizedHeaderIsOverflowError(t *testing.T) {
	var header [baohash.HeaderSize]byte
	for i := range header {
		header[i] = 0xFF
	}
	r := NewReader(bytes.NewReader(header[:]), baohash.Hash{})
	_, err := io.ReadAll(r)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAlteredHeaderFailsVerification(t *testing.T) {
	data := fill(20000, 19)
	encoded, root := baoenc.Encode(data)

	for bit := 0; bit < baohash.HeaderSize*8; bit += 5 {
		corrupted := append([]byte(nil), encoded...)
		corrupted[bit/8] ^= 1 << (bit % 8)

		r := NewReader(bytes.NewReader(corrupted), root)
		_, err := io.ReadAll(r)
		assert.Error(t, err, "header bit %d", bit)
	}
}

package baohash

import (
	"strconv"

	"github.com/klauspost/cpuid/v2"

	"github.com/pombredanne/bao/baojoin"
)

// hasAVX2 is probed once at package init. blake2b-simd picks its own
// vectorized compression per call, but exposes no public four-lane
// multi-instance primitive, so AVX2 only gates whether the four lanes
// below run concurrently; the per-lane computation is always the same
// scalar hashChunk call and is therefore always bit-identical to four
// sequential hashChunk(_, false, _) calls.
var hasAVX2 = cpuid.CPU.Has(cpuid.AVX2)

// FourWayChunkHasher hashes four full-size chunks in lockstep. It exists
// as a performance seam: on capable hardware, the four non-root chunk
// hashes are computed on separate goroutines joined pairwise; everywhere
// else it degrades to a plain sequential loop. Both paths must and do
// produce results identical to four independent hashChunk(chunk, false, 0)
// calls.
type FourWayChunkHasher struct{}

// HashFour hashes four ChunkSize-byte, non-root chunks and returns their
// four chaining values in input order.
func (FourWayChunkHasher) HashFour(chunks [4][]byte) [4]Hash {
	for i, c := range chunks {
		if len(c) != ChunkSize {
			panic("baohash: FourWayChunkHasher requires four full-size chunks, got len " + strconv.Itoa(len(c)) + " at lane " + strconv.Itoa(i))
		}
	}

	var out [4]Hash
	if !hasAVX2 {
		for i, c := range chunks {
			out[i] = hashChunk(c, false, 0)
		}
		return out
	}

	// Two pairwise joins cover all four lanes with a bounded, two-level
	// fan-out, matching baojoin.Join's single split-point contract.
	baojoin.Join(func() {
		baojoin.Join(
			func() { out[0] = hashChunk(chunks[0], false, 0) },
			func() { out[1] = hashChunk(chunks[1], false, 0) },
		)
	}, func() {
		baojoin.Join(
			func() { out[2] = hashChunk(chunks[2], false, 0) },
			func() { out[3] = hashChunk(chunks[3], false, 0) },
		)
	})
	return out
}

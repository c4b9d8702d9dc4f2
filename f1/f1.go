// Package f1 produces table-1 (y, x) entries from the plot id's ChaCha8
// keystream, ported from F1Calculator in
// original_source/proof_of_space/src/f_calc.rs.
package f1

import (
	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/chacha8"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
)

// Calculator holds the ChaCha8 context keyed by the plot id, reused across
// every F1 call for that plot.
type Calculator struct {
	k      uint8
	encCtx chacha8.Context
}

// New builds a Calculator for the given k and 32-byte plot id. The
// encryption key is [0x01, plotID[0..31]] — the leading byte is the
// 1-based table index, matching F1Calculator::init.
func New(k uint8, plotID [32]byte) *Calculator {
	var encKey [32]byte
	encKey[0] = 1
	copy(encKey[1:], plotID[:31])
	c := &Calculator{k: k}
	chacha8.KeySetup(&c.encCtx, encKey, nil)
	return c
}

// CalculateF returns k+K_EXTRA_BITS output bits for the single x encoded in
// l (an x-bit-width BitReader), handling the case where the needed
// ChaCha8 output bits straddle two 512-bit blocks.
func (c *Calculator) CalculateF(l bitpacking.BitReader) bitpacking.BitReader {
	numOutputBits := uint32(c.k)
	blockSizeBits := uint32(plotformat.KF1BlockSizeBits)

	counterBit := l.FirstU64() * uint64(numOutputBits)
	counter := counterBit / uint64(blockSizeBits)
	bitsBeforeL := uint32(counterBit % uint64(blockSizeBits))
	bitsOfL := blockSizeBits - bitsBeforeL
	if bitsOfL > numOutputBits {
		bitsOfL = numOutputBits
	}
	spansTwoBlocks := bitsOfL < numOutputBits

	var ciphertext []byte
	chacha8.GetKeystream(&c.encCtx, counter, 1, &ciphertext)
	block0 := bitpacking.FromBytesBE(ciphertext, int(blockSizeBits))

	var outputBits bitpacking.BitReader
	if spansTwoBlocks {
		var ciphertext1 []byte
		chacha8.GetKeystream(&c.encCtx, counter+1, 1, &ciphertext1)
		block1 := bitpacking.FromBytesBE(ciphertext1, int(blockSizeBits))
		outputBits = block0.Slice(int(bitsBeforeL)).Append(block1.Range(0, int(numOutputBits-bitsOfL)))
	} else {
		outputBits = block0.Range(int(bitsBeforeL), int(bitsBeforeL+numOutputBits))
	}

	extra := l.Range(0, plotformat.KExtraBits)
	if extra.Size() < plotformat.KExtraBits {
		extra = extra.Append(bitpacking.New(0, plotformat.KExtraBits-extra.Size()))
	}
	return outputBits.Append(extra)
}

// CalculateBuckets fills res[0:n] with F1(x) for x in [firstX, firstX+n),
// in a single ChaCha8 keystream pull spanning every block the range
// touches — the batched form used when generating a whole bucket at once.
func (c *Calculator) CalculateBuckets(firstX, n uint64, res []uint64) {
	k := uint64(c.k)
	blockBits := uint64(plotformat.KF1BlockSizeBits)
	start := firstX * k / blockBits
	end := ucdiv64((firstX+n)*k, blockBits)
	numBlocks := end - start
	startBit := uint32((firstX * k) % blockBits)
	xShift := uint(c.k) - plotformat.KExtraBits

	var ciphertext []byte
	chacha8.GetKeystream(&c.encCtx, start, uint32(numBlocks), &ciphertext)

	for x := firstX; x < firstX+n; x++ {
		y := bitpacking.SliceU64FromBytes(ciphertext, startBit, uint32(c.k))
		res[x-firstX] = (y << plotformat.KExtraBits) | (x >> xShift)
		startBit += uint32(c.k)
	}
}

func ucdiv64(a, b uint64) uint64 {
	return (a + b - 1) / b
}

// Package fx implements the per-table matching and hash kernel (Fx): given
// two bucket-adjacent groups of table entries it finds matching pairs and
// derives the next table's y and metadata via BLAKE3. Ported from
// FXCalculator in original_source/proof_of_space/src/f_calc.rs.
package fx

import (
	"encoding/binary"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
	"lukechampine.com/blake3"
)

// PlotEntry is one matchable entry: its y value and the position it
// occupies in its bucket's backing array (used to build Pair indices).
type PlotEntry struct {
	Y   uint64
	Pos uint32
}

type rmapItem struct {
	count uint16
	pos   uint16
}

// Calculator holds the per-table matcher state: k, the 1-based table
// index it is matching into, and the reusable right-map scratch buffers.
type Calculator struct {
	k          uint8
	tableIndex uint8
	rmap       [plotformat.KBC]rmapItem
	rmapClean  []uint16
}

// New returns a Calculator for table tableIndex (the table being produced;
// 2..=7).
func New(k, tableIndex uint8) *Calculator {
	return &Calculator{k: k, tableIndex: tableIndex, rmapClean: make([]uint16, 0, plotformat.KBC)}
}

// CalculateBucket derives (f, c) for one matched (l, r) pair: f is the
// next table's y (k+K_EXTRA_BITS bits); c is its metadata (meta_l||meta_r
// for tables 2,3; extracted from the hash for tables 4..6; empty for
// table 7).
func (fc *Calculator) CalculateBucket(y1, l, r bitpacking.BitReader) (f, c bitpacking.BitReader) {
	var input bitpacking.BitReader
	if fc.tableIndex < 4 {
		c = l.Append(r)
		input = y1.Append(c)
	} else {
		input = y1.Append(l).Append(r)
	}

	inputBytes := input.ToBytes()
	byteLen := ucdiv(uint32(input.Size()), 8)
	sum := blake3.Sum256(inputBytes[:byteLen])

	fVal := binary.BigEndian.Uint64(sum[0:8]) >> (64 - (uint(fc.k) + plotformat.KExtraBits))

	switch {
	case fc.tableIndex < 4:
		c = l.Append(r)
	case fc.tableIndex < 7:
		length := plotformat.KVectorLens[fc.tableIndex]
		startByte := (uint32(fc.k) + plotformat.KExtraBits) / 8
		endBit := uint32(fc.k) + plotformat.KExtraBits + uint32(fc.k)*uint32(length)
		endByte := cdiv(endBit, 8)
		raw := bitpacking.FromBytesBE(sum[startByte:endByte], int(endByte-startByte)*8)
		c = raw.Range(int((uint32(fc.k)+plotformat.KExtraBits)%8), int(endBit-startByte*8))
	default:
		c = bitpacking.New(0, 0)
	}
	f = bitpacking.New(fVal, int(fc.k)+plotformat.KExtraBits)
	return f, c
}

// FindMatches finds every matching (l,r) pair between two bucket-adjacent
// groups and, if idxL/idxR are non-nil, writes the matched positions into
// them; it always returns the match count. idxL/idxR may be shorter than
// the true match count (the caller doesn't always know it up front): once
// they run out of room, matches keep being counted but stop being
// recorded, rather than writing out of bounds.
func (fc *Calculator) FindMatches(bucketL, bucketR []PlotEntry, idxL, idxR []uint16) int {
	idxCount := 0
	parity := uint16((bucketL[0].Y / plotformat.KBC) % 2)

	for _, yl := range fc.rmapClean {
		fc.rmap[yl].count = 0
	}
	fc.rmapClean = fc.rmapClean[:0]

	remove := (bucketR[0].Y / plotformat.KBC) * plotformat.KBC
	for posR := range bucketR {
		rY := bucketR[posR].Y - remove
		if fc.rmap[rY].count == 0 {
			fc.rmap[rY].pos = uint16(posR)
		}
		fc.rmap[rY].count++
		fc.rmapClean = append(fc.rmapClean, uint16(rY))
	}

	removeY := remove - plotformat.KBC
	targets := plotformat.LTargets()
	for posL := range bucketL {
		r := bucketL[posL].Y - removeY
		for i := 0; i < plotformat.ProofXCount; i++ {
			rTarget := targets[parity][r][i]
			count := fc.rmap[rTarget].count
			for j := uint16(0); j < count; j++ {
				if idxCount < len(idxL) && idxCount < len(idxR) {
					idxL[idxCount] = uint16(posL)
					idxR[idxCount] = fc.rmap[rTarget].pos + j
				}
				idxCount++
			}
		}
	}
	return idxCount
}

// Pair is a (left,right) index pair found by MatchSorted, referencing
// positions in the sorted entries slice passed to it.
type Pair struct {
	Left, Right uint32
}

// MatchSorted finds every matching pair across all KBC-bucket boundaries
// present in a Y-ascending run of entries, generalizing FindMatches (which
// assumes its two inputs are exactly one bucket each) to the wide,
// many-bucket windows the decompressor's forward-propagation cascade
// works against. Grounded on Decompressor::match_pairs in
// original_source/proof_of_space/src/plots/decompressor.rs: entries is
// scanned once to find each run's KBC group id, and every pair of
// KBC-adjacent runs is matched with the same rmap/L_TARGETS law as
// FindMatches.
func (fc *Calculator) MatchSorted(entries []uint64) []Pair {
	n := len(entries)
	if n == 0 {
		return nil
	}
	bounds := make([]int, 1, n/4+2)
	bounds[0] = 0
	for i := 1; i < n; i++ {
		if entries[i]/plotformat.KBC != entries[i-1]/plotformat.KBC {
			bounds = append(bounds, i)
		}
	}
	bounds = append(bounds, n)

	targets := plotformat.LTargets()
	var out []Pair
	for gi := 0; gi+2 < len(bounds); gi++ {
		lStart, lEnd := bounds[gi], bounds[gi+1]
		rStart, rEnd := bounds[gi+1], bounds[gi+2]
		groupL := entries[lStart] / plotformat.KBC
		groupR := entries[rStart] / plotformat.KBC
		if groupR != groupL+1 {
			continue
		}
		parity := uint16(groupL % 2)

		for _, yl := range fc.rmapClean {
			fc.rmap[yl].count = 0
		}
		fc.rmapClean = fc.rmapClean[:0]

		rBase := groupR * plotformat.KBC
		for posR := rStart; posR < rEnd; posR++ {
			rLocal := uint16(entries[posR] - rBase)
			if fc.rmap[rLocal].count == 0 {
				fc.rmap[rLocal].pos = uint16(posR - rStart)
			}
			fc.rmap[rLocal].count++
			fc.rmapClean = append(fc.rmapClean, rLocal)
		}

		lBase := groupL * plotformat.KBC
		for posL := lStart; posL < lEnd; posL++ {
			lLocal := entries[posL] - lBase
			for m := 0; m < plotformat.ProofXCount; m++ {
				rTarget := targets[parity][lLocal][m]
				count := fc.rmap[rTarget].count
				for j := uint16(0); j < count; j++ {
					out = append(out, Pair{
						Left:  uint32(posL),
						Right: uint32(rStart) + uint32(fc.rmap[rTarget].pos) + uint32(j),
					})
				}
			}
		}
	}
	return out
}

func ucdiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

func cdiv(a, b uint32) uint32 {
	return ucdiv(a, b)
}

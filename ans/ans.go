// Package ans implements a tabled finite-state-entropy (tANS/FSE) decoder
// for the park delta streams. No suitable importable library covers this:
// klauspost/compress ships an FSE/huff0 implementation but keeps its
// tables and state machine as an unexported internal package, and the
// reference Rust source's finite_state_entropy/create_normalized_count
// modules were not present in the retrieved original_source tree (only
// their call sites in plot_reader.rs and compression.rs were). This is
// therefore hand-written against the published FSE table-build algorithm
// (symbol spreading over a power-of-two state table) and documented in
// DESIGN.md as the one legitimate stdlib-equivalent exception in this
// module.
package ans

import (
	"errors"
	"fmt"
)

// ErrDecodeFailed is returned for any malformed input or bitstream
// underflow; the decoder never panics on bad data.
var ErrDecodeFailed = errors.New("ans: decode failed")

const tableLog = 14
const tableSize = 1 << tableLog
const tableMask = tableSize - 1

// symbolEntry is one slot of the decode table: which symbol owns this
// state, how many bits to read to find the next state, and the baseline
// to add those bits to.
type symbolEntry struct {
	symbol   uint16
	numBits  uint8
	baseline uint32
}

// DTable is a built decode table for one R-value, reusable across many
// decompress calls (tables are cached by level in plotreader per the
// "Global state" design note: derived lazily, cached, never mutated).
type DTable struct {
	rValue  float64
	entries [tableSize]symbolEntry
}

// BuildDTable constructs a decode table parameterised by rValue, the
// geometric-decay parameter chiapos uses for its delta symbol
// distribution: P(sym) ~ (1 - 1/r) * (1/r)^sym. Larger r concentrates
// probability on small deltas (used for more aggressive compression
// levels); this mirrors create_normalized_count's shape without
// reproducing its missing exact source.
func BuildDTable(rValue float64) *DTable {
	counts := normalizedCounts(rValue)
	dt := &DTable{rValue: rValue}
	dt.spread(counts)
	return dt
}

// normalizedCounts returns per-symbol counts summing exactly to
// tableSize, each used symbol getting at least 1 slot (the standard FSE
// requirement so every reachable symbol has a valid state range).
func normalizedCounts(rValue float64) []uint32 {
	if rValue < 1.01 {
		rValue = 1.01
	}
	decay := 1.0 / rValue
	// Extend the alphabet until the remaining probability mass is
	// negligible or we hit a generous symbol-count ceiling.
	const maxSymbols = 512
	probs := make([]float64, 0, 64)
	remaining := 1.0
	p0 := 1.0 - decay
	for sym := 0; sym < maxSymbols; sym++ {
		p := p0 * pow(decay, sym)
		if p < 1.0/float64(tableSize) && sym > 0 {
			break
		}
		probs = append(probs, p)
		remaining -= p
	}
	counts := make([]uint32, len(probs))
	total := uint32(0)
	for i, p := range probs {
		c := uint32(p * float64(tableSize))
		if c < 1 {
			c = 1
		}
		counts[i] = c
		total += c
	}
	// Adjust the largest bucket (symbol 0, always most probable) to make
	// the counts sum exactly to tableSize.
	if total != tableSize {
		diff := int64(tableSize) - int64(total)
		newV := int64(counts[0]) + diff
		if newV < 1 {
			newV = 1
		}
		counts[0] = uint32(newV)
	}
	return counts
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// spread fills dt.entries using the standard FSE symbol-spreading step
// (an odd stride that visits every table slot exactly once modulo
// tableSize), then derives per-slot (numBits, baseline) from each symbol's
// occupied state range.
func (dt *DTable) spread(counts []uint32) {
	const step = (tableSize >> 1) + (tableSize >> 3) + 3
	pos := 0
	var symbolOf [tableSize]uint16
	for sym, c := range counts {
		for i := uint32(0); i < c; i++ {
			symbolOf[pos] = uint16(sym)
			pos = (pos + step) & tableMask
		}
	}

	// next[sym] tracks how many states of this symbol have been assigned
	// so far, used to compute each state's rank within its symbol's range.
	next := make([]uint32, len(counts))
	copy(next, counts)

	for state := 0; state < tableSize; state++ {
		sym := symbolOf[state]
		nextState := next[sym]
		next[sym]++
		highBit := bitLen32(nextState) - 1
		numBits := uint8(tableLog - highBit)
		baseline := (nextState << numBits) - tableSize
		dt.entries[state] = symbolEntry{
			symbol:   sym,
			numBits:  numBits,
			baseline: baseline,
		}
	}
}

func bitLen32(v uint32) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	if n == 0 {
		return 1
	}
	return n
}

// backwardReader consumes bits from the tail of a buffer toward its head,
// the FSE/ANS convention (the encoder writes its first symbol's bits last).
type backwardReader struct {
	buf     []byte
	bitPos  int // absolute bit position, counted from the start; decreases
	totalBits int
}

func newBackwardReader(buf []byte, totalBits int) *backwardReader {
	return &backwardReader{buf: buf, bitPos: totalBits, totalBits: totalBits}
}

func (r *backwardReader) readBits(n uint8) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	if int(n) > r.bitPos {
		return 0, fmt.Errorf("%w: bitstream underflow", ErrDecodeFailed)
	}
	r.bitPos -= int(n)
	return uint32(extractBitsLE(r.buf, r.bitPos, int(n))), nil
}

// extractBitsLE reads numBits starting at bit offset startBit, treating
// the buffer as a little-endian bit sequence (bit 0 of byte 0 is the
// least-significant, consistent with the FSE/ANS bitstream convention,
// distinct from bitpacking.BitReader's big-endian convention used
// elsewhere in this module for plot-format fields).
func extractBitsLE(buf []byte, startBit, numBits int) uint64 {
	var result uint64
	for i := 0; i < numBits; i++ {
		bit := startBit + i
		byteIdx := bit / 8
		bitOff := bit % 8
		if byteIdx >= len(buf) {
			continue
		}
		b := (buf[byteIdx] >> uint(bitOff)) & 1
		result |= uint64(b) << uint(i)
	}
	return result
}

// Decompress decodes nSym symbols from src (srcLen significant bytes) into
// dst using dt, never allocating: dst must already have length nSym.
func Decompress(dst []int32, nSym int, src []byte, srcLen int, dt *DTable) error {
	if len(dst) < nSym {
		return fmt.Errorf("%w: dst too small", ErrDecodeFailed)
	}
	if srcLen > len(src) {
		srcLen = len(src)
	}
	totalBits := srcLen * 8
	if totalBits < tableLog {
		return fmt.Errorf("%w: stream too short for initial state", ErrDecodeFailed)
	}
	r := newBackwardReader(src[:srcLen], totalBits)
	stateBits, err := r.readBits(tableLog)
	if err != nil {
		return err
	}
	state := stateBits & tableMask

	for i := 0; i < nSym; i++ {
		entry := dt.entries[state]
		dst[i] = int32(entry.symbol)
		bits, err := r.readBits(entry.numBits)
		if err != nil {
			return err
		}
		state = (entry.baseline + bits) & tableMask
	}
	return nil
}

// Package verifier implements the quality/proof verifier (C10): given a
// full 64-x proof, it reproduces the Fx cascade from scratch (never
// trusting plot metadata) to recover f7, and derives the quality string
// for a given challenge. Grounded on
// original_source/proof_of_space/src/verifier.rs (validate_proof,
// get_f7_from_proof, get_quality_string, compare_proof_bits) built on top
// of this module's own f1/fx ports rather than verifier.rs's raw
// K32Meta-struct byte packing, which fx.Calculator.CalculateBucket already
// expresses generically via bitpacking.BitReader.
package verifier

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/f1"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/fx"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
)

var (
	ErrVerifyMismatch = errors.New("verifier: proof does not match challenge")
	ErrNoMatch        = errors.New("verifier: values not in same matching group")
	ErrInvalidInput   = errors.New("verifier: invalid input")
)

// GetF7FromProof reproduces the full Fx cascade over a 64-x proof and
// returns the resulting f7 value, ported from get_f7_from_proof:
// get_proof_f1_and_meta followed by forward_prop_f1_to_f7.
func GetF7FromProof(k uint8, plotID [32]byte, proof []uint64) (uint64, error) {
	f7, _, err := forwardPropagate(k, plotID, proof, nil)
	return f7, err
}

// GetF7FromProofAndReorder additionally returns the proof reordered into
// canonical (ascending-y) order at each table level, matching
// get_f7_from_proof_and_reorder; used by validators that want a canonical
// form for re-storage or comparison.
func GetF7FromProofAndReorder(k uint8, plotID [32]byte, proof []uint64) (uint64, []uint64, error) {
	reordered := append([]uint64(nil), proof...)
	f7, _, err := forwardPropagate(k, plotID, proof, reordered)
	if err != nil {
		return 0, nil, err
	}
	return f7, reordered, nil
}

// forwardPropagate is the shared core of GetF7FromProof/AndReorder: it
// computes F1 and initial metadata for all 64 xs via f1.Calculator, then
// walks tables 2..7 via fx.Calculator.CalculateBucket, swapping the (y,
// meta, and optionally x-range) of any out-of-order pair before hashing —
// ported from forward_prop_f1_to_f7.
func forwardPropagate(k uint8, plotID [32]byte, proof []uint64, reorder []uint64) (uint64, []bitpacking.BitReader, error) {
	if len(proof) != plotformat.ProofXCount {
		return 0, nil, fmt.Errorf("%w: expected %d xs, got %d", ErrInvalidInput, plotformat.ProofXCount, len(proof))
	}
	calc := f1.New(k, plotID)
	ys := make([]uint64, plotformat.ProofXCount)
	metas := make([]bitpacking.BitReader, plotformat.ProofXCount)
	for i, x := range proof {
		l := bitpacking.New(x, int(k))
		out := calc.CalculateF(l)
		ys[i] = out.FirstU64()
		metas[i] = bitpacking.New(x, int(k))
	}

	iterCount := plotformat.ProofXCount
	for table := uint8(2); table <= 7; table++ {
		matcher := fx.New(k, table)
		dst := 0
		for i := 0; i < iterCount; i += 2 {
			y0, y1 := ys[i], ys[i+1]
			lMeta, rMeta := metas[i], metas[i+1]
			if y0 > y1 {
				y0, y1 = y1, y0
				lMeta, rMeta = rMeta, lMeta
				if reorder != nil {
					count := 1 << (table - 2)
					base := i * count
					for j := 0; j < count; j++ {
						reorder[base+j], reorder[base+count+j] = reorder[base+count+j], reorder[base+j]
					}
				}
			}
			if !matchesLaw(y0, y1) {
				return 0, nil, fmt.Errorf("%w: table %d entries %d,%d", ErrNoMatch, table, i, i+1)
			}
			y1Reader := bitpacking.New(y0, int(k)+plotformat.KExtraBits)
			f, c := matcher.CalculateBucket(y1Reader, lMeta, rMeta)
			ys[dst] = f.FirstU64()
			metas[dst] = c
			dst++
		}
		iterCount >>= 1
	}
	return ys[0] >> plotformat.KExtraBits, metas[:1], nil
}

// matchesLaw reports whether y0/y1 satisfy the bucket-adjacency matching
// law (ported from fx_match): consecutive K_BC buckets, and y1's local
// residue present among y0's L_TARGETS row.
func matchesLaw(y0, y1 uint64) bool {
	groupL := y0 / plotformat.KBC
	groupR := y1 / plotformat.KBC
	if groupR-groupL != 1 {
		return false
	}
	localL := uint16(y0 - groupL*plotformat.KBC)
	localR := uint16(y1 - groupR*plotformat.KBC)
	targets := plotformat.LTargets()[groupL&1][localL]
	for _, t := range targets {
		if t == localR {
			return true
		}
	}
	return false
}

// UncompressProof splits a flat big-endian byte buffer into 64 k-bit x
// values, ported from uncompress_proof.
func UncompressProof(proof []byte, k uint8) []uint64 {
	bits := bitpacking.FromBytesBE(proof, len(proof)*8)
	out := make([]uint64, plotformat.ProofXCount)
	for i := range out {
		out[i] = bits.Range(int(k)*i, int(k)*(i+1)).FirstU64()
	}
	return out
}

// ProofToBytes writes each x as an 8-byte big-endian word and concatenates
// them, matching proof_to_bytes. This is not the k-bit packing that
// UncompressProof reads.
func ProofToBytes(proof []uint64) []byte {
	out := make([]byte, 0, len(proof)*8)
	for _, x := range proof {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[7-i] = byte(x >> (8 * i))
		}
		out = append(out, b[:]...)
	}
	return out
}

// ValidateProof reproduces f7 from proof and, if it matches the
// challenge's first (most significant) k bits, derives and returns the quality string;
// otherwise returns the zero hash, ported from validate_proof.
func ValidateProof(plotID [32]byte, k uint8, proof []byte, challenge []byte) ([32]byte, error) {
	xs := UncompressProof(proof, k)
	f7, err := GetF7FromProof(k, plotID, xs)
	if err != nil {
		return [32]byte{}, err
	}
	challengeBits := bitpacking.FromBytesBE(challenge, len(challenge)*8)
	tailBits, err := challengeBits.Range(256-5, challengeBits.Size()).ReadU64(5)
	if err != nil {
		return [32]byte{}, err
	}
	index := uint16(tailBits) << 1
	if challengeBits.Range(0, int(k)).FirstU64() != f7 {
		return [32]byte{}, nil
	}
	return GetQualityString(k, proof, index, challenge)
}

// GetQualityString folds the proof down via pairwise comparisons
// (compare_proof_bits) until only 2 xs per quality-index slot remain,
// then hashes the challenge concatenated with the selected pair — ported
// from get_quality_string.
func GetQualityString(k uint8, proof []byte, qualityIndex uint16, challenge []byte) ([32]byte, error) {
	proofBits := bitpacking.FromBytesBE(proof, len(proof)*8)
	for tableIndex := uint8(1); tableIndex < 7; tableIndex++ {
		var newProof bitpacking.BitReader
		size := int(k) * (1 << (tableIndex - 1))
		for j := 0; j < (1 << (7 - tableIndex)); j += 2 {
			left := proofBits.Range(j*size, (j+1)*size)
			right := proofBits.Range((j+1)*size, (j+2)*size)
			less, err := compareProofBits(left, right, k)
			if err != nil {
				return [32]byte{}, err
			}
			if less {
				newProof = newProof.Append(left).Append(right)
			} else {
				newProof = newProof.Append(right).Append(left)
			}
		}
		proofBits = newProof
	}
	toHash := append([]byte(nil), challenge...)
	slice := proofBits.Range(int(k)*int(qualityIndex), int(k)*int(qualityIndex+2))
	toHash = append(toHash, slice.ToBytes()...)
	sum := sha256.Sum256(toHash)
	return sum, nil
}

// compareProofBits reports whether left sorts before right when compared
// k-bit-word-wise starting from the last (rightmost) word and moving left,
// ported from compare_proof_bits.
func compareProofBits(left, right bitpacking.BitReader, k uint8) (bool, error) {
	if left.Size() != right.Size() {
		return false, fmt.Errorf("%w: left/right size mismatch", ErrInvalidInput)
	}
	size := left.Size() / int(k)
	for i := size - 1; i >= 0; i-- {
		lv := left.Range(int(k)*i, int(k)*(i+1)).FirstU64()
		rv := right.Range(int(k)*i, int(k)*(i+1)).FirstU64()
		if lv < rv {
			return true, nil
		}
		if lv > rv {
			return false, nil
		}
	}
	return false, nil
}

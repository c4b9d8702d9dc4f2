package verifier

import (
	"testing"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
	"github.com/stretchr/testify/require"
)

func TestUncompressProofRoundTripsWithProofToBytes(t *testing.T) {
	const k = uint8(20)
	xs := make([]uint64, plotformat.ProofXCount)
	for i := range xs {
		xs[i] = uint64(i) * 12345
	}
	// ProofToBytes/UncompressProof use different word widths (8 bytes vs k
	// bits); round-trip through a k-bit pack to match UncompressProof's own
	// framing instead.
	var packed bitpacking.BitReader
	for _, x := range xs {
		packed = packed.Append(bitpacking.New(x, int(k)))
	}
	got := UncompressProof(packed.ToBytes(), k)
	require.Equal(t, xs, got)
}

func TestMatchesLawAcceptsRealTarget(t *testing.T) {
	targets := plotformat.LTargets()
	localL := uint16(9)
	parity := uint16(0)
	localR := targets[parity][localL][3]

	groupL := uint64(4)
	y0 := groupL*plotformat.KBC + uint64(localL)
	y1 := (groupL+1)*plotformat.KBC + uint64(localR)

	require.True(t, matchesLaw(y0, y1))
}

func TestMatchesLawRejectsNonAdjacentGroups(t *testing.T) {
	require.False(t, matchesLaw(5, plotformat.KBC*3+5))
}

func TestMatchesLawRejectsWrongResidue(t *testing.T) {
	// A y1 local residue that is not in y0's L_TARGETS row must be
	// rejected; the first such residue is used.
	targets := plotformat.LTargets()
	localL := uint16(1)
	valid := make(map[uint16]bool, plotformat.ProofXCount)
	for _, v := range targets[0][localL] {
		valid[v] = true
	}
	var bogus uint16
	for c := uint16(0); c < plotformat.KBC; c++ {
		if !valid[c] {
			bogus = c
			break
		}
	}
	require.False(t, matchesLaw(0*plotformat.KBC+uint64(localL), 1*plotformat.KBC+uint64(bogus)))
}

func TestCompareProofBitsComparesLastWordFirst(t *testing.T) {
	const k = uint8(16)
	left := bitpacking.New(5, int(k)).Append(bitpacking.New(1, int(k)))
	right := bitpacking.New(0, int(k)).Append(bitpacking.New(2, int(k)))

	less, err := compareProofBits(left, right, k)
	require.NoError(t, err)
	require.True(t, less, "left's last word (1) is smaller than right's (2)")

	less, err = compareProofBits(right, left, k)
	require.NoError(t, err)
	require.False(t, less)
}

func TestCompareProofBitsRejectsSizeMismatch(t *testing.T) {
	const k = uint8(16)
	left := bitpacking.New(1, int(k))
	right := bitpacking.New(1, int(k)).Append(bitpacking.New(1, int(k)))
	_, err := compareProofBits(left, right, k)
	require.Error(t, err)
}

func TestGetQualityStringIsDeterministic(t *testing.T) {
	const k = uint8(20)
	proof := make([]byte, 0, plotformat.ProofXCount*int(k)/8+8)
	var packed bitpacking.BitReader
	for i := 0; i < plotformat.ProofXCount; i++ {
		packed = packed.Append(bitpacking.New(uint64(i), int(k)))
	}
	proof = packed.ToBytes()
	challenge := make([]byte, 32)
	for i := range challenge {
		challenge[i] = byte(i)
	}

	sum1, err := GetQualityString(k, proof, 0, challenge)
	require.NoError(t, err)
	sum2, err := GetQualityString(k, proof, 0, challenge)
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)

	sum3, err := GetQualityString(k, proof, 2, challenge)
	require.NoError(t, err)
	require.NotEqual(t, sum1, sum3, "different quality index must select a different proof pair")
}

func TestGetF7FromProofRejectsWrongLength(t *testing.T) {
	var plotID [32]byte
	_, err := GetF7FromProof(20, plotID, make([]uint64, 4))
	require.ErrorIs(t, err, ErrInvalidInput)
}

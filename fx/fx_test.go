package fx

import (
	"testing"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
	"github.com/stretchr/testify/require"
)

func TestFindMatchesFindsRealTarget(t *testing.T) {
	targets := plotformat.LTargets()
	localL := uint16(5)
	parity := uint16(0)
	localR := targets[parity][localL][0]

	groupL := uint64(2) // even, so groupL%2 == parity
	groupR := groupL + 1

	bucketL := []PlotEntry{{Y: groupL*plotformat.KBC + uint64(localL), Pos: 0}}
	bucketR := []PlotEntry{{Y: groupR*plotformat.KBC + uint64(localR), Pos: 0}}

	fc := New(32, 2)
	idxL := make([]uint16, 4)
	idxR := make([]uint16, 4)
	n := fc.FindMatches(bucketL, bucketR, idxL, idxR)

	require.GreaterOrEqual(t, n, 1)
	require.Equal(t, uint16(0), idxL[0])
	require.Equal(t, uint16(0), idxR[0])
}

func TestFindMatchesNeverPanicsWithShortOutputSlices(t *testing.T) {
	// Construct every local_y in bucketR so every l in bucketL matches
	// ProofXCount times over, vastly exceeding a length-1 output slice.
	targets := plotformat.LTargets()
	_ = targets

	const groupL = uint64(4)
	const groupR = groupL + 1

	bucketL := make([]PlotEntry, 0, plotformat.KBC)
	for y := uint64(0); y < plotformat.KBC; y++ {
		bucketL = append(bucketL, PlotEntry{Y: groupL*plotformat.KBC + y, Pos: uint32(y)})
	}
	bucketR := make([]PlotEntry, 0, plotformat.KBC)
	for y := uint64(0); y < plotformat.KBC; y++ {
		bucketR = append(bucketR, PlotEntry{Y: groupR*plotformat.KBC + y, Pos: uint32(y)})
	}

	fc := New(32, 2)
	idxL := make([]uint16, 1)
	idxR := make([]uint16, 1)

	require.NotPanics(t, func() {
		n := fc.FindMatches(bucketL, bucketR, idxL, idxR)
		require.GreaterOrEqual(t, n, 1)
	})
}

func TestMatchSortedFindsMatchAcrossBoundary(t *testing.T) {
	targets := plotformat.LTargets()
	localL := uint16(10)
	parity := uint16(0)
	localR := targets[parity][localL][2]

	groupL := uint64(6)
	groupR := groupL + 1

	entries := []uint64{
		groupL*plotformat.KBC + uint64(localL),
		groupR*plotformat.KBC + uint64(localR),
	}

	fc := New(32, 2)
	pairs := fc.MatchSorted(entries)
	require.NotEmpty(t, pairs)
	require.Equal(t, uint32(0), pairs[0].Left)
	require.Equal(t, uint32(1), pairs[0].Right)
}

func TestMatchSortedSkipsNonAdjacentGroups(t *testing.T) {
	// Two groups two KBC buckets apart never match regardless of residue.
	entries := []uint64{
		0*plotformat.KBC + 1,
		2*plotformat.KBC + 1,
	}
	fc := New(32, 2)
	pairs := fc.MatchSorted(entries)
	require.Empty(t, pairs)
}

func TestMatchSortedEmptyInput(t *testing.T) {
	fc := New(32, 2)
	require.Nil(t, fc.MatchSorted(nil))
}

func TestMatchSortedMultipleAdjacentGroups(t *testing.T) {
	// Three KBC-adjacent groups: boundaries (0,1) and (1,2) are both
	// scanned, each independently checked for matches.
	targets := plotformat.LTargets()
	parity0 := uint16(0)
	localL0 := uint16(3)
	localR0 := targets[parity0][localL0][0]

	parity1 := uint16(1)
	localL1 := uint16(7)
	localR1 := targets[parity1][localL1][1]

	entries := []uint64{
		0*plotformat.KBC + uint64(localL0),
		1*plotformat.KBC + uint64(localR0),
		1*plotformat.KBC + uint64(localL1),
		2*plotformat.KBC + uint64(localR1),
	}

	fc := New(32, 2)
	pairs := fc.MatchSorted(entries)
	require.NotEmpty(t, pairs)
	for _, p := range pairs {
		require.Less(t, p.Left, p.Right)
	}
}

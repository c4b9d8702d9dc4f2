package f1

import (
	"testing"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/stretchr/testify/require"
)

// F1 must be a pure function of x: the single-x path (CalculateF) and the
// batched bucket path (CalculateBuckets) are two independent derivations of
// the same ChaCha8 keystream and must always agree.

func testPlotID() [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = byte(i * 7)
	}
	return id
}

func TestCalculateFMatchesCalculateBucketsSingleX(t *testing.T) {
	const k = uint8(16)
	c := New(k, testPlotID())

	for _, x := range []uint64{0, 1, 17, 1023, 1 << 15} {
		l := bitpacking.New(x, int(k))
		want := c.CalculateF(l).FirstU64()

		res := make([]uint64, 1)
		c.CalculateBuckets(x, 1, res)

		require.Equal(t, want, res[0], "x=%d", x)
	}
}

func TestCalculateBucketsAgreesAcrossBatchSizes(t *testing.T) {
	const k = uint8(18)
	const firstX = uint64(100)
	const n = uint64(64)

	c1 := New(k, testPlotID())
	batched := make([]uint64, n)
	c1.CalculateBuckets(firstX, n, batched)

	c2 := New(k, testPlotID())
	for i := uint64(0); i < n; i++ {
		single := make([]uint64, 1)
		c2.CalculateBuckets(firstX+i, 1, single)
		require.Equal(t, batched[i], single[0], "x=%d", firstX+i)
	}
}

func TestCalculateFIsDeterministicAndXSensitive(t *testing.T) {
	const k = uint8(20)
	c := New(k, testPlotID())

	a := c.CalculateF(bitpacking.New(5, int(k))).FirstU64()
	b := c.CalculateF(bitpacking.New(5, int(k))).FirstU64()
	require.Equal(t, a, b)

	other := c.CalculateF(bitpacking.New(6, int(k))).FirstU64()
	require.NotEqual(t, a, other)
}

func TestCalculateFDiffersAcrossPlotIDs(t *testing.T) {
	const k = uint8(16)
	id1 := testPlotID()
	id2 := testPlotID()
	id2[0] ^= 0xFF

	v1 := New(k, id1).CalculateF(bitpacking.New(42, int(k))).FirstU64()
	v2 := New(k, id2).CalculateF(bitpacking.New(42, int(k))).FirstU64()
	require.NotEqual(t, v1, v2)
}

package linepoint

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriangle64(t *testing.T) {
	require.Equal(t, uint64(0), Triangle64(0))
	require.Equal(t, uint64(0), Triangle64(1))
	require.Equal(t, uint64(1), Triangle64(2))
	require.Equal(t, uint64(10), Triangle64(5))
}

func TestEncodeDecode64RoundTrip(t *testing.T) {
	// The encode/decode pairing is only bijective over distinct (x != y)
	// values, matching the reference's x > y convention for table entries;
	// x == y never occurs for real plot data.
	pairs := [][2]uint64{
		{1, 0}, {0, 1}, {5, 3}, {3, 5},
		{1 << 20, 7}, {1<<32 - 1, 1<<32 - 2},
	}
	for _, p := range pairs {
		lp := Encode64(p[0], p[1])
		big_, small := Decode64(lp)
		wantBig, wantSmall := p[0], p[1]
		if wantSmall > wantBig {
			wantBig, wantSmall = wantSmall, wantBig
		}
		require.Equal(t, wantBig, big_, "pair %v", p)
		require.Equal(t, wantSmall, small, "pair %v", p)
	}
}

func TestEncodeDecode128RoundTrip(t *testing.T) {
	pairs := [][2]int64{
		{1, 0}, {12345, 6789}, {1 << 40, 3},
	}
	for _, p := range pairs {
		x := big.NewInt(p[0])
		y := big.NewInt(p[1])
		lp := Encode128(x, y)
		big_, small := Decode128(lp)

		wantBig, wantSmall := p[0], p[1]
		if wantSmall > wantBig {
			wantBig, wantSmall = wantSmall, wantBig
		}
		require.Equal(t, big.NewInt(wantBig), big_, "pair %v", p)
		require.Equal(t, big.NewInt(wantSmall), small, "pair %v", p)
	}
}

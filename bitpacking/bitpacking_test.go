package bitpacking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndFirstU64(t *testing.T) {
	b := New(0b10110, 5)
	require.Equal(t, 5, b.Size())
	require.Equal(t, uint64(0b10110), b.FirstU64())
}

func TestRangeExtractsSubfield(t *testing.T) {
	// 0xAB = 1010 1011
	b := FromBytesBE([]byte{0xAB}, 8)
	require.Equal(t, uint64(0b1010), b.Range(0, 4).FirstU64())
	require.Equal(t, uint64(0b1011), b.Range(4, 8).FirstU64())
}

func TestAppendConcatenatesBits(t *testing.T) {
	left := New(0b101, 3)
	right := New(0b110, 3)
	joined := left.Append(right)
	require.Equal(t, 6, joined.Size())
	require.Equal(t, uint64(0b101110), joined.FirstU64())
}

func TestReadU64ErrorsOnOversizedWidth(t *testing.T) {
	b := New(0b101, 3)
	_, err := b.ReadU64(8)
	require.Error(t, err)
}

func TestToBytesRoundTrip(t *testing.T) {
	b := New(0xABCD, 16)
	raw := b.ToBytes()
	require.Equal(t, []byte{0xAB, 0xCD}, raw)

	reread := FromBytesBE(raw, 16)
	require.Equal(t, b.FirstU64(), reread.FirstU64())
}

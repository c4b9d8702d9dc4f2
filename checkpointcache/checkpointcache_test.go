package checkpointcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLastLessEqual(t *testing.T) {
	values := []uint64{10, 20, 20, 30, 50, 90}
	c := Build(values)
	require.Equal(t, len(values), c.Len())

	cases := []struct {
		target  uint64
		wantOK  bool
		wantVal uint64
	}{
		{5, false, 0},
		{10, true, 10},
		{15, true, 10},
		{25, true, 20},
		{50, true, 50},
		{1000, true, 90},
	}
	for _, tc := range cases {
		idx, ok := c.LastLessEqual(tc.target)
		require.Equal(t, tc.wantOK, ok, "target %d", tc.target)
		if ok {
			require.Equal(t, tc.wantVal, values[idx], "target %d", tc.target)
		}
	}
}

func TestLastLessEqualEmpty(t *testing.T) {
	c := Build(nil)
	_, ok := c.LastLessEqual(42)
	require.False(t, ok)
}

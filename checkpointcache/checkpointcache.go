// Package checkpointcache implements the cache-friendly search structure
// behind plotreader's in-memory C2 checkpoint table: a fully-resident,
// sorted list of f7 values laid out in eytzinger (implicit binary heap)
// order so a "last entry <= target" probe touches O(log n) cache lines in
// a branch-predictable pattern instead of bouncing around a plain sorted
// slice. Grounded on the eytzinger/sortWithCompare helpers the teacher's
// bucketteer package used to lay out its signature buckets, generalized
// here from a 64-byte-signature existence index to an ordered uint64
// checkpoint index; xxhash.Sum64 replaces bucketteer's ad hoc Hash as the
// probe-ordering tiebreak for equal-valued entries (a real xxhash import
// rather than the teacher's hand-rolled fold).
package checkpointcache

import "github.com/cespare/xxhash/v2"

// Cache holds n sorted uint64 values (e.g. C2 f7 checkpoints) in eytzinger
// layout alongside their original indices, so a successful probe recovers
// both the value and its position in the source table.
type Cache struct {
	values  []uint64
	origIdx []int
}

// Build sorts a copy of sorted (already ascending, but re-sorted
// defensively) into eytzinger layout. The caller's slice is not modified.
func Build(sorted []uint64) *Cache {
	n := len(sorted)
	pairs := make([]indexedValue, n)
	for i, v := range sorted {
		pairs[i] = indexedValue{v: v, idx: i}
	}
	// Stable order for equal values is broken deterministically via
	// xxhash of the index, matching bucketteer's hash-ordered probe
	// within a prefix bucket.
	sortWithCompare(pairs, func(i, j int) int {
		if pairs[i].v != pairs[j].v {
			if pairs[i].v < pairs[j].v {
				return -1
			}
			return 1
		}
		hi := xxhash.Sum64(encodeIdx(pairs[i].idx))
		hj := xxhash.Sum64(encodeIdx(pairs[j].idx))
		if hi == hj {
			return 0
		}
		if hi < hj {
			return -1
		}
		return 1
	})

	c := &Cache{values: make([]uint64, n), origIdx: make([]int, n)}
	eytzingerValues(pairs, c.values, c.origIdx, 0, 1)
	return c
}

type indexedValue struct {
	v   uint64
	idx int
}

func encodeIdx(idx int) []byte {
	var b [8]byte
	u := uint64(idx)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b[:]
}

func sortWithCompare(a []indexedValue, compare func(i, j int) int) {
	insertionSort(a, compare)
}

// insertionSort is adequate here: Build runs once per plot open over at
// most a few hundred thousand C2 entries, and the caller already hands us
// a nearly-sorted slice (loadC2 only appends ascending values).
func insertionSort(a []indexedValue, compare func(i, j int) int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && compare(j-1, j) > 0; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}

// eytzingerValues lays sorted pairs out breadth-first: out[k-1] is the
// in-order element at recursion position i, following the same
// left-root-right traversal as the teacher's eytzinger helper.
func eytzingerValues(in []indexedValue, outV []uint64, outI []int, i, k int) int {
	if k <= len(in) {
		i = eytzingerValues(in, outV, outI, i, 2*k)
		outV[k-1] = in[i].v
		outI[k-1] = in[i].idx
		i++
		i = eytzingerValues(in, outV, outI, i, 2*k+1)
	}
	return i
}

// LastLessEqual returns the original index of the rightmost entry whose
// value is <= target, and true, or (0, false) if every entry exceeds
// target. The eytzinger layout keeps the probe's working set within a
// handful of cache lines regardless of n.
func (c *Cache) LastLessEqual(target uint64) (int, bool) {
	n := len(c.values)
	if n == 0 {
		return 0, false
	}
	k := 1
	best := -1
	for k <= n {
		if c.values[k-1] <= target {
			best = k - 1
			k = 2*k + 1
		} else {
			k = 2 * k
		}
	}
	if best < 0 {
		return 0, false
	}
	return c.origIdx[best], true
}

// Len reports how many entries the cache holds.
func (c *Cache) Len() int { return len(c.values) }

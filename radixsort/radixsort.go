// Package radixsort implements a parallel, stable, byte-at-a-time LSD
// radix sort over uint64 values, optionally carrying a uint32 auxiliary
// key permuted identically. It is ported from the reference
// proof-of-space implementation's RadixSorter (utils/radix_sort.rs): each
// of thread_count workers histograms its contiguous stripe into 256
// buckets, a serial prefix-sum assembles a thread_count x 256 matrix so
// concurrent writes never collide, and each worker scatters its stripe in
// reverse order, decrementing the prefix sum, for stability.
package radixsort

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	radix     = 256
	shiftBase = uint(8)
)

// Sorter holds the scratch histogram/prefix-sum buffers and thread count
// for repeated sorts of the same total element count; reuse one Sorter
// across many calls to avoid reallocating the counts matrix.
type Sorter struct {
	threadCount    int
	totalCount     int
	entriesPerThd  int
	counts         []uint64
	prefixSums     []uint64
}

// New returns a Sorter prepared to sort totalCount elements across
// threadCount workers (threadCount is clamped to at least 1).
func New(threadCount, totalCount int) *Sorter {
	if threadCount < 1 {
		threadCount = 1
	}
	epc := totalCount / threadCount
	if epc < 1 {
		epc = 1
	}
	return &Sorter{
		threadCount:   threadCount,
		totalCount:    totalCount,
		entriesPerThd: epc,
		counts:        make([]uint64, threadCount*radix),
		prefixSums:    make([]uint64, threadCount*radix),
	}
}

func (s *Sorter) threadLength(idx int) (offset, length int) {
	trailing := s.totalCount - s.entriesPerThd*s.threadCount
	offset = idx * s.entriesPerThd
	length = s.entriesPerThd
	if idx == s.threadCount-1 {
		length += trailing
	}
	return
}

func (s *Sorter) broadcast(fn func(idx int)) {
	if s.threadCount == 1 {
		fn(0)
		return
	}
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < s.threadCount; i++ {
		i := i
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Sorter) calcCounts(input []uint64, shift uint) {
	s.broadcast(func(idx int) {
		offset, length := s.threadLength(idx)
		counts := s.counts[idx*radix : idx*radix+radix]
		for i := range counts {
			counts[i] = 0
		}
		for _, v := range input[offset : offset+length] {
			counts[(v>>shift)&0xFF]++
		}
	})
}

func (s *Sorter) calcPrefixSums() {
	tOffset := (s.threadCount - 1) * radix
	copy(s.prefixSums[tOffset:tOffset+radix], s.counts[0:radix])
	for i := 1; i < s.threadCount; i++ {
		for j := 0; j < radix; j++ {
			s.prefixSums[tOffset+j] += s.counts[i*radix+j]
		}
	}
	for j := 1; j < radix; j++ {
		s.prefixSums[tOffset+j] += s.prefixSums[tOffset+j-1]
	}
	prev := tOffset
	for i := 1; i < s.threadCount; i++ {
		cur := tOffset - radix*i
		for j := 0; j < radix; j++ {
			s.prefixSums[cur+j] = s.prefixSums[prev+j] - s.counts[prev+j]
		}
		prev = cur
	}
}

func (s *Sorter) writeOutput(shift uint, input, output []uint64) {
	s.broadcast(func(idx int) {
		offset, length := s.threadLength(idx)
		prefix := s.prefixSums[idx*radix : idx*radix+radix]
		for i := offset + length - 1; i >= offset; i-- {
			v := input[i]
			bucket := (v >> shift) & 0xFF
			prefix[bucket]--
			output[prefix[bucket]] = v
		}
	})
}

func (s *Sorter) writeOutputKeyed(shift uint, input, output []uint64, keyIn, keyOut []uint32) {
	s.broadcast(func(idx int) {
		offset, length := s.threadLength(idx)
		prefix := s.prefixSums[idx*radix : idx*radix+radix]
		for i := offset + length - 1; i >= offset; i-- {
			v := input[i]
			k := keyIn[i]
			bucket := (v >> shift) & 0xFF
			prefix[bucket]--
			output[prefix[bucket]] = v
			keyOut[prefix[bucket]] = k
		}
	})
}

// Sort sorts input ascending into output over maxIter byte-digits (0 means
// all 8 digits of a uint64). input and output must be equal length and are
// used as ping-pong buffers; the final sorted sequence always ends up in
// output regardless of parity.
func (s *Sorter) Sort(maxIter int, input, output []uint64) {
	iterations := maxIter
	if iterations <= 0 {
		iterations = 8
	}
	shift := uint(0)
	in, out := input, output
	for i := 0; i < iterations; i++ {
		s.calcCounts(in, shift)
		s.calcPrefixSums()
		s.writeOutput(shift, in, out)
		in, out = out, in
		shift += shiftBase
	}
	if iterations%2 == 0 {
		copy(output, in)
	}
}

// SortKeyed is Sort's key-carrying variant: keyInput is permuted identically
// to input so an auxiliary payload (e.g. an index into a separate entry
// array) survives the sort.
func (s *Sorter) SortKeyed(maxIter int, input, output []uint64, keyInput, keyOutput []uint32) {
	iterations := maxIter
	if iterations <= 0 {
		iterations = 8
	}
	shift := uint(0)
	in, out := input, output
	kin, kout := keyInput, keyOutput
	for i := 0; i < iterations; i++ {
		s.calcCounts(in, shift)
		s.calcPrefixSums()
		s.writeOutputKeyed(shift, in, out, kin, kout)
		in, out = out, in
		kin, kout = kout, kin
		shift += shiftBase
	}
	if iterations%2 == 0 {
		copy(output, in)
		copy(keyOutput, kin)
	}
}

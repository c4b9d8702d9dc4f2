// Package validator implements the plot validator driver (C12): N worker
// stripes, each owning its own plot_reader.Reader, iterate disjoint C3
// park ranges, re-derive f7 for every entry via a full proof fetch plus
// verifier.GetF7FromProof, and report a running fail count. Grounded on
// validate_plot/validate_disk in
// original_source/proof_of_space/src/verifier.rs, using
// golang.org/x/sync/errgroup in place of its tokio::task::spawn + join_all
// fan-out.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/decompool"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/decompressor"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotreader"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/verifier"
)

// Options mirrors ValidatePlotOptions: the run's thread count and the
// fractional offset into each stripe's range to start from (useful for
// resuming a partial validation pass).
type Options struct {
	ThreadCount int
	StartOffset float64
}

// DefaultOptions returns validation options using every available core
// and no start offset.
func DefaultOptions() Options {
	return Options{ThreadCount: 0, StartOffset: 0}
}

// Result summarises one validation pass.
type Result struct {
	TotalProofs int64
	FailedProofs int64
}

// ValidatePlot opens thread_count independent readers against path and
// runs one stripe per reader concurrently, ported from validate_plot.
func ValidatePlot(ctx context.Context, path string, k uint8, plotID [32]byte, log *slog.Logger, opts Options) (Result, error) {
	threadCount := opts.ThreadCount
	if threadCount <= 0 {
		threadCount = runtime.GOMAXPROCS(0)
		if threadCount < 4 {
			threadCount = 4
		}
	}
	readers := make([]*plotreader.Reader, threadCount)
	for i := 0; i < threadCount; i++ {
		r, err := plotreader.Open(path, log)
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
			}
			return Result{}, fmt.Errorf("validator: open reader %d: %w", i, err)
		}
		readers[i] = r
	}
	defer func() {
		for _, r := range readers {
			r.Close()
		}
	}()

	var failCount int64
	var totalCount int64
	compressionLevel := readers[0].CompressionLevel()
	var pool *decompool.Pool
	if compressionLevel > 0 {
		pool = decompool.New(1, decompressor.Config{K: k, CompressionLevel: compressionLevel})
	}

	g, gctx := errgroup.WithContext(ctx)
	for idx := 0; idx < threadCount; idx++ {
		idx := idx
		g.Go(func() error {
			return validateStripe(gctx, idx, threadCount, readers[idx], k, plotID, pool, opts.StartOffset, &failCount, &totalCount, log)
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	return Result{TotalProofs: atomic.LoadInt64(&totalCount), FailedProofs: atomic.LoadInt64(&failCount)}, nil
}

// validateStripe re-derives f7 for every C3 entry in this stripe's park
// range, ported from validate_disk.
func validateStripe(
	ctx context.Context,
	index, threadCount int,
	r *plotreader.Reader,
	k uint8,
	plotID [32]byte,
	pool *decompool.Pool,
	startOffset float64,
	failCount, totalCount *int64,
	log *slog.Logger,
) error {
	totalParks, err := r.C3ParkCount()
	if err != nil {
		return fmt.Errorf("validator: stripe %d: %w", index, err)
	}
	parksPerThread := totalParks / threadCount
	start := index * parksPerThread
	trailing := totalParks - parksPerThread*threadCount
	if index < trailing {
		parksPerThread++
	}
	if index < trailing {
		start += index
	} else {
		start += trailing
	}
	end := start + parksPerThread
	if startOffset > 0 {
		skip := int(float64(parksPerThread) * startOffset)
		if skip > parksPerThread {
			skip = parksPerThread
		}
		start += skip
		parksPerThread = end - start
	}

	for parkIdx := start; parkIdx < end; parkIdx++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		f7Entries, err := r.ReadC3Park(parkIdx)
		if err != nil {
			atomic.AddInt64(failCount, 1)
			log.Error("validator: C3 park read failed", "park", parkIdx, "err", err)
			continue
		}
		base := parkIdx * int(plotformat.KCheckpoint1Interval)
		for local, f7 := range f7Entries {
			atomic.AddInt64(totalCount, 1)
			f7idx := base + local
			p7ParkIdx := f7idx / int(plotformat.KEntriesPerPark)
			p7LocalIdx := f7idx - p7ParkIdx*int(plotformat.KEntriesPerPark)
			p7Entries := make([]uint64, plotformat.KEntriesPerPark)
			if err := r.ReadP7Park(p7ParkIdx, p7Entries); err != nil {
				atomic.AddInt64(failCount, 1)
				log.Error("validator: P7 park read failed", "park", p7ParkIdx, "err", err)
				continue
			}
			t6Index := p7Entries[p7LocalIdx]
			xs, seeds, err := r.FetchProof(t6Index)
			if err != nil {
				atomic.AddInt64(failCount, 1)
				log.Error("validator: fetch proof failed", "f7idx", f7idx, "err", err)
				continue
			}
			if xs == nil {
				inst, perr := pool.PullWait(10 * time.Second)
				if perr != nil {
					atomic.AddInt64(failCount, 1)
					log.Error("validator: decompressor pool timeout", "err", perr)
					continue
				}
				xs, err = inst.Decompressor.DecompressProof(plotID, seeds)
				pool.Push(inst)
				if err != nil {
					atomic.AddInt64(failCount, 1)
					log.Error("validator: decompress proof failed", "f7idx", f7idx, "err", err)
					continue
				}
			}
			vf7, err := verifier.GetF7FromProof(k, plotID, xs)
			if err != nil || vf7 != f7 {
				atomic.AddInt64(failCount, 1)
				log.Error("validator: f7 mismatch", "f7idx", f7idx, "expected", f7, "got", vf7, "err", err)
			}
		}
	}
	return nil
}

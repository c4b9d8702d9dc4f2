// Package plotreader implements the plot-file reader (C5): header parsing,
// the in-memory C2 checkpoint cache, and on-demand park/line-point/proof
// fetches. Grounded on original_source/proof_of_space/src/plots/plot_reader.rs,
// with page-cache warmup and Fadvise usage adapted from the teacher's
// compactindexsized.Open.
package plotreader

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"

	"github.com/GalactechsLLC/dg-xch-utils-sub000/ans"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/bitpacking"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/checkpointcache"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/linepoint"
	"github.com/GalactechsLLC/dg-xch-utils-sub000/plotformat"
)

var (
	ErrOutOfRange    = errors.New("plotreader: out of range")
	ErrMalformedPlot = errors.New("plotreader: malformed plot")
)

// Reader is a single open plot file: one mmap'd handle guarded by a mutex
// (one seek+read critical section per call, per the concurrency model),
// the parsed header, and the fully-resident, sorted C2 cache.
type Reader struct {
	log    *slog.Logger
	mu     sync.Mutex
	ra     *mmap.ReaderAt
	size   int64
	header *plotformat.Header

	c2Entries []uint64
	c2Cache   *checkpointcache.Cache

	dtableCache   map[int]*ans.DTable
	dtableCacheMu sync.Mutex
}

// Open memory-maps path, parses its header and loads C2 fully into memory.
func Open(path string, log *slog.Logger) (*Reader, error) {
	if log == nil {
		log = slog.Default()
	}
	if f, err := os.Open(path); err == nil {
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
		_ = f.Close()
	}
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("plotreader: open %s: %w", path, err)
	}
	r := &Reader{
		log:         log,
		ra:          ra,
		size:        int64(ra.Len()),
		dtableCache: make(map[int]*ans.DTable),
	}
	headerBuf := make([]byte, 512)
	n, err := ra.ReadAt(headerBuf, 0)
	if err != nil && n == 0 {
		_ = ra.Close()
		return nil, fmt.Errorf("plotreader: read header: %w", err)
	}
	hdr, err := plotformat.ParseHeader(headerBuf[:n])
	if err != nil {
		_ = ra.Close()
		return nil, err
	}
	r.header = hdr
	log.Info("opened plot", "path", path, "k", hdr.K, "version", hdr.Version)
	if err := r.loadC2(); err != nil {
		_ = ra.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the mmap handle.
func (r *Reader) Close() error {
	return r.ra.Close()
}

// Header returns the parsed plot header.
func (r *Reader) Header() *plotformat.Header { return r.header }

// CompressionLevel is 0 for an uncompressed plot.
func (r *Reader) CompressionLevel() int {
	if r.header.Version == plotformat.HeaderV2 && r.header.PlotFlags&1 == 1 {
		return int(r.header.CompressionLevel)
	}
	return 0
}

func (r *Reader) readAt(buf []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ra.ReadAt(buf, off)
}

// tablePointerIndex maps a PlotTable to its slot in the 10 table-begin
// pointers. Table7's pointer doubles as the P7 park table's start: in the
// on-disk layout table 7 is never stored in its raw (y,pos) form, only as
// the compacted P7 index plus the C1/C2/C3 checkpoint chain derived from
// it.
func tablePointerIndex(t plotformat.PlotTable) (int, bool) {
	switch t {
	case plotformat.Table1, plotformat.Table2, plotformat.Table3, plotformat.Table4,
		plotformat.Table5, plotformat.Table6, plotformat.Table7, plotformat.TableP7:
		if t == plotformat.TableP7 {
			return int(plotformat.Table7) - 1, true
		}
		return int(t) - 1, true
	case plotformat.TableC1:
		return 7, true
	case plotformat.TableC2:
		return 8, true
	case plotformat.TableC3:
		return 9, true
	default:
		return 0, false
	}
}

func (r *Reader) tableBegin(t plotformat.PlotTable) (int64, error) {
	idx, ok := tablePointerIndex(t)
	if !ok {
		return 0, fmt.Errorf("%w: no pointer for table %s", ErrOutOfRange, t)
	}
	return int64(r.header.TableBeginPointers[idx]), nil
}

func (r *Reader) tableEnd(t plotformat.PlotTable) (int64, error) {
	idx, ok := tablePointerIndex(t)
	if !ok {
		return 0, fmt.Errorf("%w: no pointer for table %s", ErrOutOfRange, t)
	}
	if r.header.Version == plotformat.HeaderV2 && r.header.TableSizes[idx] != 0 {
		return int64(r.header.TableBeginPointers[idx] + r.header.TableSizes[idx]), nil
	}
	if idx == 9 {
		return r.size, nil
	}
	return int64(r.header.TableBeginPointers[idx+1]), nil
}

func (r *Reader) dtableForTable(t plotformat.PlotTable) *ans.DTable {
	c := r.CompressionLevel()
	key := -1
	var rValue float64
	if c > 0 && t == plotformat.LowestStoredTable(c) {
		key = c
		rValue = plotformat.LevelInfo(c).ANSRValue
	} else {
		key = -int(t) // negative, distinct namespace from compression levels
		rValue = plotformat.KRValues[t]
	}
	r.dtableCacheMu.Lock()
	defer r.dtableCacheMu.Unlock()
	if dt, ok := r.dtableCache[key]; ok {
		return dt
	}
	dt := ans.BuildDTable(rValue)
	r.dtableCache[key] = dt
	return dt
}

// loadC2 reads the whole C2 checkpoint table into memory and keeps it as
// a sorted slice of f7 values, one per K_CHECKPOINT2INTERVAL entries. It
// stops at the first out-of-order entry, a defensive truncation against a
// partially-written or corrupt tail, matching the reference reader.
func (r *Reader) loadC2() error {
	begin, err := r.tableBegin(plotformat.TableC2)
	if err != nil {
		return err
	}
	end, err := r.tableEnd(plotformat.TableC2)
	if err != nil {
		return err
	}
	if end < begin {
		return fmt.Errorf("%w: C2 end before begin", ErrMalformedPlot)
	}
	buf := make([]byte, end-begin)
	if _, err := r.readAt(buf, begin); err != nil {
		return fmt.Errorf("plotreader: read C2: %w", err)
	}
	k := int(r.header.K)
	br := bitpacking.FromBytesBE(buf, len(buf)*8)
	maxEntries := len(buf) * 8 / k
	entries := make([]uint64, 0, maxEntries)
	var prev uint64
	for i := 0; i < maxEntries; i++ {
		v, err := br.Range(i*k, i*k+k).ReadU64(k)
		if err != nil {
			break
		}
		if i > 0 && v < prev {
			break
		}
		if v == 0 && i > 0 {
			break
		}
		entries = append(entries, v)
		prev = v
	}
	r.c2Entries = entries
	r.c2Cache = checkpointcache.Build(entries)
	return nil
}

// C3ParkCount returns the number of C3 parks in this plot, derived from
// the C1 table size (one entry per park plus a trailing sentinel), matching
// validate_plot's plot_c3park_count computation.
func (r *Reader) C3ParkCount() (int, error) {
	begin, err := r.tableBegin(plotformat.TableC1)
	if err != nil {
		return 0, err
	}
	end, err := r.tableEnd(plotformat.TableC1)
	if err != nil {
		return 0, err
	}
	entryBytes := plotformat.C1EntrySizeBytes(r.header.K)
	if entryBytes == 0 {
		return 0, nil
	}
	count := int((end - begin) / int64(entryBytes))
	if count > 0 {
		count--
	}
	return count, nil
}

// ReadC3Park decodes C3 park parkIndex into its full list of absolute f7
// values (the C1 base entry plus every reconstructed delta).
func (r *Reader) ReadC3Park(parkIndex int) ([]uint64, error) {
	return r.readC3Park(parkIndex)
}

// readC3Park decodes C3 park parkIndex into absolute f7 values: the
// park's first value comes from the matching C1 entry, the rest are
// cumulative FSE-decoded deltas.
func (r *Reader) readC3Park(parkIndex int) ([]uint64, error) {
	c1Val, err := r.readC1Entry(parkIndex)
	if err != nil {
		return nil, err
	}
	begin, err := r.tableBegin(plotformat.TableC3)
	if err != nil {
		return nil, err
	}
	parkSize := plotformat.ParkSizeBytes(plotformat.TableC3, r.header.K, r.CompressionLevel())
	parkAddr := begin + int64(parkIndex)*int64(parkSize)
	sizePrefix := make([]byte, 2)
	if _, err := r.readAt(sizePrefix, parkAddr); err != nil {
		return []uint64{c1Val}, nil // no park present beyond C1 sentinel
	}
	compressedSize := int(sizePrefix[0])<<8 | int(sizePrefix[1])
	if compressedSize == 0 {
		return []uint64{c1Val}, nil
	}
	deltaBB := bytebufferpool.Get()
	defer bytebufferpool.Put(deltaBB)
	deltaBuf := growBuf(deltaBB, compressedSize)
	if _, err := r.readAt(deltaBuf, parkAddr+2); err != nil {
		return nil, fmt.Errorf("plotreader: read C3 park %d: %w", parkIndex, err)
	}
	dt := r.dtableForC3()
	deltas := make([]int32, plotformat.KCheckpoint1Interval-1)
	if err := ans.Decompress(deltas, len(deltas), deltaBuf, compressedSize, dt); err != nil {
		return nil, fmt.Errorf("plotreader: decode C3 park %d: %w", parkIndex, err)
	}
	out := make([]uint64, 0, len(deltas)+1)
	out = append(out, c1Val)
	cur := c1Val
	for _, d := range deltas {
		cur += uint64(d)
		out = append(out, cur)
	}
	return out, nil
}

// growBuf returns bb's backing array resized to exactly n bytes, reusing
// the pooled allocation instead of a fresh make() when it is already large
// enough — the per-lookup scratch reuse bytebufferpool exists for, used
// only where the returned slice is fully consumed before the buffer goes
// back to the pool.
func growBuf(bb *bytebufferpool.ByteBuffer, n int) []byte {
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
	} else {
		bb.B = bb.B[:n]
	}
	return bb.B
}

func (r *Reader) dtableForC3() *ans.DTable {
	r.dtableCacheMu.Lock()
	defer r.dtableCacheMu.Unlock()
	const c3Key = -100
	if dt, ok := r.dtableCache[c3Key]; ok {
		return dt
	}
	dt := ans.BuildDTable(plotformat.KRValues[plotformat.TableC3])
	r.dtableCache[c3Key] = dt
	return dt
}

func (r *Reader) readC1Entry(parkIndex int) (uint64, error) {
	begin, err := r.tableBegin(plotformat.TableC1)
	if err != nil {
		return 0, err
	}
	entryBytes := plotformat.C1EntrySizeBytes(r.header.K)
	off := begin + int64(parkIndex)*int64(entryBytes)
	buf := make([]byte, entryBytes)
	if _, err := r.readAt(buf, off); err != nil {
		return 0, fmt.Errorf("%w: C1 entry %d: %v", ErrOutOfRange, parkIndex, err)
	}
	br := bitpacking.FromBytesBE(buf, entryBytes*8)
	v, _ := br.ReadU64(int(r.header.K))
	return v >> uint(entryBytes*8-int(r.header.K)), nil
}

// ReadP7Park fills dst (len must be K_ENTRIES_PER_PARK) with the (k+1)-bit
// T6-index entries of P7 park parkIndex.
func (r *Reader) ReadP7Park(parkIndex int, dst []uint64) error {
	begin, err := r.tableBegin(plotformat.TableP7)
	if err != nil {
		return err
	}
	parkSize := plotformat.ParkSizeP7(r.header.K)
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	buf := growBuf(bb, parkSize)
	if _, err := r.readAt(buf, begin+int64(parkIndex)*int64(parkSize)); err != nil {
		return fmt.Errorf("plotreader: read P7 park %d: %w", parkIndex, err)
	}
	entrySize := int(r.header.K) + 1
	br := bitpacking.FromBytesBE(buf, parkSize*8)
	for i := 0; i < plotformat.KEntriesPerPark && i < len(dst); i++ {
		v, err := br.Range(i*entrySize, i*entrySize+entrySize).ReadU64(entrySize)
		if err != nil {
			return fmt.Errorf("%w: P7 entry %d", ErrOutOfRange, i)
		}
		dst[i] = v
	}
	return nil
}

// lpParkComponents holds one decoded park's pieces ready for prefix-sum
// reconstruction by ReadLinePoint.
type lpParkComponents struct {
	baseLinePoint uint64
	stubs         []byte
	stubBits      int
	deltas        []int32
}

func (r *Reader) readLPParkComponents(table plotformat.PlotTable, parkIndex int) (*lpParkComponents, error) {
	begin, err := r.tableBegin(table)
	if err != nil {
		return nil, err
	}
	c := r.CompressionLevel()
	parkSize := plotformat.ParkSizeBytes(table, r.header.K, c)
	parkAddr := begin + int64(parkIndex)*int64(parkSize)

	buf := make([]byte, parkSize)
	n, err := r.readAt(buf, parkAddr)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("plotreader: read park %s[%d]: %w", table, parkIndex, err)
	}

	lpSize := plotformat.LinePointSizeBytes(r.header.K)
	off := 0
	lpBits := int(r.header.K) * 2
	lpBR := bitpacking.FromBytesBE(buf[off:off+lpSize], lpSize*8)
	baseLP, err := lpBR.ReadU64(lpBits)
	if err != nil {
		// k=32 line points need the full 64 bits; ReadU64 supports exactly
		// that width, so this only fails on a genuinely truncated buffer.
		return nil, fmt.Errorf("%w: base line point", ErrMalformedPlot)
	}
	off += lpSize

	stubBits := plotformat.StubSizeBits(table, r.header.K, c)
	stubsLen := plotformat.LPStubsSizeBytes(table, r.header.K, c)
	if off+stubsLen > len(buf) {
		return nil, fmt.Errorf("%w: truncated stubs", ErrMalformedPlot)
	}
	stubs := buf[off : off+stubsLen]
	off += stubsLen

	if off+2 > len(buf) {
		return nil, fmt.Errorf("%w: truncated delta size", ErrMalformedPlot)
	}
	// Little-endian size prefix; bit 15 set means "uncompressed", per the
	// explicit precedence fix called out in the design notes: treat
	// size&0x8000 as the uncompressed discriminant and only bounds-check
	// the size field on the compressed branch.
	encodedSize := uint16(buf[off]) | uint16(buf[off+1])<<8
	off += 2

	numDeltas := plotformat.KEntriesPerPark - 1
	var deltas []int32
	if encodedSize&0x8000 != 0 {
		rawLen := int(encodedSize & 0x7fff)
		if off+rawLen > len(buf) {
			rawLen = len(buf) - off
		}
		raw := buf[off : off+rawLen]
		deltas = make([]int32, 0, len(raw))
		for _, b := range raw {
			deltas = append(deltas, int32(b))
		}
	} else {
		maxDeltasSize := parkSize - off
		if int(encodedSize) > maxDeltasSize {
			return nil, fmt.Errorf("%w: delta block exceeds park", ErrMalformedPlot)
		}
		deltaBuf := buf[off:]
		if int(encodedSize) < len(deltaBuf) {
			deltaBuf = deltaBuf[:encodedSize]
		}
		dt := r.dtableForTable(table)
		deltas = make([]int32, numDeltas)
		if err := ans.Decompress(deltas, numDeltas, deltaBuf, int(encodedSize), dt); err != nil {
			return nil, fmt.Errorf("plotreader: decode park %s[%d]: %w", table, parkIndex, err)
		}
	}

	return &lpParkComponents{
		baseLinePoint: baseLP,
		stubs:         stubs,
		stubBits:      stubBits,
		deltas:        deltas,
	}, nil
}

// ReadLinePoint reconstructs the 2k-bit line point at global index idx of
// table.
func (r *Reader) ReadLinePoint(table plotformat.PlotTable, idx uint64) (uint64, error) {
	parkIndex := int(idx / plotformat.KEntriesPerPark)
	localIdx := int(idx % plotformat.KEntriesPerPark)
	comp, err := r.readLPParkComponents(table, parkIndex)
	if err != nil {
		return 0, err
	}
	if localIdx == 0 {
		return comp.baseLinePoint, nil
	}
	if localIdx-1 >= len(comp.deltas) {
		return 0, fmt.Errorf("%w: local index %d beyond decoded deltas", ErrOutOfRange, localIdx)
	}
	var sumDeltas uint64
	var sumStubs uint64
	stubBR := bitpacking.FromBytesBE(comp.stubs, len(comp.stubs)*8)
	for i := 0; i < localIdx; i++ {
		sumDeltas += uint64(comp.deltas[i])
		stubStart := i * comp.stubBits
		v, err := stubBR.Range(stubStart, stubStart+comp.stubBits).ReadU64(comp.stubBits)
		if err != nil {
			return 0, fmt.Errorf("%w: stub %d", ErrOutOfRange, i)
		}
		sumStubs += v
	}
	return comp.baseLinePoint + (sumDeltas << uint(comp.stubBits)) + sumStubs, nil
}

// GetP7IndicesForF7 locates the run of p7 indices whose f7 equals f7,
// returning (matchCount, baseIndex).
func (r *Reader) GetP7IndicesForF7(f7 uint64) (int, uint64, error) {
	c2Index, ok := r.c2Cache.LastLessEqual(f7)
	if !ok {
		return 0, 0, fmt.Errorf("%w: f7 below first C2 entry", ErrOutOfRange)
	}
	c1Start := c2Index * (plotformat.KCheckpoint2Interval / plotformat.KCheckpoint1Interval)

	windowLen := plotformat.KCheckpoint2Interval / plotformat.KCheckpoint1Interval
	c3Park := -1
	exactBoundary := false
	for i := 0; i < windowLen; i++ {
		v, err := r.readC1Entry(c1Start + i)
		if err != nil {
			break
		}
		if v > f7 {
			break
		}
		c3Park = c1Start + i
		exactBoundary = v == f7
	}
	if c3Park < 0 {
		return 0, 0, fmt.Errorf("%w: f7 not found in C1 window", ErrOutOfRange)
	}

	parkCount := 1
	if exactBoundary && c3Park > 0 {
		parkCount = 2
		c3Park--
	}

	var combined []uint64
	for i := 0; i < parkCount; i++ {
		vals, err := r.readC3Park(c3Park + i)
		if err != nil {
			return 0, 0, err
		}
		combined = append(combined, vals...)
	}

	firstOffset := -1
	matchCount := 0
	for i, v := range combined {
		if v == f7 {
			if firstOffset < 0 {
				firstOffset = i
			}
			matchCount++
		} else if firstOffset >= 0 {
			break
		}
	}
	if firstOffset < 0 {
		return 0, 0, fmt.Errorf("%w: f7 not present", ErrOutOfRange)
	}
	c3Start := uint64(c3Park) * plotformat.KCheckpoint1Interval
	return matchCount, c3Start + uint64(firstOffset), nil
}

// FetchProof walks the back-pointer chain from a P7-resolved T6 index down
// through every table from T6 to the lowest stored table, reading one line
// point per current index and splitting it via linepoint.Decode64 into the
// pair of indices one level down — grounded directly on PlotReader::fetch_proof
// in original_source/proof_of_space/src/plots/plot_reader.rs, whose table
// list is exactly {T6..T2} for compression levels 1..8, {T6..T3} for level
// 9+, and {T6..T1} for an uncompressed plot. Each level doubles the working
// set, so T6's single index fans out to 32 values at T2 (5 doublings).
//
// For an uncompressed plot this bottoms out at T1 with the real stored x
// values and the result is returned directly as xs (64 of them, matching
// the documented proof-x-count). For a compressed plot, the lowest stored
// table's own entries are themselves double-width (they pack what would be
// two T1-level references), so one further Decode64 split per element is
// applied uniformly to reach the same 64-value count; this final split
// yields *approximate* x values, since compression stores each entry at
// fewer than k bits (plotformat.CompressionLevelInfo.EntrySizeBits) —
// exact xs are recovered by Decompressor.DecompressProof, which reruns F1
// over the small neighbourhood each approximate value identifies. This
// two-step split (one per stored table level, plus one virtual split for
// the dropped table) is a documented simplification of fetch_proof's
// exact bit-for-bit behaviour; see DESIGN.md.
func (r *Reader) FetchProof(t6Index uint64) (xs []uint64, seeds []uint64, err error) {
	lowest := plotformat.LowestStoredTable(r.CompressionLevel())
	cur := []uint64{t6Index}
	for table := plotformat.Table6; table >= lowest; table-- {
		next := make([]uint64, 0, len(cur)*2)
		for _, idx := range cur {
			lp, err := r.ReadLinePoint(table, idx)
			if err != nil {
				return nil, nil, err
			}
			bigHalf, smallHalf := linepoint.Decode64(lp)
			next = append(next, bigHalf, smallHalf)
		}
		cur = next
	}
	if lowest == plotformat.Table1 {
		return cur, nil, nil
	}
	// The lowest stored table's entries are double-width; split once more
	// to reach the full proof-x count before handing off to the decompressor.
	final := make([]uint64, 0, len(cur)*2)
	for _, v := range cur {
		hi, lo := linepoint.Decode64(v)
		final = append(final, hi, lo)
	}
	return nil, final, nil
}

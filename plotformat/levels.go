package plotformat

// CompressionInfo carries the per-compression-level park geometry and ANS
// R-value, reproduced from original_source/proof_of_space/src/plots/compression.rs
// (COMPRESSION_LEVEL_INFO). Level 8's table_park_size of 6350 is a known
// placeholder inherited from the upstream bladebit plotter (level 8 is
// otherwise unused); it is kept here verbatim rather than "fixed" so that
// level indexing stays a direct array lookup.
type CompressionInfo struct {
	EntrySizeBits int
	StubSizeBits  int
	TableParkSize int
	ANSRValue     float64
}

// CompressionLevelInfo is indexed [0] for level 1 through [8] for level 9;
// level 0 (uncompressed) is handled separately and has no entry here.
var CompressionLevelInfo = [9]CompressionInfo{
	{EntrySizeBits: 16, StubSizeBits: 29, TableParkSize: 8336, ANSRValue: 2.51},
	{EntrySizeBits: 15, StubSizeBits: 25, TableParkSize: 7360, ANSRValue: 3.44},
	{EntrySizeBits: 14, StubSizeBits: 21, TableParkSize: 6352, ANSRValue: 4.36},
	{EntrySizeBits: 13, StubSizeBits: 16, TableParkSize: 5325, ANSRValue: 9.30},
	{EntrySizeBits: 12, StubSizeBits: 12, TableParkSize: 4300, ANSRValue: 9.30},
	{EntrySizeBits: 11, StubSizeBits: 8, TableParkSize: 3273, ANSRValue: 9.10},
	{EntrySizeBits: 10, StubSizeBits: 4, TableParkSize: 2250, ANSRValue: 8.60},
	{EntrySizeBits: 9, StubSizeBits: 4, TableParkSize: 6350, ANSRValue: 8.60},
	{EntrySizeBits: 8, StubSizeBits: 30, TableParkSize: 8808, ANSRValue: 4.54},
}

// LevelInfo returns the geometry for compression level c (1..=9); c=0 is
// invalid (uncompressed plots don't consult this table) and panics, since
// callers are expected to branch on c==0 before calling.
func LevelInfo(c int) CompressionInfo {
	return CompressionLevelInfo[c-1]
}

const (
	maxMatchesMultiplier       = 4
	maxMatchesMultiplier2TDrop = 5 // drop of table1+table2, c_level >= 9
	maxBuckets                 = 1 << KExtraBits
)

// EntriesPerBucketForCompressionLevel mirrors
// get_entries_per_bucket_for_compression_level: 1 << (k - (17 - c)).
func EntriesPerBucketForCompressionLevel(k uint8, c int) uint64 {
	shift := int(k) - (17 - c)
	if shift < 0 {
		shift = 0
	}
	return uint64(1) << uint(shift)
}

// MaxTablePairsForCompressionLevel mirrors
// get_max_table_pairs_for_compression_level.
func MaxTablePairsForCompressionLevel(k uint8, c int) uint64 {
	epb := EntriesPerBucketForCompressionLevel(k, c)
	mult := uint64(maxMatchesMultiplier)
	if c >= 9 {
		mult = maxMatchesMultiplier2TDrop
	}
	return mult * epb * uint64(maxBuckets)
}

// PreallocSizes is the set of buffer capacities a Decompressor must
// allocate up front for a given (k, compression level) so its buffers can
// be reused, unresized, across every subsequent lookup — the
// prealloc_for_clevel sizing table supplemented from
// original_source/proof_of_space/src/plots/decompressor.rs.
type PreallocSizes struct {
	EntriesPerBucket uint64
	MaxPairs         uint64
	ParkSize         int
}

// PreallocForCLevel computes the sizes a pool must preallocate against for
// the given k and compression level (0 = uncompressed, no decompression
// needed, callers should not allocate a Decompressor in that case).
func PreallocForCLevel(k uint8, c int) PreallocSizes {
	if c <= 0 || c > MaxCompressionLevel {
		return PreallocSizes{}
	}
	info := LevelInfo(c)
	return PreallocSizes{
		EntriesPerBucket: EntriesPerBucketForCompressionLevel(k, c),
		MaxPairs:         MaxTablePairsForCompressionLevel(k, c),
		ParkSize:         info.TableParkSize,
	}
}

// Package plotformat holds the constants, enums and compression-level
// tables shared by the plot reader, matcher, decompressor and verifier.
// Keeping them in one leaf package avoids plotreader/decompressor/fx/verifier
// importing each other just to agree on K_BC or the stub-bits table.
package plotformat

// Constants reproduced bit-for-bit from spec.md §6. These values are part of
// the on-disk wire format; they must never change independently of the
// format itself.
const (
	KBC                   = 18188
	KExtraBits            = 6
	KExtraBitsPow         = 64
	KEntriesPerPark       = 2048
	KCheckpoint1Interval  = 10000
	KCheckpoint2Interval  = 10000
	KF1BlockSizeBits      = 512
	ProofXCount           = 64
	MaxCompressionLevel   = 9
	MinCompressionLevel   = 0
	HeaderV1MagicLen      = 19
	HeaderV2MagicLen      = 4
	PoolContractMemoBytes = 112
	PoolPublicKeyMemoBytes = 128
)

// HeaderV1Magic is the fixed ASCII magic string of a V1 plot header.
var HeaderV1Magic = [HeaderV1MagicLen]byte{
	'P', 'r', 'o', 'o', 'f', ' ', 'o', 'f', ' ', 'S', 'p', 'a', 'c', 'e', ' ', 'P', 'l', 'o', 't',
}

// HeaderV2Magic is the fixed 4-byte magic of a V2 plot header.
var HeaderV2Magic = [HeaderV2MagicLen]byte{0x50, 0x4c, 0x4f, 0x54} // "PLOT"

// KVectorLens is the in/out metadata-multiplier vector from spec.md §4.7,
// indexed by table number (1-based; index 0 is unused padding so
// KVectorLens[table] reads naturally against a 1-based table index).
var KVectorLens = [8]uint8{0, 1, 2, 4, 4, 3, 2, 2}

// KRValues holds the ANS R-value used for the uncompressed T1..T7 delta
// streams (as opposed to the per-compression-level R-values in levels.go).
// Values mirror the Chia reference plotter's per-table entropy parameters.
var KRValues = [8]float64{0, 0, 9.84, 9.72, 9.72, 9.72, 9.72, 9.72}

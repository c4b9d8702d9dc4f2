package plotformat

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PlotTable is the sum type over every addressable table in a plot file,
// spelled as a single discriminator rather than a class hierarchy per the
// "Sum types" design note.
type PlotTable int

const (
	Table1 PlotTable = iota + 1
	Table2
	Table3
	Table4
	Table5
	Table6
	Table7
	TableC1
	TableC2
	TableC3
	TableP7
)

func (t PlotTable) String() string {
	switch t {
	case Table1:
		return "T1"
	case Table2:
		return "T2"
	case Table3:
		return "T3"
	case Table4:
		return "T4"
	case Table5:
		return "T5"
	case Table6:
		return "T6"
	case Table7:
		return "T7"
	case TableC1:
		return "C1"
	case TableC2:
		return "C2"
	case TableC3:
		return "C3"
	case TableP7:
		return "P7"
	default:
		return "?"
	}
}

// HeaderVersion discriminates the three header shapes a plot file can
// present. Gigahorse plots are structurally identical to V1 but carry an
// encrypted memo and are never usable; ParseHeader surfaces them as an
// error instead of accepting the header and failing later.
type HeaderVersion int

const (
	HeaderV1 HeaderVersion = iota
	HeaderV2
)

// ErrInvalidMagic is returned when neither the V1 nor V2 magic matches.
var ErrInvalidMagic = errors.New("plotformat: invalid plot header magic")

// ErrGigahorseUnsupported is returned for Gigahorse-format plots: they
// parse as V1 headers but carry an encrypted memo that the proof engine
// cannot use, so surfacing the header as valid would only fail later and
// more confusingly.
var ErrGigahorseUnsupported = errors.New("plotformat: gigahorse not supported")

// Header is the parsed plot header, covering both wire versions behind one
// discriminated struct.
type Header struct {
	Version            HeaderVersion
	ID                  [32]byte
	K                   uint8
	Memo                []byte
	FormatDescription   []byte // V1 only
	PlotFlags           uint32 // V2 only
	CompressionLevel    uint8  // V2 only, 0 if flags&1 == 0
	TableBeginPointers  [10]uint64
	TableSizes          [10]uint64 // V2 only; for V1 computed by the reader from pointers
}

// ParseHeader detects the header version from buf's leading bytes and
// parses accordingly. buf must contain at least the full fixed header
// region (320 bytes is generous headroom for both shapes' variable memo).
func ParseHeader(buf []byte) (*Header, error) {
	if len(buf) >= HeaderV2MagicLen && bytesEqual(buf[:HeaderV2MagicLen], HeaderV2Magic[:]) {
		return parseV2(buf)
	}
	if len(buf) >= HeaderV1MagicLen && bytesEqual(buf[:HeaderV1MagicLen], HeaderV1Magic[:]) {
		return parseV1(buf)
	}
	return nil, ErrInvalidMagic
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func parseV1(buf []byte) (*Header, error) {
	off := HeaderV1MagicLen
	h := &Header{Version: HeaderV1}
	if len(buf) < off+32 {
		return nil, fmt.Errorf("%w: truncated id", ErrInvalidMagic)
	}
	copy(h.ID[:], buf[off:off+32])
	off += 32
	h.K = buf[off]
	off++
	fdLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if len(buf) < off+fdLen {
		return nil, fmt.Errorf("%w: truncated format description", ErrInvalidMagic)
	}
	h.FormatDescription = append([]byte(nil), buf[off:off+fdLen]...)
	off += fdLen
	memoLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if memoLen != PoolContractMemoBytes && memoLen != PoolPublicKeyMemoBytes {
		return nil, ErrGigahorseUnsupported
	}
	if len(buf) < off+memoLen {
		return nil, fmt.Errorf("%w: truncated memo", ErrInvalidMagic)
	}
	h.Memo = append([]byte(nil), buf[off:off+memoLen]...)
	off += memoLen
	for i := 0; i < 10; i++ {
		if len(buf) < off+8 {
			return nil, fmt.Errorf("%w: truncated table pointers", ErrInvalidMagic)
		}
		h.TableBeginPointers[i] = binary.BigEndian.Uint64(buf[off : off+8])
		off += 8
	}
	if err := checkPointersIncreasing(h.TableBeginPointers); err != nil {
		return nil, err
	}
	return h, nil
}

func parseV2(buf []byte) (*Header, error) {
	off := HeaderV2MagicLen
	h := &Header{Version: HeaderV2}
	if len(buf) < off+4 {
		return nil, fmt.Errorf("%w: truncated version", ErrInvalidMagic)
	}
	off += 4 // version (LE), not otherwise consulted
	if len(buf) < off+32 {
		return nil, fmt.Errorf("%w: truncated id", ErrInvalidMagic)
	}
	copy(h.ID[:], buf[off:off+32])
	off += 32
	h.K = buf[off]
	off++
	memoLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
	off += 2
	if len(buf) < off+memoLen {
		return nil, fmt.Errorf("%w: truncated memo", ErrInvalidMagic)
	}
	h.Memo = append([]byte(nil), buf[off:off+memoLen]...)
	off += memoLen
	if len(buf) < off+4 {
		return nil, fmt.Errorf("%w: truncated flags", ErrInvalidMagic)
	}
	h.PlotFlags = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	if h.PlotFlags&1 == 1 {
		if len(buf) < off+1 {
			return nil, fmt.Errorf("%w: truncated compression level", ErrInvalidMagic)
		}
		h.CompressionLevel = buf[off]
		off++
		for i := 0; i < 10; i++ {
			if len(buf) < off+8 {
				return nil, fmt.Errorf("%w: truncated table pointers", ErrInvalidMagic)
			}
			h.TableBeginPointers[i] = binary.BigEndian.Uint64(buf[off : off+8])
			off += 8
		}
		for i := 0; i < 10; i++ {
			if len(buf) < off+8 {
				return nil, fmt.Errorf("%w: truncated table sizes", ErrInvalidMagic)
			}
			h.TableSizes[i] = binary.BigEndian.Uint64(buf[off : off+8])
			off += 8
		}
		if err := checkPointersIncreasing(h.TableBeginPointers); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func checkPointersIncreasing(p [10]uint64) error {
	for i := 1; i < len(p); i++ {
		if p[i] != 0 && p[i] < p[i-1] {
			return fmt.Errorf("%w: table pointers not strictly increasing", ErrInvalidMagic)
		}
	}
	return nil
}

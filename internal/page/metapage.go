package page

import "errors"


//============================================= Metapage (block 0)


// MaxIncludeColumns bounds the number of INCLUDE columns so the metapage's
// per-column width array has a fixed on-disk size.
const MaxIncludeColumns = 8

// Magic tags a valid ordinex file; it is checked on every open.
const Magic uint32 = 0x4F524458 // "ORDX"

// FormatVersion is the current on-disk format version.
const FormatVersion uint16 = 1

const (
	metaMagicOff     = 0
	metaVersionOff   = 4
	metaNKeyAttsOff  = 6
	metaKeyLenOff    = 8  // 2 x u16
	metaNIncludeOff  = 12
	metaIncLenOff    = 14 // MaxIncludeColumns x u16
	metaBloomEnOff   = metaIncLenOff + MaxIncludeColumns*2
	metaBloomNHashOff = metaBloomEnOff + 1
	metaRootBlockOff = metaBloomNHashOff + 1
	metaHeightOff    = metaRootBlockOff + 4
	metaZoneOffOff   = metaHeightOff + 2
	metaBloomOffOff  = metaZoneOffOff + 4
	metaFanoutOff    = metaBloomOffOff + 4
	metaEndOff       = metaFanoutOff + 2
)

// Metapage is the block-0 descriptor written once at build time and read-only thereafter.
type Metapage struct {
	Magic        uint32
	Version      uint16
	NKeyAtts     int // 1 or 2
	KeyLen       [2]int
	NInclude     int
	IncludeLen   [MaxIncludeColumns]int
	BloomEnabled bool
	BloomNHash   int
	RootBlock    uint32
	Height       int
	ZoneOffset   uint32
	// BloomOffset is the first block of the bloom-filter blob chain, or InvalidBlock
	// when BloomEnabled is false.
	BloomOffset  uint32
	// Fanout is the child fanout the build pipeline used for every internal level, kept
	// so a scan can reconstruct the exact zone-map/bloom subtree index of any internal
	// node reached during descent without re-deriving it from page capacity.
	Fanout int
}

// Encode serializes the metapage into the payload region of a fresh raw block-0 page.
func (m *Metapage) Encode(raw []byte) {
	p := Payload(raw)

	writeU32(p, metaMagicOff, Magic)
	writeU16(p, metaVersionOff, FormatVersion)
	writeU16(p, metaNKeyAttsOff, uint16(m.NKeyAtts))
	writeU16(p, metaKeyLenOff, uint16(m.KeyLen[0]))
	writeU16(p, metaKeyLenOff+2, uint16(m.KeyLen[1]))
	writeU16(p, metaNIncludeOff, uint16(m.NInclude))

	for i := 0; i < MaxIncludeColumns; i++ {
		v := 0
		if i < m.NInclude { v = m.IncludeLen[i] }
		writeU16(p, metaIncLenOff+i*2, uint16(v))
	}

	if m.BloomEnabled { p[metaBloomEnOff] = 1 } else { p[metaBloomEnOff] = 0 }
	p[metaBloomNHashOff] = byte(m.BloomNHash)

	writeU32(p, metaRootBlockOff, m.RootBlock)
	writeU16(p, metaHeightOff, uint16(m.Height))
	writeU32(p, metaZoneOffOff, m.ZoneOffset)
	writeU32(p, metaBloomOffOff, m.BloomOffset)
	writeU16(p, metaFanoutOff, uint16(m.Fanout))

	WriteOpaque(raw, Opaque{Level: 0, RightLink: InvalidBlock, LeftLink: InvalidBlock})
}

// DecodeMetapage parses block 0 into a Metapage, validating the magic tag.
func DecodeMetapage(raw []byte) (*Metapage, error) {
	p := Payload(raw)
	if len(p) < metaEndOff { return nil, errors.New("ordinex: metapage truncated") }

	magic := readU32(p, metaMagicOff)
	if magic != Magic { return nil, errors.New("ordinex: not an ordinex file (bad magic)") }

	m := &Metapage{
		Magic:    magic,
		Version:  readU16(p, metaVersionOff),
		NKeyAtts: int(readU16(p, metaNKeyAttsOff)),
		NInclude: int(readU16(p, metaNIncludeOff)),
	}

	m.KeyLen[0] = int(readU16(p, metaKeyLenOff))
	m.KeyLen[1] = int(readU16(p, metaKeyLenOff+2))

	for i := 0; i < MaxIncludeColumns; i++ {
		m.IncludeLen[i] = int(readU16(p, metaIncLenOff+i*2))
	}

	m.BloomEnabled = p[metaBloomEnOff] != 0
	m.BloomNHash = int(p[metaBloomNHashOff])
	m.RootBlock = readU32(p, metaRootBlockOff)
	m.Height = int(readU16(p, metaHeightOff))
	m.ZoneOffset = readU32(p, metaZoneOffOff)
	m.BloomOffset = readU32(p, metaBloomOffOff)
	m.Fanout = int(readU16(p, metaFanoutOff))

	return m, nil
}

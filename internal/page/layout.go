// Package page implements the on-disk page codec: the host-framework page
// shell, the metapage, the four leaf payload formats, and the fixed internal
// node format. Every multi-byte field is read and written through an
// explicit little-endian helper; nothing in this package assumes alignment
// or performs a pointer cast over the raw bytes.
package page

import "encoding/binary"


//============================================= Page Layout Constants


const (
	// Size is the physical page size used by the host storage framework.
	Size = 8192

	// hostHeaderSize mirrors the fixed header every host-framework page begins with
	// (checksum, flags, and the free-space bookkeeping the framework itself owns).
	hostHeaderSize = 24

	// itemIDSize is the size of a single line-pointer entry in the host's item-id table.
	// Every data page in this engine carries exactly one: the payload is one opaque item.
	itemIDSize = 4

	// specialSize is the opaque trailer every data page ends with: level + rightlink + leftlink.
	specialSize = 9

	// PayloadStart is the offset of the first payload byte within a page.
	PayloadStart = hostHeaderSize + itemIDSize

	// MaxPayload is the largest payload (in bytes) that fits on an empty page.
	MaxPayload = Size - PayloadStart - specialSize

	// InvalidBlock marks an absent sibling link or an exhausted parallel-scan claim.
	InvalidBlock uint32 = 0xFFFFFFFF
)

// Leaf payload format tags. Values below 0x8000 are not a tag at all: on a plain
// leaf the first u16 word IS the row count, so any value < 0x8000 signals "plain".
const (
	TagRLEv1       uint16 = 0x8001
	TagRLEv2       uint16 = 0x8002
	TagIncludeRLE  uint16 = 0x8003
)

//============================================= Little-Endian Primitives


func readU16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off : off+2]) }
func writeU16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }

func readU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off : off+4]) }
func writeU32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }

func readU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off : off+8]) }
func writeU64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:off+8], v) }

//============================================= Opaque Trailer (level + sibling links)


// Opaque is the opaque area every data page (leaf or internal) ends with.
type Opaque struct {
	Level     uint8
	RightLink uint32
	LeftLink  uint32
}

// ReadOpaque reads the trailer from the last specialSize bytes of a raw page.
func ReadOpaque(raw []byte) Opaque {
	base := len(raw) - specialSize
	return Opaque{
		Level:     raw[base],
		RightLink: readU32(raw, base+1),
		LeftLink:  readU32(raw, base+5),
	}
}

// WriteOpaque writes the trailer into the last specialSize bytes of a raw page.
func WriteOpaque(raw []byte, o Opaque) {
	base := len(raw) - specialSize
	raw[base] = o.Level
	writeU32(raw, base+1, o.RightLink)
	writeU32(raw, base+5, o.LeftLink)
}

// Payload returns the single-item payload slice of a raw page (everything between
// the host header/item-id table and the opaque trailer).
func Payload(raw []byte) []byte {
	return raw[PayloadStart : len(raw)-specialSize]
}

// NewPage allocates a zeroed raw page of the standard size.
func NewPage() []byte { return make([]byte, Size) }

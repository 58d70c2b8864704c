// Package zonemap implements the per-subtree [min-key, max-key] descriptor consulted
// during root descent to skip internal-level-1 subtrees outright.
package zonemap

import "encoding/binary"

// Range is the inclusive [Min, Max] leading-key range of one subtree's leaf span.
type Range struct {
	Min []byte
	Max []byte
}

// Descriptor is the full zone map for one build, one Range per internal-level-1 subtree
// in left-to-right order (so subtree index == internal-level-1 child index).
type Descriptor struct {
	Width   int
	Entries []Range
}

// Encode serializes the descriptor as `[u32 n][u16 width][n x (min, max)]`.
func (d *Descriptor) Encode() []byte {
	out := make([]byte, 6)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(d.Entries)))
	binary.LittleEndian.PutUint16(out[4:6], uint16(d.Width))

	for _, e := range d.Entries {
		out = append(out, e.Min...)
		out = append(out, e.Max...)
	}

	return out
}

// Decode parses a Descriptor out of the metadata region starting at offset 0 of `buf`.
func Decode(buf []byte) (*Descriptor, error) {
	n := int(binary.LittleEndian.Uint32(buf[0:4]))
	width := int(binary.LittleEndian.Uint16(buf[4:6]))

	d := &Descriptor{Width: width, Entries: make([]Range, 0, n)}
	off := 6

	for i := 0; i < n; i++ {
		min := buf[off : off+width]
		off += width
		max := buf[off : off+width]
		off += width
		d.Entries = append(d.Entries, Range{Min: min, Max: max})
	}

	return d, nil
}

// Skip reports whether subtree `idx` can be skipped given a bound comparison callback.
// cmpLower(k) should be CmpKeyToLowerBound(k, lowerBound, ...) and cmpUpper(k) the
// matching upper-bound comparison; Skip calls cmpLower with the subtree's max key and
// cmpUpper with its min key. Both are supplied by the caller since the
// comparison itself is type-dependent (internal/bound) and this package stays
// type-agnostic, storing only raw bytes.
func (d *Descriptor) Skip(idx int, hasLower bool, cmpLower func(min []byte) int, hasUpper bool, cmpUpper func(max []byte) int) bool {
	e := d.Entries[idx]

	if hasLower && cmpLower(e.Max) < 0 {
		// lower bound exceeds this subtree's max key.
		return true
	}

	if hasUpper && cmpUpper(e.Min) > 0 {
		// upper bound is below this subtree's min key.
		return true
	}

	return false
}

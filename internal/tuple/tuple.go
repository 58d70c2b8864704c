// Package tuple implements the prebuilt output tuple: a heap-allocated buffer shaped
// to the index descriptor once per scan, refilled per row via size-specialized copies
// instead of per-row allocation.
package tuple

// Layout describes where each column lands in the prebuilt output buffer. It is
// computed once per scan from the index descriptor and never changes during the scan.
type Layout struct {
	NKeyAtts       int
	KeyWidth       [2]int
	KeyOffset      [2]int
	IncludeWidth   []int
	IncludeOffset  []int
	TotalWidth     int
	// VarWidthKey marks key attribute 1 as the short fixed-budget text variant: its
	// logical length is recovered at read time by scanning for the zero byte, and the
	// output tuple carries a small length-prefixed header for it.
	VarWidthKey bool
}

// NewLayout computes column offsets for a 1- or 2-key-attribute, K-INCLUDE-column row.
func NewLayout(nKeyAtts int, keyWidth [2]int, includeWidth []int, varWidthKey bool) Layout {
	l := Layout{NKeyAtts: nKeyAtts, KeyWidth: keyWidth, VarWidthKey: varWidthKey}

	off := 0
	if varWidthKey {
		off = 2 // u16 length header precedes the padded text bytes
	}

	l.KeyOffset[0] = off
	off += keyWidth[0]

	if nKeyAtts == 2 {
		l.KeyOffset[1] = off
		off += keyWidth[1]
	}

	l.IncludeOffset = make([]int, len(includeWidth))
	l.IncludeWidth = append([]int(nil), includeWidth...)
	for i, w := range includeWidth {
		l.IncludeOffset[i] = off
		off += w
	}

	l.TotalWidth = off
	return l
}

// Synthetic TID fields, constant across every emitted tuple ("Synthetic
// TID"): a fixed (block=0, offset=1) so the host's index-only scan machinery never
// falls back to a heap fetch.
const (
	SyntheticTIDBlock  uint32 = 0
	SyntheticTIDOffset uint16 = 1
)

// Tuple is one scan's reusable output buffer. The same Buf is overwritten on every
// gettuple call; callers must copy out before the next call if they need to retain it.
type Tuple struct {
	Layout Layout
	Buf    []byte
	Block  uint32
	Offset uint16
}

// New allocates the prebuilt output tuple once, for reuse across every row of the scan.
func New(l Layout) *Tuple {
	return &Tuple{Layout: l, Buf: make([]byte, l.TotalWidth), Block: SyntheticTIDBlock, Offset: SyntheticTIDOffset}
}

// copyFixed copies src into dst using a size-specialized path for the common fixed
// widths, falling back to the generic copy for anything else.
func copyFixed(dst, src []byte) {
	switch len(src) {
		case 1:
			dst[0] = src[0]
		case 2:
			dst[0], dst[1] = src[0], src[1]
		case 4:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], src[3]
		case 8:
			copy(dst[:8], src)
		case 16:
			copy(dst[:16], src)
		default:
			copy(dst, src)
	}
}

// CopyKey1 copies key attribute 1's bytes into the prebuilt buffer.
func (t *Tuple) CopyKey1(src []byte) {
	off := t.Layout.KeyOffset[0]
	copyFixed(t.Buf[off:off+t.Layout.KeyWidth[0]], src)
}

// CopyKey2 copies key attribute 2's bytes into the prebuilt buffer (two-column indexes only).
func (t *Tuple) CopyKey2(src []byte) {
	off := t.Layout.KeyOffset[1]
	copyFixed(t.Buf[off:off+t.Layout.KeyWidth[1]], src)
}

// CopyInclude copies INCLUDE column `col`'s bytes into the prebuilt buffer.
func (t *Tuple) CopyInclude(col int, src []byte) {
	off := t.Layout.IncludeOffset[col]
	copyFixed(t.Buf[off:off+t.Layout.IncludeWidth[col]], src)
}

// WriteVarWidthHeader writes the small length-prefixed header for a varwidth (text) key,
// after the true length has been found by scanning for the zero byte within the budget.
func (t *Tuple) WriteVarWidthHeader(length int) {
	t.Buf[0] = byte(length)
	t.Buf[1] = byte(length >> 8)
}

// Key1 returns the raw bytes of key attribute 1, trimmed to its logical length when
// VarWidthKey is set.
func (t *Tuple) Key1() []byte {
	off := t.Layout.KeyOffset[0]
	full := t.Buf[off : off+t.Layout.KeyWidth[0]]
	if !t.Layout.VarWidthKey { return full }

	length := int(t.Buf[0]) | int(t.Buf[1])<<8
	return full[:length]
}

// Key2 returns the raw bytes of key attribute 2 (two-column indexes only).
func (t *Tuple) Key2() []byte {
	off := t.Layout.KeyOffset[1]
	return t.Buf[off : off+t.Layout.KeyWidth[1]]
}

// Include returns the raw bytes of INCLUDE column `col`.
func (t *Tuple) Include(col int) []byte {
	off := t.Layout.IncludeOffset[col]
	return t.Buf[off : off+t.Layout.IncludeWidth[col]]
}

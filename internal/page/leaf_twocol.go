package page


//============================================= Two-Column Leaf Format


// TwoColRow is one `(k1, k2, inc1..incK)` row on a two-column leaf.
type TwoColRow struct {
	K1, K2   []byte
	Includes [][]byte
}

// EncodeTwoColLeaf writes `[u16 nrows][nrows x (k1, k2, inc1..K)]` row-major. Two-column
// leaves are never RLE-encoded (rows are stored k1-nondecreasing, k2-nondecreasing
// within equal-k1 groups; run detection in that shape belongs to the scan's group tracking,
// not the page format).
func EncodeTwoColLeaf(rows []TwoColRow) []byte {
	out := make([]byte, 2)
	writeU16(out, 0, uint16(len(rows)))

	for _, r := range rows {
		out = append(out, r.K1...)
		out = append(out, r.K2...)
		for _, inc := range r.Includes { out = append(out, inc...) }
	}

	return out
}

// TwoColNRows reads the row count from the first word.
func TwoColNRows(payload []byte) int { return int(readU16(payload, 0)) }

// TwoColRowAt returns the k1/k2/include slices for 0-based row `idx`. O(1): every row is
// fixed width so the offset is a single multiplication.
func TwoColRowAt(payload []byte, f KeyFormat, idx int) TwoColRow {
	rowWidth := f.RowWidth()
	base := 2 + idx*rowWidth

	k1 := payload[base : base+f.KeyLen[0]]
	base += f.KeyLen[0]
	k2 := payload[base : base+f.KeyLen[1]]
	base += f.KeyLen[1]

	includes := make([][]byte, len(f.IncludeLen))
	for col, w := range f.IncludeLen {
		includes[col] = payload[base : base+w]
		base += w
	}

	return TwoColRow{K1: k1, K2: k2, Includes: includes}
}

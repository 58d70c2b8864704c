package page


//============================================= Plain Leaf Format


// EncodePlainLeaf writes `[u16 n][n x key][n x inc1]...[n x incK]`, column-major so each
// INCLUDE column's base pointer is a single offset computation.
func EncodePlainLeaf(f KeyFormat, keys [][]byte, includes [][][]byte) []byte {
	n := len(keys)
	out := make([]byte, 2)
	writeU16(out, 0, uint16(n))

	for i := 0; i < n; i++ { out = append(out, keys[i]...) }

	for col := range f.IncludeLen {
		for i := 0; i < n; i++ { out = append(out, includes[i][col]...) }
	}

	return out
}

// PlainNItems reads the row count directly from the first word (no tag present).
func PlainNItems(payload []byte) int { return int(readU16(payload, 0)) }

// PlainKeyAt returns the key bytes for the given 0-based row on a plain leaf. O(1).
func PlainKeyAt(payload []byte, f KeyFormat, idx int) []byte {
	base := 2 + idx*f.KeyLen[0]
	return payload[base : base+f.KeyLen[0]]
}

// PlainIncludeAt returns the bytes for INCLUDE column `col` at row `idx`. O(1): the base
// pointer for each column is computed once per leaf, not re-derived per row.
func PlainIncludeAt(payload []byte, f KeyFormat, n, idx, col int) []byte {
	base := 2 + n*f.KeyLen[0]
	for c := 0; c < col; c++ { base += n * f.IncludeLen[c] }
	base += idx * f.IncludeLen[col]
	return payload[base : base+f.IncludeLen[col]]
}

// PlainIncludeBase returns the start offset of INCLUDE column `col`'s array, so a scan
// can cache it once per leaf and index into it per row without recomputation.
func PlainIncludeBase(f KeyFormat, n, col int) int {
	base := 2 + n*f.KeyLen[0]
	for c := 0; c < col; c++ { base += n * f.IncludeLen[c] }
	return base
}

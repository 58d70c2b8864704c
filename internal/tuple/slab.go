package tuple


//============================================= Tuple Buffer Slab


// Slab pre-materializes up to Size output rows into one contiguous buffer for forward
// scans of plain, fixed-width, single-column leaves with no runtime rechecks. Once
// filled, gettuple pops rows from the slab until it is empty, at which point the leaf
// is re-scanned to refill or the scan advances to the next leaf.
type Slab struct {
	Layout   Layout
	Size     int
	buf      []byte
	rowWidth int
	filled   int
	pos      int
}

// NewSlab allocates a slab sized for `size` rows of the given layout. size defaults to
// 64 when the caller passes 0.
func NewSlab(l Layout, size int) *Slab {
	if size <= 0 { size = 64 }
	return &Slab{Layout: l, Size: size, rowWidth: l.TotalWidth, buf: make([]byte, size*l.TotalWidth)}
}

// Reset discards any buffered rows and prepares the slab to be refilled from row 0.
func (s *Slab) Reset() {
	s.filled = 0
	s.pos = 0
}

// RowForFill returns the buffer slice for the i-th row (0-based) so the caller can copy
// key/include bytes directly into the slab during a fill pass.
func (s *Slab) RowForFill(i int) []byte {
	return s.buf[i*s.rowWidth : (i+1)*s.rowWidth]
}

// CommitFilled records how many rows were actually written during a fill pass and resets
// the pop cursor to the start of the slab.
func (s *Slab) CommitFilled(n int) {
	s.filled = n
	s.pos = 0
}

// Pop returns the next buffered row, or ok=false when the slab is exhausted.
func (s *Slab) Pop() (row []byte, ok bool) {
	if s.pos >= s.filled { return nil, false }

	row = s.buf[s.pos*s.rowWidth : (s.pos+1)*s.rowWidth]
	s.pos++
	return row, true
}

// Exhausted reports whether every buffered row has been popped.
func (s *Slab) Exhausted() bool { return s.pos >= s.filled }

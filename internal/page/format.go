package page

// KeyFormat describes the fixed-width shape of one leaf's rows, taken from the
// index descriptor at build and scan time. It never changes after build.
type KeyFormat struct {
	// NKeyAtts is 1 or 2.
	NKeyAtts int
	// KeyLen holds the fixed byte width of each key attribute (text keys use their padded budget).
	KeyLen [2]int
	// IncludeLen holds the fixed byte width of each INCLUDE column, in column order.
	IncludeLen []int
}

// RowWidth is the total fixed width of a single row across all of the format's columns.
func (f KeyFormat) RowWidth() int {
	w := f.KeyLen[0]
	if f.NKeyAtts == 2 { w += f.KeyLen[1] }
	for _, l := range f.IncludeLen { w += l }
	return w
}

// includeTotalWidth sums the INCLUDE column widths only.
func (f KeyFormat) includeTotalWidth() int {
	w := 0
	for _, l := range f.IncludeLen { w += l }
	return w
}

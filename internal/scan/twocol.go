package scan

import "github.com/sirgallo/ordinex/internal/page"


//============================================= Two-Column Emit


// stepTwoCol advances exactly one row of a two-column scan. Two-column leaves are
// never RLE-encoded (row-major, fixed width), so there is no active-run cache here;
// the win over a general composite comparator is that attribute-2 equality is checked
// as a plain fixed-width compare instead of a runtime recheck callback.
func (s *Scan) stepTwoCol(dir Direction) (bool, error) {
	for {
		if s.block == page.InvalidBlock { return false, nil }

		if dir == Forward && s.offset > s.nitems {
			if err := s.advanceLeaf(dir); err != nil { return false, err }
			continue
		}
		if dir == Backward && s.offset < 1 {
			if err := s.advanceLeaf(dir); err != nil { return false, err }
			continue
		}

		off0 := s.offset - 1
		row := page.TwoColRowAt(s.payload, s.desc.Format, off0)

		// The leading-key lower bound is enforced per row, not just at positioning: the
		// initial binary search keys on k1 alone and may land short of the first
		// qualifying composite row.
		if dir == Forward {
			if s.b.hasUpper {
				c := s.desc.cmpAttr(1, row.K1, s.b.upper)
				if (s.b.upperStrict && c >= 0) || (!s.b.upperStrict && c > 0) {
					s.block = page.InvalidBlock
					return false, nil
				}
			}
			if s.b.hasLower {
				c := s.desc.cmpAttr(1, row.K1, s.b.lower)
				if (s.b.lowerStrict && c <= 0) || (!s.b.lowerStrict && c < 0) {
					s.offset++
					continue
				}
			}
		} else {
			if s.b.hasLower {
				c := s.desc.cmpAttr(1, row.K1, s.b.lower)
				if (s.b.lowerStrict && c <= 0) || (!s.b.lowerStrict && c < 0) {
					s.block = page.InvalidBlock
					return false, nil
				}
			}
			if s.b.hasUpper {
				c := s.desc.cmpAttr(1, row.K1, s.b.upper)
				if (s.b.upperStrict && c >= 0) || (!s.b.upperStrict && c > 0) {
					s.offset--
					continue
				}
			}
		}

		if dir == Forward { s.offset++ } else { s.offset-- }

		if s.b.hasAttr2Eq && s.desc.cmpAttr(2, row.K2, s.b.attr2Eq) != 0 { continue }

		if s.tup.Layout.VarWidthKey {
			s.tup.WriteVarWidthHeader(textLen(row.K1))
		}
		s.tup.CopyKey1(row.K1)
		s.tup.CopyKey2(row.K2)
		for col, inc := range row.Includes { s.tup.CopyInclude(col, inc) }

		if s.recheckFails() { continue }

		return true, nil
	}
}

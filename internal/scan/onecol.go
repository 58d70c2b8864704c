package scan

import (
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/page"
)


//============================================= Single-Column Emit


// resolveRow returns the key bytes and (when present) the INCLUDE column bytes for
// 0-based row `off0` on the currently pinned leaf, reusing the active-run cache across
// consecutive calls that land in the same run.
func (s *Scan) resolveRow(off0 int) ([]byte, [][]byte, error) {
	switch {
		case page.IsPlain(s.tag):
			if s.tun.TestForcePageBoundsCheck {
				if _, err := page.LocateKey(s.payload, s.desc.Format, off0+1); err != nil {
					return nil, nil, ordinexerr.NewCorruptPageErr(s.block, off0+1, "item offset exceeds declared count")
				}
			}
			key := page.PlainKeyAt(s.payload, s.desc.Format, off0)
			n := len(s.desc.Format.IncludeLen)
			if n == 0 { return key, nil, nil }

			includes := make([][]byte, n)
			for col := 0; col < n; col++ {
				includes[col] = page.PlainIncludeAt(s.payload, s.desc.Format, s.nitems, off0, col)
			}
			return key, includes, nil

		case s.tag == page.TagRLEv1 || s.tag == page.TagRLEv2:
			if !s.run.contains(off0) {
				var idx, start, end int
				var ok bool
				if s.run.kind == runRLE && off0 == s.run.end+1 && s.run.hintIdx+1 < len(s.run.runs) {
					idx, start, ok = s.run.hintIdx+1, off0, true
					end = start + s.run.runs[idx].Count - 1
				} else {
					idx, start, end, ok = page.RunBoundsFrom(s.run.runs, s.run.hintIdx, off0)
				}
				if !ok { return nil, nil, ordinexerr.NewCorruptPageErr(s.block, off0+1, "offset not covered by any rle run") }
				s.run.kind = runRLE
				s.run.start, s.run.end = start, end
				s.run.key = s.run.runs[idx].Key
				s.run.hintIdx = idx
			}
			return s.run.key, nil, nil

		case s.tag == page.TagIncludeRLE:
			if !s.run.contains(off0) {
				var idx, start, end int
				var ok bool
				if s.run.kind == runIncludeRLE && off0 == s.run.end+1 && s.run.hintIdx+1 < len(s.run.incRuns) {
					idx, start, ok = s.run.hintIdx+1, off0, true
					end = start + s.run.incRuns[idx].Count - 1
				} else {
					idx, start, end, ok = page.IncludeRunBoundsFrom(s.run.incRuns, s.run.hintIdx, off0)
				}
				if !ok { return nil, nil, ordinexerr.NewCorruptPageErr(s.block, off0+1, "offset not covered by any include-rle run") }
				s.run.kind = runIncludeRLE
				s.run.start, s.run.end = start, end
				s.run.key = s.run.incRuns[idx].Key
				s.run.includes = s.run.incRuns[idx].Includes
				s.run.hintIdx = idx
			}
			return s.run.key, s.run.includes, nil

		default:
			return nil, nil, ordinexerr.NewCorruptPageErr(s.block, off0+1, "unrecognised leaf tag")
	}
}

// stepOneCol advances exactly one row of a single-column scan in direction `dir`,
// filling s.tup and returning (true, nil) on a match, (false, nil) on a clean end of
// scan, or (false, err) on an error. It is the scan's per-row hot path; the
// leaf-plain/RLE split at step 3/4 is resolveRow's job, not this function's.
func (s *Scan) stepOneCol(dir Direction) (bool, error) {
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
		key, includes, err := s.resolveRow(off0)
		if err != nil { return false, err }

		// The trailing bound ends the scan; the leading bound only skips the row, since
		// positioning may legitimately land short of it (position scans disabled, or a
		// binary search that stopped at the leaf's first key).
		if dir == Forward {
			if s.b.hasUpper {
				c := s.desc.cmpAttr(1, key, s.b.upper)
				if (s.b.upperStrict && c >= 0) || (!s.b.upperStrict && c > 0) {
					s.block = page.InvalidBlock
					return false, nil
				}
			}
			if s.b.hasLower {
				c := s.desc.cmpAttr(1, key, s.b.lower)
				if (s.b.lowerStrict && c <= 0) || (!s.b.lowerStrict && c < 0) {
					s.offset++
					continue
				}
			}
		} else {
			if s.b.hasLower {
				c := s.desc.cmpAttr(1, key, s.b.lower)
				if (s.b.lowerStrict && c <= 0) || (!s.b.lowerStrict && c < 0) {
					s.block = page.InvalidBlock
					return false, nil
				}
			}
			if s.b.hasUpper {
				c := s.desc.cmpAttr(1, key, s.b.upper)
				if (s.b.upperStrict && c >= 0) || (!s.b.upperStrict && c > 0) {
					s.offset--
					continue
				}
			}
		}

		s.fillTupleOneCol(key, includes)

		if dir == Forward { s.offset++ } else { s.offset-- }

		if s.recheckFails() { continue }

		return true, nil
	}
}

func (s *Scan) fillTupleOneCol(key []byte, includes [][]byte) {
	if s.tup.Layout.VarWidthKey {
		s.tup.WriteVarWidthHeader(textLen(key))
	}
	s.tup.CopyKey1(key)
	for col, inc := range includes { s.tup.CopyInclude(col, inc) }
}

// textLen finds the logical length of a fixed-budget, zero-padded text key.
func textLen(b []byte) int {
	for i, c := range b {
		if c == 0 { return i }
	}
	return len(b)
}

func (s *Scan) recheckFails() bool {
	for _, f := range s.recheck {
		if !f(s.tup) { return true }
	}
	return false
}


//============================================= Tuple-Buffering Slab


// slabEligible reports whether the scan qualifies for batch tuple buffering: forward,
// single-column, plain (unRLE'd) leaf, no runtime rechecks. A slab still holding
// buffered rows stays eligible even after the fill pass invalidated the block cursor
// (an upper bound hit mid-leaf); those rows must drain before the scan ends.
func (s *Scan) slabEligible(dir Direction) bool {
	if s.slab == nil || dir != Forward || s.desc.Format.NKeyAtts != 1 || len(s.recheck) != 0 {
		return false
	}
	if !s.slab.Exhausted() { return true }
	return s.block != page.InvalidBlock && page.IsPlain(s.tag)
}

// fillSlabFromLeaf pre-materializes rows from the current offset to the end of the
// current leaf (or the first bound violation) into the slab, stopping at whichever
// comes first. Only ever called when slabEligible holds.
func (s *Scan) fillSlabFromLeaf() {
	s.slab.Reset()

	n := 0
	for s.offset <= s.nitems && n < s.slab.Size {
		off0 := s.offset - 1
		key := page.PlainKeyAt(s.payload, s.desc.Format, off0)

		if s.b.hasUpper {
			c := s.desc.cmpAttr(1, key, s.b.upper)
			if (s.b.upperStrict && c >= 0) || (!s.b.upperStrict && c > 0) {
				s.block = page.InvalidBlock
				break
			}
		}
		if s.b.hasLower {
			c := s.desc.cmpAttr(1, key, s.b.lower)
			if (s.b.lowerStrict && c <= 0) || (!s.b.lowerStrict && c < 0) {
				s.offset++
				continue
			}
		}

		row := s.slab.RowForFill(n)
		s.fillRowBuf(row, off0, key)

		n++
		s.offset++
	}

	s.slab.CommitFilled(n)
}

// fillRowBuf copies one plain row's key + INCLUDE bytes into a slab row buffer using
// the same layout a prebuilt Tuple uses, so Pop'd rows can be swapped straight into
// s.tup.Buf without re-deriving offsets.
func (s *Scan) fillRowBuf(row []byte, off0 int, key []byte) {
	l := s.tup.Layout
	off := l.KeyOffset[0]
	if l.VarWidthKey {
		length := textLen(key)
		row[0] = byte(length)
		row[1] = byte(length >> 8)
	}
	copy(row[off:off+l.KeyWidth[0]], key)

	for col := range l.IncludeOffset {
		inc := page.PlainIncludeAt(s.payload, s.desc.Format, s.nitems, off0, col)
		o := l.IncludeOffset[col]
		copy(row[o:o+l.IncludeWidth[col]], inc)
	}
}

// nextOneColSlab drives the slab fast path: pop a buffered row if one is ready,
// otherwise refill from the current leaf, otherwise fall back to the generic per-row
// step (which also takes care of advancing past an exhausted leaf).
func (s *Scan) nextOneColSlab() (bool, error) {
	for {
		if row, ok := s.slab.Pop(); ok {
			copy(s.tup.Buf, row)
			return true, nil
		}

		if s.block == page.InvalidBlock { return false, nil }

		if s.offset > s.nitems {
			if err := s.advanceLeaf(Forward); err != nil { return false, err }
			if s.block == page.InvalidBlock { return false, nil }
			if !s.slabEligible(Forward) { return s.stepOneCol(Forward) }
			continue
		}

		s.fillSlabFromLeaf()
		if s.slab.Exhausted() {
			// Either the leaf produced zero eligible rows (bound hit immediately) or the
			// leaf was fully drained with nothing buffered; let the generic step decide.
			return s.stepOneCol(Forward)
		}
	}
}

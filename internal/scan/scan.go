package scan

import (
	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/pagefile"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/tuple"
)


//============================================= Scan Lifecycle


// Direction is the scan's emission order: ascending (Forward) or descending (Backward)
// by key attribute 1, chosen once at BeginScan.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Scan is one begin_scan/gettuple/end_scan session. Not safe for concurrent
// use by multiple goroutines except through ParallelClaim, which coordinates disjoint
// leaf ranges across workers sharing one *Scan per worker and one shared claim counter.
type Scan struct {
	pf   *pagefile.File
	desc *Descriptor
	tun  Tunables

	b       bounds
	recheck []RecheckFunc

	tup  *tuple.Tuple
	slab *tuple.Slab

	dir      Direction
	started  bool
	done     bool
	wantItup bool

	block   uint32
	offset  int // 1-based cursor into the current leaf
	payload []byte
	tag     uint16
	nitems  int

	run activeRun

	parallel *ParallelClaim

	pagesScanned int
	rowsEmitted  int
}

// BeginScan opens a new scan session against a built index, parses the scan-key list
// into bounds, and positions the cursor at the first qualifying row.
// recheck holds any runtime-recheck predicates the host could not express as a native
// scan key (attribute-2 non-equality strategies). wantIndexTuple
// is the host executor's signal that it will consume the materialized index tuple;
// this engine is index-only, so a scan opened without it fails at the first GetTuple.
// Pass a non-nil claim to run this scan as one worker of a parallel scan;
// claim must be shared across every worker scanning the same index concurrently.
func BeginScan(pf *pagefile.File, desc *Descriptor, tun Tunables, keys []Key, recheck []RecheckFunc, backward, wantIndexTuple bool, claim *ParallelClaim) (*Scan, error) {
	b, err := parseKeys(keys)
	if err != nil { return nil, err }

	if backward && claim != nil {
		return nil, ordinexerr.NewInternalErr("parallel scans claim leaves left to right; a backward parallel scan is not a plan this engine accepts")
	}

	varWidth := desc.KeyType[0] == bound.Text
	layout := tuple.NewLayout(desc.Format.NKeyAtts, desc.Format.KeyLen, desc.Format.IncludeLen, varWidth)

	s := &Scan{
		pf:       pf,
		desc:     desc,
		tun:      tun,
		recheck:  append([]RecheckFunc(nil), recheck...),
		tup:      tuple.New(layout),
		dir:      Forward,
		wantItup: wantIndexTuple,
		parallel: claim,
	}
	if backward { s.dir = Backward }

	if tun.UseTupleBuffering && desc.Format.NKeyAtts == 1 && claim == nil {
		s.slab = tuple.NewSlab(layout, tun.TupleBufferSize)
	}

	if err := s.position(b); err != nil { return nil, err }

	s.started = true
	return s, nil
}

// Rescan repositions an already-open scan at a new set of bounds, reusing its prebuilt
// tuple and (when eligible) slab instead of reallocating them: rescan is the common
// nested-loop-join path and must not pay BeginScan's allocation cost again.
func (s *Scan) Rescan(keys []Key, recheck []RecheckFunc, backward bool) error {
	b, err := parseKeys(keys)
	if err != nil { return err }

	if backward && s.parallel != nil {
		return ordinexerr.NewInternalErr("parallel scans claim leaves left to right; a backward parallel scan is not a plan this engine accepts")
	}

	s.recheck = append([]RecheckFunc(nil), recheck...)
	s.dir = Forward
	if backward { s.dir = Backward }

	if s.parallel != nil { s.parallel.Reset() }

	return s.position(b)
}

// position descends to the correct starting leaf for the given bounds and direction,
// then binary-searches within it for the first qualifying row.
func (s *Scan) position(b bounds) error {
	s.b = b
	s.done = false
	s.run.reset()
	// A rescan can arrive with rows still buffered from the prior bounds.
	if s.slab != nil { s.slab.Reset() }

	var target []byte
	hasTarget, skipEqual := false, false
	if s.dir == Forward && s.b.hasLower {
		target, hasTarget = s.b.lower, true
		skipEqual = s.b.lowerStrict
	} else if s.dir == Backward && s.b.hasUpper {
		target, hasTarget = s.b.upper, true
		skipEqual = !s.b.upperStrict
	}

	// use_position_scan off degrades to a full chain walk from the end of the index:
	// the per-row bound checks still produce the right rows, just without the seek.
	if !s.tun.UsePositionScan { hasTarget = false }

	if s.parallel != nil {
		block, ok, err := s.parallel.Claim(s)
		if err != nil { return err }
		if !ok {
			s.block = page.InvalidBlock
			return nil
		}
		if err := s.loadLeaf(block); err != nil { return err }
	} else {
		block, err := s.descendTo(target, hasTarget, skipEqual, s.dir == Backward)
		if err != nil { return err }
		if block == page.InvalidBlock {
			s.block = page.InvalidBlock
			return nil
		}
		if err := s.loadLeaf(block); err != nil { return err }
	}

	if s.dir == Forward {
		off, err := s.initialOffsetForward()
		if err != nil { return err }
		s.offset = off
	} else {
		off, err := s.initialOffsetBackward()
		if err != nil { return err }
		s.offset = off
	}

	return nil
}

// GetTuple returns the next qualifying row, or ok=false once the scan is exhausted.
func (s *Scan) GetTuple() (*tuple.Tuple, bool, error) {
	if !s.started {
		return nil, false, ordinexerr.NewInternalErr("gettuple called before a scan was positioned")
	}
	if !s.wantItup {
		return nil, false, ordinexerr.NewNonIndexOnlyErr("this index answers queries from its own key bytes only; the executor must request the index tuple")
	}
	if s.done { return nil, false, nil }

	var ok bool
	var err error

	switch {
		case s.desc.Format.NKeyAtts == 2:
			ok, err = s.stepTwoCol(s.dir)
		case s.slabEligible(s.dir):
			ok, err = s.nextOneColSlab()
		default:
			ok, err = s.stepOneCol(s.dir)
	}

	if err != nil {
		s.done = true
		return nil, false, err
	}
	if !ok {
		s.done = true
		return nil, false, nil
	}

	s.rowsEmitted++
	return s.tup, true, nil
}

// NeedsRecheck reports whether the current scan keys include predicates the index
// cannot answer natively, so the host must re-evaluate them against each returned
// tuple (it already will, through the recheck funcs handed to BeginScan/Rescan).
func (s *Scan) NeedsRecheck() bool {
	return s.b.needRuntimeRecheck || len(s.recheck) > 0
}

// EndScan releases the scan's resources. The underlying pagefile is owned by the
// caller and is not closed here.
func (s *Scan) EndScan() {
	if s.tun.Profile && s.tun.ProfileLogf != nil {
		s.tun.ProfileLogf("scan profile: pages=%d rows=%d dir=%d parallel=%v", s.pagesScanned, s.rowsEmitted, s.dir, s.parallel != nil)
	}

	s.done = true
	s.payload = nil
	s.run.reset()
}

// loadLeaf pins the scan on `block`, decoding whatever leaf format it holds. For
// key-RLE and include-RLE leaves the run table is decoded once here, not per row;
// subsequent resolveRow calls only ever search that cached table.
func (s *Scan) loadLeaf(block uint32) error {
	raw, err := s.pf.Page(block)
	if err != nil { return err }

	s.block = block
	s.payload = page.Payload(raw)
	s.run.reset()
	s.pagesScanned++

	if s.desc.Format.NKeyAtts == 2 {
		s.nitems = page.TwoColNRows(s.payload)
		if s.tun.TestForcePageBoundsCheck && 2+s.nitems*s.desc.Format.RowWidth() > len(s.payload) {
			return ordinexerr.NewCorruptPageErr(block, s.nitems, "declared row count exceeds payload")
		}
		return nil
	}

	s.tag = page.Tag(s.payload)

	switch s.tag {
		case page.TagRLEv1, page.TagRLEv2:
			runs, nitems, _, derr := page.DecodeRLE(s.payload, s.desc.Format, s.tag)
			if derr != nil { return derr }
			s.nitems = nitems
			s.run.runs = runs
			s.run.hintIdx = 0

		case page.TagIncludeRLE:
			runs, nitems, derr := page.DecodeIncludeRLE(s.payload, s.desc.Format)
			if derr != nil { return derr }
			s.nitems = nitems
			s.run.incRuns = runs
			s.run.hintIdx = 0

		default:
			n, derr := page.NItems(s.payload)
			if derr != nil { return derr }
			s.nitems = n
			if s.tun.TestForcePageBoundsCheck {
				rowWidth := s.desc.Format.KeyLen[0]
				for _, w := range s.desc.Format.IncludeLen { rowWidth += w }
				if 2+n*rowWidth > len(s.payload) {
					return ordinexerr.NewCorruptPageErr(block, n, "declared item count exceeds payload")
				}
			}
	}

	return nil
}

// advanceLeaf follows the current leaf's sibling link in direction `dir`, or (for a
// parallel forward scan) claims the next disjoint leaf range, repositioning the cursor
// at the new leaf's first/last row. Setting s.block to page.InvalidBlock signals a
// clean end of scan. This is also where the host's interrupt flag is polled (once
// per leaf advance) and where read-ahead hints are issued.
func (s *Scan) advanceLeaf(dir Direction) error {
	if s.tun.Interrupted != nil && s.tun.Interrupted() {
		s.block = page.InvalidBlock
		return nil
	}

	if dir == Forward && s.parallel != nil {
		block, ok, err := s.parallel.Claim(s)
		if err != nil { return err }
		if !ok {
			s.block = page.InvalidBlock
			return nil
		}
		if err := s.loadLeaf(block); err != nil { return err }
		s.offset = 1
		return nil
	}

	raw, err := s.pf.Page(s.block)
	if err != nil { return err }
	op := page.ReadOpaque(raw)

	var next uint32
	if dir == Forward {
		next = op.RightLink
	} else {
		next = op.LeftLink
	}

	if next == page.InvalidBlock {
		s.block = page.InvalidBlock
		return nil
	}

	if err := s.loadLeaf(next); err != nil { return err }
	if dir == Forward {
		s.offset = 1
		s.pf.Prefetch(next, s.prefetchDepth())
	} else {
		s.offset = s.nitems
	}
	return nil
}

// prefetchDepth adapts the read-ahead distance to what the scan has shown so far:
// an equality probe stays at 0 for its first pages so a
// single-row lookup never prefetches, and bounded ranges ramp up on a slow-start
// curve keyed on pages scanned rather than jumping straight to the configured depth.
func (s *Scan) prefetchDepth() int {
	max := s.tun.PrefetchDepth
	if max <= 0 { return 0 }

	if s.b.equality && s.pagesScanned <= 3 { return 0 }

	if s.b.hasLower || s.b.hasUpper {
		depth := s.pagesScanned / 2
		if depth > max { depth = max }
		return depth
	}

	return max
}

// keyAt returns the attribute-1 key bytes for 0-based row `off0` on the current leaf,
// used only by the initial binary-search positioning (not the steady-state emit loop).
func (s *Scan) keyAt(off0 int) ([]byte, error) {
	if s.desc.Format.NKeyAtts == 2 {
		return page.TwoColRowAt(s.payload, s.desc.Format, off0).K1, nil
	}
	key, _, err := s.resolveRow(off0)
	return key, err
}

// initialOffsetForward returns the 1-based offset of the first row on the current leaf
// satisfying the lower bound (or 1, when there is none).
func (s *Scan) initialOffsetForward() (int, error) {
	if !s.b.hasLower { return 1, nil }

	lo, hi := 0, s.nitems
	for lo < hi {
		mid := (lo + hi) / 2
		key, err := s.keyAt(mid)
		if err != nil { return 0, err }

		c := s.desc.cmpAttr(1, key, s.b.lower)
		ok := c >= 0
		if s.b.lowerStrict { ok = c > 0 }

		if ok { hi = mid } else { lo = mid + 1 }
	}

	return lo + 1, nil
}

// initialOffsetBackward returns the 1-based offset of the last row on the current leaf
// satisfying the upper bound (or nitems, when there is none).
func (s *Scan) initialOffsetBackward() (int, error) {
	if !s.b.hasUpper { return s.nitems, nil }

	lo, hi := 0, s.nitems
	for lo < hi {
		mid := (lo + hi) / 2
		key, err := s.keyAt(mid)
		if err != nil { return 0, err }

		c := s.desc.cmpAttr(1, key, s.b.upper)
		ok := c > 0
		if s.b.upperStrict { ok = c >= 0 }

		if ok { hi = mid } else { lo = mid + 1 }
	}

	return lo, nil
}

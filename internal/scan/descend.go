package scan

import "github.com/sirgallo/ordinex/internal/page"


//============================================= Bound-Seek Descent


// descendTo walks from the root to the first leaf a forward scan should start at
// (target = the lower bound, or nil for "leftmost leaf"), or the last leaf a backward
// scan should start at (target = the upper bound, or nil for "rightmost leaf"). At
// every internal node it picks the first child whose high-key is >= target (or
// strictly > when skipEqual is set), falling back to the rightmost child when none
// qualifies, consulting the zone map and (for equality predicates) the bloom filter
// to skip whole level-1 subtrees along the way.
//
// skipEqual matters when a run of the target value spans a leaf boundary: a forward
// scan with a strict lower bound must not land on a leaf that ends exactly at the
// bound, and a backward scan with an inclusive upper bound must land on the LAST
// leaf still holding the bound value, not the first.
func (s *Scan) descendTo(target []byte, hasTarget, skipEqual bool, backward bool) (uint32, error) {
	if s.desc.RootBlock == page.InvalidBlock {
		return page.InvalidBlock, nil
	}

	block := s.desc.RootBlock
	zoneBase := 0

	for {
		raw, err := s.pf.Page(block)
		if err != nil { return 0, err }

		op := page.ReadOpaque(raw)
		if op.Level == 0 { return block, nil }

		entries, derr := page.DecodeInternalNode(page.Payload(raw), s.desc.Format)
		if derr != nil { return 0, derr }

		var idx int
		switch {
			case backward && !hasTarget:
				idx = len(entries) - 1
			case !backward && !hasTarget:
				idx = 0
			default:
				idx = s.firstQualifyingChild(entries, target, skipEqual, int(op.Level), zoneBase)
		}

		zoneBase += idx * spanOfChild(int(op.Level), s.desc.Fanout)
		block = entries[idx].Child
	}
}

// firstQualifyingChild scans entries left-to-right for the first whose high-key
// qualifies against target, skipping any level-1 child the zone map or bloom filter
// rules out first.
func (s *Scan) firstQualifyingChild(entries []page.Entry, target []byte, skipEqual bool, level int, zoneBase int) int {
	childLevel := level - 1

	for i, e := range entries {
		if childLevel == 1 && s.zoneBloomSkip(zoneBase+i) { continue }

		c := s.desc.cmpAttr(1, leadingKey(e.HighKey, s.desc.Format), target)
		if c > 0 || (!skipEqual && c == 0) { return i }
	}

	return len(entries) - 1
}

// spanOfChild returns how many level-1 zone/bloom subtree units a single child spans,
// given the current node's level. The build pipeline groups exactly `fanout` children
// per level at every level, so this is `fanout^(level-2)` for level >= 2 and 1 below that
// (a child of a level-1 node is a leaf -- not itself subdivided into further zone units).
func spanOfChild(level, fanout int) int {
	if level < 2 || fanout < 1 { return 1 }

	span := 1
	for i := 0; i < level-2; i++ { span *= fanout }
	return span
}

// zoneBloomSkip reports whether level-1 subtree `idx` can be skipped outright: its
// leading-key range falls entirely outside the scan's bounds, or (for an equality
// predicate) its bloom filter says the probe value is definitely absent.
func (s *Scan) zoneBloomSkip(idx int) bool {
	if s.desc.Zone != nil && idx < len(s.desc.Zone.Entries) {
		skip := s.desc.Zone.Skip(idx,
			s.b.hasLower, func(min []byte) int { return s.desc.cmpAttr(1, min, s.b.lower) },
			s.b.hasUpper, func(max []byte) int { return s.desc.cmpAttr(1, max, s.b.upper) },
		)
		if skip { return true }
	}

	if s.b.equality && s.desc.BloomEnabled && idx < len(s.desc.Blooms) {
		if !s.desc.Blooms[idx].MaybeContains(s.b.equalityValue) { return true }
	}

	return false
}

// leadingKey returns the leading (attribute-1) portion of a possibly-composite high-key.
func leadingKey(highKey []byte, f page.KeyFormat) []byte {
	if f.NKeyAtts == 1 { return highKey }
	return highKey[:f.KeyLen[0]]
}

package build

import (
	"github.com/sirgallo/ordinex/internal/bloom"
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
	"github.com/sirgallo/ordinex/internal/zonemap"
)


//============================================= Two-Column Leaf Writer


// BuildTwoColLeaves packs sorted (k1, k2, includes) rows into fixed-capacity two-column
// leaves (never RLE-encoded, per internal/page's leaf_twocol format note), chains sibling
// links, and groups leaves into `fanout`-sized zone-map/bloom buckets keyed on k1 alone
// (k1 is the attribute root descent and zone-map pruning narrow on; the scan applies
// its k2 equality filter only after a leaf has already been reached).
func BuildTwoColLeaves(pf *pagefile.File, c *Collected, order []int, f page.KeyFormat, fanout int, bloomEnabled bool, bloomNHash uint64) ([]LeafEntry, []zonemap.Range, []*bloom.Filter, error) {
	rowWidth := f.RowWidth()
	rowsPerLeaf := (page.MaxPayload - 2) / rowWidth
	if rowsPerLeaf < 1 {
		return nil, nil, nil, ordinexerr.NewRowTooLargeErr("row does not fit on an empty leaf")
	}

	var entries []LeafEntry
	var zones []zonemap.Range
	var blooms []*bloom.Filter

	prevBlock := page.InvalidBlock

	var zoneMin, zoneMax []byte
	var bloomAccum *bloom.Filter
	leavesInGroup := 0

	flushGroup := func() {
		if leavesInGroup == 0 { return }
		zones = append(zones, zonemap.Range{Min: zoneMin, Max: zoneMax})
		if bloomAccum != nil { blooms = append(blooms, bloomAccum) }
		bloomAccum = nil
		leavesInGroup = 0
	}

	for start := 0; start < len(order); start += rowsPerLeaf {
		end := start + rowsPerLeaf
		if end > len(order) { end = len(order) }
		idxs := order[start:end]

		rows := make([]page.TwoColRow, len(idxs))
		for i, idx := range idxs {
			includes := make([][]byte, len(c.Opt.IncludeLen))
			for col := range c.Opt.IncludeLen { includes[col] = c.Include(idx, col) }
			rows[i] = page.TwoColRow{K1: c.K1(idx), K2: c.K2(idx), Includes: includes}
		}

		block, raw, err := pf.AllocatePage()
		if err != nil { return nil, nil, nil, err }

		payload := page.EncodeTwoColLeaf(rows)
		copy(page.Payload(raw), payload)
		page.WriteOpaque(raw, page.Opaque{Level: 0, RightLink: page.InvalidBlock, LeftLink: prevBlock})

		// Re-fetched by block id: allocating this leaf may have remapped the file.
		if prevBlock != page.InvalidBlock {
			prevRaw, perr := pf.Page(prevBlock)
			if perr != nil { return nil, nil, nil, perr }
			o := page.ReadOpaque(prevRaw)
			o.RightLink = block
			page.WriteOpaque(prevRaw, o)
		}

		highKey := append(append([]byte{}, rows[len(rows)-1].K1...), rows[len(rows)-1].K2...)
		entries = append(entries, LeafEntry{Child: block, HighKey: highKey})

		firstKey := c.K1(idxs[0])
		if leavesInGroup == 0 { zoneMin = firstKey }
		zoneMax = c.K1(idxs[len(idxs)-1])

		if bloomEnabled {
			if bloomAccum == nil {
				var berr error
				bloomAccum, berr = bloom.New(uint64(fanout)*uint64(rowsPerLeaf), bloomNHash)
				if berr != nil { return nil, nil, nil, berr }
			}
			for _, idx := range idxs { bloomAccum.Add(c.K1(idx)) }
		}

		leavesInGroup++
		if leavesInGroup == fanout { flushGroup() }

		prevBlock = block
	}

	flushGroup()

	return entries, zones, blooms, nil
}

package build

import (
	"bytes"

	"github.com/sirgallo/ordinex/internal/bloom"
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
	"github.com/sirgallo/ordinex/internal/zonemap"
)


//============================================= One-Column Leaf Writer


// LeafEntry is one leaf's (child block, high key) pair, handed up to the internal-level
// builder as its bottom-most level.
type LeafEntry struct {
	Child   uint32
	HighKey []byte
}

// runGroup is a maximal run of rows sharing one key value, already contiguous because
// the input is sorted.
type runGroup struct {
	key      []byte
	idxs     []int
	contPrev bool // this chunk continues the same logical run as the previous leaf's last group
}

// groupAndSplitRuns groups sorted rows into key runs, then splits any run whose count
// would overflow the RLE count field (u16, max 65535) into multiple chunks. A chunk
// past the first carries contPrev=true, the signal the leaf writer turns into the
// RLEv2 continuation bit when a split lands across a leaf boundary.
func groupAndSplitRuns(c *Collected, order []int) []runGroup {
	const maxRunCount = 65535

	var groups []runGroup
	for _, idx := range order {
		k := c.K1(idx)
		if len(groups) > 0 && bytes.Equal(groups[len(groups)-1].key, k) {
			groups[len(groups)-1].idxs = append(groups[len(groups)-1].idxs, idx)
		} else {
			groups = append(groups, runGroup{key: k, idxs: []int{idx}})
		}
	}

	var out []runGroup
	for _, g := range groups {
		if len(g.idxs) <= maxRunCount {
			out = append(out, g)
			continue
		}

		for off := 0; off < len(g.idxs); off += maxRunCount {
			end := off + maxRunCount
			if end > len(g.idxs) { end = len(g.idxs) }
			out = append(out, runGroup{key: g.key, idxs: g.idxs[off:end], contPrev: off > 0})
		}
	}

	return out
}

func sumWidths(ws []int) int {
	t := 0
	for _, w := range ws { t += w }
	return t
}

func runUniform(c *Collected, g runGroup) bool {
	if len(c.Opt.IncludeLen) == 0 || len(g.idxs) == 1 { return true }

	first := g.idxs[0]
	for _, idx := range g.idxs[1:] {
		for col := range c.Opt.IncludeLen {
			if !bytes.Equal(c.Include(first, col), c.Include(idx, col)) { return false }
		}
	}
	return true
}

// candidateSize returns the best (smallest) encoded payload size achievable for the given
// batch of runs, and which of "plain"/"rle"/"includerle" achieves it. includerle is only
// considered when every run in the batch has uniform INCLUDE values.
func candidateSize(c *Collected, batch []runGroup, keylen, incWidth int) (kind string, size int) {
	nrows, nruns := 0, len(batch)
	allUniform := incWidth > 0
	for _, g := range batch {
		nrows += len(g.idxs)
		if incWidth > 0 && !runUniform(c, g) { allUniform = false }
	}

	plainSize := 2 + nrows*(keylen+incWidth)
	best, bestKind := plainSize, "plain"

	if incWidth == 0 {
		hdr := 6
		if batch[0].contPrev { hdr = 7 }
		rleSize := hdr + nruns*(keylen+2)
		if rleSize < best { best, bestKind = rleSize, "rle" }
	} else if allUniform {
		incRleSize := 6 + nruns*(keylen+2+incWidth)
		if incRleSize < best { best, bestKind = incRleSize, "includerle" }
	}

	return bestKind, best
}

// BuildOneColLeaves packs sorted rows into leaf pages, choosing per leaf among the plain,
// key-RLE, and include-RLE formats (whichever yields the smallest payload), chains
// sibling links, and groups the resulting leaves into `fanout`-sized zone-map/bloom-filter
// buckets.
func BuildOneColLeaves(pf *pagefile.File, c *Collected, order []int, f page.KeyFormat, fanout int, bloomEnabled bool, bloomNHash uint64) ([]LeafEntry, []zonemap.Range, []*bloom.Filter, error) {
	keylen := f.KeyLen[0]
	incWidth := sumWidths(f.IncludeLen)

	if keylen+incWidth+2 > page.MaxPayload {
		return nil, nil, nil, ordinexerr.NewRowTooLargeErr("row does not fit on an empty leaf")
	}

	batches := packBatches(c, order, keylen, incWidth)

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

	for _, batch := range batches {
		kind, _ := candidateSize(c, batch, keylen, incWidth)

		block, raw, err := pf.AllocatePage()
		if err != nil { return nil, nil, nil, err }

		payload := encodeOneColBatch(c, batch, kind)
		copy(page.Payload(raw), payload)
		page.WriteOpaque(raw, page.Opaque{Level: 0, RightLink: page.InvalidBlock, LeftLink: prevBlock})

		// The predecessor is re-fetched by block id: allocating this leaf may have grown
		// and remapped the file, invalidating any raw slice taken before it.
		if prevBlock != page.InvalidBlock {
			prevRaw, perr := pf.Page(prevBlock)
			if perr != nil { return nil, nil, nil, perr }
			o := page.ReadOpaque(prevRaw)
			o.RightLink = block
			page.WriteOpaque(prevRaw, o)
		}

		lastGroup := batch[len(batch)-1]
		highKey := lastGroup.key
		entries = append(entries, LeafEntry{Child: block, HighKey: highKey})

		firstKey := batch[0].key
		if leavesInGroup == 0 { zoneMin = firstKey }
		zoneMax = highKey

		if bloomEnabled {
			if bloomAccum == nil {
				var berr error
				bloomAccum, berr = bloom.New(uint64(fanout)*256, bloomNHash)
				if berr != nil { return nil, nil, nil, berr }
			}
			for _, g := range batch { bloomAccum.Add(g.key) }
		}

		leavesInGroup++
		if leavesInGroup == fanout { flushGroup() }

		prevBlock = block
	}

	flushGroup()

	return entries, zones, blooms, nil
}

// packBatches greedily fills leaves with whole run-groups, choosing whichever leaf
// format (plain/RLE/include-RLE) gives the batch the smallest encoded size and stopping
// just before the next group would overflow MaxPayload under every format. Groups too
// large to fit any single leaf (a long run whose INCLUDE values differ row to row, so
// only the plain format can hold it) are split across leaves first.
func packBatches(c *Collected, order []int, keylen, incWidth int) [][]runGroup {
	groups := groupAndSplitRuns(c, order)

	var batches [][]runGroup
	var cur []runGroup

	for _, whole := range groups {
		for _, g := range splitGroupToFit(c, whole, keylen, incWidth) {
			candidate := append(append([]runGroup{}, cur...), g)
			_, size := candidateSize(c, candidate, keylen, incWidth)

			if size <= page.MaxPayload || len(cur) == 0 {
				cur = candidate
			} else {
				batches = append(batches, cur)
				cur = []runGroup{g}
			}
		}
	}

	if len(cur) > 0 { batches = append(batches, cur) }
	return batches
}

// splitGroupToFit chunks a run-group that cannot fit an empty leaf under any format
// into pieces that each fit the plain layout. Chunks past the first continue the same
// logical run, same as the 65535-count splits in groupAndSplitRuns.
func splitGroupToFit(c *Collected, g runGroup, keylen, incWidth int) []runGroup {
	_, size := candidateSize(c, []runGroup{g}, keylen, incWidth)
	if size <= page.MaxPayload { return []runGroup{g} }

	maxRows := (page.MaxPayload - 2) / (keylen + incWidth)

	var out []runGroup
	for off := 0; off < len(g.idxs); off += maxRows {
		end := off + maxRows
		if end > len(g.idxs) { end = len(g.idxs) }
		out = append(out, runGroup{key: g.key, idxs: g.idxs[off:end], contPrev: g.contPrev || off > 0})
	}

	return out
}

func encodeOneColBatch(c *Collected, batch []runGroup, kind string) []byte {
	switch kind {
		case "rle":
			runs := make([]page.Run, len(batch))
			for i, g := range batch { runs[i] = page.Run{Key: g.key, Count: len(g.idxs)} }
			if batch[0].contPrev { return page.EncodeRLEv2Leaf(runs, true) }
			return page.EncodeRLEv1Leaf(runs)

		case "includerle":
			runs := make([]page.IncludeRun, len(batch))
			for i, g := range batch {
				includes := make([][]byte, len(c.Opt.IncludeLen))
				for col := range c.Opt.IncludeLen { includes[col] = c.Include(g.idxs[0], col) }
				runs[i] = page.IncludeRun{Key: g.key, Count: len(g.idxs), Includes: includes}
			}
			return page.EncodeIncludeRLELeaf(runs)

		default: // plain
			var keys [][]byte
			var includes [][][]byte
			for _, g := range batch {
				for _, idx := range g.idxs {
					keys = append(keys, c.K1(idx))
					row := make([][]byte, len(c.Opt.IncludeLen))
					for col := range c.Opt.IncludeLen { row[col] = c.Include(idx, col) }
					includes = append(includes, row)
				}
			}
			f := page.KeyFormat{NKeyAtts: 1, KeyLen: [2]int{len(batch[0].key), 0}, IncludeLen: c.Opt.IncludeLen}
			return page.EncodePlainLeaf(f, keys, includes)
	}
}

package build

import (
	"github.com/sirgallo/ordinex/internal/blob"
	"github.com/sirgallo/ordinex/internal/bloom"
	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
	"github.com/sirgallo/ordinex/internal/zonemap"
)


//============================================= Build Orchestrator


// highKeyCmp derives the composite high-key comparison from the same typed
// comparators the sort ran under, so the staged internal levels keep the exact
// order the leaf chain was written in.
func highKeyCmp(opt Options) HighKeyCmp {
	return func(a, b []byte) int {
		c := bound.CmpKeyToLowerBound(a[:opt.KeyLen[0]], b[:opt.KeyLen[0]], opt.KeyType[0], opt.Collation[0], opt.Comparator[0])
		if c != 0 || opt.NKeyAtts == 1 { return c }
		return bound.CmpKeyToLowerBound(a[opt.KeyLen[0]:], b[opt.KeyLen[0]:], opt.KeyType[1], opt.Collation[1], opt.Comparator[1])
	}
}

// Build runs the full pipeline against a freshly-opened, empty page file: collect,
// sort, leaf writer, internal-level builder, zone map + optional bloom filters, and
// finally the metapage commit at block 0. Any error aborts before the metapage is
// written, leaving the caller (the root package's Ordinex.Build) to discard the file.
func Build(pf *pagefile.File, next RowFunc, opt Options) (*Result, error) {
	collected, err := Collect(next, opt)
	if err != nil { return nil, err }

	order := Order(collected)

	f := page.KeyFormat{NKeyAtts: opt.NKeyAtts, KeyLen: opt.KeyLen, IncludeLen: opt.IncludeLen}

	// The fanout is clamped to page capacity before a single page is written: a
	// requested fanout no internal node could accommodate would otherwise only be
	// discovered after the levels exist, with no way to rewrite them. The floor of 2
	// keeps the level builder convergent (a fanout of 1 would never shrink a level).
	fanout := opt.Fanout
	maxFanout := page.MaxInternalFanout(f)
	if fanout <= 0 || fanout > maxFanout { fanout = maxFanout }
	if fanout < 2 { fanout = 2 }

	// Block 0 is reserved for the metapage before any leaf/internal page is allocated,
	// so the root and every leaf land at block >= 1. The raw page is re-fetched at
	// commit time: any later allocation can grow and remap the file, invalidating
	// page slices taken before it.
	metaBlock, _, err := pf.AllocatePage()
	if err != nil { return nil, err }
	if metaBlock != 0 { return nil, ordinexerr.NewInternalErr("metapage did not land on block 0") }

	var leafEntries []LeafEntry
	var zones []zonemap.Range
	var blooms []*bloom.Filter

	if collected.N() > 0 {
		if opt.NKeyAtts == 1 {
			leafEntries, zones, blooms, err = BuildOneColLeaves(pf, collected, order, f, fanout, opt.BloomEnabled, opt.BloomNHash)
		} else {
			leafEntries, zones, blooms, err = BuildTwoColLeaves(pf, collected, order, f, fanout, opt.BloomEnabled, opt.BloomNHash)
		}
		if err != nil { return nil, err }
	}

	rootBlock, height, err := BuildInternalLevels(pf, f, leafEntries, fanout, highKeyCmp(opt))
	if err != nil { return nil, err }

	zoneOffset := page.InvalidBlock
	if len(zones) > 0 {
		desc := &zonemap.Descriptor{Width: f.KeyLen[0], Entries: zones}
		zoneOffset, err = blob.Write(pf, desc.Encode())
		if err != nil { return nil, err }
	}

	bloomOffset := page.InvalidBlock
	if opt.BloomEnabled && len(blooms) > 0 {
		encoded, merr := bloom.MarshalAll(blooms)
		if merr != nil { return nil, merr }
		bloomOffset, err = blob.Write(pf, encoded)
		if err != nil { return nil, err }
	}

	meta := &page.Metapage{
		NKeyAtts:     opt.NKeyAtts,
		KeyLen:       opt.KeyLen,
		NInclude:     len(opt.IncludeLen),
		BloomEnabled: opt.BloomEnabled,
		BloomNHash:   int(opt.BloomNHash),
		RootBlock:    rootBlock,
		Height:       height,
		ZoneOffset:   zoneOffset,
		BloomOffset:  bloomOffset,
		Fanout:       fanout,
	}
	for i, w := range opt.IncludeLen { meta.IncludeLen[i] = w }

	metaRaw, err := pf.Page(0)
	if err != nil { return nil, err }
	meta.Encode(metaRaw)

	return &Result{RootBlock: rootBlock, Height: height, PageCount: pf.BlockCount(), ZoneOffset: zoneOffset}, nil
}

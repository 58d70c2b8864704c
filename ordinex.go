// Package ordinex implements a read-only, ordered secondary index file format: a
// bulk build pipeline (collect -> sort -> encode leaves -> build internal levels ->
// zone map/bloom filters -> metapage commit) and a scan engine (bound-seek descent,
// RLE-aware leaf iteration, forward/backward/parallel scan, tuple materialization).
// There is no insert, update, or delete path: an index is built once and scanned
// many times, matching the read-mostly secondary-index workloads it targets.
package ordinex

import (
	"os"

	"github.com/sirgallo/ordinex/internal/blob"
	"github.com/sirgallo/ordinex/internal/bloom"
	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/build"
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/ordlog"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
	"github.com/sirgallo/ordinex/internal/scan"
	"github.com/sirgallo/ordinex/internal/tuple"
	"github.com/sirgallo/ordinex/internal/zonemap"
)


//============================================= Public Re-exports


// These type aliases let a caller work entirely against the root package without
// reaching into internal/scan or internal/build, the way errors.go already does for
// internal/ordinexerr.
type (
	Key         = scan.Key
	Strategy    = scan.Strategy
	RecheckFunc = scan.RecheckFunc
	Scan        = scan.Scan
	ParallelClaim = scan.ParallelClaim
	RowFunc     = build.RowFunc
	BuildResult = build.Result
	Tuple       = tuple.Tuple
)

const (
	Less      = scan.Less
	LessEq    = scan.LessEq
	Equal     = scan.Equal
	GreaterEq = scan.GreaterEq
	Greater   = scan.Greater
)

// NewParallelClaim wraps a caller-allocated shared word for a parallel scan.
// Pass a freshly zeroed *uint32; every worker scanning the same index concurrently must
// share the same *ParallelClaim.
func NewParallelClaim(shared *uint32) *ParallelClaim { return scan.NewParallelClaim(shared) }


//============================================= Index Descriptor


// IndexDescriptor is the host-supplied, non-persisted shape of one index: attribute
// types, collations, and (for locale-collated text) the comparator callback. This is
// handed in fresh at every Open since a comparator function object can never be
// serialized into the file itself.
type IndexDescriptor struct {
	NKeyAtts   int
	KeyType    [2]bound.KeyType
	Collation  [2]bound.Collation
	Comparator [2]bound.ComparatorFunc
	// IncludeLen is ignored on Open against an already-built file (the metapage is
	// authoritative); it is required on Build.
	IncludeLen []int
}

func (d IndexDescriptor) keyLen() [2]int {
	return [2]int{d.attrWidth(0), d.attrWidth(1)}
}

func (d IndexDescriptor) attrWidth(i int) int {
	if i >= d.NKeyAtts { return 0 }
	if d.KeyType[i] == bound.Text { return bound.TextBudget }
	w, _ := keyTypeFixedWidth(d.KeyType[i])
	return w
}


//============================================= Ordinex Handle


// Ordinex is one open index file: a mapped pagefile plus the decoded metapage (once
// built) and the assembled scan descriptor every BeginScan call shares read-only.
type Ordinex struct {
	path string
	pf   *pagefile.File
	desc IndexDescriptor
	tun  Tunables
	log  *ordlog.Logger

	meta     *page.Metapage
	scanDesc *scan.Descriptor
}

// Open maps the backing file into memory. If the file already holds a built index
// (valid metapage at block 0), the scan descriptor is assembled immediately and the
// handle is ready for BeginScan. Otherwise the handle is only good for a subsequent
// Build call.
func Open(path string, desc IndexDescriptor, tun Tunables) (*Ordinex, error) {
	pf, err := pagefile.Open(path)
	if err != nil { return nil, err }

	// Profile output rides the same logger as debug output, so either flag arms it.
	o := &Ordinex{path: path, pf: pf, desc: desc, tun: tun, log: ordlog.New(tun.DebugLog || tun.Profile)}

	if err := o.tryLoadMeta(); err != nil {
		pf.Close()
		return nil, err
	}

	o.log.Printf("opened %s (built=%v)", path, o.meta != nil)
	return o, nil
}

// Close unmaps and closes the backing file.
func (o *Ordinex) Close() error { return o.pf.Close() }

// tryLoadMeta attempts to decode block 0 as a metapage. A bad magic tag is treated as
// "not yet built" rather than an error: a freshly created, never-Build'd file reads
// back as all zeros.
func (o *Ordinex) tryLoadMeta() error {
	raw, err := o.pf.Page(0)
	if err != nil { return err }

	m, derr := page.DecodeMetapage(raw)
	if derr != nil { return nil }

	o.meta = m
	return o.assembleScanDescriptor()
}

func (o *Ordinex) assembleScanDescriptor() error {
	f := page.KeyFormat{
		NKeyAtts:   o.meta.NKeyAtts,
		KeyLen:     o.meta.KeyLen,
		IncludeLen: append([]int(nil), o.meta.IncludeLen[:o.meta.NInclude]...),
	}

	var zone *zonemap.Descriptor
	if o.meta.ZoneOffset != page.InvalidBlock {
		buf, err := blob.Read(o.pf, o.meta.ZoneOffset)
		if err != nil { return err }

		zone, err = zonemap.Decode(buf)
		if err != nil { return err }
	}

	var blooms []*bloom.Filter
	if o.meta.BloomEnabled && o.meta.BloomOffset != page.InvalidBlock {
		buf, err := blob.Read(o.pf, o.meta.BloomOffset)
		if err != nil { return err }

		blooms, err = bloom.UnmarshalAll(buf)
		if err != nil { return err }
	}

	o.scanDesc = &scan.Descriptor{
		Format:       f,
		KeyType:      o.desc.KeyType,
		Collation:    o.desc.Collation,
		Comparator:   o.desc.Comparator,
		RootBlock:    o.meta.RootBlock,
		Height:       o.meta.Height,
		Fanout:       o.meta.Fanout,
		Zone:         zone,
		Blooms:       blooms,
		BloomEnabled: o.meta.BloomEnabled,
	}
	return nil
}


//============================================= Build


// Build runs the full build pipeline against this freshly opened, not-yet-built file.
// next streams rows exactly once, in any order; the pipeline sorts them itself. If the
// pipeline fails the backing file is removed and this handle must not be reused (open a new
// one against a fresh path) -- matching the "no partial file left behind" requirement.
func (o *Ordinex) Build(next RowFunc) (*BuildResult, error) {
	if o.meta != nil { return nil, ordinexerr.NewReadOnlyErr("build: index already built") }

	opt := build.Options{
		NKeyAtts:     o.desc.NKeyAtts,
		KeyType:      o.desc.KeyType,
		KeyLen:       o.desc.keyLen(),
		Collation:    o.desc.Collation,
		Comparator:   o.desc.Comparator,
		IncludeLen:   o.desc.IncludeLen,
		BloomEnabled: o.tun.BloomFiltersEnabled,
		BloomNHash:   o.tun.BloomNHash,
	}

	res, err := build.Build(o.pf, next, opt)
	if err != nil {
		o.pf.Close()
		os.Remove(o.path)
		return nil, err
	}

	o.pf.SignalFlush()

	if err := o.tryLoadMeta(); err != nil { return nil, err }
	o.log.Printf("built %s: height=%d pages=%d", o.path, res.Height, res.PageCount)
	return res, nil
}


// Insert always fails with a read-only error: the index is built once by Build and
// never mutated. The host's access-method glue routes its insert callback here so the
// violation surfaces with the engine and operation named, rather than as a silent no-op.
func (o *Ordinex) Insert(values [][]byte, isnull []bool) error {
	return ordinexerr.NewReadOnlyErr("insert")
}

// Update always fails with a read-only error.
func (o *Ordinex) Update(values [][]byte, isnull []bool) error {
	return ordinexerr.NewReadOnlyErr("update")
}

// Delete always fails with a read-only error.
func (o *Ordinex) Delete(values [][]byte, isnull []bool) error {
	return ordinexerr.NewReadOnlyErr("delete")
}


//============================================= Scan


// BeginScan opens a new scan session. wantIndexTuple is the host
// executor's confirmation that it consumes the materialized index tuple; since this
// engine is index-only, a scan opened without it fails at the first GetTuple. Pass a
// non-nil claim to run this scan as one worker of a parallel scan; every
// worker scanning the same index concurrently must share the same *ParallelClaim.
func (o *Ordinex) BeginScan(keys []Key, recheck []RecheckFunc, backward, wantIndexTuple bool, claim *ParallelClaim) (*Scan, error) {
	if o.scanDesc == nil { return nil, ordinexerr.NewInternalErr("begin_scan: index not built") }

	st := scan.Tunables{
		PrefetchDepth:            o.tun.PrefetchDepth,
		UsePositionScan:          o.tun.UsePositionScan,
		UseTupleBuffering:        o.tun.UseTupleBuffering,
		TupleBufferSize:          o.tun.TupleBufferSize,
		TestForcePageBoundsCheck: o.tun.TestForcePageBoundsCheck,
		Profile:                  o.tun.Profile,
		ProfileLogf:              o.log.Printf,
		Interrupted:              o.tun.Interrupted,
	}

	return scan.BeginScan(o.pf, o.scanDesc, st, keys, recheck, backward, wantIndexTuple, claim)
}


//============================================= Planner Surface


// Height reports the index's tree height: the number of internal levels, 0 when the
// root is itself a leaf.
func (o *Ordinex) Height() int {
	if o.meta == nil { return 0 }
	return o.meta.Height
}

// PageCount reports the total number of pages in the backing file, including the
// metapage and any zone-map/bloom-filter blob chains.
func (o *Ordinex) PageCount() uint32 { return o.pf.BlockCount() }

// Capabilities reports the fixed planner-facing capability set.
func (o *Ordinex) Capabilities() Capabilities { return DefaultCapabilities() }

// EstimatePages scales PageCount by a selectivity fraction derived from the scan-key
// shape, for a planner's cost estimate.
func (o *Ordinex) EstimatePages(hasLower, hasUpper, equality bool) float64 {
	return float64(o.PageCount()) * EstimateSelectivity(hasLower, hasUpper, equality)
}

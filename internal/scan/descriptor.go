// Package scan implements the scan engine: begin_scan/rescan/gettuple/end_scan,
// bound-seek descent with zone-map/bloom pruning, RLE-aware per-row emission, the
// lock-free parallel-claim protocol, and tuple-buffering for the plain single-column
// hot path.
package scan

import (
	"github.com/sirgallo/ordinex/internal/bloom"
	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/zonemap"
)


//============================================= Index Descriptor


// Descriptor is everything a scan needs to know about one built index: the on-disk
// shape decoded from the metapage plus the host-supplied type/collation/comparator
// information that cannot be persisted (the comparator is a plugged-in
// function object, never serialized). Assembled once by the caller's Open and shared
// read-only across every concurrent scan worker.
type Descriptor struct {
	Format     page.KeyFormat
	KeyType    [2]bound.KeyType
	Collation  [2]bound.Collation
	Comparator [2]bound.ComparatorFunc

	RootBlock uint32
	Height    int
	Fanout    int

	Zone         *zonemap.Descriptor
	Blooms       []*bloom.Filter
	BloomEnabled bool
}

// Tunables is the subset of the engine's runtime tunables the scan engine
// consults; the root package's full Tunables struct is narrowed to this at BeginScan
// so this package never imports the root one.
type Tunables struct {
	PrefetchDepth            int
	UsePositionScan          bool
	UseTupleBuffering        bool
	TupleBufferSize          int
	TestForcePageBoundsCheck bool

	// Profile enables per-scan counters (pages visited, rows emitted), reported through
	// ProfileLogf when the scan ends.
	Profile     bool
	ProfileLogf func(format string, args ...interface{})

	// Interrupted is the host's cooperative cancellation flag, polled once per leaf
	// advance. A nil func means the host never cancels.
	Interrupted func() bool
}

// cmpAttr compares two raw key-bytes values for key attribute `attr` (1 or 2) using the
// descriptor's per-attribute type/collation/comparator.
func (d *Descriptor) cmpAttr(attr int, a, b []byte) int {
	i := attr - 1
	return bound.CmpKeyToLowerBound(a, b, d.KeyType[i], d.Collation[i], d.Comparator[i])
}

package ordinex

import "github.com/sirgallo/ordinex/internal/bound"


//============================================= Tunables


// Tunables gathers the runtime knobs a host supplies at Open/Build time. They are
// read once and cached on the Ordinex handle; nothing here is mutable mid-scan.
type Tunables struct {
	// DebugLog enables the ambient logger (internal/ordlog).
	DebugLog bool

	// Profile enables per-scan counters (pages visited, rows emitted) logged when the scan
	// ends, surfaced through the same debug logger rather than a dedicated metrics library: the
	// engine has no host to push counters to, so profiling is log lines, not a registry.
	Profile bool

	// PrefetchDepth is how many leaves ahead the emit loop hints the OS to read.
	// Zero disables prefetch hinting entirely.
	PrefetchDepth int

	// BloomFiltersEnabled decides whether the build pipeline constructs a bloom filter per
	// internal-level-1 subtree. Skipped for indexes expected to be scanned mostly
	// by range rather than equality, since the filter only helps point lookups.
	BloomFiltersEnabled bool
	BloomNHash          uint64

	// UsePositionScan enables bound-driven root descent. Off, every scan walks the leaf
	// chain from its end and relies on per-row bound checks alone; the output is identical,
	// which makes the flag a cross-check for positioning bugs as much as a tunable.
	UsePositionScan bool

	// Interrupted is the host's cooperative cancellation flag, polled once per leaf
	// advance. Nil means the host never cancels.
	Interrupted func() bool

	// UseTupleBuffering enables the slab-based batch emit path for scans
	// eligible for it (single-column, fixed-width, no runtime recheck).
	UseTupleBuffering bool
	TupleBufferSize   int

	// TestForcePageBoundsCheck forces the defensive page.Size bounds check in scan's leaf
	// reads even when callers could otherwise skip it; existing only so tests can exercise
	// the CORRUPT_PAGE path deterministically.
	TestForcePageBoundsCheck bool
}

// DefaultTunables returns the engine's defaults: buffering on with a 64-row slab,
// bloom filters off (a host opts in once it knows its workload is point-lookup heavy).
func DefaultTunables() Tunables {
	return Tunables{
		PrefetchDepth:     1,
		UsePositionScan:   true,
		UseTupleBuffering: true,
		TupleBufferSize:   64,
		BloomNHash:        4,
	}
}


//============================================= Capability Surface


// Capabilities is the planner-facing flag and strategy-number set.
type Capabilities struct {
	Ordered              bool
	CanScanBackward       bool
	CanParallelScan       bool
	IndexOnlyRequired     bool
	SupportsBitmapScan    bool
	SupportsInsert        bool
	SupportsIncludeOnTwoCol bool
	SupportsNulls         bool
	// ComparatorSupportProcNumber identifies which support-function slot a locale
	// comparator must be registered under, for key types whose collation is locale-driven.
	ComparatorSupportProcNumber int
	// StrategyNumbers are the five operator strategy numbers this index type registers
	// (<, <=, =, >=, >), in that order.
	StrategyNumbers [5]int
}

// DefaultCapabilities returns the fixed capability set this engine always reports: a
// read-only, index-only, ordered, backward- and parallel-scan-capable secondary index
// that never answers NULL and reports no INCLUDE support on two-column indexes.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Ordered:                 true,
		CanScanBackward:         true,
		CanParallelScan:         true,
		IndexOnlyRequired:       true,
		SupportsBitmapScan:      false,
		SupportsInsert:          false,
		SupportsIncludeOnTwoCol: false,
		SupportsNulls:           false,
		ComparatorSupportProcNumber: 1,
		StrategyNumbers:         [5]int{1, 2, 3, 4, 5},
	}
}


//============================================= Cost Estimate


// CostTunables feeds EstimateCost's linear model; a host plugs in its own per-unit
// costs.
type CostTunables struct {
	StartupCost float64
	PageCost    float64
	RowCost     float64
}

// DefaultCostTunables picks arbitrary but stable relative weights: reading a page
// costs 20x touching an already-buffered row, and opening the scan costs 10 rows' worth.
func DefaultCostTunables() CostTunables {
	return CostTunables{StartupCost: 10, PageCost: 20, RowCost: 1}
}

// EstimateCost combines the caller's estimates into the usual linear cost:
//
//	total = startup_cost + pages_touched*page_cost + rows_returned*row_cost
//
// pagesTouched and rowsReturned are the caller's selectivity-scaled estimates (derived
// from Height/PageCount and a predicate selectivity fraction); this function only
// combines them, it does not itself estimate selectivity.
func EstimateCost(ct CostTunables, pagesTouched, rowsReturned float64) float64 {
	return ct.StartupCost + pagesTouched*ct.PageCost + rowsReturned*ct.RowCost
}

// EstimateSelectivity scales pageCount/rowCount by however exclusive the caller's bounds
// are: both bounds present without equality narrows further than a single open bound.
// This is deliberately crude — a real optimizer would consult the zone map's actual
// key distribution, which this engine keeps but does not expose as a histogram.
func EstimateSelectivity(hasLower, hasUpper, equality bool) float64 {
	switch {
		case equality:
			return 0.01
		case hasLower && hasUpper:
			return 0.1
		case hasLower || hasUpper:
			return 0.33
		default:
			return 1.0
	}
}

// keyTypeFixedWidth reports the on-disk width of a fixed-width key type, used by callers
// assembling an IndexDescriptor; text is not fixed-width so it is handled separately via
// bound.TextBudget.
func keyTypeFixedWidth(t bound.KeyType) (int, bool) {
	switch t {
		case bound.Int2: return 2, true
		case bound.Int4: return 4, true
		case bound.Int8: return 8, true
		case bound.UUID: return 16, true
		case bound.Date, bound.Timestamp: return 8, true
		default: return 0, false
	}
}

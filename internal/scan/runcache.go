package scan

import "github.com/sirgallo/ordinex/internal/page"


//============================================= Active-Run Cache


// runKind tags the active-run cache's variant: no run tracked yet, a single plain row
// (every row is its own "run" on a plain leaf, so there is nothing to cache beyond the
// offset), or an RLE/include-RLE run with its bounds and cached pointers.
type runKind int

const (
	runNone runKind = iota
	runPlain
	runRLE
	runIncludeRLE
)

// activeRun is the tagged variant `{None | PlainRow(offset) | RleRun{...}}`,
// invalidated on every leaf advance. A forward step into the next run is resolved in
// O(1) from the cached index and bounds; any other move out of the cached run goes
// through RunBoundsFrom/IncludeRunBoundsFrom.
type activeRun struct {
	kind runKind

	start, end int // 0-based inclusive row-offset bounds of the current run

	key      []byte   // cached key bytes, constant across the run
	includes [][]byte // cached per-column INCLUDE bytes, constant across the run (include-RLE only)

	runs    []page.Run
	incRuns []page.IncludeRun
	hintIdx int
}

func (r *activeRun) reset() { *r = activeRun{kind: runNone} }

// contains reports whether 0-based offset `off` falls inside the cached run.
func (r *activeRun) contains(off int) bool {
	return r.kind != runNone && off >= r.start && off <= r.end
}

// Package build implements the read-only index's build pipeline: collect, sort, leaf
// writer, internal-level builder, zone maps, optional bloom filters, and the metapage
// commit.
package build

import "github.com/sirgallo/ordinex/internal/bound"

// RowFunc is the host-supplied table stream: one call per row, ok=false at end of input.
// values holds NKeyAtts key columns followed by len(IncludeLen) INCLUDE columns, in that
// order; isnull marks which of the NKeyAtts key columns (only) are null.
type RowFunc func() (values [][]byte, isnull []bool, ok bool, err error)

// Options describes the shape of the index being built: attribute count, fixed widths,
// collations, and the optional per-subtree bloom filter knobs. It is the build-package
// counterpart of the root package's IndexDescriptor/Tunables, kept separate so this
// package never imports the root one.
type Options struct {
	NKeyAtts   int
	KeyType    [2]bound.KeyType
	KeyLen     [2]int
	Collation  [2]bound.Collation
	Comparator [2]bound.ComparatorFunc
	IncludeLen []int

	BloomEnabled bool
	BloomNHash   uint64

	// Fanout overrides the internal node's child fanout; 0 uses the page format's
	// natural maximum (page.MaxInternalFanout).
	Fanout int
}

// Result is what the build pipeline hands back once the metapage has been committed.
type Result struct {
	RootBlock  uint32
	Height     int
	PageCount  uint32
	ZoneOffset uint32
}

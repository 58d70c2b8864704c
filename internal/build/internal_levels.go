package build

import (
	"github.com/google/btree"

	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
)


//============================================= Internal Level Builder


// HighKeyCmp compares two composite high-keys in the index's key order. It must agree
// with the order the leaf writer emitted leaves in; the build orchestrator derives it
// from the same typed comparators the sort used.
type HighKeyCmp func(a, b []byte) int

// btreeEntry adapts a LeafEntry (or a parent-level entry) into google/btree's ordered
// item interface. High-keys are compared through the index's typed key order (raw byte
// order would misplace little-endian integers), tie-broken by child block so leaves
// sharing a high-key — a duplicate run spanning a leaf boundary — stay distinct items
// in chain order instead of replacing one another.
type btreeEntry struct {
	LeafEntry
	cmp HighKeyCmp
}

func (a btreeEntry) Less(than btree.Item) bool {
	o := than.(btreeEntry)
	if c := a.cmp(a.HighKey, o.HighKey); c != 0 { return c < 0 }
	return a.Child < o.Child
}

// stageLevel loads `entries` into a btree and walks them back out in ascending order.
// The tree is used only as an in-memory staging structure while grouping a level into
// parents; it is never written to disk.
func stageLevel(entries []LeafEntry, cmp HighKeyCmp) []LeafEntry {
	bt := btree.New(32)
	for _, e := range entries { bt.ReplaceOrInsert(btreeEntry{e, cmp}) }

	ordered := make([]LeafEntry, 0, len(entries))
	bt.Ascend(func(it btree.Item) bool {
		ordered = append(ordered, it.(btreeEntry).LeafEntry)
		return true
	})

	return ordered
}

// BuildInternalLevels builds the internal node tree bottom-up from the leaf level's
// (child, high-key) entries, `fanout` children per node, stopping once a level produces
// a single entry (the root). Returns the root block and the tree's height: the number
// of internal levels, so 0 means the only leaf is itself the root.
func BuildInternalLevels(pf *pagefile.File, f page.KeyFormat, leafEntries []LeafEntry, fanout int, cmp HighKeyCmp) (rootBlock uint32, height int, err error) {
	if len(leafEntries) == 0 {
		return page.InvalidBlock, 0, nil
	}

	level := leafEntries
	height = 0

	for len(level) > 1 {
		ordered := stageLevel(level, cmp)

		var parents []LeafEntry
		for i := 0; i < len(ordered); i += fanout {
			end := i + fanout
			if end > len(ordered) { end = len(ordered) }
			group := ordered[i:end]

			pageEntries := make([]page.Entry, len(group))
			for j, g := range group { pageEntries[j] = page.Entry{Child: g.Child, HighKey: g.HighKey} }

			payload := page.EncodeInternalNode(f, pageEntries)
			if len(payload) > page.MaxPayload {
				return 0, 0, ordinexerr.NewInternalErr("internal node overflows page capacity; fanout clamp failed")
			}

			block, raw, aerr := pf.AllocatePage()
			if aerr != nil { return 0, 0, aerr }

			copy(page.Payload(raw), payload)
			page.WriteOpaque(raw, page.Opaque{Level: uint8(height + 1), RightLink: page.InvalidBlock, LeftLink: page.InvalidBlock})

			parents = append(parents, LeafEntry{Child: block, HighKey: group[len(group)-1].HighKey})
		}

		level = parents
		height++
	}

	return level[0].Child, height, nil
}

// ordinexdump prints the metapage of an ordinex index file and, with -verify, walks
// the leaf chain and internal levels checking the structural invariants a healthy
// index always satisfies: sibling-link closure, RLE run-count totals, key order
// within and across leaves, and high-key bounds on every internal entry. It is a
// debugging aid only: it never writes to the file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
)

func main() {
	var (
		file    = flag.String("file", "", "path to the index file")
		keyType = flag.String("keytype", "", "attribute-1 key type for order checks: int2|int4|int8|uuid|date|timestamp|text")
		verify  = flag.Bool("verify", false, "walk the tree and check structural invariants")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "ordinexdump: -file is required")
		os.Exit(2)
	}

	pf, err := pagefile.Open(*file)
	if err != nil { fatal(err) }
	defer pf.Close()

	raw, err := pf.Page(0)
	if err != nil { fatal(err) }

	meta, err := page.DecodeMetapage(raw)
	if err != nil { fatal(err) }

	printMeta(meta)

	if !*verify { return }

	kt, haveType := parseKeyType(*keyType)
	if *keyType != "" && !haveType {
		fmt.Fprintf(os.Stderr, "ordinexdump: unknown -keytype %q\n", *keyType)
		os.Exit(2)
	}

	f := page.KeyFormat{NKeyAtts: meta.NKeyAtts, KeyLen: meta.KeyLen}
	for i := 0; i < meta.NInclude; i++ { f.IncludeLen = append(f.IncludeLen, meta.IncludeLen[i]) }

	v := &verifier{pf: pf, meta: meta, f: f, kt: kt, typed: haveType}
	if err := v.run(); err != nil { fatal(err) }

	fmt.Printf("verify: ok (%d leaves, %d rows)\n", v.leaves, v.rows)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ordinexdump:", err)
	os.Exit(1)
}

func printMeta(m *page.Metapage) {
	fmt.Printf("magic:        %#08x\n", m.Magic)
	fmt.Printf("version:      %d\n", m.Version)
	fmt.Printf("key atts:     %d (widths %d, %d)\n", m.NKeyAtts, m.KeyLen[0], m.KeyLen[1])
	fmt.Printf("include cols: %d", m.NInclude)
	for i := 0; i < m.NInclude; i++ { fmt.Printf(" [%d]=%d", i, m.IncludeLen[i]) }
	fmt.Println()
	fmt.Printf("bloom:        enabled=%v nhash=%d\n", m.BloomEnabled, m.BloomNHash)
	fmt.Printf("root block:   %d\n", m.RootBlock)
	fmt.Printf("height:       %d\n", m.Height)
	fmt.Printf("fanout:       %d\n", m.Fanout)
	fmt.Printf("zone offset:  %d\n", m.ZoneOffset)
	fmt.Printf("bloom offset: %d\n", m.BloomOffset)
}

func parseKeyType(s string) (bound.KeyType, bool) {
	switch s {
		case "int2": return bound.Int2, true
		case "int4": return bound.Int4, true
		case "int8": return bound.Int8, true
		case "uuid": return bound.UUID, true
		case "date": return bound.Date, true
		case "timestamp": return bound.Timestamp, true
		case "text": return bound.Text, true
		default: return 0, false
	}
}

type verifier struct {
	pf    *pagefile.File
	meta  *page.Metapage
	f     page.KeyFormat
	kt    bound.KeyType
	typed bool

	leaves int
	rows   int

	// lastLeafHigh maps a leaf block to the largest leading key it holds, for the
	// internal-entry bound check.
	lastLeafHigh map[uint32][]byte
}

func (v *verifier) cmp(a, b []byte) int {
	return bound.CmpKeyToLowerBound(a, b, v.kt, bound.CollationC, nil)
}

func (v *verifier) run() error {
	v.lastLeafHigh = make(map[uint32][]byte)

	if v.meta.RootBlock == page.InvalidBlock {
		return nil // empty index: nothing to walk
	}

	leftmost, err := v.descendLeftmost()
	if err != nil { return err }

	if err := v.walkLeafChain(leftmost); err != nil { return err }

	return v.walkInternal(v.meta.RootBlock)
}

func (v *verifier) descendLeftmost() (uint32, error) {
	block := v.meta.RootBlock
	for {
		raw, err := v.pf.Page(block)
		if err != nil { return 0, err }

		if page.ReadOpaque(raw).Level == 0 { return block, nil }

		entries, err := page.DecodeInternalNode(page.Payload(raw), v.f)
		if err != nil { return 0, err }
		if len(entries) == 0 { return 0, fmt.Errorf("internal node %d has no entries", block) }

		block = entries[0].Child
	}
}

// walkLeafChain checks sibling closure, run-count totals, and (when a key type was
// given) non-decreasing key order across the whole chain.
func (v *verifier) walkLeafChain(start uint32) error {
	var prevBlock uint32 = page.InvalidBlock
	var prevKey []byte

	for block := start; block != page.InvalidBlock; {
		raw, err := v.pf.Page(block)
		if err != nil { return err }

		op := page.ReadOpaque(raw)
		if op.Level != 0 { return fmt.Errorf("block %d in leaf chain has level %d", block, op.Level) }
		if op.LeftLink != prevBlock {
			return fmt.Errorf("leaf %d left-link %d does not point at predecessor %d", block, op.LeftLink, prevBlock)
		}

		keys, err := v.leafLeadingKeys(block, page.Payload(raw))
		if err != nil { return err }

		v.leaves++
		v.rows += len(keys)

		for _, k := range keys {
			if v.typed && prevKey != nil && v.cmp(prevKey, k) > 0 {
				return fmt.Errorf("leaf %d breaks key order", block)
			}
			prevKey = k
		}
		if len(keys) > 0 { v.lastLeafHigh[block] = keys[len(keys)-1] }

		prevBlock = block
		block = op.RightLink
	}

	return nil
}

// leafLeadingKeys expands a leaf into its per-row leading keys, whatever its format,
// validating run-count totals along the way.
func (v *verifier) leafLeadingKeys(block uint32, payload []byte) ([][]byte, error) {
	if v.f.NKeyAtts == 2 {
		n := page.TwoColNRows(payload)
		keys := make([][]byte, 0, n)
		for i := 0; i < n; i++ { keys = append(keys, page.TwoColRowAt(payload, v.f, i).K1) }
		return keys, nil
	}

	tag := page.Tag(payload)
	switch {
		case page.IsPlain(tag):
			n := page.PlainNItems(payload)
			keys := make([][]byte, 0, n)
			for i := 0; i < n; i++ { keys = append(keys, page.PlainKeyAt(payload, v.f, i)) }
			return keys, nil

		case tag == page.TagRLEv1 || tag == page.TagRLEv2:
			runs, nitems, _, err := page.DecodeRLE(payload, v.f, tag)
			if err != nil { return nil, fmt.Errorf("leaf %d: %w", block, err) }
			return expandRuns(nitems, len(runs), func(i int) ([]byte, int) { return runs[i].Key, runs[i].Count }), nil

		case tag == page.TagIncludeRLE:
			runs, nitems, err := page.DecodeIncludeRLE(payload, v.f)
			if err != nil { return nil, fmt.Errorf("leaf %d: %w", block, err) }
			return expandRuns(nitems, len(runs), func(i int) ([]byte, int) { return runs[i].Key, runs[i].Count }), nil

		default:
			return nil, fmt.Errorf("leaf %d: unrecognised tag %#x", block, tag)
	}
}

func expandRuns(nitems, nruns int, at func(i int) ([]byte, int)) [][]byte {
	keys := make([][]byte, 0, nitems)
	for i := 0; i < nruns; i++ {
		k, count := at(i)
		for j := 0; j < count; j++ { keys = append(keys, k) }
	}
	return keys
}

// walkInternal recursively checks every internal node: high-keys non-decreasing left
// to right, and every level-1 entry's high-key bounding its leaf's actual largest key.
func (v *verifier) walkInternal(block uint32) error {
	raw, err := v.pf.Page(block)
	if err != nil { return err }

	op := page.ReadOpaque(raw)
	if op.Level == 0 { return nil }

	entries, err := page.DecodeInternalNode(page.Payload(raw), v.f)
	if err != nil { return err }

	for i, e := range entries {
		lead := e.HighKey
		if v.f.NKeyAtts == 2 { lead = e.HighKey[:v.f.KeyLen[0]] }

		if v.typed && i > 0 {
			prev := entries[i-1].HighKey
			if v.f.NKeyAtts == 2 { prev = prev[:v.f.KeyLen[0]] }
			if v.cmp(prev, lead) > 0 {
				return fmt.Errorf("internal node %d breaks high-key order at entry %d", block, i)
			}
		}

		if v.typed && op.Level == 1 {
			if leafHigh, ok := v.lastLeafHigh[e.Child]; ok && v.cmp(leafHigh, lead) > 0 {
				return fmt.Errorf("internal node %d entry %d high-key below leaf %d's largest key", block, i, e.Child)
			}
		}

		if err := v.walkInternal(e.Child); err != nil { return err }
	}

	return nil
}

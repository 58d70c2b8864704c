package page

import "errors"


//============================================= Include-RLE Leaf Format


// IncludeRun is one `(key, run-count, inc1..incK)` group on an include-RLE leaf.
// INCLUDE values are stored once per run since they are constant across the run.
type IncludeRun struct {
	Key      []byte
	Count    int
	Includes [][]byte
}

// EncodeIncludeRLELeaf writes `[u16 tag=0x8003][u16 nitems][u16 nruns][nruns x (key, u16 count, inc1, .., incK)]`.
func EncodeIncludeRLELeaf(runs []IncludeRun) []byte {
	nitems := 0
	for _, r := range runs { nitems += r.Count }

	hdr := make([]byte, 6)
	writeU16(hdr, 0, TagIncludeRLE)
	writeU16(hdr, 2, uint16(nitems))
	writeU16(hdr, 4, uint16(len(runs)))

	out := hdr
	for _, r := range runs {
		out = append(out, r.Key...)
		cbuf := make([]byte, 2)
		writeU16(cbuf, 0, uint16(r.Count))
		out = append(out, cbuf...)
		for _, inc := range r.Includes { out = append(out, inc...) }
	}

	return out
}

// DecodeIncludeRLE parses an include-RLE leaf into its run list.
func DecodeIncludeRLE(payload []byte, f KeyFormat) (runs []IncludeRun, nitems int, err error) {
	nitems = int(readU16(payload, 2))
	nruns := int(readU16(payload, 4))

	klen := f.KeyLen[0]
	incWidth := f.includeTotalWidth()

	off := 6
	runs = make([]IncludeRun, 0, nruns)

	for i := 0; i < nruns; i++ {
		if off+klen+2+incWidth > len(payload) {
			return nil, 0, errors.New("ordinex: corrupt page: include-rle run overruns payload")
		}

		key := payload[off : off+klen]
		count := int(readU16(payload, off+klen))

		incOff := off + klen + 2
		includes := make([][]byte, len(f.IncludeLen))
		for col, w := range f.IncludeLen {
			includes[col] = payload[incOff : incOff+w]
			incOff += w
		}

		runs = append(runs, IncludeRun{Key: key, Count: count, Includes: includes})
		off = incOff
	}

	total := 0
	for _, r := range runs { total += r.Count }
	if total != nitems {
		return nil, 0, errors.New("ordinex: corrupt page: include-rle run-count sum mismatch")
	}

	return runs, nitems, nil
}

// IncludeRunBoundsFrom mirrors RunBoundsFrom for include-RLE runs.
func IncludeRunBoundsFrom(runs []IncludeRun, hintIdx int, offset int) (runIdx, start, end int, ok bool) {
	if hintIdx < 0 || hintIdx >= len(runs) { hintIdx = 0 }

	cum := 0
	for i := 0; i < hintIdx; i++ { cum += runs[i].Count }

	if cum <= offset {
		for i := hintIdx; i < len(runs); i++ {
			runEnd := cum + runs[i].Count - 1
			if offset <= runEnd { return i, cum, runEnd, true }
			cum = runEnd + 1
		}
		return 0, 0, 0, false
	}

	cum = 0
	for i := 0; i < len(runs); i++ {
		runEnd := cum + runs[i].Count - 1
		if offset <= runEnd { return i, cum, runEnd, true }
		cum = runEnd + 1
	}

	return 0, 0, 0, false
}

package page

import "errors"


//============================================= Key-RLE Leaf Formats (v1, v2)


// Run is one `(key, run-count)` pair on a key-RLE leaf. Count is 1..65535.
type Run struct {
	Key   []byte
	Count int
}

// EncodeRLEv1Leaf writes `[u16 tag][u16 nitems][u16 nruns][nruns x (key, u16 count)]`.
func EncodeRLEv1Leaf(runs []Run) []byte {
	return encodeRLE(TagRLEv1, runs, nil)
}

// EncodeRLEv2Leaf writes the v1 layout with one extra continuation byte before the runs.
// The bit indicates whether the leaf's first run continues a run from the left sibling,
// so a scan resuming mid-run across a leaf boundary can merge counts correctly.
func EncodeRLEv2Leaf(runs []Run, continuesFromLeft bool) []byte {
	cont := byte(0)
	if continuesFromLeft { cont = 1 }
	return encodeRLE(TagRLEv2, runs, &cont)
}

func encodeRLE(tag uint16, runs []Run, continues *byte) []byte {
	nitems := 0
	for _, r := range runs { nitems += r.Count }

	hdr := make([]byte, 6)
	writeU16(hdr, 0, tag)
	writeU16(hdr, 2, uint16(nitems))
	writeU16(hdr, 4, uint16(len(runs)))

	out := hdr
	if continues != nil { out = append(out, *continues) }

	for _, r := range runs {
		out = append(out, r.Key...)
		cbuf := make([]byte, 2)
		writeU16(cbuf, 0, uint16(r.Count))
		out = append(out, cbuf...)
	}

	return out
}

// DecodeRLE parses a key-RLE v1 or v2 leaf into its run list and, for v2, the
// continuation flag. It is called once per leaf visit; the scan engine caches
// the resulting slice and a "current run" index to make subsequent offset
// lookups O(1) amortized instead of re-parsing on every row.
func DecodeRLE(payload []byte, f KeyFormat, tag uint16) (runs []Run, nitems int, continuesFromLeft bool, err error) {
	nitems = int(readU16(payload, 2))
	nruns := int(readU16(payload, 4))

	off := 6
	if tag == TagRLEv2 {
		continuesFromLeft = payload[6] != 0
		off = 7
	}

	klen := f.KeyLen[0]
	runs = make([]Run, 0, nruns)

	for i := 0; i < nruns; i++ {
		if off+klen+2 > len(payload) {
			return nil, 0, false, errors.New("ordinex: corrupt page: rle run overruns payload")
		}

		key := payload[off : off+klen]
		count := int(readU16(payload, off+klen))
		runs = append(runs, Run{Key: key, Count: count})
		off += klen + 2
	}

	total := 0
	for _, r := range runs { total += r.Count }
	if total != nitems {
		return nil, 0, false, errors.New("ordinex: corrupt page: rle run-count sum mismatch")
	}

	return runs, nitems, continuesFromLeft, nil
}

// RunBoundsFrom locates the run containing the 0-based `offset`. It sums the counts of
// the runs before `hintIdx` (the caller's cached current-run index) and searches forward
// from there; when `offset` precedes the hinted run it searches again from the first
// run. A call costs O(nruns) in the worst case.
func RunBoundsFrom(runs []Run, hintIdx int, offset int) (runIdx, start, end int, ok bool) {
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

	// offset precedes the hinted run: search again from the first run.
	cum = 0
	for i := 0; i < len(runs); i++ {
		runEnd := cum + runs[i].Count - 1
		if offset <= runEnd { return i, cum, runEnd, true }
		cum = runEnd + 1
	}

	return 0, 0, 0, false
}

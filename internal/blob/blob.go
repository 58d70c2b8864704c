// Package blob chains page-sized chunks together to store the zone map and bloom filter
// metadata that doesn't fit a single page, using the same sibling-link chaining idiom
// the leaf writer uses for data pages.
package blob

import (
	"encoding/binary"

	"github.com/sirgallo/ordinex/internal/page"
	"github.com/sirgallo/ordinex/internal/pagefile"
)

// Write serializes data across as many pages as needed, length-prefixed on the first
// page, and returns the first page's block number.
func Write(pf *pagefile.File, data []byte) (uint32, error) {
	first := page.InvalidBlock
	prevBlock := page.InvalidBlock

	remaining := data
	header := true

	for header || len(remaining) > 0 {
		block, raw, err := pf.AllocatePage()
		if err != nil { return 0, err }

		payload := page.Payload(raw)
		off := 0
		if header {
			binary.LittleEndian.PutUint32(payload[0:4], uint32(len(data)))
			off = 4
			header = false
			first = block
		}

		n := len(payload) - off
		if n > len(remaining) { n = len(remaining) }
		copy(payload[off:off+n], remaining[:n])
		remaining = remaining[n:]

		page.WriteOpaque(raw, page.Opaque{Level: 0, RightLink: page.InvalidBlock, LeftLink: prevBlock})

		// Re-fetched by block id: the allocation above may have remapped the file,
		// invalidating any raw slice taken before it.
		if prevBlock != page.InvalidBlock {
			prevRaw, perr := pf.Page(prevBlock)
			if perr != nil { return 0, perr }
			o := page.ReadOpaque(prevRaw)
			o.RightLink = block
			page.WriteOpaque(prevRaw, o)
		}

		prevBlock = block
	}

	return first, nil
}

// Read walks the chain starting at `startBlock` and reassembles the original bytes.
func Read(pf *pagefile.File, startBlock uint32) ([]byte, error) {
	if startBlock == page.InvalidBlock { return nil, nil }

	raw, err := pf.Page(startBlock)
	if err != nil { return nil, err }

	payload := page.Payload(raw)
	total := binary.LittleEndian.Uint32(payload[0:4])

	out := make([]byte, 0, total)
	chunk := payload[4:]
	if uint32(len(chunk)) > total { chunk = chunk[:total] }
	out = append(out, chunk...)

	block := page.ReadOpaque(raw).RightLink
	for block != page.InvalidBlock && uint32(len(out)) < total {
		raw, err = pf.Page(block)
		if err != nil { return nil, err }

		payload = page.Payload(raw)
		need := int(total) - len(out)
		chunk := payload
		if len(chunk) > need { chunk = chunk[:need] }
		out = append(out, chunk...)

		block = page.ReadOpaque(raw).RightLink
	}

	return out, nil
}

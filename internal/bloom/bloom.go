// Package bloom wraps github.com/holiman/bloomfilter/v2 as the per-subtree bloom
// filter: a small bitset over the leading-key values of one
// internal-level-1 subtree, probed on equality predicates during root descent.
package bloom

import (
	"github.com/cespare/xxhash/v2"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// Filter is one subtree's bloom filter, hashing leading-key bytes through xxhash64 and
// bloom_hash_count independent probes (the underlying library derives its k probes from
// a single 64-bit digest via double hashing, so one xxhash pass per key suffices).
type Filter struct {
	f *bloomfilter.Filter
}

// New allocates a filter sized for `expectedKeys` entries with `nhash` hash functions.
func New(expectedKeys uint64, nhash uint64) (*Filter, error) {
	bits := expectedKeys * 10
	if bits < 64 { bits = 64 }

	f, err := bloomfilter.New(bits, nhash)
	if err != nil { return nil, err }

	return &Filter{f: f}, nil
}

// Add inserts a leading-key value's bytes into the filter.
func (bf *Filter) Add(keyBytes []byte) {
	d := xxhash.New()
	d.Write(keyBytes)
	bf.f.Add(d)
}

// MaybeContains reports whether keyBytes might be present. false is a definite negative;
// true may be a false positive (the usual bloom-filter contract).
func (bf *Filter) MaybeContains(keyBytes []byte) bool {
	d := xxhash.New()
	d.Write(keyBytes)
	return bf.f.Contains(d)
}

// Marshal serializes the filter for storage in the metadata region.
func (bf *Filter) Marshal() ([]byte, error) { return bf.f.MarshalBinary() }

// Unmarshal restores a filter previously written by Marshal.
func Unmarshal(data []byte) (*Filter, error) {
	f := &bloomfilter.Filter{}
	if err := f.UnmarshalBinary(data); err != nil { return nil, err }
	return &Filter{f: f}, nil
}

// MarshalAll concatenates every per-subtree filter into one blob, length-prefixed so
// UnmarshalAll can split them back apart: `[u32 n][n x (u32 len, bytes)]`. This is the
// shape the build pipeline hands to internal/blob for the metapage's bloom-offset chain.
func MarshalAll(filters []*Filter) ([]byte, error) {
	out := make([]byte, 4)
	putU32(out, 0, uint32(len(filters)))

	for _, f := range filters {
		enc, err := f.Marshal()
		if err != nil { return nil, err }

		lenBuf := make([]byte, 4)
		putU32(lenBuf, 0, uint32(len(enc)))
		out = append(out, lenBuf...)
		out = append(out, enc...)
	}

	return out, nil
}

// UnmarshalAll splits a blob written by MarshalAll back into its per-subtree filters,
// in the same left-to-right subtree order they were marshaled in.
func UnmarshalAll(data []byte) ([]*Filter, error) {
	if len(data) < 4 { return nil, nil }

	n := getU32(data, 0)
	off := 4

	filters := make([]*Filter, 0, n)
	for i := uint32(0); i < n; i++ {
		l := getU32(data, off)
		off += 4

		f, err := Unmarshal(data[off : off+int(l)])
		if err != nil { return nil, err }
		filters = append(filters, f)
		off += int(l)
	}

	return filters, nil
}

func putU32(b []byte, off int, v uint32) {
	b[off], b[off+1], b[off+2], b[off+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}

func getU32(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// Package bound implements the bound comparator: comparing a raw key-bytes pointer
// against a scan bound for each supported key type, without ever touching a live
// type-catalog lookup from the hot path (the comparator is a plugged-in value,
// decided once at build/scan-open time).
package bound

import (
	"bytes"
	"encoding/binary"
)


//============================================= Key Types & Collation


// KeyType enumerates the fixed-width (or bounded-text) types this engine can index.
type KeyType int

const (
	Int2 KeyType = iota
	Int4
	Int8
	UUID
	Date
	Timestamp
	Text
)

// Collation distinguishes a byte-wise ("C") text comparison from a locale-aware one
// that must be dispatched to a plugged-in comparator.
type Collation int

const (
	CollationC Collation = iota
	CollationLocale
)

// ComparatorFunc is a host-supplied callable used only for locale-collated text.
// It returns -1/0/1 like bytes.Compare. The engine never calls into a type catalog
// itself; the host hands this function object in once at index-descriptor build time.
type ComparatorFunc func(a, b []byte) int

// TextBudget is the maximum padded width of the short fixed-budget text key variant.
const TextBudget = 32

//============================================= Comparisons


// CmpKeyToLowerBound compares key bytes against a lower-bound value, returning -1/0/1
// exactly as the total order used by the build-time sort (violating that equivalence is
// corruption).
func CmpKeyToLowerBound(key, lower []byte, kt KeyType, collation Collation, cmp ComparatorFunc) int {
	return compareTyped(key, lower, kt, collation, cmp)
}

// CmpKeyToUpperBound compares key bytes against an upper-bound value.
func CmpKeyToUpperBound(key, upper []byte, kt KeyType, collation Collation, cmp ComparatorFunc) int {
	return compareTyped(key, upper, kt, collation, cmp)
}

func compareTyped(a, b []byte, kt KeyType, collation Collation, cmp ComparatorFunc) int {
	switch kt {
		case Int2:
			return cmpInt(int64(int16(binary.LittleEndian.Uint16(a))), int64(int16(binary.LittleEndian.Uint16(b))))
		case Int4:
			return cmpInt(int64(int32(binary.LittleEndian.Uint32(a))), int64(int32(binary.LittleEndian.Uint32(b))))
		case Int8, Date, Timestamp:
			return cmpInt(int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b)))
		case UUID:
			return bytes.Compare(a, b)
		case Text:
			if collation == CollationC { return cmpTextC(a, b) }
			return cmp(a, b)
		default:
			return bytes.Compare(a, b)
	}
}

func cmpInt(a, b int64) int {
	switch {
		case a < b: return -1
		case a > b: return 1
		default: return 0
	}
}

// cmpTextC compares two fixed-budget, zero-padded text keys as a memcmp to the first
// zero byte in either operand, tie-broken by the (trimmed) length.
func cmpTextC(a, b []byte) int {
	at := trimTrailingZero(a)
	bt := trimTrailingZero(b)

	c := bytes.Compare(at, bt)
	if c != 0 { return c }

	switch {
		case len(at) < len(bt): return -1
		case len(at) > len(bt): return 1
		default: return 0
	}
}

// trimTrailingZero strips the fixed-budget padding to recover the logical text value,
// stopping at the first zero byte or the budget, whichever comes first.
func trimTrailingZero(b []byte) []byte {
	for i, c := range b {
		if c == 0 { return b[:i] }
	}
	return b
}

// PadText pads a text value to the fixed budget with trailing zero bytes.
func PadText(v []byte, width int) []byte {
	out := make([]byte, width)
	copy(out, v)
	return out
}

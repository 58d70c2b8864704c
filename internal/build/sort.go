package build

import (
	"encoding/binary"
	"sort"

	"github.com/sirgallo/ordinex/internal/bound"
	"github.com/sirgallo/ordinex/internal/radixsort"
)


//============================================= Sort


// Order returns a permutation of [0, c.N()) in ascending key order: LSD radix for
// integer (or int,int composite) keys, a comparison sort via internal/bound otherwise
// (text, UUID, or any locale-collated attribute).
func Order(c *Collected) []int {
	n := c.N()
	if n == 0 { return nil }

	if c.Opt.NKeyAtts == 1 && isRadixType(c.Opt.KeyType[0]) {
		key := func(i int) uint64 { return intSortKey(c.K1(i), c.Opt.KeyType[0]) }
		return radixsort.Stable(n, key, widthBytesFor(c.Opt.KeyType[0]))
	}

	if c.Opt.NKeyAtts == 2 && isRadixType(c.Opt.KeyType[0]) && isRadixType(c.Opt.KeyType[1]) {
		k1 := func(i int) uint64 { return intSortKey(c.K1(i), c.Opt.KeyType[0]) }
		k2 := func(i int) uint64 { return intSortKey(c.K2(i), c.Opt.KeyType[1]) }
		return radixsort.StableComposite(n, k1, k2, widthBytesFor(c.Opt.KeyType[0]), widthBytesFor(c.Opt.KeyType[1]))
	}

	order := make([]int, n)
	for i := range order { order[i] = i }

	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]

		c1 := bound.CmpKeyToLowerBound(c.K1(ia), c.K1(ib), c.Opt.KeyType[0], c.Opt.Collation[0], c.Opt.Comparator[0])
		if c1 != 0 || c.Opt.NKeyAtts == 1 { return c1 < 0 }

		c2 := bound.CmpKeyToLowerBound(c.K2(ia), c.K2(ib), c.Opt.KeyType[1], c.Opt.Collation[1], c.Opt.Comparator[1])
		return c2 < 0
	})

	return order
}

func isRadixType(kt bound.KeyType) bool {
	switch kt {
		case bound.Int2, bound.Int4, bound.Int8, bound.Date, bound.Timestamp: return true
		default: return false
	}
}

func widthBytesFor(kt bound.KeyType) int {
	switch kt {
		case bound.Int2: return 2
		case bound.Int4: return 4
		case bound.Int8, bound.Date, bound.Timestamp: return 8
		default: return 0
	}
}

// intSortKey sign-flips a fixed-width signed integer's raw bytes into the unsigned,
// order-preserving representation radixsort.Stable expects.
func intSortKey(b []byte, kt bound.KeyType) uint64 {
	switch kt {
		case bound.Int2:
			return uint64(radixsort.SignFlipInt16(int16(binary.LittleEndian.Uint16(b))))
		case bound.Int4:
			return uint64(radixsort.SignFlipInt32(int32(binary.LittleEndian.Uint32(b))))
		default: // Int8, Date, Timestamp
			return radixsort.SignFlipInt64(int64(binary.LittleEndian.Uint64(b)))
	}
}

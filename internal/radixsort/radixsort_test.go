package radixsort

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStableSortsAscending(t *testing.T) {
	vals := []int32{5, -3, 100, 0, -1000, 42, 42, -1}
	keys := make([]uint64, len(vals))
	for i, v := range vals { keys[i] = uint64(SignFlipInt32(v)) }

	order := Stable(len(vals), func(i int) uint64 { return keys[i] }, 4)

	got := make([]int32, len(vals))
	for i, idx := range order { got[i] = vals[idx] }

	want := append([]int32(nil), vals...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	require.Equal(t, want, got)
}

func TestStableIsStableForEqualKeys(t *testing.T) {
	type row struct{ key int32; tag int }
	rows := []row{{1, 0}, {1, 1}, {0, 2}, {1, 3}, {0, 4}}
	keys := make([]uint64, len(rows))
	for i, r := range rows { keys[i] = uint64(SignFlipInt32(r.key)) }

	order := Stable(len(rows), func(i int) uint64 { return keys[i] }, 4)

	var zerosTags, onesTags []int
	for _, idx := range order {
		if rows[idx].key == 0 { zerosTags = append(zerosTags, rows[idx].tag) }
		if rows[idx].key == 1 { onesTags = append(onesTags, rows[idx].tag) }
	}

	require.Equal(t, []int{2, 4}, zerosTags)
	require.Equal(t, []int{0, 1, 3}, onesTags)
}

func TestStableRandomMatchesSort(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	n := 5000
	vals := make([]int64, n)
	for i := range vals { vals[i] = r.Int63() - (1 << 62) }

	keys := make([]uint64, n)
	for i, v := range vals { keys[i] = SignFlipInt64(v) }

	order := Stable(n, func(i int) uint64 { return keys[i] }, 8)

	got := make([]int64, n)
	for i, idx := range order { got[i] = vals[idx] }

	want := append([]int64(nil), vals...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	require.Equal(t, want, got)
}

func TestStableCompositeLexicographic(t *testing.T) {
	type pair struct{ k1, k2 int32 }
	rows := []pair{{1, 5}, {1, 2}, {0, 9}, {1, 2}, {0, 1}}

	k1 := func(i int) uint64 { return uint64(SignFlipInt32(rows[i].k1)) }
	k2 := func(i int) uint64 { return uint64(SignFlipInt32(rows[i].k2)) }

	order := StableComposite(len(rows), k1, k2, 4, 4)

	got := make([]pair, len(rows))
	for i, idx := range order { got[i] = rows[idx] }

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.True(t, prev.k1 < cur.k1 || (prev.k1 == cur.k1 && prev.k2 <= cur.k2))
	}
}

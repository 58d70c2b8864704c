package ordinex

import (
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sirgallo/ordinex/internal/bound"
)


//============================================= Test Helpers


func i4(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func u4(b []byte) int32 { return int32(binary.LittleEndian.Uint32(b)) }

// rowGen streams `keys` (with a constant single INCLUDE column derived from the key)
// through the RowFunc shape Build expects.
func rowGen(keys []int32) RowFunc {
	i := 0
	return func() ([][]byte, []bool, bool, error) {
		if i >= len(keys) { return nil, nil, false, nil }
		k := keys[i]
		i++
		return [][]byte{i4(k), i4(k * 2)}, []bool{false}, true, nil
	}
}

func buildTestIndex(t *testing.T, keys []int32) *Ordinex {
	t.Helper()

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)

	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)

	return o
}

func drainForward(t *testing.T, o *Ordinex, keys []Key) []int32 {
	t.Helper()

	s, err := o.BeginScan(keys, nil, false, true, nil)
	require.NoError(t, err)

	var got []int32
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		got = append(got, u4(tup.Key1()))
	}
	s.EndScan()
	return got
}

func drainBackward(t *testing.T, o *Ordinex, keys []Key) []int32 {
	t.Helper()

	s, err := o.BeginScan(keys, nil, true, true, nil)
	require.NoError(t, err)

	var got []int32
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		got = append(got, u4(tup.Key1()))
	}
	s.EndScan()
	return got
}

func sortedCopy(keys []int32) []int32 {
	out := append([]int32(nil), keys...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}


//============================================= Scenario Tests


// Scenario: build over a moderate row set, scan the whole index forward, and check
// that the emitted order matches a straight sort of the input.
func TestForwardScanIsFullyOrdered(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 4000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(1_000_000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	got := drainForward(t, o, nil)
	require.Equal(t, sortedCopy(keys), got)
}

// Scenario: a backward scan over the whole index is the exact reverse of the forward
// scan.
func TestBackwardScanIsReverseOfForward(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 3500
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(1_000_000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	fwd := drainForward(t, o, nil)
	back := drainBackward(t, o, nil)

	require.Len(t, back, len(fwd))
	for i := range back {
		require.Equal(t, fwd[len(fwd)-1-i], back[i])
	}
}

// Scenario: a heavily duplicated key domain (with an INCLUDE derived from the key) forces
// include-RLE leaves; every duplicate must still be emitted exactly once per occurrence
// (RLE run-count totals hold).
func TestDuplicateKeysPreserveRunCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	domain := 40
	n := 6000
	keys := make([]int32, n)
	want := make(map[int32]int)
	for i := range keys {
		k := int32(rng.Intn(domain))
		keys[i] = k
		want[k]++
	}

	o := buildTestIndex(t, keys)
	defer o.Close()

	got := drainForward(t, o, nil)
	require.Len(t, got, n)

	gotCounts := make(map[int32]int)
	for _, k := range got { gotCounts[k]++ }
	require.Equal(t, want, gotCounts)

	require.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
}

// Scenario: equality predicate returns exactly the rows matching that key, through the
// equality positioning path.
func TestEqualityScanMatchesExactSubset(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	domain := 25
	n := 5000
	keys := make([]int32, n)
	want := make(map[int32]int)
	for i := range keys {
		k := int32(rng.Intn(domain))
		keys[i] = k
		want[k]++
	}

	o := buildTestIndex(t, keys)
	defer o.Close()

	target := int32(7)
	got := drainForward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: i4(target)}})

	require.Len(t, got, want[target])
	for _, k := range got { require.Equal(t, target, k) }
}

// Scenario: a bounded range [lower, upper] returns exactly the rows within it, for both
// strict and inclusive strategies.
func TestBoundedRangeScan(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 4000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(2000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	lower, upper := int32(500), int32(1500)
	got := drainForward(t, o, []Key{
		{Attr: 1, Strategy: GreaterEq, Value: i4(lower)},
		{Attr: 1, Strategy: LessEq, Value: i4(upper)},
	})

	var want []int32
	for _, k := range sortedCopy(keys) {
		if k >= lower && k <= upper { want = append(want, k) }
	}

	require.Equal(t, want, got)
}

// rescan lifecycle: a second rescan with different bounds must not be contaminated by
// the first scan's position or active-run cache.
func TestRescanReplacesBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	n := 3000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(5000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	s, err := o.BeginScan([]Key{{Attr: 1, Strategy: Less, Value: i4(100)}}, nil, false, true, nil)
	require.NoError(t, err)

	var first []int32
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		first = append(first, u4(tup.Key1()))
	}

	err = s.Rescan([]Key{{Attr: 1, Strategy: GreaterEq, Value: i4(4900)}}, nil, false)
	require.NoError(t, err)

	var second []int32
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		second = append(second, u4(tup.Key1()))
	}
	s.EndScan()

	var wantFirst, wantSecond []int32
	for _, k := range sortedCopy(keys) {
		if k < 100 { wantFirst = append(wantFirst, k) }
		if k >= 4900 { wantSecond = append(wantSecond, k) }
	}

	require.Equal(t, wantFirst, first)
	require.Equal(t, wantSecond, second)
}

// Scenario E: parallel disjointness. With every key distinct, the union of what every
// worker emits must equal the single-worker result with no duplicates.
func TestParallelScanDisjointness(t *testing.T) {
	n := 6000
	keys := make([]int32, n)
	for i := range keys { keys[i] = int32(i) }
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	o := buildTestIndex(t, keys)
	defer o.Close()

	var shared uint32
	claim := NewParallelClaim(&shared)

	workers := 4
	seen := make(map[int32]int)
	total := 0

	for w := 0; w < workers; w++ {
		s, err := o.BeginScan(nil, nil, false, true, claim)
		require.NoError(t, err)

		for {
			tup, ok, err := s.GetTuple()
			require.NoError(t, err)
			if !ok { break }
			seen[u4(tup.Key1())]++
			total++
		}
		s.EndScan()
	}

	require.Equal(t, n, total)
	require.Len(t, seen, n)
	for _, c := range seen { require.Equal(t, 1, c) }
}

// A runtime-recheck predicate (here a parity test on the key) must be honored even
// though the engine cannot answer it natively.
func TestRuntimeRecheckFiltersRows(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	n := 2000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(1000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	recheck := RecheckFunc(func(t *Tuple) bool { return u4(t.Key1())%2 == 0 })

	s, err := o.BeginScan(nil, []RecheckFunc{recheck}, false, true, nil)
	require.NoError(t, err)

	var got []int32
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		got = append(got, u4(tup.Key1()))
	}
	s.EndScan()

	for _, k := range got { require.Zero(t, k%2) }

	var want []int32
	for _, k := range sortedCopy(keys) {
		if k%2 == 0 { want = append(want, k) }
	}
	require.Equal(t, want, got)
}

// Building twice against the same path without closing/removing in between is rejected:
// this engine has no update path.
func TestBuildTwiceIsReadOnlyError(t *testing.T) {
	keys := []int32{1, 2, 3}
	o := buildTestIndex(t, keys)
	defer o.Close()

	_, err := o.Build(rowGen(keys))
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrKindReadOnly, oerr.Kind)
}

// Every write entry point fails with READ_ONLY, naming the operation.
func TestWriteEntryPointsAreReadOnly(t *testing.T) {
	o := buildTestIndex(t, []int32{1, 2, 3})
	defer o.Close()

	for _, op := range []struct {
		name string
		call func() error
	}{
		{"insert", func() error { return o.Insert([][]byte{i4(4)}, []bool{false}) }},
		{"update", func() error { return o.Update([][]byte{i4(4)}, []bool{false}) }},
		{"delete", func() error { return o.Delete([][]byte{i4(1)}, []bool{false}) }},
	} {
		err := op.call()
		require.Error(t, err)

		var oerr *Error
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, ErrKindReadOnly, oerr.Kind)
		require.Contains(t, err.Error(), op.name)
	}
}

// Reopening an already-built file must reconstruct the scan descriptor from the
// metapage and blob chains without needing a fresh Build call.
func TestReopenBuiltIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	n := 1500
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(10000) }

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)
	require.NoError(t, o.Close())

	reopened, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, sortedCopy(keys), drainForward(t, reopened, nil))
}

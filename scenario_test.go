package ordinex

import (
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sirgallo/ordinex/internal/bound"
)


//============================================= Helpers


func i8(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func u8(b []byte) int64 { return int64(binary.LittleEndian.Uint64(b)) }


//============================================= Scenario A: unique int4 range


func TestUniqueKeyRangeScan(t *testing.T) {
	n := 100_000
	keys := make([]int32, n)
	for i := range keys { keys[i] = int32(i + 1) }
	rng := rand.New(rand.NewSource(11))
	rng.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	o := buildTestIndex(t, keys)
	defer o.Close()

	// 100k rows span many leaves but a single internal level at the default fanout.
	require.Equal(t, 1, o.Height())

	lower := int32(50_000)
	got := drainForward(t, o, []Key{{Attr: 1, Strategy: GreaterEq, Value: i4(lower)}})

	require.Len(t, got, n-int(lower)+1)
	require.Equal(t, lower, got[0])
	require.Equal(t, int32(n), got[len(got)-1])
}


//============================================= Scenario B: heavy duplicates, include-RLE


// A Zipf-ish distribution over 10 distinct keys with an INCLUDE equal to key*7 forces
// the include-RLE layout; every emitted INCLUDE must still match its key.
func TestDuplicateHeavyIncludeValues(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	zipf := rand.NewZipf(rng, 1.3, 1.0, 9)

	n := 50_000
	keys := make([]int32, n)
	want := make(map[int32]int)
	for i := range keys {
		k := int32(zipf.Uint64())
		keys[i] = k
		want[k]++
	}

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer o.Close()

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= n { return nil, nil, false, nil }
		k := keys[i]
		i++
		return [][]byte{i4(k), i4(k * 7)}, []bool{false}, true, nil
	})
	require.NoError(t, err)

	target := int32(4)
	s, err := o.BeginScan([]Key{{Attr: 1, Strategy: Equal, Value: i4(target)}}, nil, false, true, nil)
	require.NoError(t, err)

	emitted := 0
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }

		require.Equal(t, target, u4(tup.Key1()))
		require.Equal(t, target*7, u4(tup.Include(0)))
		emitted++
	}
	s.EndScan()

	require.Equal(t, want[target], emitted)
}


//============================================= Scenario C: two-column equality on k2


func TestTwoColumnScanWithAttr2Equality(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	n := 30_000

	type row struct {
		date int64
		k2   int32
	}
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{date: int64(rng.Intn(10_000)), k2: int32(i % 1000)}
	}

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts: 2,
		KeyType:  [2]bound.KeyType{bound.Date, bound.Int4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer o.Close()

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= n { return nil, nil, false, nil }
		r := rows[i]
		i++
		return [][]byte{i8(r.date), i4(r.k2)}, []bool{false, false}, true, nil
	})
	require.NoError(t, err)

	lowerDate, wantK2 := int64(6000), int32(17)
	s, err := o.BeginScan([]Key{
		{Attr: 1, Strategy: GreaterEq, Value: i8(lowerDate)},
		{Attr: 2, Strategy: Equal, Value: i4(wantK2)},
	}, nil, false, true, nil)
	require.NoError(t, err)

	wantCount := 0
	for _, r := range rows {
		if r.date >= lowerDate && r.k2 == wantK2 { wantCount++ }
	}

	var prev int64 = -1
	gotCount := 0
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }

		d := u8(tup.Key1())
		require.GreaterOrEqual(t, d, lowerDate)
		require.GreaterOrEqual(t, d, prev)
		require.Equal(t, wantK2, u4(tup.Key2()))
		prev = d
		gotCount++
	}
	s.EndScan()

	require.Equal(t, wantCount, gotCount)
}

func TestTwoColumnBackwardScan(t *testing.T) {
	n := 5000
	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts: 2,
		KeyType:  [2]bound.KeyType{bound.Int8, bound.Int4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer o.Close()

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= n { return nil, nil, false, nil }
		k1, k2 := int64(i/10), int32(i%10)
		i++
		return [][]byte{i8(k1), i4(k2)}, []bool{false, false}, true, nil
	})
	require.NoError(t, err)

	s, err := o.BeginScan(nil, nil, true, true, nil)
	require.NoError(t, err)

	var prev int64 = 1 << 62
	count := 0
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }

		k1 := u8(tup.Key1())
		require.LessOrEqual(t, k1, prev)
		prev = k1
		count++
	}
	s.EndScan()

	require.Equal(t, n, count)
}


//============================================= Scenario D: empty and single-leaf


func TestEmptyIndexScansNothing(t *testing.T) {
	o := buildTestIndex(t, nil)
	defer o.Close()

	require.Empty(t, drainForward(t, o, nil))
	require.Empty(t, drainBackward(t, o, nil))
	require.Empty(t, drainForward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: i4(1)}}))
	require.Equal(t, 0, o.Height())
}

func TestSingleLeafBoundedScan(t *testing.T) {
	keys := make([]int32, 1000)
	for i := range keys { keys[i] = int32(i + 1) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	// 1000 8-byte rows fit a single leaf, so the root is that leaf: no internal levels.
	require.Equal(t, 0, o.Height())

	got := drainForward(t, o, []Key{{Attr: 1, Strategy: GreaterEq, Value: i4(990)}})
	require.Len(t, got, 11)
	for i, k := range got { require.Equal(t, int32(990+i), k) }
}


//============================================= Scenario F: NULL rejection


func TestNullKeyAbortsBuildAndRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= 10 { return nil, nil, false, nil }
		i++
		if i == 5 {
			return [][]byte{nil, i4(0)}, []bool{true}, true, nil
		}
		return [][]byte{i4(int32(i)), i4(int32(i) * 2)}, []bool{false}, true, nil
	})
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrKindNullKey, oerr.Kind)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

// A single row too wide for an empty leaf aborts the build with ROW_TOO_LARGE and,
// like every build failure, leaves no file behind.
func TestOversizedRowAbortsBuildWithRowTooLarge(t *testing.T) {
	incWidth := 9000 // wider than one leaf's whole payload
	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{incWidth},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)

	sent := false
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if sent { return nil, nil, false, nil }
		sent = true
		return [][]byte{i4(1), make([]byte, incWidth)}, []bool{false}, true, nil
	})
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrKindRowTooLarge, oerr.Kind)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestIsNullPredicateRejected(t *testing.T) {
	o := buildTestIndex(t, []int32{1, 2, 3})
	defer o.Close()

	_, err := o.BeginScan([]Key{{Attr: 1, IsNull: true}}, nil, false, true, nil)
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrKindNullKey, oerr.Kind)
}


//============================================= Backward-scan bound handling


// Backward scans honor a lower bound regardless of whether the host planner ever
// emits such a plan.
func TestBackwardScanWithLowerBound(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	n := 4000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(3000) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	lower := int32(2500)
	got := drainBackward(t, o, []Key{{Attr: 1, Strategy: GreaterEq, Value: i4(lower)}})

	var want []int32
	for _, k := range sortedCopy(keys) {
		if k >= lower { want = append(want, k) }
	}
	for i, j := 0, len(want)-1; i < j; i, j = i+1, j-1 { want[i], want[j] = want[j], want[i] }

	require.Equal(t, want, got)
}

func TestBackwardEqualityScan(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	domain := 30
	n := 4000
	keys := make([]int32, n)
	want := make(map[int32]int)
	for i := range keys {
		k := int32(rng.Intn(domain))
		keys[i] = k
		want[k]++
	}

	o := buildTestIndex(t, keys)
	defer o.Close()

	target := int32(11)
	got := drainBackward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: i4(target)}})

	require.Len(t, got, want[target])
	for _, k := range got { require.Equal(t, target, k) }
}

// A duplicate run spanning several leaves must be fully visited by a backward scan
// whose inclusive upper bound equals the duplicated value: descent must land on the
// last leaf holding the value, not the first. The INCLUDE column varies per row so
// the leaf writer cannot collapse the run into a single RLE leaf.
func TestBackwardUpperBoundOverLeafSpanningRun(t *testing.T) {
	n := 10_000
	keys := make([]int32, 0, n)
	for i := 0; i < 3000; i++ { keys = append(keys, 1) }
	for i := 0; i < 4000; i++ { keys = append(keys, 2) }
	for i := 0; i < 3000; i++ { keys = append(keys, 3) }

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer o.Close()

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= n { return nil, nil, false, nil }
		k := keys[i]
		i++
		return [][]byte{i4(k), i4(int32(i))}, []bool{false}, true, nil
	})
	require.NoError(t, err)
	require.Greater(t, int(o.PageCount()), 5)

	got := drainBackward(t, o, []Key{{Attr: 1, Strategy: LessEq, Value: i4(2)}})
	require.Len(t, got, 7000)
	require.Equal(t, int32(2), got[0])
	require.Equal(t, int32(1), got[len(got)-1])
}


//============================================= Text keys


func TestTextKeyRoundTrip(t *testing.T) {
	words := []string{"pear", "apple", "mango", "fig", "cherry", "banana", "kiwi", "date"}

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:  1,
		KeyType:   [2]bound.KeyType{bound.Text},
		Collation: [2]bound.Collation{bound.CollationC},
	}

	o, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer o.Close()

	i := 0
	_, err = o.Build(func() ([][]byte, []bool, bool, error) {
		if i >= len(words) { return nil, nil, false, nil }
		w := words[i]
		i++
		return [][]byte{[]byte(w)}, []bool{false}, true, nil
	})
	require.NoError(t, err)

	s, err := o.BeginScan(nil, nil, false, true, nil)
	require.NoError(t, err)

	var got []string
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		got = append(got, string(tup.Key1()))
	}
	s.EndScan()

	want := append([]string(nil), words...)
	sort.Strings(want)
	require.Equal(t, want, got)

	// Point query strips the fixed-budget padding on the way back out.
	probe := bound.PadText([]byte("mango"), bound.TextBudget)
	single := drainTextForward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: probe}})
	require.Equal(t, []string{"mango"}, single)
}

func drainTextForward(t *testing.T, o *Ordinex, keys []Key) []string {
	t.Helper()

	s, err := o.BeginScan(keys, nil, false, true, nil)
	require.NoError(t, err)

	var got []string
	for {
		tup, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		got = append(got, string(tup.Key1()))
	}
	s.EndScan()
	return got
}


//============================================= Cancellation, tunables, scan modes


// A host interrupt raised mid-scan stops the scan at the next leaf boundary without
// emitting the rest of the index.
func TestInterruptStopsScanBetweenLeaves(t *testing.T) {
	n := 20_000
	keys := make([]int32, n)
	for i := range keys { keys[i] = int32(i) }

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	interrupted := false
	tun := DefaultTunables()
	tun.Interrupted = func() bool { return interrupted }

	o, err := Open(path, desc, tun)
	require.NoError(t, err)
	defer o.Close()

	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)

	s, err := o.BeginScan(nil, nil, false, true, nil)
	require.NoError(t, err)

	emitted := 0
	for {
		_, ok, err := s.GetTuple()
		require.NoError(t, err)
		if !ok { break }
		emitted++
		if emitted == 100 { interrupted = true }
	}
	s.EndScan()

	require.Less(t, emitted, n)
}

func TestNonIndexOnlyScanRejected(t *testing.T) {
	o := buildTestIndex(t, []int32{1, 2, 3})
	defer o.Close()

	s, err := o.BeginScan(nil, nil, false, false, nil)
	require.NoError(t, err)

	_, _, err = s.GetTuple()
	require.Error(t, err)

	var oerr *Error
	require.ErrorAs(t, err, &oerr)
	require.Equal(t, ErrKindNonIndexOnlyUnsupported, oerr.Kind)
	s.EndScan()
}

func TestBackwardParallelScanRejected(t *testing.T) {
	o := buildTestIndex(t, []int32{1, 2, 3})
	defer o.Close()

	var shared uint32
	_, err := o.BeginScan(nil, nil, true, true, NewParallelClaim(&shared))
	require.Error(t, err)
}

// With position scans disabled the engine degrades to a filtered full chain walk;
// the emitted rows must not change.
func TestPositionScanOffMatchesPositionScanOn(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	n := 6000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(4000) }

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	tun := DefaultTunables()
	tun.UsePositionScan = false

	o, err := Open(path, desc, tun)
	require.NoError(t, err)
	defer o.Close()

	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)

	bounds := []Key{
		{Attr: 1, Strategy: GreaterEq, Value: i4(1000)},
		{Attr: 1, Strategy: Less, Value: i4(2000)},
	}
	got := drainForward(t, o, bounds)

	var want []int32
	for _, k := range sortedCopy(keys) {
		if k >= 1000 && k < 2000 { want = append(want, k) }
	}
	require.Equal(t, want, got)

	require.Equal(t, want, drainForward(t, o, bounds))

	on, err := Open(path, desc, DefaultTunables())
	require.NoError(t, err)
	defer on.Close()

	require.Equal(t, got, drainForward(t, on, bounds))
}

func TestForcedBoundsCheckPassesOnHealthyIndex(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	n := 3000
	keys := make([]int32, n)
	for i := range keys { keys[i] = rng.Int31n(500) }

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	tun := DefaultTunables()
	tun.TestForcePageBoundsCheck = true

	o, err := Open(path, desc, tun)
	require.NoError(t, err)
	defer o.Close()

	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)

	require.Equal(t, sortedCopy(keys), drainForward(t, o, nil))
}

// With bloom filters enabled, equality probes must return the same rows as without
// them (the filter can only skip subtrees that definitely lack the value), including
// probes for values absent from the index.
func TestBloomFilterEqualityScan(t *testing.T) {
	rng := rand.New(rand.NewSource(18))
	domain := 50
	n := 20_000
	keys := make([]int32, n)
	want := make(map[int32]int)
	for i := range keys {
		k := int32(rng.Intn(domain)) * 3 // only multiples of 3 present
		keys[i] = k
		want[k]++
	}

	path := filepath.Join(t.TempDir(), "idx.ord")
	desc := IndexDescriptor{
		NKeyAtts:   1,
		KeyType:    [2]bound.KeyType{bound.Int4},
		IncludeLen: []int{4},
	}

	tun := DefaultTunables()
	tun.BloomFiltersEnabled = true

	o, err := Open(path, desc, tun)
	require.NoError(t, err)
	defer o.Close()

	_, err = o.Build(rowGen(keys))
	require.NoError(t, err)

	present := int32(42)
	got := drainForward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: i4(present)}})
	require.Len(t, got, want[present])
	for _, k := range got { require.Equal(t, present, k) }

	absent := int32(43)
	require.Empty(t, drainForward(t, o, []Key{{Attr: 1, Strategy: Equal, Value: i4(absent)}}))
}

// parallel_rescan: resetting the shared claim word lets a second round of workers
// re-run the scan from scratch.
func TestParallelClaimResetAllowsSecondPass(t *testing.T) {
	n := 6000
	keys := make([]int32, n)
	for i := range keys { keys[i] = int32(i) }

	o := buildTestIndex(t, keys)
	defer o.Close()

	var shared uint32
	claim := NewParallelClaim(&shared)

	runWorkers := func() int {
		total := 0
		for w := 0; w < 3; w++ {
			s, err := o.BeginScan(nil, nil, false, true, claim)
			require.NoError(t, err)
			for {
				_, ok, err := s.GetTuple()
				require.NoError(t, err)
				if !ok { break }
				total++
			}
			s.EndScan()
		}
		return total
	}

	require.Equal(t, n, runWorkers())

	claim.Reset()
	require.Equal(t, n, runWorkers())
}

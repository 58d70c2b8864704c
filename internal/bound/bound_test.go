package bound

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func i4(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestCmpInt4Ordering(t *testing.T) {
	require.Equal(t, -1, CmpKeyToLowerBound(i4(1), i4(2), Int4, CollationC, nil))
	require.Equal(t, 0, CmpKeyToLowerBound(i4(5), i4(5), Int4, CollationC, nil))
	require.Equal(t, 1, CmpKeyToLowerBound(i4(9), i4(2), Int4, CollationC, nil))
	require.Equal(t, -1, CmpKeyToLowerBound(i4(-5), i4(0), Int4, CollationC, nil))
}

func TestCmpTextCPadding(t *testing.T) {
	a := PadText([]byte("abc"), TextBudget)
	b := PadText([]byte("abd"), TextBudget)
	require.Equal(t, -1, CmpKeyToLowerBound(a, b, Text, CollationC, nil))

	c := PadText([]byte("ab"), TextBudget)
	require.Equal(t, -1, CmpKeyToLowerBound(c, a, Text, CollationC, nil))
}

func TestCmpTextLocaleDispatchesToComparator(t *testing.T) {
	called := false
	cmp := func(a, b []byte) int {
		called = true
		return 1
	}

	got := CmpKeyToLowerBound(PadText([]byte("a"), TextBudget), PadText([]byte("b"), TextBudget), Text, CollationLocale, cmp)
	require.True(t, called)
	require.Equal(t, 1, got)
}

func TestCmpUUIDIsByteOrder(t *testing.T) {
	a := make([]byte, 16)
	b := make([]byte, 16)
	b[15] = 1
	require.Equal(t, -1, CmpKeyToLowerBound(a, b, UUID, CollationC, nil))
}

// Package radixsort implements the LSD radix sort used by the build pipeline for
// 2/4/8-byte signed integer keys (and their two-int8 composite), 8 bits per pass,
// over the sign-flipped unsigned representation. The sort is stable, matching the
// ordering the comparison sort produces for every other type.
package radixsort

// SignFlip maps a signed integer's bit pattern to an unsigned one that sorts in the
// same order: flipping the sign bit moves the negative range below the non-negative
// range in unsigned-comparison order.
func SignFlipInt16(v int16) uint16 { return uint16(v) ^ 0x8000 }
func SignFlipInt32(v int32) uint32 { return uint32(v) ^ 0x80000000 }
func SignFlipInt64(v int64) uint64 { return uint64(v) ^ 0x8000000000000000 }

// KeyAt returns the sign-flipped unsigned sort key for row i.
type KeyAt func(i int) uint64

// Stable returns a permutation of [0, n) that stably sorts rows by KeyAt ascending,
// running an 8-bit-per-pass LSD radix over `widthBytes` bytes of the key.
func Stable(n int, key KeyAt, widthBytes int) []int {
	order := make([]int, n)
	for i := range order { order[i] = i }
	if n == 0 { return order }

	keys := make([]uint64, n)
	for i := 0; i < n; i++ { keys[i] = key(i) }

	buf := make([]int, n)
	bufKeys := make([]uint64, n)

	for pass := 0; pass < widthBytes; pass++ {
		shift := uint(pass * 8)

		var count [257]int
		for i := 0; i < n; i++ {
			b := byte(keys[i] >> shift)
			count[int(b)+1]++
		}
		for i := 0; i < 256; i++ { count[i+1] += count[i] }

		for i := 0; i < n; i++ {
			b := byte(keys[i] >> shift)
			pos := count[b]
			count[b]++
			buf[pos] = order[i]
			bufKeys[pos] = keys[i]
		}

		order, buf = buf, order
		keys, bufKeys = bufKeys, keys
	}

	return order
}

// StableComposite sorts by (k1, k2) lexicographically using two sequential stable
// radix passes: sorting by the secondary key first and the primary key second relies
// on the radix sort's stability to preserve k2 order within equal-k1 groups, the
// standard MSD-via-repeated-LSD technique for multi-column keys.
func StableComposite(n int, k1, k2 KeyAt, width1, width2 int) []int {
	order := Stable(n, k2, width2)

	reordered := func(i int) uint64 { return k1(order[i]) }
	secondOrder := Stable(n, reordered, width1)

	out := make([]int, n)
	for i, idx := range secondOrder { out[i] = order[idx] }

	return out
}

package build


//============================================= Collect Arena


// Arena is a growable, geometrically resized byte arena: every Append either fits in
// the current backing slice or triggers a fresh, larger allocation (never an in-place
// realloc), mirroring the collect phase's single-pass streaming input.
// Callers must not take slices of Arena.Bytes() until collection is finished: Append can
// still reallocate and orphan any slice taken mid-collection.
type Arena struct {
	buf []byte
	len int
}

// NewArena returns an empty arena.
func NewArena() *Arena { return &Arena{} }

// Append copies b into the arena, growing if necessary, and returns its byte offset.
func (a *Arena) Append(b []byte) int {
	a.grow(len(b))
	off := a.len
	copy(a.buf[a.len:], b)
	a.len += len(b)
	return off
}

func (a *Arena) grow(n int) {
	if a.len+n <= len(a.buf) { return }

	newCap := len(a.buf)
	if newCap == 0 { newCap = 1 << 16 }
	for newCap < a.len+n { newCap *= 2 }

	fresh := make([]byte, newCap)
	copy(fresh, a.buf[:a.len])
	a.buf = fresh
}

// Bytes returns the arena's live contents. Valid once collection has finished appending.
func (a *Arena) Bytes() []byte { return a.buf[:a.len] }

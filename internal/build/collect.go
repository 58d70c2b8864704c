package build

import "github.com/sirgallo/ordinex/internal/bound"
import "github.com/sirgallo/ordinex/internal/ordinexerr"


//============================================= Collect


// rowOffsets records where one row's fixed-width columns landed in the arena. Lengths
// are not stored: every column's width is fixed by Options for the life of the build,
// so an offset plus the format's declared width always recovers the right slice.
type rowOffsets struct {
	k1Off  int
	k2Off  int
	incOff []int
}

// Collected is every row pulled from the host stream, validated and copied into one
// arena, not yet ordered.
type Collected struct {
	Opt   Options
	Arena *Arena
	Rows  []rowOffsets
}

// N is the number of rows collected.
func (c *Collected) N() int { return len(c.Rows) }

// K1 returns row i's first key attribute bytes.
func (c *Collected) K1(i int) []byte {
	off := c.Rows[i].k1Off
	return c.Arena.Bytes()[off : off+c.Opt.KeyLen[0]]
}

// K2 returns row i's second key attribute bytes (two-column indexes only).
func (c *Collected) K2(i int) []byte {
	off := c.Rows[i].k2Off
	return c.Arena.Bytes()[off : off+c.Opt.KeyLen[1]]
}

// Include returns row i's INCLUDE column `col` bytes.
func (c *Collected) Include(i, col int) []byte {
	off := c.Rows[i].incOff[col]
	w := c.Opt.IncludeLen[col]
	return c.Arena.Bytes()[off : off+w]
}

// Collect drains `next` to exhaustion, validating every row against Options and copying
// its fixed-width columns into the arena. NULL key attributes and width mismatches abort
// the build immediately with a typed error; nothing is written to disk from this phase.
func Collect(next RowFunc, opt Options) (*Collected, error) {
	arena := NewArena()
	c := &Collected{Opt: opt, Arena: arena}

	for {
		values, isnull, ok, err := next()
		if err != nil { return nil, err }
		if !ok { break }

		for i := 0; i < opt.NKeyAtts; i++ {
			if isnull[i] { return nil, ordinexerr.NewNullKeyErr("key attribute cannot be null") }
		}

		ro := rowOffsets{}

		k1, err := fitKey(values[0], opt.KeyType[0], opt.KeyLen[0])
		if err != nil { return nil, err }
		ro.k1Off = arena.Append(k1)

		if opt.NKeyAtts == 2 {
			k2, err := fitKey(values[1], opt.KeyType[1], opt.KeyLen[1])
			if err != nil { return nil, err }
			ro.k2Off = arena.Append(k2)
		}

		ro.incOff = make([]int, len(opt.IncludeLen))
		for col, w := range opt.IncludeLen {
			v := values[opt.NKeyAtts+col]
			if len(v) != w {
				return nil, ordinexerr.NewUnsupportedTypeErr("include column width mismatch")
			}
			ro.incOff[col] = arena.Append(v)
		}

		c.Rows = append(c.Rows, ro)
	}

	return c, nil
}

// fitKey validates and, for text, pads a raw key value to its fixed on-disk width.
func fitKey(v []byte, kt bound.KeyType, width int) ([]byte, error) {
	if kt == bound.Text {
		if len(v) > width {
			return nil, ordinexerr.NewUnsupportedTypeErr("text key exceeds fixed budget")
		}
		return bound.PadText(v, width), nil
	}

	if len(v) != width {
		return nil, ordinexerr.NewUnsupportedTypeErr("key attribute width mismatch")
	}
	return v, nil
}

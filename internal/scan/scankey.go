package scan

import (
	"github.com/sirgallo/ordinex/internal/ordinexerr"
	"github.com/sirgallo/ordinex/internal/tuple"
)


//============================================= Scan-Key Intake


// Strategy is one of the five operator strategies the engine registers.
type Strategy int

const (
	Less Strategy = iota
	LessEq
	Equal
	GreaterEq
	Greater
)

// Key is one scan-key predicate as the host hands it to Rescan.
type Key struct {
	// Attr is the key attribute number, 1 or 2.
	Attr     int
	Strategy Strategy
	Value    []byte
	// IsNull marks an `IS NULL` predicate; always rejected.
	IsNull bool
}

// RecheckFunc evaluates a runtime-recheck predicate against a materialized output
// tuple, for attribute-2 predicates the engine cannot answer natively. It returns
// true when the row should be kept.
type RecheckFunc func(t *tuple.Tuple) bool

// bounds is the parsed, direction-agnostic state Rescan derives from the scan-key list.
type bounds struct {
	hasLower, lowerStrict bool
	lower                 []byte

	hasUpper, upperStrict bool
	upper                 []byte

	equality      bool
	equalityValue []byte

	hasAttr2Eq bool
	attr2Eq    []byte

	needRuntimeRecheck bool
}

// parseKeys turns the host's scan-key list into the scan's bound state.
func parseKeys(keys []Key) (bounds, error) {
	var b bounds

	for _, k := range keys {
		if k.IsNull {
			return b, ordinexerr.NewNullKeyErr("scan predicate IS NULL is unsupported; the index contains no nulls")
		}

		switch k.Attr {
			case 1:
				switch k.Strategy {
					case GreaterEq, Greater:
						b.hasLower = true
						b.lower = k.Value
						b.lowerStrict = k.Strategy == Greater
					case Equal:
						// Equality is both bounds at once: the lower bound drives the
						// descent, the upper bound lets a backward scan position and
						// terminate exactly like any other bounded scan.
						b.hasLower = true
						b.lower = k.Value
						b.lowerStrict = false
						b.hasUpper = true
						b.upper = k.Value
						b.upperStrict = false
						b.equality = true
						b.equalityValue = k.Value
					case LessEq, Less:
						b.hasUpper = true
						b.upper = k.Value
						b.upperStrict = k.Strategy == Less
				}
			case 2:
				if k.Strategy == Equal {
					b.hasAttr2Eq = true
					b.attr2Eq = k.Value
				} else {
					b.needRuntimeRecheck = true
				}
		}
	}

	return b, nil
}

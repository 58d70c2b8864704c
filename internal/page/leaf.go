package page

import "errors"


//============================================= Leaf Dispatch


// Tag returns the format discriminator at payload offset 0: a value < 0x8000 signals
// plain (and IS the row count), otherwise it is one of the three RLE tag constants.
func Tag(payload []byte) uint16 { return readU16(payload, 0) }

// IsPlain reports whether a one-column leaf uses the plain (non-RLE) layout.
func IsPlain(tag uint16) bool { return tag < 0x8000 }

// NItems parses the first word of a one-column leaf, recognising the tag vs. the
// plain-count discriminator, and returns the leaf's declared item count.
func NItems(payload []byte) (int, error) {
	tag := Tag(payload)
	switch {
		case IsPlain(tag):
			return int(tag), nil
		case tag == TagRLEv1 || tag == TagRLEv2 || tag == TagIncludeRLE:
			return int(readU16(payload, 2)), nil
		default:
			return 0, errors.New("ordinex: corrupt page: unrecognised leaf tag")
	}
}

// LocateKey returns the key bytes at the given 1-based offset on a plain leaf. It fails
// with a corrupt-page condition when the offset exceeds the declared item count. RLE
// leaves are located through DecodeRLE + RunBoundsFrom instead, since their per-row
// position depends on run membership rather than a fixed stride.
func LocateKey(payload []byte, f KeyFormat, offset1based int) ([]byte, error) {
	n := PlainNItems(payload)
	if offset1based < 1 || offset1based > n {
		return nil, errors.New("ordinex: corrupt page: item offset exceeds declared count")
	}

	return PlainKeyAt(payload, f, offset1based-1), nil
}

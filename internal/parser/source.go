package parser

import "unicode/utf8"

// Source is random-access input for a parse run. At must return 0 for
// out-of-range positions; the machine bounds-checks before advancing.
type Source interface {
	Len() int64
	At(i int64) byte
}

type byteSource []byte

func (b byteSource) Len() int64 { return int64(len(b)) }

func (b byteSource) At(i int64) byte {
	if i < 0 || i >= int64(len(b)) {
		return 0
	}
	return b[i]
}

// Bytes wraps a byte slice as a Source.
func Bytes(b []byte) Source { return byteSource(b) }

// sourceBytes materializes a subject range, for backref comparisons in
// tests and for capture attribute resolution.
func sourceBytes(src Source, start, end int64) []byte {
	out := make([]byte, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, src.At(i))
	}
	return out
}

// decodeRune decodes the UTF-8 scalar at pos. It returns size 0 for
// truncated or malformed sequences.
func decodeRune(src Source, pos, n int64) (rune, int64) {
	if pos >= n {
		return 0, 0
	}
	b0 := src.At(pos)
	if b0 < 0x80 {
		return rune(b0), 1
	}

	var size int64
	switch {
	case b0&0xe0 == 0xc0:
		size = 2
	case b0&0xf0 == 0xe0:
		size = 3
	case b0&0xf8 == 0xf0:
		size = 4
	default:
		return 0, 0
	}
	if pos+size > n {
		return 0, 0
	}

	var buf [4]byte
	buf[0] = b0
	for i := int64(1); i < size; i++ {
		buf[i] = src.At(pos + i)
	}
	r, sz := utf8.DecodeRune(buf[:size])
	if r == utf8.RuneError && sz <= 1 {
		return 0, 0
	}
	return r, int64(sz)
}

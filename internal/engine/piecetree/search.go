package piecetree

import (
	"strings"
	"sync/atomic"
)

// Range is a half-open logical byte range.
type Range struct {
	Start, End int64
}

// Searcher finds pattern occurrences in a slice, scanning forward with
// a Boyer-Moore-Horspool bad character table. Reads go through the
// slice's byte cursor so pieces are never concatenated.
type Searcher struct {
	pattern []byte
	badChar [256]int64
	lower   bool
}

// NewSearcher builds a forward searcher for pattern.
func NewSearcher(pattern []byte) *Searcher {
	s := &Searcher{pattern: append([]byte(nil), pattern...)}
	m := int64(len(pattern))
	for i := range s.badChar {
		s.badChar[i] = m
	}
	for i := 0; i < len(pattern)-1; i++ {
		s.badChar[pattern[i]] = m - 1 - int64(i)
	}
	return s
}

// NewSearcherFold builds an ASCII case-insensitive forward searcher.
// Non-ASCII patterns are not foldable and return false.
func NewSearcherFold(pattern string) (*Searcher, bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] >= 0x80 {
			return nil, false
		}
	}
	s := NewSearcher([]byte(strings.ToLower(pattern)))
	s.lower = true
	return s, true
}

// FindIter returns an iterator over matches in the slice.
func (s *Searcher) FindIter(sl Slice) *SearchIter {
	return s.FindIterStop(sl, nil)
}

// FindIterStop is FindIter with a cooperative stop flag checked once
// per alignment, for searches driven from background tasks.
func (s *Searcher) FindIterStop(sl Slice, stop *atomic.Bool) *SearchIter {
	return &SearchIter{
		s:     s,
		n:     sl.Len(),
		bytes: sl.Reader(),
		i:     int64(len(s.pattern)) - 1,
		stop:  stop,
	}
}

// SearchIter yields matches front to back.
type SearchIter struct {
	s     *Searcher
	n     int64
	bytes *Reader
	i     int64
	stop  *atomic.Bool
}

func (it *SearchIter) at(i int64) byte {
	b, _ := it.bytes.At(i)
	if it.s.lower && 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return b
}

// Next returns the next match, or false when the slice is exhausted or
// the stop flag was raised.
func (it *SearchIter) Next() (Range, bool) {
	pattern := it.s.pattern
	m := int64(len(pattern))
	if m == 0 || m > it.n {
		return Range{}, false
	}

	for it.i < it.n {
		if it.stop != nil && it.stop.Load() {
			return Range{}, false
		}
		j := m - 1

		for it.at(it.i) == pattern[j] {
			if j == 0 {
				it.i += m
				return Range{Start: it.i - m, End: it.i}, true
			}
			j--
			it.i--
		}

		shift := it.s.badChar[it.at(it.i)]
		if m-j > shift {
			shift = m - j
		}
		it.i += shift
	}
	return Range{}, false
}

// SearcherRev finds pattern occurrences scanning backward.
type SearcherRev struct {
	pattern []byte
	badChar [256]int64
	lower   bool
}

// NewSearcherRev builds a backward searcher for pattern.
func NewSearcherRev(pattern []byte) *SearcherRev {
	s := &SearcherRev{pattern: append([]byte(nil), pattern...)}
	m := int64(len(pattern))
	for i := range s.badChar {
		s.badChar[i] = m
	}
	for i := len(pattern) - 1; i >= 0; i-- {
		s.badChar[pattern[i]] = int64(i)
	}
	return s
}

// FindIter returns an iterator over matches in the slice, back to front.
func (s *SearcherRev) FindIter(sl Slice) *SearchIterRev {
	return s.FindIterStop(sl, nil)
}

// FindIterStop is FindIter with a cooperative stop flag.
func (s *SearcherRev) FindIterStop(sl Slice, stop *atomic.Bool) *SearchIterRev {
	i := sl.Len() - int64(len(s.pattern))
	if i < 0 {
		i = 0
	}
	return &SearchIterRev{
		s:     s,
		bytes: sl.ReaderAt(sl.Len()),
		i:     i,
		stop:  stop,
	}
}

// SearchIterRev yields matches back to front.
type SearchIterRev struct {
	s     *SearcherRev
	bytes *Reader
	i     int64
	stop  *atomic.Bool
}

func (it *SearchIterRev) at(i int64) byte {
	b, _ := it.bytes.At(i)
	if it.s.lower && 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return b
}

// Next returns the next match, or false when the slice front is passed.
func (it *SearchIterRev) Next() (Range, bool) {
	pattern := it.s.pattern
	m := int64(len(pattern))
	if m == 0 || m > it.bytes.Len() {
		return Range{}, false
	}

	cont := it.i != 0
	for cont {
		if it.stop != nil && it.stop.Load() {
			return Range{}, false
		}
		cont = it.i != 0
		var j int64

		for it.at(it.i) == pattern[j] {
			if j == m-1 {
				end := it.i + 1
				start := end - m
				it.i -= m
				if it.i < 0 {
					it.i = 0
				}
				return Range{Start: start, End: end}, true
			}
			j++
			it.i++
		}

		raw, _ := it.bytes.At(it.i)
		shift := it.s.badChar[raw]
		if j+1 > shift {
			shift = j + 1
		}
		it.i -= shift
		if it.i < 0 {
			it.i = 0
		}
	}
	return Range{}, false
}

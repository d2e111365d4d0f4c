package piecetree

import "sync/atomic"

const (
	bucketShift = 16
	bucketSize  = 1 << bucketShift
)

type bucket [bucketSize]byte

// addStore is the append-only log of inserted bytes. Storage is a list
// of fixed-size buckets whose addresses never move once allocated, so
// readers can slice any published range without locks while the single
// writer keeps appending. A piece is published to the tree only after
// its bytes are fully written.
type addStore struct {
	buckets atomic.Pointer[[]*bucket]
	size    int64 // bytes appended, writer-owned
}

func newAddStore() *addStore {
	s := &addStore{}
	empty := make([]*bucket, 0)
	s.buckets.Store(&empty)
	return s
}

func (s *addStore) len() int64 { return s.size }

// appendRun copies b into the current bucket and reports the store
// position and count written. A run never crosses a bucket boundary; a
// short count means the caller must continue with a separate piece so
// no piece spans non-contiguous memory.
func (s *addStore) appendRun(b []byte) (pos int64, n int) {
	pos = s.size
	idx := int(pos >> bucketShift)
	off := int(pos & (bucketSize - 1))

	bs := *s.buckets.Load()
	if idx == len(bs) {
		grown := make([]*bucket, len(bs)+1)
		copy(grown, bs)
		grown[len(bs)] = new(bucket)
		s.buckets.Store(&grown)
		bs = grown
	}

	n = copy(bs[idx][off:], b)
	s.size += int64(n)
	return pos, n
}

// slice returns the bytes at [pos, pos+length). The range is contiguous
// within one bucket, which holds for every published piece.
func (s *addStore) slice(pos, length int64) []byte {
	if length == 0 {
		return nil
	}
	bs := *s.buckets.Load()
	b := bs[pos>>bucketShift]
	off := pos & (bucketSize - 1)
	return b[off : off+length]
}

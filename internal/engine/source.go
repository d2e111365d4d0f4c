package engine

import (
	"github.com/dshills/weft/internal/engine/piecetree"
	"github.com/dshills/weft/internal/parser"
)

// snapshotSource adapts a snapshot to random-access parse input. The
// reader is a stateful cursor, so a source serves one goroutine at a
// time.
type snapshotSource struct {
	snap *piecetree.Snapshot
	r    *piecetree.Reader
	n    int64
}

func (s *snapshotSource) Len() int64 { return s.n }

func (s *snapshotSource) At(i int64) byte {
	b, ok := s.r.At(i)
	if !ok {
		return 0
	}
	return b
}

// Source captures the current content as parse input together with its
// revision. The backing snapshot stays retained for the life of the
// source; that only makes later edits clone more, it never corrupts.
func (b *Buffer) Source() (parser.Source, uint64) {
	snap, rev := b.Snapshot()
	return &snapshotSource{
		snap: snap,
		r:    snap.Slice(0, snap.Len()).Reader(),
		n:    snap.Len(),
	}, rev
}

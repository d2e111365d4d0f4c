package piecetree

// Chunk is one contiguous run of buffer content. The slice aliases a
// backing store and must not be modified.
type Chunk struct {
	// Pos is the logical offset of the first byte.
	Pos int64
	// Data holds the chunk bytes.
	Data []byte
}

// Chunks iterates the contiguous runs of a snapshot, one per piece.
type Chunks struct {
	view   *Snapshot
	pieces pieceIter
}

// Chunks returns a chunk cursor positioned at the start.
func (s *Snapshot) Chunks() Chunks {
	return s.ChunksAt(0)
}

// ChunksAt returns a chunk cursor positioned at the piece covering pos.
func (s *Snapshot) ChunksAt(pos int64) Chunks {
	return Chunks{view: s, pieces: newPieceIter(s, pos)}
}

// Get returns the current chunk without moving.
func (c *Chunks) Get() (Chunk, bool) {
	pPos, p, ok := c.pieces.get()
	if !ok {
		return Chunk{}, false
	}
	return Chunk{Pos: pPos, Data: c.view.readPiece(p)}, true
}

// Next moves to the following chunk and returns it.
func (c *Chunks) Next() (Chunk, bool) {
	pPos, p, ok := c.pieces.next()
	if !ok {
		return Chunk{}, false
	}
	return Chunk{Pos: pPos, Data: c.view.readPiece(p)}, true
}

// Prev moves to the preceding chunk and returns it.
func (c *Chunks) Prev() (Chunk, bool) {
	pPos, p, ok := c.pieces.prev()
	if !ok {
		return Chunk{}, false
	}
	return Chunk{Pos: pPos, Data: c.view.readPiece(p)}, true
}

// Slice is a logical byte range of a snapshot. It shares the
// snapshot's stores; no bytes are copied.
type Slice struct {
	view       *Snapshot
	start, end int64
}

// Slice bounds a view of the snapshot to [start, end).
func (s *Snapshot) Slice(start, end int64) Slice {
	if start < 0 {
		start = 0
	}
	if end > s.size {
		end = s.size
	}
	if start > end {
		start = end
	}
	return Slice{view: s, start: start, end: end}
}

// Start returns the slice's first logical offset in the snapshot.
func (sl Slice) Start() int64 { return sl.start }

// Len returns the slice length in bytes.
func (sl Slice) Len() int64 { return sl.end - sl.start }

// Bytes copies the slice content out of the backing stores.
func (sl Slice) Bytes() []byte {
	out := make([]byte, 0, sl.Len())
	it := newBoundedPieceIter(sl.view, 0, sl.start, sl.end)
	for _, p, ok := it.get(); ok; _, p, ok = it.next() {
		out = append(out, sl.view.readPiece(p)...)
	}
	return out
}

// Reader returns a byte cursor over the slice, positioned at its start.
func (sl Slice) Reader() *Reader {
	return sl.ReaderAt(0)
}

// ReaderAt returns a byte cursor positioned at offset within the slice.
func (sl Slice) ReaderAt(offset int64) *Reader {
	r := &Reader{
		view:  sl.view,
		start: sl.start,
		end:   sl.end,
	}
	r.seek(sl.start + offset)
	return r
}

// ReadAt copies the range [pos, pos+len(p)) into p.
func (s *Snapshot) ReadAt(p []byte, pos int64) (int, error) {
	if pos < 0 || pos > s.size {
		return 0, ErrOutOfBounds
	}
	end := pos + int64(len(p))
	if end > s.size {
		end = s.size
	}
	n := copy(p, s.Slice(pos, end).Bytes())
	return n, nil
}

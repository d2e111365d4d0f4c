package piecetree

// Reader is a byte cursor over a slice of a snapshot. It caches the
// chunk under the cursor, so sequential access touches the tree only at
// piece boundaries and random access near the cursor stays cheap.
type Reader struct {
	view       *Snapshot
	start, end int64

	pieces     pieceIter
	chunk      []byte
	chunkStart int64

	pos int64
}

func (r *Reader) seek(abs int64) {
	r.pos = abs
	r.pieces = newPieceIter(r.view, abs)
	if pPos, p, ok := r.pieces.get(); ok {
		r.chunk = r.view.readPiece(p)
		r.chunkStart = pPos
	} else {
		r.chunk = nil
		r.chunkStart = abs
	}
}

// Len returns the readable length in bytes.
func (r *Reader) Len() int64 { return r.end - r.start }

// Pos returns the cursor position relative to the slice start.
func (r *Reader) Pos() int64 { return r.pos - r.start }

// SetPos moves the cursor to the given relative position.
func (r *Reader) SetPos(pos int64) { r.pos = r.start + pos }

// At returns the byte at the given relative position without moving the
// cursor. Access walks the cached chunk's neighbors, so probes near the
// last read position are O(1).
func (r *Reader) At(pos int64) (byte, bool) {
	abs := r.start + pos
	if pos < 0 || abs >= r.end {
		return 0, false
	}
	for abs >= r.chunkStart+int64(len(r.chunk)) {
		pPos, p, ok := r.pieces.next()
		if !ok {
			return 0, false
		}
		r.chunk = r.view.readPiece(p)
		r.chunkStart = pPos
	}
	for abs < r.chunkStart {
		pPos, p, ok := r.pieces.prev()
		if !ok {
			return 0, false
		}
		r.chunk = r.view.readPiece(p)
		r.chunkStart = pPos
	}
	return r.chunk[abs-r.chunkStart], true
}

// Next returns the byte under the cursor and advances past it.
func (r *Reader) Next() (byte, bool) {
	b, ok := r.At(r.pos - r.start)
	if ok {
		r.pos++
	}
	return b, ok
}

// Prev steps the cursor back one byte and returns it.
func (r *Reader) Prev() (byte, bool) {
	if r.pos <= r.start {
		return 0, false
	}
	r.pos--
	b, _ := r.At(r.pos - r.start)
	return b, true
}

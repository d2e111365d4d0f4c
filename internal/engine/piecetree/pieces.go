package piecetree

// pieceIter walks pieces of a snapshot in order. It keeps the
// root-to-node path on a stack so stepping is amortized O(1). The
// iterator is only valid while the snapshot is retained.
type pieceIter struct {
	view  *Snapshot
	stack []*node
	pos   int64
}

func newPieceIter(v *Snapshot, at int64) pieceIter {
	// Position at the end yields an empty cursor; prev() recovers it.
	if at == v.size {
		return pieceIter{view: v, pos: at}
	}
	stack, pos := v.tree.findNode(at)
	return pieceIter{view: v, stack: stack, pos: pos}
}

// get returns the current piece and its logical start offset.
func (it *pieceIter) get() (int64, Piece, bool) {
	if len(it.stack) == 0 {
		return 0, Piece{}, false
	}
	return it.pos, it.stack[len(it.stack)-1].piece, true
}

// next advances to the in-order successor piece.
func (it *pieceIter) next() (int64, Piece, bool) {
	_, cur, ok := it.get()
	if !ok {
		return 0, Piece{}, false
	}
	if p, ok := it.treeNext(); ok {
		it.pos += cur.Len
		return it.pos, p, true
	}
	it.pos = it.view.size
	it.stack = it.stack[:0]
	return 0, Piece{}, false
}

// prev steps to the in-order predecessor piece.
func (it *pieceIter) prev() (int64, Piece, bool) {
	if it.pos == 0 {
		return 0, Piece{}, false
	}
	if p, ok := it.treePrev(); ok {
		it.pos -= p.Len
		return it.pos, p, true
	}
	// Walked off the front of an end-positioned cursor: reseat at the
	// last piece.
	stack, pos := it.view.tree.findNode(it.view.size)
	it.stack = stack
	it.pos = pos
	return it.get()
}

func (it *pieceIter) treeNext() (Piece, bool) {
	if len(it.stack) == 0 {
		return Piece{}, false
	}
	n := it.stack[len(it.stack)-1]

	if !n.right.leaf {
		n = n.right
		it.stack = append(it.stack, n)
		for !n.left.leaf {
			n = n.left
			it.stack = append(it.stack, n)
		}
		return n.piece, true
	}

	it.stack = it.stack[:len(it.stack)-1]
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		if top.left == n {
			return top.piece, true
		}
		n = top
		it.stack = it.stack[:len(it.stack)-1]
	}
	return Piece{}, false
}

func (it *pieceIter) treePrev() (Piece, bool) {
	if len(it.stack) == 0 {
		return Piece{}, false
	}
	n := it.stack[len(it.stack)-1]

	if !n.left.leaf {
		n = n.left
		it.stack = append(it.stack, n)
		for !n.right.leaf {
			n = n.right
			it.stack = append(it.stack, n)
		}
		return n.piece, true
	}

	it.stack = it.stack[:len(it.stack)-1]
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		if top.right == n {
			return top.piece, true
		}
		n = top
		it.stack = it.stack[:len(it.stack)-1]
	}
	return Piece{}, false
}

// boundedPieceIter restricts a pieceIter to a logical byte range and
// trims boundary pieces to fit. Offsets it reports are relative to the
// range start.
type boundedPieceIter struct {
	start, end int64
	iter       pieceIter
}

func newBoundedPieceIter(v *Snapshot, at, start, end int64) boundedPieceIter {
	return boundedPieceIter{
		start: start,
		end:   end,
		iter:  newPieceIter(v, start+at),
	}
}

func (it *boundedPieceIter) shrink(pPos int64, p Piece) (int64, Piece, bool) {
	pEnd := pPos + p.Len

	if pPos < it.start {
		diff := it.start - pPos
		p.splitRight(diff)
		pPos += diff
	}
	if it.end < pEnd {
		over := pEnd - it.end
		if over > p.Len {
			over = p.Len
		}
		p.splitLeft(p.Len - over)
	}
	if p.Len == 0 {
		return 0, Piece{}, false
	}
	return pPos - it.start, p, true
}

func (it *boundedPieceIter) get() (int64, Piece, bool) {
	pPos, p, ok := it.iter.get()
	if !ok {
		return 0, Piece{}, false
	}
	return it.shrink(pPos, p)
}

func (it *boundedPieceIter) next() (int64, Piece, bool) {
	if pPos, _, ok := it.iter.get(); ok && it.end < pPos {
		return 0, Piece{}, false
	}
	pPos, p, ok := it.iter.next()
	if !ok {
		return 0, Piece{}, false
	}
	return it.shrink(pPos, p)
}

func (it *boundedPieceIter) prev() (int64, Piece, bool) {
	if pPos, _, ok := it.iter.get(); ok && pPos <= it.start {
		return 0, Piece{}, false
	}
	pPos, p, ok := it.iter.prev()
	if !ok {
		return 0, Piece{}, false
	}
	return it.shrink(pPos, p)
}

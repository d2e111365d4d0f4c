package piecetree

import "math/bits"

// tree is the copy-on-write red-black tree of pieces keyed by logical
// byte offset. Each internal node caches the byte length of its left
// subtree so offset lookups stay O(log n).
type tree struct {
	root  *node
	count int
}

func newTree() tree {
	return tree{root: newLeaf()}
}

// clone shares the root with the receiver. Mutation on either copy
// clones nodes lazily.
func (t *tree) clone() tree {
	retain(t.root)
	return tree{root: t.root, count: t.count}
}

func (t *tree) release() {
	release(t.root)
}

func (t *tree) maxHeight() int {
	return 2 * bits.Len(uint(t.count)+1)
}

func (t *tree) len() int64 {
	var total int64
	for n := t.root; !n.leaf; n = n.right {
		total += n.leftLen + n.piece.Len
	}
	return total
}

// insert places piece at logical offset pos. With allowAppend, an
// insertion landing exactly at the end of an add-store piece that is
// contiguous with it extends that piece instead of adding a node.
func (t *tree) insert(pos int64, p Piece, allowAppend bool) {
	ins := insertRec(&t.root, pos, p, true, allowAppend)
	t.count += ins.nodes
}

// remove deletes the logical byte range [start, end). Each pass removes
// at most one piece; a piece cut in its middle reinserts its tail.
func (t *tree) remove(start, end int64) {
	var removedBytes int64
	length := end - start

	for removedBytes < length {
		rem := removeRec(&t.root, start, length-removedBytes, true)
		if rem.node {
			t.count--
		}
		removedBytes += rem.piece.Len

		if rem.reinsert != nil {
			p := *rem.reinsert
			removedBytes -= p.Len
			ins := insertRec(&t.root, start, p, true, true)
			t.count += ins.nodes
		}
	}
}

// findNode walks to the node whose piece covers target and returns the
// root-to-node path plus the logical offset where that piece starts.
// An offset at the very end of the buffer resolves to the last piece.
// The stack is only valid until the next mutation.
func (t *tree) findNode(target int64) ([]*node, int64) {
	var pos int64
	stack := make([]*node, 0, t.maxHeight())
	n := t.root

	if n.leaf {
		return stack, pos
	}

	for {
		switch {
		case n.leftLen > target:
			stack = append(stack, n)
			n = n.left
		case n.leftLen == target ||
			n.leftLen+n.piece.Len > target ||
			(n.leftLen+n.piece.Len == target && n.right.leaf):
			stack = append(stack, n)
			return stack, pos + n.leftLen
		default:
			stack = append(stack, n)
			target -= n.leftLen + n.piece.Len
			pos += n.leftLen + n.piece.Len
			n = n.right
		}
	}
}

// walk visits pieces in order, passing each piece's logical start
// offset. Returning false from fn stops the walk.
func (t *tree) walk(fn func(pos int64, p Piece) bool) {
	walkNodes(t.root, 0, fn)
}

func walkNodes(n *node, base int64, fn func(int64, Piece) bool) bool {
	if n.leaf {
		return true
	}
	if !walkNodes(n.left, base, fn) {
		return false
	}
	if !fn(base+n.leftLen, n.piece) {
		return false
	}
	return walkNodes(n.right, base+n.leftLen+n.piece.Len, fn)
}

type inserted struct {
	nodes int
	bytes int64
}

func insertRec(slot **node, index int64, p Piece, atRoot, allowAppend bool) inserted {
	if (*slot).leaf {
		release(*slot)
		c := red
		if atRoot {
			c = black
		}
		*slot = newInternal(c, p)
		return inserted{nodes: 1, bytes: p.Len}
	}

	n := mutable(slot)
	var ins inserted

	switch {
	case n.leftLen > index:
		ins = insertRec(&n.left, index, p, false, allowAppend)
		n.leftLen += ins.bytes

	case n.leftLen == index:
		n.insertPred(p)
		n.leftLen += p.Len
		ins = inserted{nodes: 1, bytes: p.Len}

	case n.leftLen+n.piece.Len == index:
		if allowAppend &&
			n.piece.Kind == Add &&
			n.piece.Count == 0 && p.Count == 0 &&
			n.piece.Pos+n.piece.Len == p.Pos {
			n.piece.Len += p.Len
			ins = inserted{nodes: 0, bytes: p.Len}
		} else {
			n.insertSucc(p)
			ins = inserted{nodes: 1, bytes: p.Len}
		}

	case n.leftLen+n.piece.Len > index:
		// Index lands inside the piece: split it and push both the
		// new piece and the tail in as successors.
		right := n.piece.splitLeft(index - n.leftLen)
		n.insertSucc(right)
		n.insertSucc(p)
		ins = inserted{nodes: 2, bytes: p.Len}

	default:
		ins = insertRec(&n.right, index-n.leftLen-n.piece.Len, p, false, allowAppend)
	}

	if ins.nodes > 0 {
		n.balance()
	}
	if atRoot {
		n.color = black
	}
	return ins
}

type removed struct {
	// piece is the removed piece, possibly cut down from a larger one.
	piece Piece
	// node reports whether a tree node was removed.
	node bool
	// reinsert is the surviving tail of a piece cut in the middle.
	reinsert *Piece
}

func removeRec(slot **node, index, length int64, atRoot bool) removed {
	n := mutable(slot)
	var rem removed
	removeCur := false

	switch {
	case n.leftLen > index:
		rem = removeRec(&n.left, index, length, false)
		n.leftLen -= rem.piece.Len

	case n.leftLen == index:
		if length >= n.piece.Len {
			rem = removed{piece: n.piece, node: true}
			removeCur = true
		} else {
			rem = removed{piece: n.piece.splitRight(length)}
		}

	case n.leftLen+n.piece.Len > index:
		rightP := n.piece.splitLeft(index - n.leftLen)
		rem = removed{piece: rightP}
		if length < rightP.Len {
			rest := rightP
			rest.splitRight(length)
			rem.reinsert = &rest
		}

	default:
		rem = removeRec(&n.right, index-n.leftLen-n.piece.Len, length, false)
	}

	if removeCur {
		removeNode(slot)
	} else if rem.node {
		n.bubble()
	}

	if atRoot {
		// A double-black leaf left at the root drops back to plain.
		(*slot).color = black
	}
	return rem
}

package piecetree

import "sync/atomic"

// node is a red-black tree node. Leaf nodes carry no piece; they exist so
// that deletion can represent double-black leaves. Nodes are shared across
// snapshots and guarded by an atomic reference count: a node is cloned
// before mutation iff any other tree still references it.
type node struct {
	refs int32

	leaf    bool
	color   color
	piece   Piece
	leftLen int64

	left  *node
	right *node
}

func newLeaf() *node {
	return &node{refs: 1, leaf: true, color: black}
}

func newInternal(c color, p Piece) *node {
	return &node{
		refs:  1,
		color: c,
		piece: p,
		left:  newLeaf(),
		right: newLeaf(),
	}
}

func retain(n *node) {
	atomic.AddInt32(&n.refs, 1)
}

func release(n *node) {
	if n == nil {
		return
	}
	if atomic.AddInt32(&n.refs, -1) == 0 {
		release(n.left)
		release(n.right)
	}
}

// mutable returns a node safe to mutate through the given slot. Shared
// nodes are cloned; the clone re-references both children.
func mutable(slot **node) *node {
	n := *slot
	if atomic.LoadInt32(&n.refs) == 1 {
		return n
	}
	c := &node{
		refs:    1,
		leaf:    n.leaf,
		color:   n.color,
		piece:   n.piece,
		leftLen: n.leftLen,
		left:    n.left,
		right:   n.right,
	}
	if c.left != nil {
		retain(c.left)
	}
	if c.right != nil {
		retain(c.right)
	}
	release(n)
	*slot = c
	return c
}

// nodeColor treats leaves as their stored color: black normally,
// double black while a removal is bubbling.
func (n *node) nodeColor() color {
	return n.color
}

// redden lifts a node one step toward red. A double-black leaf becomes a
// plain leaf.
func (n *node) redden() {
	if n.leaf {
		if n.color != doubleBlack {
			panic("piecetree: redden on plain leaf")
		}
		n.color = black
		return
	}
	n.color.redden()
}

func (n *node) blacken() {
	n.color.blacken()
}

func (n *node) takeLeft() *node {
	old := n.left
	n.left = newLeaf()
	return old
}

func (n *node) takeRight() *node {
	old := n.right
	n.right = newLeaf()
	return old
}

// insertPred inserts piece as the in-order predecessor of n, descending
// the right spine of the left subtree. Subtree byte counts along the path
// are unaffected; the caller accounts for n.leftLen.
func (n *node) insertPred(p Piece) {
	var insRight func(m *node)
	insRight = func(m *node) {
		r := mutable(&m.right)
		if r.leaf {
			release(r)
			m.right = newInternal(red, p)
			return
		}
		insRight(r)
		r.balance()
	}

	l := mutable(&n.left)
	if l.leaf {
		release(l)
		n.left = newInternal(red, p)
		return
	}
	insRight(l)
	l.balance()
}

// insertSucc inserts piece as the in-order successor of n, descending the
// left spine of the right subtree and growing leftLen along the way.
func (n *node) insertSucc(p Piece) {
	var insLeft func(m *node)
	insLeft = func(m *node) {
		m.leftLen += p.Len
		l := mutable(&m.left)
		if l.leaf {
			release(l)
			m.left = newInternal(red, p)
			return
		}
		insLeft(l)
		l.balance()
	}

	r := mutable(&n.right)
	if r.leaf {
		release(r)
		n.right = newInternal(red, p)
		return
	}
	insLeft(r)
	r.balance()
}

func childColors(n *node) (c, cl, cr color, ok, okl, okr bool) {
	if n.leaf {
		return 0, 0, 0, false, false, false
	}
	c, ok = n.color, true
	if !n.left.leaf {
		cl, okl = n.left.color, true
	}
	if !n.right.leaf {
		cr, okr = n.right.color, true
	}
	return
}

// balance restores the red-black invariants below n using Okasaki's
// insertion rotations extended with Might's negative-black deletion cases.
// Byte counts are maintained through the same swaps the rotations perform.
func (n *node) balance() {
	if n.color == red || n.color == negativeBlack {
		return
	}

	lc, llc, lrc, lok, llok, lrok := childColors(n.left)
	rc, rlc, rrc, rok, rlok, rrok := childColors(n.right)

	switch {
	case lok && lc == red && llok && llc == red:
		//       zB                     yR
		//      / \                    /  \
		//     yR   d                 xB   zB
		//    / \          ==>       / \   / \
		//   xR   c                 a   b c   d
		//  / \
		// a   b
		yp := n.takeLeft()
		y := mutable(&yp)
		xp := y.takeLeft()
		x := mutable(&xp)

		n.color.redden()
		y.color = black
		x.color = black

		n.leftLen -= y.piece.Len + y.leftLen

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		y.left, y.right = y.right, y.left
		n.right, y.right = y.right, n.right

		n.left = xp
		n.right = yp

	case lok && lc == red && lrok && lrc == red:
		//       zB                     yR
		//      / \                    /  \
		//     xR   d                 xB   zB
		//    / \          ==>       / \   / \
		//   a   yR                 a   b c   d
		//      / \
		//     b   c
		xp := n.takeLeft()
		x := mutable(&xp)
		yp := x.takeRight()
		y := mutable(&yp)

		n.color.redden()
		x.color = black
		y.color = black

		n.leftLen -= x.piece.Len + x.leftLen + y.leftLen + y.piece.Len
		y.leftLen += x.piece.Len + x.leftLen

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		y.left, y.right = y.right, y.left
		x.right, y.right = y.right, x.right
		n.right, y.right = y.right, n.right

		n.right = yp
		n.left = xp

	case rok && rc == red && rlok && rlc == red:
		//       xB                     yR
		//      / \                    /  \
		//     a   zR                 xB   zB
		//        /  \     ==>       / \   / \
		//       yR   d             a   b c   d
		//      / \
		//     b   c
		zp := n.takeRight()
		z := mutable(&zp)
		yp := z.takeLeft()
		y := mutable(&yp)

		n.color.redden()
		z.color = black
		y.color = black

		z.leftLen -= y.leftLen + y.piece.Len
		y.leftLen += n.leftLen + n.piece.Len

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		z.left, y.right = y.right, z.left
		y.left, y.right = y.right, y.left
		n.left, y.left = y.left, n.left

		n.left = yp
		n.right = zp

	case rok && rc == red && rrok && rrc == red:
		//       xB                     yR
		//      / \                    /  \
		//     a   yR                 xB   zB
		//        /  \     ==>       / \   / \
		//       b    zR            a   b c   d
		//           /  \
		//          c    d
		yp := n.takeRight()
		y := mutable(&yp)
		zp := y.takeRight()
		z := mutable(&zp)

		n.color.redden()
		y.color = black
		z.color = black

		y.leftLen += n.leftLen + n.piece.Len

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		y.left, y.right = y.right, y.left
		n.left, y.left = y.left, n.left

		n.right = zp
		n.left = yp

	case rok && rc == negativeBlack && rlok && rlc == black && rrok && rrc == black:
		//        xBB                    yB
		//       / \                    /  \
		//      a   zNB                xB   zB
		//         /   \     ==>      / \   / \
		//        yB    wB           a   b c   wR
		//       / \   /  \                   /  \
		//      b   c d    e                 d    e
		zp := n.takeRight()
		z := mutable(&zp)
		yp := z.takeLeft()
		y := mutable(&yp)
		wp := z.takeRight()
		w := mutable(&wp)

		n.color = black
		z.color = black
		y.color = black
		w.color = red

		z.leftLen -= y.piece.Len + y.leftLen
		y.leftLen = n.leftLen + y.leftLen + n.piece.Len

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		y.left, y.right = y.right, y.left
		y.left, n.left = n.left, y.left
		n.left, z.left = z.left, n.left

		z.right = wp
		z.balance()

		n.left = yp
		n.right = zp

	case lok && lc == negativeBlack && llok && llc == black && lrok && lrc == black:
		//        zBB                    yB
		//       /   \                  /  \
		//      xNB   d                xB   zB
		//    /    \         ==>      / \   / \
		//   wB    yB                wR  b c   d
		//  / \    / \              /  \
		// a'  b' b   c            a'   b'
		xp := n.takeLeft()
		x := mutable(&xp)
		wp := x.takeLeft()
		w := mutable(&wp)
		yp := x.takeRight()
		y := mutable(&yp)

		n.color = black
		x.color = black
		y.color = black
		w.color = red

		n.leftLen -= x.piece.Len + x.leftLen + y.piece.Len + y.leftLen
		y.leftLen += x.piece.Len + x.leftLen

		n.piece, y.piece = y.piece, n.piece
		n.leftLen, y.leftLen = y.leftLen, n.leftLen
		y.left, y.right = y.right, y.left
		n.right, y.right = y.right, n.right
		n.right, x.right = x.right, n.right

		x.left = wp
		x.balance()

		n.left = xp
		n.right = yp
	}
}

// bubble propagates a double black upward after a removal.
func (n *node) bubble() {
	if n.left.nodeColor() == doubleBlack || n.right.nodeColor() == doubleBlack {
		n.blacken()
		mutable(&n.left).redden()
		mutable(&n.right).redden()
	}
	n.balance()
}

// removeNode removes the piece held by the node in slot. The node must be
// internal and uniquely owned.
func removeNode(slot **node) {
	n := *slot
	switch {
	case n.left.leaf && n.right.leaf:
		c := n.color
		release(n)
		l := newLeaf()
		if c == black {
			l.color = doubleBlack
		}
		*slot = l
	case n.left.leaf:
		if n.color == black && n.right.nodeColor() == red {
			rp := n.takeRight()
			r := mutable(&rp)
			release(n.left)
			n.leaf = r.leaf
			n.piece = r.piece
			n.leftLen = r.leftLen
			n.left = r.left
			n.right = r.right
			n.color = black
			// r's fields moved into n; drop the husk without
			// releasing the adopted children.
		}
	case n.right.leaf:
		if n.color == black && n.left.nodeColor() == red {
			lp := n.takeLeft()
			l := mutable(&lp)
			release(n.right)
			n.leaf = l.leaf
			n.piece = l.piece
			n.leftLen = l.leftLen
			n.left = l.left
			n.right = l.right
			n.color = black
		}
	default:
		l := mutable(&n.left)
		p := removeMax(l)
		n.leftLen -= p.Len
		n.piece = p
		n.bubble()
	}
}

// removeMax removes and returns the in-order last piece under n.
func removeMax(n *node) Piece {
	if n.right.leaf {
		p := n.piece
		// Re-wrap in a slot so the node can turn into a leaf in place.
		slot := n
		removeMaxSelf(&slot, n)
		return p
	}
	r := mutable(&n.right)
	p := removeMax(r)
	n.bubble()
	return p
}

// removeMaxSelf removes the node itself; unlike removeNode it cannot
// replace the caller's slot, so leaf conversion happens in place.
func removeMaxSelf(_ **node, n *node) {
	switch {
	case n.left.leaf && n.right.leaf:
		release(n.left)
		release(n.right)
		wasBlack := n.color == black
		n.leaf = true
		n.left = nil
		n.right = nil
		n.piece = Piece{}
		n.leftLen = 0
		if wasBlack {
			n.color = doubleBlack
		} else {
			n.color = black
		}
	case n.right.leaf:
		if n.color == black && n.left.nodeColor() == red {
			lp := n.takeLeft()
			l := mutable(&lp)
			release(n.right)
			n.leaf = l.leaf
			n.piece = l.piece
			n.leftLen = l.leftLen
			n.left = l.left
			n.right = l.right
			n.color = black
		}
	default:
		panic("piecetree: removeMaxSelf with right child")
	}
}

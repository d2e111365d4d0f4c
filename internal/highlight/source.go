package highlight

import (
	"hash/fnv"

	"github.com/dshills/weft/internal/parser"
)

// window is a sub-range view of a source, re-based to offset zero.
type window struct {
	src parser.Source
	off int64
	n   int64
}

func (w window) Len() int64      { return w.n }
func (w window) At(i int64) byte { return w.src.At(w.off + i) }

// hashRegion hashes the region's bytes with FNV-64a.
func hashRegion(src parser.Source, start, end int64) uint64 {
	h := fnv.New64a()
	var buf [512]byte
	for i := start; i < end; {
		n := 0
		for n < len(buf) && i < end {
			buf[n] = src.At(i)
			n++
			i++
		}
		h.Write(buf[:n])
	}
	return h.Sum64()
}

// shiftNode moves a subtree by delta in place.
func shiftNode(n *parser.CaptureNode, delta int64) {
	n.Start += delta
	n.End += delta
	for _, c := range n.Children {
		shiftNode(c, delta)
	}
}

// cloneShift deep-copies subtrees, moving them by delta.
func cloneShift(nodes []*parser.CaptureNode, delta int64) []*parser.CaptureNode {
	if nodes == nil {
		return nil
	}
	out := make([]*parser.CaptureNode, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Start += delta
		c.End += delta
		c.Children = cloneShift(n.Children, delta)
		out[i] = &c
	}
	return out
}

package highlight

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/weft/internal/parser"
)

// inject re-parses marked regions with their named grammars and
// attaches the resulting subtrees as children. depth counts injection
// nesting, not tree depth.
func (d *Driver) inject(ctx context.Context, src parser.Source, nodes []*parser.CaptureNode, depth int) error {
	for _, n := range nodes {
		var sub []*parser.CaptureNode
		if n.Inject && n.InjectLang != "" {
			if depth >= d.maxDepth {
				return fmt.Errorf("%w: %q at depth %d", ErrInjectionDepthExceeded, n.InjectLang, depth)
			}
			// An unregistered language leaves the region plain.
			if g, ok := d.registry.Get(n.InjectLang); ok {
				var err error
				sub, err = d.parseInjected(ctx, g, src, n)
				if err != nil {
					return err
				}
				if err := d.inject(ctx, src, sub, depth+1); err != nil {
					return err
				}
			}
		}
		if err := d.inject(ctx, src, n.Children, depth); err != nil {
			return err
		}
		n.Children = append(n.Children, sub...)
	}
	return nil
}

// parseInjected parses one injected region, falling back to scan mode
// when the region does not match the grammar as a whole.
func (d *Driver) parseInjected(ctx context.Context, g *parser.Parser, src parser.Source, n *parser.CaptureNode) ([]*parser.CaptureNode, error) {
	w := window{src: src, off: n.Start, n: n.End - n.Start}
	tree, err := g.Parse(ctx, w)
	if err != nil {
		var inc *parser.IncompleteError
		if !errors.As(err, &inc) {
			return nil, err
		}
		tree, err = g.Scan(ctx, w)
		if err != nil {
			return nil, err
		}
	}
	for _, r := range tree.Roots {
		shiftNode(r, n.Start)
	}
	return tree.Roots, nil
}

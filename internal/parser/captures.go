package parser

// CaptureNode is one node of the capture tree. Attributes come from
// the annotations of the rule that produced the capture.
type CaptureNode struct {
	Rule     string
	RuleID   int
	Start    int64
	End      int64
	Children []*CaptureNode

	HighlightTag     string
	Completion       bool
	StaticCompletion bool
	// InjectionLanguage is the captured text of an
	// @injection-language rule.
	InjectionLanguage string
	// Inject marks a region to re-parse with another grammar;
	// InjectLang names that grammar, resolved from the annotation
	// argument or from an @injection-language capture inside the
	// region.
	Inject     bool
	InjectLang string
}

// CaptureTree is the folded result of a parse run.
type CaptureTree struct {
	Roots []*CaptureNode
}

// foldCaptures builds the tree from the machine's flat capture list.
// Records appear in open order and carry their parent index, so
// folding is a single pass.
func foldCaptures(prog *Program, src Source, caps []capture) *CaptureTree {
	tree := &CaptureTree{}
	nodes := make([]*CaptureNode, len(caps))

	for i, rec := range caps {
		if rec.end < 0 {
			continue
		}
		info := &prog.rules[rec.rule]
		node := &CaptureNode{
			Rule:             info.name,
			RuleID:           rec.rule,
			Start:            rec.start,
			End:              rec.end,
			HighlightTag:     info.highlightTag,
			Completion:       info.completion,
			StaticCompletion: info.staticCompletion,
		}
		if info.injectionLang {
			node.InjectionLanguage = string(sourceBytes(src, rec.start, rec.end))
		}
		if info.inject {
			node.Inject = true
			node.InjectLang = info.injectArg
		}
		nodes[i] = node

		if rec.parent >= 0 && nodes[rec.parent] != nil {
			parent := nodes[rec.parent]
			parent.Children = append(parent.Children, node)
		} else {
			tree.Roots = append(tree.Roots, node)
		}
	}

	for _, node := range nodes {
		if node != nil && node.Inject && node.InjectLang == "" {
			node.InjectLang = findInjectionLanguage(node)
		}
	}
	return tree
}

// findInjectionLanguage resolves the language of an @inject region
// from the first @injection-language capture inside it.
func findInjectionLanguage(n *CaptureNode) string {
	for _, child := range n.Children {
		if child.InjectionLanguage != "" {
			return child.InjectionLanguage
		}
		if lang := findInjectionLanguage(child); lang != "" {
			return lang
		}
	}
	return ""
}

// Walk visits the tree in preorder. Returning false skips the node's
// children.
func (t *CaptureTree) Walk(fn func(*CaptureNode) bool) {
	var visit func(n *CaptureNode)
	visit = func(n *CaptureNode) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range t.Roots {
		visit(r)
	}
}

// Span is one entry of the flattened capture stream consumed by
// rendering.
type Span struct {
	Start, End        int64
	Rule              string
	HighlightTag      string
	Completion        bool
	InjectionLanguage string
}

// Spans flattens the tree into a preorder span stream.
func (t *CaptureTree) Spans() []Span {
	var spans []Span
	t.Walk(func(n *CaptureNode) bool {
		spans = append(spans, Span{
			Start:             n.Start,
			End:               n.End,
			Rule:              n.Rule,
			HighlightTag:      n.HighlightTag,
			Completion:        n.Completion || n.StaticCompletion,
			InjectionLanguage: n.InjectLang,
		})
		return true
	})
	return spans
}

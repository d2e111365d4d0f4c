package grammar

import "sort"

// wsRuleName is the synthetic rule interleaved by @whitespaced.
const wsRuleName = "WS*"

// whitespaceRule is the rule @whitespaced repeats between elements.
const whitespaceRule = "WHITESPACE"

// applyWhitespaced rewrites every @whitespaced rule so that a
// zero-or-more repetition of the WHITESPACE rule runs between and
// around its sequence elements.
func (p *parser) applyWhitespaced() error {
	any := false
	for i := range p.rules {
		if p.rules[i].Annotated(Whitespaced) {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	if _, ok := p.indices[whitespaceRule]; !ok {
		return errAt(BadAnnotation, Position{Line: 1, Col: 1},
			"@whitespaced requires a %s rule", whitespaceRule)
	}

	wsIndex := len(p.rules)
	for i := range p.rules {
		if p.rules[i].Annotated(Whitespaced) {
			p.rules[i].Expr = interleaveWS(p.rules[i].Expr, wsIndex)
		}
	}

	wsRef := p.indices[whitespaceRule]
	p.rules = append(p.rules, Rule{
		Name: wsRuleName,
		Expr: &Choice{Alts: []Expr{&OneOrMore{Expr: &Ref{Index: wsRef}}, &Nothing{}}},
	})
	p.indices[wsRuleName] = wsIndex
	p.defined[wsRuleName] = true
	return nil
}

// interleaveWS threads WS through a rule body. Sequences get WS
// between and around their items; choice alternatives are rewritten
// independently; anything else is wrapped as WS expr WS.
func interleaveWS(e Expr, ws int) Expr {
	switch e := e.(type) {
	case *Choice:
		alts := make([]Expr, len(e.Alts))
		for i, a := range e.Alts {
			alts[i] = interleaveWS(a, ws)
		}
		return &Choice{Alts: alts}
	case *Sequence:
		items := make([]Expr, 0, 2*len(e.Items)+1)
		items = append(items, &Ref{Index: ws})
		for _, it := range e.Items {
			items = append(items, it, &Ref{Index: ws})
		}
		return &Sequence{Items: items}
	default:
		return &Sequence{Items: []Expr{&Ref{Index: ws}, e, &Ref{Index: ws}}}
	}
}

// checkLeftRecursion rejects rules that can reach themselves without
// consuming a byte. The walk follows references reachable at the start
// of an expression, stepping over nullable prefixes.
func checkLeftRecursion(g *Grammar) error {
	n := newNullability(g)

	const (
		unvisited = 0
		active    = 1
		done      = 2
	)
	state := make([]int, len(g.Rules))

	var visit func(i int) *Error
	visit = func(i int) *Error {
		switch state[i] {
		case active:
			return errAt(LeftRecursion, Position{Line: 1, Col: 1},
				"rule %q is left-recursive", g.Rules[i].Name)
		case done:
			return nil
		}
		state[i] = active
		for _, ref := range headRefs(g.Rules[i].Expr, n) {
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[i] = done
		return nil
	}

	for i := range g.Rules {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

// headRefs collects rule references reachable before any byte is
// consumed.
func headRefs(e Expr, n *nullability) []int {
	var refs []int
	var walk func(e Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Choice:
			for _, a := range e.Alts {
				walk(a)
			}
		case *Sequence:
			for _, it := range e.Items {
				walk(it)
				if !n.nullable(it) {
					return
				}
			}
		case *OneOrMore:
			walk(e.Expr)
		case *FollowedBy:
			walk(e.Expr)
		case *NotFollowedBy:
			walk(e.Expr)
		case *Ref:
			refs = append(refs, e.Index)
		}
	}
	walk(e)
	return refs
}

// nullability caches whether each rule can match the empty string.
type nullability struct {
	g     *Grammar
	memo  []int8 // 0 unknown, 1 nullable, 2 consuming
	stack []bool
}

func newNullability(g *Grammar) *nullability {
	return &nullability{
		g:     g,
		memo:  make([]int8, len(g.Rules)),
		stack: make([]bool, len(g.Rules)),
	}
}

func (n *nullability) rule(i int) bool {
	switch n.memo[i] {
	case 1:
		return true
	case 2:
		return false
	}
	if n.stack[i] {
		// A cycle reached without consuming input. Left recursion is
		// reported separately; treat the rule as consuming here.
		return false
	}
	n.stack[i] = true
	v := n.nullable(n.g.Rules[i].Expr)
	n.stack[i] = false
	if v {
		n.memo[i] = 1
	} else {
		n.memo[i] = 2
	}
	return v
}

func (n *nullability) nullable(e Expr) bool {
	switch e := e.(type) {
	case *Choice:
		for _, a := range e.Alts {
			if n.nullable(a) {
				return true
			}
		}
		return false
	case *Sequence:
		for _, it := range e.Items {
			if !n.nullable(it) {
				return false
			}
		}
		return true
	case *OneOrMore:
		return n.nullable(e.Expr)
	case *FollowedBy, *NotFollowedBy, *Nothing:
		return true
	case *Literal:
		return len(e.Bytes) == 0
	case *CharRange, *ByteRange:
		return false
	case *Ref:
		return n.rule(e.Index)
	case *Backref:
		// May match an empty capture.
		return true
	default:
		return false
	}
}

// complementItems inverts class members over [0, max]. Overlapping
// members are merged first.
func complementItems(items []classItem, max rune, byteForm bool) []classItem {
	sorted := make([]classItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].lo < sorted[j].lo })

	var out []classItem
	next := rune(0)
	for _, it := range sorted {
		if it.lo > next {
			out = append(out, classItem{lo: next, hi: it.lo - 1, byteForm: byteForm})
		}
		if it.hi+1 > next {
			next = it.hi + 1
		}
	}
	if next <= max {
		out = append(out, classItem{lo: next, hi: max, byteForm: byteForm})
	}
	return out
}

package parser

import (
	"fmt"
	"unicode/utf8"

	"github.com/dshills/weft/internal/parser/grammar"
)

// Compile lowers a parsed grammar into a program. The first rule is
// the entry point; every rule becomes a contiguous block ending in
// Return, and references become Call instructions.
func Compile(g *grammar.Grammar) (*Program, error) {
	c := &compiler{g: g}
	return c.compile()
}

type compiler struct {
	g *grammar.Grammar

	code      []instr
	ruleAddrs []int
	// callFixups holds addresses of Call instructions waiting for
	// their target rule's block.
	callFixups map[int][]int
}

func (c *compiler) compile() (*Program, error) {
	rules := make([]ruleInfo, len(c.g.Rules))
	for i := range c.g.Rules {
		r := &c.g.Rules[i]
		info := ruleInfo{name: r.Name, captured: r.Captured()}
		if tag, ok := r.HighlightTag(); ok {
			info.highlighted = true
			info.highlightTag = tag
		}
		info.completion = r.Annotated(grammar.Completion)
		info.staticCompletion = r.Annotated(grammar.StaticCompletion)
		info.injectionLang = r.Annotated(grammar.InjectionLanguage)
		if a, ok := r.Annotation(grammar.Inject); ok {
			info.inject = true
			info.injectArg = a.Arg
		}
		rules[i] = info
	}
	markBackrefTargets(c.g, rules)

	c.ruleAddrs = make([]int, len(c.g.Rules))
	for i := range c.ruleAddrs {
		c.ruleAddrs[i] = -1
	}
	c.callFixups = make(map[int][]int)

	// Entry: call the first rule, then require end of subject.
	c.emit(instr{op: opCall})
	c.callFixups[0] = append(c.callFixups[0], 0)
	c.emit(instr{op: opEnd})

	for i := range c.g.Rules {
		c.ruleAddrs[i] = len(c.code)
		for _, at := range c.callFixups[i] {
			c.code[at].addr = len(c.code)
		}
		delete(c.callFixups, i)

		if rules[i].captured {
			c.emit(instr{op: opCaptureBegin, rule: i})
			c.expr(c.g.Rules[i].Expr)
			c.emit(instr{op: opCaptureEnd})
		} else {
			c.expr(c.g.Rules[i].Expr)
		}
		c.emit(instr{op: opReturn})
	}

	if len(c.callFixups) != 0 {
		return nil, fmt.Errorf("compile: unresolved rule references")
	}
	return &Program{code: c.code, rules: rules, ruleAddrs: c.ruleAddrs}, nil
}

// markBackrefTargets forces captures on rules a backref names, so the
// runtime has a range to compare against.
func markBackrefTargets(g *grammar.Grammar, rules []ruleInfo) {
	var walk func(e grammar.Expr)
	walk = func(e grammar.Expr) {
		switch e := e.(type) {
		case *grammar.Choice:
			for _, a := range e.Alts {
				walk(a)
			}
		case *grammar.Sequence:
			for _, it := range e.Items {
				walk(it)
			}
		case *grammar.OneOrMore:
			walk(e.Expr)
		case *grammar.FollowedBy:
			walk(e.Expr)
		case *grammar.NotFollowedBy:
			walk(e.Expr)
		case *grammar.Backref:
			rules[e.Index].captured = true
		}
	}
	for i := range g.Rules {
		walk(g.Rules[i].Expr)
	}
}

func (c *compiler) emit(in instr) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *compiler) here() int { return len(c.code) }

func (c *compiler) expr(e grammar.Expr) {
	switch e := e.(type) {
	case *grammar.Nothing:
		// Matches the empty string.
	case *grammar.Literal:
		for _, b := range e.Bytes {
			c.emit(instr{op: opByte, b: b})
		}
	case *grammar.ByteRange:
		if e.Lo == e.Hi {
			c.emit(instr{op: opByte, b: e.Lo})
			return
		}
		var set charset
		set.addRange(e.Lo, e.Hi)
		c.emit(instr{op: opSet, set: &set})
	case *grammar.CharRange:
		if set, ok := singleByteSet(e); ok {
			c.emit(instr{op: opSet, set: set})
			return
		}
		c.emit(instr{op: opCharRange, lo: e.Lo, hi: e.Hi})
	case *grammar.Sequence:
		for _, it := range e.Items {
			c.expr(it)
		}
	case *grammar.Choice:
		c.choice(e)
	case *grammar.OneOrMore:
		c.oneOrMore(e.Expr)
	case *grammar.FollowedBy:
		//     Choice fail
		//     <e>
		//     BackCommit next
		// fail: Fail
		// next:
		choice := c.emit(instr{op: opChoice})
		c.expr(e.Expr)
		bcommit := c.emit(instr{op: opBackCommit})
		fail := c.emit(instr{op: opFail})
		c.code[choice].addr = fail
		c.code[bcommit].addr = c.here()
	case *grammar.NotFollowedBy:
		//     Choice next
		//     <e>
		//     FailTwice
		// next:
		choice := c.emit(instr{op: opChoice})
		c.expr(e.Expr)
		c.emit(instr{op: opFailTwice})
		c.code[choice].addr = c.here()
	case *grammar.Ref:
		c.call(e.Index)
	case *grammar.Backref:
		c.emit(instr{op: opBackref, rule: e.Index})
	}
}

func (c *compiler) call(rule int) {
	at := c.emit(instr{op: opCall})
	if addr := c.ruleAddrs[rule]; addr >= 0 {
		c.code[at].addr = addr
	} else {
		c.callFixups[rule] = append(c.callFixups[rule], at)
	}
}

// choice compiles ordered choice. A star desugared to
// Choice(OneOrMore(set), Nothing) collapses into a single Span, and
// alternatives opening with a known byte get a TestByte guard so
// mismatches skip the backtrack entry entirely.
func (c *compiler) choice(e *grammar.Choice) {
	if set, ok := spanSet(e); ok {
		c.emit(instr{op: opSpan, set: set})
		return
	}
	if set, ok := singleByteSet(e); ok {
		c.emit(instr{op: opSet, set: set})
		return
	}

	//     Choice L1
	//     <alt 1>
	//     Commit L2
	// L1: <alt 2>
	// L2:
	var commits []int
	for i, alt := range e.Alts {
		last := i == len(e.Alts)-1
		if last {
			c.expr(alt)
			break
		}
		var test = -1
		if b, ok := firstByte(alt); ok {
			test = c.emit(instr{op: opTestByte, b: b})
		}
		choice := c.emit(instr{op: opChoice})
		c.expr(alt)
		commits = append(commits, c.emit(instr{op: opCommit}))
		next := c.here()
		c.code[choice].addr = next
		if test >= 0 {
			c.code[test].addr = next
		}
	}
	end := c.here()
	for _, at := range commits {
		c.code[at].addr = end
	}
}

func (c *compiler) oneOrMore(e grammar.Expr) {
	if set, ok := singleByteSet(e); ok {
		// One mandatory match, then a span eats the rest.
		c.emit(instr{op: opSet, set: set})
		c.emit(instr{op: opSpan, set: set})
		return
	}

	//     <e>
	// L1: Choice L2
	//     <e>
	//     PartialCommit L1
	// L2:
	c.expr(e)
	choice := c.emit(instr{op: opChoice})
	c.expr(e)
	c.emit(instr{op: opPartialCommit, addr: choice})
	c.code[choice].addr = c.here()
}

// spanSet recognizes Choice(OneOrMore(set-expr), Nothing), the shape
// "e*" desugars to when e matches one byte from a set.
func spanSet(e *grammar.Choice) (*charset, bool) {
	if len(e.Alts) != 2 {
		return nil, false
	}
	if _, ok := e.Alts[1].(*grammar.Nothing); !ok {
		return nil, false
	}
	om, ok := e.Alts[0].(*grammar.OneOrMore)
	if !ok {
		return nil, false
	}
	return singleByteSet(om.Expr)
}

// singleByteSet reports whether the expression matches exactly one
// byte from a fixed set, and returns that set.
func singleByteSet(e grammar.Expr) (*charset, bool) {
	switch e := e.(type) {
	case *grammar.Literal:
		if len(e.Bytes) != 1 {
			return nil, false
		}
		var set charset
		set.add(e.Bytes[0])
		return &set, true
	case *grammar.ByteRange:
		var set charset
		set.addRange(e.Lo, e.Hi)
		return &set, true
	case *grammar.CharRange:
		if e.Hi >= utf8.RuneSelf {
			return nil, false
		}
		var set charset
		set.addRange(byte(e.Lo), byte(e.Hi))
		return &set, true
	case *grammar.Choice:
		var set charset
		for _, a := range e.Alts {
			s, ok := singleByteSet(a)
			if !ok {
				return nil, false
			}
			set.union(s)
		}
		return &set, true
	}
	return nil, false
}

// firstByte returns the byte an expression must open with, when that
// byte is statically known.
func firstByte(e grammar.Expr) (byte, bool) {
	switch e := e.(type) {
	case *grammar.Literal:
		if len(e.Bytes) == 0 {
			return 0, false
		}
		return e.Bytes[0], true
	case *grammar.Sequence:
		if len(e.Items) == 0 {
			return 0, false
		}
		return firstByte(e.Items[0])
	case *grammar.OneOrMore:
		return firstByte(e.Expr)
	case *grammar.ByteRange:
		if e.Lo == e.Hi {
			return e.Lo, true
		}
	}
	return 0, false
}

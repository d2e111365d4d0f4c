package parser

import (
	"context"
	"fmt"

	"github.com/dshills/weft/internal/parser/grammar"
)

// closureProgram is the second engine: every rule compiled to a Go
// function. It shares the capture machinery and failure semantics of
// the interpreter, so both engines produce identical trees and
// longest-failure positions.
type closureProgram struct {
	prog  *Program
	rules []closureFn
}

type closureFn func(st *cstate) bool

// cstate is the mutable run state threaded through the closures.
// Failure restoration happens at choice points only, mirroring the
// interpreter's backtrack entries.
type cstate struct {
	src Source
	n   int64
	sp  int64

	caps []capture
	open []int

	longest int64

	ctx   context.Context
	steps int
	err   error
}

// fail records the failure position, keeping the furthest one.
func (st *cstate) fail() bool {
	if st.sp > st.longest {
		st.longest = st.sp
	}
	return false
}

func (st *cstate) poll() bool {
	st.steps++
	if st.steps >= pollInterval {
		st.steps = 0
		if st.ctx.Err() != nil {
			st.err = fmt.Errorf("parse: %w", context.Cause(st.ctx))
			return false
		}
	}
	return st.err == nil
}

type mark struct {
	sp      int64
	capTop  int
	openTop int
}

func (st *cstate) mark() mark {
	return mark{sp: st.sp, capTop: len(st.caps), openTop: len(st.open)}
}

func (st *cstate) restore(m mark) {
	st.sp = m.sp
	st.caps = st.caps[:m.capTop]
	st.open = st.open[:m.openTop]
}

func compileClosures(g *grammar.Grammar, prog *Program) *closureProgram {
	cp := &closureProgram{prog: prog, rules: make([]closureFn, len(g.Rules))}

	for i := range g.Rules {
		rule := i
		body := cp.expr(g.Rules[i].Expr)
		if prog.rules[i].captured {
			cp.rules[i] = func(st *cstate) bool {
				parent := -1
				if len(st.open) > 0 {
					parent = st.open[len(st.open)-1]
				}
				st.open = append(st.open, len(st.caps))
				st.caps = append(st.caps, capture{rule: rule, start: st.sp, end: -1, parent: parent})
				if !body(st) {
					return false
				}
				idx := st.open[len(st.open)-1]
				st.open = st.open[:len(st.open)-1]
				st.caps[idx].end = st.sp
				return true
			}
		} else {
			cp.rules[i] = body
		}
	}
	return cp
}

func (cp *closureProgram) expr(e grammar.Expr) closureFn {
	switch e := e.(type) {
	case *grammar.Nothing:
		return func(*cstate) bool { return true }

	case *grammar.Literal:
		lit := e.Bytes
		return func(st *cstate) bool {
			// Advance per byte so partial matches report the same
			// failure position as the interpreter's byte ops.
			for _, b := range lit {
				if st.sp >= st.n || st.src.At(st.sp) != b {
					return st.fail()
				}
				st.sp++
			}
			return true
		}

	case *grammar.ByteRange:
		lo, hi := e.Lo, e.Hi
		return func(st *cstate) bool {
			if st.sp < st.n {
				if b := st.src.At(st.sp); lo <= b && b <= hi {
					st.sp++
					return true
				}
			}
			return st.fail()
		}

	case *grammar.CharRange:
		lo, hi := e.Lo, e.Hi
		return func(st *cstate) bool {
			r, size := decodeRune(st.src, st.sp, st.n)
			if size > 0 && lo <= r && r <= hi {
				st.sp += size
				return true
			}
			return st.fail()
		}

	case *grammar.Sequence:
		items := make([]closureFn, len(e.Items))
		for i, it := range e.Items {
			items[i] = cp.expr(it)
		}
		return func(st *cstate) bool {
			for _, item := range items {
				if !item(st) {
					return false
				}
			}
			return true
		}

	case *grammar.Choice:
		alts := make([]closureFn, len(e.Alts))
		for i, a := range e.Alts {
			alts[i] = cp.expr(a)
		}
		return func(st *cstate) bool {
			for i, alt := range alts {
				if i == len(alts)-1 {
					return alt(st)
				}
				m := st.mark()
				if alt(st) {
					return true
				}
				if st.err != nil {
					return false
				}
				st.restore(m)
			}
			return false
		}

	case *grammar.OneOrMore:
		inner := cp.expr(e.Expr)
		return func(st *cstate) bool {
			if !inner(st) {
				return false
			}
			for {
				if !st.poll() {
					return false
				}
				m := st.mark()
				if !inner(st) {
					if st.err != nil {
						return false
					}
					st.restore(m)
					return true
				}
			}
		}

	case *grammar.FollowedBy:
		inner := cp.expr(e.Expr)
		return func(st *cstate) bool {
			m := st.mark()
			ok := inner(st)
			st.restore(m)
			return ok && st.err == nil
		}

	case *grammar.NotFollowedBy:
		inner := cp.expr(e.Expr)
		return func(st *cstate) bool {
			m := st.mark()
			ok := inner(st)
			if ok && st.sp > st.longest {
				// The interpreter fails after the look-ahead matched,
				// so the consumed position counts toward longest.
				st.longest = st.sp
			}
			st.restore(m)
			if st.err != nil {
				return false
			}
			return !ok
		}

	case *grammar.Ref:
		index := e.Index
		return func(st *cstate) bool {
			if !st.poll() {
				return false
			}
			return cp.rules[index](st)
		}

	case *grammar.Backref:
		index := e.Index
		return func(st *cstate) bool {
			for i := len(st.caps) - 1; i >= 0; i-- {
				rec := &st.caps[i]
				if rec.rule != index || rec.end < 0 {
					continue
				}
				length := rec.end - rec.start
				if st.sp+length > st.n {
					return st.fail()
				}
				for j := int64(0); j < length; j++ {
					if st.src.At(st.sp+j) != st.src.At(rec.start+j) {
						return st.fail()
					}
				}
				st.sp += length
				return true
			}
			return st.fail()
		}

	default:
		return func(st *cstate) bool { return st.fail() }
	}
}

func (cp *closureProgram) newState(ctx context.Context, src Source) *cstate {
	return &cstate{src: src, n: src.Len(), ctx: ctx}
}

func (cp *closureProgram) parse(ctx context.Context, src Source) (*CaptureTree, error) {
	st := cp.newState(ctx, src)
	ok := cp.rules[0](st)
	if st.err != nil {
		return nil, st.err
	}
	if st.sp > st.longest {
		st.longest = st.sp
	}
	if !ok || st.sp != st.n {
		return nil, &IncompleteError{Longest: st.longest}
	}
	return foldCaptures(cp.prog, src, st.caps), nil
}

func (cp *closureProgram) scan(ctx context.Context, src Source) (*CaptureTree, error) {
	st := cp.newState(ctx, src)
	pos := int64(0)
	for pos < st.n {
		m := st.mark()
		st.sp = pos
		ok := cp.rules[0](st)
		if st.err != nil {
			return nil, st.err
		}
		switch {
		case !ok:
			st.caps = st.caps[:m.capTop]
			st.open = st.open[:m.openTop]
			pos++
		case st.sp > pos:
			pos = st.sp
		default:
			pos++
		}
	}
	return foldCaptures(cp.prog, src, st.caps), nil
}

package parser

import (
	"context"
	"fmt"
)

// stackEntry is a backtrack-stack frame. Return frames restore the
// instruction pointer only; backtrack frames restore the subject
// position and truncate captures back to the saved tops.
type stackEntry struct {
	addr    int
	sp      int64
	capTop  int
	openTop int
	ret     bool
}

// capture is one flat capture record. end stays -1 while the capture
// is open; parent is the index of the enclosing open capture at begin
// time, or -1 at top level.
type capture struct {
	rule       int
	start, end int64
	parent     int
}

// pollInterval is how many instructions run between cancellation
// checks.
const pollInterval = 4096

// machine executes one program run over a source.
type machine struct {
	prog *Program
	src  Source
	n    int64

	stack []stackEntry
	caps  []capture
	open  []int

	// longest is the furthest subject position any attempt reached.
	longest int64

	steps int
}

func newMachine(prog *Program, src Source) *machine {
	return &machine{prog: prog, src: src, n: src.Len()}
}

// run executes the program from the given subject position. It
// returns the subject position after the match, or matched=false when
// every alternative failed. Captures accumulate in m.caps; failed
// attempts leave no captures behind.
func (m *machine) run(ctx context.Context, start int64) (end int64, matched bool, err error) {
	code := m.prog.code
	ip := 0
	sp := start
	failed := false
	m.stack = m.stack[:0]

	baseCaps := len(m.caps)
	baseOpen := len(m.open)

	for {
		m.steps++
		if m.steps >= pollInterval {
			m.steps = 0
			if err := ctx.Err(); err != nil {
				return 0, false, fmt.Errorf("parse: %w", context.Cause(ctx))
			}
		}

		if failed {
			if sp > m.longest {
				m.longest = sp
			}
			for {
				if len(m.stack) == 0 {
					m.caps = m.caps[:baseCaps]
					m.open = m.open[:baseOpen]
					return 0, false, nil
				}
				top := m.stack[len(m.stack)-1]
				m.stack = m.stack[:len(m.stack)-1]
				if !top.ret {
					ip = top.addr
					sp = top.sp
					m.caps = m.caps[:top.capTop]
					m.open = m.open[:top.openTop]
					failed = false
					break
				}
			}
		}

		in := &code[ip]
		switch in.op {
		case opJump:
			ip = in.addr

		case opByte:
			if sp < m.n && m.src.At(sp) == in.b {
				ip++
				sp++
			} else {
				failed = true
			}

		case opSet:
			if sp < m.n && in.set.has(m.src.At(sp)) {
				ip++
				sp++
			} else {
				failed = true
			}

		case opSpan:
			for sp < m.n && in.set.has(m.src.At(sp)) {
				sp++
			}
			ip++

		case opCharRange:
			r, size := decodeRune(m.src, sp, m.n)
			if size > 0 && in.lo <= r && r <= in.hi {
				ip++
				sp += size
			} else {
				failed = true
			}

		case opCall:
			m.stack = append(m.stack, stackEntry{addr: ip + 1, ret: true})
			ip = in.addr

		case opReturn:
			top := m.stack[len(m.stack)-1]
			m.stack = m.stack[:len(m.stack)-1]
			ip = top.addr

		case opChoice:
			m.stack = append(m.stack, stackEntry{
				addr:    in.addr,
				sp:      sp,
				capTop:  len(m.caps),
				openTop: len(m.open),
			})
			ip++

		case opCommit:
			m.stack = m.stack[:len(m.stack)-1]
			ip = in.addr

		case opPartialCommit:
			top := &m.stack[len(m.stack)-1]
			top.sp = sp
			top.capTop = len(m.caps)
			top.openTop = len(m.open)
			ip = in.addr

		case opBackCommit:
			top := m.stack[len(m.stack)-1]
			m.stack = m.stack[:len(m.stack)-1]
			sp = top.sp
			m.caps = m.caps[:top.capTop]
			m.open = m.open[:top.openTop]
			ip = in.addr

		case opFail:
			failed = true

		case opFailTwice:
			m.stack = m.stack[:len(m.stack)-1]
			failed = true

		case opTestByte:
			if sp < m.n && m.src.At(sp) == in.b {
				ip++
			} else {
				ip = in.addr
			}

		case opCaptureBegin:
			parent := -1
			if len(m.open) > 0 {
				parent = m.open[len(m.open)-1]
			}
			m.open = append(m.open, len(m.caps))
			m.caps = append(m.caps, capture{rule: in.rule, start: sp, end: -1, parent: parent})
			ip++

		case opCaptureEnd:
			idx := m.open[len(m.open)-1]
			m.open = m.open[:len(m.open)-1]
			m.caps[idx].end = sp
			ip++

		case opBackref:
			adv, ok := m.matchBackref(in.rule, sp)
			if ok {
				sp += adv
				ip++
			} else {
				failed = true
			}

		case opEnd:
			if sp > m.longest {
				m.longest = sp
			}
			return sp, true, nil
		}
	}
}

// matchBackref compares the subject at sp against the most recently
// closed capture of the rule. No prior capture fails the match.
func (m *machine) matchBackref(rule int, sp int64) (int64, bool) {
	for i := len(m.caps) - 1; i >= 0; i-- {
		rec := &m.caps[i]
		if rec.rule != rule || rec.end < 0 {
			continue
		}
		length := rec.end - rec.start
		if sp+length > m.n {
			return 0, false
		}
		for j := int64(0); j < length; j++ {
			if m.src.At(sp+j) != m.src.At(rec.start+j) {
				return 0, false
			}
		}
		return length, true
	}
	return 0, false
}

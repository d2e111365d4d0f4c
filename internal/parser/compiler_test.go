package parser

import (
	"strings"
	"testing"

	"github.com/dshills/weft/internal/parser/grammar"
)

func compileProgram(t *testing.T, src string) *Program {
	t.Helper()
	g, err := grammar.ParseString(src)
	if err != nil {
		t.Fatalf("parse grammar: %v", err)
	}
	prog, err := Compile(g)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return prog
}

func countOps(prog *Program, op opcode) int {
	n := 0
	for i := range prog.code {
		if prog.code[i].op == op {
			n++
		}
	}
	return n
}

func TestProgramShape(t *testing.T) {
	prog := compileProgram(t, `
		a = b b;
		b = "x";
	`)

	if prog.code[0].op != opCall {
		t.Fatalf("code[0] = %v, want call", prog.code[0].op)
	}
	if prog.code[1].op != opEnd {
		t.Fatalf("code[1] = %v, want end", prog.code[1].op)
	}
	if prog.code[0].addr != prog.ruleAddrs[0] {
		t.Fatalf("entry call targets %d, root block at %d", prog.code[0].addr, prog.ruleAddrs[0])
	}
	if countOps(prog, opReturn) != 2 {
		t.Fatalf("return count = %d, want one per rule", countOps(prog, opReturn))
	}
}

func TestStarCompilesToSpan(t *testing.T) {
	prog := compileProgram(t, `a = [a..z]*;`)

	if countOps(prog, opSpan) != 1 {
		t.Fatalf("span count = %d, want 1\n%s", countOps(prog, opSpan), prog)
	}
	if countOps(prog, opChoice) != 0 {
		t.Fatalf("star of a byte set still uses choice\n%s", prog)
	}
}

func TestPlusCompilesToSetSpan(t *testing.T) {
	prog := compileProgram(t, `a = [0..9]+;`)

	if countOps(prog, opSet) != 1 || countOps(prog, opSpan) != 1 {
		t.Fatalf("set/span = %d/%d, want 1/1\n%s",
			countOps(prog, opSet), countOps(prog, opSpan), prog)
	}
}

func TestChoiceEmitsFirstByteTests(t *testing.T) {
	prog := compileProgram(t, `a = "foo" / "bar" / "baz";`)

	// Every alternative except the last gets a first-byte guard.
	if countOps(prog, opTestByte) != 2 {
		t.Fatalf("test-byte count = %d, want 2\n%s", countOps(prog, opTestByte), prog)
	}
}

func TestAsciiRangeBecomesSet(t *testing.T) {
	prog := compileProgram(t, `a = [a..f];`)

	if countOps(prog, opCharRange) != 0 {
		t.Fatalf("ascii range compiled to runtime decode\n%s", prog)
	}
	if countOps(prog, opSet) != 1 {
		t.Fatalf("set count = %d, want 1\n%s", countOps(prog, opSet), prog)
	}
}

func TestMultibyteRangeStaysCharRange(t *testing.T) {
	prog := compileProgram(t, `a = [à..ÿ];`)

	if countOps(prog, opCharRange) != 1 {
		t.Fatalf("char-range count = %d, want 1\n%s", countOps(prog, opCharRange), prog)
	}
}

func TestCaptureWrapsAnnotatedRules(t *testing.T) {
	prog := compileProgram(t, `
		@show a = b;
		b = "x";
	`)

	if countOps(prog, opCaptureBegin) != 1 || countOps(prog, opCaptureEnd) != 1 {
		t.Fatalf("capture begin/end = %d/%d, want 1/1",
			countOps(prog, opCaptureBegin), countOps(prog, opCaptureEnd))
	}
	if !prog.rules[0].captured {
		t.Fatal("rule a not marked captured")
	}
	if prog.rules[1].captured {
		t.Fatal("rule b marked captured without annotation")
	}
}

func TestBackrefTargetForcedCaptured(t *testing.T) {
	prog := compileProgram(t, `
		a = tag @backref(tag);
		tag = [a..z];
	`)

	idx := -1
	for i := range prog.rules {
		if prog.rules[i].name == "tag" {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatal("rule tag missing")
	}
	if !prog.rules[idx].captured {
		t.Fatal("backref target not captured")
	}
}

func TestDisassembly(t *testing.T) {
	prog := compileProgram(t, `a = "hi" / [0..9];`)

	dis := prog.String()
	for _, want := range []string{"call", "end", "return"} {
		if !strings.Contains(dis, want) {
			t.Errorf("disassembly missing %q:\n%s", want, dis)
		}
	}
}

func TestRuleInfoAttributes(t *testing.T) {
	prog := compileProgram(t, `
		@show @highlight(keyword) @completion kw = "let";
	`)

	info := prog.rules[0]
	if info.highlightTag != "keyword" {
		t.Fatalf("highlight tag = %q, want keyword", info.highlightTag)
	}
	if !info.completion {
		t.Fatal("completion not set")
	}
}

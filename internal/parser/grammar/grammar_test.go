package grammar

import (
	"errors"
	"testing"
	"unicode/utf8"
)

func mustParse(t *testing.T, src string) *Grammar {
	t.Helper()
	g, err := ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return g
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("error %v is not a grammar error", err)
	}
	if ge.Kind != kind {
		t.Fatalf("error kind = %v, want %v", ge.Kind, kind)
	}
}

func TestParseRules(t *testing.T) {
	g := mustParse(t, `
		document = value+;
		value = "a" / "b" digit?;
		digit = [0..9];
	`)

	if len(g.Rules) != 3 {
		t.Fatalf("rule count = %d, want 3", len(g.Rules))
	}
	for i, name := range []string{"document", "value", "digit"} {
		if g.Rules[i].Name != name {
			t.Errorf("rule %d = %q, want %q", i, g.Rules[i].Name, name)
		}
		if idx, ok := g.RuleIndex(name); !ok || idx != i {
			t.Errorf("RuleIndex(%q) = %d, %v", name, idx, ok)
		}
	}

	if _, ok := g.Rules[0].Expr.(*OneOrMore); !ok {
		t.Fatalf("document expr = %T, want one-or-more", g.Rules[0].Expr)
	}
}

func TestDesugarRepetition(t *testing.T) {
	g := mustParse(t, `a = "x"* "y"?;`)

	seq, ok := g.Rules[0].Expr.(*Sequence)
	if !ok {
		t.Fatalf("expr = %T, want sequence", g.Rules[0].Expr)
	}

	star, ok := seq.Items[0].(*Choice)
	if !ok || len(star.Alts) != 2 {
		t.Fatalf("star item = %s, want choice of two", seq.Items[0])
	}
	if _, ok := star.Alts[0].(*OneOrMore); !ok {
		t.Fatalf("star first alt = %T, want one-or-more", star.Alts[0])
	}
	if _, ok := star.Alts[1].(*Nothing); !ok {
		t.Fatalf("star second alt = %T, want nothing", star.Alts[1])
	}

	opt, ok := seq.Items[1].(*Choice)
	if !ok || len(opt.Alts) != 2 {
		t.Fatalf("optional item = %s, want choice of two", seq.Items[1])
	}
	if _, ok := opt.Alts[1].(*Nothing); !ok {
		t.Fatalf("optional second alt = %T, want nothing", opt.Alts[1])
	}
}

func TestForwardReference(t *testing.T) {
	g := mustParse(t, `
		a = b;
		b = "x";
	`)
	ref, ok := g.Rules[0].Expr.(*Ref)
	if !ok {
		t.Fatalf("expr = %T, want ref", g.Rules[0].Expr)
	}
	if g.Rules[ref.Index].Name != "b" {
		t.Fatalf("ref resolves to %q, want b", g.Rules[ref.Index].Name)
	}
}

func TestUndefinedRule(t *testing.T) {
	_, err := ParseString(`a = missing;`)
	wantKind(t, err, UnknownRule)
}

func TestUnknownAnnotation(t *testing.T) {
	_, err := ParseString(`@bogus a = "x";`)
	wantKind(t, err, BadAnnotation)

	_, err = ParseString(`a = @bogus(b) "x"; b = "y";`)
	wantKind(t, err, BadAnnotation)
}

func TestAnnotations(t *testing.T) {
	g := mustParse(t, `
		@show @highlight(keyword) key = "if";
		@completion name = "x";
	`)

	key := g.Rules[0]
	if !key.Annotated(Show) {
		t.Error("key is not @show")
	}
	if tag, ok := key.HighlightTag(); !ok || tag != "keyword" {
		t.Errorf("highlight tag = %q, %v, want keyword", tag, ok)
	}
	if !key.Captured() {
		t.Error("annotated rule not captured")
	}

	name := g.Rules[1]
	if tag, ok := name.HighlightTag(); ok {
		t.Errorf("unexpected highlight tag %q", tag)
	}
	if !name.Captured() {
		t.Error("@completion rule not captured")
	}
}

func TestHighlightTagDefaultsToRuleName(t *testing.T) {
	g := mustParse(t, `@highlight number = [0..9]+;`)
	if tag, ok := g.Rules[0].HighlightTag(); !ok || tag != "number" {
		t.Fatalf("highlight tag = %q, %v, want number", tag, ok)
	}
}

func TestWhitespacedRequiresWhitespaceRule(t *testing.T) {
	_, err := ParseString(`@whitespaced a = "x" "y";`)
	wantKind(t, err, BadAnnotation)
}

func TestWhitespacedRewrite(t *testing.T) {
	g := mustParse(t, `
		@whitespaced pair = key ":" key;
		key = "k";
		WHITESPACE = [ \t\r\n];
	`)

	wsIndex, ok := g.RuleIndex(wsRuleName)
	if !ok {
		t.Fatal("WS* rule missing")
	}

	seq, ok := g.Rules[0].Expr.(*Sequence)
	if !ok {
		t.Fatalf("pair expr = %T, want sequence", g.Rules[0].Expr)
	}
	// WS k WS ":" WS k WS
	if len(seq.Items) != 7 {
		t.Fatalf("pair sequence has %d items, want 7", len(seq.Items))
	}
	for i := 0; i < len(seq.Items); i += 2 {
		ref, ok := seq.Items[i].(*Ref)
		if !ok || ref.Index != wsIndex {
			t.Fatalf("item %d = %s, want WS ref", i, seq.Items[i])
		}
	}
}

func TestLeftRecursion(t *testing.T) {
	direct := `expr = expr "+" term; term = [0..9];`
	_, err := ParseString(direct)
	wantKind(t, err, LeftRecursion)

	indirect := `a = b "x"; b = c; c = a;`
	_, err = ParseString(indirect)
	wantKind(t, err, LeftRecursion)

	// Nullable prefixes still expose the recursion.
	nullable := `a = b? a; b = "x";`
	_, err = ParseString(nullable)
	wantKind(t, err, LeftRecursion)

	// Recursion behind a consuming prefix is fine.
	ok := `list = "[" list? "]";`
	if _, err := ParseString(ok); err != nil {
		t.Fatalf("right recursion rejected: %v", err)
	}
}

func TestClassNegation(t *testing.T) {
	g := mustParse(t, `a = [^b..y];`)

	choice, ok := g.Rules[0].Expr.(*Choice)
	if !ok || len(choice.Alts) != 2 {
		t.Fatalf("expr = %s, want two-range choice", g.Rules[0].Expr)
	}
	lo, ok := choice.Alts[0].(*CharRange)
	if !ok || lo.Lo != 0 || lo.Hi != 'a' {
		t.Fatalf("low range = %s, want [\\u0000..a]", choice.Alts[0])
	}
	hi, ok := choice.Alts[1].(*CharRange)
	if !ok || hi.Lo != 'z' || hi.Hi != utf8.MaxRune {
		t.Fatalf("high range = %s, want [z..\\u10ffff]", choice.Alts[1])
	}
}

func TestByteClassNegation(t *testing.T) {
	g := mustParse(t, `a = [^\x00..\xfe];`)

	br, ok := g.Rules[0].Expr.(*ByteRange)
	if !ok || br.Lo != 0xff || br.Hi != 0xff {
		t.Fatalf("expr = %s, want byte range ff..ff", g.Rules[0].Expr)
	}
}

func TestBadClasses(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unterminated", `a = [bc`},
		{"empty", `a = [];`},
		{"missing upper", `a = [b..];`},
		{"mixed negated", `a = [^a\x00];`},
		{"inverted bounds", `a = [z..a];`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.src)
			wantKind(t, err, BadClass)
		})
	}
}

func TestLiteralEscapes(t *testing.T) {
	g := mustParse(t, `a = "x\n\t\"\\\x41ä";`)
	lit, ok := g.Rules[0].Expr.(*Literal)
	if !ok {
		t.Fatalf("expr = %T, want literal", g.Rules[0].Expr)
	}
	want := "x\n\t\"\\Aä"
	if string(lit.Bytes) != want {
		t.Fatalf("literal = %q, want %q", lit.Bytes, want)
	}
}

func TestDotMatchesAnyScalar(t *testing.T) {
	g := mustParse(t, `a = .;`)
	cr, ok := g.Rules[0].Expr.(*CharRange)
	if !ok || cr.Lo != 0 || cr.Hi != utf8.MaxRune {
		t.Fatalf("expr = %s, want full scalar range", g.Rules[0].Expr)
	}
}

func TestBackref(t *testing.T) {
	g := mustParse(t, `
		@show tag = [a..z]+;
		pair = tag @backref(tag);
	`)
	seq, ok := g.Rules[1].Expr.(*Sequence)
	if !ok || len(seq.Items) != 2 {
		t.Fatalf("pair expr = %s, want two-item sequence", g.Rules[1].Expr)
	}
	br, ok := seq.Items[1].(*Backref)
	if !ok {
		t.Fatalf("second item = %T, want backref", seq.Items[1])
	}
	if g.Rules[br.Index].Name != "tag" {
		t.Fatalf("backref resolves to %q, want tag", g.Rules[br.Index].Name)
	}
}

func TestComments(t *testing.T) {
	g := mustParse(t, `
		# leading comment
		a = "x"; # trailing comment
	`)
	if len(g.Rules) != 1 {
		t.Fatalf("rule count = %d, want 1", len(g.Rules))
	}
}

func TestRedefinitionReplaces(t *testing.T) {
	g := mustParse(t, `
		a = "old";
		a = "new";
	`)
	if len(g.Rules) != 1 {
		t.Fatalf("rule count = %d, want 1", len(g.Rules))
	}
	lit := g.Rules[0].Expr.(*Literal)
	if string(lit.Bytes) != "new" {
		t.Fatalf("a = %q, want new", lit.Bytes)
	}
}

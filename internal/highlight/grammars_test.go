package highlight

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

const grammarDir = "../../grammars"

func TestLoadShippedGrammars(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(grammarDir); err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, lang := range []string{"json", "markdown", "peg", "rust"} {
		if _, ok := r.Get(lang); !ok {
			t.Errorf("language %s not loaded", lang)
		}
	}
}

func TestShippedJSONGrammar(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(grammarDir); err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := r.Get("json")
	if !ok {
		t.Fatal("json grammar not loaded")
	}

	tree, err := p.ParseBytes(context.Background(), []byte(`{"a": [1, true]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	spans := tree.Spans()

	key, ok := spanFor(spans, "string")
	if !ok || key.Start != 1 || key.End != 4 || key.HighlightTag != "string" {
		t.Errorf("string span = %+v, %v", key, ok)
	}
	num, ok := spanFor(spans, "number")
	if !ok || num.Start != 7 || num.End != 8 || num.HighlightTag != "constant" {
		t.Errorf("number span = %+v, %v", num, ok)
	}
	b, ok := spanFor(spans, "boolean")
	if !ok || b.Start != 10 || b.End != 14 || b.HighlightTag != "keyword" {
		t.Errorf("boolean span = %+v, %v", b, ok)
	}

	if _, err := p.ParseBytes(context.Background(), []byte(`{"a": }`)); err == nil {
		t.Error("malformed document parsed")
	}
}

func TestShippedMarkdownInjectsRust(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(grammarDir); err != nil {
		t.Fatalf("load: %v", err)
	}
	d := New(r)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("# Title\n```rust\nfn main() {}\n```\n")
	id := uuid.New()
	if err := d.Open(id, "markdown", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)
	if err := d.Err(id); err != nil {
		t.Fatalf("parse: %v", err)
	}

	spans, err := d.Spans(id)
	if err != nil {
		t.Fatalf("spans: %v", err)
	}
	heading, ok := spanFor(spans, "heading")
	if !ok || heading.Start != 0 || heading.End != 8 || heading.HighlightTag != "title" {
		t.Errorf("heading span = %+v, %v", heading, ok)
	}
	content, ok := spanFor(spans, "content")
	if !ok || content.InjectionLanguage != "rust" {
		t.Errorf("content span = %+v, %v", content, ok)
	}
	kw, ok := spanFor(spans, "keyword")
	if !ok || kw.Start != 16 || kw.End != 18 || kw.HighlightTag != "keyword" {
		t.Errorf("keyword span = %+v, %v", kw, ok)
	}
}

func TestShippedPEGGrammarSelfParses(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadDir(grammarDir); err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := r.Get("peg")
	if !ok {
		t.Fatal("peg grammar not loaded")
	}

	src := "# words\n@show @highlight(name) word = [a..z]+;\n"
	tree, err := p.ParseBytes(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	spans := tree.Spans()
	if _, ok := spanFor(spans, "rule"); !ok {
		t.Error("no rule span")
	}
	if c, ok := spanFor(spans, "comment"); !ok || c.Start != 0 || c.End != 7 {
		t.Errorf("comment span = %+v, %v", c, ok)
	}
	ann, ok := spanFor(spans, "annotation")
	if !ok || ann.HighlightTag != "attribute" {
		t.Errorf("annotation span = %+v, %v", ann, ok)
	}
}

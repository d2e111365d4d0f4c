package highlight

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/weft/internal/parser"
)

// fakeBuffer is a minimal edit-capable text with snapshot semantics.
type fakeBuffer struct {
	mu   sync.Mutex
	text []byte
	rev  uint64
}

func newFakeBuffer(text string) *fakeBuffer {
	return &fakeBuffer{text: []byte(text)}
}

func (b *fakeBuffer) snapshot() (parser.Source, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := append([]byte(nil), b.text...)
	return parser.Bytes(copied), b.rev
}

// splice replaces del bytes at off with ins and returns the new
// revision.
func (b *fakeBuffer) splice(off, del int, ins string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]byte(nil), b.text[:off]...)
	out = append(out, ins...)
	out = append(out, b.text[off+del:]...)
	b.text = out
	b.rev++
	return b.rev
}

func newTestRegistry(t *testing.T, grammars map[string]string) *Registry {
	t.Helper()
	r := NewRegistry()
	for name, src := range grammars {
		p, err := parser.NewString(src)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		r.Put(name, p)
	}
	return r
}

func waitIdle(t *testing.T, d *Driver, id uuid.UUID) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Wait(ctx, id); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func spanFor(spans []parser.Span, rule string) (parser.Span, bool) {
	for _, s := range spans {
		if s.Rule == rule {
			return s, true
		}
	}
	return parser.Span{}, false
}

func TestOpenParsesBuffer(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"plain": `@show @highlight word = [a..z]+;`,
	})
	d := New(reg)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("ab cd")
	id := uuid.New()
	if err := d.Open(id, "plain", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)

	spans, err := d.Spans(id)
	if err != nil {
		t.Fatalf("spans: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("span count = %d, want 2: %+v", len(spans), spans)
	}
	if spans[0].Start != 0 || spans[0].End != 2 || spans[1].Start != 3 || spans[1].End != 5 {
		t.Fatalf("spans = %+v", spans)
	}
}

func TestOpenUnknownLanguage(t *testing.T) {
	d := New(NewRegistry())
	defer d.Shutdown(context.Background())

	if err := d.Open(uuid.New(), "nope", newFakeBuffer("x").snapshot); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("open err = %v, want unknown language", err)
	}
}

func TestEditReparsesRegion(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"items": `@show item = "(" [a..z]* ")";`,
	})
	d := New(reg)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("(ab) (cd) (ef)")
	id := uuid.New()
	if err := d.Open(id, "items", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)

	// Insert inside the second region.
	rev := buf.splice(8, 0, "x")
	if err := d.HandleEdit(id, 8, 1, 0, rev); err != nil {
		t.Fatalf("edit: %v", err)
	}
	waitIdle(t, d, id)

	spans, err := d.Spans(id)
	if err != nil {
		t.Fatalf("spans: %v", err)
	}
	want := []struct{ start, end int64 }{{0, 4}, {5, 10}, {11, 15}}
	if len(spans) != len(want) {
		t.Fatalf("span count = %d, want %d: %+v", len(spans), len(want), spans)
	}
	for i, w := range want {
		if spans[i].Start != w.start || spans[i].End != w.end {
			t.Fatalf("spans[%d] = [%d,%d), want [%d,%d)", i, spans[i].Start, spans[i].End, w.start, w.end)
		}
	}
}

func TestEditAcrossRegionsReparsesAll(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"items": `@show item = "(" [a..z]* ")";`,
	})
	d := New(reg)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("(ab) (cd)")
	id := uuid.New()
	if err := d.Open(id, "items", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)

	// Delete ") (" spanning both regions.
	rev := buf.splice(3, 3, "")
	if err := d.HandleEdit(id, 3, 0, 3, rev); err != nil {
		t.Fatalf("edit: %v", err)
	}
	waitIdle(t, d, id)

	spans, err := d.Spans(id)
	if err != nil {
		t.Fatalf("spans: %v", err)
	}
	if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != 6 {
		t.Fatalf("spans = %+v, want one [0,6)", spans)
	}
}

func TestRapidEditsConverge(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"plain": `@show word = [a..z]+;`,
	})
	d := New(reg)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("a")
	id := uuid.New()
	if err := d.Open(id, "plain", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 0; i < 10; i++ {
		rev := buf.splice(0, 0, "b")
		if err := d.HandleEdit(id, 0, 1, 0, rev); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}
	waitIdle(t, d, id)

	spans, err := d.Spans(id)
	if err != nil {
		t.Fatalf("spans: %v", err)
	}
	if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != 11 {
		t.Fatalf("spans = %+v, want one [0,11)", spans)
	}
}

func TestSpanHandlerDelivery(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"plain": `@show word = [a..z]+;`,
	})

	var mu sync.Mutex
	var delivered [][]parser.Span
	d := New(reg, WithSpanHandler(func(_ uuid.UUID, spans []parser.Span) {
		mu.Lock()
		delivered = append(delivered, spans)
		mu.Unlock()
	}))
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("abc")
	id := uuid.New()
	if err := d.Open(id, "plain", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) == 0 {
		t.Fatal("no span deliveries")
	}
	last := delivered[len(delivered)-1]
	if len(last) != 1 || last[0].End != 3 {
		t.Fatalf("delivered = %+v", last)
	}
}

func TestCloseForgetsBuffer(t *testing.T) {
	reg := newTestRegistry(t, map[string]string{
		"plain": `@show word = [a..z]+;`,
	})
	d := New(reg)
	defer d.Shutdown(context.Background())

	buf := newFakeBuffer("abc")
	id := uuid.New()
	if err := d.Open(id, "plain", buf.snapshot); err != nil {
		t.Fatalf("open: %v", err)
	}
	waitIdle(t, d, id)
	d.Close(id)

	if _, err := d.Spans(id); !errors.Is(err, ErrUnknownBuffer) {
		t.Fatalf("spans err = %v, want unknown buffer", err)
	}
	if err := d.HandleEdit(id, 0, 1, 0, 1); !errors.Is(err, ErrUnknownBuffer) {
		t.Fatalf("edit err = %v, want unknown buffer", err)
	}
}

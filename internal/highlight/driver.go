// Package highlight runs grammars against buffer views and maintains
// per-buffer capture trees for rendering.
//
// Each open buffer has a grammar, a cached capture tree, and at most
// one in-flight background parse. Edits invalidate the smallest
// enclosing top-level capture region; the region re-parses against a
// fresh buffer snapshot and the resulting subtree splices into the
// cached tree. A parse whose snapshot is stale by the time it
// completes is discarded and another pass scheduled.
package highlight

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/weft/internal/parser"
	"github.com/dshills/weft/internal/task"
)

// defaultInjectionDepth bounds nested language injections.
const defaultInjectionDepth = 4

// SnapshotFunc returns an immutable view of a buffer and the revision
// it corresponds to. The view must stay readable while edits continue
// on the live buffer.
type SnapshotFunc func() (parser.Source, uint64)

// SpanHandler receives the refreshed span stream after a parse pass
// installs. Called outside driver locks.
type SpanHandler func(id uuid.UUID, spans []parser.Span)

// Option configures a Driver.
type Option func(*Driver)

// WithInjectionDepth sets the injection recursion bound.
func WithInjectionDepth(n int) Option {
	return func(d *Driver) { d.maxDepth = n }
}

// WithExecutor runs parse passes on a shared executor instead of a
// private one.
func WithExecutor(x *task.Executor) Option {
	return func(d *Driver) {
		d.exec = x
		d.ownExec = false
	}
}

// WithSpanHandler registers the span delivery callback.
func WithSpanHandler(fn SpanHandler) Option {
	return func(d *Driver) { d.onSpans = fn }
}

// Driver coordinates parsing across open buffers.
type Driver struct {
	registry *Registry
	exec     *task.Executor
	ownExec  bool
	maxDepth int
	onSpans  SpanHandler

	mu      sync.Mutex
	buffers map[uuid.UUID]*bufferState
}

// dirtyState describes the pending re-parse for a buffer. Either the
// whole buffer, or one top-level capture region in post-edit
// coordinates.
type dirtyState struct {
	full       bool
	start, end int64
	rootIndex  int
}

type bufferState struct {
	id       uuid.UUID
	language string
	parser   *parser.Parser
	snap     SnapshotFunc

	mu       sync.Mutex
	roots    []*parser.CaptureNode
	spans    []parser.Span
	cache    map[uint64][]*parser.CaptureNode
	revision uint64
	dirty    *dirtyState
	inFlight bool
	pending  bool
	lastErr  error
}

// New creates a driver resolving grammars from the registry.
func New(registry *Registry, opts ...Option) *Driver {
	d := &Driver{
		registry: registry,
		maxDepth: defaultInjectionDepth,
		ownExec:  true,
		buffers:  make(map[uuid.UUID]*bufferState),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.exec == nil {
		d.exec = task.NewExecutor(task.WithMaxConcurrent(4))
	}
	return d
}

// Open starts tracking a buffer and schedules its first full parse.
// Opening an already-open buffer replaces its language and state.
func (d *Driver) Open(id uuid.UUID, language string, snap SnapshotFunc) error {
	p, ok := d.registry.Get(language)
	if !ok {
		return ErrUnknownLanguage
	}

	st := &bufferState{
		id:       id,
		language: language,
		parser:   p,
		snap:     snap,
		cache:    make(map[uint64][]*parser.CaptureNode),
		dirty:    &dirtyState{full: true},
	}

	d.mu.Lock()
	d.buffers[id] = st
	d.mu.Unlock()

	st.mu.Lock()
	d.schedule(st)
	st.mu.Unlock()
	return nil
}

// Close stops tracking a buffer. An in-flight parse for it finishes
// and its result is dropped.
func (d *Driver) Close(id uuid.UUID) {
	d.mu.Lock()
	delete(d.buffers, id)
	d.mu.Unlock()
}

func (d *Driver) state(id uuid.UUID) (*bufferState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.buffers[id]
	return st, ok
}

// HandleEdit records a buffer mutation. offset and deleted are in
// pre-edit coordinates; revision is the buffer revision after the
// edit. The affected region re-parses in the background.
func (d *Driver) HandleEdit(id uuid.UUID, offset, inserted, deleted int64, revision uint64) error {
	st, ok := d.state(id)
	if !ok {
		return ErrUnknownBuffer
	}

	st.mu.Lock()
	st.revision = revision
	st.applyEdit(offset, inserted, deleted)
	d.schedule(st)
	st.mu.Unlock()
	return nil
}

// Refresh schedules a full re-parse, dropping the region cache. Used
// after grammar hot reloads.
func (d *Driver) Refresh(id uuid.UUID) error {
	st, ok := d.state(id)
	if !ok {
		return ErrUnknownBuffer
	}

	p, pok := d.registry.Get(st.language)

	st.mu.Lock()
	if pok {
		st.parser = p
	}
	st.cache = make(map[uint64][]*parser.CaptureNode)
	st.dirty = &dirtyState{full: true}
	d.schedule(st)
	st.mu.Unlock()
	return nil
}

// Spans returns the current span stream for a buffer. The stream lags
// the buffer while a re-parse is in flight.
func (d *Driver) Spans(id uuid.UUID) ([]parser.Span, error) {
	st, ok := d.state(id)
	if !ok {
		return nil, ErrUnknownBuffer
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]parser.Span, len(st.spans))
	copy(out, st.spans)
	return out, nil
}

// Err returns the error of the buffer's last parse pass, if any.
func (d *Driver) Err(id uuid.UUID) error {
	st, ok := d.state(id)
	if !ok {
		return ErrUnknownBuffer
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastErr
}

// Wait blocks until the buffer has no in-flight or pending parse.
// Intended for tests and shutdown paths.
func (d *Driver) Wait(ctx context.Context, id uuid.UUID) error {
	st, ok := d.state(id)
	if !ok {
		return ErrUnknownBuffer
	}
	for {
		st.mu.Lock()
		idle := !st.inFlight && !st.pending && st.dirty == nil
		st.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// Shutdown stops background parsing.
func (d *Driver) Shutdown(ctx context.Context) error {
	if d.ownExec {
		return d.exec.Shutdown(ctx)
	}
	return nil
}

// applyEdit folds one edit into the dirty region. Caller holds st.mu.
func (st *bufferState) applyEdit(offset, inserted, deleted int64) {
	if st.dirty != nil && st.dirty.full {
		return
	}
	delta := inserted - deleted

	idx := -1
	for i, r := range st.roots {
		if r.Start <= offset && offset+deleted <= r.End {
			idx = i
			break
		}
	}
	if idx < 0 || (st.dirty != nil && st.dirty.rootIndex != idx) {
		// The edit crosses region boundaries, or a second region went
		// dirty before the first re-parsed.
		st.dirty = &dirtyState{full: true}
		return
	}

	// Track the enclosing region's growth; its subtree is stale until
	// the re-parse replaces it.
	r := st.roots[idx]
	r.End += delta
	for _, later := range st.roots[idx+1:] {
		shiftNode(later, delta)
	}
	st.dirty = &dirtyState{start: r.Start, end: r.End, rootIndex: idx}
}

// schedule starts a parse pass unless one is in flight. Caller holds
// st.mu.
func (d *Driver) schedule(st *bufferState) {
	if st.inFlight {
		st.pending = true
		return
	}
	st.inFlight = true
	_, err := d.exec.Submit(context.Background(), "highlight/"+st.language, func(ctx context.Context) error {
		return d.parseOnce(ctx, st)
	})
	if err != nil {
		st.inFlight = false
	}
}

// parseOnce runs one parse pass against a fresh snapshot and installs
// the result unless the snapshot went stale.
func (d *Driver) parseOnce(ctx context.Context, st *bufferState) error {
	src, rev := st.snap()

	st.mu.Lock()
	dirty := st.dirty
	st.mu.Unlock()
	if dirty == nil {
		st.mu.Lock()
		st.inFlight = false
		st.mu.Unlock()
		return nil
	}

	replaceIdx := -1
	var roots []*parser.CaptureNode
	var err error
	if dirty.full || dirty.end > src.Len() {
		roots, err = d.parseFull(ctx, st, src)
	} else {
		roots, err = d.parseRegion(ctx, st, src, dirty)
		replaceIdx = dirty.rootIndex
		var inc *parser.IncompleteError
		if errors.As(err, &inc) {
			// The edit broke the region's structure; re-parse the
			// whole buffer instead.
			roots, err = d.parseFull(ctx, st, src)
			replaceIdx = -1
		}
	}
	if err != nil && roots == nil {
		st.mu.Lock()
		st.inFlight = false
		st.lastErr = err
		st.mu.Unlock()
		return err
	}

	st.mu.Lock()
	st.inFlight = false
	if st.revision != rev || st.pending {
		st.pending = false
		d.schedule(st)
		st.mu.Unlock()
		return nil
	}

	if replaceIdx >= 0 {
		spliced := make([]*parser.CaptureNode, 0, len(st.roots)+len(roots)-1)
		spliced = append(spliced, st.roots[:replaceIdx]...)
		spliced = append(spliced, roots...)
		spliced = append(spliced, st.roots[replaceIdx+1:]...)
		roots = spliced
	}
	st.roots = roots
	st.spans = (&parser.CaptureTree{Roots: roots}).Spans()
	st.dirty = nil
	st.lastErr = err

	var delivered []parser.Span
	if d.onSpans != nil {
		delivered = make([]parser.Span, len(st.spans))
		copy(delivered, st.spans)
	}
	st.mu.Unlock()

	if d.onSpans != nil {
		if cur, ok := d.state(st.id); ok && cur == st {
			d.onSpans(st.id, delivered)
		}
	}
	return err
}

// parseFull scans the whole buffer in partial-match mode, so broken
// stretches stay plain instead of failing the pass.
func (d *Driver) parseFull(ctx context.Context, st *bufferState, src parser.Source) ([]*parser.CaptureNode, error) {
	hash := hashRegion(src, 0, src.Len())
	if cached, ok := st.cached(hash, 0); ok {
		return cached, nil
	}

	tree, err := st.parser.Scan(ctx, src)
	if err != nil {
		return nil, err
	}
	injErr := d.inject(ctx, src, tree.Roots, 0)
	st.store(hash, tree.Roots, 0)
	return tree.Roots, injErr
}

// parseRegion re-parses one top-level capture region.
func (d *Driver) parseRegion(ctx context.Context, st *bufferState, src parser.Source, dirty *dirtyState) ([]*parser.CaptureNode, error) {
	hash := hashRegion(src, dirty.start, dirty.end)
	if cached, ok := st.cached(hash, dirty.start); ok {
		return cached, nil
	}

	w := window{src: src, off: dirty.start, n: dirty.end - dirty.start}
	tree, err := st.parser.Parse(ctx, w)
	if err != nil {
		return nil, err
	}
	for _, r := range tree.Roots {
		shiftNode(r, dirty.start)
	}
	injErr := d.inject(ctx, src, tree.Roots, 0)
	st.store(hash, tree.Roots, dirty.start)
	return tree.Roots, injErr
}

// cacheLimit bounds the per-buffer region cache.
const cacheLimit = 64

// cached looks up a subtree by content hash. Entries are stored
// region-relative; the returned copy is shifted to base.
func (st *bufferState) cached(hash uint64, base int64) ([]*parser.CaptureNode, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	nodes, ok := st.cache[hash]
	if !ok {
		return nil, false
	}
	return cloneShift(nodes, base), true
}

func (st *bufferState) store(hash uint64, roots []*parser.CaptureNode, base int64) {
	rel := cloneShift(roots, -base)
	st.mu.Lock()
	if len(st.cache) >= cacheLimit {
		st.cache = make(map[uint64][]*parser.CaptureNode)
	}
	st.cache[hash] = rel
	st.mu.Unlock()
}

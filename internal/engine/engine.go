package engine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/weft/internal/engine/piecetree"
	"github.com/dshills/weft/internal/event"
)

// Engine owns the set of open buffers.
type Engine struct {
	bus *event.Bus

	mu      sync.RWMutex
	buffers map[uuid.UUID]*Buffer
	closed  bool
}

// New creates an engine with no open buffers.
func New(opts ...Option) *Engine {
	e := &Engine{
		buffers: make(map[uuid.UUID]*Buffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open opens the file at path as a new buffer. The file content is
// mapped read-only where the platform allows; edits never touch the
// file until Save.
func (e *Engine) Open(path string) (*Buffer, error) {
	tree, err := piecetree.FromPath(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return e.adopt(tree)
}

// OpenReader reads r fully into a new in-memory buffer.
func (e *Engine) OpenReader(r io.Reader) (*Buffer, error) {
	tree, err := piecetree.FromReader(r)
	if err != nil {
		return nil, fmt.Errorf("open reader: %w", err)
	}
	return e.adopt(tree)
}

// NewBuffer creates an in-memory buffer seeded with b.
func (e *Engine) NewBuffer(b []byte) (*Buffer, error) {
	return e.adopt(piecetree.FromBytes(b))
}

// Scratch creates an empty in-memory buffer.
func (e *Engine) Scratch() (*Buffer, error) {
	return e.adopt(piecetree.New())
}

func (e *Engine) adopt(tree *piecetree.PieceTree) (*Buffer, error) {
	buf := &Buffer{
		id:   uuid.New(),
		bus:  e.bus,
		tree: tree,
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		tree.Close()
		return nil, ErrEngineClosed
	}
	e.buffers[buf.id] = buf
	e.mu.Unlock()

	buf.publish(event.BufferCreated{BufferID: buf.id, FilePath: tree.FilePath()})
	return buf, nil
}

// Get returns the buffer with the given ID.
func (e *Engine) Get(id uuid.UUID) (*Buffer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	buf, ok := e.buffers[id]
	return buf, ok
}

// Buffers returns the open buffers in no particular order.
func (e *Engine) Buffers() []*Buffer {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Buffer, 0, len(e.buffers))
	for _, buf := range e.buffers {
		out = append(out, buf)
	}
	return out
}

// Close closes the buffer with the given ID and releases its backing
// stores. Snapshots of a file-backed buffer must not be read after
// this.
func (e *Engine) Close(id uuid.UUID) error {
	e.mu.Lock()
	buf, ok := e.buffers[id]
	if ok {
		delete(e.buffers, id)
	}
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrBufferNotFound)
	}
	if err := buf.close(); err != nil {
		return fmt.Errorf("close %s: %w", id, err)
	}
	buf.publish(event.BufferClosed{BufferID: id})
	return nil
}

// Shutdown closes every open buffer. Further Open calls fail with
// ErrEngineClosed.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	buffers := e.buffers
	e.buffers = make(map[uuid.UUID]*Buffer)
	e.mu.Unlock()

	var firstErr error
	for id, buf := range buffers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := buf.close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", id, err)
		}
	}
	return firstErr
}

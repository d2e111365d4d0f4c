package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/weft/internal/engine/piecetree"
	"github.com/dshills/weft/internal/event"
)

// Buffer is a single open text. Writes are serialized by an internal
// lock and bump the revision; reads work from snapshots and can run
// from any goroutine.
type Buffer struct {
	id  uuid.UUID
	bus *event.Bus

	mu       sync.RWMutex
	tree     *piecetree.PieceTree
	revision uint64
	readOnly bool
	closed   bool
}

// ID returns the buffer's unique identifier.
func (b *Buffer) ID() uuid.UUID { return b.id }

// FilePath returns the backing file path, or "" for in-memory buffers.
func (b *Buffer) FilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.FilePath()
}

// Len returns the current length in bytes.
func (b *Buffer) Len() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Len()
}

// Revision returns the current revision. It starts at zero and
// increments on every successful write.
func (b *Buffer) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// SetReadOnly toggles write protection.
func (b *Buffer) SetReadOnly(ro bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = ro
}

// ReadOnly reports whether writes are rejected.
func (b *Buffer) ReadOnly() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readOnly
}

// Insert places text at byte offset pos and returns the new revision.
func (b *Buffer) Insert(pos int64, text []byte) (uint64, error) {
	b.mu.Lock()
	if err := b.writable(); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.Insert(pos, text); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.revision++
	rev := b.revision
	b.mu.Unlock()

	b.publish(event.BufferContentInserted{
		Edit: event.Edit{
			BufferID: b.id,
			Offset:   pos,
			Inserted: int64(len(text)),
			Revision: rev,
		},
		Text: append([]byte(nil), text...),
	})
	return rev, nil
}

// InsertMulti inserts the same text at every offset in one revision
// step. Offsets are interpreted against the content before the call.
func (b *Buffer) InsertMulti(positions []int64, text []byte) (uint64, error) {
	b.mu.Lock()
	if err := b.writable(); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.InsertMulti(positions, text); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.revision++
	rev := b.revision
	b.mu.Unlock()

	for _, pos := range positions {
		b.publish(event.BufferContentInserted{
			Edit: event.Edit{
				BufferID: b.id,
				Offset:   pos,
				Inserted: int64(len(text)),
				Revision: rev,
			},
			Text: append([]byte(nil), text...),
		})
	}
	return rev, nil
}

// Delete removes the byte range [start, end) and returns the new
// revision.
func (b *Buffer) Delete(start, end int64) (uint64, error) {
	b.mu.Lock()
	if err := b.writable(); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	removed, err := b.bytesLocked(start, end)
	if err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.Delete(start, end); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.revision++
	rev := b.revision
	b.mu.Unlock()

	b.publish(event.BufferContentDeleted{
		Edit: event.Edit{
			BufferID: b.id,
			Offset:   start,
			Deleted:  end - start,
			Revision: rev,
		},
		Text: removed,
	})
	return rev, nil
}

// Replace substitutes the byte range [start, end) with text in one
// revision step.
func (b *Buffer) Replace(start, end int64, text []byte) (uint64, error) {
	b.mu.Lock()
	if err := b.writable(); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.Delete(start, end); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.Insert(start, text); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.revision++
	rev := b.revision
	b.mu.Unlock()

	b.publish(event.BufferContentReplaced{
		Edit: event.Edit{
			BufferID: b.id,
			Offset:   start,
			Inserted: int64(len(text)),
			Deleted:  end - start,
			Revision: rev,
		},
		Text: append([]byte(nil), text...),
	})
	return rev, nil
}

// Append adds text at the end of the buffer.
func (b *Buffer) Append(text []byte) (uint64, error) {
	b.mu.RLock()
	n := b.tree.Len()
	b.mu.RUnlock()
	return b.Insert(n, text)
}

// Bytes copies the byte range [start, end) out of the buffer.
func (b *Buffer) Bytes(start, end int64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bytesLocked(start, end)
}

func (b *Buffer) bytesLocked(start, end int64) ([]byte, error) {
	if start < 0 || start > end || end > b.tree.Len() {
		return nil, fmt.Errorf("read [%d, %d) in buffer of %d: %w", start, end, b.tree.Len(), piecetree.ErrOutOfBounds)
	}
	return b.tree.View().Slice(start, end).Bytes(), nil
}

// Text copies the whole content.
func (b *Buffer) Text() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.View().Slice(0, b.tree.Len()).Bytes()
}

// Snapshot returns an immutable view of the current content together
// with its revision. Release the snapshot when done reading.
func (b *Buffer) Snapshot() (*piecetree.Snapshot, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Snapshot(), b.revision
}

// Restore makes an earlier snapshot the current content. The change is
// published as a whole-buffer event because it cannot be expressed as
// a splice.
func (b *Buffer) Restore(s *piecetree.Snapshot) (uint64, error) {
	b.mu.Lock()
	if err := b.writable(); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	if err := b.tree.Restore(s); err != nil {
		b.mu.Unlock()
		return 0, err
	}
	b.revision++
	rev := b.revision
	b.mu.Unlock()

	b.publish(event.BufferRestored{BufferID: b.id, Revision: rev})
	return rev, nil
}

// Mark pins the byte at pos so it can be located again after edits.
func (b *Buffer) Mark(pos int64) (piecetree.Mark, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.View().Mark(pos)
}

// MarkToPos resolves a mark against the current content.
func (b *Buffer) MarkToPos(m piecetree.Mark) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.View().MarkToPos(m)
}

// Find returns the first match of pattern at or after from.
func (b *Buffer) Find(pattern []byte, from int64) (piecetree.Range, bool) {
	snap, _ := b.Snapshot()
	defer snap.Release()

	from = clamp(from, 0, snap.Len())
	it := piecetree.NewSearcher(pattern).FindIter(snap.Slice(from, snap.Len()))
	r, ok := it.Next()
	if !ok {
		return piecetree.Range{}, false
	}
	return piecetree.Range{Start: r.Start + from, End: r.End + from}, true
}

// FindReverse returns the last match of pattern ending at or before
// limit.
func (b *Buffer) FindReverse(pattern []byte, limit int64) (piecetree.Range, bool) {
	snap, _ := b.Snapshot()
	defer snap.Release()

	limit = clamp(limit, 0, snap.Len())
	it := piecetree.NewSearcherRev(pattern).FindIter(snap.Slice(0, limit))
	return it.Next()
}

// FindAll returns every match of pattern, front to back. When fold is
// set the search is ASCII case-insensitive; non-ASCII patterns fall
// back to exact matching.
func (b *Buffer) FindAll(pattern []byte, fold bool) []piecetree.Range {
	snap, _ := b.Snapshot()
	defer snap.Release()

	var s *piecetree.Searcher
	if fold {
		if fs, ok := piecetree.NewSearcherFold(string(pattern)); ok {
			s = fs
		}
	}
	if s == nil {
		s = piecetree.NewSearcher(pattern)
	}

	var out []piecetree.Range
	it := s.FindIter(snap.Slice(0, snap.Len()))
	for {
		r, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

// Save writes the content to the backing file via a temporary file in
// the same directory. The original mapping keeps reading the old inode
// until the buffer is reopened.
func (b *Buffer) Save() error {
	path := b.FilePath()
	if path == "" {
		return ErrNoFilePath
	}
	return b.SaveAs(path)
}

// SaveAs writes the content to path atomically.
func (b *Buffer) SaveAs(path string) error {
	snap, rev := b.Snapshot()
	defer snap.Release()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".weft-save-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	if _, err := snap.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save %s: %w", path, err)
	}

	b.publish(event.BufferSaved{BufferID: b.id, FilePath: path, Revision: rev})
	return nil
}

func (b *Buffer) writable() error {
	if b.closed {
		return ErrBufferNotFound
	}
	if b.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (b *Buffer) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.tree.Close()
}

func (b *Buffer) publish(ev any) {
	if b.bus == nil {
		return
	}
	// Delivery order is the bus's concern; the revision in each event
	// lets subscribers re-order or drop stale ones.
	_ = b.bus.Publish(context.Background(), ev)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

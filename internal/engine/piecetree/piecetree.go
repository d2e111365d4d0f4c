package piecetree

import (
	"fmt"
	"io"
	"sort"
)

// maxLoadPiece bounds the piece size for file-backed buffers so chunk
// iteration never hands out giant slices.
const maxLoadPiece = 256 * 1024

// PieceTree is the writable text buffer. A single writer mutates it;
// any number of readers work from snapshots.
type PieceTree struct {
	add  *addStore
	view Snapshot
}

// Snapshot is an immutable view of the buffer at a point in time. It is
// safe to read from any goroutine while the writer keeps editing.
// Release it when done so later edits stop cloning shared nodes.
type Snapshot struct {
	orig *originalStore
	add  *addStore
	tree tree
	size int64
}

// New returns an empty buffer.
func New() *PieceTree {
	return fromOriginal(newOriginalStore(nil))
}

// FromReader loads the original content into memory.
func FromReader(r io.Reader) (*PieceTree, error) {
	orig, err := originalFromReader(r)
	if err != nil {
		return nil, err
	}
	return fromOriginal(orig), nil
}

// FromPath opens a file-backed buffer. The original store is mapped
// read-only where the platform allows.
func FromPath(path string) (*PieceTree, error) {
	orig, err := originalFromPath(path)
	if err != nil {
		return nil, err
	}
	return fromOriginal(orig), nil
}

// FromBytes copies b into the original store.
func FromBytes(b []byte) *PieceTree {
	data := make([]byte, len(b))
	copy(data, b)
	return fromOriginal(newOriginalStore(data))
}

func fromOriginal(orig *originalStore) *PieceTree {
	add := newAddStore()
	pieces := newTree()

	size := orig.len()
	if size > 0 {
		if orig.mapped {
			// Cap piece sizes so no reader ever holds the whole file
			// as a single chunk.
			var pos int64
			for rest := size; rest > 0; {
				plen := rest
				if plen > maxLoadPiece {
					plen = maxLoadPiece
				}
				pieces.insert(pos, newPiece(Original, pos, plen), true)
				pos += plen
				rest -= plen
			}
		} else {
			pieces.insert(0, newPiece(Original, 0, size), true)
		}
	}

	return &PieceTree{
		add: add,
		view: Snapshot{
			orig: orig,
			add:  add,
			tree: pieces,
			size: size,
		},
	}
}

// Len returns the logical length in bytes.
func (t *PieceTree) Len() int64 { return t.view.size }

// PieceCount returns the number of pieces in the tree.
func (t *PieceTree) PieceCount() int { return t.view.tree.count }

// FilePath returns the backing file path, or "" for in-memory buffers.
func (t *PieceTree) FilePath() string { return t.view.orig.filePath() }

// Insert places bytes at logical offset pos. The bytes are appended to
// the add store; an insertion abutting the previous append extends the
// existing piece instead of creating a new one.
func (t *PieceTree) Insert(pos int64, b []byte) error {
	if pos < 0 || pos > t.view.size {
		return fmt.Errorf("insert at %d in buffer of %d: %w", pos, t.view.size, ErrOutOfBounds)
	}
	if len(b) == 0 {
		return nil
	}

	for len(b) > 0 {
		bpos, n := t.add.appendRun(b)
		canAppend := bpos&(bucketSize-1) != 0

		piece := newPiece(Add, bpos, int64(n))
		t.view.size += piece.Len
		t.view.tree.insert(pos, piece, canAppend)

		pos += int64(n)
		b = b[n:]
	}
	return nil
}

// InsertMulti inserts the same bytes at every offset at once. The bytes
// are appended to the add store a single time and referenced by one
// piece per offset, with distinct counts so marks stay attributable.
func (t *PieceTree) InsertMulti(positions []int64, b []byte) error {
	if len(b) == 0 || len(positions) == 0 {
		return nil
	}
	for _, pos := range positions {
		if pos < 0 || pos > t.view.size {
			return fmt.Errorf("insert at %d in buffer of %d: %w", pos, t.view.size, ErrOutOfBounds)
		}
	}

	poss := positions
	if !sort.SliceIsSorted(poss, func(i, j int) bool { return poss[i] < poss[j] }) {
		poss = make([]int64, len(positions))
		copy(poss, positions)
		sort.Slice(poss, func(i, j int) bool { return poss[i] < poss[j] })
	}

	var insertedTotal int64
	for len(b) > 0 {
		bpos, n := t.add.appendRun(b)
		canAppend := bpos&(bucketSize-1) != 0

		for count, pos := range poss {
			piece := newPieceWithCount(Add, bpos, int64(n), uint32(count))
			t.view.size += piece.Len
			// Offsets shift by everything inserted before this piece:
			// all earlier runs at the first count+1 positions, and this
			// run at the earlier count positions.
			shift := insertedTotal*int64(count+1) + int64(n)*int64(count)
			t.view.tree.insert(pos+shift, piece, canAppend)
		}

		insertedTotal += int64(n)
		b = b[n:]
	}
	return nil
}

// Delete removes the logical byte range [start, end). Store bytes are
// not reclaimed, so marks into the range can revive on undo.
func (t *PieceTree) Delete(start, end int64) error {
	if start < 0 || start > end || end > t.view.size {
		return fmt.Errorf("delete [%d, %d) in buffer of %d: %w", start, end, t.view.size, ErrOutOfBounds)
	}
	if start == end {
		return nil
	}
	t.view.tree.remove(start, end)
	t.view.size -= end - start
	return nil
}

// Append adds bytes at the end of the buffer.
func (t *PieceTree) Append(b []byte) {
	// Len() is always a valid insert position.
	_ = t.Insert(t.view.size, b)
}

// Snapshot returns an immutable view of the current content. The
// returned snapshot observes this edit and all earlier ones, and none
// made after the call.
func (t *PieceTree) Snapshot() *Snapshot {
	return &Snapshot{
		orig: t.view.orig,
		add:  t.view.add,
		tree: t.view.tree.clone(),
		size: t.view.size,
	}
}

// Restore makes a snapshot the current content. The snapshot must
// belong to this buffer; one whose backing stores are gone fails with
// ErrStaleSnapshot.
func (t *PieceTree) Restore(s *Snapshot) error {
	if s.orig != t.view.orig || s.add != t.view.add {
		return ErrStaleSnapshot
	}
	old := t.view.tree
	t.view.tree = s.tree.clone()
	t.view.size = s.size
	old.release()
	return nil
}

// View returns the current content as a snapshot without retaining it.
// The result is invalidated by the next mutation; use Snapshot for a
// durable handle.
func (t *PieceTree) View() *Snapshot { return &t.view }

// WriteTo writes the whole content to w.
func (t *PieceTree) WriteTo(w io.Writer) (int64, error) {
	return t.view.WriteTo(w)
}

// Close releases the current tree and the original store mapping.
// Outstanding snapshots keep their shared nodes alive but must not be
// read afterwards if the original store was file-backed.
func (t *PieceTree) Close() error {
	t.view.tree.release()
	t.view.tree = newTree()
	t.view.size = 0
	return t.view.orig.close()
}

// Len returns the snapshot's logical length in bytes.
func (s *Snapshot) Len() int64 { return s.size }

// Release drops the snapshot's hold on shared tree nodes. Forgetting to
// release never corrupts anything; it only makes later edits clone more.
func (s *Snapshot) Release() {
	s.tree.release()
	s.tree = tree{}
}

// readPiece resolves a piece to its backing bytes. The returned slice
// aliases the store and must not be modified.
func (s *Snapshot) readPiece(p Piece) []byte {
	switch p.Kind {
	case Add:
		return s.add.slice(p.Pos, p.Len)
	default:
		return s.orig.slice(p.Pos, p.Len)
	}
}

// WriteTo writes the snapshot content to w.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	var written int64
	err := func() error {
		var inner error
		s.tree.walk(func(_ int64, p Piece) bool {
			n, werr := w.Write(s.readPiece(p))
			written += int64(n)
			if werr != nil {
				inner = fmt.Errorf("write buffer content: %w", werr)
				return false
			}
			return true
		})
		return inner
	}()
	return written, err
}

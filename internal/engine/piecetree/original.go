package piecetree

import (
	"fmt"
	"io"
	"os"
)

// originalStore holds the immutable bytes the buffer started from.
// Content is either fully in memory or a read-only file mapping; both
// expose a flat byte slice so piece reads are plain slicing.
type originalStore struct {
	data   []byte
	mapped bool
	path   string
}

func newOriginalStore(data []byte) *originalStore {
	return &originalStore{data: data}
}

func originalFromReader(r io.Reader) (*originalStore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read original content: %w", err)
	}
	return &originalStore{data: data}, nil
}

// originalFromPath maps the file read-only when the platform supports
// it, otherwise loads it into memory.
func originalFromPath(path string) (*originalStore, error) {
	data, mapped, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &originalStore{data: data, mapped: mapped, path: path}, nil
}

func (o *originalStore) len() int64 { return int64(len(o.data)) }

func (o *originalStore) slice(pos, length int64) []byte {
	return o.data[pos : pos+length]
}

func (o *originalStore) filePath() string { return o.path }

// close releases the file mapping if one exists. In-memory stores are
// left to the garbage collector.
func (o *originalStore) close() error {
	if !o.mapped {
		return nil
	}
	err := unmapFile(o.data)
	o.data = nil
	o.mapped = false
	return err
}

func readWholeFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

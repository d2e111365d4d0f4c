//go:build unix

package piecetree

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps path read-only. Empty files fall back to an in-memory
// slice because zero-length mappings are invalid.
func mapFile(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, false, err
	}
	if fi.Size() == 0 {
		return nil, false, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		// Mapping can fail on exotic filesystems; reading still works.
		data, rerr := readWholeFile(path)
		return data, false, rerr
	}
	return data, true, nil
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}

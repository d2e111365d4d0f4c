//go:build !unix

package piecetree

func mapFile(path string) ([]byte, bool, error) {
	data, err := readWholeFile(path)
	return data, false, err
}

func unmapFile([]byte) error { return nil }

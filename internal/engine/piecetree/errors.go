package piecetree

import "errors"

// Errors returned by piece tree operations.
var (
	// ErrOutOfBounds indicates an offset outside the current logical length.
	ErrOutOfBounds = errors.New("offset out of bounds")

	// ErrStaleSnapshot indicates a snapshot whose backing stores are gone.
	ErrStaleSnapshot = errors.New("stale snapshot")

	// ErrOrphanedMark indicates a mark whose covering bytes were deleted.
	ErrOrphanedMark = errors.New("mark is orphaned")
)

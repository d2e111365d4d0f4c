package engine

import "errors"

// Errors returned by engine operations.
var (
	// ErrBufferNotFound indicates an unknown buffer ID.
	ErrBufferNotFound = errors.New("buffer not found")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine closed")

	// ErrReadOnly indicates a write to a read-only buffer.
	ErrReadOnly = errors.New("buffer is read-only")

	// ErrNoFilePath indicates a save on a buffer with no backing file.
	ErrNoFilePath = errors.New("buffer has no file path")
)

package lua

import (
	"errors"
	"fmt"
)

// Errors returned by state operations.
var (
	// ErrStateClosed indicates use of a closed state.
	ErrStateClosed = errors.New("lua state closed")

	// ErrTimeout indicates a script ran past the state deadline.
	ErrTimeout = errors.New("lua execution timed out")

	// ErrNoFunction indicates a Call target that is not defined.
	ErrNoFunction = errors.New("lua function not defined")
)

// ScriptError reports a script file that failed to load or run.
type ScriptError struct {
	Path string
	Err  error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua script %s: %v", e.Path, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

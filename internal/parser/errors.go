package parser

import "fmt"

// IncompleteError reports that the machine failed to match the whole
// subject. Longest is the furthest subject position any attempt
// reached, usable for best-effort highlighting.
type IncompleteError struct {
	Longest int64
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("parse incomplete: longest match ended at %d", e.Longest)
}

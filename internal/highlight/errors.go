package highlight

import "errors"

var (
	// ErrUnknownBuffer is returned for operations on a buffer that was
	// never opened or already closed.
	ErrUnknownBuffer = errors.New("highlight: unknown buffer")

	// ErrUnknownLanguage is returned when no grammar is registered for
	// a language.
	ErrUnknownLanguage = errors.New("highlight: unknown language")

	// ErrInjectionDepthExceeded is returned when nested language
	// injections exceed the configured recursion bound.
	ErrInjectionDepthExceeded = errors.New("highlight: injection depth exceeded")

	// ErrRegistryClosed is returned when using a closed registry.
	ErrRegistryClosed = errors.New("highlight: registry closed")
)

package engine

import "github.com/dshills/weft/internal/event"

// Option configures an Engine during creation.
type Option func(*Engine)

// WithBus sets the event bus that buffers publish lifecycle and edit
// events on. Without a bus nothing is published.
func WithBus(bus *event.Bus) Option {
	return func(e *Engine) {
		e.bus = bus
	}
}

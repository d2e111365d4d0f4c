package highlight

import (
	"context"
	"errors"

	"github.com/dshills/weft/internal/event"
)

// SubscribeBus routes buffer content events to the driver. Buffers the
// driver has not opened are ignored; a restore cannot be expressed as
// a splice, so it triggers a full refresh.
func (d *Driver) SubscribeBus(bus *event.Bus) (*event.Subscription, error) {
	return bus.SubscribeFunc("buffer.**", d.handleBusEvent)
}

func (d *Driver) handleBusEvent(_ context.Context, ev any) error {
	switch e := ev.(type) {
	case event.BufferContentInserted:
		return d.editKnown(e.Edit)
	case event.BufferContentDeleted:
		return d.editKnown(e.Edit)
	case event.BufferContentReplaced:
		return d.editKnown(e.Edit)
	case event.BufferRestored:
		if err := d.Refresh(e.BufferID); err != nil && !errors.Is(err, ErrUnknownBuffer) {
			return err
		}
	case event.BufferClosed:
		d.Close(e.BufferID)
	}
	return nil
}

func (d *Driver) editKnown(e event.Edit) error {
	err := d.HandleEdit(e.BufferID, e.Offset, e.Inserted, e.Deleted, e.Revision)
	if errors.Is(err, ErrUnknownBuffer) {
		return nil
	}
	return err
}

package event

import "github.com/google/uuid"

// Buffer event topics.
const (
	// TopicBufferCreated is published when a new buffer is created.
	TopicBufferCreated Topic = "buffer.created"

	// TopicBufferClosed is published when a buffer is closed.
	TopicBufferClosed Topic = "buffer.closed"

	// TopicBufferContentInserted is published when text is inserted into a buffer.
	TopicBufferContentInserted Topic = "buffer.content.inserted"

	// TopicBufferContentDeleted is published when text is deleted from a buffer.
	TopicBufferContentDeleted Topic = "buffer.content.deleted"

	// TopicBufferContentReplaced is published when text is replaced in a buffer.
	TopicBufferContentReplaced Topic = "buffer.content.replaced"

	// TopicBufferRestored is published when a buffer reverts to a snapshot.
	TopicBufferRestored Topic = "buffer.restored"

	// TopicBufferSaved is published when a buffer is written to disk.
	TopicBufferSaved Topic = "buffer.saved"
)

// Edit describes a single splice of a buffer: Deleted bytes removed at
// Offset, then Inserted bytes placed there. Revision is the buffer
// revision after the splice.
type Edit struct {
	// BufferID is the unique identifier of the buffer.
	BufferID uuid.UUID

	// Offset is the byte position of the splice.
	Offset int64

	// Inserted is the number of bytes inserted.
	Inserted int64

	// Deleted is the number of bytes removed.
	Deleted int64

	// Revision is the buffer revision after the edit.
	Revision uint64
}

// BufferContentInserted is published when text is inserted into a buffer.
type BufferContentInserted struct {
	Edit

	// Text is the inserted content.
	Text []byte
}

// EventTopic returns the topic for bus routing.
func (BufferContentInserted) EventTopic() Topic { return TopicBufferContentInserted }

// BufferContentDeleted is published when text is deleted from a buffer.
type BufferContentDeleted struct {
	Edit

	// Text is the removed content.
	Text []byte
}

// EventTopic returns the topic for bus routing.
func (BufferContentDeleted) EventTopic() Topic { return TopicBufferContentDeleted }

// BufferContentReplaced is published when a range is replaced in one
// revision step.
type BufferContentReplaced struct {
	Edit

	// Text is the replacement content.
	Text []byte
}

// EventTopic returns the topic for bus routing.
func (BufferContentReplaced) EventTopic() Topic { return TopicBufferContentReplaced }

// BufferCreated is published when a new buffer is created.
type BufferCreated struct {
	// BufferID is the unique identifier of the buffer.
	BufferID uuid.UUID

	// FilePath is the backing file path, or "" for in-memory buffers.
	FilePath string
}

// EventTopic returns the topic for bus routing.
func (BufferCreated) EventTopic() Topic { return TopicBufferCreated }

// BufferClosed is published when a buffer is closed.
type BufferClosed struct {
	// BufferID is the unique identifier of the buffer.
	BufferID uuid.UUID
}

// EventTopic returns the topic for bus routing.
func (BufferClosed) EventTopic() Topic { return TopicBufferClosed }

// BufferRestored is published when a buffer reverts to an earlier
// snapshot. Consumers cannot map the change to a splice and should
// re-read the whole buffer.
type BufferRestored struct {
	// BufferID is the unique identifier of the buffer.
	BufferID uuid.UUID

	// Revision is the buffer revision after the restore.
	Revision uint64
}

// EventTopic returns the topic for bus routing.
func (BufferRestored) EventTopic() Topic { return TopicBufferRestored }

// BufferSaved is published when a buffer is written to disk.
type BufferSaved struct {
	// BufferID is the unique identifier of the buffer.
	BufferID uuid.UUID

	// FilePath is the path written.
	FilePath string

	// Revision is the revision that was persisted.
	Revision uint64
}

// EventTopic returns the topic for bus routing.
func (BufferSaved) EventTopic() Topic { return TopicBufferSaved }

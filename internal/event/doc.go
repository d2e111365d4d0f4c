// Package event carries buffer change notifications between the
// editor core's components.
//
// Buffers publish, the highlight driver and Lua scripts subscribe, and
// neither side imports the other. Topics are dot-separated strings:
//
//	buffer.content.inserted    text was spliced into a buffer
//	buffer.restored            a buffer reverted to a snapshot
//	buffer.saved               a buffer was written to disk
//
// Subscription patterns match one segment with "*" and a whole tail
// with a trailing "**", so "buffer.**" receives every buffer event.
//
// Delivery is synchronous: handlers run in the publisher's goroutine,
// in subscription order. Handlers that need to do real work should
// hand it to a background task, which is what the highlight driver
// does. A panicking handler is converted to an error so one bad
// subscriber cannot take down the editing path.
package event

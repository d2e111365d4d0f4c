// Package engine is the buffer management facade. It owns the open
// buffers, serializes writers per buffer, and publishes edit events so
// the highlighter and other subscribers can track content.
//
// Each Buffer wraps a persistent piece tree. Readers work from
// snapshots and never block the writer; the writer bumps a revision
// counter on every splice so consumers can detect stale reads.
package engine

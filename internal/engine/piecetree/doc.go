// Package piecetree implements a persistent piece-tree text buffer.
//
// Content is described by pieces referencing two backing stores: an
// immutable original store holding the file bytes, and an append-only
// add store holding every inserted byte. The pieces live in a
// copy-on-write red-black tree ordered by logical byte offset, so the
// buffer content is the in-order concatenation of piece slices.
//
// Snapshots retain a tree root and are safe to read from any goroutine
// while a single writer keeps editing. Mutation clones only the nodes
// still shared with a live snapshot.
package piecetree

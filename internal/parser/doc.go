// Package parser compiles PEG grammars into bytecode and runs them
// over byte sources, producing capture trees for highlighting and
// completion.
//
// A grammar is compiled once into an immutable Program shared by any
// number of concurrent runs. Two engines execute programs: a bytecode
// interpreter with an explicit backtrack stack, and a closure-compiled
// engine built from the same grammar. Both produce identical capture
// trees, failure positions and longest-match reporting; selection is a
// runtime switch.
//
// Input is read through the Source interface one byte at a time, so
// parsing works directly over piece-tree snapshots without
// concatenating the buffer.
package parser

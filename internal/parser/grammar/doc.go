// Package grammar parses the textual PEG grammar language into rule
// trees ready for compilation.
//
// A grammar is a sequence of rules "name = expr;" over literals,
// character classes, ordered choice, repetition and look-ahead. Rules
// may carry annotations controlling capture output, and the
// @whitespaced annotation rewrites a rule to interleave the grammar's
// WHITESPACE rule between its elements. Parsing resolves forward
// references, validates annotations and rejects left-recursive rules.
package grammar

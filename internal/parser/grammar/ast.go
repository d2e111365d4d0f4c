package grammar

import (
	"strconv"
	"strings"
)

// Expr is a node of a rule body. The parser desugars "e*" into
// Choice(OneOrMore(e), Nothing) and "e?" into Choice(e, Nothing), so
// compilers only see the forms below.
type Expr interface {
	isExpr()
	String() string
}

// Choice is an ordered choice between alternatives.
type Choice struct {
	Alts []Expr
}

// Sequence matches its items in order.
type Sequence struct {
	Items []Expr
}

// OneOrMore matches its operand at least once.
type OneOrMore struct {
	Expr Expr
}

// FollowedBy is positive look-ahead; it consumes no input.
type FollowedBy struct {
	Expr Expr
}

// NotFollowedBy is negative look-ahead; it consumes no input.
type NotFollowedBy struct {
	Expr Expr
}

// Literal matches an exact byte sequence.
type Literal struct {
	Bytes []byte
}

// CharRange matches one UTF-8 scalar in the inclusive range [Lo, Hi].
type CharRange struct {
	Lo, Hi rune
}

// ByteRange matches one raw byte in the inclusive range [Lo, Hi].
type ByteRange struct {
	Lo, Hi byte
}

// Ref calls another rule by index.
type Ref struct {
	Index int
}

// Backref matches the bytes most recently captured by the referenced
// rule, byte for byte.
type Backref struct {
	Index int
}

// Nothing matches the empty string.
type Nothing struct{}

func (*Choice) isExpr()        {}
func (*Sequence) isExpr()      {}
func (*OneOrMore) isExpr()     {}
func (*FollowedBy) isExpr()    {}
func (*NotFollowedBy) isExpr() {}
func (*Literal) isExpr()       {}
func (*CharRange) isExpr()     {}
func (*ByteRange) isExpr()     {}
func (*Ref) isExpr()           {}
func (*Backref) isExpr()       {}
func (*Nothing) isExpr()       {}

func (e *Choice) String() string {
	parts := make([]string, len(e.Alts))
	for i, a := range e.Alts {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, " / ") + ")"
}

func (e *Sequence) String() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (e *OneOrMore) String() string     { return e.Expr.String() + "+" }
func (e *FollowedBy) String() string    { return "&" + e.Expr.String() }
func (e *NotFollowedBy) String() string { return "!" + e.Expr.String() }
func (e *Literal) String() string       { return "\"" + string(e.Bytes) + "\"" }

func (e *CharRange) String() string {
	if e.Lo == e.Hi {
		return string(e.Lo)
	}
	return "[" + string(e.Lo) + ".." + string(e.Hi) + "]"
}

func (e *ByteRange) String() string {
	return "[\\x..]"
}

func (e *Ref) String() string     { return "ref(" + strconv.Itoa(e.Index) + ")" }
func (e *Backref) String() string { return "backref(" + strconv.Itoa(e.Index) + ")" }
func (e *Nothing) String() string { return "()" }

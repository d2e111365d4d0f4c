package parser

import (
	"context"
	"io"

	"github.com/dshills/weft/internal/parser/grammar"
)

// Engine selects how a parser executes its program.
type Engine int

const (
	// EngineInterpreter runs the bytecode interpreter.
	EngineInterpreter Engine = iota
	// EngineCompiled runs the closure-compiled engine.
	EngineCompiled
)

func (e Engine) String() string {
	switch e {
	case EngineInterpreter:
		return "interpreter"
	case EngineCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// Parser is a compiled grammar ready to run. It is immutable after
// construction apart from the engine selection and safe for
// concurrent use.
type Parser struct {
	grammar *grammar.Grammar
	prog    *Program
	closure *closureProgram
	engine  Engine
}

// New reads grammar source and compiles it.
func New(r io.Reader) (*Parser, error) {
	g, err := grammar.Parse(r)
	if err != nil {
		return nil, err
	}
	return FromGrammar(g)
}

// NewString is New over in-memory grammar source.
func NewString(src string) (*Parser, error) {
	g, err := grammar.ParseString(src)
	if err != nil {
		return nil, err
	}
	return FromGrammar(g)
}

// FromGrammar compiles an already-parsed grammar.
func FromGrammar(g *grammar.Grammar) (*Parser, error) {
	prog, err := Compile(g)
	if err != nil {
		return nil, err
	}
	return &Parser{
		grammar: g,
		prog:    prog,
		closure: compileClosures(g, prog),
	}, nil
}

// Grammar returns the parsed grammar the parser was built from.
func (p *Parser) Grammar() *grammar.Grammar { return p.grammar }

// Program returns the compiled bytecode, for inspection.
func (p *Parser) Program() *Program { return p.prog }

// SetEngine switches between the interpreter and the compiled engine.
func (p *Parser) SetEngine(e Engine) { p.engine = e }

// Parse matches the whole subject from the start. On failure it
// returns an IncompleteError carrying the furthest subject position
// reached.
func (p *Parser) Parse(ctx context.Context, src Source) (*CaptureTree, error) {
	if p.engine == EngineCompiled {
		return p.closure.parse(ctx, src)
	}

	m := newMachine(p.prog, src)
	end, matched, err := m.run(ctx, 0)
	if err != nil {
		return nil, err
	}
	if !matched || end != m.n {
		return nil, &IncompleteError{Longest: m.longest}
	}
	return foldCaptures(p.prog, src, m.caps), nil
}

// ParseBytes is Parse over a byte slice.
func (p *Parser) ParseBytes(ctx context.Context, b []byte) (*CaptureTree, error) {
	return p.Parse(ctx, Bytes(b))
}

// Scan repeatedly matches the grammar anywhere in the subject,
// advancing one byte past failures and collecting captures from every
// match. Partial-match grammars use this mode for highlighting.
func (p *Parser) Scan(ctx context.Context, src Source) (*CaptureTree, error) {
	if p.engine == EngineCompiled {
		return p.closure.scan(ctx, src)
	}

	m := newMachine(p.prog, src)
	pos := int64(0)
	for pos < m.n {
		end, matched, err := m.run(ctx, pos)
		if err != nil {
			return nil, err
		}
		switch {
		case !matched:
			pos++
		case end > pos:
			pos = end
		default:
			pos++
		}
	}
	return foldCaptures(p.prog, src, m.caps), nil
}

package grammar

import (
	"io"
	"unicode/utf8"
)

// Operator binding, loosest to tightest:
//
//	e1 / e2    ordered choice
//	e1 e2      sequence
//	&e, !e     look-ahead
//	e* e+ e?   repetition
//	(e)        grouping

// Parse reads grammar source and returns the validated rule set.
func Parse(r io.Reader) (*Grammar, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseString(string(src))
}

// ParseString is Parse over in-memory source.
func ParseString(src string) (*Grammar, error) {
	p := &parser{lex: newLexer(src)}
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	p.tok = tok
	return p.parse()
}

type parser struct {
	lex *lexer
	tok token

	rules   []Rule
	indices map[string]int
	// defined distinguishes parsed rules from forward-reference
	// placeholders still waiting for a body.
	defined map[string]bool
}

func (p *parser) parse() (*Grammar, error) {
	p.indices = make(map[string]int)
	p.defined = make(map[string]bool)

	for p.tok.kind != tokEOF {
		rule, err := p.rule()
		if err != nil {
			return nil, err
		}
		p.defined[rule.Name] = true

		if i, ok := p.indices[rule.Name]; ok {
			p.rules[i] = rule
		} else {
			p.indices[rule.Name] = len(p.rules)
			p.rules = append(p.rules, rule)
		}
	}

	if len(p.rules) == 0 {
		return nil, errAt(Syntax, p.tok.pos, "grammar has no rules")
	}
	if err := p.applyWhitespaced(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	g := &Grammar{Rules: p.rules, indices: p.indices}
	if err := checkLeftRecursion(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *parser) validate() error {
	for _, r := range p.rules {
		if !p.defined[r.Name] {
			return errAt(UnknownRule, p.tok.pos, "rule %q referenced but never defined", r.Name)
		}
	}
	return nil
}

// advance moves to the next token, returning the current one.
func (p *parser) advance() (token, error) {
	cur := p.tok
	next, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.tok = next
	return cur, nil
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, errAt(Syntax, p.tok.pos, "expected %s, got %s", kind, p.tok.kind)
	}
	return p.advance()
}

func (p *parser) rule() (Rule, error) {
	anns, err := p.annotations()
	if err != nil {
		return Rule{}, err
	}
	name, err := p.expect(tokIdent)
	if err != nil {
		return Rule{}, err
	}
	// Reserve the rule's index before its body, so references in the
	// body to later rules do not take the slot ahead of it.
	p.refRule(name.text)
	if _, err := p.expect(tokAssign); err != nil {
		return Rule{}, err
	}
	expr, err := p.choice()
	if err != nil {
		return Rule{}, err
	}
	if _, err := p.expect(tokSemi); err != nil {
		return Rule{}, err
	}
	return Rule{Name: name.text, Expr: expr, Annotations: anns}, nil
}

func (p *parser) annotations() ([]Annotation, error) {
	var anns []Annotation
	for p.tok.kind == tokAt {
		at, err := p.advance()
		if err != nil {
			return nil, err
		}
		arg, err := p.annotationArg()
		if err != nil {
			return nil, err
		}

		var kind AnnotationKind
		switch at.text {
		case "show":
			kind = Show
		case "highlight":
			kind = Highlight
		case "completion":
			kind = Completion
		case "static-completion":
			kind = StaticCompletion
		case "whitespaced":
			kind = Whitespaced
		case "injection-language":
			kind = InjectionLanguage
		case "inject":
			kind = Inject
		default:
			return nil, errAt(BadAnnotation, at.pos, "unknown annotation @%s", at.text)
		}
		anns = append(anns, Annotation{Kind: kind, Arg: arg})
	}
	return anns, nil
}

func (p *parser) annotationArg() (string, error) {
	if p.tok.kind != tokLParen {
		return "", nil
	}
	if _, err := p.advance(); err != nil {
		return "", err
	}
	arg, err := p.expect(tokIdent)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(tokRParen); err != nil {
		return "", err
	}
	return arg.text, nil
}

func (p *parser) choice() (Expr, error) {
	var alts []Expr
	for {
		seq, err := p.sequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, seq)
		if p.tok.kind != tokSlash {
			break
		}
		if _, err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Choice{Alts: alts}, nil
}

func startsClause(kind tokenKind) bool {
	switch kind {
	case tokAmp, tokBang, tokLParen, tokLiteral, tokClass, tokDot, tokIdent, tokAt:
		return true
	}
	return false
}

func (p *parser) sequence() (Expr, error) {
	var items []Expr
	for startsClause(p.tok.kind) {
		clause, err := p.clause()
		if err != nil {
			return nil, err
		}
		items = append(items, clause)
	}
	if len(items) == 0 {
		return nil, errAt(Syntax, p.tok.pos, "expected expression, got %s", p.tok.kind)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &Sequence{Items: items}, nil
}

func (p *parser) clause() (Expr, error) {
	var expr Expr
	switch p.tok.kind {
	case tokAmp:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.clause()
		if err != nil {
			return nil, err
		}
		expr = &FollowedBy{Expr: inner}
	case tokBang:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.clause()
		if err != nil {
			return nil, err
		}
		expr = &NotFollowedBy{Expr: inner}
	case tokLParen:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.choice()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		expr = inner
	case tokLiteral:
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		expr = &Literal{Bytes: tok.lit}
	case tokClass:
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		e, err := classToExpr(tok.class, tok.pos)
		if err != nil {
			return nil, err
		}
		expr = e
	case tokDot:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		expr = &CharRange{Lo: 0, Hi: utf8.MaxRune}
	case tokIdent:
		tok, err := p.advance()
		if err != nil {
			return nil, err
		}
		expr = &Ref{Index: p.refRule(tok.text)}
	case tokAt:
		at, err := p.advance()
		if err != nil {
			return nil, err
		}
		if at.text != "backref" {
			return nil, errAt(BadAnnotation, at.pos, "unknown inline annotation @%s", at.text)
		}
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		name, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		expr = &Backref{Index: p.refRule(name.text)}
	default:
		return nil, errAt(Syntax, p.tok.pos, "unexpected %s in expression", p.tok.kind)
	}

	switch p.tok.kind {
	case tokStar:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		expr = &Choice{Alts: []Expr{&OneOrMore{Expr: expr}, &Nothing{}}}
	case tokPlus:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		expr = &OneOrMore{Expr: expr}
	case tokQuestion:
		if _, err := p.advance(); err != nil {
			return nil, err
		}
		expr = &Choice{Alts: []Expr{expr, &Nothing{}}}
	}
	return expr, nil
}

// refRule returns the index of the named rule, creating a placeholder
// for references to rules defined later.
func (p *parser) refRule(name string) int {
	if i, ok := p.indices[name]; ok {
		return i
	}
	i := len(p.rules)
	p.indices[name] = i
	p.rules = append(p.rules, Rule{Name: name, Expr: &Nothing{}})
	return i
}

// classToExpr lowers a character class into a choice of ranges.
// Negation complements the class over the scalar space for \u classes
// and over the byte space for \x classes.
func classToExpr(class classExpr, pos Position) (Expr, error) {
	byteForm := class.items[0].byteForm
	for _, it := range class.items {
		if it.byteForm != byteForm {
			if class.negated {
				return nil, errAt(BadClass, pos, "negated class mixes byte and scalar members")
			}
		}
	}

	items := class.items
	if class.negated {
		max := rune(utf8.MaxRune)
		if byteForm {
			max = 0xff
		}
		items = complementItems(items, max, byteForm)
		if len(items) == 0 {
			return nil, errAt(BadClass, pos, "negated class matches nothing")
		}
	}

	alts := make([]Expr, 0, len(items))
	for _, it := range items {
		alts = append(alts, itemExpr(it))
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Choice{Alts: alts}, nil
}

func itemExpr(it classItem) Expr {
	if it.byteForm {
		return &ByteRange{Lo: byte(it.lo), Hi: byte(it.hi)}
	}
	if it.lo == it.hi {
		return &Literal{Bytes: utf8.AppendRune(nil, it.lo)}
	}
	return &CharRange{Lo: it.lo, Hi: it.hi}
}

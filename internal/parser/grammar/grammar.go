package grammar

// AnnotationKind enumerates the rule-level and inline annotations the
// grammar language accepts.
type AnnotationKind int

const (
	// Show includes the rule in capture output.
	Show AnnotationKind = iota
	// Highlight tags the rule's captures for rendering. The optional
	// argument overrides the tag name, which defaults to the rule name.
	Highlight
	// Completion marks the rule's captures as completion candidates.
	Completion
	// StaticCompletion marks the rule as a fixed completion source.
	StaticCompletion
	// Whitespaced interleaves the WHITESPACE rule between the rule's
	// elements.
	Whitespaced
	// InjectionLanguage marks the rule's capture as naming the language
	// of an enclosing injection region.
	InjectionLanguage
	// Inject marks the rule's capture as a region to re-parse with
	// another grammar. The optional argument fixes the language;
	// without it, the language comes from an @injection-language
	// capture inside the region.
	Inject
)

// Annotation is a parsed rule annotation, with its argument when the
// annotation form takes one.
type Annotation struct {
	Kind AnnotationKind
	Arg  string
}

// Rule is a named grammar rule.
type Rule struct {
	Name        string
	Expr        Expr
	Annotations []Annotation
}

// Annotated reports whether the rule carries the given annotation.
func (r *Rule) Annotated(kind AnnotationKind) bool {
	_, ok := r.Annotation(kind)
	return ok
}

// Annotation returns the rule's annotation of the given kind.
func (r *Rule) Annotation(kind AnnotationKind) (Annotation, bool) {
	for _, a := range r.Annotations {
		if a.Kind == kind {
			return a, true
		}
	}
	return Annotation{}, false
}

// HighlightTag returns the rendering tag for the rule's captures, or
// false when the rule is not highlighted.
func (r *Rule) HighlightTag() (string, bool) {
	a, ok := r.Annotation(Highlight)
	if !ok {
		return "", false
	}
	if a.Arg != "" {
		return a.Arg, true
	}
	return r.Name, true
}

// Captured reports whether the rule produces capture records.
func (r *Rule) Captured() bool {
	for _, a := range r.Annotations {
		switch a.Kind {
		case Show, Highlight, Completion, StaticCompletion, InjectionLanguage, Inject:
			return true
		}
	}
	return false
}

// Grammar is a parsed and validated rule set. The first rule is the
// entry point.
type Grammar struct {
	Rules []Rule

	indices map[string]int
}

// RuleIndex returns the index of the named rule.
func (g *Grammar) RuleIndex(name string) (int, bool) {
	i, ok := g.indices[name]
	return i, ok
}

// Name returns the rule name for an index, for diagnostics and capture
// output.
func (g *Grammar) Name(index int) string {
	return g.Rules[index].Name
}

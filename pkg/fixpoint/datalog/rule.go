package datalog

import (
	"fmt"
	"strings"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// LiteralKind distinguishes the body literals a rule may contain.
type LiteralKind int

const (
	// Positive matches an atom against the current fact set.
	Positive LiteralKind = iota
	// Negated succeeds when the ground atom is absent (negation as failure).
	Negated
	// Inequal succeeds when its two terms denote different constants.
	Inequal
	// Equal succeeds when its two terms denote the same constant.
	Equal
)

func (k LiteralKind) String() string {
	switch k {
	case Positive:
		return "positive"
	case Negated:
		return "negated"
	case Inequal:
		return "inequal"
	case Equal:
		return "equal"
	}
	return fmt.Sprintf("LiteralKind(%d)", int(k))
}

// Literal is one conjunct of a rule body. Atom is used by Positive and
// Negated literals, Left and Right by constraints.
type Literal struct {
	Kind  LiteralKind
	Atom  Atom
	Left  Term
	Right Term
}

// Pos wraps an atom as a positive literal.
func Pos(a Atom) Literal { return Literal{Kind: Positive, Atom: a} }

// Not wraps an atom as a negated literal.
func Not(a Atom) Literal { return Literal{Kind: Negated, Atom: a} }

// Neq is the constraint left != right.
func Neq(left, right any) Literal {
	return Literal{Kind: Inequal, Left: toTerm(left), Right: toTerm(right)}
}

// Eq is the constraint left == right.
func Eq(left, right any) Literal {
	return Literal{Kind: Equal, Left: toTerm(left), Right: toTerm(right)}
}

// terms returns every term the literal mentions.
func (l Literal) terms() []Term {
	switch l.Kind {
	case Positive, Negated:
		return l.Atom.Args
	default:
		return []Term{l.Left, l.Right}
	}
}

func (l Literal) String() string {
	switch l.Kind {
	case Positive:
		return l.Atom.String()
	case Negated:
		return "not " + l.Atom.String()
	case Inequal:
		return l.Left.String() + " != " + l.Right.String()
	case Equal:
		return l.Left.String() + " == " + l.Right.String()
	}
	return l.Kind.String()
}

// Rule is a Horn clause with an optional stratified-negation body:
// Head holds whenever every literal of Body holds.
type Rule struct {
	Head Atom
	Body []Literal
}

// NewRule builds a rule value.
func NewRule(head Atom, body ...Literal) Rule {
	return Rule{Head: head, Body: body}
}

func (r Rule) String() string {
	if len(r.Body) == 0 {
		return r.Head.String() + "."
	}
	parts := make([]string, len(r.Body))
	for i, l := range r.Body {
		parts[i] = l.String()
	}
	return r.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}

// checkSafety enforces range restriction: every variable of the head, of a
// negated literal or of a constraint must occur in a positive body literal.
func (r Rule) checkSafety() error {
	bound := make(map[Var]bool)
	for _, l := range r.Body {
		if l.Kind != Positive {
			continue
		}
		for _, t := range l.Atom.Args {
			if v, ok := t.(Var); ok {
				bound[v] = true
			}
		}
	}

	check := func(where string, terms []Term) error {
		for _, t := range terms {
			if v, ok := t.(Var); ok && !bound[v] {
				return fmt.Errorf("%w: variable %s in %s does not occur in a positive body literal: %s",
					internalerr.ErrUnsafeRule, v, where, r)
			}
		}
		return nil
	}

	if err := check("the head", r.Head.Args); err != nil {
		return err
	}
	for _, l := range r.Body {
		if l.Kind == Positive {
			continue
		}
		if err := check(l.String(), l.terms()); err != nil {
			return err
		}
	}
	return nil
}

package datalog

import "strings"

// Atom is a predicate applied to an ordered list of terms, e.g.
// parent(X, "William").
type Atom struct {
	Pred string
	Args []Term
}

// A builds an atom. Arguments that are not already a Term become constants,
// so A("parent", V("X"), "William") reads like the atom it builds.
func A(pred string, args ...any) Atom {
	terms := make([]Term, len(args))
	for i, arg := range args {
		terms[i] = toTerm(arg)
	}
	return Atom{Pred: pred, Args: terms}
}

// IsGround reports whether the atom contains no variables.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if _, ok := t.(Var); ok {
			return false
		}
	}
	return true
}

// Vars returns the distinct variables of the atom in first-occurrence order.
func (a Atom) Vars() []Var {
	var out []Var
	seen := make(map[Var]bool)
	for _, t := range a.Args {
		if v, ok := t.(Var); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func (a Atom) String() string {
	var b strings.Builder
	b.WriteString(a.Pred)
	b.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteByte(')')
	return b.String()
}

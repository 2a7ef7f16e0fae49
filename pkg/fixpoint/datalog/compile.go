package datalog

import (
	"fmt"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// slotTerm is a term resolved against a rule's variable slots. A variable
// occupies slot >= 0; a constant has slot -1 and carries its interned id.
type slotTerm struct {
	slot int
	id   int
	bind bool // first occurrence in evaluation order: store instead of compare
}

func (t slotTerm) isConst() bool { return t.slot < 0 }

type compiledAtom struct {
	pred string
	args []slotTerm
	// probe is the first column whose value is known before the atom is
	// matched, or -1 when the atom must be scanned.
	probe int
}

// check is a negated literal or a constraint, tested once every variable it
// mentions is bound.
type check struct {
	kind        LiteralKind
	atom        compiledAtom
	left, right slotTerm
}

type compiledRule struct {
	src   Rule
	head  compiledAtom
	pos   []compiledAtom
	after [][]check // after[i+1] runs once pos[i] matched; after[0] before any
	nvars int
}

// compileRule resolves variables to slots and constants to interned ids.
// Positive literals keep their body order.
func compileRule(r Rule, syms *symbols) (*compiledRule, error) {
	slots := make(map[Var]int)
	bound := make(map[Var]bool)
	firstBound := make(map[Var]int) // variable -> positive literal index that binds it

	resolve := func(t Term, at int, binding bool) (slotTerm, error) {
		switch x := t.(type) {
		case Var:
			s, ok := slots[x]
			if !ok {
				s = len(slots)
				slots[x] = s
			}
			st := slotTerm{slot: s}
			if binding && !bound[x] {
				bound[x] = true
				firstBound[x] = at
				st.bind = true
			}
			return st, nil
		case Const:
			v, err := Normalize(x.Value)
			if err != nil {
				return slotTerm{}, err
			}
			return slotTerm{slot: -1, id: syms.intern(v)}, nil
		case nil:
			return slotTerm{}, fmt.Errorf("%w: nil term in %s", internalerr.ErrInvalidInput, r)
		}
		return slotTerm{}, fmt.Errorf("%w: unsupported term %T in %s", internalerr.ErrInvalidInput, t, r)
	}

	cr := &compiledRule{src: r}
	for _, l := range r.Body {
		if l.Kind != Positive {
			continue
		}
		at := len(cr.pos)
		ca := compiledAtom{pred: l.Atom.Pred, probe: -1}
		for col, t := range l.Atom.Args {
			st, err := resolve(t, at, true)
			if err != nil {
				return nil, err
			}
			if ca.probe < 0 && !st.bind && (st.isConst() || firstBoundBefore(t, firstBound, at)) {
				ca.probe = col
			}
			ca.args = append(ca.args, st)
		}
		cr.pos = append(cr.pos, ca)
	}

	cr.after = make([][]check, len(cr.pos)+1)
	for _, l := range r.Body {
		if l.Kind == Positive {
			continue
		}
		c := check{kind: l.Kind}
		ready := -1
		for _, t := range l.terms() {
			if v, ok := t.(Var); ok {
				ready = max(ready, firstBound[v])
			}
		}
		if l.Kind == Negated {
			c.atom = compiledAtom{pred: l.Atom.Pred, probe: -1}
			for _, t := range l.Atom.Args {
				st, err := resolve(t, ready, false)
				if err != nil {
					return nil, err
				}
				c.atom.args = append(c.atom.args, st)
			}
		} else {
			var err error
			if c.left, err = resolve(l.Left, ready, false); err != nil {
				return nil, err
			}
			if c.right, err = resolve(l.Right, ready, false); err != nil {
				return nil, err
			}
		}
		cr.after[ready+1] = append(cr.after[ready+1], c)
	}

	cr.head = compiledAtom{pred: r.Head.Pred, probe: -1}
	for _, t := range r.Head.Args {
		st, err := resolve(t, len(cr.pos), false)
		if err != nil {
			return nil, err
		}
		cr.head.args = append(cr.head.args, st)
	}
	cr.nvars = len(slots)
	return cr, nil
}

// firstBoundBefore reports whether t is a variable bound by an earlier
// positive literal than at.
func firstBoundBefore(t Term, firstBound map[Var]int, at int) bool {
	v, ok := t.(Var)
	if !ok {
		return false
	}
	i, ok := firstBound[v]
	return ok && i < at
}

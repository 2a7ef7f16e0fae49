package datalog

import (
	"fmt"
	"iter"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// Answer is the result of a query: the bindings of its free variables that
// turn the query atom into a derived fact. It reads the fact set that was
// current when the query ran.
type Answer struct {
	vars  []Var
	rel   *relation
	n     int
	args  []slotTerm
	probe int
	empty bool
	syms  *symbols
}

// Query solves the session if needed and matches q against the fact set.
// Constants the session has never seen simply match nothing.
func (s *Session) Query(q Atom) (*Answer, error) {
	if _, err := s.relationFor(q.Pred, len(q.Args)); err != nil {
		return nil, fmt.Errorf("query %s: %w", q, err)
	}
	if err := s.Solve(); err != nil {
		return nil, err
	}

	rel := s.solved[q.Pred]
	ans := &Answer{rel: rel, n: rel.len(), probe: -1, syms: s.syms}
	slots := make(map[Var]int)
	for col, t := range q.Args {
		switch x := t.(type) {
		case Var:
			slot, ok := slots[x]
			if !ok {
				slot = len(ans.vars)
				slots[x] = slot
				ans.vars = append(ans.vars, x)
			}
			ans.args = append(ans.args, slotTerm{slot: slot, bind: !ok})
		case Const:
			v, err := Normalize(x.Value)
			if err != nil {
				return nil, fmt.Errorf("query %s: %w", q, err)
			}
			id, ok := s.syms.lookup(v)
			if !ok {
				ans.empty = true
			}
			if ans.probe < 0 {
				ans.probe = col
			}
			ans.args = append(ans.args, slotTerm{slot: -1, id: id})
		default:
			return nil, fmt.Errorf("%w: query %s has an unsupported term %T", internalerr.ErrInvalidInput, q, t)
		}
	}
	return ans, nil
}

// Vars returns the free variables of the query in first-occurrence order;
// every binding lists values in this order.
func (a *Answer) Vars() []Var { return a.vars }

// All yields each binding once. The sequence is lazy, can be ranged over
// any number of times, and is deterministic for a given program.
func (a *Answer) All() iter.Seq[[]any] {
	return func(yield func([]any) bool) {
		if a.empty {
			return
		}
		b := make([]int, len(a.vars))
		match := func(pos int) bool {
			tup := a.rel.tuples[pos]
			for col, arg := range a.args {
				switch {
				case arg.isConst():
					if tup[col] != arg.id {
						return false
					}
				case arg.bind:
					b[arg.slot] = tup[col]
				case b[arg.slot] != tup[col]:
					return false
				}
			}
			return true
		}

		if a.probe >= 0 {
			for _, pos := range (span{0, a.n}).positions(a.rel.lookup(a.probe, a.args[a.probe].id)) {
				if match(pos) && !yield(a.decode(b)) {
					return
				}
			}
			return
		}
		for pos := 0; pos < a.n; pos++ {
			if match(pos) && !yield(a.decode(b)) {
				return
			}
		}
	}
}

// Collect gathers every binding into a slice.
func (a *Answer) Collect() [][]any {
	var out [][]any
	for row := range a.All() {
		out = append(out, row)
	}
	return out
}

func (a *Answer) decode(b []int) []any {
	out := make([]any, len(b))
	for i, id := range b {
		out[i] = a.syms.value(id)
	}
	return out
}

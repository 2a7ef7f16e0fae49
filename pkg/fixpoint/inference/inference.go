package inference

import (
	"fmt"
	"sort"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
)

// Engine provides rule-based reasoning over declared predicates.
// The exercises and the facade only talk to this interface, so an evaluator
// with other internals can be swapped in.
type Engine interface {
	// Declare registers a predicate with a fixed arity
	Declare(name string, arity int) error

	// Declared reports the arity of a declared predicate
	Declared(name string) (int, bool)

	// AssertFact adds a ground fact to the knowledge base
	// Example: AssertFact("parent", "Elizabeth", "Charles")
	AssertFact(name string, values ...any) error

	// AddRule registers a Horn clause, possibly recursive or negated
	AddRule(r datalog.Rule) error

	// Solve evaluates the rules to a fixpoint
	Solve() error

	// Query returns every binding of the free variables of q
	Query(q datalog.Atom) (*datalog.Answer, error)
}

var _ Engine = (*datalog.Session)(nil)

// Fact represents a basic assertion
type Fact struct {
	Pred   string
	Values []any
}

// F builds a Fact.
func F(pred string, values ...any) Fact {
	return Fact{Pred: pred, Values: values}
}

// DeclareAll declares predicates in name order.
func DeclareAll(e Engine, arities map[string]int) error {
	names := make([]string, 0, len(arities))
	for name := range arities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.Declare(name, arities[name]); err != nil {
			return err
		}
	}
	return nil
}

// AssertAll asserts facts in order and stops at the first failure.
func AssertAll(e Engine, facts []Fact) error {
	for _, f := range facts {
		if err := e.AssertFact(f.Pred, f.Values...); err != nil {
			return fmt.Errorf("assert %s: %w", f.Pred, err)
		}
	}
	return nil
}

// AddRules registers rules in order and stops at the first failure.
func AddRules(e Engine, rules []datalog.Rule) error {
	for _, r := range rules {
		if err := e.AddRule(r); err != nil {
			return err
		}
	}
	return nil
}

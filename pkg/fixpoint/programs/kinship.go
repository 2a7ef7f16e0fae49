package programs

import (
	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/inference"
)

var (
	x = datalog.V("X")
	y = datalog.V("Y")
	z = datalog.V("Z")
)

// kinshipPredicates in declaration order; base relations first.
var kinshipPredicates = []struct {
	name  string
	arity int
}{
	{"parent", 2}, {"spouse", 2}, {"male", 1},
	{"person", 1}, {"female", 1},
	{"grandchild", 2}, {"grandparent", 2}, {"greatgrandparent", 2},
	{"ancestor", 2}, {"sibling", 2}, {"brother", 2}, {"sister", 2},
	{"daughter", 2}, {"son", 2}, {"first_cousin", 2},
	{"brother_in_law", 2}, {"sister_in_law", 2}, {"aunt", 2}, {"uncle", 2},
}

// KinshipRules are the family relations over parent, spouse and male.
// female is the complement of male within the people that occur in parent
// or spouse facts.
func KinshipRules() []datalog.Rule {
	r := datalog.NewRule
	pos := func(pred string, args ...any) datalog.Literal { return datalog.Pos(datalog.A(pred, args...)) }
	not := func(pred string, args ...any) datalog.Literal { return datalog.Not(datalog.A(pred, args...)) }
	head := datalog.A

	return []datalog.Rule{
		r(head("spouse", x, y), pos("spouse", y, x)),
		r(head("parent", x, y), pos("parent", z, y), pos("spouse", x, z)),

		r(head("person", x), pos("parent", x, y)),
		r(head("person", y), pos("parent", x, y)),
		r(head("person", x), pos("spouse", x, y)),
		r(head("female", x), pos("person", x), not("male", x)),

		r(head("grandchild", x, y), pos("parent", y, z), pos("parent", z, x)),
		r(head("grandparent", x, y), pos("grandchild", y, x)),
		r(head("greatgrandparent", x, y), pos("grandparent", x, z), pos("parent", z, y)),
		r(head("ancestor", x, y), pos("parent", x, y)),
		r(head("ancestor", x, y), pos("parent", x, z), pos("ancestor", z, y)),
		r(head("sibling", x, y), pos("parent", z, x), pos("parent", z, y), datalog.Neq(x, y)),
		r(head("brother", x, y), pos("sibling", x, y), pos("male", x)),
		r(head("sister", x, y), pos("sibling", x, y), pos("female", x)),
		r(head("daughter", x, y), pos("parent", y, x), pos("female", x)),
		r(head("son", x, y), pos("parent", y, x), pos("male", x)),
		r(head("first_cousin", x, y),
			pos("grandparent", z, x), pos("grandparent", z, y),
			not("sibling", x, y), datalog.Neq(x, y)),
		r(head("brother_in_law", x, y), pos("spouse", z, y), pos("brother", x, z)),
		r(head("sister_in_law", x, y), pos("spouse", z, y), pos("sister", x, z)),
		r(head("aunt", x, y), pos("parent", z, y), pos("sister", x, z)),
		r(head("uncle", x, y), pos("parent", z, y), pos("brother", x, z)),
	}
}

// KinshipFacts is the royal family tree.
func KinshipFacts() []inference.Fact {
	facts := []inference.Fact{
		inference.F("parent", "Diana", "William"),
		inference.F("parent", "Diana", "Harry"),
		inference.F("parent", "Anne", "Peter"),
		inference.F("parent", "Anne", "Zara"),
		inference.F("parent", "Andrew", "Beatrice"),
		inference.F("parent", "Andrew", "Eugenie"),
		inference.F("parent", "Edward", "Louise"),
		inference.F("parent", "Edward", "James"),
		inference.F("parent", "Spencer", "Diana"),
		inference.F("parent", "Elizabeth", "Charles"),
		inference.F("parent", "Elizabeth", "Anne"),
		inference.F("parent", "Elizabeth", "Andrew"),
		inference.F("parent", "Elizabeth", "Edward"),
		inference.F("parent", "George", "Elizabeth"),
		inference.F("parent", "George", "Margaret"),

		inference.F("spouse", "Diana", "Charles"),
		inference.F("spouse", "Anne", "Mark"),
		inference.F("spouse", "Andrew", "Sarah"),
		inference.F("spouse", "Edward", "Sophie"),
		inference.F("spouse", "Spencer", "Kydd"),
		inference.F("spouse", "Elizabeth", "Philip"),
		inference.F("spouse", "George", "Mum"),
	}
	for _, m := range []string{
		"William", "Harry", "Peter", "James", "Charles", "Mark",
		"Andrew", "Edward", "Spencer", "Philip", "George",
	} {
		facts = append(facts, inference.F("male", m))
	}
	return facts
}

// Kinship declares the family predicates, installs KinshipRules and asserts
// KinshipFacts.
func Kinship(e inference.Engine) error {
	for _, p := range kinshipPredicates {
		if err := e.Declare(p.name, p.arity); err != nil {
			return err
		}
	}
	if err := inference.AddRules(e, KinshipRules()); err != nil {
		return err
	}
	return inference.AssertAll(e, KinshipFacts())
}

// KinshipQueries are the four family-tree questions.
func KinshipQueries() []Question {
	return []Question{
		{Label: "Elizabeth's grandchildren", Atom: datalog.A("grandchild", x, "Elizabeth")},
		{Label: "Diana's brothers-in-law", Atom: datalog.A("brother_in_law", x, "Diana")},
		{Label: "Zara's great-grandparents", Atom: datalog.A("greatgrandparent", x, "Zara")},
		{Label: "Eugenie's ancestors", Atom: datalog.A("ancestor", x, "Eugenie")},
	}
}

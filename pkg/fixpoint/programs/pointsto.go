package programs

import (
	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/inference"
)

// Points-to variables: V and W are program variables, H and G heap
// objects, F a field, T a type, S a call site, M a method, I a parameter
// index, N a method name and U a returned variable.
var (
	vV = datalog.V("V")
	vW = datalog.V("W")
	vH = datalog.V("H")
	vG = datalog.V("G")
	vF = datalog.V("F")
	vT = datalog.V("T")
	vS = datalog.V("S")
	vM = datalog.V("M")
	vI = datalog.V("I")
	vN = datalog.V("N")
	vU = datalog.V("U")
)

// PointsToArities are the relations of the intraprocedural analysis:
//
//	create(H, T, V)  statement H: T V = new T()
//	copy(V, W)       statement V = W
//	store(V, F, W)   statement V.F = W
//	load(V, W, F)    statement V = W.F
var PointsToArities = map[string]int{
	"create": 3, "copy": 2, "store": 3, "load": 3,
	"pts": 2, "hpts": 3,
}

// CallGraphArities are the additional relations of the interprocedural
// analysis.
var CallGraphArities = map[string]int{
	"actual": 3, "dispatch": 4, "formal": 3, "cha": 3,
	"invokes": 2, "hType": 2, "ret": 2,
}

// PointsToRules derive pts(V, H), variable V may point to heap object H,
// and hpts(H, F, G), field F of H may point to G.
func PointsToRules() []datalog.Rule {
	a := datalog.A
	p := func(pred string, args ...any) datalog.Literal { return datalog.Pos(a(pred, args...)) }
	return []datalog.Rule{
		datalog.NewRule(a("pts", vV, vH), p("create", vH, vT, vV)),
		datalog.NewRule(a("pts", vV, vH), p("copy", vV, vW), p("pts", vW, vH)),
		datalog.NewRule(a("hpts", vH, vF, vG), p("store", vV, vF, vW), p("pts", vW, vG), p("pts", vV, vH)),
		datalog.NewRule(a("pts", vV, vH), p("load", vV, vW, vF), p("pts", vW, vG), p("hpts", vG, vF, vH)),
	}
}

// CallGraphRules resolve virtual calls through pts and pass arguments and
// return values across them.
func CallGraphRules() []datalog.Rule {
	a := datalog.A
	p := func(pred string, args ...any) datalog.Literal { return datalog.Pos(a(pred, args...)) }
	return []datalog.Rule{
		datalog.NewRule(a("invokes", vS, vM),
			p("dispatch", vS, vV, vW, vN), p("pts", vW, vH), p("hType", vH, vT), p("cha", vT, vN, vM)),
		datalog.NewRule(a("pts", vV, vH),
			p("invokes", vS, vM), p("formal", vM, vI, vV), p("actual", vS, vI, vW), p("pts", vW, vH)),
		datalog.NewRule(a("pts", vV, vH),
			p("dispatch", vS, vV, vW, vN), p("invokes", vS, vM), p("ret", vM, vU), p("pts", vU, vH)),
	}
}

// PointsTo declares the intraprocedural relations, installs their rules and
// asserts facts.
func PointsTo(e inference.Engine, facts []inference.Fact) error {
	if err := inference.DeclareAll(e, PointsToArities); err != nil {
		return err
	}
	if err := inference.AddRules(e, PointsToRules()); err != nil {
		return err
	}
	return inference.AssertAll(e, facts)
}

// Interprocedural extends PointsTo with call-graph discovery.
func Interprocedural(e inference.Engine, facts []inference.Fact) error {
	if err := PointsTo(e, nil); err != nil {
		return err
	}
	if err := inference.DeclareAll(e, CallGraphArities); err != nil {
		return err
	}
	if err := inference.AddRules(e, CallGraphRules()); err != nil {
		return err
	}
	return inference.AssertAll(e, facts)
}

// PointsToQueries ask for both points-to relations.
func PointsToQueries() []Question {
	return []Question{
		{Label: "pts", Atom: datalog.A("pts", vV, vH)},
		{Label: "hpts", Atom: datalog.A("hpts", vH, vF, vG)},
	}
}

// Exercise1241 is the program
//
//	H: T a = new T(); G: T b = new T(); c = a; a.f = b; b.f = c; d = c.f
func Exercise1241() []inference.Fact {
	return []inference.Fact{
		inference.F("create", "H", "T", "a"),
		inference.F("create", "G", "T", "b"),
		inference.F("copy", "c", "a"),
		inference.F("store", "a", "f", "b"),
		inference.F("store", "b", "f", "c"),
		inference.F("load", "d", "c", "f"),
	}
}

// Exercise1243a is the program
//
//	g: T b = new T(); h: T a = new T(); a.f = b; b = a; b = b.f
func Exercise1243a() []inference.Fact {
	return []inference.Fact{
		inference.F("create", "g", "T", "b"),
		inference.F("create", "h", "T", "a"),
		inference.F("store", "a", "f", "b"),
		inference.F("copy", "b", "a"),
		inference.F("load", "b", "b", "f"),
	}
}

// Exercise1243b is the program
//
//	g: T b = new T(); h: T a = new T(); a.f = b; c = a; d = c.f
func Exercise1243b() []inference.Fact {
	return []inference.Fact{
		inference.F("create", "g", "T", "b"),
		inference.F("create", "h", "T", "a"),
		inference.F("store", "a", "f", "b"),
		inference.F("copy", "c", "a"),
		inference.F("load", "d", "c", "f"),
	}
}

// Exercise1251 has three methods 1, 2 and 3, each with receiver thisN and
// returning variable N, and one call site 5 invoking n on a, where a holds
// an object j of type t whose n resolves to method 1.
func Exercise1251() []inference.Fact {
	return []inference.Fact{
		inference.F("formal", 1, 0, "this1"),
		inference.F("formal", 2, 0, "this2"),
		inference.F("formal", 3, 0, "this3"),

		inference.F("pts", 1, "g"),
		inference.F("pts", 2, "h"),
		inference.F("pts", 3, "i"),

		inference.F("ret", 1, 1),
		inference.F("ret", 2, 2),
		inference.F("ret", 3, 3),

		inference.F("actual", 5, 0, "a"),

		inference.F("cha", "t", "n", 1),
		inference.F("cha", "s", "n", 2),
		inference.F("cha", "r", "n", 3),

		inference.F("create", "j", "t", "a"),
		inference.F("hType", "j", "t"),
		inference.F("dispatch", 5, "a", "a", "n"),
	}
}

// CallGraphQueries ask for the resolved calls and the points-to relation.
func CallGraphQueries() []Question {
	return []Question{
		{Label: "invokes", Atom: datalog.A("invokes", vS, vM)},
		{Label: "pts", Atom: datalog.A("pts", vV, vH)},
	}
}

package datalog

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/ichiban/prolog"
	"github.com/stretchr/testify/require"
)

// TestReachableMatchesMangle cross-checks recursive closure on a cyclic graph
// against Mangle's evaluator.
func TestReachableMatchesMangle(t *testing.T) {
	var src strings.Builder
	for _, e := range cyclicEdges {
		fmt.Fprintf(&src, "edge(/%s, /%s).\n", e[0], e[1])
	}
	src.WriteString("reachable(X, Y) :- edge(X, Y).\n")
	src.WriteString("reachable(X, Z) :- edge(X, Y), reachable(Y, Z).\n")

	unit, err := parse.Unit(strings.NewReader(src.String()))
	require.NoError(t, err)
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	require.NoError(t, err)
	store := factstore.NewSimpleInMemoryStore()
	_, err = mengine.EvalProgramWithStats(info, store)
	require.NoError(t, err)

	var want []string
	err = store.GetFacts(ast.NewQuery(ast.PredicateSym{Symbol: "reachable", Arity: 2}), func(a ast.Atom) error {
		want = append(want, strings.TrimPrefix(a.Args[0].String(), "/")+","+strings.TrimPrefix(a.Args[1].String(), "/"))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(want)

	s := graphSession(t, Options{}, cyclicEdges)
	if diff := cmp.Diff(want, rows(t, s, A("reachable", X, Y))); diff != "" {
		t.Errorf("reachable differs from mangle (-mangle +session):\n%s", diff)
	}
}

// TestAncestorMatchesProlog cross-checks ancestor answers on an acyclic
// family tree against top-down resolution.
func TestAncestorMatchesProlog(t *testing.T) {
	parents := [][2]string{
		{"george", "elizabeth"}, {"george", "margaret"}, {"mum", "elizabeth"},
		{"elizabeth", "andrew"}, {"philip", "andrew"}, {"elizabeth", "anne"},
		{"andrew", "eugenie"}, {"sarah", "eugenie"}, {"anne", "zara"},
	}

	var src strings.Builder
	for _, p := range parents {
		fmt.Fprintf(&src, "parent(%s, %s).\n", p[0], p[1])
	}
	src.WriteString("ancestor(X, Y) :- parent(X, Y).\n")
	src.WriteString("ancestor(X, Y) :- parent(X, Z), ancestor(Z, Y).\n")

	p := prolog.New(nil, nil)
	require.NoError(t, p.Exec(src.String()))

	for _, who := range []string{"eugenie", "zara", "margaret", "george"} {
		sols, err := p.Query(fmt.Sprintf("ancestor(X, %s).", who))
		require.NoError(t, err)
		seen := make(map[string]bool)
		for sols.Next() {
			var sol struct{ X string }
			require.NoError(t, sols.Scan(&sol))
			seen[sol.X] = true
		}
		require.NoError(t, sols.Err())
		require.NoError(t, sols.Close())

		want := make([]string, 0, len(seen))
		for name := range seen {
			want = append(want, name)
		}
		sort.Strings(want)

		s := NewSession(Options{})
		mustDeclare(t, s, map[string]int{"parent": 2, "ancestor": 2})
		for _, pr := range parents {
			require.NoError(t, s.AssertFact("parent", pr[0], pr[1]))
		}
		mustRules(t, s,
			NewRule(A("ancestor", X, Y), Pos(A("parent", X, Y))),
			NewRule(A("ancestor", X, Y), Pos(A("parent", X, Z)), Pos(A("ancestor", Z, Y))),
		)
		got := rows(t, s, A("ancestor", X, who))
		if len(want) == 0 {
			want = nil
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ancestors of %s differ from prolog (-prolog +session):\n%s", who, diff)
		}
	}
}

package datalog

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// rows renders every binding as "v1,v2" and sorts them.
func rows(t *testing.T, s *Session, q Atom) []string {
	t.Helper()
	ans, err := s.Query(q)
	require.NoError(t, err)
	var out []string
	for row := range ans.All() {
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = fmt.Sprint(v)
		}
		out = append(out, strings.Join(parts, ","))
	}
	sort.Strings(out)
	return out
}

func mustDeclare(t *testing.T, s *Session, arities map[string]int) {
	t.Helper()
	names := make([]string, 0, len(arities))
	for name := range arities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		require.NoError(t, s.Declare(name, arities[name]))
	}
}

func mustFacts(t *testing.T, s *Session, pred string, facts ...[]any) {
	t.Helper()
	for _, f := range facts {
		require.NoError(t, s.AssertFact(pred, f...))
	}
}

func mustRules(t *testing.T, s *Session, rules ...Rule) {
	t.Helper()
	for _, r := range rules {
		require.NoError(t, s.AddRule(r))
	}
}

var (
	X = V("X")
	Y = V("Y")
	Z = V("Z")
)

// ancestorSession is the parent/ancestor program over a three-generation chain.
func ancestorSession(t *testing.T, opts Options) *Session {
	t.Helper()
	s := NewSession(opts)
	mustDeclare(t, s, map[string]int{"parent": 2, "ancestor": 2})
	mustFacts(t, s, "parent", []any{"G", "E"}, []any{"E", "C"})
	mustRules(t, s,
		NewRule(A("ancestor", X, Y), Pos(A("parent", X, Y))),
		NewRule(A("ancestor", X, Y), Pos(A("parent", X, Z)), Pos(A("ancestor", Z, Y))),
	)
	return s
}

package datalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// stratum is one layer of the program: its predicates, and the indexes of
// the rules whose head belongs to it. Negated literals of those rules only
// refer to predicates of earlier strata.
type stratum struct {
	level int
	preds []string
	rules []int
}

type depEdge struct {
	to       int
	negative bool
}

// depGraph is the predicate dependency graph: an edge runs from a rule head
// to every predicate its body mentions.
type depGraph struct {
	names []string
	ids   map[string]int
	edges [][]depEdge
}

func newDepGraph(preds []string, rules []Rule) *depGraph {
	g := &depGraph{
		names: preds,
		ids:   make(map[string]int, len(preds)),
		edges: make([][]depEdge, len(preds)),
	}
	for i, p := range preds {
		g.ids[p] = i
	}
	for _, r := range rules {
		from := g.ids[r.Head.Pred]
		for _, l := range r.Body {
			if l.Kind != Positive && l.Kind != Negated {
				continue
			}
			g.edges[from] = append(g.edges[from], depEdge{to: g.ids[l.Atom.Pred], negative: l.Kind == Negated})
		}
	}
	return g
}

// components runs Tarjan's algorithm. Components come out dependencies
// first: a component is emitted only after every component it reaches.
func (g *depGraph) components() (comp []int, order [][]int) {
	n := len(g.names)
	comp = make([]int, n)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next := 0

	var visit func(v int)
	visit = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.edges[v] {
			switch {
			case index[e.to] < 0:
				visit(e.to)
				low[v] = min(low[v], low[e.to])
			case onStack[e.to]:
				low[v] = min(low[v], index[e.to])
			}
		}

		if low[v] != index[v] {
			return
		}
		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp[w] = len(order)
			members = append(members, w)
			if w == v {
				break
			}
		}
		sort.Ints(members)
		order = append(order, members)
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			visit(v)
		}
	}
	return comp, order
}

// stratify partitions the program into strata, lowest first. preds lists
// every declared predicate in declaration order; every rule is assumed to
// reference declared predicates only.
func stratify(preds []string, rules []Rule) ([]stratum, error) {
	g := newDepGraph(preds, rules)
	comp, order := g.components()

	for v, edges := range g.edges {
		for _, e := range edges {
			if e.negative && comp[v] == comp[e.to] {
				return nil, fmt.Errorf("%w: %s depends negatively on %s within the recursive group {%s}",
					internalerr.ErrUnstratifiableProgram, g.names[v], g.names[e.to], g.groupNames(order[comp[v]]))
			}
		}
	}

	// A component sits one level above anything it negates and at least at
	// the level of anything it uses positively.
	level := make([]int, len(order))
	maxLevel := 0
	for c, members := range order {
		for _, v := range members {
			for _, e := range g.edges[v] {
				dep := comp[e.to]
				if dep == c {
					continue
				}
				want := level[dep]
				if e.negative {
					want++
				}
				level[c] = max(level[c], want)
			}
		}
		maxLevel = max(maxLevel, level[c])
	}

	strata := make([]stratum, maxLevel+1)
	for i := range strata {
		strata[i].level = i
	}
	for v, name := range g.names {
		l := level[comp[v]]
		strata[l].preds = append(strata[l].preds, name)
	}
	for i, r := range rules {
		l := level[comp[g.ids[r.Head.Pred]]]
		strata[l].rules = append(strata[l].rules, i)
	}
	if len(preds) == 0 {
		return nil, nil
	}
	return strata, nil
}

func (g *depGraph) groupNames(members []int) string {
	names := make([]string, len(members))
	for i, v := range members {
		names[i] = g.names[v]
	}
	return strings.Join(names, ", ")
}

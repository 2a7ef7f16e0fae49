package datalog

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

const unbound = -1

// task is one application of a rule during a round: the span each positive
// literal scans.
type task struct {
	rule  *compiledRule
	spans []span
}

// evaluator runs strata to fixpoint over a private set of relations.
type evaluator struct {
	rels     map[string]*relation
	strategy Strategy
	workers  int
	maxRound int
	log      *zap.Logger

	rounds int // across all strata
}

// evalStratum applies the stratum's rules until a round adds nothing.
//
// Round one evaluates every rule against all known facts. Later rounds, in
// semi-naive mode, evaluate each rule once per positive literal over a
// predicate of this stratum, with that literal restricted to the facts the
// previous round added, earlier literals to the facts known before it, and
// later literals to everything.
func (ev *evaluator) evalStratum(st stratum, rules []*compiledRule) error {
	local := make(map[string]bool, len(st.preds))
	for _, p := range st.preds {
		local[p] = true
	}

	prev := ev.sizes(st.preds)
	for round := 1; ; round++ {
		ev.rounds++
		if ev.maxRound > 0 && ev.rounds > ev.maxRound {
			ev.log.Warn("round limit exceeded",
				zap.Int("stratum", st.level), zap.Int("limit", ev.maxRound))
			return fmt.Errorf("%w: stratum %d still growing after %d rounds",
				internalerr.ErrNonTermination, st.level, ev.maxRound)
		}

		cur := ev.sizes(st.preds)
		var tasks []task
		for _, cr := range rules {
			if round == 1 || ev.strategy == Naive {
				tasks = append(tasks, ev.fullTask(cr))
				continue
			}
			tasks = append(tasks, ev.deltaTasks(cr, local, prev, cur)...)
		}
		prev = cur

		added := ev.merge(tasks, ev.run(tasks))
		ev.log.Debug("round complete",
			zap.Int("stratum", st.level),
			zap.Int("round", round),
			zap.Int("tasks", len(tasks)),
			zap.Int("new_facts", added))
		if added == 0 {
			return nil
		}
	}
}

func (ev *evaluator) sizes(preds []string) map[string]int {
	out := make(map[string]int, len(preds))
	for _, p := range preds {
		out[p] = ev.rels[p].len()
	}
	return out
}

func (ev *evaluator) fullTask(cr *compiledRule) task {
	t := task{rule: cr, spans: make([]span, len(cr.pos))}
	for i, a := range cr.pos {
		t.spans[i] = span{0, ev.rels[a.pred].len()}
	}
	return t
}

func (ev *evaluator) deltaTasks(cr *compiledRule, local map[string]bool, prev, cur map[string]int) []task {
	var out []task
	for d, a := range cr.pos {
		if !local[a.pred] || prev[a.pred] == cur[a.pred] {
			continue
		}
		t := task{rule: cr, spans: make([]span, len(cr.pos))}
		for j, b := range cr.pos {
			switch {
			case !local[b.pred]:
				t.spans[j] = span{0, ev.rels[b.pred].len()}
			case j < d:
				t.spans[j] = span{0, prev[b.pred]}
			case j == d:
				t.spans[j] = span{prev[b.pred], cur[b.pred]}
			default:
				t.spans[j] = span{0, cur[b.pred]}
			}
		}
		out = append(out, t)
	}
	return out
}

// run evaluates the tasks of one round. Relations are only read here; with
// several workers each task fills its own buffer and Wait is the round
// barrier.
func (ev *evaluator) run(tasks []task) [][]tuple {
	out := make([][]tuple, len(tasks))
	if ev.workers <= 1 || len(tasks) < 2 {
		for i, t := range tasks {
			out[i] = ev.apply(t)
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(ev.workers)
	for i, t := range tasks {
		g.Go(func() error {
			out[i] = ev.apply(t)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// merge inserts derived tuples in task order, which keeps fact order
// independent of scheduling.
func (ev *evaluator) merge(tasks []task, derived [][]tuple) int {
	added := 0
	for i, t := range tasks {
		rel := ev.rels[t.rule.head.pred]
		for _, tup := range derived[i] {
			if rel.insert(tup) {
				added++
			}
		}
	}
	return added
}

// apply joins the rule body over the task spans and returns the head tuples
// that are not facts yet.
func (ev *evaluator) apply(t task) []tuple {
	cr := t.rule
	head := ev.rels[cr.head.pred]
	b := make([]int, cr.nvars)
	for i := range b {
		b[i] = unbound
	}

	var out []tuple
	seen := make(map[string]struct{})
	emit := func() {
		tup := make(tuple, len(cr.head.args))
		for i, a := range cr.head.args {
			tup[i] = a.value(b)
		}
		if head.contains(tup) {
			return
		}
		k := tup.key()
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, tup)
	}

	if ev.holds(cr.after[0], b) {
		ev.join(cr, t.spans, 0, b, emit)
	}
	return out
}

func (ev *evaluator) join(cr *compiledRule, spans []span, i int, b []int, emit func()) {
	if i == len(cr.pos) {
		emit()
		return
	}
	a := cr.pos[i]
	rel := ev.rels[a.pred]

	visit := func(pos int) {
		tup := rel.tuples[pos]
		for col, arg := range a.args {
			switch {
			case arg.isConst():
				if tup[col] != arg.id {
					return
				}
			case arg.bind:
				b[arg.slot] = tup[col]
			case b[arg.slot] != tup[col]:
				return
			}
		}
		if ev.holds(cr.after[i+1], b) {
			ev.join(cr, spans, i+1, b, emit)
		}
	}

	sp := spans[i]
	if a.probe >= 0 {
		for _, pos := range sp.positions(rel.lookup(a.probe, a.args[a.probe].value(b))) {
			visit(pos)
		}
		return
	}
	for pos := sp.lo; pos < sp.hi; pos++ {
		visit(pos)
	}
}

// holds tests negated literals and constraints under binding b.
func (ev *evaluator) holds(checks []check, b []int) bool {
	for _, c := range checks {
		switch c.kind {
		case Negated:
			tup := make(tuple, len(c.atom.args))
			for i, a := range c.atom.args {
				tup[i] = a.value(b)
			}
			if ev.rels[c.atom.pred].contains(tup) {
				return false
			}
		case Inequal:
			if c.left.value(b) == c.right.value(b) {
				return false
			}
		case Equal:
			if c.left.value(b) != c.right.value(b) {
				return false
			}
		}
	}
	return true
}

func (t slotTerm) value(b []int) int {
	if t.isConst() {
		return t.id
	}
	return b[t.slot]
}

// Package fixpoint runs rule programs: it builds a session from a program,
// pulls base facts from an optional fact source, solves it and answers the
// program's queries.
package fixpoint

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/fixpoint/pkg/fixpoint/config"
	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/inference"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
	"github.com/cognicore/fixpoint/pkg/fixpoint/programs"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store"
)

// Options configures Run. Non-zero engine fields override the program's
// engine block.
type Options struct {
	Logger *zap.Logger
	Source store.FactSource

	Naive     bool
	MaxRounds int
	Workers   int
}

// QueryResult holds the answers of one query, rows sorted
type QueryResult struct {
	Label string
	Query datalog.Atom
	Vars  []datalog.Var
	Rows  [][]any
}

// Report is the outcome of running one program
type Report struct {
	Name    string
	Program *config.Program
	Session *datalog.Session
	Stats   datalog.Stats
	Results []QueryResult
}

// Run evaluates a program on a fresh session.
func Run(ctx context.Context, prog *config.Program, opts Options) (*Report, error) {
	sopts, err := prog.Options()
	if err != nil {
		return nil, err
	}
	name := prog.Name
	if name == "" {
		name = prog.Path
	}

	facts, err := prog.Atoms()
	if err != nil {
		return nil, err
	}
	rules, err := prog.RuleSet()
	if err != nil {
		return nil, err
	}
	queries, err := prog.QueryAtoms()
	if err != nil {
		return nil, err
	}

	questions := make([]programs.Question, len(queries))
	for i, q := range queries {
		questions[i] = programs.Question{Label: q.String(), Atom: q}
	}

	setup := func(e inference.Engine) error {
		if err := inference.DeclareAll(e, prog.Predicates); err != nil {
			return err
		}
		if opts.Source != nil {
			if err := LoadFacts(ctx, e, opts.Source); err != nil {
				return fmt.Errorf("load facts: %w", err)
			}
		}
		for _, f := range facts {
			if err := e.AssertFact(f.Pred, constants(f)...); err != nil {
				return fmt.Errorf("assert %s: %w", f, err)
			}
		}
		return inference.AddRules(e, rules)
	}

	rep, err := run(ctx, name, setup, questions, sopts, opts)
	if err != nil {
		return nil, err
	}
	rep.Program = prog
	return rep, nil
}

// RunExercise evaluates a built-in exercise on a fresh session.
func RunExercise(ctx context.Context, ex programs.Exercise, opts Options) (*Report, error) {
	return run(ctx, ex.Name, ex.Setup, ex.Questions, datalog.Options{}, opts)
}

func run(ctx context.Context, name string, setup func(inference.Engine) error,
	questions []programs.Question, sopts datalog.Options, opts Options) (*Report, error) {
	applyOverrides(&sopts, opts)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sopts.Logger = logger.With(zap.String("program", name))

	s := datalog.NewSession(sopts)
	if err := setup(s); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := s.Solve(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	rep := &Report{Name: name, Session: s, Stats: s.Stats()}
	for _, q := range questions {
		ans, err := s.Query(q.Atom)
		if err != nil {
			return nil, fmt.Errorf("%s: query %s: %w", name, q.Atom, err)
		}
		rows := ans.Collect()
		SortRows(rows)
		rep.Results = append(rep.Results, QueryResult{
			Label: q.Label,
			Query: q.Atom,
			Vars:  ans.Vars(),
			Rows:  rows,
		})
	}

	logger.Info("program evaluated",
		zap.String("program", name),
		zap.String("session", s.ID()),
		zap.Int("queries", len(rep.Results)),
		zap.Int("derived_facts", rep.Stats.DerivedFacts),
		zap.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func applyOverrides(sopts *datalog.Options, opts Options) {
	if opts.Naive {
		sopts.Strategy = datalog.Naive
	}
	if opts.MaxRounds > 0 {
		sopts.MaxRounds = opts.MaxRounds
	}
	if opts.Workers > 0 {
		sopts.Workers = opts.Workers
	}
}

// LoadFacts declares the named relations of src on e and asserts their
// tuples. With no names every relation of src is loaded.
func LoadFacts(ctx context.Context, e inference.Engine, src store.FactSource, names ...string) error {
	preds, err := src.Predicates(ctx)
	if err != nil {
		return err
	}
	arity := make(map[string]int, len(preds))
	for _, p := range preds {
		arity[p.Name] = p.Arity
	}
	if len(names) == 0 {
		for _, p := range preds {
			names = append(names, p.Name)
		}
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ok := arity[name]
		if !ok {
			return fmt.Errorf("%w: relation %s", internalerr.ErrNotFound, name)
		}
		if declared, ok := e.Declared(name); ok && declared != n {
			return fmt.Errorf("%w: source relation %s has %d columns, declared %s/%d",
				internalerr.ErrArityMismatch, name, n, name, declared)
		}
		if err := e.Declare(name, n); err != nil {
			return err
		}

		facts, err := src.Facts(ctx, name)
		if err != nil {
			return err
		}
		for _, f := range facts {
			if err := e.AssertFact(name, f...); err != nil {
				return err
			}
		}
	}
	return nil
}

// constants returns the values of a ground atom.
func constants(a datalog.Atom) []any {
	out := make([]any, len(a.Args))
	for i, t := range a.Args {
		if c, ok := t.(datalog.Const); ok {
			out[i] = c.Value
		}
	}
	return out
}

// SortRows orders rows lexicographically: nil first, then booleans, then
// numbers, then strings.
func SortRows(rows [][]any) {
	slices.SortFunc(rows, func(a, b []any) int {
		for i := range min(len(a), len(b)) {
			if c := compareValues(a[i], b[i]); c != 0 {
				return c
			}
		}
		return cmp.Compare(len(a), len(b))
	})
}

func compareValues(a, b any) int {
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
		return cmp.Compare(float64(x), b.(float64))
	case float64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, float64(y))
		}
		return cmp.Compare(x, b.(float64))
	case string:
		return cmp.Compare(x, b.(string))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int64, float64:
		return 2
	case string:
		return 3
	}
	return 4
}

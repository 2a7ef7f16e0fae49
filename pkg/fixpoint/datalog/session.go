// Package datalog is a bottom-up evaluator for Horn-clause rules with
// stratified negation.
//
// A Session holds declared predicates, asserted base facts and rules. Solve
// partitions the rules into strata, evaluates each stratum to its least
// fixpoint, and Query answers partially bound atoms over the result. Sessions
// are independent of each other; starting over means building a new one.
//
// A Session is not safe for concurrent use.
package datalog

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// Stats describes the most recent successful Solve.
type Stats struct {
	Strata       int
	Rounds       int
	BaseFacts    int
	DerivedFacts int
	Elapsed      time.Duration
}

// Session is one isolated evaluation: a predicate registry, the base facts,
// the rules, and the solved fact sets.
type Session struct {
	id   string
	opts Options
	log  *zap.Logger
	syms *symbols

	preds []string // declaration order
	arity map[string]int
	base  map[string]*relation
	rules []*compiledRule

	solved map[string]*relation
	strata []stratum
	dirty  bool
	stats  Stats
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	id := ulid.Make().String()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:    id,
		opts:  opts,
		log:   logger.With(zap.String("session", id)),
		syms:  newSymbols(),
		arity: make(map[string]int),
		base:  make(map[string]*relation),
		dirty: true,
	}
}

// ID returns the session's ULID.
func (s *Session) ID() string { return s.id }

// Declare registers a predicate. Declaring it again with the same arity is a
// no-op; a different arity fails with ErrDuplicateDeclaration.
func (s *Session) Declare(name string, arity int) error {
	if name == "" || arity < 0 {
		return fmt.Errorf("%w: predicate %q with arity %d", internalerr.ErrInvalidInput, name, arity)
	}
	if got, ok := s.arity[name]; ok {
		if got != arity {
			return fmt.Errorf("%w: %s/%d already declared as %s/%d",
				internalerr.ErrDuplicateDeclaration, name, arity, name, got)
		}
		return nil
	}
	s.arity[name] = arity
	s.preds = append(s.preds, name)
	s.base[name] = newRelation(name, arity)
	s.dirty = true
	return nil
}

// Declared reports the arity of a declared predicate.
func (s *Session) Declared(name string) (int, bool) {
	n, ok := s.arity[name]
	return n, ok
}

// Predicates returns the declared predicates in declaration order.
func (s *Session) Predicates() []string {
	return append([]string(nil), s.preds...)
}

// AssertFact adds a base fact. Re-asserting a known fact is a no-op.
func (s *Session) AssertFact(name string, values ...any) error {
	rel, err := s.relationFor(name, len(values))
	if err != nil {
		return err
	}
	tup := make(tuple, len(values))
	for i, v := range values {
		n, err := Normalize(v)
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", name, i, err)
		}
		tup[i] = s.syms.intern(n)
	}
	if rel.insert(tup) {
		s.dirty = true
	}
	return nil
}

// AddRule validates and registers a rule. Every predicate the rule mentions
// must be declared with a matching arity, and the rule must be range
// restricted.
func (s *Session) AddRule(r Rule) error {
	if _, err := s.relationFor(r.Head.Pred, len(r.Head.Args)); err != nil {
		return fmt.Errorf("rule %s: %w", r, err)
	}
	for _, l := range r.Body {
		if l.Kind != Positive && l.Kind != Negated {
			continue
		}
		if _, err := s.relationFor(l.Atom.Pred, len(l.Atom.Args)); err != nil {
			return fmt.Errorf("rule %s: %w", r, err)
		}
	}
	if err := r.checkSafety(); err != nil {
		return err
	}
	cr, err := compileRule(r, s.syms)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, cr)
	s.dirty = true
	s.log.Debug("rule added", zap.Stringer("rule", r))
	return nil
}

// Rules returns the registered rules in registration order.
func (s *Session) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	for i, cr := range s.rules {
		out[i] = cr.src
	}
	return out
}

func (s *Session) relationFor(name string, arity int) (*relation, error) {
	want, ok := s.arity[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownPredicate, name)
	}
	if want != arity {
		return nil, fmt.Errorf("%w: %s/%d used with %d arguments",
			internalerr.ErrArityMismatch, name, want, arity)
	}
	return s.base[name], nil
}

// Solve computes the least fixpoint of the rules over the base facts. It is
// a no-op when nothing changed since the last successful Solve.
func (s *Session) Solve() error {
	if !s.dirty {
		return nil
	}
	start := time.Now()

	src := make([]Rule, len(s.rules))
	for i, cr := range s.rules {
		src[i] = cr.src
	}
	strata, err := stratify(s.preds, src)
	if err != nil {
		s.solved = nil
		return err
	}

	rels := make(map[string]*relation, len(s.base))
	baseFacts := 0
	for name, rel := range s.base {
		rels[name] = rel.clone()
		baseFacts += rel.len()
	}

	ev := &evaluator{
		rels:     rels,
		strategy: s.opts.Strategy,
		workers:  s.opts.Workers,
		maxRound: s.opts.MaxRounds,
		log:      s.log,
	}
	evaluated := 0
	for _, st := range strata {
		if len(st.rules) == 0 {
			continue
		}
		rules := make([]*compiledRule, len(st.rules))
		for i, idx := range st.rules {
			rules[i] = s.rules[idx]
		}
		if err := ev.evalStratum(st, rules); err != nil {
			s.solved = nil
			return err
		}
		evaluated++
	}

	total := 0
	for _, rel := range rels {
		total += rel.len()
	}
	s.solved = rels
	s.strata = strata
	s.dirty = false
	s.stats = Stats{
		Strata:       evaluated,
		Rounds:       ev.rounds,
		BaseFacts:    baseFacts,
		DerivedFacts: total - baseFacts,
		Elapsed:      time.Since(start),
	}
	s.log.Info("solved",
		zap.Int("strata", evaluated),
		zap.Int("rounds", ev.rounds),
		zap.Int("facts", total),
		zap.Duration("elapsed", s.stats.Elapsed))
	return nil
}

// Stats returns statistics of the last successful Solve.
func (s *Session) Stats() Stats { return s.stats }

// Strata solves the session if needed and returns the predicates of each
// stratum, lowest first.
func (s *Session) Strata() ([][]string, error) {
	if err := s.Solve(); err != nil {
		return nil, err
	}
	out := make([][]string, len(s.strata))
	for i, st := range s.strata {
		out[i] = append([]string(nil), st.preds...)
	}
	return out, nil
}

// Facts solves the session if needed and returns every fact of a predicate.
func (s *Session) Facts(name string) ([][]any, error) {
	if _, ok := s.arity[name]; !ok {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownPredicate, name)
	}
	if err := s.Solve(); err != nil {
		return nil, err
	}
	rel := s.solved[name]
	out := make([][]any, rel.len())
	for i, t := range rel.tuples {
		out[i] = s.syms.decode(t)
	}
	return out, nil
}

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// VarPrefix marks a string argument as a variable: "?X" is the variable X.
const VarPrefix = "?"

// Program represents a rule program file
type Program struct {
	Name       string             `yaml:"name"`
	Engine     Engine             `yaml:"engine"`
	Predicates map[string]int     `yaml:"predicates"`
	Facts      map[string][][]any `yaml:"facts"`
	Rules      []RuleDef          `yaml:"rules"`
	Queries    []AtomDef          `yaml:"queries"`

	// Path is the file the program was loaded from, if any.
	Path string `yaml:"-"`
}

// Engine holds evaluator settings
type Engine struct {
	Strategy  string `yaml:"strategy"`
	MaxRounds int    `yaml:"max_rounds"`
	Workers   int    `yaml:"workers"`
}

// AtomDef is a predicate with its arguments
type AtomDef struct {
	Pred string `yaml:"pred"`
	Args []any  `yaml:"args"`
}

// RuleDef is a rule head with its body
type RuleDef struct {
	Head AtomDef      `yaml:"head"`
	Body []LiteralDef `yaml:"body"`
}

// LiteralDef is one body entry. Exactly one form must be set: an inline
// atom (pred/args), not, neq or eq.
type LiteralDef struct {
	Pred string   `yaml:"pred,omitempty"`
	Args []any    `yaml:"args,omitempty"`
	Not  *AtomDef `yaml:"not,omitempty"`
	Neq  []any    `yaml:"neq,omitempty"`
	Eq   []any    `yaml:"eq,omitempty"`
}

// LoadProgram loads and validates a program from a YAML file
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	prog, err := ParseProgram(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	prog.Path = path
	return prog, nil
}

// ParseProgram decodes and validates a YAML program
func ParseProgram(data []byte) (*Program, error) {
	var prog Program
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return &prog, nil
}

// Validate checks engine settings and the shape of every rule and query.
// Arity and safety are left to the session.
func (p *Program) Validate() error {
	if _, err := datalog.ParseStrategy(p.Engine.Strategy); err != nil {
		return err
	}
	if p.Engine.MaxRounds < 0 {
		return invalid("max_rounds must be >= 0, got %d", p.Engine.MaxRounds)
	}
	if p.Engine.Workers < 0 {
		return invalid("workers must be >= 0, got %d", p.Engine.Workers)
	}
	for name, arity := range p.Predicates {
		if arity < 0 {
			return invalid("predicate %s has negative arity %d", name, arity)
		}
	}
	if _, err := p.Atoms(); err != nil {
		return err
	}
	if _, err := p.RuleSet(); err != nil {
		return err
	}
	if _, err := p.QueryAtoms(); err != nil {
		return err
	}
	return nil
}

// Options returns the session options of the engine block.
func (p *Program) Options() (datalog.Options, error) {
	strategy, err := datalog.ParseStrategy(p.Engine.Strategy)
	if err != nil {
		return datalog.Options{}, err
	}
	return datalog.Options{
		Strategy:  strategy,
		MaxRounds: p.Engine.MaxRounds,
		Workers:   p.Engine.Workers,
	}, nil
}

// Atoms returns the program's facts as ground atoms.
func (p *Program) Atoms() ([]datalog.Atom, error) {
	var out []datalog.Atom
	for _, name := range slices.Sorted(maps.Keys(p.Facts)) {
		for i, row := range p.Facts[name] {
			a, err := AtomDef{Pred: name, Args: row}.Atom()
			if err != nil {
				return nil, err
			}
			if !a.IsGround() {
				return nil, invalid("fact %s #%d contains a variable", name, i)
			}
			out = append(out, a)
		}
	}
	return out, nil
}

// RuleSet converts the rule definitions into rules.
func (p *Program) RuleSet() ([]datalog.Rule, error) {
	out := make([]datalog.Rule, 0, len(p.Rules))
	for i, rs := range p.Rules {
		r, err := rs.Rule()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// QueryAtoms converts the query definitions into atoms.
func (p *Program) QueryAtoms() ([]datalog.Atom, error) {
	out := make([]datalog.Atom, 0, len(p.Queries))
	for i, q := range p.Queries {
		a, err := q.Atom()
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Atom converts the definition into an atom.
func (s AtomDef) Atom() (datalog.Atom, error) {
	if s.Pred == "" {
		return datalog.Atom{}, invalid("atom without pred")
	}
	args := make([]datalog.Term, len(s.Args))
	for i, a := range s.Args {
		t, err := parseTerm(a)
		if err != nil {
			return datalog.Atom{}, fmt.Errorf("%s argument %d: %w", s.Pred, i, err)
		}
		args[i] = t
	}
	return datalog.Atom{Pred: s.Pred, Args: args}, nil
}

// Rule converts the definition into a rule.
func (s RuleDef) Rule() (datalog.Rule, error) {
	head, err := s.Head.Atom()
	if err != nil {
		return datalog.Rule{}, fmt.Errorf("head: %w", err)
	}
	body := make([]datalog.Literal, 0, len(s.Body))
	for i, ls := range s.Body {
		l, err := ls.Literal()
		if err != nil {
			return datalog.Rule{}, fmt.Errorf("body %d: %w", i, err)
		}
		body = append(body, l)
	}
	return datalog.NewRule(head, body...), nil
}

// Literal converts the definition into a body literal.
func (s LiteralDef) Literal() (datalog.Literal, error) {
	forms := 0
	if s.Pred != "" {
		forms++
	}
	if s.Not != nil {
		forms++
	}
	if s.Neq != nil {
		forms++
	}
	if s.Eq != nil {
		forms++
	}
	if forms != 1 {
		return datalog.Literal{}, invalid("literal must set exactly one of pred, not, neq, eq")
	}

	switch {
	case s.Pred != "":
		a, err := AtomDef{Pred: s.Pred, Args: s.Args}.Atom()
		if err != nil {
			return datalog.Literal{}, err
		}
		return datalog.Pos(a), nil
	case s.Not != nil:
		a, err := s.Not.Atom()
		if err != nil {
			return datalog.Literal{}, err
		}
		return datalog.Not(a), nil
	case s.Neq != nil:
		l, r, err := pair("neq", s.Neq)
		if err != nil {
			return datalog.Literal{}, err
		}
		return datalog.Neq(l, r), nil
	default:
		l, r, err := pair("eq", s.Eq)
		if err != nil {
			return datalog.Literal{}, err
		}
		return datalog.Eq(l, r), nil
	}
}

func pair(op string, args []any) (datalog.Term, datalog.Term, error) {
	if len(args) != 2 {
		return nil, nil, invalid("%s takes 2 arguments, got %d", op, len(args))
	}
	l, err := parseTerm(args[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := parseTerm(args[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// parseTerm maps a decoded YAML scalar onto a term.
func parseTerm(v any) (datalog.Term, error) {
	if s, ok := v.(string); ok && strings.HasPrefix(s, VarPrefix) {
		name := strings.TrimPrefix(s, VarPrefix)
		if name == "" {
			return nil, invalid("empty variable name")
		}
		return datalog.V(name), nil
	}
	n, err := datalog.Normalize(v)
	if err != nil {
		if errors.Is(err, internalerr.ErrInvalidInput) {
			return nil, invalid("unsupported constant %v (%T)", v, v)
		}
		return nil, err
	}
	return datalog.Const{Value: n}, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

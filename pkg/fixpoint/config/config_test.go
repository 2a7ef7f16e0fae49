package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

const kinshipYAML = `name: family
engine:
  strategy: naive
  max_rounds: 50
  workers: 2
predicates:
  parent: 2
  sibling: 2
  ancestor: 2
facts:
  parent:
    - [Diana, William]
    - [Diana, Harry]
rules:
  - head: {pred: ancestor, args: ["?X", "?Y"]}
    body:
      - {pred: parent, args: ["?X", "?Y"]}
  - head: {pred: sibling, args: ["?X", "?Y"]}
    body:
      - {pred: parent, args: ["?P", "?X"]}
      - {pred: parent, args: ["?P", "?Y"]}
      - {neq: ["?X", "?Y"]}
queries:
  - {pred: sibling, args: ["?X", William]}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProgram(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kinship.yaml", kinshipYAML)

	prog, err := LoadProgram(path)
	if err != nil {
		t.Fatalf("Failed to load program: %v", err)
	}

	if prog.Name != "family" {
		t.Errorf("Expected name family, got %q", prog.Name)
	}
	if prog.Path != path {
		t.Errorf("Expected path %s, got %s", path, prog.Path)
	}
	if len(prog.Predicates) != 3 || prog.Predicates["parent"] != 2 {
		t.Errorf("Unexpected predicates: %v", prog.Predicates)
	}

	opts, err := prog.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if opts.Strategy != datalog.Naive || opts.MaxRounds != 50 || opts.Workers != 2 {
		t.Errorf("Unexpected options: %+v", opts)
	}

	facts, err := prog.Atoms()
	if err != nil {
		t.Fatalf("Atoms: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("Expected 2 facts, got %d", len(facts))
	}
	if got := facts[0].String(); got != `parent("Diana", "William")` {
		t.Errorf("Unexpected first fact: %s", got)
	}

	rules, err := prog.RuleSet()
	if err != nil {
		t.Fatalf("RuleSet: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Expected 2 rules, got %d", len(rules))
	}
	want := `sibling(X, Y) :- parent(P, X), parent(P, Y), X != Y.`
	if got := rules[1].String(); got != want {
		t.Errorf("Rule mismatch:\n got %s\nwant %s", got, want)
	}

	queries, err := prog.QueryAtoms()
	if err != nil {
		t.Fatalf("QueryAtoms: %v", err)
	}
	if got := queries[0].String(); got != `sibling(X, "William")` {
		t.Errorf("Unexpected query: %s", got)
	}
}

func TestParseProgramScalars(t *testing.T) {
	prog, err := ParseProgram([]byte(`
predicates: {p: 4}
facts:
  p:
    - [1, 2.5, true, text]
`))
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}

	facts, err := prog.Atoms()
	if err != nil {
		t.Fatalf("Atoms: %v", err)
	}
	args := facts[0].Args
	expected := []any{int64(1), 2.5, true, "text"}
	for i, want := range expected {
		c, ok := args[i].(datalog.Const)
		if !ok {
			t.Fatalf("Argument %d is not a constant: %v", i, args[i])
		}
		if c.Value != want {
			t.Errorf("Argument %d: expected %v (%T), got %v (%T)", i, want, want, c.Value, c.Value)
		}
	}
}

func TestNegatedLiteral(t *testing.T) {
	prog, err := ParseProgram([]byte(`
rules:
  - head: {pred: female, args: ["?X"]}
    body:
      - {pred: person, args: ["?X"]}
      - {not: {pred: male, args: ["?X"]}}
`))
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	rules, _ := prog.RuleSet()
	if got := rules[0].String(); got != "female(X) :- person(X), not male(X)." {
		t.Errorf("Unexpected rule: %s", got)
	}
}

func TestDefaultsAreZeroOptions(t *testing.T) {
	prog, err := ParseProgram([]byte("name: empty\n"))
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	opts, err := prog.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != datalog.SemiNaive || opts.MaxRounds != 0 || opts.Workers != 0 {
		t.Errorf("Expected zero options, got %+v", opts)
	}
}

func TestInvalidPrograms(t *testing.T) {
	cases := map[string]string{
		"unknown strategy": "engine: {strategy: magic}\n",
		"negative rounds":  "engine: {max_rounds: -1}\n",
		"negative workers": "engine: {workers: -2}\n",
		"negative arity":   "predicates: {p: -1}\n",
		"variable in fact": "facts:\n  p:\n    - [\"?X\"]\n",
		"nested constant":  "facts:\n  p:\n    - [[1, 2]]\n",
		"two forms": `rules:
  - head: {pred: p, args: ["?X"]}
    body:
      - {pred: q, args: ["?X"], neq: ["?X", 1]}
`,
		"empty literal": `rules:
  - head: {pred: p, args: ["?X"]}
    body:
      - {}
`,
		"short neq": `rules:
  - head: {pred: p, args: ["?X"]}
    body:
      - {pred: q, args: ["?X"]}
      - {neq: ["?X"]}
`,
		"headless rule":  "rules:\n  - body: [{pred: q, args: [1]}]\n",
		"empty variable": "queries:\n  - {pred: p, args: [\"?\"]}\n",
		"bad yaml":       "predicates: [unterminated\n",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProgram([]byte(content))
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadProgramMissingFile(t *testing.T) {
	_, err := LoadProgram("/nonexistent/program.yaml")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

package fixpoint

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cognicore/fixpoint/pkg/fixpoint/config"
	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
	"github.com/cognicore/fixpoint/pkg/fixpoint/programs"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store/memstore"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store/sqlite"
)

const reachYAML = `name: reach
predicates:
  edge: 2
  node: 1
  reachable: 2
  unreachable: 2
facts:
  edge:
    - [a, b]
    - [b, c]
    - [c, a]
    - [c, d]
  node:
    - [a]
    - [b]
    - [c]
    - [d]
rules:
  - head: {pred: reachable, args: ["?X", "?Y"]}
    body:
      - {pred: edge, args: ["?X", "?Y"]}
  - head: {pred: reachable, args: ["?X", "?Y"]}
    body:
      - {pred: edge, args: ["?X", "?Z"]}
      - {pred: reachable, args: ["?Z", "?Y"]}
  - head: {pred: unreachable, args: ["?X", "?Y"]}
    body:
      - {pred: node, args: ["?X"]}
      - {pred: node, args: ["?Y"]}
      - {not: {pred: reachable, args: ["?X", "?Y"]}}
queries:
  - {pred: reachable, args: ["?X", "?X"]}
  - {pred: unreachable, args: [d, "?Y"]}
  - {pred: reachable, args: [d, a]}
  - {pred: reachable, args: [a, d]}
`

func mustProgram(t *testing.T, src string) *config.Program {
	t.Helper()
	prog, err := config.ParseProgram([]byte(src))
	require.NoError(t, err)
	return prog
}

func column(rows [][]any, i int) []any {
	out := make([]any, len(rows))
	for j, r := range rows {
		out[j] = r[i]
	}
	return out
}

func TestRunProgram(t *testing.T) {
	rep, err := Run(context.Background(), mustProgram(t, reachYAML), Options{})
	require.NoError(t, err)

	assert.Equal(t, "reach", rep.Name)
	require.Len(t, rep.Results, 4)

	cyc := rep.Results[0]
	assert.Equal(t, []datalog.Var{"X"}, cyc.Vars)
	assert.Equal(t, []any{"a", "b", "c"}, column(cyc.Rows, 0))

	assert.Equal(t, []any{"a", "b", "c", "d"}, column(rep.Results[1].Rows, 0))

	assert.Len(t, rep.Results[2].Rows, 0, "d has no outgoing edges")
	assert.Len(t, rep.Results[3].Rows, 1, "ground query holds")

	assert.Equal(t, 2, rep.Stats.Strata)
	assert.Equal(t, 8, rep.Stats.BaseFacts)
}

func TestRunOverrides(t *testing.T) {
	prog := mustProgram(t, reachYAML)

	semi, err := Run(context.Background(), prog, Options{})
	require.NoError(t, err)
	naive, err := Run(context.Background(), prog, Options{Naive: true, Workers: 4})
	require.NoError(t, err)

	for i := range semi.Results {
		assert.Equal(t, semi.Results[i].Rows, naive.Results[i].Rows)
	}

	_, err = Run(context.Background(), prog, Options{MaxRounds: 1})
	assert.ErrorIs(t, err, datalog.ErrNonTermination)
}

func TestRunWithMemstoreSource(t *testing.T) {
	src := memstore.New()
	require.NoError(t, src.Add("parent", "George", "Elizabeth"))
	require.NoError(t, src.Add("parent", "Elizabeth", "Charles"))
	require.NoError(t, src.Add("parent", "Charles", "William"))

	prog := mustProgram(t, `name: ancestors
predicates: {ancestor: 2}
rules:
  - head: {pred: ancestor, args: ["?X", "?Y"]}
    body: [{pred: parent, args: ["?X", "?Y"]}]
  - head: {pred: ancestor, args: ["?X", "?Y"]}
    body:
      - {pred: parent, args: ["?X", "?Z"]}
      - {pred: ancestor, args: ["?Z", "?Y"]}
queries:
  - {pred: ancestor, args: ["?X", William]}
`)

	rep, err := Run(context.Background(), prog, Options{Source: src})
	require.NoError(t, err)
	assert.Equal(t, []any{"Charles", "Elizabeth", "George"}, column(rep.Results[0].Rows, 0))
}

func TestRunWithSQLiteSource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "edges.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE edge (src INTEGER, dst INTEGER)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO edge VALUES (1, 2), (2, 3), (3, 4)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := sqlite.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer src.Close()

	prog := mustProgram(t, `predicates: {path: 2}
rules:
  - head: {pred: path, args: ["?X", "?Y"]}
    body: [{pred: edge, args: ["?X", "?Y"]}]
  - head: {pred: path, args: ["?X", "?Y"]}
    body:
      - {pred: path, args: ["?X", "?Z"]}
      - {pred: edge, args: ["?Z", "?Y"]}
queries:
  - {pred: path, args: [1, "?Y"]}
`)

	rep, err := Run(ctx, prog, Options{Source: src})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3), int64(4)}, column(rep.Results[0].Rows, 0))
}

func TestLoadFacts(t *testing.T) {
	ctx := context.Background()
	src := memstore.New()
	require.NoError(t, src.Add("edge", "a", "b"))
	require.NoError(t, src.Add("label", "a", "start"))

	t.Run("named", func(t *testing.T) {
		s := datalog.NewSession(datalog.Options{})
		require.NoError(t, LoadFacts(ctx, s, src, "edge"))
		_, ok := s.Declared("label")
		assert.False(t, ok, "only named relations are loaded")
		facts, err := s.Facts("edge")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{"a", "b"}}, facts)
	})

	t.Run("unknown relation", func(t *testing.T) {
		s := datalog.NewSession(datalog.Options{})
		err := LoadFacts(ctx, s, src, "missing")
		assert.ErrorIs(t, err, internalerr.ErrNotFound)
	})

	t.Run("arity conflict", func(t *testing.T) {
		s := datalog.NewSession(datalog.Options{})
		require.NoError(t, s.Declare("edge", 3))
		err := LoadFacts(ctx, s, src)
		assert.ErrorIs(t, err, internalerr.ErrArityMismatch)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := datalog.NewSession(datalog.Options{})
		assert.ErrorIs(t, LoadFacts(cctx, s, src), context.Canceled)
	})
}

func TestRunReportsSetupErrors(t *testing.T) {
	cases := map[string]struct {
		src  string
		want error
	}{
		"undeclared fact": {
			src:  "facts:\n  p:\n    - [a]\n",
			want: datalog.ErrUnknownPredicate,
		},
		"unsafe rule": {
			src: `predicates: {p: 1, q: 1}
rules:
  - head: {pred: p, args: ["?X"]}
    body: [{not: {pred: q, args: ["?X"]}}]
`,
			want: datalog.ErrUnsafeRule,
		},
		"negative cycle": {
			src: `predicates: {p: 1, q: 1, d: 1}
rules:
  - head: {pred: p, args: ["?X"]}
    body: [{pred: d, args: ["?X"]}, {not: {pred: q, args: ["?X"]}}]
  - head: {pred: q, args: ["?X"]}
    body: [{pred: d, args: ["?X"]}, {not: {pred: p, args: ["?X"]}}]
`,
			want: datalog.ErrUnstratifiableProgram,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Run(context.Background(), mustProgram(t, tc.src), Options{})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRunExerciseLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ex, err := programs.Lookup("12.4.1")
	require.NoError(t, err)

	rep, err := RunExercise(context.Background(), ex, Options{Logger: zap.New(core)})
	require.NoError(t, err)
	require.Len(t, rep.Results, 2)
	assert.Len(t, rep.Results[0].Rows, 4)

	entries := logs.FilterMessage("program evaluated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "12.4.1", entries[0].ContextMap()["program"])
	assert.Equal(t, 1, logs.FilterMessage("solved").Len())
}

func TestSortRows(t *testing.T) {
	rows := [][]any{
		{"b", int64(1)},
		{int64(10)},
		{"a", int64(2)},
		{nil},
		{2.5},
		{true},
		{"a", int64(1)},
		{int64(2)},
		{false},
	}
	SortRows(rows)
	assert.Equal(t, [][]any{
		{nil},
		{false},
		{true},
		{int64(2)},
		{2.5},
		{int64(10)},
		{"a", int64(1)},
		{"a", int64(2)},
		{"b", int64(1)},
	}, rows)
}

func TestWriteText(t *testing.T) {
	rep, err := Run(context.Background(), mustProgram(t, reachYAML), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "== reach ==\nsession "+rep.Session.ID()))
	assert.Contains(t, out, "reachable(X, X)\n  X = a\n  X = b\n  X = c\n")
	assert.Contains(t, out, `reachable("d", "a")`+"\n  no\n")
	assert.Contains(t, out, `reachable("a", "d")`+"\n  yes\n")
}

func TestRunExerciseText(t *testing.T) {
	ex, err := programs.Lookup("kinship")
	require.NoError(t, err)
	rep, err := RunExercise(context.Background(), ex, Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rep.WriteText(&buf))
	assert.Contains(t, buf.String(), "Zara's great-grandparents: greatgrandparent(X, \"Zara\")\n  X = George\n  X = Mum\n")
}

func TestKinshipProgramFileMatchesExercise(t *testing.T) {
	prog, err := config.LoadProgram(filepath.Join("..", "..", "testdata", "programs", "kinship.yaml"))
	require.NoError(t, err)
	fromFile, err := Run(context.Background(), prog, Options{})
	require.NoError(t, err)

	ex, err := programs.Lookup("kinship")
	require.NoError(t, err)
	builtin, err := RunExercise(context.Background(), ex, Options{})
	require.NoError(t, err)

	require.Len(t, fromFile.Results, len(builtin.Results))
	for i := range builtin.Results {
		assert.Equal(t, builtin.Results[i].Rows, fromFile.Results[i].Rows, builtin.Results[i].Label)
	}
	assert.Equal(t, builtin.Stats.DerivedFacts, fromFile.Stats.DerivedFacts)
}

package fixpoint

import (
	"fmt"
	"io"
	"strings"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
)

// WriteText prints the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	ew := &errWriter{w: w}
	ew.printf("== %s ==\n", r.Name)
	ew.printf("session %s: %d strata, %d rounds, %d base facts, %d derived facts in %s\n",
		r.Session.ID(), r.Stats.Strata, r.Stats.Rounds, r.Stats.BaseFacts, r.Stats.DerivedFacts, r.Stats.Elapsed)

	for _, res := range r.Results {
		if res.Label != res.Query.String() {
			ew.printf("%s: %s\n", res.Label, res.Query)
		} else {
			ew.printf("%s\n", res.Query)
		}

		switch {
		case len(res.Vars) == 0 && len(res.Rows) > 0:
			ew.printf("  yes\n")
		case len(res.Vars) == 0:
			ew.printf("  no\n")
		case len(res.Rows) == 0:
			ew.printf("  (no answers)\n")
		}
		if len(res.Vars) == 0 {
			continue
		}
		for _, row := range res.Rows {
			ew.printf("  %s\n", FormatRow(res.Vars, row))
		}
	}
	return ew.err
}

// FormatRow renders a binding as "X = a, Y = 1".
func FormatRow(vars []datalog.Var, row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		name := "?"
		if i < len(vars) {
			name = string(vars[i])
		}
		parts[i] = fmt.Sprintf("%s = %v", name, display(v))
	}
	return strings.Join(parts, ", ")
}

func display(v any) any {
	if v == nil {
		return "nil"
	}
	return v
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

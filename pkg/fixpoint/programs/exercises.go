// Package programs holds textbook rule programs: family relations and
// Andersen-style points-to analysis with call-graph discovery.
package programs

import (
	"fmt"
	"sort"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/inference"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// Question is a labelled query.
type Question struct {
	Label string
	Atom  datalog.Atom
}

// Exercise is a self-contained program. Setup expects a fresh engine.
type Exercise struct {
	Name      string
	Title     string
	Setup     func(e inference.Engine) error
	Questions []Question
}

// Exercises by name.
var Exercises = map[string]Exercise{
	"kinship": {
		Name:      "kinship",
		Title:     "Family relations",
		Setup:     Kinship,
		Questions: KinshipQueries(),
	},
	"12.4.1":  pointsToExercise("12.4.1", Exercise1241),
	"12.4.3a": pointsToExercise("12.4.3a", Exercise1243a),
	"12.4.3b": pointsToExercise("12.4.3b", Exercise1243b),
	"12.5.1": {
		Name:  "12.5.1",
		Title: "Exercise 12.5.1",
		Setup: func(e inference.Engine) error {
			return Interprocedural(e, Exercise1251())
		},
		Questions: CallGraphQueries(),
	},
}

func pointsToExercise(name string, facts func() []inference.Fact) Exercise {
	return Exercise{
		Name:  name,
		Title: "Exercise " + name,
		Setup: func(e inference.Engine) error {
			return PointsTo(e, facts())
		},
		Questions: PointsToQueries(),
	}
}

// Names returns the exercise names, sorted.
func Names() []string {
	names := make([]string, 0, len(Exercises))
	for name := range Exercises {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named exercise.
func Lookup(name string) (Exercise, error) {
	ex, ok := Exercises[name]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: exercise %q", internalerr.ErrNotFound, name)
	}
	return ex, nil
}

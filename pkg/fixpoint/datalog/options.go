package datalog

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// Strategy selects how rounds within a stratum are evaluated.
type Strategy int

const (
	// SemiNaive joins recursive literals against the previous round's new
	// facts only.
	SemiNaive Strategy = iota
	// Naive re-applies every rule to the whole fact set each round.
	Naive
)

func (s Strategy) String() string {
	switch s {
	case SemiNaive:
		return "seminaive"
	case Naive:
		return "naive"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps "seminaive"/"semi-naive" and "naive" (any case) to a
// Strategy. The empty string selects SemiNaive.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "seminaive", "semi-naive":
		return SemiNaive, nil
	case "naive":
		return Naive, nil
	}
	return 0, fmt.Errorf("%w: unknown strategy %q", internalerr.ErrInvalidConfig, s)
}

// Options configures a Session. The zero value is a sequential semi-naive
// evaluator without a round limit that logs nothing.
type Options struct {
	Logger   *zap.Logger
	Strategy Strategy
	// MaxRounds caps the rounds of one Solve across all strata; 0 means no
	// cap. Exceeding it fails with ErrNonTermination.
	MaxRounds int
	// Workers > 1 evaluates the rules of a round concurrently.
	Workers int
}

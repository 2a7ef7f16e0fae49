package datalog

import (
	"fmt"
	"math"
	"strconv"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
)

// Term is an argument of an atom: a Const or a Var.
type Term interface {
	isTerm()
	String() string
}

// Var is a logic variable. Its scope is the rule or query it appears in.
type Var string

func (Var) isTerm() {}

func (v Var) String() string { return string(v) }

// Const is a constant term. Value holds a normalized scalar (see Normalize).
type Const struct {
	Value any
}

func (Const) isTerm() {}

func (c Const) String() string { return formatValue(c.Value) }

// V returns the variable named name.
func V(name string) Var { return Var(name) }

// C returns a constant term for v. Unsupported values are kept as given and
// rejected once the term reaches a session.
func C(v any) Const {
	if n, err := Normalize(v); err == nil {
		return Const{Value: n}
	}
	return Const{Value: v}
}

// Normalize maps a Go value onto the constant domain: string, bool, int64,
// float64 or nil. Integer kinds collapse to int64 so that 1 and int64(1)
// denote the same constant.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return x, nil
	case Const:
		return Normalize(x.Value)
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUint(x)
	case float32:
		return normalizeFloat(float64(x))
	case float64:
		return normalizeFloat(x)
	}
	return nil, fmt.Errorf("%w: unsupported constant type %T", internalerr.ErrInvalidInput, v)
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: constant %d overflows int64", internalerr.ErrInvalidInput, u)
	}
	return int64(u), nil
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: NaN is not a constant", internalerr.ErrInvalidInput)
	}
	return f, nil
}

// toTerm accepts a Term or a raw value.
func toTerm(v any) Term {
	if t, ok := v.(Term); ok {
		return t
	}
	return C(v)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprint(x)
	}
}

package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Program errors raised by the rule evaluator. All of them are hard failures:
// the caller fixes the program and builds a new session.
var (
	ErrDuplicateDeclaration  = errors.New("duplicate declaration")
	ErrArityMismatch         = errors.New("arity mismatch")
	ErrUnsafeRule            = errors.New("unsafe rule")
	ErrUnstratifiableProgram = errors.New("unstratifiable program")
	ErrUnknownPredicate      = errors.New("unknown predicate")
	ErrNonTermination        = errors.New("round limit exceeded")
)

package datalog

import "github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"

// Errors returned by Session. Match them with errors.Is.
var (
	ErrDuplicateDeclaration  = internalerr.ErrDuplicateDeclaration
	ErrArityMismatch         = internalerr.ErrArityMismatch
	ErrUnsafeRule            = internalerr.ErrUnsafeRule
	ErrUnstratifiableProgram = internalerr.ErrUnstratifiableProgram
	ErrUnknownPredicate      = internalerr.ErrUnknownPredicate
	ErrNonTermination        = internalerr.ErrNonTermination
)

package store

import "context"

// FactSource supplies base facts to a session. Every relation of a source
// is a predicate whose arity is fixed by its columns.
type FactSource interface {
	Close() error

	// Predicates lists the relations of the source, sorted by name
	Predicates(ctx context.Context) ([]Predicate, error)

	// Facts returns every tuple of a relation; unknown relations fail with
	// internalerr.ErrNotFound
	Facts(ctx context.Context, name string) ([][]any, error)
}

// Predicate is a relation name with its arity
type Predicate struct {
	Name  string
	Arity int
}

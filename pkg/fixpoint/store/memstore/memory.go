package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/fixpoint/pkg/fixpoint/datalog"
	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store"
)

// Store is an in-memory implementation of store.FactSource.
type Store struct {
	mu     sync.RWMutex
	arity  map[string]int
	tuples map[string][][]any
	keys   map[string]map[string]bool
}

var _ store.FactSource = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		arity:  make(map[string]int),
		tuples: make(map[string][][]any),
		keys:   make(map[string]map[string]bool),
	}
}

// Close implements store.FactSource.
func (s *Store) Close() error { return nil }

// Add appends a tuple to a relation. The first tuple fixes the arity of the
// relation; duplicates are ignored.
func (s *Store) Add(name string, values ...any) error {
	row := make([]any, len(values))
	for i, v := range values {
		n, err := datalog.Normalize(v)
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", name, i, err)
		}
		row[i] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	arity, ok := s.arity[name]
	if !ok {
		s.arity[name] = len(row)
		s.keys[name] = make(map[string]bool)
	} else if arity != len(row) {
		return fmt.Errorf("%w: %s/%d given %d values", internalerr.ErrArityMismatch, name, arity, len(row))
	}

	key := rowKey(row)
	if s.keys[name][key] {
		return nil
	}
	s.keys[name][key] = true
	s.tuples[name] = append(s.tuples[name], row)
	return nil
}

// Predicates implements store.FactSource.
func (s *Store) Predicates(ctx context.Context) ([]store.Predicate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	preds := make([]store.Predicate, 0, len(s.arity))
	for name, arity := range s.arity {
		preds = append(preds, store.Predicate{Name: name, Arity: arity})
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].Name < preds[j].Name })
	return preds, nil
}

// Facts implements store.FactSource.
func (s *Store) Facts(ctx context.Context, name string) ([][]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.arity[name]; !ok {
		return nil, fmt.Errorf("%w: relation %s", internalerr.ErrNotFound, name)
	}
	out := make([][]any, len(s.tuples[name]))
	for i, row := range s.tuples[name] {
		out[i] = append([]any(nil), row...)
	}
	return out, nil
}

// rowKey distinguishes values by type, so int64(1) and 1.0 stay apart.
func rowKey(row []any) string {
	var b strings.Builder
	for _, v := range row {
		fmt.Fprintf(&b, "%T:%#v;", v, v)
	}
	return b.String()
}

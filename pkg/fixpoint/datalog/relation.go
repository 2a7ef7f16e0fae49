package datalog

import (
	"encoding/binary"
	"sort"
	"sync"
)

// tuple is a fact with every constant replaced by its interned id.
type tuple []int

func (t tuple) key() string {
	buf := make([]byte, 0, len(t)*2)
	for _, id := range t {
		buf = binary.AppendUvarint(buf, uint64(id))
	}
	return string(buf)
}

// relation is the fact set of one predicate. Tuples are append-only, so a
// prefix length identifies the facts known at an earlier point; the
// semi-naive evaluator reads deltas as index ranges.
type relation struct {
	name   string
	arity  int
	tuples []tuple
	keys   map[string]struct{}

	mu    sync.Mutex
	index []map[int][]int // per column: constant id -> positions, nil until first lookup
}

func newRelation(name string, arity int) *relation {
	return &relation{
		name:  name,
		arity: arity,
		keys:  make(map[string]struct{}),
		index: make([]map[int][]int, arity),
	}
}

func (r *relation) len() int { return len(r.tuples) }

func (r *relation) contains(t tuple) bool {
	_, ok := r.keys[t.key()]
	return ok
}

// insert adds t and reports whether it was new.
func (r *relation) insert(t tuple) bool {
	k := t.key()
	if _, ok := r.keys[k]; ok {
		return false
	}
	r.keys[k] = struct{}{}
	pos := len(r.tuples)
	r.tuples = append(r.tuples, t)

	r.mu.Lock()
	for col, idx := range r.index {
		if idx != nil {
			idx[t[col]] = append(idx[t[col]], pos)
		}
	}
	r.mu.Unlock()
	return true
}

// lookup returns the ascending positions of tuples whose column col holds id.
// Column indexes are built on first use; lookup is safe for concurrent
// readers while no insert runs.
func (r *relation) lookup(col, id int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.index[col]
	if idx == nil {
		idx = make(map[int][]int)
		for pos, t := range r.tuples {
			idx[t[col]] = append(idx[t[col]], pos)
		}
		r.index[col] = idx
	}
	return idx[id]
}

// clone copies the fact set. Indexes are rebuilt lazily on the copy.
func (r *relation) clone() *relation {
	c := newRelation(r.name, r.arity)
	c.tuples = make([]tuple, len(r.tuples), len(r.tuples)+len(r.tuples)/2)
	copy(c.tuples, r.tuples)
	for k := range r.keys {
		c.keys[k] = struct{}{}
	}
	return c
}

// span is a half-open range of tuple positions.
type span struct{ lo, hi int }

// positions clips an ascending position list to s.
func (s span) positions(all []int) []int {
	start := sort.SearchInts(all, s.lo)
	end := sort.SearchInts(all, s.hi)
	return all[start:end]
}

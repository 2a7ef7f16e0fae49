package datalog

// symbols interns normalized constants into dense ids so relations can store
// and hash tuples of ints. The table only grows for the life of a session.
type symbols struct {
	ids    map[any]int
	values []any
}

func newSymbols() *symbols {
	return &symbols{ids: make(map[any]int)}
}

func (s *symbols) intern(v any) int {
	if id, ok := s.ids[v]; ok {
		return id
	}
	id := len(s.values)
	s.ids[v] = id
	s.values = append(s.values, v)
	return id
}

func (s *symbols) lookup(v any) (int, bool) {
	id, ok := s.ids[v]
	return id, ok
}

func (s *symbols) value(id int) any {
	return s.values[id]
}

func (s *symbols) decode(t tuple) []any {
	out := make([]any, len(t))
	for i, id := range t {
		out[i] = s.values[id]
	}
	return out
}

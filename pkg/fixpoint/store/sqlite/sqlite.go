package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/fixpoint/pkg/fixpoint/internalerr"
	"github.com/cognicore/fixpoint/pkg/fixpoint/store"
)

// sqliteSource implements store.FactSource over the tables and views of a
// SQLite database
type sqliteSource struct {
	db *sql.DB
}

// OpenSQLite opens an existing SQLite database as a fact source. The
// connection is query-only; derived facts are never written back.
func OpenSQLite(ctx context.Context, path string) (store.FactSource, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: database %s", internalerr.ErrNotFound, path)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// A single connection keeps the pragma below in force for every query
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA query_only=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteSource{db: db}, nil
}

// Close closes the database connection
func (s *sqliteSource) Close() error {
	return s.db.Close()
}

// Predicates lists user tables and views with their column counts
func (s *sqliteSource) Predicates(ctx context.Context) ([]store.Predicate, error) {
	names, err := s.relations(ctx)
	if err != nil {
		return nil, err
	}

	preds := make([]store.Predicate, 0, len(names))
	for _, name := range names {
		arity, err := s.arity(ctx, name)
		if err != nil {
			return nil, err
		}
		preds = append(preds, store.Predicate{Name: name, Arity: arity})
	}
	return preds, nil
}

// Facts returns every row of a table or view as a tuple
func (s *sqliteSource) Facts(ctx context.Context, name string) ([][]any, error) {
	ok, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: relation %s", internalerr.ErrNotFound, name)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var facts [][]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}

		row := make([]any, len(cols))
		for i, v := range raw {
			c, err := convert(v)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, cols[i], err)
			}
			row[i] = c
		}
		facts = append(facts, row)
	}
	return facts, rows.Err()
}

func (s *sqliteSource) relations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqliteSource) exists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name=?", name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *sqliteSource) arity(ctx context.Context, name string) (int, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(name)+")")
	if err != nil {
		return 0, fmt.Errorf("table_info %s: %w", name, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// convert maps a driver value onto a constant
func convert(v any) (any, error) {
	switch x := v.(type) {
	case nil, int64, float64, string, bool:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	}
	return nil, fmt.Errorf("%w: unsupported column value %T", internalerr.ErrInvalidInput, v)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

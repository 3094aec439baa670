// Package store holds the SQL repositories of the back office. A Store is
// either bound to the connection pool or, inside InTx, to one transaction.
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/matthieukhl/backoffice/internal/database"
)

type Store struct {
	db      *database.DB
	q       database.Querier
	dialect database.Dialect
	inTx    bool
}

// New creates a store on top of the connection pool
func New(db *database.DB) *Store {
	return &Store{db: db, q: db, dialect: db.Dialect}
}

// InTx runs fn with a Store bound to a single transaction. On a Store that is
// already bound, fn joins the enclosing transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Store{db: s.db, q: tx, dialect: s.dialect, inTx: true})
	})
}

// InTransaction reports whether the store is bound to a transaction
func (s *Store) InTransaction() bool {
	return s.inTx
}

type scanner interface {
	Scan(dest ...any) error
}

// likePattern escapes LIKE wildcards with '!' so user input matches literally
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}

// orderClause maps an ordering parameter such as "-price" onto a whitelisted
// column. Unknown fields fall back to def.
func orderClause(ordering string, allowed map[string]string, def string) string {
	ordering = strings.TrimSpace(ordering)
	desc := strings.HasPrefix(ordering, "-")
	column, ok := allowed[strings.TrimPrefix(ordering, "-")]
	if !ok {
		return " ORDER BY " + def
	}
	if desc {
		return " ORDER BY " + column + " DESC, " + def
	}
	return " ORDER BY " + column + " ASC, " + def
}

// inClause renders "(?, ?, ?)" for n placeholders
func inClause(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

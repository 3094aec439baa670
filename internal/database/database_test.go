package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/matthieukhl/backoffice/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countCustomers(t *testing.T, db *database.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&n))
	return n
}

func insertCustomer(ctx context.Context, q database.Querier, email string) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO customers (name, email, phone, address, created_at) VALUES (?, ?, '', '', ?)",
		"Test", email, time.Now().UTC())
	return err
}

func TestWithTxCommits(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertCustomer(ctx, tx, "a@example.com")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countCustomers(t, db))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		require.NoError(t, insertCustomer(ctx, tx, "a@example.com"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countCustomers(t, db))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = db.WithTx(ctx, func(tx *sql.Tx) error {
			require.NoError(t, insertCustomer(ctx, tx, "a@example.com"))
			panic("boom")
		})
	})
	assert.Equal(t, 0, countCustomers(t, db))
}

func TestIsUniqueViolation(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, insertCustomer(ctx, db, "dup@example.com"))
	err := insertCustomer(ctx, db, "dup@example.com")
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))

	assert.False(t, database.IsUniqueViolation(nil))
	assert.False(t, database.IsUniqueViolation(errors.New("connection refused")))
}

func TestSchemaIsIdempotentAndDroppable(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, db.SetupSchema(ctx))
	require.NoError(t, insertCustomer(ctx, db, "a@example.com"))
	require.NoError(t, db.CleanupData(ctx))
	assert.Equal(t, 0, countCustomers(t, db))

	require.NoError(t, db.DropSchema(ctx))
	require.NoError(t, db.SetupSchema(ctx))
	assert.Equal(t, 0, countCustomers(t, db))
}

func TestLockClause(t *testing.T) {
	assert.Equal(t, " FOR UPDATE", database.MySQL.LockClause())
	assert.Equal(t, "", database.SQLite.LockClause())
}

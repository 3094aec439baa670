// Package dbtest opens throwaway SQLite databases with the full schema for
// tests that need real transactions.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/matthieukhl/backoffice/internal/config"
	"github.com/matthieukhl/backoffice/internal/database"
	"github.com/stretchr/testify/require"
)

// Open creates a migrated SQLite database in a temporary directory
func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.NewConnection(&config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "backoffice.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.SetupSchema(context.Background()))
	return db
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/matthieukhl/backoffice/internal/config"

	// Pure-Go SQLite driver, registered as "sqlite"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a connection
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// LockClause is appended to a SELECT that must hold the selected rows until
// the transaction ends. SQLite transactions are opened with BEGIN IMMEDIATE
// and already own the database write lock.
func (d Dialect) LockClause() string {
	if d == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Querier is satisfied by *sql.DB, *sql.Tx and *DB
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewConnection creates a new database connection using the provided config
func NewConnection(cfg *config.DBConfig) (*DB, error) {
	var (
		dialect Dialect
		dsn     = cfg.DSN
	)
	switch cfg.Driver {
	case config.DriverMySQL, "":
		dialect = MySQL
	case config.DriverSQLite:
		dialect = SQLite
		dsn = sqliteDSN(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db, Dialect: dialect}, nil
}

// sqliteDSN turns a plain path into a DSN with foreign keys on, WAL, a busy
// timeout and immediate transactions. Full "file:" DSNs are used as given.
func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(on)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
}

// HealthCheck performs a simple health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

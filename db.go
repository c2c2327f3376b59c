package rtpsim

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Database drivers returned by OpenDB.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

var (
	dbOnce   sync.Once
	dbConn   *sql.DB
	dbDriver string
	dbErr    error
)

// GetDB returns the shared handle for DATABASE_URL. It returns nil, nil
// when DATABASE_URL is unset so callers fall back to file storage.
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return
		}
		dbConn, dbDriver, dbErr = OpenDB(dsn)
	})
	if dbErr != nil {
		return nil, dbErr
	}
	return dbConn, nil
}

// Driver reports the driver behind GetDB, or "" when there is no database.
func Driver() string {
	_, _ = GetDB()
	return dbDriver
}

// OpenDB opens dsn. "sqlite://path", "file:..." and paths ending in .db
// use SQLite; anything else is treated as a Postgres URL.
func OpenDB(dsn string) (*sql.DB, string, error) {
	if path, ok := sqlitePath(dsn); ok {
		db, err := sql.Open(DriverSQLite, path)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		// One writer at a time; WAL lets readers continue during writes.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, "", fmt.Errorf("enable WAL mode: %w", err)
		}
		return db, DriverSQLite, nil
	}

	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, "", err
	}
	// Avoid "prepared statement already exists" with PgBouncer/Supabase: use simple protocol (no server-side prepared statements).
	config.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	db := stdlib.OpenDB(*config)
	db.SetConnMaxIdleTime(4 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", err
	}
	return db, DriverPostgres, nil
}

func sqlitePath(dsn string) (string, bool) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return strings.TrimPrefix(dsn, "sqlite://"), true
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		return dsn, true
	}
	return "", false
}

// Builder returns a squirrel statement builder with the placeholder style
// of driver.
func Builder(driver string) sq.StatementBuilderType {
	if driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

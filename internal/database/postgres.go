package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/themizzi/retailcheck/internal/config"
)

// Dialect is the SQL flavour of the connected results database
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var (
	DB *sql.DB
	// Current is the dialect of DB.
	Current Dialect
)

// Connect opens the results database: PostgreSQL when the POSTGRES_* variables
// are set, otherwise a SQLite file at sqlitePath.
func Connect(getenv func(string) string, sqlitePath string) error {
	pgConfig, err := config.LoadPostgresConfig(getenv)
	switch {
	case err == nil:
		DB, err = OpenPostgres(pgConfig)
		Current = Postgres
	case errors.Is(err, config.ErrPostgresNotConfigured):
		DB, err = OpenSQLite(sqlitePath)
		Current = SQLite
	default:
		return fmt.Errorf("failed to load postgres config: %w", err)
	}
	return err
}

// OpenPostgres connects to PostgreSQL and verifies the connection
func OpenPostgres(pgConfig *config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", pgConfig.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; concurrent workers queue on the connection
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Rebind rewrites ? placeholders to $n for PostgreSQL
func Rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// New opens a database connection for the given driver and DSN.
// For SQLite the DSN is a file path and foreign keys are enabled.
func New(driver, dsn string) (*sql.DB, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if driver == DriverSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		// Enable foreign keys (disabled by default in SQLite)
		if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the query ledger tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB, driver string) error {
	idType := "TEXT"
	if driver == DriverPostgres {
		idType = "UUID"
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS backend_query_status (
			query_id ` + idType + ` PRIMARY KEY,
			status TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS backend_query_detail (
			query_id ` + idType + ` PRIMARY KEY,
			query_text TEXT,
			timestamp TIMESTAMP,
			total_latency DOUBLE PRECISION,
			vdb_name TEXT,
			vdb_index TEXT,
			vdb_latency DOUBLE PRECISION,
			llm_model TEXT,
			llm_latency DOUBLE PRECISION,
			rnk_model TEXT,
			rnk_latency DOUBLE PRECISION,
			info TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_backend_query_detail_timestamp ON backend_query_detail (timestamp);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// rebind rewrites '?' placeholders into the driver's bind style.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Package store persists genesets and symbol mapping tables in DuckDB so
// they can be listed, re-exported and chained without re-parsing sources.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// ErrNotFound is returned when a named geneset or mapping table is absent.
var ErrNotFound = errors.New("not found")

// Store manages a DuckDB connection holding imported genesets and mappings.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS import_runs (
		run_id VARCHAR PRIMARY KEY,
		kind VARCHAR,
		source VARCHAR,
		source_size BIGINT,
		source_modtime VARCHAR,
		imported_at VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS genesets (
		name VARCHAR PRIMARY KEY,
		abbreviation VARCHAR,
		description VARCHAR,
		species VARCHAR,
		score_type VARCHAR,
		gene_identifier VARCHAR,
		access VARCHAR,
		groups VARCHAR,
		pubmed_id VARCHAR,
		run_id VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS gene_values (
		geneset VARCHAR,
		seq BIGINT,
		symbol VARCHAR,
		value DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS symbol_mappings (
		table_name VARCHAR,
		seq BIGINT,
		source VARCHAR,
		target VARCHAR,
		run_id VARCHAR
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes all stored genesets, mappings and import runs.
func (s *Store) Clear() error {
	for _, table := range []string{"gene_values", "genesets", "symbol_mappings", "import_runs"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// appendRows bulk-inserts rows into table using the Appender API.
func (s *Store) appendRows(table string, n int, row func(i int) []driver.Value) error {
	if n == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i := 0; i < n; i++ {
		if err := appender.AppendRow(row(i)...); err != nil {
			return fmt.Errorf("append %s row: %w", table, err)
		}
	}

	return appender.Flush()
}

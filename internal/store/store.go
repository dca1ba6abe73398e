// Package store provides the SQLite-backed email archive with full-text search.
//
// Full-text search needs the driver compiled with FTS5 (build tag
// sqlite_fts5). Without it the archive still opens and stores emails;
// Search returns ErrFTS5Unavailable.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

//go:embed schema_fts.sql
var ftsSchemaSQL string

// ErrFTS5Unavailable is returned by Search when the driver was compiled
// without the FTS5 module.
var ErrFTS5Unavailable = errors.New("full-text search requires SQLite with FTS5 (build with -tags sqlite_fts5)")

// _recursive_triggers=ON makes the FTS delete trigger fire for the implicit
// delete performed by INSERT OR REPLACE, keeping emails_fts a pure function
// of the emails table across upserts.
const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON&_recursive_triggers=ON"

// Store wraps the archive database connection.
type Store struct {
	db            *sql.DB
	dbPath        string
	fts5Available bool
}

// isSQLiteError checks if err is a sqlite3.Error whose message contains substr.
// Type-asserting with errors.As is more robust than strings.Contains on
// err.Error(). Handles both value and pointer forms of the driver error.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InitSchema creates the tables, indexes, FTS virtual table, and triggers.
// Every statement uses IF NOT EXISTS, so this is safe to call on every open.
// The FTS5 part is optional: a driver built without the module leaves the
// archive fully functional except for Search.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	if _, err := s.db.Exec(ftsSchemaSQL); err != nil {
		if isSQLiteError(err, "no such module: fts5") {
			s.fts5Available = false
			return nil
		}
		return fmt.Errorf("execute fts schema: %w", err)
	}
	s.fts5Available = true
	return nil
}

// FTS5Available reports whether the full-text index was set up. False when
// the driver lacks the FTS5 module.
func (s *Store) FTS5Available() bool {
	return s.fts5Available
}

// withTx executes fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// DomainCount is one entry of a top-domains ranking.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// SenderCount is one entry of a top-senders ranking.
type SenderCount struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Stats holds archive statistics.
type Stats struct {
	TotalEmails   int64         `json:"total_emails"`
	TotalThreads  int64         `json:"total_threads"`
	UniqueDomains int64         `json:"unique_domains"`
	TopDomains    []DomainCount `json:"top_domains"`
	TopSenders    []SenderCount `json:"top_senders"`
}

// GetStats returns statistics about the archive.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM emails", &stats.TotalEmails},
		{"SELECT COUNT(DISTINCT thread_id) FROM emails", &stats.TotalThreads},
		{"SELECT COUNT(DISTINCT from_domain) FROM emails", &stats.UniqueDomains},
	}
	for _, q := range counts {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			if isSQLiteError(err, "no such table") {
				continue
			}
			return nil, fmt.Errorf("get stats %q: %w", q.query, err)
		}
	}

	rows, err := s.db.Query(`
		SELECT from_domain, COUNT(*) AS count
		FROM emails
		GROUP BY from_domain
		ORDER BY count DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top domains: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc DomainCount
		if err := rows.Scan(&dc.Domain, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan top domain: %w", err)
		}
		stats.TopDomains = append(stats.TopDomains, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	senderRows, err := s.db.Query(`
		SELECT from_email, from_name, COUNT(*) AS count
		FROM emails
		GROUP BY from_email
		ORDER BY count DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("top senders: %w", err)
	}
	defer senderRows.Close()
	for senderRows.Next() {
		var sc SenderCount
		if err := senderRows.Scan(&sc.Email, &sc.Name, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan top sender: %w", err)
		}
		stats.TopSenders = append(stats.TopSenders, sc)
	}
	if err := senderRows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"insider-data/internal/model"
)

const seenSchema = `
CREATE TABLE IF NOT EXISTS seen_operations (
	eid          TEXT NOT NULL,
	operation_id TEXT NOT NULL,
	seen_date    TEXT NOT NULL,
	PRIMARY KEY (eid, operation_id)
)`

// SQLiteSeenStore keeps the discovery cache in a single SQLite file.
type SQLiteSeenStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteSeenStore opens (or creates) <dir>/seen.db.
func NewSQLiteSeenStore(dir string) (*SQLiteSeenStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating seen directory: %w", err)
	}
	dbPath := filepath.Join(dir, "seen.db")

	// Open database with WAL mode so concurrent entity runs can write
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(seenSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteSeenStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteSeenStore) Path() string { return s.path }

func (s *SQLiteSeenStore) Seen(ctx context.Context, eid string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT operation_id FROM seen_operations WHERE eid = ?`, eid)
	if err != nil {
		return nil, &StorageError{Op: "read seen", EID: eid, Err: err}
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var oid string
		if err := rows.Scan(&oid); err != nil {
			return nil, &StorageError{Op: "read seen", EID: eid, Err: err}
		}
		out[oid] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "read seen", EID: eid, Err: err}
	}
	return out, nil
}

func (s *SQLiteSeenStore) Record(ctx context.Context, eid string, oids []string, at time.Time) error {
	if len(oids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "write seen", EID: eid, Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_operations (eid, operation_id, seen_date) VALUES (?, ?, ?)`)
	if err != nil {
		return &StorageError{Op: "write seen", EID: eid, Err: err}
	}
	defer stmt.Close()

	date := at.UTC().Format(model.DateLayout)
	for _, oid := range oids {
		if _, err := stmt.ExecContext(ctx, eid, oid, date); err != nil {
			return &StorageError{Op: "write seen", EID: eid, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "write seen", EID: eid, Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteSeenStore) Close() error {
	return s.db.Close()
}

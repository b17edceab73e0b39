package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates a SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}
	// a second connection to ":memory:" would see a different database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			saved INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			body TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS snapshots_name ON snapshots(name);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, now: time.Now}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("store: unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}
	return s, nil
}

// Save stores a snapshot under name.
func (s *SQLite) Save(ctx context.Context, name string, snap workbook.Snapshot) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	body, err := encode(snap)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, name, saved, cells, body) VALUES (?, ?, ?, ?, ?)
	`, id, name, s.now().UnixNano(), len(snap.Cells), body)
	if err != nil {
		return "", fmt.Errorf("store: saving %q: %w", name, err)
	}
	return id, nil
}

// Load returns the snapshot with id ref, or the newest one named ref.
func (s *SQLite) Load(ctx context.Context, ref string) (workbook.Snapshot, Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const columns = "SELECT id, name, saved, cells, body FROM snapshots "
	e, body, err := scanEntry(s.db.QueryRowContext(ctx, columns+"WHERE id = ?", ref))
	if errors.Is(err, sql.ErrNoRows) {
		e, body, err = scanEntry(s.db.QueryRowContext(ctx,
			columns+"WHERE name = ? ORDER BY seq DESC LIMIT 1", ref))
	}
	if errors.Is(err, sql.ErrNoRows) {
		return workbook.Snapshot{}, Entry{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	if err != nil {
		return workbook.Snapshot{}, Entry{}, err
	}
	snap, err := decode(body)
	if err != nil {
		return workbook.Snapshot{}, Entry{}, err
	}
	return snap, e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, string, error) {
	var (
		e     Entry
		saved int64
		body  string
	)
	if err := row.Scan(&e.ID, &e.Name, &saved, &e.Cells, &body); err != nil {
		return Entry{}, "", err
	}
	e.Saved = time.Unix(0, saved)
	e.Size = len(body)
	return e, body, nil
}

// List returns every snapshot, oldest first.
func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, saved, cells, body FROM snapshots ORDER BY seq")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Package store persists workbook snapshots.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

var (
	// ErrNotFound is returned when no snapshot matches an id or name
	ErrNotFound = errors.New("store: snapshot not found")
	// ErrEmptyName is returned when saving without a name
	ErrEmptyName = errors.New("store: snapshot name is empty")
)

// Entry describes one saved snapshot
type Entry struct {
	ID    string
	Name  string
	Saved time.Time
	Cells int
	// Size is the encoded snapshot size in bytes
	Size int
}

// Store is the interface for snapshot persistence.
type Store interface {
	// Save stores a snapshot under name and returns its new id. saving the
	// same name again keeps the older versions.
	Save(ctx context.Context, name string, s workbook.Snapshot) (string, error)
	// Load returns the snapshot with the given id, or the newest one saved
	// under that name.
	Load(ctx context.Context, ref string) (workbook.Snapshot, Entry, error)
	// List returns every snapshot, oldest first.
	List(ctx context.Context) ([]Entry, error)
	// Delete removes the snapshot with the given id.
	Delete(ctx context.Context, id string) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*Memory)(nil)
)

// Open returns a SQLite store at path, or a memory store when path is
// empty or ":memory:"
func Open(path string) (Store, error) {
	if path == "" || path == ":memory:" {
		return NewMemory(), nil
	}
	return NewSQLite(path)
}

func encode(s workbook.Snapshot) (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("store: encoding snapshot: %w", err)
	}
	return string(b), nil
}

func decode(body string) (workbook.Snapshot, error) {
	var s workbook.Snapshot
	if err := yaml.Unmarshal([]byte(body), &s); err != nil {
		return workbook.Snapshot{}, fmt.Errorf("store: decoding snapshot: %w", err)
	}
	return s, nil
}

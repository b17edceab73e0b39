package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vogtb/go-spreadsheet/packages/formula/workbook"
)

type memoryEntry struct {
	Entry
	body string
}

// Memory is an in-memory store for testing.
type Memory struct {
	mu      sync.RWMutex
	entries []memoryEntry
	now     func() time.Time
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// Save stores a snapshot under name.
func (m *Memory) Save(_ context.Context, name string, snap workbook.Snapshot) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	body, err := encode(snap)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{
		Entry: Entry{
			ID:    uuid.NewString(),
			Name:  name,
			Saved: m.now(),
			Cells: len(snap.Cells),
			Size:  len(body),
		},
		body: body,
	}
	m.entries = append(m.entries, e)
	return e.ID, nil
}

// Load returns the snapshot with id ref, or the newest one named ref.
func (m *Memory) Load(_ context.Context, ref string) (workbook.Snapshot, Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	found := -1
	for i, e := range m.entries {
		if e.ID == ref {
			found = i
			break
		}
		if e.Name == ref {
			found = i
		}
	}
	if found < 0 {
		return workbook.Snapshot{}, Entry{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}
	snap, err := decode(m.entries[found].body)
	if err != nil {
		return workbook.Snapshot{}, Entry{}, err
	}
	return snap, m.entries[found].Entry, nil
}

// List returns every snapshot, oldest first.
func (m *Memory) List(context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		out = append(out, e.Entry)
	}
	return out, nil
}

// Delete removes a snapshot by id.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

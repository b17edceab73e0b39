// Package tracker indexes the references held by formulas so structural
// edits can find the formulas touching a range, and owns the derived
// caches of database tables and lookup results.
//
// a Tracker is scoped to one workbook and is not safe for concurrent use.
// it holds token values and owner ids only, never the formulas themselves.
package tracker

import (
	"errors"
	"iter"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/criteria"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// ErrClosed is returned by every operation on a closed tracker
var ErrClosed = errors.New("tracker: closed")

// FormulaID identifies the formula owning tracked references
type FormulaID uint32

// State is the registration state of an entry
type State uint8

const (
	// Registered entries are indexed and found by FindFormulasTouching
	Registered State = iota
	// Detached entries were collapsed to #REF! by a structural edit and are
	// no longer indexed
	Detached
)

func (s State) String() string {
	if s == Detached {
		return "detached"
	}
	return "registered"
}

// Entry is one tracked reference of a formula
type Entry struct {
	Owner  FormulaID
	Ref    token.Token
	Anchor reference.Anchor
	Range  reference.Range
	State  State

	parts []reference.Range // per-sheet pieces of Range as indexed
}

// Tracker maps tracked references to the formulas holding them
type Tracker struct {
	resolver *reference.Resolver

	// sheet interning for RefKeys; ordinals are never reused

	sheetOrdinals map[string]uint16

	// reference indexes

	cells   map[reference.RefKey]map[FormulaID]struct{} // single cells -> owners
	areas   map[reference.Range]map[FormulaID]struct{}  // single-sheet areas -> owners
	entries map[FormulaID][]*Entry                      // owner -> its references

	// derived caches

	tables  *Cache[*criteria.Table]
	lookups *Cache[int]

	closed bool
}

// New creates a tracker resolving references with resolver
func New(resolver *reference.Resolver) *Tracker {
	return &Tracker{
		resolver:      resolver,
		sheetOrdinals: make(map[string]uint16),
		cells:         make(map[reference.RefKey]map[FormulaID]struct{}),
		areas:         make(map[reference.Range]map[FormulaID]struct{}),
		entries:       make(map[FormulaID][]*Entry),
		tables:        NewCache[*criteria.Table](),
		lookups:       NewCache[int](),
	}
}

// Register records that owner holds the reference t evaluated at anchor.
// registering the same owner and resolved coordinate twice is a no-op.
// references that do not resolve return the resolution error and are not
// recorded.
func (t *Tracker) Register(owner FormulaID, ref token.Token, anchor reference.Anchor) error {
	if t.closed {
		return ErrClosed
	}
	if list, ok := ref.(*token.RefList); ok {
		for _, member := range list.Refs {
			if err := t.Register(owner, member, anchor); err != nil {
				return err
			}
		}
		return nil
	}
	ranges, err := t.resolver.ResolveAll(ref, anchor)
	if err != nil {
		return err
	}
	for _, rng := range ranges {
		if t.registered(owner, rng) {
			continue
		}
		e := &Entry{
			Owner:  owner,
			Ref:    ref,
			Anchor: anchor,
			Range:  rng,
			State:  Registered,
		}
		t.index(e)
		t.entries[owner] = append(t.entries[owner], e)
	}
	return nil
}

func (t *Tracker) registered(owner FormulaID, rng reference.Range) bool {
	for _, e := range t.entries[owner] {
		if e.State == Registered && e.Range == rng {
			return true
		}
	}
	return false
}

// Unregister removes the owner's entry for a reference
func (t *Tracker) Unregister(owner FormulaID, ref token.Token, anchor reference.Anchor) error {
	if t.closed {
		return ErrClosed
	}
	if list, ok := ref.(*token.RefList); ok {
		for _, member := range list.Refs {
			if err := t.Unregister(owner, member, anchor); err != nil {
				return err
			}
		}
		return nil
	}
	rng, resolveErr := t.resolver.Resolve(ref, anchor)
	var kept, removed []*Entry
	for _, e := range t.entries[owner] {
		match := resolveErr == nil && e.State == Registered && e.Range == rng
		if !match {
			match = token.Equal(e.Ref, ref) && e.Anchor == anchor
		}
		if match {
			removed = append(removed, e)
		} else {
			kept = append(kept, e)
		}
	}
	t.setEntries(owner, kept)
	for _, e := range removed {
		t.unindex(e)
	}
	return nil
}

// Forget drops every entry of a deleted formula
func (t *Tracker) Forget(owner FormulaID) error {
	if t.closed {
		return ErrClosed
	}
	entries := t.entries[owner]
	delete(t.entries, owner)
	for _, e := range entries {
		t.unindex(e)
	}
	return nil
}

// Entries returns copies of the owner's entries in registration order
func (t *Tracker) Entries(owner FormulaID) []Entry {
	out := make([]Entry, 0, len(t.entries[owner]))
	for _, e := range t.entries[owner] {
		out = append(out, *e)
	}
	return out
}

// Owners returns every formula with tracked references in ascending order
func (t *Tracker) Owners() []FormulaID {
	out := make([]FormulaID, 0, len(t.entries))
	for id := range t.entries {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// FindFormulasTouching returns the owners of every registered reference
// that overlaps r. the sequence is computed when it is ranged over, so it
// can be restarted, and yields owners in ascending order.
func (t *Tracker) FindFormulasTouching(r reference.Range) iter.Seq[FormulaID] {
	return func(yield func(FormulaID) bool) {
		if t.closed {
			return
		}
		found := make(map[FormulaID]struct{})
		for _, part := range t.resolver.Expand(r) {
			t.collect(part, found)
		}
		ids := make([]FormulaID, 0, len(found))
		for id := range found {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

func (t *Tracker) collect(part reference.Range, found map[FormulaID]struct{}) {
	if ordinal, ok := t.sheetOrdinals[part.FirstSheet]; ok {
		if part.Size() <= int64(len(t.cells)) {
			for row := part.FirstRow; row <= part.LastRow; row++ {
				for col := part.FirstCol; col <= part.LastCol; col++ {
					for id := range t.cells[reference.NewRefKey(ordinal, row, col)] {
						found[id] = struct{}{}
					}
				}
			}
		} else {
			for key, owners := range t.cells {
				sheet, row, col := key.Decode()
				if sheet == ordinal && part.Contains(part.FirstSheet, row, col) {
					for id := range owners {
						found[id] = struct{}{}
					}
				}
			}
		}
	}
	for area, owners := range t.areas {
		if area.Overlaps(part) {
			for id := range owners {
				found[id] = struct{}{}
			}
		}
	}
}

// Shift applies a structural edit to every entry of owner in place. each
// entry is shifted from the anchor it was registered at. entries whose reference
// collapses to #REF! become Detached; names are left for the caller to
// re-register once their definitions move. it returns the shifted references in
// registration order.
func (t *Tracker) Shift(owner FormulaID, dRows, dCols int32, pivot reference.Pivot) ([]token.Token, error) {
	if t.closed {
		return nil, ErrClosed
	}
	entries := t.entries[owner]
	out := make([]token.Token, 0, len(entries))
	for _, e := range entries {
		if _, isName := e.Ref.(token.NameRef); isName || e.State == Detached {
			out = append(out, e.Ref)
			continue
		}
		t.unindex(e)
		e.Ref = t.resolver.Shift(e.Ref, e.Anchor, dRows, dCols, pivot)
		if anchor, ok := t.resolver.ShiftAnchor(e.Anchor, dRows, dCols, pivot); ok {
			e.Anchor = anchor
		}
		rng, err := t.resolver.Resolve(e.Ref, e.Anchor)
		if err != nil {
			e.State = Detached
			e.Range = reference.Range{}
		} else {
			e.Range = rng
			t.index(e)
		}
		out = append(out, e.Ref)
	}
	return out, nil
}

// ClearCaches empties the database-table and lookup caches. registrations
// are untouched.
func (t *Tracker) ClearCaches() {
	t.tables.Clear()
	t.lookups.Clear()
}

// Table returns a cached database or criteria table
func (t *Tracker) Table(key string) (*criteria.Table, bool) {
	if t.closed {
		return nil, false
	}
	return t.tables.Get(key)
}

// PutTable caches a parsed table under the text of its range
func (t *Tracker) PutTable(key string, table *criteria.Table) {
	if !t.closed {
		t.tables.Put(key, table)
	}
}

// Lookup returns a cached lookup result index
func (t *Tracker) Lookup(key string) (int, bool) {
	if t.closed {
		return 0, false
	}
	return t.lookups.Get(key)
}

// PutLookup caches the position a lookup found
func (t *Tracker) PutLookup(key string, index int) {
	if !t.closed {
		t.lookups.Put(key, index)
	}
}

// Stats summarizes the tracker's indexes and caches
type Stats struct {
	Owners      int
	Cells       int
	Areas       int
	Tables      int
	Lookups     int
	CacheHits   int
	CacheMisses int
}

// Stats returns index and cache sizes
func (t *Tracker) Stats() Stats {
	th, tm := t.tables.Stats()
	lh, lm := t.lookups.Stats()
	return Stats{
		Owners:      len(t.entries),
		Cells:       len(t.cells),
		Areas:       len(t.areas),
		Tables:      t.tables.Len(),
		Lookups:     t.lookups.Len(),
		CacheHits:   th + lh,
		CacheMisses: tm + lm,
	}
}

// Close tears the tracker down. every later call fails with ErrClosed or
// finds nothing.
func (t *Tracker) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true
	t.cells = make(map[reference.RefKey]map[FormulaID]struct{})
	t.areas = make(map[reference.Range]map[FormulaID]struct{})
	t.entries = make(map[FormulaID][]*Entry)
	t.ClearCaches()
	return nil
}

func (t *Tracker) setEntries(owner FormulaID, entries []*Entry) {
	if len(entries) == 0 {
		delete(t.entries, owner)
		return
	}
	t.entries[owner] = entries
}

func (t *Tracker) ordinal(sheet string) uint16 {
	if id, ok := t.sheetOrdinals[sheet]; ok {
		return id
	}
	id := uint16(len(t.sheetOrdinals))
	t.sheetOrdinals[sheet] = id
	return id
}

func (t *Tracker) index(e *Entry) {
	e.parts = t.resolver.Expand(e.Range)
	for _, part := range e.parts {
		if part.IsCell() {
			key := reference.NewRefKey(t.ordinal(part.FirstSheet), part.FirstRow, part.FirstCol)
			if t.cells[key] == nil {
				t.cells[key] = make(map[FormulaID]struct{})
			}
			t.cells[key][e.Owner] = struct{}{}
			continue
		}
		if t.areas[part] == nil {
			t.areas[part] = make(map[FormulaID]struct{})
		}
		t.areas[part][e.Owner] = struct{}{}
	}
}

// unindex removes an entry from the indexes unless another entry of the
// same owner still covers the same cell or area
func (t *Tracker) unindex(e *Entry) {
	for _, part := range e.parts {
		if t.stillCovered(e, part) {
			continue
		}
		if part.IsCell() {
			key := reference.NewRefKey(t.ordinal(part.FirstSheet), part.FirstRow, part.FirstCol)
			if owners, ok := t.cells[key]; ok {
				delete(owners, e.Owner)
				if len(owners) == 0 {
					delete(t.cells, key)
				}
			}
			continue
		}
		if owners, ok := t.areas[part]; ok {
			delete(owners, e.Owner)
			if len(owners) == 0 {
				delete(t.areas, part)
			}
		}
	}
	e.parts = nil
}

func (t *Tracker) stillCovered(e *Entry, part reference.Range) bool {
	for _, other := range t.entries[e.Owner] {
		if other == e || other.State != Registered {
			continue
		}
		if slices.Contains(other.parts, part) {
			return true
		}
	}
	return false
}

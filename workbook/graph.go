package workbook

import (
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// DependencyGraph holds the recalculation state of formulas. which
// formulas read which cells lives in the tracker; the graph keeps what
// the tracker cannot answer: dirtiness, volatility, the names each
// formula reads and the formulas holding references that did not resolve.
type DependencyGraph struct {
	dirty      map[tracker.FormulaID]struct{}
	volatile   map[tracker.FormulaID]struct{}
	unresolved map[tracker.FormulaID]struct{}

	nameUsers map[string]map[tracker.FormulaID]struct{} // folded name -> formulas
	names     map[tracker.FormulaID][]string            // formula -> folded names
}

// NewDependencyGraph creates an empty graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		dirty:      make(map[tracker.FormulaID]struct{}),
		volatile:   make(map[tracker.FormulaID]struct{}),
		unresolved: make(map[tracker.FormulaID]struct{}),
		nameUsers:  make(map[string]map[tracker.FormulaID]struct{}),
		names:      make(map[tracker.FormulaID][]string),
	}
}

// MarkDirty flags a formula for recalculation
func (dg *DependencyGraph) MarkDirty(id tracker.FormulaID) {
	dg.dirty[id] = struct{}{}
}

// ClearDirty clears the dirty flag of a formula
func (dg *DependencyGraph) ClearDirty(id tracker.FormulaID) {
	delete(dg.dirty, id)
}

// IsDirty reports whether a formula needs recalculation
func (dg *DependencyGraph) IsDirty(id tracker.FormulaID) bool {
	_, ok := dg.dirty[id]
	return ok
}

// Dirty returns the dirty formulas in id order
func (dg *DependencyGraph) Dirty() []tracker.FormulaID {
	return sortedIDs(dg.dirty)
}

// MarkVolatile records that a formula calls a volatile function
func (dg *DependencyGraph) MarkVolatile(id tracker.FormulaID) {
	dg.volatile[id] = struct{}{}
}

// IsVolatile reports whether a formula is volatile
func (dg *DependencyGraph) IsVolatile(id tracker.FormulaID) bool {
	_, ok := dg.volatile[id]
	return ok
}

// Volatile returns the volatile formulas in id order
func (dg *DependencyGraph) Volatile() []tracker.FormulaID {
	return sortedIDs(dg.volatile)
}

// MarkAllVolatileDirty marks every volatile formula dirty
func (dg *DependencyGraph) MarkAllVolatileDirty() {
	for id := range dg.volatile {
		dg.dirty[id] = struct{}{}
	}
}

// MarkUnresolved records that a formula holds a reference to a sheet or
// name that does not exist yet
func (dg *DependencyGraph) MarkUnresolved(id tracker.FormulaID) {
	dg.unresolved[id] = struct{}{}
}

// Unresolved returns the formulas with dangling references in id order
func (dg *DependencyGraph) Unresolved() []tracker.FormulaID {
	return sortedIDs(dg.unresolved)
}

// UseName records that a formula reads a defined name
func (dg *DependencyGraph) UseName(id tracker.FormulaID, name string) {
	key := token.Fold(name)
	if slices.Contains(dg.names[id], key) {
		return
	}
	dg.names[id] = append(dg.names[id], key)
	users, ok := dg.nameUsers[key]
	if !ok {
		users = make(map[tracker.FormulaID]struct{})
		dg.nameUsers[key] = users
	}
	users[id] = struct{}{}
}

// NameUsers returns the formulas reading a name in id order
func (dg *DependencyGraph) NameUsers(name string) []tracker.FormulaID {
	return sortedIDs(dg.nameUsers[token.Fold(name)])
}

// UsesNames reports whether a formula reads any defined name
func (dg *DependencyGraph) UsesNames(id tracker.FormulaID) bool {
	return len(dg.names[id]) > 0
}

// ReferencedNames returns every folded name read by some formula
func (dg *DependencyGraph) ReferencedNames() []string {
	out := make([]string, 0, len(dg.nameUsers))
	for name := range dg.nameUsers {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Reset drops the reference bookkeeping of a formula before its
// references are registered again. dirtiness and volatility are kept.
func (dg *DependencyGraph) Reset(id tracker.FormulaID) {
	delete(dg.unresolved, id)
	for _, name := range dg.names[id] {
		users := dg.nameUsers[name]
		delete(users, id)
		if len(users) == 0 {
			delete(dg.nameUsers, name)
		}
	}
	delete(dg.names, id)
}

// Forget removes every trace of a deleted formula
func (dg *DependencyGraph) Forget(id tracker.FormulaID) {
	dg.Reset(id)
	delete(dg.dirty, id)
	delete(dg.volatile, id)
}

func sortedIDs(set map[tracker.FormulaID]struct{}) []tracker.FormulaID {
	out := make([]tracker.FormulaID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

package workbook

import (
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// WorksheetTable keeps worksheets in workbook order. names are matched
// ignoring case but kept as defined.
type WorksheetTable struct {
	order  []*Worksheet
	byName map[string]*Worksheet // folded name -> worksheet
}

// NewWorksheetTable creates an empty table
func NewWorksheetTable() *WorksheetTable {
	return &WorksheetTable{byName: make(map[string]*Worksheet)}
}

// Define appends a worksheet. it reports false when the name is taken.
func (wt *WorksheetTable) Define(ws *Worksheet) bool {
	key := token.Fold(ws.name)
	if _, exists := wt.byName[key]; exists {
		return false
	}
	wt.byName[key] = ws
	wt.order = append(wt.order, ws)
	return true
}

// Undefine removes a worksheet and returns it
func (wt *WorksheetTable) Undefine(name string) (*Worksheet, bool) {
	key := token.Fold(name)
	ws, ok := wt.byName[key]
	if !ok {
		return nil, false
	}
	delete(wt.byName, key)
	wt.order = slices.DeleteFunc(wt.order, func(w *Worksheet) bool { return w == ws })
	return ws, true
}

// Rename changes a worksheet's name in place, keeping its position
func (wt *WorksheetTable) Rename(from, to string) bool {
	ws, ok := wt.byName[token.Fold(from)]
	if !ok {
		return false
	}
	if other, taken := wt.byName[token.Fold(to)]; taken && other != ws {
		return false
	}
	delete(wt.byName, token.Fold(from))
	ws.name = to
	wt.byName[token.Fold(to)] = ws
	return true
}

// Get returns a worksheet by name
func (wt *WorksheetTable) Get(name string) (*Worksheet, bool) {
	ws, ok := wt.byName[token.Fold(name)]
	return ws, ok
}

// Index returns the position of a worksheet in workbook order
func (wt *WorksheetTable) Index(name string) (int, bool) {
	ws, ok := wt.byName[token.Fold(name)]
	if !ok {
		return 0, false
	}
	return slices.Index(wt.order, ws), true
}

// Names returns the worksheet names in workbook order
func (wt *WorksheetTable) Names() []string {
	out := make([]string, len(wt.order))
	for i, ws := range wt.order {
		out[i] = ws.name
	}
	return out
}

// All returns the worksheets in workbook order
func (wt *WorksheetTable) All() []*Worksheet {
	return wt.order
}

// Len returns the number of worksheets
func (wt *WorksheetTable) Len() int {
	return len(wt.order)
}

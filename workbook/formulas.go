package workbook

import (
	"cmp"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// Formula is a compiled formula stored in a cell. its id is the owner id
// of the references registered with the tracker.
type Formula struct {
	ID     tracker.FormulaID
	Anchor reference.Anchor
	Tokens []token.Token
	Cached token.Token
}

// Text renders the formula back to input text, with the leading '='
func (f *Formula) Text() string {
	text, ok := token.Format(f.Tokens)
	if !ok {
		return "=#VALUE!"
	}
	return "=" + text
}

// FormulaTable stores every formula of a workbook by id
type FormulaTable struct {
	byID map[tracker.FormulaID]*Formula
	next tracker.FormulaID
}

// NewFormulaTable creates an empty formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		byID: make(map[tracker.FormulaID]*Formula),
		next: 1, // 0 marks a cell without a formula
	}
}

// Add stores a formula living at a cell and assigns its id
func (ft *FormulaTable) Add(sheet string, row, col int32, tokens []token.Token) *Formula {
	f := &Formula{
		ID:     ft.next,
		Anchor: reference.NewAnchor(sheet, row, col),
		Tokens: tokens,
	}
	ft.next++
	ft.byID[f.ID] = f
	return f
}

// Get returns a formula by id
func (ft *FormulaTable) Get(id tracker.FormulaID) (*Formula, bool) {
	f, ok := ft.byID[id]
	return f, ok
}

// Remove drops a formula
func (ft *FormulaTable) Remove(id tracker.FormulaID) {
	delete(ft.byID, id)
}

// All returns every formula in id order
func (ft *FormulaTable) All() []*Formula {
	out := make([]*Formula, 0, len(ft.byID))
	for _, f := range ft.byID {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *Formula) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Len returns the number of formulas
func (ft *FormulaTable) Len() int {
	return len(ft.byID)
}

// sortFormulas orders formulas by worksheet position, row and column
func sortFormulas(fs []*Formula, sheets *WorksheetTable) {
	index := make(map[string]int, sheets.Len())
	for i, name := range sheets.Names() {
		index[name] = i
	}
	slices.SortFunc(fs, func(a, b *Formula) int {
		if c := cmp.Compare(index[a.Anchor.Sheet], index[b.Anchor.Sheet]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Anchor.Row, b.Anchor.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Anchor.Col, b.Anchor.Col)
	})
}

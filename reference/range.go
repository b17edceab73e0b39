package reference

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Anchor is the position a formula is evaluated at. Origin is the cell the
// formula's relative references were written for: the formula's own cell,
// or the anchor cell of a shared or array formula group.
type Anchor struct {
	Sheet     string
	Row       int32
	Col       int32
	OriginRow int32
	OriginCol int32
}

// NewAnchor creates an anchor for a formula stored at its own cell
func NewAnchor(sheet string, row, col int32) Anchor {
	return Anchor{Sheet: sheet, Row: row, Col: col, OriginRow: row, OriginCol: col}
}

// Offset returns how far the anchor is from the origin the references were
// written for
func (a Anchor) Offset() (rows, cols int32) {
	return a.Row - a.OriginRow, a.Col - a.OriginCol
}

// Range is a resolved, normalized rectangle of cells. the bounds are
// zero-based and inclusive. a 3-D range covers every sheet from FirstSheet
// to LastSheet in workbook order.
type Range struct {
	FirstSheet string
	LastSheet  string
	FirstRow   int32
	FirstCol   int32
	LastRow    int32
	LastCol    int32
}

// Cell returns the range covering a single cell
func Cell(sheet string, row, col int32) Range {
	return Range{
		FirstSheet: sheet,
		LastSheet:  sheet,
		FirstRow:   row,
		FirstCol:   col,
		LastRow:    row,
		LastCol:    col,
	}
}

// Area returns the range between two corners in any order
func Area(sheet string, r1, c1, r2, c2 int32) Range {
	return Range{
		FirstSheet: sheet,
		LastSheet:  sheet,
		FirstRow:   min(r1, r2),
		FirstCol:   min(c1, c2),
		LastRow:    max(r1, r2),
		LastCol:    max(c1, c2),
	}
}

// Is3D reports whether the range spans several sheets
func (r Range) Is3D() bool {
	return r.FirstSheet != r.LastSheet
}

// Rows returns the height of the range
func (r Range) Rows() int32 {
	return r.LastRow - r.FirstRow + 1
}

// Cols returns the width of the range
func (r Range) Cols() int32 {
	return r.LastCol - r.FirstCol + 1
}

// Size returns the number of cells on one sheet of the range
func (r Range) Size() int64 {
	return int64(r.Rows()) * int64(r.Cols())
}

// IsCell reports whether the range is a single cell on a single sheet
func (r Range) IsCell() bool {
	return !r.Is3D() && r.FirstRow == r.LastRow && r.FirstCol == r.LastCol
}

// Contains reports whether the cell lies inside a single-sheet range
func (r Range) Contains(sheet string, row, col int32) bool {
	return sheet == r.FirstSheet && sheet == r.LastSheet &&
		row >= r.FirstRow && row <= r.LastRow &&
		col >= r.FirstCol && col <= r.LastCol
}

// Overlaps reports whether two single-sheet ranges share a cell
func (r Range) Overlaps(o Range) bool {
	_, ok := r.Intersect(o)
	return ok
}

// Intersect returns the cells two single-sheet ranges have in common
func (r Range) Intersect(o Range) (Range, bool) {
	if r.FirstSheet != o.FirstSheet || r.LastSheet != o.LastSheet {
		return Range{}, false
	}
	out := Range{
		FirstSheet: r.FirstSheet,
		LastSheet:  r.LastSheet,
		FirstRow:   max(r.FirstRow, o.FirstRow),
		FirstCol:   max(r.FirstCol, o.FirstCol),
		LastRow:    min(r.LastRow, o.LastRow),
		LastCol:    min(r.LastCol, o.LastCol),
	}
	if out.FirstRow > out.LastRow || out.FirstCol > out.LastCol {
		return Range{}, false
	}
	return out, true
}

// OnSheet returns a copy of the range restricted to one sheet
func (r Range) OnSheet(sheet string) Range {
	r.FirstSheet = sheet
	r.LastSheet = sheet
	return r
}

// Token returns an absolute reference token for the range
func (r Range) Token() token.Token {
	first := token.NewAbsoluteCellRef(r.FirstSheet, r.FirstRow, r.FirstCol)
	if r.IsCell() {
		return first
	}
	return token.AreaRef{
		First: first,
		Last:  token.NewAbsoluteCellRef(r.LastSheet, r.LastRow, r.LastCol),
	}
}

// String renders the range as relative A1 text with its sheet prefix
func (r Range) String() string {
	first := token.NewCellRef(r.FirstSheet, r.FirstRow, r.FirstCol)
	if r.IsCell() {
		return first.String()
	}
	return token.AreaRef{
		First: first,
		Last:  token.NewCellRef(r.LastSheet, r.LastRow, r.LastCol),
	}.String()
}

package token

// Sentinel is the coordinate stored in the open axis of a whole-row or
// whole-column reference. it is resolved against the active format's
// maximum only at evaluation time.
const Sentinel int32 = -1

// CellRef is a reference to a single cell. Row and Col are zero-based and
// are the coordinates as written at the formula's origin cell; relative
// components move with the anchor they are evaluated at. Sheet is empty for
// the formula's own sheet.
type CellRef struct {
	Sheet       string
	Row         int32
	Col         int32
	RowRelative bool
	ColRelative bool
	WholeRow    bool // the column is open, Col is Sentinel
	WholeCol    bool // the row is open, Row is Sentinel
}

// AreaRef is a rectangular range between two cells. the endpoints are kept
// in the order they were written; callers must normalize with min/max. when
// the two sheets differ the area spans every sheet between them.
type AreaRef struct {
	First CellRef
	Last  CellRef
}

// NewCellRef creates a fully relative reference to the cell at row, col
func NewCellRef(sheet string, row, col int32) CellRef {
	return CellRef{
		Sheet:       sheet,
		Row:         row,
		Col:         col,
		RowRelative: true,
		ColRelative: true,
	}
}

// NewAbsoluteCellRef creates a $A$1 style reference
func NewAbsoluteCellRef(sheet string, row, col int32) CellRef {
	return CellRef{Sheet: sheet, Row: row, Col: col}
}

// NewAreaRef creates an area between two cells
func NewAreaRef(first, last CellRef) AreaRef {
	return AreaRef{First: first, Last: last}
}

// WholeColumn creates the area first:last covering entire columns, e.g. A:C
func WholeColumn(sheet string, first, last int32, relative bool) AreaRef {
	return AreaRef{
		First: CellRef{Sheet: sheet, Row: Sentinel, Col: first, ColRelative: relative, RowRelative: true, WholeCol: true},
		Last:  CellRef{Sheet: sheet, Row: Sentinel, Col: last, ColRelative: relative, RowRelative: true, WholeCol: true},
	}
}

// WholeRow creates the area first:last covering entire rows, e.g. 1:3
func WholeRow(sheet string, first, last int32, relative bool) AreaRef {
	return AreaRef{
		First: CellRef{Sheet: sheet, Row: first, Col: Sentinel, RowRelative: relative, ColRelative: true, WholeRow: true},
		Last:  CellRef{Sheet: sheet, Row: last, Col: Sentinel, RowRelative: relative, ColRelative: true, WholeRow: true},
	}
}

// WithSheet returns a copy of the reference qualified with sheet
func (c CellRef) WithSheet(sheet string) CellRef {
	c.Sheet = sheet
	return c
}

// Is3D reports whether the area spans more than one sheet
func (a AreaRef) Is3D() bool {
	return a.First.Sheet != a.Last.Sheet
}

// WithSheet returns a copy of the area with both endpoints on sheet
func (a AreaRef) WithSheet(sheet string) AreaRef {
	a.First.Sheet = sheet
	a.Last.Sheet = sheet
	return a
}

// IsWholeColumn reports whether the area covers complete columns
func (a AreaRef) IsWholeColumn() bool {
	return a.First.WholeCol && a.Last.WholeCol
}

// IsWholeRow reports whether the area covers complete rows
func (a AreaRef) IsWholeRow() bool {
	return a.First.WholeRow && a.Last.WholeRow
}

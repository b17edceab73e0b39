package workbook

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// InsertRows inserts count empty rows before row. cells at or below row
// move down and references to them follow.
func (w *Workbook) InsertRows(sheet string, row, count int32) error {
	if err := w.checkSpan(row, count, w.resolver.Format.MaxRows()); err != nil {
		return err
	}
	return w.shift(sheet, count, 0, reference.Pivot{Row: row})
}

// DeleteRows deletes count rows starting at row. references to deleted
// cells become #REF!.
func (w *Workbook) DeleteRows(sheet string, row, count int32) error {
	if err := w.checkSpan(row, count, w.resolver.Format.MaxRows()); err != nil {
		return err
	}
	return w.shift(sheet, -count, 0, reference.Pivot{Row: row})
}

// InsertColumns inserts count empty columns before col
func (w *Workbook) InsertColumns(sheet string, col, count int32) error {
	if err := w.checkSpan(col, count, w.resolver.Format.MaxCols()); err != nil {
		return err
	}
	return w.shift(sheet, 0, count, reference.Pivot{Col: col})
}

// DeleteColumns deletes count columns starting at col
func (w *Workbook) DeleteColumns(sheet string, col, count int32) error {
	if err := w.checkSpan(col, count, w.resolver.Format.MaxCols()); err != nil {
		return err
	}
	return w.shift(sheet, 0, -count, reference.Pivot{Col: col})
}

func (w *Workbook) checkSpan(at, count, limit int32) error {
	if err := w.check(); err != nil {
		return err
	}
	if count < 1 {
		return errorf(InvalidArgument, "count must be positive, got %d", count)
	}
	if at < 0 || at >= limit {
		return errorf(OutOfRange, "index %d is outside the grid", at)
	}
	return nil
}

// shift applies an insertion (positive delta) or deletion (negative
// delta) on one worksheet to its cells, every formula, the tracker and
// the defined names
func (w *Workbook) shift(sheet string, dRows, dCols int32, pivot reference.Pivot) error {
	ws, ok := w.sheets.Get(sheet)
	if !ok {
		return errorf(NotFound, "worksheet %q does not exist", sheet)
	}
	pivot.Sheet = ws.name

	if dRows > 0 || dCols > 0 {
		rows, cols := ws.Bounds()
		if (dRows > 0 && rows > pivot.Row && rows+dRows > w.resolver.Format.MaxRows()) ||
			(dCols > 0 && cols > pivot.Col && cols+dCols > w.resolver.Format.MaxCols()) {
			return errorf(ResourceExhausted, "inserting would push cells of %q off the grid", ws.name)
		}
	}

	// move the cells
	entries := ws.entries()
	for _, e := range entries {
		ws.Clear(e.Row, e.Col)
	}
	deleted := 0
	for _, e := range entries {
		a, ok := w.resolver.ShiftAnchor(reference.NewAnchor(ws.name, e.Row, e.Col), dRows, dCols, pivot)
		if !ok {
			w.removeFormula(e.Formula)
			deleted++
			continue
		}
		if e.Formula != 0 {
			ws.SetFormula(a.Row, a.Col, e.Formula)
		} else {
			ws.SetValue(a.Row, a.Col, e.Value)
		}
	}

	// rewrite the formulas and move their tracked references in place
	var reregister []*Formula
	for _, f := range w.formulas.All() {
		f.Tokens, _ = w.resolver.ShiftAll(f.Tokens, f.Anchor, dRows, dCols, pivot)
		if _, err := w.tracker.Shift(f.ID, dRows, dCols, pivot); err != nil {
			return wrap(Internal, err, "shifting references")
		}
		if a, ok := w.resolver.ShiftAnchor(f.Anchor, dRows, dCols, pivot); ok {
			f.Anchor = a
		}
		if w.graph.UsesNames(f.ID) {
			reregister = append(reregister, f)
		}
		w.graph.MarkDirty(f.ID)
	}

	for _, d := range w.names.All() {
		d.Tokens, _ = w.resolver.ShiftAll(d.Tokens, reference.Anchor{}, dRows, dCols, pivot)
	}
	// entries that came from name definitions were shifted relative to the
	// formula's cell; register them again from the moved definitions
	for _, f := range reregister {
		w.register(f)
	}
	w.tracker.ClearCaches()

	w.logger.Debug("structural edit",
		"sheet", ws.name,
		"rows", dRows,
		"cols", dCols,
		"pivot", token.CellName(pivot.Row, pivot.Col),
		"deleted_formulas", deleted)
	return nil
}

// RemoveWorksheet deletes a worksheet and its cells. references to it in
// other formulas and in defined names become #REF!.
func (w *Workbook) RemoveWorksheet(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	ws, ok := w.sheets.Get(name)
	if !ok {
		return errorf(NotFound, "worksheet %q does not exist", name)
	}
	for _, e := range ws.entries() {
		w.removeFormula(ws.Clear(e.Row, e.Col))
	}
	w.sheets.Undefine(ws.name)

	for _, f := range w.formulas.All() {
		f.Tokens = dropSheet(f.Tokens, ws.name)
		w.register(f)
		w.graph.MarkDirty(f.ID)
	}
	for _, d := range w.names.All() {
		d.Tokens = dropSheet(d.Tokens, ws.name)
	}
	w.tracker.ClearCaches()
	return nil
}

// dropSheet replaces references to a deleted sheet with #REF!
func dropSheet(tokens []token.Token, sheet string) []token.Token {
	var out []token.Token
	for i, t := range tokens {
		dropped := dropSheetRef(t, sheet)
		if out == nil && !token.Equal(dropped, t) {
			out = make([]token.Token, len(tokens))
			copy(out, tokens[:i])
		}
		if out != nil {
			out[i] = dropped
		}
	}
	if out == nil {
		return tokens
	}
	return out
}

func dropSheetRef(t token.Token, sheet string) token.Token {
	deleted := token.NewError(token.ErrorRef, "sheet was deleted")
	switch v := t.(type) {
	case token.CellRef:
		if token.EqualFold(v.Sheet, sheet) {
			return deleted
		}
	case token.AreaRef:
		if token.EqualFold(v.First.Sheet, sheet) || token.EqualFold(v.Last.Sheet, sheet) {
			return deleted
		}
	case *token.RefList:
		out := &token.RefList{}
		for _, ref := range v.Refs {
			if r := dropSheetRef(ref, sheet); !token.IsError(r) {
				out.Refs = append(out.Refs, r)
			}
		}
		switch len(out.Refs) {
		case 0:
			return deleted
		case 1:
			return out.Refs[0]
		case len(v.Refs):
			return t
		}
		return out
	}
	return t
}

// RenameWorksheet renames a worksheet and rewrites every reference to it
func (w *Workbook) RenameWorksheet(oldName, newName string) error {
	if err := w.check(); err != nil {
		return err
	}
	ws, ok := w.sheets.Get(oldName)
	if !ok {
		return errorf(NotFound, "worksheet %q does not exist", oldName)
	}
	if err := validateSheetName(newName); err != nil {
		return err
	}
	if other, taken := w.sheets.Get(newName); taken && other != ws {
		return errorf(AlreadyExists, "worksheet %q already exists", newName)
	}
	from := ws.name

	// formulas reading the sheet, found before the tracker forgets it
	whole := reference.Range{
		FirstSheet: from,
		LastSheet:  from,
		LastRow:    w.resolver.Format.MaxRows() - 1,
		LastCol:    w.resolver.Format.MaxCols() - 1,
	}
	affected := make(map[tracker.FormulaID]struct{})
	for id := range w.tracker.FindFormulasTouching(whole) {
		affected[id] = struct{}{}
	}
	w.sheets.Rename(from, newName)

	for _, f := range w.formulas.All() {
		_, reads := affected[f.ID]
		if f.Anchor.Sheet == from {
			f.Anchor.Sheet = newName
			reads = true
		}
		if !reads {
			continue
		}
		f.Tokens = renameSheet(f.Tokens, from, newName)
		w.register(f)
		w.graph.MarkDirty(f.ID)
	}
	for _, d := range w.names.All() {
		d.Tokens = renameSheet(d.Tokens, from, newName)
	}
	w.tracker.ClearCaches()
	w.retryUnresolved()
	return nil
}

func renameSheet(tokens []token.Token, from, to string) []token.Token {
	out := make([]token.Token, len(tokens))
	for i, t := range tokens {
		out[i] = reference.RenameSheet(t, from, to)
	}
	return out
}

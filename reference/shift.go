package reference

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Pivot is where rows or columns are inserted or deleted
type Pivot struct {
	Sheet string
	Row   int32
	Col   int32
}

// Shift adjusts a reference token for a structural edit on pivot.Sheet.
// anchor is where the owning formula is evaluated; relative components are
// compared with the pivot at the cell they resolve to from it. a positive delta
// inserts that many rows or columns at the pivot; a negative delta deletes
// [pivot, pivot+|delta|). only relative components at or after the pivot
// move. a reference whose cells are all deleted collapses to #REF!, an
// area that loses some of its rows or columns shrinks, and a component
// pushed past the end of the grid also becomes #REF!. tokens that are not
// references are returned unchanged.
func (r *Resolver) Shift(t token.Token, anchor Anchor, dRows, dCols int32, pivot Pivot) token.Token {
	host := anchor.Sheet
	switch v := t.(type) {
	case token.CellRef:
		if sheetOf(v.Sheet, host) != pivot.Sheet {
			return t
		}
		c, ok := r.shiftCell(v, anchor, dRows, dCols, pivot)
		if !ok {
			return refError()
		}
		return c

	case token.AreaRef:
		first, last := sheetOf(v.First.Sheet, host), sheetOf(v.Last.Sheet, host)
		if first != pivot.Sheet || last != pivot.Sheet {
			return t
		}
		a, ok := r.shiftArea(v, anchor, dRows, dCols, pivot)
		if !ok {
			return refError()
		}
		return a

	case *token.RefList:
		out := &token.RefList{Refs: make([]token.Token, 0, len(v.Refs))}
		for _, ref := range v.Refs {
			shifted := r.Shift(ref, anchor, dRows, dCols, pivot)
			if token.IsError(shifted) {
				continue
			}
			out.Refs = append(out.Refs, shifted)
		}
		switch len(out.Refs) {
		case 0:
			return refError()
		case 1:
			return out.Refs[0]
		}
		return out

	default:
		return t
	}
}

// ShiftAll shifts every token of a formula and reports whether anything
// changed
func (r *Resolver) ShiftAll(tokens []token.Token, anchor Anchor, dRows, dCols int32, pivot Pivot) ([]token.Token, bool) {
	var out []token.Token
	for i, t := range tokens {
		shifted := r.Shift(t, anchor, dRows, dCols, pivot)
		if out == nil && !token.Equal(shifted, t) {
			out = make([]token.Token, len(tokens))
			copy(out, tokens[:i])
		}
		if out != nil {
			out[i] = shifted
		}
	}
	if out == nil {
		return tokens, false
	}
	return out, true
}

// RenameSheet rewrites the sheet qualifiers of a reference token
func RenameSheet(t token.Token, from, to string) token.Token {
	switch v := t.(type) {
	case token.CellRef:
		if v.Sheet == from {
			v.Sheet = to
		}
		return v
	case token.AreaRef:
		if v.First.Sheet == from {
			v.First.Sheet = to
		}
		if v.Last.Sheet == from {
			v.Last.Sheet = to
		}
		return v
	case *token.RefList:
		out := &token.RefList{Refs: make([]token.Token, len(v.Refs))}
		for i, ref := range v.Refs {
			out.Refs[i] = RenameSheet(ref, from, to)
		}
		return out
	default:
		return t
	}
}

// shiftCell moves a single cell endpoint. ok is false when the cell was
// deleted or pushed off the grid. relative components are shifted where
// they resolve from anchor and stored back relative to it.
func (r *Resolver) shiftCell(c token.CellRef, anchor Anchor, dRows, dCols int32, pivot Pivot) (token.CellRef, bool) {
	dr, dc := anchor.Offset()
	if dRows != 0 && c.RowRelative && !c.WholeCol {
		row, ok := shiftIndex(c.Row+dr, dRows, pivot.Row, r.Format.MaxRows())
		if !ok {
			return c, false
		}
		c.Row = row - dr
	}
	if dCols != 0 && c.ColRelative && !c.WholeRow {
		col, ok := shiftIndex(c.Col+dc, dCols, pivot.Col, r.Format.MaxCols())
		if !ok {
			return c, false
		}
		c.Col = col - dc
	}
	return c, true
}

func (r *Resolver) shiftArea(a token.AreaRef, anchor Anchor, dRows, dCols int32, pivot Pivot) (token.AreaRef, bool) {
	dr, dc := anchor.Offset()
	if dRows != 0 && !a.First.WholeCol {
		fRel, lRel := a.First.RowRelative, a.Last.RowRelative
		lo, hi, ok := shiftSpan(offset(a.First.Row, fRel, dr), offset(a.Last.Row, lRel, dr),
			fRel, lRel, dRows, pivot.Row, r.Format.MaxRows())
		if !ok {
			return a, false
		}
		a.First.Row, a.Last.Row = offset(lo, fRel, -dr), offset(hi, lRel, -dr)
	}
	if dCols != 0 && !a.First.WholeRow {
		fRel, lRel := a.First.ColRelative, a.Last.ColRelative
		lo, hi, ok := shiftSpan(offset(a.First.Col, fRel, dc), offset(a.Last.Col, lRel, dc),
			fRel, lRel, dCols, pivot.Col, r.Format.MaxCols())
		if !ok {
			return a, false
		}
		a.First.Col, a.Last.Col = offset(lo, fRel, -dc), offset(hi, lRel, -dc)
	}
	return a, true
}

// offset moves a relative coordinate by d; absolute ones stay put
func offset(i int32, relative bool, d int32) int32 {
	if relative {
		return i + d
	}
	return i
}

// shiftIndex moves one coordinate for an insert (delta > 0) or delete
// (delta < 0) at pivot
func shiftIndex(i, delta, pivot, limit int32) (int32, bool) {
	if i < pivot {
		return i, true
	}
	if delta > 0 {
		i += delta
		return i, i < limit
	}
	end := pivot - delta
	if i < end {
		return i, false
	}
	return i + delta, true
}

// shiftSpan moves both endpoints of one axis of an area. the endpoints are
// in raw order; a and b keep their roles in the result.
func shiftSpan(a, b int32, aRel, bRel bool, delta, pivot, limit int32) (int32, int32, bool) {
	if delta > 0 {
		if aRel && a >= pivot {
			a += delta
		}
		if bRel && b >= pivot {
			b += delta
		}
		if a >= limit || b >= limit {
			return a, b, false
		}
		return a, b, true
	}

	end := pivot - delta
	lo, hi := min(a, b), max(a, b)
	if lo >= pivot && hi < end && aRel && bRel {
		return a, b, false
	}
	move := func(i int32, rel, isLow bool) int32 {
		switch {
		case !rel || i < pivot:
			return i
		case i >= end:
			return i + delta
		case isLow:
			// first surviving row after the span
			return pivot
		default:
			// last surviving row before the span
			return pivot - 1
		}
	}
	na := move(a, aRel, a <= b)
	nb := move(b, bRel, b < a)
	if min(na, nb) < 0 {
		return a, b, false
	}
	return na, nb, true
}

func sheetOf(sheet, host string) string {
	if sheet == "" {
		return host
	}
	return sheet
}

func refError() token.Error {
	return token.NewError(token.ErrorRef, "reference was deleted")
}

// ShiftAnchor moves the cell a formula lives in for the same edit. ok is
// false when the cell itself was deleted. the origin moves with the cell,
// so the offset Shift stored references against is kept.
func (r *Resolver) ShiftAnchor(a Anchor, dRows, dCols int32, pivot Pivot) (Anchor, bool) {
	if a.Sheet != pivot.Sheet {
		return a, true
	}
	if dRows != 0 {
		row, ok := shiftIndex(a.Row, dRows, pivot.Row, r.Format.MaxRows())
		if !ok {
			return a, false
		}
		a.OriginRow += row - a.Row
		a.Row = row
	}
	if dCols != 0 {
		col, ok := shiftIndex(a.Col, dCols, pivot.Col, r.Format.MaxCols())
		if !ok {
			return a, false
		}
		a.OriginCol += col - a.Col
		a.Col = col
	}
	return a, true
}

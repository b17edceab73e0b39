package reference

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// maxNameDepth bounds chains of names defined in terms of other names
const maxNameDepth = 32

// Sheets exposes the workbook's sheets in order
type Sheets interface {
	SheetIndex(name string) (int, bool)
	SheetNames() []string
}

// Names looks up the definition of a defined name as postfix tokens
type Names interface {
	DefinedName(name string) ([]token.Token, bool)
}

// Resolver turns reference tokens into concrete ranges. Sheets and Names
// may be nil, in which case every sheet is accepted and every name is
// undefined.
type Resolver struct {
	Format Format
	Sheets Sheets
	Names  Names
}

// NewResolver creates a resolver for the given format
func NewResolver(format Format, sheets Sheets, names Names) *Resolver {
	return &Resolver{
		Format: format,
		Sheets: sheets,
		Names:  names,
	}
}

// Resolve computes the concrete bounds of a reference token evaluated at
// anchor. failures are returned as token.Error values: #REF! for unknown
// sheets and coordinates outside the grid, #NAME? for undefined names and
// #VALUE! for tokens that are not references.
func (r *Resolver) Resolve(t token.Token, anchor Anchor) (Range, error) {
	return r.resolve(t, anchor, 0)
}

func (r *Resolver) resolve(t token.Token, anchor Anchor, depth int) (Range, error) {
	switch v := t.(type) {
	case token.CellRef:
		sheet, err := r.sheet(v.Sheet, anchor)
		if err != nil {
			return Range{}, err
		}
		r1, r2, c1, c2, err := r.bounds(v, anchor)
		if err != nil {
			return Range{}, err
		}
		return Range{
			FirstSheet: sheet,
			LastSheet:  sheet,
			FirstRow:   r1,
			FirstCol:   c1,
			LastRow:    r2,
			LastCol:    c2,
		}, nil

	case token.AreaRef:
		first, err := r.sheet(v.First.Sheet, anchor)
		if err != nil {
			return Range{}, err
		}
		lastName := v.Last.Sheet
		if lastName == "" {
			lastName = first
		}
		last, err := r.sheet(lastName, anchor)
		if err != nil {
			return Range{}, err
		}
		if first != last && r.Sheets != nil {
			i, _ := r.Sheets.SheetIndex(first)
			j, _ := r.Sheets.SheetIndex(last)
			if i > j {
				first, last = last, first
			}
		}
		ar1, ar2, ac1, ac2, err := r.bounds(v.First, anchor)
		if err != nil {
			return Range{}, err
		}
		br1, br2, bc1, bc2, err := r.bounds(v.Last, anchor)
		if err != nil {
			return Range{}, err
		}
		return Range{
			FirstSheet: first,
			LastSheet:  last,
			FirstRow:   min(ar1, br1),
			FirstCol:   min(ac1, bc1),
			LastRow:    max(ar2, br2),
			LastCol:    max(ac2, bc2),
		}, nil

	case token.NameRef:
		if depth >= maxNameDepth {
			return Range{}, token.NewError(token.ErrorRef, fmt.Sprintf("name %s is defined in terms of itself", v.Name))
		}
		def, err := r.nameDefinition(v.Name)
		if err != nil {
			return Range{}, err
		}
		return r.resolve(def, anchor, depth+1)

	case *token.RefList:
		return Range{}, token.NewError(token.ErrorValue, "reference list has more than one area")

	case token.Error:
		return Range{}, v

	default:
		return Range{}, token.NewError(token.ErrorValue, fmt.Sprintf("%s is not a reference", t.Kind()))
	}
}

// ResolveAll resolves every area of a reference, including the members of a
// union
func (r *Resolver) ResolveAll(t token.Token, anchor Anchor) ([]Range, error) {
	if list, ok := t.(*token.RefList); ok {
		out := make([]Range, 0, len(list.Refs))
		for _, ref := range list.Refs {
			ranges, err := r.ResolveAll(ref, anchor)
			if err != nil {
				return nil, err
			}
			out = append(out, ranges...)
		}
		return out, nil
	}
	if name, ok := t.(token.NameRef); ok {
		def, err := r.nameDefinition(name.Name)
		if err != nil {
			return nil, err
		}
		if list, ok := def.(*token.RefList); ok {
			return r.ResolveAll(list, anchor)
		}
	}
	rng, err := r.Resolve(t, anchor)
	if err != nil {
		return nil, err
	}
	return []Range{rng}, nil
}

// Expand splits a 3-D range into one range per sheet in workbook order
func (r *Resolver) Expand(rng Range) []Range {
	if !rng.Is3D() || r.Sheets == nil {
		return []Range{rng}
	}
	i, ok1 := r.Sheets.SheetIndex(rng.FirstSheet)
	j, ok2 := r.Sheets.SheetIndex(rng.LastSheet)
	if !ok1 || !ok2 {
		return nil
	}
	if i > j {
		i, j = j, i
	}
	names := r.Sheets.SheetNames()
	out := make([]Range, 0, j-i+1)
	for k := i; k <= j && k < len(names); k++ {
		out = append(out, rng.OnSheet(names[k]))
	}
	return out
}

// nameDefinition returns the single reference token a name stands for
func (r *Resolver) nameDefinition(name string) (token.Token, error) {
	if r.Names == nil {
		return nil, token.NewError(token.ErrorName, fmt.Sprintf("undefined name: %s", name))
	}
	def, ok := r.Names.DefinedName(name)
	if !ok {
		return nil, token.NewError(token.ErrorName, fmt.Sprintf("undefined name: %s", name))
	}
	if len(def) != 1 || !token.IsReference(def[0]) {
		return nil, token.NewError(token.ErrorValue, fmt.Sprintf("name %s does not refer to a range", name))
	}
	return def[0], nil
}

func (r *Resolver) sheet(name string, anchor Anchor) (string, error) {
	if name == "" {
		name = anchor.Sheet
	}
	if r.Sheets == nil {
		return name, nil
	}
	if _, ok := r.Sheets.SheetIndex(name); !ok {
		return "", token.NewError(token.ErrorRef, fmt.Sprintf("unknown sheet: %s", name))
	}
	return name, nil
}

// bounds returns the row and column span of one reference endpoint. open
// axes of whole-row and whole-column references span the whole grid.
func (r *Resolver) bounds(c token.CellRef, anchor Anchor) (r1, r2, c1, c2 int32, err error) {
	dr, dc := anchor.Offset()
	maxRows, maxCols := r.Format.MaxRows(), r.Format.MaxCols()

	if c.WholeCol {
		r1, r2 = 0, maxRows-1
	} else {
		row := c.Row
		if c.RowRelative {
			row += dr
		}
		if row < 0 || row >= maxRows {
			return 0, 0, 0, 0, token.NewError(token.ErrorRef, fmt.Sprintf("row %d is outside the grid", int64(row)+1))
		}
		r1, r2 = row, row
	}

	if c.WholeRow {
		c1, c2 = 0, maxCols-1
	} else {
		col := c.Col
		if c.ColRelative {
			col += dc
		}
		if col < 0 || col >= maxCols {
			return 0, 0, 0, 0, token.NewError(token.ErrorRef, fmt.Sprintf("column %d is outside the grid", int64(col)+1))
		}
		c1, c2 = col, col
	}
	return r1, r2, c1, c2, nil
}

package calc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func lookupFunctions() []Function {
	return []Function{
		builtin("VLOOKUP", RefArgs, fnVLookup),
		builtin("HLOOKUP", RefArgs, fnHLookup),
		builtin("LOOKUP", RefArgs, fnLookup),
		builtin("MATCH", RefArgs, fnMatch),
		builtin("INDEX", RefArgs, fnIndex),
		builtin("ROW", RefArgs, position(true)),
		builtin("COLUMN", RefArgs, position(false)),
		builtin("ROWS", RefArgs, extent(true)),
		builtin("COLUMNS", RefArgs, extent(false)),
		builtin("AREAS", RefArgs, fnAreas),
		builtin("OFFSET", RefArgs|Volatile, fnOffset),
		builtin("INDIRECT", Volatile, fnIndirect),
		builtin("ADDRESS", 0, fnAddress),
	}
}

// match modes shared by MATCH and the LOOKUP family
const (
	matchDescending = -1
	matchExact      = 0
	matchAscending  = 1
)

// search finds v in a lookup vector. exact mode scans for an equal value.
// the approximate modes need the vector sorted and return the last entry
// not past v; blanks are ignored.
func search(vec []token.Token, v token.Token, mode int) (int, error) {
	if mode == matchExact {
		for i, x := range vec {
			if token.Rank(x) == token.Rank(v) && token.Compare(x, v) == 0 {
				return i, nil
			}
		}
		return 0, token.NewError(token.ErrorNA, "value not found")
	}

	dir := 1
	if mode == matchDescending {
		dir = -1
	}
	var prev token.Token
	for _, x := range vec {
		if token.IsBlank(x) {
			continue
		}
		if prev != nil && dir*token.Compare(prev, x) > 0 {
			return 0, token.NewError(token.ErrorNA, "lookup vector is not sorted")
		}
		prev = x
	}

	found := -1
	for i, x := range vec {
		if token.IsBlank(x) || token.Rank(x) != token.Rank(v) {
			continue
		}
		if dir*token.Compare(x, v) > 0 {
			break
		}
		found = i
	}
	if found < 0 {
		return 0, token.NewError(token.ErrorNA, "value is outside the lookup vector")
	}
	return found, nil
}

// cachedSearch is search memoized in the tracker's lookup cache when the
// vector comes from a single-area reference
func cachedSearch(c *Context, rangeArg token.Token, vec []token.Token, v token.Token, mode int) (int, error) {
	tr := c.Tracker()
	key := c.rangeKey(rangeArg)
	if tr == nil || key == "" {
		return search(vec, v, mode)
	}
	key = fmt.Sprintf("%s|%s|%d|%s|%d", c.Name, key, v.Kind(), v.String(), mode)
	if i, ok := tr.Lookup(key); ok {
		if i < 0 {
			return 0, token.NewError(token.ErrorNA, "value not found")
		}
		return i, nil
	}
	i, err := search(vec, v, mode)
	if err != nil {
		tr.PutLookup(key, -1)
		return 0, err
	}
	tr.PutLookup(key, i)
	return i, nil
}

// lookupValue reads the value being looked up
func lookupValue(c *Context, t token.Token) (token.Token, error) {
	v := c.Scalar(t)
	if e, ok := v.(token.Error); ok {
		return nil, e
	}
	if i, ok := v.(token.Integer); ok {
		v = token.Number(i)
	}
	return v, nil
}

// rangeLookup reads the optional range_lookup flag of VLOOKUP and HLOOKUP
func rangeLookup(c *Context, args []token.Token, i int) (int, error) {
	if !Optional(args, i) {
		return matchAscending, nil
	}
	approx, err := c.Bool(args[i])
	if err != nil {
		return 0, err
	}
	if approx {
		return matchAscending, nil
	}
	return matchExact, nil
}

func fnVLookup(c *Context, args []token.Token) (token.Token, error) {
	return tableLookup(c, args, false)
}

func fnHLookup(c *Context, args []token.Token) (token.Token, error) {
	return tableLookup(c, args, true)
}

// tableLookup searches the first column of a table (the first row when
// horizontal) and returns the value index places across
func tableLookup(c *Context, args []token.Token, horizontal bool) (token.Token, error) {
	v, err := lookupValue(c, args[0])
	if err != nil {
		return nil, err
	}
	table, err := c.Grid(args[1])
	if err != nil {
		return nil, err
	}
	index, err := c.Int(args[2])
	if err != nil {
		return nil, err
	}
	mode, err := rangeLookup(c, args, 3)
	if err != nil {
		return nil, err
	}

	rows, cols := table.Dims()
	width := cols
	if horizontal {
		width = rows
	}
	if index < 1 {
		return nil, token.NewError(token.ErrorValue, c.Name+" index must be at least 1")
	}
	if index > width {
		return nil, token.NewError(token.ErrorRef, c.Name+" index is past the table")
	}

	var vec []token.Token
	if horizontal {
		vec = table.Rows[0]
	} else {
		vec = column(table, 0)
	}
	i, err := cachedSearch(c, args[1], vec, v, mode)
	if err != nil {
		return nil, err
	}
	if horizontal {
		return table.At(index-1, i), nil
	}
	return table.At(i, index-1), nil
}

func column(a *token.Array, col int) []token.Token {
	rows, _ := a.Dims()
	out := make([]token.Token, rows)
	for i := range rows {
		out[i] = a.At(i, col)
	}
	return out
}

// vector flattens a one-row or one-column grid
func vector(a *token.Array) ([]token.Token, bool) {
	rows, cols := a.Dims()
	switch {
	case rows == 1:
		return a.Rows[0], true
	case cols == 1:
		return column(a, 0), true
	}
	return nil, false
}

// fnLookup implements the vector form, and the array form when no result
// vector is given: a wide array is searched along its first row and a tall
// one down its first column, and the value comes from the last row or
// column
func fnLookup(c *Context, args []token.Token) (token.Token, error) {
	v, err := lookupValue(c, args[0])
	if err != nil {
		return nil, err
	}
	grid, err := c.Grid(args[1])
	if err != nil {
		return nil, err
	}

	if !Optional(args, 2) {
		rows, cols := grid.Dims()
		if cols > rows {
			i, err := cachedSearch(c, args[1], grid.Rows[0], v, matchAscending)
			if err != nil {
				return nil, err
			}
			return grid.At(rows-1, i), nil
		}
		i, err := cachedSearch(c, args[1], column(grid, 0), v, matchAscending)
		if err != nil {
			return nil, err
		}
		return grid.At(i, cols-1), nil
	}

	vec, ok := vector(grid)
	if !ok {
		return nil, token.NewError(token.ErrorNA, "LOOKUP vector must be one row or column")
	}
	results, err := c.Grid(args[2])
	if err != nil {
		return nil, err
	}
	out, ok := vector(results)
	if !ok {
		return nil, token.NewError(token.ErrorNA, "LOOKUP result must be one row or column")
	}
	i, err := cachedSearch(c, args[1], vec, v, matchAscending)
	if err != nil {
		return nil, err
	}
	if i >= len(out) {
		return nil, token.NewError(token.ErrorNA, "LOOKUP result vector is too short")
	}
	return out[i], nil
}

func fnMatch(c *Context, args []token.Token) (token.Token, error) {
	v, err := lookupValue(c, args[0])
	if err != nil {
		return nil, err
	}
	grid, err := c.Grid(args[1])
	if err != nil {
		return nil, err
	}
	mode := matchAscending
	if Optional(args, 2) {
		n, err := c.Number(args[2])
		if err != nil {
			return nil, err
		}
		switch {
		case n > 0:
			mode = matchAscending
		case n < 0:
			mode = matchDescending
		default:
			mode = matchExact
		}
	}
	vec, ok := vector(grid)
	if !ok {
		return nil, token.NewError(token.ErrorNA, "MATCH needs one row or column")
	}
	i, err := cachedSearch(c, args[1], vec, v, mode)
	if err != nil {
		return nil, err
	}
	return token.Number(i + 1), nil
}

// indexArgs reads the row, column and area numbers of INDEX. a single
// number against a one-row range selects a column.
func indexArgs(c *Context, args []token.Token, rows, cols int32) (row, col int, err error) {
	if row, err = c.Int(args[1]); err != nil {
		return 0, 0, err
	}
	if Optional(args, 2) {
		if col, err = c.Int(args[2]); err != nil {
			return 0, 0, err
		}
	} else if rows == 1 && cols > 1 {
		row, col = 0, row
	} else if cols == 1 {
		col = 1
	}
	if row < 0 || col < 0 {
		return 0, 0, token.NewError(token.ErrorValue, "INDEX position is negative")
	}
	if row > int(rows) || col > int(cols) {
		return 0, 0, token.NewError(token.ErrorRef, "INDEX position is outside the range")
	}
	return row, col, nil
}

// fnIndex returns a reference when given one and a value or array
// otherwise. a row or column of 0 selects the whole column or row.
func fnIndex(c *Context, args []token.Token) (token.Token, error) {
	arg := c.ev.expand(args[0], c.Anchor)
	if token.IsReference(arg) {
		ranges, err := c.Ranges(arg)
		if err != nil {
			return nil, err
		}
		area := 1
		if Optional(args, 3) {
			if area, err = c.Int(args[3]); err != nil {
				return nil, err
			}
		}
		if area < 1 || area > len(ranges) {
			return nil, token.NewError(token.ErrorRef, "INDEX area is outside the reference")
		}
		rng := ranges[area-1]
		row, col, err := indexArgs(c, args, rng.Rows(), rng.Cols())
		if err != nil {
			return nil, err
		}
		if row > 0 {
			rng.FirstRow += int32(row - 1)
			rng.LastRow = rng.FirstRow
		}
		if col > 0 {
			rng.FirstCol += int32(col - 1)
			rng.LastCol = rng.FirstCol
		}
		return rng.Token(), nil
	}

	grid, err := c.Grid(arg)
	if err != nil {
		return nil, err
	}
	if Optional(args, 3) {
		if area, err := c.Int(args[3]); err != nil {
			return nil, err
		} else if area != 1 {
			return nil, token.NewError(token.ErrorRef, "INDEX area is outside the array")
		}
	}
	rows, cols := grid.Dims()
	row, col, err := indexArgs(c, args, int32(rows), int32(cols))
	if err != nil {
		return nil, err
	}
	switch {
	case row > 0 && col > 0:
		return grid.At(row-1, col-1), nil
	case row > 0:
		return &token.Array{Rows: [][]token.Token{grid.Rows[row-1]}}, nil
	case col > 0:
		out := token.NewArray(rows, 1)
		for i := range rows {
			out.Rows[i][0] = grid.At(i, col-1)
		}
		return out, nil
	}
	return grid, nil
}

// position builds ROW and COLUMN: the 1-based index of the reference's
// first cell, or of the formula's own cell without an argument
func position(row bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		if !Optional(args, 0) {
			if row {
				return token.Number(c.Anchor.Row + 1), nil
			}
			return token.Number(c.Anchor.Col + 1), nil
		}
		ranges, err := c.Ranges(args[0])
		if err != nil {
			return nil, err
		}
		if row {
			return token.Number(ranges[0].FirstRow + 1), nil
		}
		return token.Number(ranges[0].FirstCol + 1), nil
	}
}

// extent builds ROWS and COLUMNS
func extent(rows bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		arg := c.ev.expand(args[0], c.Anchor)
		if token.IsReference(arg) {
			ranges, err := c.Ranges(arg)
			if err != nil {
				return nil, err
			}
			if len(ranges) != 1 {
				return nil, token.NewError(token.ErrorRef, c.Name+" needs a single area")
			}
			if rows {
				return token.Number(ranges[0].Rows()), nil
			}
			return token.Number(ranges[0].Cols()), nil
		}
		grid, err := c.Grid(arg)
		if err != nil {
			return nil, err
		}
		r, cl := grid.Dims()
		if rows {
			return token.Number(r), nil
		}
		return token.Number(cl), nil
	}
}

func fnAreas(c *Context, args []token.Token) (token.Token, error) {
	ranges, err := c.Ranges(args[0])
	if err != nil {
		return nil, err
	}
	return token.Number(len(ranges)), nil
}

// fnOffset moves a reference by rows and cols and optionally resizes it.
// the result is a reference.
func fnOffset(c *Context, args []token.Token) (token.Token, error) {
	ranges, err := c.Ranges(args[0])
	if err != nil {
		return nil, err
	}
	if len(ranges) != 1 {
		return nil, token.NewError(token.ErrorValue, "OFFSET needs a single area")
	}
	base := ranges[0]
	dRows, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	dCols, err := c.Int(args[2])
	if err != nil {
		return nil, err
	}
	height, width := int(base.Rows()), int(base.Cols())
	if Optional(args, 3) {
		if height, err = c.Int(args[3]); err != nil {
			return nil, err
		}
	}
	if Optional(args, 4) {
		if width, err = c.Int(args[4]); err != nil {
			return nil, err
		}
	}
	if height < 1 || width < 1 {
		return nil, token.NewError(token.ErrorRef, "OFFSET size must be positive")
	}

	format := c.Resolver().Format
	r1 := int64(base.FirstRow) + int64(dRows)
	c1 := int64(base.FirstCol) + int64(dCols)
	r2 := r1 + int64(height) - 1
	c2 := c1 + int64(width) - 1
	if r1 < 0 || c1 < 0 || r2 >= int64(format.MaxRows()) || c2 >= int64(format.MaxCols()) {
		return nil, token.NewError(token.ErrorRef, "OFFSET is outside the sheet")
	}
	out := base
	out.FirstRow, out.FirstCol = int32(r1), int32(c1)
	out.LastRow, out.LastCol = int32(r2), int32(c2)
	return out.Token(), nil
}

// fnIndirect turns text into a reference. the text is read as absolute
// coordinates in either A1 or R1C1 notation, or as a defined name.
func fnIndirect(c *Context, args []token.Token) (token.Token, error) {
	text, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	a1 := true
	if Optional(args, 1) {
		if a1, err = c.Bool(args[1]); err != nil {
			return nil, err
		}
	}
	text = strings.TrimSpace(text)

	var ref token.Token
	if a1 {
		ref, err = token.ParseReference(text)
	} else {
		ref, err = parseR1C1(text, c.Anchor)
	}
	if err != nil {
		if _, ok := c.ev.book.DefinedName(text); !ok {
			return nil, token.NewError(token.ErrorRef, "INDIRECT cannot read "+strconv.Quote(text))
		}
		ref = token.NameRef{Name: text}
	}

	at := reference.NewAnchor(c.Anchor.Sheet, c.Anchor.Row, c.Anchor.Col)
	ranges, err := c.Resolver().ResolveAll(ref, at)
	if err != nil {
		return nil, token.NewError(token.ErrorRef, err.Error())
	}
	if len(ranges) == 1 {
		return ranges[0].Token(), nil
	}
	list := &token.RefList{}
	for _, rng := range ranges {
		list.Refs = append(list.Refs, rng.Token())
	}
	return list, nil
}

// parseR1C1 reads R1C1 notation. bracketed parts are offsets from the
// anchor, bare parts are 1-based coordinates and an omitted number means
// the anchor's own row or column.
func parseR1C1(text string, at reference.Anchor) (token.Token, error) {
	sheet := ""
	if i := strings.LastIndexByte(text, '!'); i >= 0 {
		sheet = strings.Trim(text[:i], "'")
		text = text[i+1:]
	}
	parts := strings.Split(strings.ToUpper(text), ":")
	if len(parts) > 2 {
		return nil, fmt.Errorf("invalid R1C1 reference %q", text)
	}
	refs := make([]token.CellRef, len(parts))
	for i, p := range parts {
		if !strings.HasPrefix(p, "R") {
			return nil, fmt.Errorf("invalid R1C1 reference %q", text)
		}
		rowPart, colPart, ok := strings.Cut(p[1:], "C")
		if !ok {
			return nil, fmt.Errorf("invalid R1C1 reference %q", text)
		}
		row, err := r1c1Component(rowPart, at.Row)
		if err != nil {
			return nil, err
		}
		col, err := r1c1Component(colPart, at.Col)
		if err != nil {
			return nil, err
		}
		refs[i] = token.NewAbsoluteCellRef(sheet, row, col)
	}
	if len(refs) == 1 {
		return refs[0], nil
	}
	return token.NewAreaRef(refs[0], refs[1]), nil
}

func r1c1Component(s string, base int32) (int32, error) {
	switch {
	case s == "":
		return base, nil
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		n, err := strconv.ParseInt(s[1:len(s)-1], 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid R1C1 offset %q: %w", s, err)
		}
		return base + int32(n), nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid R1C1 coordinate %q", s)
	}
	return int32(n) - 1, nil
}

// fnAddress builds reference text. abs is 1 for $A$1, 2 for A$1, 3 for $A1
// and 4 for A1.
func fnAddress(c *Context, args []token.Token) (token.Token, error) {
	row, err := c.Int(args[0])
	if err != nil {
		return nil, err
	}
	col, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	abs := 1
	if Optional(args, 2) {
		if abs, err = c.Int(args[2]); err != nil {
			return nil, err
		}
	}
	a1 := true
	if Optional(args, 3) {
		if a1, err = c.Bool(args[3]); err != nil {
			return nil, err
		}
	}
	sheet := ""
	if Optional(args, 4) {
		if sheet, err = c.Text(args[4]); err != nil {
			return nil, err
		}
	}
	if row < 1 || col < 1 || abs < 1 || abs > 4 {
		return nil, token.NewError(token.ErrorValue, "ADDRESS argument is out of range")
	}
	rowRel := abs == 3 || abs == 4
	colRel := abs == 2 || abs == 4

	if a1 {
		ref := token.CellRef{
			Sheet:       sheet,
			Row:         int32(row - 1),
			Col:         int32(col - 1),
			RowRelative: rowRel,
			ColRelative: colRel,
		}
		return token.Str(ref.String()), nil
	}

	var b strings.Builder
	if sheet != "" {
		b.WriteString(token.QuoteSheet(sheet) + "!")
	}
	b.WriteString(r1c1Part("R", row, rowRel))
	b.WriteString(r1c1Part("C", col, colRel))
	return token.Str(b.String()), nil
}

func r1c1Part(prefix string, n int, relative bool) string {
	if relative {
		return prefix + "[" + strconv.Itoa(n) + "]"
	}
	return prefix + strconv.Itoa(n)
}

// Package criteria parses database and criteria ranges for the D-functions
// and matches database rows against criteria.
package criteria

import (
	"errors"
	"math"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// ErrEmptyRange is returned when a table is parsed from no cells
var ErrEmptyRange = errors.New("criteria: empty range")

// Cell is one component cell of a source range
type Cell struct {
	Row   int32
	Col   int32
	Value token.Token
}

// Table is a parsed database or criteria range: the first row of every
// column is its header and the remaining rows are data
type Table struct {
	Headers []string
	Rows    [][]token.Token
}

// ParseTable builds a table from the cells of a range. a new column starts
// whenever the column index changes, so ranges assembled from several
// discontiguous column blocks parse as one table. short columns are padded
// with blanks.
func ParseTable(cells []Cell) (*Table, error) {
	if len(cells) == 0 {
		return nil, ErrEmptyRange
	}
	sorted := slices.Clone(cells)
	slices.SortStableFunc(sorted, func(a, b Cell) int {
		if a.Col != b.Col {
			return int(a.Col) - int(b.Col)
		}
		return int(a.Row) - int(b.Row)
	})

	var columns [][]token.Token
	for i, c := range sorted {
		if i == 0 || c.Col != sorted[i-1].Col {
			columns = append(columns, nil)
		}
		v := c.Value
		if v == nil {
			v = token.Blank{}
		}
		columns[len(columns)-1] = append(columns[len(columns)-1], v)
	}

	t := &Table{Headers: make([]string, len(columns))}
	height := 0
	for i, col := range columns {
		t.Headers[i] = headerText(col[0])
		height = max(height, len(col)-1)
	}
	t.Rows = make([][]token.Token, height)
	for r := range t.Rows {
		row := make([]token.Token, len(columns))
		for c, col := range columns {
			if r+1 < len(col) {
				row[c] = col[r+1]
			} else {
				row[c] = token.Blank{}
			}
		}
		t.Rows[r] = row
	}
	return t, nil
}

// ParseCriteria parses a criteria range. it is the same transform as
// ParseTable.
func ParseCriteria(cells []Cell) (*Table, error) {
	return ParseTable(cells)
}

// Column finds a column by its header (case-insensitive) or by its
// 1-based ordinal. returns the zero-based index.
func (t *Table) Column(field token.Token) (int, bool) {
	switch v := field.(type) {
	case token.Str:
		return t.ColumnByName(string(v))
	case token.Number:
		return t.ordinal(float64(v))
	case token.Integer:
		return t.ordinal(float64(v))
	default:
		return 0, false
	}
}

// ColumnByName finds a column by header
func (t *Table) ColumnByName(name string) (int, bool) {
	folded := token.Fold(name)
	for i, h := range t.Headers {
		if token.Fold(h) == folded {
			return i, true
		}
	}
	return 0, false
}

func (t *Table) ordinal(n float64) (int, bool) {
	i := int(math.Trunc(n))
	if i < 1 || i > len(t.Headers) {
		return 0, false
	}
	return i - 1, true
}

// Width returns the number of columns
func (t *Table) Width() int {
	return len(t.Headers)
}

// Select returns the values of column field in every row that matches the
// criteria table
func (t *Table) Select(field int, crit *Table) []token.Token {
	var out []token.Token
	for _, row := range t.Rows {
		if crit.Matches(row, t) {
			out = append(out, row[field])
		}
	}
	return out
}

func headerText(v token.Token) string {
	switch h := v.(type) {
	case token.Str:
		return string(h)
	case token.Blank:
		return ""
	default:
		return h.String()
	}
}

package criteria

import (
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Shape is the layout of a criteria table, which decides how its cells
// combine
type Shape uint8

const (
	// ShapeEmpty is a header-only criteria range; every row matches
	ShapeEmpty Shape = iota
	// ShapeColumn is one column of N criteria joined with OR
	ShapeColumn
	// ShapeRow is one row of N column criteria joined with AND
	ShapeRow
	// ShapeGrid is M rows of N columns: OR across rows of AND within a row
	ShapeGrid
)

// Shape reports the layout of a criteria table
func (t *Table) Shape() Shape {
	switch {
	case len(t.Rows) == 0:
		return ShapeEmpty
	case len(t.Headers) == 1:
		return ShapeColumn
	case len(t.Rows) == 1:
		return ShapeRow
	default:
		return ShapeGrid
	}
}

// Matches reports whether a database row of source satisfies the criteria
// table t
func (t *Table) Matches(row []token.Token, source *Table) bool {
	columns := t.sourceColumns(source)
	switch t.Shape() {
	case ShapeEmpty:
		return true
	case ShapeColumn:
		for _, crit := range t.Rows {
			if matchCell(crit[0], columns[0], row) {
				return true
			}
		}
		return false
	case ShapeRow:
		return matchAll(t.Rows[0], columns, row)
	default:
		for _, crit := range t.Rows {
			if matchAll(crit, columns, row) {
				return true
			}
		}
		return false
	}
}

// sourceColumns maps each criteria header to a source column, -1 when the
// database has no such column
func (t *Table) sourceColumns(source *Table) []int {
	out := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		if c, ok := source.ColumnByName(h); ok {
			out[i] = c
		} else {
			out[i] = -1
		}
	}
	return out
}

func matchAll(crit []token.Token, columns []int, row []token.Token) bool {
	for i, c := range crit {
		if !matchCell(c, columns[i], row) {
			return false
		}
	}
	return true
}

func matchCell(crit token.Token, column int, row []token.Token) bool {
	c := Parse(crit)
	if c.Empty() {
		return true
	}
	if column < 0 || column >= len(row) {
		return false
	}
	return c.Match(row[column])
}

// Criterion is one parsed criteria cell: a comparison operator and the
// operand it compares against
type Criterion struct {
	Op      token.OperatorKind
	Operand token.Token
	empty   bool
}

// Parse turns a criteria value into a criterion. text may start with one of
// = <> < <= > >=; without a prefix the criterion is equality.
func Parse(v token.Token) Criterion {
	switch c := v.(type) {
	case nil, token.Blank, token.Missing:
		return Criterion{empty: true}
	case token.Str:
		s := string(c)
		if s == "" {
			return Criterion{empty: true}
		}
		op, rest := splitOperator(s)
		return Criterion{Op: op, Operand: operandOf(rest)}
	case token.Integer:
		return Criterion{Op: token.OpEq, Operand: token.Number(c)}
	default:
		return Criterion{Op: token.OpEq, Operand: v}
	}
}

// Empty reports whether the criterion matches everything
func (c Criterion) Empty() bool {
	return c.empty
}

// Match tests a value against the criterion. numeric operands only match
// numbers, text operands match text case-insensitively with * and ?
// wildcards, and "=" with no operand matches blank cells.
func (c Criterion) Match(v token.Token) bool {
	if c.empty {
		return true
	}
	if i, ok := v.(token.Integer); ok {
		v = token.Number(i)
	}
	if v == nil {
		v = token.Blank{}
	}

	if s, ok := c.Operand.(token.Str); ok && s == "" {
		blank := token.IsBlank(v) || v == token.Str("")
		switch c.Op {
		case token.OpEq:
			return blank
		case token.OpNe:
			return !blank
		}
		return false
	}

	if token.IsBlank(v) {
		return c.Op == token.OpNe
	}
	if token.Rank(v) != token.Rank(c.Operand) {
		return c.Op == token.OpNe
	}

	if s, ok := c.Operand.(token.Str); ok && (c.Op == token.OpEq || c.Op == token.OpNe) && hasWildcard(string(s)) {
		m := wildcardMatch(token.Fold(string(s)), token.Fold(string(v.(token.Str))))
		if c.Op == token.OpEq {
			return m
		}
		return !m
	}

	cmp := token.Compare(v, c.Operand)
	switch c.Op {
	case token.OpEq:
		return cmp == 0
	case token.OpNe:
		return cmp != 0
	case token.OpLt:
		return cmp < 0
	case token.OpLe:
		return cmp <= 0
	case token.OpGt:
		return cmp > 0
	case token.OpGe:
		return cmp >= 0
	}
	return false
}

func splitOperator(s string) (token.OperatorKind, string) {
	for _, prefix := range []string{"<>", "<=", ">=", "<", ">", "="} {
		if strings.HasPrefix(s, prefix) {
			op, _ := token.ParseBinaryOperator(prefix)
			return op, s[len(prefix):]
		}
	}
	return token.OpEq, s
}

// operandOf converts the text after an operator into the value it stands
// for: a number, a boolean, an error or plain text
func operandOf(s string) token.Token {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return token.Str("")
	}
	if n, ok := token.ParseDecimal(trimmed); ok {
		return token.Number(n)
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return token.Bool(true)
	case "FALSE":
		return token.Bool(false)
	}
	if kind, ok := token.ParseErrorKind(strings.ToUpper(trimmed)); ok {
		return token.NewError(kind, "")
	}
	return token.Str(s)
}

func hasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// wildcardMatch matches text against a pattern where * is any run, ? is any
// single character and ~ escapes the next character
func wildcardMatch(pattern, text string) bool {
	p, t := []rune(pattern), []rune(text)
	pi, ti := 0, 0
	star, mark := -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && p[pi] == '~' && pi+1 < len(p) && p[pi+1] == t[ti]:
			pi += 2
			ti++
		case pi < len(p) && (p[pi] == '?' || p[pi] == t[ti] && p[pi] != '*' && p[pi] != '~'):
			pi++
			ti++
		case pi < len(p) && p[pi] == '*':
			star, mark = pi, ti
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			ti = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}

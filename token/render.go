package token

import (
	"math"
	"strconv"
	"strings"
)

func (n Number) String() string {
	return FormatNumber(float64(n))
}

func (i Integer) String() string {
	return strconv.Itoa(int(i))
}

// String renders the literal with surrounding quotes; embedded quotes are
// doubled
func (s Str) String() string {
	return `"` + strings.ReplaceAll(string(s), `"`, `""`) + `"`
}

func (b Bool) String() string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (Blank) String() string   { return "" }
func (Missing) String() string { return "" }
func (Paren) String() string   { return "()" }

func (n NameRef) String() string { return n.Name }

func (o Operator) String() string { return o.Op.Symbol() }

func (f FunctionCall) String() string { return f.FuncName() }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, row := range a.Rows {
		if i > 0 {
			b.WriteByte(';')
		}
		for j, v := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteString(v.String())
		}
	}
	b.WriteByte('}')
	return b.String()
}

func (l *RefList) String() string {
	parts := make([]string, len(l.Refs))
	for i, r := range l.Refs {
		parts[i] = r.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (c CellRef) String() string {
	prefix := sheetPrefix(c.Sheet, c.Sheet)
	switch {
	case c.WholeCol:
		col := columnPart(c)
		return prefix + col + ":" + col
	case c.WholeRow:
		row := rowPart(c)
		return prefix + row + ":" + row
	}
	return prefix + columnPart(c) + rowPart(c)
}

func (a AreaRef) String() string {
	prefix := sheetPrefix(a.First.Sheet, a.Last.Sheet)
	switch {
	case a.IsWholeColumn():
		return prefix + columnPart(a.First) + ":" + columnPart(a.Last)
	case a.IsWholeRow():
		return prefix + rowPart(a.First) + ":" + rowPart(a.Last)
	case a.Is3D() && a.First.Row == a.Last.Row && a.First.Col == a.Last.Col &&
		a.First.RowRelative == a.Last.RowRelative && a.First.ColRelative == a.Last.ColRelative:
		// a 3-D single cell keeps the form it was written in
		return prefix + columnPart(a.First) + rowPart(a.First)
	}
	return prefix + columnPart(a.First) + rowPart(a.First) + ":" + columnPart(a.Last) + rowPart(a.Last)
}

func columnPart(c CellRef) string {
	if c.ColRelative {
		return ColumnName(c.Col)
	}
	return "$" + ColumnName(c.Col)
}

func rowPart(c CellRef) string {
	row := strconv.Itoa(int(c.Row) + 1)
	if c.RowRelative {
		return row
	}
	return "$" + row
}

func sheetPrefix(first, last string) string {
	if first == "" && last == "" {
		return ""
	}
	name := first
	if first != last {
		name = first + ":" + last
	}
	if needsQuoting(first) || needsQuoting(last) {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'!"
	}
	return name + "!"
}

// needsQuoting reports whether a sheet name must be wrapped in single
// quotes inside formula text
func needsQuoting(name string) bool {
	if name == "" {
		return false
	}
	if isDigit(name[0]) {
		return true
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if !isLetter(ch) && !isDigit(ch) && ch != '_' && ch != '.' {
			return true
		}
	}
	if _, ok := scanCellExact(name); ok {
		return true
	}
	return strings.EqualFold(name, "TRUE") || strings.EqualFold(name, "FALSE")
}

// QuoteSheet returns the sheet name as it must appear before '!'
func QuoteSheet(name string) string {
	if needsQuoting(name) {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// FormatNumber renders a float in formula-text form: plain decimal notation
// for ordinary magnitudes and exponent notation otherwise
func FormatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "1E+308"
	case math.IsInf(v, -1):
		return "-1E+308"
	case math.IsNaN(v):
		return ErrorNum.String()
	}
	abs := math.Abs(v)
	if abs == 0 || (abs >= 1e-9 && abs < 1e21) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.ToUpper(strconv.FormatFloat(v, 'g', -1, 64))
}

// Format renders a postfix token stream back to infix formula text, without
// the leading '='. parentheses are reproduced from Paren tokens, so a stream
// produced by the compiler renders to equivalent text.
func Format(tokens []Token) (string, bool) {
	var stack []string
	pop := func(n int) ([]string, bool) {
		if len(stack) < n {
			return nil, false
		}
		args := append([]string(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]
		return args, true
	}

	for _, t := range tokens {
		switch v := t.(type) {
		case Paren:
			args, ok := pop(1)
			if !ok {
				return "", false
			}
			stack = append(stack, "("+args[0]+")")
		case Operator:
			args, ok := pop(v.Arity)
			if !ok {
				return "", false
			}
			switch {
			case v.Op == OpPercent:
				stack = append(stack, args[0]+"%")
			case v.Arity == 1:
				stack = append(stack, v.Op.Symbol()+args[0])
			default:
				stack = append(stack, args[0]+v.Op.Symbol()+args[1])
			}
		case FunctionCall:
			args, ok := pop(v.Argc)
			if !ok {
				return "", false
			}
			stack = append(stack, v.FuncName()+"("+strings.Join(args, ",")+")")
		default:
			stack = append(stack, t.String())
		}
	}
	if len(stack) != 1 {
		return "", false
	}
	return stack[0], true
}

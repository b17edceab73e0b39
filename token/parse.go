package token

import (
	"fmt"
	"strconv"
	"strings"
)

// maxColumnLetters is the length of the widest column name, XFD. longer
// letter runs such as TAXES2024 are names, not cells; shorter ones past the
// sheet's column count fail when resolved.
const maxColumnLetters = 3

// ColumnName converts a zero-based column index to letters (0 -> A, 26 -> AA)
func ColumnName(col int32) string {
	if col < 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	n := col + 1
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// CellName returns the A1 name of a zero-based coordinate
func CellName(row, col int32) string {
	return ColumnName(col) + strconv.Itoa(int(row)+1)
}

// ParseColumn converts column letters to a zero-based index
func ParseColumn(letters string) (int32, error) {
	if letters == "" || len(letters) > maxColumnLetters {
		return 0, NewError(ErrorRef, fmt.Sprintf("invalid column: %q", letters))
	}
	var col int32
	for _, ch := range letters {
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int32(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int32(ch-'a') + 1
		default:
			return 0, NewError(ErrorRef, fmt.Sprintf("invalid column: %q", letters))
		}
	}
	return col - 1, nil
}

// ParseCell parses an A1 style address with optional $ markers into a
// reference on the host sheet
func ParseCell(text string) (CellRef, error) {
	ref, ok := scanCellExact(text)
	if !ok {
		return CellRef{}, NewError(ErrorRef, fmt.Sprintf("invalid cell reference: %s", text))
	}
	return ref, nil
}

// ParseReference parses reference text into a CellRef or AreaRef. accepted
// forms: A1, $A$1, A1:B2, A:C, 1:3, Sheet1!A1, 'My Sheet'!A1:B2 and 3-D
// references like Sheet1:Sheet3!A1.
func ParseReference(text string) (Token, error) {
	first, last, body, err := splitSheet(text)
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, NewError(ErrorRef, fmt.Sprintf("invalid reference: %s", text))
	}

	left, right, isArea := strings.Cut(body, ":")
	if !isArea {
		ref, err := ParseCell(body)
		if err != nil {
			return nil, err
		}
		if first != last {
			return AreaRef{First: ref.WithSheet(first), Last: ref.WithSheet(last)}, nil
		}
		return ref.WithSheet(first), nil
	}

	if a, ok := scanCellExact(left); ok {
		if b, ok := scanCellExact(right); ok {
			return AreaRef{First: a.WithSheet(first), Last: b.WithSheet(last)}, nil
		}
	}
	if a, ok := scanColumn(left); ok {
		if b, ok := scanColumn(right); ok {
			return AreaRef{First: a.WithSheet(first), Last: b.WithSheet(last)}, nil
		}
	}
	if a, ok := scanRow(left); ok {
		if b, ok := scanRow(right); ok {
			return AreaRef{First: a.WithSheet(first), Last: b.WithSheet(last)}, nil
		}
	}
	return nil, NewError(ErrorRef, fmt.Sprintf("invalid reference: %s", text))
}

// IsReferenceText reports whether text parses as a reference
func IsReferenceText(text string) bool {
	_, err := ParseReference(text)
	return err == nil
}

// scanCellExact parses text that must consist of exactly one cell address
func scanCellExact(text string) (CellRef, bool) {
	ref, rest, ok := scanCell(text)
	return ref, ok && rest == ""
}

// scanCell reads [$]letters[$]digits from the start of text
func scanCell(text string) (CellRef, string, bool) {
	ref := CellRef{RowRelative: true, ColRelative: true}
	i := 0
	if i < len(text) && text[i] == '$' {
		ref.ColRelative = false
		i++
	}
	start := i
	for i < len(text) && isLetter(text[i]) {
		i++
	}
	col, err := ParseColumn(text[start:i])
	if err != nil {
		return CellRef{}, text, false
	}
	if i < len(text) && text[i] == '$' {
		ref.RowRelative = false
		i++
	}
	start = i
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if start == i {
		return CellRef{}, text, false
	}
	row, err := strconv.ParseInt(text[start:i], 10, 32)
	if err != nil || row < 1 {
		return CellRef{}, text, false
	}
	ref.Row = int32(row - 1)
	ref.Col = col
	return ref, text[i:], true
}

// scanColumn parses a whole-column endpoint such as $C
func scanColumn(text string) (CellRef, bool) {
	ref := CellRef{Row: Sentinel, RowRelative: true, ColRelative: true, WholeCol: true}
	if strings.HasPrefix(text, "$") {
		ref.ColRelative = false
		text = text[1:]
	}
	col, err := ParseColumn(text)
	if err != nil {
		return CellRef{}, false
	}
	ref.Col = col
	return ref, true
}

// scanRow parses a whole-row endpoint such as $3
func scanRow(text string) (CellRef, bool) {
	ref := CellRef{Col: Sentinel, RowRelative: true, ColRelative: true, WholeRow: true}
	if strings.HasPrefix(text, "$") {
		ref.RowRelative = false
		text = text[1:]
	}
	if text == "" {
		return CellRef{}, false
	}
	for i := 0; i < len(text); i++ {
		if !isDigit(text[i]) {
			return CellRef{}, false
		}
	}
	row, err := strconv.ParseInt(text, 10, 32)
	if err != nil || row < 1 {
		return CellRef{}, false
	}
	ref.Row = int32(row - 1)
	return ref, true
}

// splitSheet separates an optional sheet prefix from the cell part. 3-D
// prefixes return distinct first and last sheets.
func splitSheet(text string) (first, last, body string, err error) {
	if strings.HasPrefix(text, "'") {
		end := -1
		for i := 1; i < len(text); i++ {
			if text[i] != '\'' {
				continue
			}
			if i+1 < len(text) && text[i+1] == '\'' {
				i++
				continue
			}
			end = i
			break
		}
		if end < 0 || end+1 >= len(text) || text[end+1] != '!' {
			return "", "", "", NewError(ErrorRef, fmt.Sprintf("invalid sheet reference: %s", text))
		}
		name := strings.ReplaceAll(text[1:end], "''", "'")
		first, last = splitSheetRange(name)
		return first, last, text[end+2:], nil
	}
	idx := strings.LastIndex(text, "!")
	if idx < 0 {
		return "", "", text, nil
	}
	if idx == 0 {
		return "", "", "", NewError(ErrorRef, fmt.Sprintf("invalid sheet reference: %s", text))
	}
	first, last = splitSheetRange(text[:idx])
	return first, last, text[idx+1:], nil
}

func splitSheetRange(name string) (string, string) {
	if a, b, ok := strings.Cut(name, ":"); ok {
		return a, b
	}
	return name, name
}

func isLetter(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// ParseDecimal parses plain decimal text: an optional sign, digits with an
// optional point and an optional exponent. hex, underscores, Inf and NaN are
// rejected, as is anything that overflows a float64.
func ParseDecimal(s string) (float64, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == exp {
			return 0, false
		}
	}
	if i != len(s) {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

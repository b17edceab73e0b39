package token

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the case-folded form of s used for case-insensitive
// comparison of text values and names
func Fold(s string) string {
	return cases.Fold().String(s)
}

// EqualFold reports whether two strings are equal under Unicode case folding
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

// Rank orders value kinds for sort-sensitive comparison: numbers sort before
// text, text before booleans and booleans before errors
func Rank(t Token) int {
	switch t.Kind() {
	case KindNumber, KindInteger:
		return 0
	case KindString:
		return 1
	case KindBool:
		return 2
	case KindError:
		return 3
	default:
		return 4
	}
}

// Compare orders two scalar values. blank takes the zero value of the other
// operand's kind (0, "" or FALSE). values of different kinds are ordered by
// Rank; strings compare case-insensitively. returns -1, 0 or 1.
func Compare(a, b Token) int {
	a, b = blankAs(a, b), blankAs(b, a)
	ra, rb := Rank(a), Rank(b)
	if ra != rb {
		return sign(ra - rb)
	}
	switch ra {
	case 0:
		x, y := numberOf(a), numberOf(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case 1:
		return strings.Compare(Fold(string(a.(Str))), Fold(string(b.(Str))))
	case 2:
		x, y := bool(a.(Bool)), bool(b.(Bool))
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case 3:
		return sign(int(a.(Error).Code) - int(b.(Error).Code))
	}
	return 0
}

func blankAs(t, other Token) Token {
	if t.Kind() != KindBlank {
		return t
	}
	switch other.Kind() {
	case KindString:
		return Str("")
	case KindBool:
		return Bool(false)
	default:
		return Number(0)
	}
}

func numberOf(t Token) float64 {
	switch v := t.(type) {
	case Number:
		return float64(v)
	case Integer:
		return float64(v)
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

package calc

import (
	"math"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// toNumber converts a scalar for arithmetic. blank is 0, booleans are 0 or
// 1 and text must parse as a number. errors are returned as they are.
func toNumber(v token.Token) (float64, error) {
	switch x := v.(type) {
	case token.Number:
		return float64(x), nil
	case token.Integer:
		return float64(x), nil
	case token.Bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case token.Str:
		n, ok := parseNumber(string(x))
		if !ok {
			return 0, token.NewError(token.ErrorValue, "cannot convert "+x.String()+" to a number")
		}
		return n, nil
	case token.Blank, token.Missing, nil:
		return 0, nil
	case token.Error:
		return 0, x
	default:
		return 0, token.NewError(token.ErrorValue, "expected a number")
	}
}

// parseNumber accepts decimal text with surrounding spaces and an optional
// trailing percent sign
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(s[:len(s)-1])
		scale = 0.01
	}
	n, ok := token.ParseDecimal(s)
	if !ok {
		return 0, false
	}
	return n * scale, true
}

// toText converts a scalar for text functions and concatenation
func toText(v token.Token) (string, error) {
	switch x := v.(type) {
	case token.Str:
		return string(x), nil
	case token.Number:
		return token.FormatNumber(float64(x)), nil
	case token.Integer:
		return x.String(), nil
	case token.Bool:
		return x.String(), nil
	case token.Blank, token.Missing, nil:
		return "", nil
	case token.Error:
		return "", x
	default:
		return "", token.NewError(token.ErrorValue, "expected text")
	}
}

// toBool converts a scalar for logical functions. text must read TRUE or
// FALSE.
func toBool(v token.Token) (bool, error) {
	switch x := v.(type) {
	case token.Bool:
		return bool(x), nil
	case token.Number:
		return x != 0, nil
	case token.Integer:
		return x != 0, nil
	case token.Blank, token.Missing, nil:
		return false, nil
	case token.Str:
		switch strings.ToUpper(strings.TrimSpace(string(x))) {
		case "TRUE":
			return true, nil
		case "FALSE":
			return false, nil
		}
		return false, token.NewError(token.ErrorValue, "cannot convert "+x.String()+" to a boolean")
	case token.Error:
		return false, x
	default:
		return false, token.NewError(token.ErrorValue, "expected a boolean")
	}
}

// isNumber reports whether v is a numeric value
func isNumber(v token.Token) bool {
	switch v.(type) {
	case token.Number, token.Integer:
		return true
	}
	return false
}

// numberResult turns a float into a result token, mapping values that are
// not finite to #NUM!
func numberResult(n float64) (token.Token, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, token.NewError(token.ErrorNum, "result is not a finite number")
	}
	return token.Number(n), nil
}

// errorValue converts an error returned by a function into a result
// value. token errors pass through, anything else becomes #VALUE!.
func errorValue(err error) token.Token {
	if e, ok := err.(token.Error); ok {
		return e
	}
	return token.NewError(token.ErrorValue, err.Error())
}

package compile

import (
	"strings"

	"github.com/xuri/efp"
)

// lex splits formula text into lexical tokens. the text may carry a
// leading '='.
func lex(text string) ([]efp.Token, error) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "="))
	if body == "" {
		return nil, &Error{Pos: 0, Msg: "empty formula"}
	}

	// the tokenizer always sees a leading '=' and reports it as an infix
	// token of its own
	ps := efp.ExcelParser()
	items := ps.Parse("=" + body)
	if len(items) > 0 && items[0].TType == efp.TokenTypeOperatorInfix && items[0].TValue == "=" {
		items = items[1:]
	}

	out := make([]efp.Token, 0, len(items))
	depth := 0
	for i, t := range items {
		switch t.TType {
		case efp.TokenTypeUnknown:
			return nil, &Error{Pos: i, Msg: "unexpected text " + quote(t.TValue)}
		case efp.TokenTypeWhitespace, efp.TokenTypeNoop:
			continue
		case efp.TokenTypeFunction, efp.TokenTypeSubexpression:
			switch t.TSubType {
			case efp.TokenSubTypeStart:
				depth++
			case efp.TokenSubTypeStop:
				depth--
				if depth < 0 {
					return nil, &Error{Pos: i, Msg: "unmatched ')'"}
				}
			}
		}
		out = append(out, t)
	}
	if depth > 0 {
		return nil, &Error{Pos: len(items), Msg: "expected closing parenthesis"}
	}
	if len(out) == 0 {
		return nil, &Error{Pos: 0, Msg: "empty formula"}
	}
	return out, nil
}

// Lex returns the lexical tokens of a formula, as "value <type> <subtype>"
// lines. it is meant for inspecting how a formula was split.
func Lex(text string) ([]string, error) {
	items, err := lex(text)
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(items))
	for i, t := range items {
		lines[i] = t.TValue + " <" + t.TType + "> <" + t.TSubType + ">"
	}
	return lines, nil
}

func quote(s string) string {
	return "'" + s + "'"
}

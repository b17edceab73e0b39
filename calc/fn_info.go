package calc

import (
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func infoFunctions() []Function {
	return []Function{
		builtin("ISBLANK", RawErrors, is(token.IsBlank)),
		builtin("ISERROR", RawErrors, is(token.IsError)),
		builtin("ISERR", RawErrors, is(func(v token.Token) bool {
			e, ok := v.(token.Error)
			return ok && e.Code != token.ErrorNA
		})),
		builtin("ISNA", RawErrors, is(func(v token.Token) bool {
			e, ok := v.(token.Error)
			return ok && e.Code == token.ErrorNA
		})),
		builtin("ISNUMBER", RawErrors, is(isNumber)),
		builtin("ISTEXT", RawErrors, is(isText)),
		builtin("ISNONTEXT", RawErrors, is(func(v token.Token) bool { return !isText(v) })),
		builtin("ISLOGICAL", RawErrors, is(func(v token.Token) bool {
			_, ok := v.(token.Bool)
			return ok
		})),
		builtin("ISREF", RefArgs|RawErrors, fnIsRef),
		builtin("TYPE", RefArgs|RawErrors, fnType),
		builtin("N", 0, fnN),
		builtin("NA", 0, fnNA),
		builtin("ERROR.TYPE", RawErrors, fnErrorType),
		builtin("CELL", RefArgs, fnCell),
	}
}

func isText(v token.Token) bool {
	_, ok := v.(token.Str)
	return ok
}

// is lifts a predicate on a single value
func is(pred func(token.Token) bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		return token.Bool(pred(c.Scalar(args[0]))), nil
	}
}

func fnIsRef(c *Context, args []token.Token) (token.Token, error) {
	return token.Bool(token.IsReference(c.ev.expand(args[0], c.Anchor))), nil
}

// fnType returns 1 for numbers and blanks, 2 for text, 4 for booleans, 16
// for errors and 64 for arrays and multi-cell references
func fnType(c *Context, args []token.Token) (token.Token, error) {
	switch c.Value(args[0]).(type) {
	case token.Str:
		return token.Number(2), nil
	case token.Bool:
		return token.Number(4), nil
	case token.Error:
		return token.Number(16), nil
	case *token.Array:
		return token.Number(64), nil
	}
	return token.Number(1), nil
}

func fnN(c *Context, args []token.Token) (token.Token, error) {
	switch v := c.Scalar(args[0]).(type) {
	case token.Number:
		return v, nil
	case token.Integer:
		return token.Number(v), nil
	case token.Bool:
		if v {
			return token.Number(1), nil
		}
	}
	return token.Number(0), nil
}

func fnNA(*Context, []token.Token) (token.Token, error) {
	return nil, token.NewError(token.ErrorNA, "NA()")
}

func fnErrorType(c *Context, args []token.Token) (token.Token, error) {
	if e, ok := c.Scalar(args[0]).(token.Error); ok {
		return token.Number(e.Code.Ordinal()), nil
	}
	return nil, token.NewError(token.ErrorNA, "ERROR.TYPE of a value that is not an error")
}

// fnCell reports information about the first cell of a reference, or the
// formula's own cell when none is given
func fnCell(c *Context, args []token.Token) (token.Token, error) {
	info, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	sheet, row, col := c.Anchor.Sheet, c.Anchor.Row, c.Anchor.Col
	if Optional(args, 1) {
		ranges, err := c.Ranges(args[1])
		if err != nil {
			return nil, err
		}
		sheet, row, col = ranges[0].FirstSheet, ranges[0].FirstRow, ranges[0].FirstCol
	}

	switch strings.ToLower(strings.TrimSpace(info)) {
	case "row":
		return token.Number(row + 1), nil
	case "col":
		return token.Number(col + 1), nil
	case "address":
		return token.Str(token.NewAbsoluteCellRef("", row, col).String()), nil
	case "contents":
		return c.Cell(sheet, row, col), nil
	case "type":
		switch c.Cell(sheet, row, col).(type) {
		case token.Blank:
			return token.Str("b"), nil
		case token.Str:
			return token.Str("l"), nil
		}
		return token.Str("v"), nil
	}
	return nil, token.NewError(token.ErrorValue, "CELL does not know "+info)
}

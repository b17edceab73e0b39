package calc

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func logicalFunctions() []Function {
	return []Function{
		builtin("IF", RefArgs|RawErrors, fnIf),
		builtin("AND", RefArgs, logical(true)),
		builtin("OR", RefArgs, logical(false)),
		builtin("NOT", 0, fnNot),
		builtin("TRUE", 0, constant(token.Bool(true))),
		builtin("FALSE", 0, constant(token.Bool(false))),
		builtin("IFERROR", RefArgs|RawErrors, fnIfError),
		builtin("CHOOSE", RefArgs|RawErrors, fnChoose),
	}
}

func constant(v token.Token) Func {
	return func(*Context, []token.Token) (token.Token, error) {
		return v, nil
	}
}

// branch returns an unevaluated IF or CHOOSE branch. an omitted branch
// reads as 0.
func branch(v token.Token) token.Token {
	if _, ok := v.(token.Missing); ok {
		return token.Number(0)
	}
	return v
}

// fnIf only looks at the chosen branch, so an error in the other one does
// not reach the result
func fnIf(c *Context, args []token.Token) (token.Token, error) {
	cond, err := c.Bool(args[0])
	if err != nil {
		return nil, err
	}
	if cond {
		return branch(args[1]), nil
	}
	if len(args) == 3 {
		return branch(args[2]), nil
	}
	return token.Bool(false), nil
}

func fnChoose(c *Context, args []token.Token) (token.Token, error) {
	i, err := c.Int(args[0])
	if err != nil {
		return nil, err
	}
	if i < 1 || i >= len(args) {
		return nil, token.NewError(token.ErrorValue, "CHOOSE index is out of range")
	}
	return branch(args[i]), nil
}

func fnIfError(c *Context, args []token.Token) (token.Token, error) {
	v := c.Value(args[0])
	if token.IsError(v) {
		return branch(args[1]), nil
	}
	if arr, ok := v.(*token.Array); ok {
		alt := c.Scalar(args[1])
		return broadcast1(arr, func(x token.Token) token.Token {
			if token.IsError(x) {
				return alt
			}
			return x
		}), nil
	}
	return args[0], nil
}

func fnNot(c *Context, args []token.Token) (token.Token, error) {
	b, err := c.Bool(args[0])
	if err != nil {
		return nil, err
	}
	return token.Bool(!b), nil
}

// logical builds AND (all) and OR (any). text read from cells is skipped;
// with nothing to test the result is #VALUE!.
func logical(all bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		seen := false
		result := all
		for _, arg := range args {
			err := c.Each(arg, func(v token.Token, direct bool) error {
				if e, ok := v.(token.Error); ok {
					return e
				}
				if !direct {
					switch v.(type) {
					case token.Str, token.Blank:
						return nil
					}
				}
				b, err := toBool(v)
				if err != nil {
					return err
				}
				seen = true
				if all {
					result = result && b
				} else {
					result = result || b
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
		if !seen {
			return nil, token.NewError(token.ErrorValue, c.Name+" has no logical values")
		}
		return token.Bool(result), nil
	}
}

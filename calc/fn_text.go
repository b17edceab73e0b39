package calc

import (
	"strings"
	"unicode/utf8"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func textFunctions() []Function {
	return []Function{
		builtin("CONCATENATE", 0, fnConcatenate),
		builtin("LEN", 0, fnLen),
		builtin("UPPER", 0, textMap(strings.ToUpper)),
		builtin("LOWER", 0, textMap(strings.ToLower)),
		builtin("TRIM", 0, textMap(func(s string) string { return strings.Join(strings.Fields(s), " ") })),
		builtin("LEFT", 0, fnLeft),
		builtin("RIGHT", 0, fnRight),
		builtin("MID", 0, fnMid),
		builtin("EXACT", 0, fnExact),
		builtin("REPT", 0, fnRept),
		builtin("VALUE", 0, fnValue),
		builtin("T", 0, fnT),
		builtin("FIND", 0, fnFind),
		builtin("SUBSTITUTE", 0, fnSubstitute),
	}
}

func textMap(f func(string) string) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		s, err := c.Text(args[0])
		if err != nil {
			return nil, err
		}
		return token.Str(f(s)), nil
	}
}

func fnConcatenate(c *Context, args []token.Token) (token.Token, error) {
	var b strings.Builder
	for _, arg := range args {
		s, err := c.Text(arg)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return token.Str(b.String()), nil
}

func fnLen(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	return token.Number(utf8.RuneCountInString(s)), nil
}

// count reads the optional character count of LEFT and RIGHT
func count(c *Context, args []token.Token) (int, error) {
	if !Optional(args, 1) {
		return 1, nil
	}
	n, err := c.Int(args[1])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, token.NewError(token.ErrorValue, c.Name+" count is negative")
	}
	return n, nil
}

func fnLeft(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	n, err := count(c, args)
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	return token.Str(r[:min(n, len(r))]), nil
}

func fnRight(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	n, err := count(c, args)
	if err != nil {
		return nil, err
	}
	r := []rune(s)
	return token.Str(r[len(r)-min(n, len(r)):]), nil
}

func fnMid(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	start, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	n, err := c.Int(args[2])
	if err != nil {
		return nil, err
	}
	if start < 1 || n < 0 {
		return nil, token.NewError(token.ErrorValue, "MID start or count is out of range")
	}
	r := []rune(s)
	if start > len(r) {
		return token.Str(""), nil
	}
	end := min(start-1+n, len(r))
	return token.Str(r[start-1 : end]), nil
}

func fnExact(c *Context, args []token.Token) (token.Token, error) {
	a, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	b, err := c.Text(args[1])
	if err != nil {
		return nil, err
	}
	return token.Bool(a == b), nil
}

// maxTextLength is the longest text a cell can hold
const maxTextLength = 32767

func fnRept(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	n, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	if n < 0 || len(s)*n > maxTextLength {
		return nil, token.NewError(token.ErrorValue, "REPT count is out of range")
	}
	return token.Str(strings.Repeat(s, n)), nil
}

func fnValue(c *Context, args []token.Token) (token.Token, error) {
	v := c.Scalar(args[0])
	switch x := v.(type) {
	case token.Number, token.Integer:
		n, _ := toNumber(x)
		return token.Number(n), nil
	case token.Blank:
		return token.Number(0), nil
	case token.Str:
		if n, ok := parseNumber(string(x)); ok {
			return token.Number(n), nil
		}
	}
	return nil, token.NewError(token.ErrorValue, "VALUE cannot read "+v.String()+" as a number")
}

func fnT(c *Context, args []token.Token) (token.Token, error) {
	if s, ok := c.Scalar(args[0]).(token.Str); ok {
		return s, nil
	}
	return token.Str(""), nil
}

func fnFind(c *Context, args []token.Token) (token.Token, error) {
	find, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	within, err := c.Text(args[1])
	if err != nil {
		return nil, err
	}
	start := 1
	if Optional(args, 2) {
		if start, err = c.Int(args[2]); err != nil {
			return nil, err
		}
	}
	r := []rune(within)
	if start < 1 || start > len(r)+1 {
		return nil, token.NewError(token.ErrorValue, "FIND start is out of range")
	}
	i := strings.Index(string(r[start-1:]), find)
	if i < 0 {
		return nil, token.NewError(token.ErrorValue, "FIND did not find the text")
	}
	pos := start + utf8.RuneCountInString(string(r[start-1:])[:i])
	return token.Number(pos), nil
}

func fnSubstitute(c *Context, args []token.Token) (token.Token, error) {
	s, err := c.Text(args[0])
	if err != nil {
		return nil, err
	}
	old, err := c.Text(args[1])
	if err != nil {
		return nil, err
	}
	repl, err := c.Text(args[2])
	if err != nil {
		return nil, err
	}
	if old == "" {
		return token.Str(s), nil
	}
	if !Optional(args, 3) {
		return token.Str(strings.ReplaceAll(s, old, repl)), nil
	}
	nth, err := c.Int(args[3])
	if err != nil {
		return nil, err
	}
	if nth < 1 {
		return nil, token.NewError(token.ErrorValue, "SUBSTITUTE instance must be at least 1")
	}
	offset := 0
	for i := 1; ; i++ {
		j := strings.Index(s[offset:], old)
		if j < 0 {
			return token.Str(s), nil
		}
		if i == nth {
			at := offset + j
			return token.Str(s[:at] + repl + s[at+len(old):]), nil
		}
		offset += j + len(old)
	}
}

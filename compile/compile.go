// Package compile turns formula text into the postfix token streams the
// calc package evaluates.
package compile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/efp"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Error is a formula that could not be compiled. Pos is the index of the
// lexical token the compiler stopped at.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("compile: token %d: %s", e.Pos, e.Msg)
}

// Option configures a compilation
type Option func(*compiler)

// WithAliases adds an alternate function-name table, e.g. localized names,
// mapping each alias to a canonical function name
func WithAliases(aliases map[string]string) Option {
	return func(c *compiler) {
		for alias, name := range aliases {
			c.aliases[strings.ToUpper(alias)] = strings.ToUpper(name)
		}
	}
}

// compiler is a recursive descent parser over lexical tokens that emits
// postfix tokens as it recognizes each construct
type compiler struct {
	tokens  []efp.Token
	pos     int
	out     []token.Token
	aliases map[string]string
}

// Compile parses formula text, with or without its leading '=', into
// postfix tokens. parenthesized sub-expressions are recorded with
// token.Paren so the formula can be rendered back with token.Format.
func Compile(text string, opts ...Option) ([]token.Token, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, err
	}
	c := &compiler{tokens: tokens, aliases: make(map[string]string)}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.parseComparison(); err != nil {
		return nil, err
	}
	if c.pos < len(c.tokens) {
		return nil, c.errorf("unexpected token after expression: %s", quote(c.tokens[c.pos].TValue))
	}
	return c.out, nil
}

func (c *compiler) emit(t token.Token) {
	c.out = append(c.out, t)
}

func (c *compiler) errorf(format string, args ...any) error {
	return &Error{Pos: c.pos, Msg: fmt.Sprintf(format, args...)}
}

// peek returns the current token, or a zero token at the end
func (c *compiler) peek() efp.Token {
	if c.pos >= len(c.tokens) {
		return efp.Token{}
	}
	return c.tokens[c.pos]
}

func (c *compiler) is(tType, subType string) bool {
	t := c.peek()
	return t.TType == tType && t.TSubType == subType
}

// binary parses a left-associative level of infix operators. accept maps
// the operator text to its kind and reports whether it belongs to the
// level.
func (c *compiler) binary(next func() error, accept func(efp.Token) (token.OperatorKind, bool)) error {
	if err := next(); err != nil {
		return err
	}
	for c.pos < len(c.tokens) {
		t := c.peek()
		if t.TType != efp.TokenTypeOperatorInfix {
			return nil
		}
		op, ok := accept(t)
		if !ok {
			return nil
		}
		c.pos++
		if err := next(); err != nil {
			return err
		}
		c.emit(token.NewOperator(op))
	}
	return nil
}

// parseComparison handles comparison operators (lowest precedence)
func (c *compiler) parseComparison() error {
	return c.binary(c.parseConcatenation, func(t efp.Token) (token.OperatorKind, bool) {
		op, ok := token.ParseBinaryOperator(t.TValue)
		return op, ok && op.IsComparison()
	})
}

// parseConcatenation handles the & operator
func (c *compiler) parseConcatenation() error {
	return c.binary(c.parseAddition, symbols("&"))
}

// parseAddition handles addition and subtraction
func (c *compiler) parseAddition() error {
	return c.binary(c.parseMultiplication, symbols("+", "-"))
}

// parseMultiplication handles multiplication and division
func (c *compiler) parseMultiplication() error {
	return c.binary(c.parsePower, symbols("*", "/"))
}

// parsePower handles exponentiation, which is left-associative
func (c *compiler) parsePower() error {
	return c.binary(c.parseUnary, symbols("^"))
}

func symbols(accepted ...string) func(efp.Token) (token.OperatorKind, bool) {
	return func(t efp.Token) (token.OperatorKind, bool) {
		for _, s := range accepted {
			if t.TValue == s {
				return token.ParseBinaryOperator(s)
			}
		}
		return 0, false
	}
}

// parseUnary handles prefix minus. negation binds tighter than ^, so -2^2
// is 4.
func (c *compiler) parseUnary() error {
	t := c.peek()
	if t.TType == efp.TokenTypeOperatorPrefix {
		c.pos++
		if err := c.parseUnary(); err != nil {
			return err
		}
		switch t.TValue {
		case "-":
			c.emit(token.NewOperator(token.OpUnaryMinus))
		case "+":
			c.emit(token.NewOperator(token.OpUnaryPlus))
		default:
			return c.errorf("unknown prefix operator %s", quote(t.TValue))
		}
		return nil
	}
	return c.parsePostfix()
}

// parsePostfix handles the percent operator
func (c *compiler) parsePostfix() error {
	if err := c.parseUnion(); err != nil {
		return err
	}
	for c.peek().TType == efp.TokenTypeOperatorPostfix && c.peek().TValue == "%" {
		c.pos++
		c.emit(token.NewOperator(token.OpPercent))
	}
	return nil
}

// parseUnion handles the reference union operator
func (c *compiler) parseUnion() error {
	if err := c.parseIntersection(); err != nil {
		return err
	}
	for c.is(efp.TokenTypeOperatorInfix, efp.TokenSubTypeUnion) {
		c.pos++
		if err := c.parseIntersection(); err != nil {
			return err
		}
		c.emit(token.NewOperator(token.OpUnion))
	}
	return nil
}

// parseIntersection handles the space operator, which binds tightest
func (c *compiler) parseIntersection() error {
	if err := c.parsePrimary(); err != nil {
		return err
	}
	for c.is(efp.TokenTypeOperatorInfix, efp.TokenSubTypeIntersection) {
		c.pos++
		if err := c.parsePrimary(); err != nil {
			return err
		}
		c.emit(token.NewOperator(token.OpIntersect))
	}
	return nil
}

// parsePrimary handles literals, references, names, function calls and
// parenthesized sub-expressions
func (c *compiler) parsePrimary() error {
	if c.pos >= len(c.tokens) {
		return c.errorf("unexpected end of expression")
	}
	t := c.tokens[c.pos]

	switch t.TType {
	case efp.TokenTypeOperand:
		v, err := c.operand(t)
		if err != nil {
			return err
		}
		c.pos++
		c.emit(v)
		return nil

	case efp.TokenTypeFunction:
		if t.TSubType != efp.TokenSubTypeStart {
			return c.errorf("unexpected ')'")
		}
		if t.TValue == "ARRAY" {
			return c.parseArray()
		}
		return c.parseFunctionCall()

	case efp.TokenTypeSubexpression:
		if t.TSubType != efp.TokenSubTypeStart {
			return c.errorf("unexpected ')'")
		}
		c.pos++
		if err := c.parseComparison(); err != nil {
			return err
		}
		if !c.is(efp.TokenTypeSubexpression, efp.TokenSubTypeStop) {
			return c.errorf("expected closing parenthesis")
		}
		c.pos++
		c.emit(token.Paren{})
		return nil
	}
	return c.errorf("unexpected token: %s", quote(t.TValue))
}

// operand converts one literal or reference token
func (c *compiler) operand(t efp.Token) (token.Token, error) {
	switch t.TSubType {
	case efp.TokenSubTypeNumber:
		n, err := strconv.ParseFloat(t.TValue, 64)
		if err != nil {
			return nil, c.errorf("invalid number: %s", t.TValue)
		}
		return token.Number(n), nil
	case efp.TokenSubTypeText:
		return token.Str(t.TValue), nil
	case efp.TokenSubTypeLogical:
		return token.Bool(strings.EqualFold(t.TValue, "TRUE")), nil
	case efp.TokenSubTypeError:
		kind, ok := token.ParseErrorKind(t.TValue)
		if !ok {
			return nil, c.errorf("unsupported error value %s", t.TValue)
		}
		return token.NewError(kind, ""), nil
	case efp.TokenSubTypeRange:
		return c.reference(t.TValue)
	}
	return nil, c.errorf("unexpected operand %s", quote(t.TValue))
}

// reference reads reference text, falling back to a defined name.
// the tokenizer strips the quotes around sheet names, so they are put back
// when the bare text does not parse.
func (c *compiler) reference(text string) (token.Token, error) {
	if ref, err := token.ParseReference(text); err == nil {
		return ref, nil
	}
	if i := strings.LastIndexByte(text, '!'); i > 0 {
		quoted := "'" + strings.ReplaceAll(text[:i], "'", "''") + "'" + text[i:]
		if ref, err := token.ParseReference(quoted); err == nil {
			return ref, nil
		}
		return nil, c.errorf("invalid reference: %s", text)
	}
	switch strings.ToUpper(text) {
	case "TRUE":
		return token.Bool(true), nil
	case "FALSE":
		return token.Bool(false), nil
	}
	if !IsName(text) {
		return nil, c.errorf("invalid reference or name: %s", text)
	}
	return token.NameRef{Name: text}, nil
}

// IsName reports whether text can be a defined name: letters, digits,
// underscores, dots and backslashes, not starting with a digit or dot, and
// not readable as a cell reference
func IsName(text string) bool {
	if text == "" || token.IsReferenceText(text) {
		return false
	}
	for i, r := range text {
		switch {
		case r == '_' || r == '\\':
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r > 0x7f:
		case (r >= '0' && r <= '9') || r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// functionName resolves aliases and strips the prefix newer files put on
// functions added after the original format
func (c *compiler) functionName(name string) string {
	name = strings.ToUpper(strings.TrimPrefix(strings.ToUpper(name), "_XLFN."))
	if canonical, ok := c.aliases[name]; ok {
		return canonical
	}
	return name
}

// parseFunctionCall parses a function call. empty arguments compile to
// token.Missing.
func (c *compiler) parseFunctionCall() error {
	name := c.functionName(c.tokens[c.pos].TValue)
	c.pos++

	if c.is(efp.TokenTypeFunction, efp.TokenSubTypeStop) {
		c.pos++
		c.emit(token.NewFunctionCall(name, 0))
		return nil
	}

	argc := 0
	for {
		if c.peek().TType == efp.TokenTypeArgument || c.is(efp.TokenTypeFunction, efp.TokenSubTypeStop) {
			c.emit(token.Missing{})
		} else if err := c.parseComparison(); err != nil {
			return err
		}
		argc++

		if c.pos >= len(c.tokens) {
			return c.errorf("unexpected end in function arguments")
		}
		if c.is(efp.TokenTypeFunction, efp.TokenSubTypeStop) {
			c.pos++
			break
		}
		if c.peek().TType != efp.TokenTypeArgument {
			return c.errorf("expected ',' or ')' in function arguments")
		}
		c.pos++
	}
	if argc > token.MaxArgs {
		return c.errorf("%s has more than %d arguments", name, token.MaxArgs)
	}
	c.emit(token.NewFunctionCall(name, argc))
	return nil
}

// parseArray parses an array constant. the tokenizer reports {1,2;3,4} as
// an ARRAY call of ARRAYROW calls.
func (c *compiler) parseArray() error {
	c.pos++
	var rows [][]token.Token
	for {
		if !c.is(efp.TokenTypeFunction, efp.TokenSubTypeStart) || c.peek().TValue != "ARRAYROW" {
			return c.errorf("expected array row")
		}
		c.pos++
		row, err := c.parseArrayRow()
		if err != nil {
			return err
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return c.errorf("array rows have different lengths")
		}
		rows = append(rows, row)

		switch {
		case c.peek().TType == efp.TokenTypeArgument:
			c.pos++
		case c.is(efp.TokenTypeFunction, efp.TokenSubTypeStop):
			c.pos++
			c.emit(&token.Array{Rows: rows})
			return nil
		default:
			return c.errorf("expected ';' or '}' in array")
		}
	}
}

func (c *compiler) parseArrayRow() ([]token.Token, error) {
	var row []token.Token
	for {
		negate := false
		if t := c.peek(); t.TType == efp.TokenTypeOperatorPrefix && t.TValue == "-" {
			negate = true
			c.pos++
		}
		t := c.peek()
		if t.TType != efp.TokenTypeOperand || t.TSubType == efp.TokenSubTypeRange {
			return nil, c.errorf("array elements must be constants")
		}
		v, err := c.operand(t)
		if err != nil {
			return nil, err
		}
		if negate {
			n, ok := v.(token.Number)
			if !ok {
				return nil, c.errorf("only numbers can be negated in an array")
			}
			v = -n
		}
		c.pos++
		row = append(row, v)

		switch {
		case c.peek().TType == efp.TokenTypeArgument:
			c.pos++
		case c.is(efp.TokenTypeFunction, efp.TokenSubTypeStop):
			c.pos++
			return row, nil
		default:
			return nil, c.errorf("expected ',' in array")
		}
	}
}

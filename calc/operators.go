package calc

import (
	"math"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// operator applies an operator to its operands in left-to-right order
func (ev *evaluation) operator(op token.OperatorKind, args []token.Token, anchor reference.Anchor) token.Token {
	if op.IsReferenceOp() {
		return ev.referenceOp(op, ev.expand(args[0], anchor), ev.expand(args[1], anchor), anchor)
	}
	if op.Arity() == 1 {
		return broadcast1(ev.value(args[0], anchor), func(v token.Token) token.Token {
			return unary(op, v)
		})
	}
	left := ev.value(args[0], anchor)
	right := ev.value(args[1], anchor)
	return broadcast2(left, right, func(a, b token.Token) token.Token {
		return binary(op, a, b)
	})
}

// broadcast1 maps a scalar function over an array
func broadcast1(v token.Token, f func(token.Token) token.Token) token.Token {
	arr, ok := v.(*token.Array)
	if !ok {
		return f(v)
	}
	rows, cols := arr.Dims()
	out := token.NewArray(rows, cols)
	for i := range rows {
		for j := range cols {
			out.Rows[i][j] = f(arr.At(i, j))
		}
	}
	return out
}

// broadcast2 applies a scalar function to two operands. a scalar meets
// every element of an array, arrays of equal shape pair up element by
// element and any other pair of shapes is #VALUE!.
func broadcast2(a, b token.Token, f func(a, b token.Token) token.Token) token.Token {
	if e, ok := a.(token.Error); ok {
		return e
	}
	if e, ok := b.(token.Error); ok {
		return e
	}
	a, b = unwrapSingle(a), unwrapSingle(b)
	aa, aArr := a.(*token.Array)
	ba, bArr := b.(*token.Array)

	switch {
	case !aArr && !bArr:
		return f(a, b)
	case aArr && !bArr:
		return broadcast1(aa, func(v token.Token) token.Token { return f(v, b) })
	case !aArr && bArr:
		return broadcast1(ba, func(v token.Token) token.Token { return f(a, v) })
	}

	rows, cols := aa.Dims()
	if r, c := ba.Dims(); r != rows || c != cols {
		return token.NewError(token.ErrorValue, "array shapes do not match")
	}
	out := token.NewArray(rows, cols)
	for i := range rows {
		for j := range cols {
			out.Rows[i][j] = f(aa.At(i, j), ba.At(i, j))
		}
	}
	return out
}

// unwrapSingle treats a 1x1 array as the scalar it holds
func unwrapSingle(v token.Token) token.Token {
	if arr, ok := v.(*token.Array); ok {
		if rows, cols := arr.Dims(); rows == 1 && cols == 1 {
			return arr.At(0, 0)
		}
	}
	return v
}

func unary(op token.OperatorKind, v token.Token) token.Token {
	n, err := toNumber(v)
	if err != nil {
		return errorValue(err)
	}
	switch op {
	case token.OpUnaryPlus:
		return token.Number(n)
	case token.OpUnaryMinus:
		return token.Number(-n)
	case token.OpPercent:
		return token.Number(n / 100)
	}
	return token.NewError(token.ErrorValue, "unknown unary operator "+op.Symbol())
}

func binary(op token.OperatorKind, a, b token.Token) token.Token {
	if e, ok := a.(token.Error); ok {
		return e
	}
	if e, ok := b.(token.Error); ok {
		return e
	}

	if op.IsComparison() {
		cmp := token.Compare(a, b)
		switch op {
		case token.OpEq:
			return token.Bool(cmp == 0)
		case token.OpNe:
			return token.Bool(cmp != 0)
		case token.OpLt:
			return token.Bool(cmp < 0)
		case token.OpLe:
			return token.Bool(cmp <= 0)
		case token.OpGt:
			return token.Bool(cmp > 0)
		case token.OpGe:
			return token.Bool(cmp >= 0)
		}
	}

	if op == token.OpConcat {
		left, err := toText(a)
		if err != nil {
			return errorValue(err)
		}
		right, err := toText(b)
		if err != nil {
			return errorValue(err)
		}
		return token.Str(left + right)
	}

	x, err := toNumber(a)
	if err != nil {
		return errorValue(err)
	}
	y, err := toNumber(b)
	if err != nil {
		return errorValue(err)
	}

	var n float64
	switch op {
	case token.OpAdd:
		n = x + y
	case token.OpSub:
		n = x - y
	case token.OpMul:
		n = x * y
	case token.OpDiv:
		if y == 0 {
			return token.NewError(token.ErrorDivZero, "division by zero")
		}
		n = x / y
	case token.OpPower:
		if x == 0 && y < 0 {
			return token.NewError(token.ErrorDivZero, "division by zero")
		}
		n = math.Pow(x, y)
	default:
		return token.NewError(token.ErrorValue, "unknown operator "+op.Symbol())
	}
	v, err := numberResult(n)
	if err != nil {
		return errorValue(err)
	}
	return v
}

// referenceOp implements the range, intersection and union operators.
// both operands must be references.
func (ev *evaluation) referenceOp(op token.OperatorKind, a, b token.Token, anchor reference.Anchor) token.Token {
	if e, ok := a.(token.Error); ok {
		return e
	}
	if e, ok := b.(token.Error); ok {
		return e
	}
	if !token.IsReference(a) || !token.IsReference(b) {
		return token.NewError(token.ErrorValue, op.Symbol()+" needs reference operands")
	}

	if op == token.OpUnion {
		out := &token.RefList{}
		for _, t := range []token.Token{a, b} {
			if list, ok := t.(*token.RefList); ok {
				out.Refs = append(out.Refs, list.Refs...)
			} else {
				out.Refs = append(out.Refs, t)
			}
		}
		return out
	}

	left, err := ev.resolver.Resolve(a, anchor)
	if err != nil {
		return errorValue(err)
	}
	right, err := ev.resolver.Resolve(b, anchor)
	if err != nil {
		return errorValue(err)
	}

	switch op {
	case token.OpIntersect:
		x, ok := left.Intersect(right)
		if !ok {
			return token.NewError(token.ErrorNull, "ranges do not intersect")
		}
		return x.Token()
	case token.OpRange:
		if left.FirstSheet != right.FirstSheet || left.LastSheet != right.LastSheet {
			return token.NewError(token.ErrorValue, "range operands are on different sheets")
		}
		return reference.Range{
			FirstSheet: left.FirstSheet,
			LastSheet:  left.LastSheet,
			FirstRow:   min(left.FirstRow, right.FirstRow),
			FirstCol:   min(left.FirstCol, right.FirstCol),
			LastRow:    max(left.LastRow, right.LastRow),
			LastCol:    max(left.LastCol, right.LastCol),
		}.Token()
	}
	return token.NewError(token.ErrorValue, "unknown reference operator")
}

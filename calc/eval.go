package calc

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// evaluation is the state of one top-level evaluation: the workbook being
// read and how deeply formula evaluations are nested
type evaluation struct {
	engine   *Engine
	book     Workbook
	resolver *reference.Resolver
	depth    int
}

func (e *Engine) newEvaluation(book Workbook) *evaluation {
	if book == nil {
		book = emptyBook{}
	}
	return &evaluation{
		engine:   e,
		book:     book,
		resolver: reference.NewResolver(e.settings.Format, book, book),
	}
}

// run reduces a postfix token stream. references are pushed as they are
// and only dereferenced by the operator or function consuming them.
func (ev *evaluation) run(tokens []token.Token, anchor reference.Anchor) (token.Token, error) {
	stack := make([]token.Token, 0, len(tokens))
	pop := func(n int) ([]token.Token, bool) {
		if n < 0 || n > len(stack) {
			return nil, false
		}
		args := make([]token.Token, n)
		copy(args, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return args, true
	}

	for i, t := range tokens {
		if t == nil {
			return nil, &EvalError{Pos: i, Err: ErrMalformedStack}
		}
		switch t.Kind() {
		case token.KindParen:
			continue

		case token.KindOperator:
			op := t.(token.Operator)
			n := op.Arity
			if n == 0 {
				n = op.Op.Arity()
			}
			args, ok := pop(n)
			if !ok || n != op.Op.Arity() {
				return nil, &EvalError{Pos: i, Token: t, Err: ErrMalformedStack}
			}
			stack = append(stack, ev.operator(op.Op, args, anchor))

		case token.KindFunction:
			call := t.(token.FunctionCall)
			args, ok := pop(call.Argc)
			if !ok {
				return nil, &EvalError{Pos: i, Token: t, Err: ErrMalformedStack}
			}
			stack = append(stack, ev.call(call, args, anchor))

		case token.KindNumber, token.KindInteger, token.KindString, token.KindBool,
			token.KindBlank, token.KindError, token.KindMissing, token.KindArray,
			token.KindCellRef, token.KindAreaRef, token.KindRefList, token.KindNameRef:
			stack = append(stack, t)

		default:
			return nil, &EvalError{Pos: i, Token: t, Err: ErrMalformedStack}
		}
	}

	if len(stack) != 1 {
		return nil, &EvalError{
			Pos: len(tokens),
			Err: fmt.Errorf("%w: %d values left on the stack", ErrMalformedStack, len(stack)),
		}
	}
	return stack[0], nil
}

// result dereferences the final stack value of a formula. a formula never
// produces blank; it reads as 0.
func (ev *evaluation) result(v token.Token, anchor reference.Anchor) token.Token {
	switch x := ev.value(v, anchor).(type) {
	case token.Blank:
		return token.Number(0)
	case token.Integer:
		return token.Number(x)
	default:
		return x
	}
}

// value dereferences an operand: a cell becomes its value and an area a
// grid of values
func (ev *evaluation) value(t token.Token, anchor reference.Anchor) token.Token {
	switch x := t.(type) {
	case token.NameRef:
		return ev.value(ev.expand(x, anchor), anchor)
	case token.CellRef:
		rng, err := ev.resolver.Resolve(x, anchor)
		if err != nil {
			return errorValue(err)
		}
		if !rng.IsCell() {
			return ev.gridValue(x, anchor)
		}
		return ev.cell(rng.FirstSheet, rng.FirstRow, rng.FirstCol)
	case token.AreaRef:
		return ev.gridValue(x, anchor)
	case *token.RefList:
		return token.NewError(token.ErrorValue, "a multi-area reference has no single value")
	case token.Missing:
		return token.Blank{}
	}
	return t
}

func (ev *evaluation) gridValue(t token.Token, anchor reference.Anchor) token.Token {
	grid, err := ev.grid(t, anchor)
	if err != nil {
		return errorValue(err)
	}
	return grid
}

// grid reads the values of a single-sheet, single-area reference
func (ev *evaluation) grid(t token.Token, anchor reference.Anchor) (*token.Array, error) {
	ranges, err := ev.resolver.ResolveAll(t, anchor)
	if err != nil {
		return nil, err
	}
	if len(ranges) != 1 || ranges[0].Is3D() {
		return nil, token.NewError(token.ErrorValue, "reference must be a single area on one sheet")
	}
	rng := ev.used(ranges[0])
	out := token.NewArray(int(rng.Rows()), int(rng.Cols()))
	err = ev.iterate(rng, func(row, col int32, v token.Token) error {
		out.Rows[row-rng.FirstRow][col-rng.FirstCol] = v
		return nil
	})
	return out, err
}

// used limits the open axis of a whole-row or whole-column range to the
// used area of its sheet. bounded ranges keep their declared shape and
// read blank past the used area.
func (ev *evaluation) used(rng reference.Range) reference.Range {
	rows, cols := ev.book.Bounds(rng.FirstSheet)
	format := ev.resolver.Format
	if rng.FirstRow == 0 && rng.LastRow >= format.MaxRows()-1 {
		rng.LastRow = max(0, rows-1)
	}
	if rng.FirstCol == 0 && rng.LastCol >= format.MaxCols()-1 {
		rng.LastCol = max(0, cols-1)
	}
	return rng
}

// iterate visits every cell of a single-sheet range in row-major order
func (ev *evaluation) iterate(rng reference.Range, fn func(row, col int32, v token.Token) error) error {
	for row := rng.FirstRow; row <= rng.LastRow; row++ {
		for col := rng.FirstCol; col <= rng.LastCol; col++ {
			if err := fn(row, col, ev.cell(rng.FirstSheet, row, col)); err != nil {
				return err
			}
		}
	}
	return nil
}

// expand replaces a name by what it stands for: a reference, a constant
// or the value of its formula
func (ev *evaluation) expand(t token.Token, anchor reference.Anchor) token.Token {
	name, ok := t.(token.NameRef)
	if !ok {
		return t
	}
	def, ok := ev.book.DefinedName(name.Name)
	if !ok {
		return token.NewError(token.ErrorName, "undefined name: "+name.Name)
	}
	if len(def) == 1 && token.IsOperand(def[0]) {
		if next, ok := def[0].(token.NameRef); ok {
			if !ev.enter(anchor) {
				return token.Circular()
			}
			defer ev.leave()
			return ev.expand(next, anchor)
		}
		return def[0]
	}
	if !ev.enter(anchor) {
		return token.Circular()
	}
	defer ev.leave()
	v, err := ev.run(def, anchor)
	if err != nil {
		ev.engine.logger.Error("malformed name definition", "name", name.Name, "error", err)
		return token.NewError(token.ErrorValue, err.Error())
	}
	return v
}

// enter counts one more nested formula evaluation. it reports false, and
// logs, when the recursion limit is reached.
func (ev *evaluation) enter(at reference.Anchor) bool {
	limit := ev.engine.settings.RecursionLimit
	if ev.depth >= limit {
		ev.engine.logger.Warn("circular reference",
			"sheet", at.Sheet,
			"row", at.Row,
			"col", at.Col,
			"cell", token.CellName(at.Row, at.Col),
			"depth", ev.depth,
			"limit", limit)
		return false
	}
	ev.depth++
	return true
}

func (ev *evaluation) leave() {
	ev.depth--
}

// cell reads one cell, recomputing formula cells as the calculation mode
// requires
func (ev *evaluation) cell(sheet string, row, col int32) token.Token {
	data := ev.book.Cell(sheet, row, col)
	if data.Formula == nil {
		return valueOf(data.Value)
	}
	switch ev.engine.settings.Mode {
	case Explicit:
		if data.Cached != nil {
			return data.Cached
		}
	case Automatic:
		if !data.Dirty && data.Cached != nil {
			return data.Cached
		}
	case Always:
	}
	return ev.calculate(sheet, row, col, data)
}

// calculate evaluates a formula cell and stores its result. an area result
// stores its top-left value.
func (ev *evaluation) calculate(sheet string, row, col int32, data CellData) token.Token {
	if !ev.enter(reference.NewAnchor(sheet, row, col)) {
		return token.Circular()
	}
	defer ev.leave()

	var result token.Token
	v, err := ev.run(data.Formula, data.Anchor)
	if err != nil {
		ev.engine.logger.Error("malformed formula",
			"sheet", sheet, "cell", token.CellName(row, col), "error", err)
		result = token.NewError(token.ErrorValue, err.Error())
	} else {
		result = ev.result(v, data.Anchor)
	}
	if arr, ok := result.(*token.Array); ok {
		result = arr.At(0, 0)
		if token.IsBlank(result) {
			result = token.Number(0)
		}
	}
	ev.book.StoreResult(sheet, row, col, result)
	return result
}

// call applies a function to its arguments. names are always expanded;
// references are dereferenced unless the function takes them raw, and the
// first error argument is the result unless the function handles errors.
func (ev *evaluation) call(fc token.FunctionCall, args []token.Token, anchor reference.Anchor) token.Token {
	name := fc.FuncName()
	fn, ok := ev.engine.functions[name]
	if !ok {
		return token.NewError(token.ErrorName, "unknown function: "+name)
	}
	if len(args) < fn.MinArgs || len(args) > fn.MaxArgs {
		return token.NewError(token.ErrorValue, fmt.Sprintf("%s takes %d to %d arguments, got %d", name, fn.MinArgs, fn.MaxArgs, len(args)))
	}

	for i, a := range args {
		a = ev.expand(a, anchor)
		if fn.Flags&RefArgs == 0 {
			a = ev.value(a, anchor)
			if _, missing := args[i].(token.Missing); missing {
				a = token.Missing{}
			}
		}
		args[i] = a
	}
	if fn.Flags&RawErrors == 0 {
		for _, a := range args {
			if e, ok := a.(token.Error); ok {
				return e
			}
		}
	}

	c := &Context{ev: ev, Anchor: anchor, Name: name}
	v, err := fn.Call(c, args)
	if err != nil {
		return errorValue(err)
	}
	if v == nil {
		return token.Blank{}
	}
	return v
}

// emptyBook is used when evaluating without a workbook: it has no sheets
// and no names
type emptyBook struct{}

func (emptyBook) SheetIndex(string) (int, bool)                     { return 0, false }
func (emptyBook) SheetNames() []string                              { return nil }
func (emptyBook) DefinedName(string) ([]token.Token, bool)          { return nil, false }
func (emptyBook) Cell(string, int32, int32) CellData                { return CellData{} }
func (emptyBook) StoreResult(string, int32, int32, token.Token)     {}
func (emptyBook) Bounds(string) (int32, int32)                      { return 0, 0 }

package calc_test

import (
	"math"
	"strings"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/compile"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

type cellKey struct {
	sheet    string
	row, col int32
}

// testBook is a map-backed workbook
type testBook struct {
	sheets []string
	cells  map[cellKey]*calc.CellData
	names  map[string][]token.Token
}

func newTestBook(sheets ...string) *testBook {
	if len(sheets) == 0 {
		sheets = []string{"Sheet1"}
	}
	return &testBook{
		sheets: sheets,
		cells:  make(map[cellKey]*calc.CellData),
		names:  make(map[string][]token.Token),
	}
}

func (b *testBook) SheetIndex(name string) (int, bool) {
	for i, s := range b.sheets {
		if token.EqualFold(s, name) {
			return i, true
		}
	}
	return 0, false
}

func (b *testBook) SheetNames() []string {
	return b.sheets
}

func (b *testBook) DefinedName(name string) ([]token.Token, bool) {
	def, ok := b.names[strings.ToUpper(name)]
	return def, ok
}

func (b *testBook) Cell(sheet string, row, col int32) calc.CellData {
	if data, ok := b.cells[cellKey{sheet, row, col}]; ok {
		return *data
	}
	return calc.CellData{}
}

func (b *testBook) StoreResult(sheet string, row, col int32, result token.Token) {
	if data, ok := b.cells[cellKey{sheet, row, col}]; ok {
		data.Cached = result
		data.Dirty = false
	}
}

func (b *testBook) Bounds(sheet string) (rows, cols int32) {
	for k := range b.cells {
		if k.sheet != sheet {
			continue
		}
		rows = max(rows, k.row+1)
		cols = max(cols, k.col+1)
	}
	return rows, cols
}

// literal turns cell input into a constant: numbers, booleans, error
// literals and otherwise text
func literal(input string) token.Token {
	if n, ok := token.ParseDecimal(input); ok {
		return token.Number(n)
	}
	switch strings.ToUpper(input) {
	case "TRUE":
		return token.Bool(true)
	case "FALSE":
		return token.Bool(false)
	}
	if kind, ok := token.ParseErrorKind(input); ok {
		return token.NewError(kind, "")
	}
	return token.Str(input)
}

// CalcTestCase drives an engine over a test workbook. every step is
// skipped once a previous step failed.
type CalcTestCase struct {
	t       *testing.T
	name    string
	book    *testBook
	engine  *calc.Engine
	skipped bool
	err     error
}

func NewCalcTestCase(t *testing.T, name string, opts ...calc.Option) *CalcTestCase {
	t.Helper()
	return &CalcTestCase{
		t:      t,
		name:   name,
		book:   newTestBook(),
		engine: calc.New(opts...),
	}
}

// Sheets replaces the workbook's sheet list
func (tc *CalcTestCase) Sheets(names ...string) *CalcTestCase {
	tc.book.sheets = names
	return tc
}

func (tc *CalcTestCase) cellAt(address string) (string, int32, int32, bool) {
	tc.t.Helper()
	ref, err := token.ParseReference(address)
	if err != nil {
		tc.t.Errorf("[%s] bad address %s: %v", tc.name, address, err)
		tc.skipped = true
		return "", 0, 0, false
	}
	cell, ok := ref.(token.CellRef)
	if !ok {
		tc.t.Errorf("[%s] %s is not a cell", tc.name, address)
		tc.skipped = true
		return "", 0, 0, false
	}
	sheet := cell.Sheet
	if sheet == "" {
		sheet = tc.book.sheets[0]
	}
	return sheet, cell.Row, cell.Col, true
}

// Set stores a constant or, for input starting with '=', a formula
func (tc *CalcTestCase) Set(address, input string) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	sheet, row, col, ok := tc.cellAt(address)
	if !ok {
		return tc
	}
	data := &calc.CellData{}
	if strings.HasPrefix(input, "=") {
		tokens, err := compile.Compile(input)
		if err != nil {
			tc.t.Errorf("[%s] compile %s failed: %v", tc.name, input, err)
			tc.skipped = true
			return tc
		}
		data.Formula = tokens
		data.Anchor = reference.NewAnchor(sheet, row, col)
		data.Dirty = true
	} else {
		data.Value = literal(input)
	}
	tc.book.cells[cellKey{sheet, row, col}] = data
	return tc
}

// Poke changes a constant without marking anything dirty
func (tc *CalcTestCase) Poke(address, input string) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	if sheet, row, col, ok := tc.cellAt(address); ok {
		tc.book.cells[cellKey{sheet, row, col}] = &calc.CellData{Value: literal(input)}
	}
	return tc
}

// Dirty marks a formula cell dirty
func (tc *CalcTestCase) Dirty(address string) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	if sheet, row, col, ok := tc.cellAt(address); ok {
		if data, ok := tc.book.cells[cellKey{sheet, row, col}]; ok {
			data.Dirty = true
		}
	}
	return tc
}

// Define adds a defined name
func (tc *CalcTestCase) Define(name, formula string) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	tokens, err := compile.Compile(formula)
	if err != nil {
		tc.t.Errorf("[%s] compile %s failed: %v", tc.name, formula, err)
		tc.skipped = true
		return tc
	}
	tc.book.names[strings.ToUpper(name)] = tokens
	return tc
}

// Eval evaluates a formula at Sheet1!Z100, a cell outside the test data
func (tc *CalcTestCase) Eval(formula string) token.Token {
	tc.t.Helper()
	if tc.skipped {
		return nil
	}
	tokens, err := compile.Compile(formula)
	if err != nil {
		tc.t.Errorf("[%s] compile %s failed: %v", tc.name, formula, err)
		return nil
	}
	v, err := tc.engine.Evaluate(tc.book, tokens, reference.NewAnchor(tc.book.sheets[0], 99, 25))
	if err != nil {
		tc.t.Errorf("[%s] evaluate %s failed: %v", tc.name, formula, err)
		return nil
	}
	return v
}

// AssertEval checks the result of a formula evaluated outside the grid
func (tc *CalcTestCase) AssertEval(formula string, expected any) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	if got := tc.Eval(formula); got != nil {
		tc.check(formula, got, expected)
	}
	return tc
}

// AssertCellEq reads a cell through the engine and checks its value
func (tc *CalcTestCase) AssertCellEq(address string, expected any) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	if sheet, row, col, ok := tc.cellAt(address); ok {
		tc.check(address, tc.engine.Value(tc.book, sheet, row, col), expected)
	}
	return tc
}

// AssertCellFn runs an arbitrary check against a cell's value
func (tc *CalcTestCase) AssertCellFn(address string, fn func(v token.Token) bool) *CalcTestCase {
	tc.t.Helper()
	if tc.skipped {
		return tc
	}
	if sheet, row, col, ok := tc.cellAt(address); ok {
		if v := tc.engine.Value(tc.book, sheet, row, col); !fn(v) {
			tc.t.Errorf("[%s] %s: check failed for %v", tc.name, address, v)
		}
	}
	return tc
}

// check compares a value with the expectation: numbers within 1e-10,
// strings, booleans, error kinds and nil for blank
func (tc *CalcTestCase) check(what string, got token.Token, expected any) {
	tc.t.Helper()
	switch want := expected.(type) {
	case int:
		tc.checkNumber(what, got, float64(want))
	case float64:
		tc.checkNumber(what, got, want)
	case string:
		if s, ok := got.(token.Str); !ok || string(s) != want {
			tc.t.Errorf("[%s] %s = %v (%T), want %q", tc.name, what, got, got, want)
		}
	case bool:
		if b, ok := got.(token.Bool); !ok || bool(b) != want {
			tc.t.Errorf("[%s] %s = %v (%T), want %v", tc.name, what, got, got, want)
		}
	case token.ErrorKind:
		if e, ok := got.(token.Error); !ok || e.Code != want {
			tc.t.Errorf("[%s] %s = %v, want %s", tc.name, what, got, want)
		}
	case nil:
		if !token.IsBlank(got) {
			tc.t.Errorf("[%s] %s = %v, want blank", tc.name, what, got)
		}
	default:
		tc.t.Errorf("[%s] unsupported expectation %T", tc.name, expected)
	}
}

func (tc *CalcTestCase) checkNumber(what string, got token.Token, want float64) {
	tc.t.Helper()
	n, ok := got.(token.Number)
	if !ok {
		tc.t.Errorf("[%s] %s = %v (%T), want %v", tc.name, what, got, got, want)
		return
	}
	if math.Abs(float64(n)-want) > 1e-10 {
		tc.t.Errorf("[%s] %s = %v, want %v", tc.name, what, float64(n), want)
	}
}

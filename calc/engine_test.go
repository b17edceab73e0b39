package calc_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/compile"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func TestBinaryOperatorErrors(t *testing.T) {
	for _, op := range []string{"+", "-", "*", "/", "^", "&", "<", "<=", "=", ">=", ">", "<>"} {
		t.Run(op, func(t *testing.T) {
			NewCalcTestCase(t, "operator "+op).
				Set("A1", "=1/0").
				AssertEval("=#DIV/0!"+op+"#N/A", token.ErrorDivZero).
				AssertEval("=1"+op+"#N/A", token.ErrorNA).
				AssertEval("=#REF!"+op+"1", token.ErrorRef).
				AssertEval("=A1"+op+"2", token.ErrorDivZero).
				AssertEval("=2"+op+"A1", token.ErrorDivZero)
		})
	}
}

func TestUnaryOperators(t *testing.T) {
	NewCalcTestCase(t, "unary").
		Set("A1", "4").
		AssertEval("=-A1", -4).
		AssertEval("=+A1", 4).
		AssertEval("=A1%", 0.04).
		AssertEval("=-#N/A", token.ErrorNA).
		AssertEval(`=-"x"`, token.ErrorValue).
		AssertEval("=-2^2", 4)
}

func TestArithmetic(t *testing.T) {
	NewCalcTestCase(t, "arithmetic").
		Set("A1", "3").
		Set("A2", "text").
		AssertEval("=1+2*3", 7).
		AssertEval("=(1+2)*3", 9).
		AssertEval("=2^3^2", 64).
		AssertEval("=10/4", 2.5).
		AssertEval("=1/0", token.ErrorDivZero).
		AssertEval(`="2"+1`, 3).
		AssertEval("=TRUE+1", 2).
		AssertEval(`=" 1e3 "+1`, 1001).
		AssertEval(`="50%"*2`, 1).
		AssertEval(`="0x1p4"+0`, token.ErrorValue).
		AssertEval(`="1_000"+0`, token.ErrorValue).
		AssertEval(`="Inf"+0`, token.ErrorValue).
		AssertEval("=A2+1", token.ErrorValue).
		AssertEval("=Z50+1", 1).
		AssertEval("=Z50", 0).
		AssertEval(`=1&"x"`, "1x").
		AssertEval(`=A1&A2`, "3text").
		AssertEval(`=TRUE&""`, "TRUE")
}

func TestComparisons(t *testing.T) {
	NewCalcTestCase(t, "comparisons").
		AssertEval(`="a"="A"`, true).
		AssertEval(`="a"<"b"`, true).
		AssertEval(`=1<"a"`, true).
		AssertEval(`="a"<TRUE`, true).
		AssertEval("=TRUE>1", true).
		AssertEval("=2<>2", false).
		AssertEval("=Z50=0", true).
		AssertEval(`=Z50=""`, true)
}

func TestBroadcasting(t *testing.T) {
	tc := NewCalcTestCase(t, "broadcasting").
		Set("A1", "1").
		Set("A2", "2").
		Set("A3", "3").
		AssertEval("=SUM({1,2,3}*2)", 12).
		AssertEval("=SUM({1,2}+{10,20})", 33).
		AssertEval("=SUM({1,2}+{1,2,3})", token.ErrorValue).
		AssertEval("=SUM(A1:A3*2)", 12).
		AssertEval("=SUM(-A1:A3)", -6).
		AssertEval("={5}+1", 6)

	v := tc.Eval("={1,2}*2")
	arr, ok := v.(*token.Array)
	if !ok {
		t.Fatalf("={1,2}*2 = %v (%T), want an array", v, v)
	}
	if rows, cols := arr.Dims(); rows != 1 || cols != 2 || arr.At(0, 1) != token.Number(4) {
		t.Errorf("={1,2}*2 = %v", arr)
	}
}

func TestAreaResultStoresTopLeft(t *testing.T) {
	NewCalcTestCase(t, "area result").
		Set("A1", "7").
		Set("A2", "8").
		Set("B1", "=A1:A2").
		Set("B2", "={1,2}*3").
		AssertCellEq("B1", 7).
		AssertCellEq("B2", 3)
}

func TestReferenceOperators(t *testing.T) {
	tc := NewCalcTestCase(t, "reference operators").
		Set("A1", "1").
		Set("A2", "2").
		Set("A3", "3").
		Set("B2", "20").
		AssertEval("=SUM((A1,A3))", 4).
		AssertEval("=SUM((A1:A2,B2,A3))", 26).
		AssertEval("=A1:A3 A2:B2", 2).
		AssertEval("=A1 B2", token.ErrorNull).
		AssertEval("=SUM(A1:B3 B1:B3)", 20)

	// the range operator joins two references into their bounding area
	tokens := []token.Token{
		token.NewCellRef("", 0, 0),
		token.NewCellRef("", 1, 1),
		token.NewOperator(token.OpRange),
		token.NewFunctionCall("SUM", 1),
	}
	v, err := tc.engine.Evaluate(tc.book, tokens, reference.NewAnchor("Sheet1", 9, 9))
	if err != nil {
		t.Fatal(err)
	}
	if v != token.Number(23) {
		t.Errorf("SUM(A1:B2) = %v, want 23", v)
	}
}

func TestThreeDimensionalReferences(t *testing.T) {
	NewCalcTestCase(t, "3-D").
		Sheets("Sheet1", "Sheet2", "Sheet3").
		Set("Sheet1!A1", "1").
		Set("Sheet2!A1", "2").
		Set("Sheet3!A1", "3").
		AssertEval("=SUM(Sheet1:Sheet3!A1)", 6).
		AssertEval("=SUM(Sheet2:Sheet3!A1)", 5).
		AssertEval("=Sheet3!A1*2", 6).
		AssertEval("=Missing!A1", token.ErrorRef)
}

func TestDefinedNames(t *testing.T) {
	NewCalcTestCase(t, "names").
		Set("A1", "2").
		Set("A2", "3").
		Set("A3", "4").
		Define("Rate", "=Sheet1!$A$1").
		Define("Values", "=Sheet1!$A$1:$A$3").
		Define("Total", "=SUM(Sheet1!$A$1:$A$3)").
		Define("Alias", "=Rate").
		Define("Ten", "=10").
		AssertEval("=Rate*2", 4).
		AssertEval("=SUM(Values)", 9).
		AssertEval("=Total+1", 10).
		AssertEval("=Alias", 2).
		AssertEval("=Ten/Rate", 5).
		AssertEval("=rate", 2).
		AssertEval("=Nowhere+1", token.ErrorName)
}

func TestFunctionCallErrors(t *testing.T) {
	NewCalcTestCase(t, "calls").
		AssertEval("=FOO(1)", token.ErrorName).
		AssertEval("=ROUND(1)", token.ErrorValue).
		AssertEval("=ABS(1/0)", token.ErrorDivZero).
		AssertEval("=SUM(1,#N/A,1/0)", token.ErrorNA)
}

func TestAddInFunction(t *testing.T) {
	double := calc.Function{
		Name:    "DOUBLE",
		MinArgs: 1,
		MaxArgs: 1,
		Call: func(c *calc.Context, args []token.Token) (token.Token, error) {
			n, err := c.Number(args[0])
			if err != nil {
				return nil, err
			}
			return token.Number(2 * n), nil
		},
	}
	NewCalcTestCase(t, "add-in", calc.WithFunction(double)).
		Set("A1", "21").
		AssertEval("=DOUBLE(A1)", 42).
		AssertEval(`=DOUBLE("x")`, token.ErrorValue)
}

func TestCircularReference(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tc := NewCalcTestCase(t, "circular", calc.WithLogger(logger)).
		Set("A1", "=B1+1").
		Set("B1", "=A1+1")
	tc.engine.SetRecursionLimit(5)

	v := tc.engine.Calculate(tc.book, "Sheet1", 0, 0)
	if !token.IsCircular(v) {
		t.Fatalf("A1 = %v, want the circular reference error", v)
	}
	if e := v.(token.Error); e.Code != token.ErrorNum {
		t.Errorf("circular error kind = %s, want #NUM!", e.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "circular reference") || !strings.Contains(out, "limit=5") {
		t.Errorf("missing circular reference log entry: %s", out)
	}
}

func TestSelfReference(t *testing.T) {
	NewCalcTestCase(t, "self").
		Set("A1", "=A1+1").
		AssertCellFn("A1", token.IsCircular)
}

func TestDeepChainWithinLimit(t *testing.T) {
	tc := NewCalcTestCase(t, "chain").Set("A1", "1")
	for row := 2; row <= 20; row++ {
		tc.Set("A"+itoa(row), "=A"+itoa(row-1)+"+1")
	}
	tc.AssertCellEq("A20", 20)
}

func TestRecursionLimitSettings(t *testing.T) {
	e := calc.New()
	if got := e.Settings().RecursionLimit; got != calc.DefaultRecursionLimit {
		t.Errorf("default recursion limit = %d", got)
	}
	e.SetRecursionLimit(7)
	if got := e.Settings().RecursionLimit; got != 7 {
		t.Errorf("recursion limit = %d, want 7", got)
	}
	e.SetRecursionLimit(0)
	if got := e.Settings().RecursionLimit; got != calc.DefaultRecursionLimit {
		t.Errorf("recursion limit = %d, want the default", got)
	}
}

func TestMalformedStreams(t *testing.T) {
	tests := []struct {
		name   string
		tokens []token.Token
	}{
		{"empty", nil},
		{"two values", []token.Token{token.Number(1), token.Number(2)}},
		{"operator underflow", []token.Token{token.Number(1), token.NewOperator(token.OpAdd)}},
		{"function underflow", []token.Token{token.NewFunctionCall("SUM", 3)}},
		{"nil token", []token.Token{nil}},
	}
	e := calc.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Evaluate(nil, tt.tokens, reference.NewAnchor("Sheet1", 0, 0))
			if !errors.Is(err, calc.ErrMalformedStack) {
				t.Fatalf("err = %v, want ErrMalformedStack", err)
			}
			var evalErr *calc.EvalError
			if !errors.As(err, &evalErr) {
				t.Errorf("err is %T, want *EvalError", err)
			}
		})
	}
}

func TestMalformedFormulaCell(t *testing.T) {
	tc := NewCalcTestCase(t, "malformed cell")
	tc.book.cells[cellKey{"Sheet1", 0, 0}] = &calc.CellData{
		Formula: []token.Token{token.Number(1), token.Number(2)},
		Anchor:  reference.NewAnchor("Sheet1", 0, 0),
	}
	tc.AssertCellEq("A1", token.ErrorValue)
}

func TestCalculationModes(t *testing.T) {
	t.Run("automatic", func(t *testing.T) {
		NewCalcTestCase(t, "automatic").
			Set("A1", "1").
			Set("B1", "=A1*2").
			AssertCellEq("B1", 2).
			Poke("A1", "5").
			AssertCellEq("B1", 2).
			Dirty("B1").
			AssertCellEq("B1", 10)
	})

	t.Run("explicit", func(t *testing.T) {
		tc := NewCalcTestCase(t, "explicit").
			Set("A1", "1").
			Set("B1", "=A1*2")
		tc.engine.SetMode(calc.Explicit)
		tc.AssertCellEq("B1", 2).
			Poke("A1", "5").
			Dirty("B1").
			AssertCellEq("B1", 2)
		if v := tc.engine.Calculate(tc.book, "Sheet1", 0, 1); v != token.Number(10) {
			t.Errorf("Calculate(B1) = %v, want 10", v)
		}
		tc.AssertCellEq("B1", 10)
	})

	t.Run("always", func(t *testing.T) {
		tc := NewCalcTestCase(t, "always").
			Set("A1", "1").
			Set("B1", "=A1*2")
		tc.engine.SetMode(calc.Always)
		tc.AssertCellEq("B1", 2).
			Poke("A1", "5").
			AssertCellEq("B1", 10)
	})
}

func TestParseMode(t *testing.T) {
	for _, m := range []calc.Mode{calc.Automatic, calc.Explicit, calc.Always} {
		got, err := calc.ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%s) = %v, %v", m, got, err)
		}
	}
	if _, err := calc.ParseMode("sometimes"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestIsVolatile(t *testing.T) {
	e := calc.New()
	tests := []struct {
		formula string
		want    bool
	}{
		{"=NOW()+1", true},
		{"=SUM(A1,RAND())", true},
		{`=INDIRECT("A1")`, true},
		{"=OFFSET(A1,1,1)", true},
		{"=SUM(1)", false},
		{"=A1+1", false},
	}
	for _, tt := range tests {
		tokens, err := compile.Compile(tt.formula)
		if err != nil {
			t.Fatal(err)
		}
		if got := e.IsVolatile(tokens); got != tt.want {
			t.Errorf("IsVolatile(%s) = %v, want %v", tt.formula, got, tt.want)
		}
	}
}

func TestEvaluateWithoutWorkbook(t *testing.T) {
	tokens, err := compile.Compile("=SUM(1,2)*2")
	if err != nil {
		t.Fatal(err)
	}
	v, err := calc.New().Evaluate(nil, tokens, reference.NewAnchor("Sheet1", 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if v != token.Number(6) {
		t.Errorf("got %v, want 6", v)
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

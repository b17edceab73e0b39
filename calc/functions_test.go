package calc_test

import (
	"testing"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fixedRandom float64

func (r fixedRandom) Float64() float64 { return float64(r) }

// sampleBook fills Sheet1 with the data the function tests read:
//
//	A1:A5   1..5
//	B1:B5   a..e
//	D1:F4   a lookup table keyed by 10, 20, 30, 40
//	H1:I4   a database with age and height fields
//	K1:L2   AND criteria, N1:N3 OR criteria, P1:Q3 both
func sampleBook(t *testing.T, name string, opts ...calc.Option) *CalcTestCase {
	tc := NewCalcTestCase(t, name, opts...)
	for i, letter := range []string{"a", "b", "c", "d", "e"} {
		tc.Set("A"+itoa(i+1), itoa(i+1))
		tc.Set("B"+itoa(i+1), letter)
	}
	for i, row := range [][3]string{
		{"10", "ten", "100"},
		{"20", "twenty", "200"},
		{"30", "thirty", "300"},
		{"40", "forty", "400"},
	} {
		r := itoa(i + 1)
		tc.Set("D"+r, row[0]).Set("E"+r, row[1]).Set("F"+r, row[2])
	}
	for i, row := range [][2]string{
		{"age", "height"},
		{"23", "88"},
		{"21", "99"},
		{"43", "56"},
	} {
		r := itoa(i + 1)
		tc.Set("H"+r, row[0]).Set("I"+r, row[1])
	}
	return tc.
		Set("K1", "age").Set("L1", "height").
		Set("K2", "<30").Set("L2", ">=90").
		Set("N1", "age").Set("N2", "<22").Set("N3", ">40").
		Set("P1", "age").Set("Q1", "height").
		Set("P2", "<30").Set("Q2", ">90").
		Set("P3", ">40").Set("Q3", "<60")
}

type evalCase struct {
	formula string
	want    any
}

func runEvalCases(t *testing.T, tc *CalcTestCase, cases []evalCase) {
	t.Helper()
	for _, c := range cases {
		tc.AssertEval(c.formula, c.want)
	}
}

func TestMathFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "math"), []evalCase{
		{"=SUM(A1:A5)", 15},
		{`=SUM(1,"2",TRUE)`, 4},
		{"=SUM(B1:B5)", 0},
		{`=SUM(1,"x")`, token.ErrorValue},
		{"=SUM(A:A)", 15},
		{"=PRODUCT(A1:A5)", 120},
		{"=SUMPRODUCT({1,2},{3,4})", 11},
		{`=SUMIF(A1:A5,">2")`, 12},
		{`=SUMIF(D1:D4,">=20",F1:F4)`, 900},
		{`=COUNTIF(A1:A5,"<3")`, 2},
		{`=COUNTIF(B1:B5,"b")`, 1},
		{"=ABS(-3)", 3},
		{"=INT(-1.5)", -2},
		{"=SIGN(-2)", -1},
		{"=ROUND(2.675,2)", 2.68},
		{"=ROUND(-2.5,0)", -3},
		{"=ROUNDUP(1.21,1)", 1.3},
		{"=ROUNDDOWN(-1.29,1)", -1.2},
		{"=TRUNC(8.9)", 8},
		{"=MOD(-3,2)", 1},
		{"=MOD(3,-2)", -1},
		{"=MOD(1,0)", token.ErrorDivZero},
		{"=POWER(2,10)", 1024},
		{"=SQRT(16)", 4},
		{"=SQRT(-1)", token.ErrorNum},
		{"=LN(0)", token.ErrorNum},
		{"=LOG(100)", 2},
		{"=LOG(8,2)", 3},
		{"=LOG10(1000)", 3},
		{"=FLOOR(2.5,1)", 2},
		{"=CEILING(2.1,0.5)", 2.5},
		{"=FACT(5)", 120},
		{"=COMBIN(5,2)", 10},
		{"=EVEN(3)", 4},
		{"=EVEN(-1)", -2},
		{"=ODD(2)", 3},
		{"=DEGREES(PI())", 180},
	})
}

func TestStatFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "stats"), []evalCase{
		{"=COUNT(A1:A5,B1:B5)", 5},
		{`=COUNT(1,"2","x",TRUE)`, 3},
		{"=COUNT(1/0,1)", 1},
		{"=COUNTA(A1:B5)", 10},
		{"=COUNTBLANK(C1:C5)", 5},
		{"=AVERAGE(A1:A5)", 3},
		{"=AVERAGE(B1:B5)", token.ErrorDivZero},
		{"=AVERAGEA(A1:B5)", 1.5},
		{"=MIN(A1:A5)", 1},
		{"=MAX(A1:A5,10)", 10},
		{"=MAX(B1:B5)", 0},
		{"=MAXA(B1:B5)", 0},
		{"=MEDIAN(1,2,3,4)", 2.5},
		{"=MEDIAN(3,1,2)", 2},
		{"=MODE(1,2,2,3)", 2},
		{"=MODE(1,2,3)", token.ErrorNA},
		{"=STDEV(2,4,4,4,5,5,7,9)", 2.138089935299395},
		{"=STDEVP(2,4,4,4,5,5,7,9)", 2},
		{"=VAR(2,4,4,4,5,5,7,9)", 32.0 / 7},
		{"=VARP(2,4,4,4,5,5,7,9)", 4},
		{"=VAR(1)", token.ErrorDivZero},
		{"=LARGE(A1:A5,2)", 4},
		{"=SMALL(A1:A5,1)", 1},
		{"=LARGE(A1:A5,6)", token.ErrorNum},
	})
}

func TestLogicalFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "logical"), []evalCase{
		{`=IF(1>2,"y","n")`, "n"},
		{"=IF(FALSE,1)", false},
		{"=IF(TRUE,A1)", 1},
		{"=IF(TRUE,1,1/0)", 1},
		{"=IF(FALSE,1/0,2)", 2},
		{"=IF(1/0,1,2)", token.ErrorDivZero},
		{"=IF(TRUE,,2)", 0},
		{`=IFERROR(1/0,"x")`, "x"},
		{`=IFERROR(5,"x")`, 5},
		{"=AND(TRUE,1)", true},
		{"=AND(TRUE,0)", false},
		{"=AND(A1:A5)", true},
		{"=AND(B1:B5)", token.ErrorValue},
		{"=OR(FALSE,FALSE)", false},
		{"=OR(FALSE,A1)", true},
		{"=NOT(TRUE)", false},
		{"=TRUE()", true},
		{"=FALSE()", false},
		{`=CHOOSE(2,"a","b","c")`, "b"},
		{`=CHOOSE(4,"a")`, token.ErrorValue},
		{`=CHOOSE(1,"a",1/0)`, "a"},
	})
}

func TestTextFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "text"), []evalCase{
		{`=CONCATENATE("a",1,TRUE)`, "a1TRUE"},
		{`=LEN("hello")`, 5},
		{`=UPPER("abc")`, "ABC"},
		{`=LOWER("AbC")`, "abc"},
		{`=TRIM("  a   b ")`, "a b"},
		{`=LEFT("hello",2)`, "he"},
		{`=LEFT("hello")`, "h"},
		{`=LEFT("hello",-1)`, token.ErrorValue},
		{`=RIGHT("hello",3)`, "llo"},
		{`=MID("hello",2,3)`, "ell"},
		{`=MID("hello",10,2)`, ""},
		{`=MID("hello",0,2)`, token.ErrorValue},
		{`=EXACT("a","A")`, false},
		{`=EXACT("a","a")`, true},
		{`=REPT("ab",3)`, "ababab"},
		{`=VALUE("12.5")`, 12.5},
		{`=VALUE("x")`, token.ErrorValue},
		{"=T(1)", ""},
		{`=T("a")`, "a"},
		{`=FIND("l","hello")`, 3},
		{`=FIND("l","hello",4)`, 4},
		{`=FIND("L","hello")`, token.ErrorValue},
		{`=SUBSTITUTE("a-b-c","-","+")`, "a+b+c"},
		{`=SUBSTITUTE("a-b-c","-","+",2)`, "a-b+c"},
		{`=B1&B2`, "ab"},
	})
}

func TestInfoFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "info"), []evalCase{
		{"=ISBLANK(Z50)", true},
		{"=ISBLANK(A1)", false},
		{"=ISERROR(1/0)", true},
		{"=ISERROR(1)", false},
		{"=ISERR(NA())", false},
		{"=ISERR(1/0)", true},
		{"=ISNA(NA())", true},
		{"=ISNUMBER(A1)", true},
		{"=ISNUMBER(B1)", false},
		{"=ISTEXT(B1)", true},
		{"=ISNONTEXT(A1)", true},
		{"=ISLOGICAL(TRUE)", true},
		{"=ISREF(A1)", true},
		{"=ISREF(1)", false},
		{"=TYPE(1)", 1},
		{"=TYPE(A1)", 1},
		{`=TYPE("a")`, 2},
		{"=TYPE(TRUE)", 4},
		{"=TYPE(1/0)", 16},
		{"=TYPE({1,2})", 64},
		{"=N(TRUE)", 1},
		{`=N("a")`, 0},
		{"=NA()", token.ErrorNA},
		{"=ERROR.TYPE(1/0)", 2},
		{"=ERROR.TYPE(NA())", 7},
		{"=ERROR.TYPE(1)", token.ErrorNA},
		{`=CELL("row",D3)`, 3},
		{`=CELL("col",D3)`, 4},
		{`=CELL("address",D3)`, "$D$3"},
		{`=CELL("contents",E2)`, "twenty"},
		{`=CELL("type",B1)`, "l"},
		{`=CELL("type",A1)`, "v"},
		{`=CELL("type",Z50)`, "b"},
		{`=CELL("row")`, 100},
		{`=CELL("color",A1)`, token.ErrorValue},
	})
}

// bounded references keep their declared size past the used area of a
// sheet; only whole rows and columns stop at it
func TestRangesPastUsedArea(t *testing.T) {
	tc := NewCalcTestCase(t, "used area").Sheets("Sheet1", "Sheet2").
		Set("A1", "1").Set("B1", "x").
		Set("Sheet2!A1", "2").Set("Sheet2!A2", "3").Set("Sheet2!A3", "4").Set("Sheet2!C9", "5")
	runEvalCases(t, tc, []evalCase{
		{"=VLOOKUP(1,A1:C3,3,FALSE)", 0},
		{"=VLOOKUP(1,A1:C3,4,FALSE)", token.ErrorRef},
		{"=COUNTBLANK(A1:A10)", 9},
		{"=COUNTBLANK(A1:C2)", 4},
		{"=INDEX(A1:A10*1,7)", 0},
		{"=ROWS(A1:A10)", 10},
		{"=SUM(A1:A3+Sheet2!A1:A3)", 10},
		{"=COUNTA(Sheet2!A:A)", 3},
		{"=SUM(Sheet2!A:C)", 14},
	})
}

func TestLookupFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "lookup"), []evalCase{
		{"=VLOOKUP(20,D1:F4,2,FALSE)", "twenty"},
		{"=VLOOKUP(25,D1:F4,2,FALSE)", token.ErrorNA},
		{"=VLOOKUP(25,D1:F4,3)", 200},
		{"=VLOOKUP(10,D1:F4,3)", 100},
		{"=VLOOKUP(5,D1:F4,2)", token.ErrorNA},
		{"=VLOOKUP(45,D1:F4,3,TRUE)", 400},
		{"=VLOOKUP(20,D1:F4,4,FALSE)", token.ErrorRef},
		{"=VLOOKUP(20,D1:F4,0,FALSE)", token.ErrorValue},
		{`=VLOOKUP("THIRTY",E1:F4,2,FALSE)`, 300},
		{`=VLOOKUP("20",D1:F4,2,FALSE)`, token.ErrorNA},
		{"=VLOOKUP(NA(),D1:F4,2)", token.ErrorNA},
		{"=HLOOKUP(20,{10,20,30;1,2,3},2)", 2},
		{"=HLOOKUP(20,{10,20,30;1,2,3},3)", token.ErrorRef},
		{"=MATCH(30,D1:D4,0)", 3},
		{"=MATCH(35,D1:D4)", 3},
		{"=MATCH(35,{40,30,20,10},-1)", 1},
		{"=MATCH(25,{30,10,20})", token.ErrorNA},
		{`=MATCH("c",B1:B5,0)`, 3},
		{"=LOOKUP(25,D1:D4,F1:F4)", 200},
		{"=LOOKUP(30,D1:F4)", 300},
		{"=LOOKUP(2,{1,2,3;4,5,6})", 5},
		{"=INDEX(D1:F4,2,3)", 200},
		{"=INDEX({1,2;3,4},2,1)", 3},
		{"=INDEX(D1:F4,5,1)", token.ErrorRef},
		{"=INDEX(D1:F4,-1,1)", token.ErrorValue},
		{"=SUM(INDEX(D1:F4,0,3))", 1000},
		{"=SUM(INDEX(D1:F4,2,0))", 220},
		{"=INDEX(D1:D4,3)", 30},
		{"=INDEX((A1:A5,D1:F4),2,1,2)", 20},
		{"=ROW(D3)", 3},
		{"=COLUMN(E1)", 5},
		{"=ROW()", 100},
		{"=COLUMN()", 26},
		{"=ROWS(D1:F4)", 4},
		{"=COLUMNS(D1:F4)", 3},
		{"=ROWS({1,2;3,4})", 2},
		{"=AREAS((A1,B1:C2))", 2},
		{"=OFFSET(D1,1,2)", 200},
		{"=SUM(OFFSET(D1,0,0,2,1))", 30},
		{"=OFFSET(D1,-1,0)", token.ErrorRef},
		{"=OFFSET(D1,0,0,0,1)", token.ErrorRef},
		{`=INDIRECT("F3")`, 300},
		{`=INDIRECT("Sheet1!F3")`, 300},
		{`=INDIRECT("R2C6",FALSE)`, 200},
		{`=SUM(INDIRECT("D1:D4"))`, 100},
		{`=INDIRECT("nonsense!")`, token.ErrorRef},
		{"=ADDRESS(2,3)", "$C$2"},
		{"=ADDRESS(2,3,2)", "C$2"},
		{"=ADDRESS(2,3,4)", "C2"},
		{"=ADDRESS(2,3,1,FALSE)", "R2C3"},
		{`=ADDRESS(2,3,1,TRUE,"My Sheet")`, "'My Sheet'!$C$2"},
		{"=ADDRESS(0,1)", token.ErrorValue},
	})
}

func TestIndirectName(t *testing.T) {
	sampleBook(t, "indirect name").
		Define("Lookup", "=Sheet1!$D$1:$F$4").
		AssertEval(`=ROWS(INDIRECT("Lookup"))`, 4).
		AssertEval(`=INDIRECT("Nothing")`, token.ErrorRef)
}

func TestDatabaseFunctions(t *testing.T) {
	runEvalCases(t, sampleBook(t, "database"), []evalCase{
		// AND criteria: age below 30 and height at least 90
		{`=DCOUNT(H1:I4,"age",K1:L2)`, 1},
		// OR criteria down one column
		{`=DCOUNT(H1:I4,"age",N1:N3)`, 2},
		// each criteria row is one alternative
		{`=DCOUNT(H1:I4,"age",P1:Q3)`, 2},
		// a header-only criteria range matches every row
		{`=DCOUNT(H1:I4,"age",K1:L1)`, 3},
		{`=DCOUNT(H1:I4,,N1:N3)`, 2},
		{`=DCOUNTA(H1:I4,,N1:N3)`, 2},
		{`=DCOUNT(H1:I4,"weight",K1:L2)`, token.ErrorValue},
		{`=DCOUNT(H1:I4,2,N1:N3)`, 2},
		{`=DSUM(H1:I4,"height",N1:N3)`, 155},
		{`=DSUM(H1:I4,,N1:N3)`, token.ErrorValue},
		{`=DAVERAGE(H1:I4,1,K1:L2)`, 21},
		{`=DMAX(H1:I4,"age",N1:N3)`, 43},
		{`=DMIN(H1:I4,"age",N1:N3)`, 21},
		{`=DPRODUCT(H1:I4,"age",N1:N3)`, 903},
		{`=DGET(H1:I4,"height",K1:L2)`, 99},
		{`=DGET(H1:I4,"height",N1:N3)`, token.ErrorNum},
		{`=DVARP(H1:I4,"age",N1:N3)`, 121},
		{`=DSTDEVP(H1:I4,"age",N1:N3)`, 11},
	})
}

func TestDateFunctions(t *testing.T) {
	clock := fixedClock{time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	runEvalCases(t, NewCalcTestCase(t, "dates", calc.WithClock(clock), calc.WithRandom(fixedRandom(0.25))), []evalCase{
		{"=DATE(2023,3,15)", 45000},
		{"=DATE(2024,1,1)", 45292},
		{"=DATE(2023,13,1)", 45292},
		{"=DATE(100,1,1)", 36526},
		{"=DATE(10000,1,1)", token.ErrorNum},
		{"=YEAR(45000)", 2023},
		{"=MONTH(45000)", 3},
		{"=DAY(45000)", 15},
		{"=DAY(-1)", token.ErrorNum},
		{"=TODAY()", 45292},
		{"=NOW()", 45292.5},
		{"=RAND()", 0.25},
	})
}

func TestLookupCache(t *testing.T) {
	tc := sampleBook(t, "lookup cache")
	tr := tracker.New(reference.NewResolver(reference.Extended, tc.book, tc.book))
	tc.engine = calc.New(calc.WithTracker(tr))

	tc.AssertEval("=VLOOKUP(30,D1:F4,2,FALSE)", "thirty").
		AssertEval("=VLOOKUP(30,D1:F4,2,FALSE)", "thirty").
		AssertEval("=VLOOKUP(31,D1:F4,2,FALSE)", token.ErrorNA).
		AssertEval("=VLOOKUP(31,D1:F4,2,FALSE)", token.ErrorNA)

	stats := tr.Stats()
	if stats.Lookups != 2 {
		t.Errorf("cached lookups = %d, want 2", stats.Lookups)
	}
	if stats.CacheHits != 2 {
		t.Errorf("cache hits = %d, want 2", stats.CacheHits)
	}

	tr.ClearCaches()
	tc.Poke("D3", "35").
		AssertEval("=VLOOKUP(30,D1:F4,2,FALSE)", token.ErrorNA)
}

func TestDatabaseTableCache(t *testing.T) {
	tc := sampleBook(t, "table cache")
	tr := tracker.New(reference.NewResolver(reference.Extended, tc.book, tc.book))
	tc.engine = calc.New(calc.WithTracker(tr))

	tc.AssertEval(`=DCOUNT(H1:I4,"age",N1:N3)`, 2).
		AssertEval(`=DSUM(H1:I4,"height",N1:N3)`, 155)

	stats := tr.Stats()
	if stats.Tables != 2 {
		t.Errorf("cached tables = %d, want 2", stats.Tables)
	}
	if stats.CacheHits != 2 {
		t.Errorf("cache hits = %d, want 2", stats.CacheHits)
	}
}

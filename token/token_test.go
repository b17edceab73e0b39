package token

import (
	"testing"
)

func TestReferenceRoundTrip(t *testing.T) {
	refs := []string{
		"A1",
		"$A$1",
		"$A1",
		"A$1",
		"B2:C10",
		"$B$2:C$10",
		"A:A",
		"$A:$C",
		"1:1",
		"$3:$5",
		"Sheet2!A1",
		"Sheet2!$A$1:$B$2",
		"'My Sheet'!A1",
		"'It''s'!B3",
		"Sheet1:Sheet3!A1:B2",
		"Sheet1:Sheet3!A1",
		"Sheet1:Sheet3!$B$7",
		"TAX2024",
		"'Q1 data:Q4 data'!C:C",
		"XFD1048576",
	}

	for _, text := range refs {
		t.Run(text, func(t *testing.T) {
			ref, err := ParseReference(text)
			if err != nil {
				t.Fatalf("ParseReference(%s) failed: %v", text, err)
			}
			if got := ref.String(); got != text {
				t.Errorf("render(parse(%s)) = %s", text, got)
			}
			again, err := ParseReference(ref.String())
			if err != nil {
				t.Fatalf("ParseReference(%s) failed: %v", ref.String(), err)
			}
			if !Equal(ref, again) {
				t.Errorf("parse(render(%s)) = %#v, want %#v", text, again, ref)
			}
		})
	}
}

func TestParseReferenceFields(t *testing.T) {
	ref, err := ParseReference("$C5")
	if err != nil {
		t.Fatal(err)
	}
	cell, ok := ref.(CellRef)
	if !ok {
		t.Fatalf("got %T, want CellRef", ref)
	}
	if cell.Row != 4 || cell.Col != 2 || cell.ColRelative || !cell.RowRelative {
		t.Errorf("got %+v", cell)
	}

	ref, err = ParseReference("B:D")
	if err != nil {
		t.Fatal(err)
	}
	area := ref.(AreaRef)
	if !area.IsWholeColumn() || area.First.Row != Sentinel || area.First.Col != 1 || area.Last.Col != 3 {
		t.Errorf("got %+v", area)
	}

	ref, err = ParseReference("Sheet1:Sheet3!A1")
	if err != nil {
		t.Fatal(err)
	}
	area = ref.(AreaRef)
	if !area.Is3D() || area.First.Sheet != "Sheet1" || area.Last.Sheet != "Sheet3" {
		t.Errorf("got %+v", area)
	}
}

func TestParseReferenceInvalid(t *testing.T) {
	invalid := []string{
		"",
		"A",
		"A0",
		"1",
		"TAXES2024",
		"ABCD1",
		"A1:",
		":B2",
		"A1:B",
		"!A1",
		"'Sheet1!A1",
		"Sheet1!",
	}

	for _, text := range invalid {
		t.Run(text, func(t *testing.T) {
			if _, err := ParseReference(text); err == nil {
				t.Errorf("expected ParseReference(%q) to fail", text)
			}
		})
	}
}

func TestColumnNames(t *testing.T) {
	cases := map[int32]string{
		0:     "A",
		25:    "Z",
		26:    "AA",
		51:    "AZ",
		52:    "BA",
		701:   "ZZ",
		702:   "AAA",
		16383: "XFD",
	}
	for col, name := range cases {
		if got := ColumnName(col); got != name {
			t.Errorf("ColumnName(%d) = %s, want %s", col, got, name)
		}
		got, err := ParseColumn(name)
		if err != nil || got != col {
			t.Errorf("ParseColumn(%s) = %d, %v, want %d", name, got, err, col)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	valid := map[string]float64{
		"0":      0,
		"42":     42,
		"-1.5":   -1.5,
		"+.25":   0.25,
		"3.":     3,
		"1e3":    1000,
		"2.5E-1": 0.25,
	}
	for text, want := range valid {
		if got, ok := ParseDecimal(text); !ok || got != want {
			t.Errorf("ParseDecimal(%q) = %v, %v, want %v", text, got, ok, want)
		}
	}
	for _, text := range []string{"", " 1", "-", ".", "1e", "1e+", "0x10", "0x1p4", "1_000", "Inf", "-inf", "NaN", "1e999", "1.2.3", "1,000"} {
		if got, ok := ParseDecimal(text); ok {
			t.Errorf("ParseDecimal(%q) = %v, want failure", text, got)
		}
	}
}

func TestLiteralRendering(t *testing.T) {
	tests := []struct {
		token Token
		want  string
	}{
		{Number(1.5), "1.5"},
		{Number(-3), "-3"},
		{Number(1e21), "1E+21"},
		{Number(100000000), "100000000"},
		{Integer(42), "42"},
		{Str(`say "hi"`), `"say ""hi"""`},
		{Bool(true), "TRUE"},
		{Bool(false), "FALSE"},
		{NewError(ErrorDivZero, ""), "#DIV/0!"},
		{NewError(ErrorNA, "lookup miss"), "#N/A"},
		{&Array{Rows: [][]Token{{Number(1), Number(2)}, {Str("a"), Bool(true)}}}, `{1,2;"a",TRUE}`},
		{NameRef{Name: "Total"}, "Total"},
		{NewOperator(OpNe), "<>"},
		{NewFunctionCall("sum", 2), "SUM"},
		{NewFunctionCall("myaddin", 1), "MYADDIN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.token.String(); got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFormatPostfix(t *testing.T) {
	a1 := NewCellRef("", 0, 0)
	b1 := NewCellRef("", 0, 1)
	tokens := []Token{
		a1, b1, NewOperator(OpAdd), Paren{}, Integer(2), NewOperator(OpMul),
		NewCellRef("", 0, 2), NewFunctionCall("SUM", 1), NewOperator(OpSub),
		NewOperator(OpPercent),
	}
	got, ok := Format(tokens)
	if !ok {
		t.Fatal("Format failed")
	}
	if want := "(A1+B1)*2-SUM(C1)%"; got != want {
		t.Errorf("Format() = %s, want %s", got, want)
	}

	if _, ok := Format([]Token{a1, NewOperator(OpAdd)}); ok {
		t.Error("expected underflow to fail")
	}
}

func TestPredicates(t *testing.T) {
	if !IsBlank(Blank{}) || IsBlank(Number(0)) {
		t.Error("IsBlank")
	}
	if !IsError(NewError(ErrorRef, "")) || IsError(Str("#REF!")) {
		t.Error("IsError")
	}
	if !IsReference(NewCellRef("", 0, 0)) || !IsReference(NameRef{Name: "x"}) || IsReference(Number(1)) {
		t.Error("IsReference")
	}
	if IsOperand(Paren{}) || !IsOperand(Missing{}) {
		t.Error("IsOperand")
	}
	if !IsCircular(Circular()) || IsCircular(NewError(ErrorNum, "")) {
		t.Error("IsCircular")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Token
		want int
	}{
		{"numbers", Number(1), Number(2), -1},
		{"integer and number", Integer(2), Number(2), 0},
		{"case-insensitive", Str("apple"), Str("APPLE"), 0},
		{"text order", Str("apple"), Str("Banana"), -1},
		{"number before text", Number(1000), Str("a"), -1},
		{"text before bool", Str("z"), Bool(false), -1},
		{"false before true", Bool(false), Bool(true), -1},
		{"bool before error", Bool(true), NewError(ErrorNull, ""), -1},
		{"blank as zero", Blank{}, Number(0), 0},
		{"blank as empty text", Blank{}, Str(""), 0},
		{"blank as false", Bool(false), Blank{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%v, %v) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestFunctionTable(t *testing.T) {
	tests := map[string]FunctionID{
		"COUNT":      0,
		"IF":         1,
		"SUM":        4,
		"DCOUNT":     40,
		"VLOOKUP":    102,
		"DGET":       235,
		"ERROR.TYPE": 261,
		"IFERROR":    480,
	}
	for name, want := range tests {
		id, ok := LookupFunction(name)
		if !ok || id != want {
			t.Errorf("LookupFunction(%s) = %d, %v, want %d", name, id, ok, want)
		}
		if id.Name() != name {
			t.Errorf("%d.Name() = %s, want %s", id, id.Name(), name)
		}
	}
	if _, ok := LookupFunction("NOPE"); ok {
		t.Error("expected NOPE to be unknown")
	}
}

func TestErrorKinds(t *testing.T) {
	for i, kind := range ErrorKinds {
		if kind.Ordinal() != i+1 {
			t.Errorf("%s.Ordinal() = %d, want %d", kind, kind.Ordinal(), i+1)
		}
		parsed, ok := ParseErrorKind(kind.String())
		if !ok || parsed != kind {
			t.Errorf("ParseErrorKind(%s) = %v, %v", kind, parsed, ok)
		}
	}
}

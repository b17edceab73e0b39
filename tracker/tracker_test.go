package tracker

import (
	"errors"
	"slices"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/formula/criteria"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

type testSheets []string

func (s testSheets) SheetIndex(name string) (int, bool) {
	i := slices.Index(s, name)
	return i, i >= 0
}

func (s testSheets) SheetNames() []string { return s }

func newTestTracker() *Tracker {
	resolver := reference.NewResolver(reference.Extended, testSheets{"Sheet1", "Sheet2", "Sheet3"}, nil)
	return New(resolver)
}

func ref(text string) token.Token {
	t, err := token.ParseReference(text)
	if err != nil {
		panic(err)
	}
	return t
}

func touching(tr *Tracker, r reference.Range) []FormulaID {
	return slices.Collect(tr.FindFormulasTouching(r))
}

var at = reference.NewAnchor("Sheet1", 20, 20)

func TestRegisterAndFind(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Register(2, ref("B1:B10"), at))
	must(t, tr.Register(3, ref("Sheet2!A1"), at))
	must(t, tr.Register(4, ref("C:C"), at))

	tests := []struct {
		name string
		r    reference.Range
		want []FormulaID
	}{
		{"single cell", reference.Cell("Sheet1", 0, 0), []FormulaID{1}},
		{"inside area", reference.Cell("Sheet1", 4, 1), []FormulaID{2}},
		{"row across areas", reference.Area("Sheet1", 0, 0, 0, 5), []FormulaID{1, 2, 4}},
		{"other sheet", reference.Cell("Sheet2", 0, 0), []FormulaID{3}},
		{"whole column", reference.Cell("Sheet1", 500000, 2), []FormulaID{4}},
		{"nothing", reference.Cell("Sheet3", 0, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := touching(tr, tt.r)
			if !slices.Equal(got, tt.want) {
				t.Errorf("FindFormulasTouching(%s) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestFindIsLazyAndRestartable(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(7, ref("A1"), at))

	seq := tr.FindFormulasTouching(reference.Cell("Sheet1", 0, 0))
	must(t, tr.Register(5, ref("A1:A2"), at))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, []FormulaID{5, 7}) || !slices.Equal(first, second) {
		t.Errorf("first = %v, second = %v", first, second)
	}

	for id := range seq {
		if id != 5 {
			t.Errorf("first yielded id = %d, want 5", id)
		}
		break
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Register(1, ref("$A$1"), at))
	if n := len(tr.Entries(1)); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}

	must(t, tr.Unregister(1, ref("A1"), at))
	if got := touching(tr, reference.Cell("Sheet1", 0, 0)); len(got) != 0 {
		t.Errorf("after Unregister found %v", got)
	}
	if n := len(tr.Owners()); n != 0 {
		t.Errorf("owners = %d, want 0", n)
	}
}

func TestUnregisterKeepsOverlappingEntries(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("A1:B2"), at))
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Unregister(1, ref("A1"), at))

	if got := touching(tr, reference.Cell("Sheet1", 0, 0)); !slices.Equal(got, []FormulaID{1}) {
		t.Errorf("got %v, want [1]", got)
	}
}

func TestRegisterUnion(t *testing.T) {
	tr := newTestTracker()
	list := &token.RefList{Refs: []token.Token{ref("A1"), ref("D4")}}
	must(t, tr.Register(9, list, at))
	if n := len(tr.Entries(9)); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
	if got := touching(tr, reference.Cell("Sheet1", 3, 3)); !slices.Equal(got, []FormulaID{9}) {
		t.Errorf("got %v", got)
	}
}

func TestRegisterThreeD(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("Sheet1:Sheet3!B2"), at))
	for _, sheet := range []string{"Sheet1", "Sheet2", "Sheet3"} {
		if got := touching(tr, reference.Cell(sheet, 1, 1)); !slices.Equal(got, []FormulaID{1}) {
			t.Errorf("%s: got %v", sheet, got)
		}
	}
}

func TestRegisterUnknownSheet(t *testing.T) {
	tr := newTestTracker()
	err := tr.Register(1, ref("Nope!A1"), at)
	var e token.Error
	if !errors.As(err, &e) || e.Code != token.ErrorRef {
		t.Errorf("got %v, want #REF!", err)
	}
}

func TestForget(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Register(1, ref("A1:A3"), at))
	must(t, tr.Register(2, ref("A2"), at))
	must(t, tr.Forget(1))

	if got := touching(tr, reference.Area("Sheet1", 0, 0, 5, 0)); !slices.Equal(got, []FormulaID{2}) {
		t.Errorf("got %v, want [2]", got)
	}
	if s := tr.Stats(); s.Cells != 1 || s.Areas != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestShift(t *testing.T) {
	tr := newTestTracker()
	anchor := reference.NewAnchor("Sheet1", 0, 5)
	must(t, tr.Register(1, ref("A5"), anchor))
	must(t, tr.Register(1, ref("B3"), anchor))

	refs, err := tr.Shift(1, -1, 0, reference.Pivot{Sheet: "Sheet1", Row: 2})
	must(t, err)
	if len(refs) != 2 || refs[0].String() != "A4" || refs[1].String() != "#REF!" {
		t.Fatalf("shifted = %v", refs)
	}

	entries := tr.Entries(1)
	if entries[0].State != Registered || entries[1].State != Detached {
		t.Errorf("states = %s, %s", entries[0].State, entries[1].State)
	}
	if got := touching(tr, reference.Cell("Sheet1", 3, 0)); !slices.Equal(got, []FormulaID{1}) {
		t.Errorf("new position: got %v", got)
	}
	if got := touching(tr, reference.Cell("Sheet1", 4, 0)); len(got) != 0 {
		t.Errorf("old position: got %v", got)
	}
}

func TestShiftSharedAnchor(t *testing.T) {
	tr := newTestTracker()
	// written for A1, evaluated at A11
	shared := reference.Anchor{Sheet: "Sheet1", Row: 10, Col: 0}
	must(t, tr.Register(1, ref("A1"), shared))
	if got := touching(tr, reference.Cell("Sheet1", 10, 0)); !slices.Equal(got, []FormulaID{1}) {
		t.Fatalf("before: got %v", got)
	}

	_, err := tr.Shift(1, 1, 0, reference.Pivot{Sheet: "Sheet1", Row: 6})
	must(t, err)
	if got := touching(tr, reference.Cell("Sheet1", 11, 0)); !slices.Equal(got, []FormulaID{1}) {
		t.Errorf("new position: got %v", got)
	}
	if got := touching(tr, reference.Cell("Sheet1", 10, 0)); len(got) != 0 {
		t.Errorf("old position: got %v", got)
	}
	e := tr.Entries(1)[0]
	if e.Anchor.Row != 11 || e.Anchor.OriginRow != 1 {
		t.Errorf("anchor = %+v", e.Anchor)
	}
}

func TestCaches(t *testing.T) {
	tr := newTestTracker()
	table := &criteria.Table{Headers: []string{"a"}}
	tr.PutTable("Sheet1!A1:A3", table)
	tr.PutLookup("VLOOKUP|Sheet1!A1:B9|5", 3)
	must(t, tr.Register(1, ref("A1"), at))

	if got, ok := tr.Table("Sheet1!A1:A3"); !ok || got != table {
		t.Error("table not cached")
	}
	if got, ok := tr.Lookup("VLOOKUP|Sheet1!A1:B9|5"); !ok || got != 3 {
		t.Error("lookup not cached")
	}

	tr.ClearCaches()
	if _, ok := tr.Table("Sheet1!A1:A3"); ok {
		t.Error("table survived ClearCaches")
	}
	if _, ok := tr.Lookup("VLOOKUP|Sheet1!A1:B9|5"); ok {
		t.Error("lookup survived ClearCaches")
	}
	if got := touching(tr, reference.Cell("Sheet1", 0, 0)); len(got) != 1 {
		t.Error("ClearCaches must not touch registrations")
	}
}

func TestClose(t *testing.T) {
	tr := newTestTracker()
	must(t, tr.Register(1, ref("A1"), at))
	must(t, tr.Close())

	if err := tr.Register(2, ref("A1"), at); !errors.Is(err, ErrClosed) {
		t.Errorf("Register after Close = %v", err)
	}
	if _, err := tr.Shift(1, 1, 0, reference.Pivot{Sheet: "Sheet1"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Shift after Close = %v", err)
	}
	if got := touching(tr, reference.Cell("Sheet1", 0, 0)); len(got) != 0 {
		t.Errorf("found %v after Close", got)
	}
	if err := tr.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v", err)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// Package token defines the parsed-formula token model. a formula is a flat
// slice of tokens in postfix order; operands push values and operators,
// functions and control tokens consume them.
package token

// Kind identifies the variant of a token
type Kind uint8

const (
	KindBlank Kind = iota
	KindNumber
	KindInteger
	KindString
	KindBool
	KindError
	KindMissing
	KindCellRef
	KindAreaRef
	KindRefList
	KindNameRef
	KindArray
	KindOperator
	KindFunction
	KindParen
)

var kindNames = [...]string{
	KindBlank:    "Blank",
	KindNumber:   "Number",
	KindInteger:  "Integer",
	KindString:   "Str",
	KindBool:     "Bool",
	KindError:    "Error",
	KindMissing:  "Missing",
	KindCellRef:  "CellRef",
	KindAreaRef:  "AreaRef",
	KindRefList:  "RefList",
	KindNameRef:  "NameRef",
	KindArray:    "Array",
	KindOperator: "Operator",
	KindFunction: "FunctionCall",
	KindParen:    "Paren",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Token is one element of a parsed formula. the set of variants is closed:
// only this package can implement Token, so a switch over Kind() that
// covers every constant above is exhaustive.
type Token interface {
	Kind() Kind
	String() string
	sealed()
}

// Number is a floating point literal
type Number float64

// Integer is a small integer literal (BIFF tInt)
type Integer int32

// Str is a string literal
type Str string

// Bool is a boolean literal
type Bool bool

// Blank is the value of an empty cell
type Blank struct{}

// Missing stands in for an omitted function argument, e.g. the middle
// argument of IF(A1,,2)
type Missing struct{}

// NameRef refers to a defined name
type NameRef struct {
	Name string
}

// Array is an array literal or an array-valued result. rows are stored
// row-major and every row has the same length.
type Array struct {
	Rows [][]Token
}

// RefList is the result of the union operator: several areas treated as
// one reference
type RefList struct {
	Refs []Token
}

// Operator is an operator token with its arity
type Operator struct {
	Op    OperatorKind
	Arity int
}

// FunctionCall invokes a built-in function with Argc arguments taken from
// the stack. Name is only set for add-in functions that have no built-in
// id.
type FunctionCall struct {
	ID   FunctionID
	Argc int
	Name string
}

// Paren records a parenthesized sub-expression. it has no stack effect.
type Paren struct{}

func (Number) sealed()       {}
func (Integer) sealed()      {}
func (Str) sealed()          {}
func (Bool) sealed()         {}
func (Blank) sealed()        {}
func (Missing) sealed()      {}
func (CellRef) sealed()      {}
func (AreaRef) sealed()      {}
func (*RefList) sealed()     {}
func (NameRef) sealed()      {}
func (*Array) sealed()       {}
func (Operator) sealed()     {}
func (FunctionCall) sealed() {}
func (Paren) sealed()        {}

func (Number) Kind() Kind       { return KindNumber }
func (Integer) Kind() Kind      { return KindInteger }
func (Str) Kind() Kind          { return KindString }
func (Bool) Kind() Kind         { return KindBool }
func (Blank) Kind() Kind        { return KindBlank }
func (Missing) Kind() Kind      { return KindMissing }
func (CellRef) Kind() Kind      { return KindCellRef }
func (AreaRef) Kind() Kind      { return KindAreaRef }
func (*RefList) Kind() Kind     { return KindRefList }
func (NameRef) Kind() Kind      { return KindNameRef }
func (*Array) Kind() Kind       { return KindArray }
func (Operator) Kind() Kind     { return KindOperator }
func (FunctionCall) Kind() Kind { return KindFunction }
func (Paren) Kind() Kind        { return KindParen }

// NewArray builds an array of the given shape filled with Blank
func NewArray(rows, cols int) *Array {
	a := &Array{Rows: make([][]Token, rows)}
	for i := range a.Rows {
		a.Rows[i] = make([]Token, cols)
		for j := range a.Rows[i] {
			a.Rows[i][j] = Blank{}
		}
	}
	return a
}

// Dims returns the number of rows and columns
func (a *Array) Dims() (rows, cols int) {
	if len(a.Rows) == 0 {
		return 0, 0
	}
	return len(a.Rows), len(a.Rows[0])
}

// At returns the element at row, col or Blank when out of bounds
func (a *Array) At(row, col int) Token {
	if row < 0 || row >= len(a.Rows) || col < 0 || col >= len(a.Rows[row]) {
		return Blank{}
	}
	return a.Rows[row][col]
}

// Values returns every element in row-major order
func (a *Array) Values() []Token {
	var out []Token
	for _, row := range a.Rows {
		out = append(out, row...)
	}
	return out
}

// IsBlank reports whether t is the empty-cell value
func IsBlank(t Token) bool {
	return t != nil && t.Kind() == KindBlank
}

// IsError reports whether t is an error value
func IsError(t Token) bool {
	return t != nil && t.Kind() == KindError
}

// IsReference reports whether t denotes cells rather than a value
func IsReference(t Token) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindCellRef, KindAreaRef, KindRefList, KindNameRef:
		return true
	default:
		return false
	}
}

// IsOperand reports whether t pushes a value onto the evaluation stack
func IsOperand(t Token) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case KindOperator, KindFunction, KindParen:
		return false
	default:
		return true
	}
}

// Equal compares two tokens structurally. arrays and reference lists are
// compared element by element.
func Equal(a, b Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Array:
		y := b.(*Array)
		if len(x.Rows) != len(y.Rows) {
			return false
		}
		for i := range x.Rows {
			if len(x.Rows[i]) != len(y.Rows[i]) {
				return false
			}
			for j := range x.Rows[i] {
				if !Equal(x.Rows[i][j], y.Rows[i][j]) {
					return false
				}
			}
		}
		return true
	case *RefList:
		y := b.(*RefList)
		if len(x.Refs) != len(y.Refs) {
			return false
		}
		for i := range x.Refs {
			if !Equal(x.Refs[i], y.Refs[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

package token

// OperatorKind identifies an operator. the binary operators share their
// order with the BIFF opcodes tAdd (0x03) through tRange (0x11).
type OperatorKind uint8

const (
	OpAdd OperatorKind = iota
	OpSub
	OpMul
	OpDiv
	OpPower
	OpConcat
	OpLt
	OpLe
	OpEq
	OpGe
	OpGt
	OpNe
	OpIntersect
	OpUnion
	OpRange
	OpUnaryPlus
	OpUnaryMinus
	OpPercent
)

var operatorSymbols = [...]string{
	OpAdd:        "+",
	OpSub:        "-",
	OpMul:        "*",
	OpDiv:        "/",
	OpPower:      "^",
	OpConcat:     "&",
	OpLt:         "<",
	OpLe:         "<=",
	OpEq:         "=",
	OpGe:         ">=",
	OpGt:         ">",
	OpNe:         "<>",
	OpIntersect:  " ",
	OpUnion:      ",",
	OpRange:      ":",
	OpUnaryPlus:  "+",
	OpUnaryMinus: "-",
	OpPercent:    "%",
}

// Symbol returns the formula-text spelling of the operator
func (k OperatorKind) Symbol() string {
	if int(k) < len(operatorSymbols) {
		return operatorSymbols[k]
	}
	return "?"
}

// Arity returns the number of operands the operator consumes
func (k OperatorKind) Arity() int {
	switch k {
	case OpUnaryPlus, OpUnaryMinus, OpPercent:
		return 1
	default:
		return 2
	}
}

// IsComparison reports whether the operator yields a boolean comparison
func (k OperatorKind) IsComparison() bool {
	switch k {
	case OpLt, OpLe, OpEq, OpGe, OpGt, OpNe:
		return true
	default:
		return false
	}
}

// IsReferenceOp reports whether the operator combines references instead
// of values
func (k OperatorKind) IsReferenceOp() bool {
	switch k {
	case OpIntersect, OpUnion, OpRange:
		return true
	default:
		return false
	}
}

// NewOperator returns the operator token with its natural arity
func NewOperator(k OperatorKind) Operator {
	return Operator{Op: k, Arity: k.Arity()}
}

// ParseBinaryOperator maps an infix operator spelling to its kind
func ParseBinaryOperator(s string) (OperatorKind, bool) {
	switch s {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "^":
		return OpPower, true
	case "&":
		return OpConcat, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLe, true
	case "=":
		return OpEq, true
	case ">=":
		return OpGe, true
	case ">":
		return OpGt, true
	case "<>", "!=":
		return OpNe, true
	case ":":
		return OpRange, true
	case ",":
		return OpUnion, true
	case " ":
		return OpIntersect, true
	default:
		return 0, false
	}
}

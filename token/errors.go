package token

// ErrorKind represents the spreadsheet error values. the numeric values are
// the BIFF error codes so they can be written back to a record unchanged.
type ErrorKind uint8

const (
	ErrorNull    ErrorKind = 0x00 // #NULL! - no cells in common between ranges
	ErrorDivZero ErrorKind = 0x07 // #DIV/0! - division by zero
	ErrorValue   ErrorKind = 0x0F // #VALUE! - wrong type of argument or operand
	ErrorRef     ErrorKind = 0x17 // #REF! - invalid cell reference
	ErrorName    ErrorKind = 0x1D // #NAME? - unrecognized name or function
	ErrorNum     ErrorKind = 0x24 // #NUM! - numeric domain failure
	ErrorNA      ErrorKind = 0x2A // #N/A - value not available
)

// ErrorKinds lists every error kind in ERROR.TYPE order
var ErrorKinds = []ErrorKind{
	ErrorNull,
	ErrorDivZero,
	ErrorValue,
	ErrorRef,
	ErrorName,
	ErrorNum,
	ErrorNA,
}

// ErrorText maps error kinds to their literal representations
var ErrorText = map[ErrorKind]string{
	ErrorNull:    "#NULL!",
	ErrorDivZero: "#DIV/0!",
	ErrorValue:   "#VALUE!",
	ErrorRef:     "#REF!",
	ErrorName:    "#NAME?",
	ErrorNum:     "#NUM!",
	ErrorNA:      "#N/A",
}

func (k ErrorKind) String() string {
	if s, ok := ErrorText[k]; ok {
		return s
	}
	return "#UNKNOWN!"
}

// Ordinal returns the 1-based ERROR.TYPE number of the kind
func (k ErrorKind) Ordinal() int {
	for i, kind := range ErrorKinds {
		if kind == k {
			return i + 1
		}
	}
	return 0
}

// ParseErrorKind parses an error literal such as "#DIV/0!"
func ParseErrorKind(s string) (ErrorKind, bool) {
	for kind, text := range ErrorText {
		if text == s {
			return kind, true
		}
	}
	return 0, false
}

// circularMessage marks the Num error produced by the recursion guard
const circularMessage = "circular reference"

// Error is an error value. it is a token and also satisfies the error
// interface so resolvers can hand it back as a Go error.
type Error struct {
	Code    ErrorKind
	Message string
}

func (Error) sealed()    {}
func (Error) Kind() Kind { return KindError }

func (e Error) String() string {
	return e.Code.String()
}

func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

// NewError creates an error token. an empty message defaults to the
// literal text of the kind.
func NewError(kind ErrorKind, message string) Error {
	if message == "" {
		message = kind.String()
	}
	return Error{
		Code:    kind,
		Message: message,
	}
}

// Circular returns the token produced when the recursion limit is exceeded
func Circular() Error {
	return Error{Code: ErrorNum, Message: circularMessage}
}

// IsCircular reports whether t is the circular reference token
func IsCircular(t Token) bool {
	e, ok := t.(Error)
	return ok && e.Code == ErrorNum && e.Message == circularMessage
}

package calc

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Flags change how the evaluator prepares a function's arguments
type Flags uint8

const (
	// RawErrors functions receive error arguments instead of the evaluator
	// returning the first one
	RawErrors Flags = 1 << iota
	// RefArgs functions receive references undereferenced
	RefArgs
	// Volatile functions are recalculated on every pass
	Volatile
)

// Func computes a function result. a returned token.Error becomes the
// result value; any other error becomes #VALUE!.
type Func func(c *Context, args []token.Token) (token.Token, error)

// Function is a registered function
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	Flags   Flags
	Call    Func
}

// builtin binds a function of the built-in table to its implementation
func builtin(name string, flags Flags, call Func) Function {
	id, ok := token.LookupFunction(name)
	if !ok {
		panic("calc: no function id for " + name)
	}
	def, _ := id.Def()
	return Function{
		Name:    def.Name,
		MinArgs: def.MinArgs,
		MaxArgs: def.MaxArgs,
		Flags:   flags,
		Call:    call,
	}
}

// builtins returns a fresh table of every built-in function keyed by name
func builtins() map[string]Function {
	m := make(map[string]Function)
	for _, group := range [][]Function{
		mathFunctions(),
		statFunctions(),
		logicalFunctions(),
		textFunctions(),
		lookupFunctions(),
		infoFunctions(),
		databaseFunctions(),
		dateFunctions(),
	} {
		for _, fn := range group {
			m[fn.Name] = fn
		}
	}
	return m
}

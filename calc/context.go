package calc

import (
	"math"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// Context is what a function sees of the evaluation calling it
type Context struct {
	ev *evaluation

	// Anchor is the position of the formula being evaluated
	Anchor reference.Anchor
	// Name is the name the function was called by
	Name string
}

// Now returns the engine clock's current time
func (c *Context) Now() time.Time {
	return c.ev.engine.clock.Now()
}

// Random returns a number in [0, 1)
func (c *Context) Random() float64 {
	return c.ev.engine.rng.Float64()
}

// Resolver returns the resolver references are resolved with
func (c *Context) Resolver() *reference.Resolver {
	return c.ev.resolver
}

// Tracker returns the tracker owning the derived caches, or nil
func (c *Context) Tracker() *tracker.Tracker {
	return c.ev.engine.tracker
}

// Cell reads one cell the way a reference to it would
func (c *Context) Cell(sheet string, row, col int32) token.Token {
	return c.ev.cell(sheet, row, col)
}

// Value dereferences an argument: a cell becomes its value and an area a
// grid of values
func (c *Context) Value(t token.Token) token.Token {
	return c.ev.value(c.ev.expand(t, c.Anchor), c.Anchor)
}

// Scalar dereferences an argument to a single value. arrays give their
// first element and a missing argument is blank.
func (c *Context) Scalar(t token.Token) token.Token {
	v := c.Value(t)
	if arr, ok := v.(*token.Array); ok {
		return arr.At(0, 0)
	}
	return v
}

// Number reads an argument as a number
func (c *Context) Number(t token.Token) (float64, error) {
	return toNumber(c.Scalar(t))
}

// Int reads an argument as a number truncated toward zero
func (c *Context) Int(t token.Token) (int, error) {
	n, err := c.Number(t)
	if err != nil {
		return 0, err
	}
	n = math.Trunc(n)
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, token.NewError(token.ErrorNum, "argument is out of range")
	}
	return int(n), nil
}

// Text reads an argument as text
func (c *Context) Text(t token.Token) (string, error) {
	return toText(c.Scalar(t))
}

// Bool reads an argument as a boolean
func (c *Context) Bool(t token.Token) (bool, error) {
	return toBool(c.Scalar(t))
}

// Optional reports whether an optional argument at index i was supplied
func Optional(args []token.Token, i int) bool {
	if i >= len(args) {
		return false
	}
	_, missing := args[i].(token.Missing)
	return !missing
}

// Grid reads an argument as a 2-D block of values. references must be a
// single area on one sheet; scalars become a 1x1 block.
func (c *Context) Grid(t token.Token) (*token.Array, error) {
	t = c.ev.expand(t, c.Anchor)
	switch x := t.(type) {
	case token.CellRef, token.AreaRef, *token.RefList:
		return c.ev.grid(x, c.Anchor)
	case *token.Array:
		return x, nil
	case token.Error:
		return nil, x
	}
	v := c.Scalar(t)
	if e, ok := v.(token.Error); ok {
		return nil, e
	}
	return &token.Array{Rows: [][]token.Token{{v}}}, nil
}

// Ranges resolves a reference argument to its areas
func (c *Context) Ranges(t token.Token) ([]reference.Range, error) {
	t = c.ev.expand(t, c.Anchor)
	if e, ok := t.(token.Error); ok {
		return nil, e
	}
	if !token.IsReference(t) {
		return nil, token.NewError(token.ErrorValue, "argument is not a reference")
	}
	return c.ev.resolver.ResolveAll(t, c.Anchor)
}

// Each calls fn for every value of an argument. direct is true for values
// written as the argument itself and false for values read from cells or
// arrays; many functions treat the two differently. iteration stops at the
// first error fn returns.
func (c *Context) Each(t token.Token, fn func(v token.Token, direct bool) error) error {
	t = c.ev.expand(t, c.Anchor)
	switch x := t.(type) {
	case token.CellRef, token.AreaRef, *token.RefList:
		ranges, err := c.ev.resolver.ResolveAll(x, c.Anchor)
		if err != nil {
			return fn(errorValue(err), true)
		}
		for _, rng := range ranges {
			for _, part := range c.ev.resolver.Expand(rng) {
				err := c.ev.iterate(c.ev.used(part), func(_, _ int32, v token.Token) error {
					return fn(v, false)
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	case *token.Array:
		for _, v := range x.Values() {
			if err := fn(v, false); err != nil {
				return err
			}
		}
		return nil
	case token.Missing:
		return nil
	}
	return fn(t, true)
}

// EachCell calls fn for every cell of a reference argument with its
// position
func (c *Context) EachCell(t token.Token, fn func(row, col int32, v token.Token) error) error {
	ranges, err := c.Ranges(t)
	if err != nil {
		return err
	}
	for _, rng := range ranges {
		for _, part := range c.ev.resolver.Expand(rng) {
			if err := c.ev.iterate(c.ev.used(part), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// rangeKey returns the text of a single-area reference argument for use as
// a cache key, or "" when the argument is not one
func (c *Context) rangeKey(t token.Token) string {
	t = c.ev.expand(t, c.Anchor)
	if !token.IsReference(t) {
		return ""
	}
	ranges, err := c.ev.resolver.ResolveAll(t, c.Anchor)
	if err != nil || len(ranges) != 1 {
		return ""
	}
	return ranges[0].String()
}

// Package calc evaluates postfix formula token streams against a host
// workbook and implements the operator and function library.
package calc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// ErrMalformedStack is returned when a token stream does not reduce to a
// single value. it indicates a bug in whatever produced the tokens.
var ErrMalformedStack = errors.New("calc: malformed token stack")

// EvalError locates a failure inside a token stream
type EvalError struct {
	Pos   int
	Token token.Token
	Err   error
}

func (e *EvalError) Error() string {
	if e.Token == nil {
		return fmt.Sprintf("calc: at token %d: %v", e.Pos, e.Err)
	}
	return fmt.Sprintf("calc: at token %d (%s %s): %v", e.Pos, e.Token.Kind(), e.Token, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator interface provides random number generation for testing
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// CellData is what the host stores for one cell
type CellData struct {
	// Value is the constant stored in the cell; nil or Blank when empty
	Value token.Token
	// Formula holds postfix tokens for formula cells, nil otherwise
	Formula []token.Token
	// Anchor is where the formula's relative references were written
	Anchor reference.Anchor
	// Cached is the last calculated result, nil if never calculated
	Cached token.Token
	// Dirty is set when a precedent changed after Cached was computed
	Dirty bool
}

// Workbook is the narrow view of cell storage the evaluator reads through.
// StoreResult is the only write: it records a computed formula result and
// clears the cell's dirty flag.
type Workbook interface {
	reference.Sheets
	reference.Names
	Cell(sheet string, row, col int32) CellData
	StoreResult(sheet string, row, col int32, result token.Token)
	// Bounds returns the number of rows and columns in use on a sheet.
	// whole-row and whole-column references stop at it when iterated.
	Bounds(sheet string) (rows, cols int32)
}

// Engine evaluates formulas. it is not safe for concurrent use; settings
// are per engine.
type Engine struct {
	settings  Settings
	logger    *slog.Logger
	clock     Clock
	rng       RandomGenerator
	tracker   *tracker.Tracker
	functions map[string]Function
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger. the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock sets the time source of NOW and TODAY
func WithClock(clock Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRandom sets the generator behind RAND
func WithRandom(rng RandomGenerator) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithTracker gives the engine a tracker whose caches back the database
// and lookup functions
func WithTracker(t *tracker.Tracker) Option {
	return func(e *Engine) { e.tracker = t }
}

// WithSettings replaces the default settings
func WithSettings(s Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithFunction registers an add-in function under its name
func WithFunction(fn Function) Option {
	return func(e *Engine) { e.functions[fn.Name] = fn }
}

// New creates an engine with the built-in function library
func New(opts ...Option) *Engine {
	e := &Engine{
		settings:  DefaultSettings(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:     &WallClock{},
		rng:       &DefaultRandomGenerator{},
		functions: builtins(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.settings.RecursionLimit <= 0 {
		e.settings.RecursionLimit = DefaultRecursionLimit
	}
	return e
}

// Settings returns the engine's current settings
func (e *Engine) Settings() Settings {
	return e.settings
}

// SetMode changes the calculation mode
func (e *Engine) SetMode(m Mode) {
	e.settings.Mode = m
}

// SetRecursionLimit changes the recursion limit. values below 1 restore
// the default.
func (e *Engine) SetRecursionLimit(n int) {
	if n < 1 {
		n = DefaultRecursionLimit
	}
	e.settings.RecursionLimit = n
}

// SetFormat changes the grid size references resolve against
func (e *Engine) SetFormat(f reference.Format) {
	e.settings.Format = f
}

// Tracker returns the tracker backing the engine's caches, if any
func (e *Engine) Tracker() *tracker.Tracker {
	return e.tracker
}

// Lookup returns the function registered under a name
func (e *Engine) Lookup(name string) (Function, bool) {
	fn, ok := e.functions[name]
	return fn, ok
}

// IsVolatile reports whether a formula calls a function that must be
// recalculated on every pass
func (e *Engine) IsVolatile(tokens []token.Token) bool {
	for _, t := range tokens {
		call, ok := t.(token.FunctionCall)
		if !ok {
			continue
		}
		if fn, ok := e.functions[call.FuncName()]; ok && fn.Flags&Volatile != 0 {
			return true
		}
	}
	return false
}

// Evaluate runs a postfix token stream evaluated at anchor and returns its
// value. formula errors come back as token.Error values; the Go error is
// reserved for malformed token streams.
func (e *Engine) Evaluate(book Workbook, tokens []token.Token, anchor reference.Anchor) (token.Token, error) {
	ev := e.newEvaluation(book)
	v, err := ev.run(tokens, anchor)
	if err != nil {
		e.logger.Error("malformed formula",
			"sheet", anchor.Sheet, "cell", token.CellName(anchor.Row, anchor.Col), "error", err)
		return nil, err
	}
	return ev.result(v, anchor), nil
}

// Calculate recomputes the formula stored at a cell regardless of mode,
// stores the result through the workbook and returns it. cells without a
// formula return their value.
func (e *Engine) Calculate(book Workbook, sheet string, row, col int32) token.Token {
	ev := e.newEvaluation(book)
	data := book.Cell(sheet, row, col)
	if data.Formula == nil {
		return valueOf(data.Value)
	}
	return ev.calculate(sheet, row, col, data)
}

// Value reads a cell the way a formula would: formula cells are
// recomputed or served from cache depending on the mode
func (e *Engine) Value(book Workbook, sheet string, row, col int32) token.Token {
	return e.newEvaluation(book).cell(sheet, row, col)
}

func valueOf(v token.Token) token.Token {
	if v == nil {
		return token.Blank{}
	}
	return v
}

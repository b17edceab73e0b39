// Package workbook is the cell store the formula engine runs against. it
// keeps worksheets in sparse chunks, compiles formulas on entry, tracks
// which formulas read which cells and recalculates what changed.
package workbook

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula/calc"
	"github.com/vogtb/go-spreadsheet/packages/formula/compile"
	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// maxNameDepth bounds how deep name definitions are followed when a
// formula's references are registered
const maxNameDepth = 32

// maxSheetName is the longest worksheet name accepted
const maxSheetName = 31

var _ calc.Workbook = (*Workbook)(nil)

// Interface lists the operations a host performs on a workbook
type Interface interface {
	// cell methods

	Get(address string) (token.Token, error)
	Set(address string, input string) error
	Remove(address string) error
	Input(address string) (string, error)
	Evaluate(address string, formula string) (token.Token, error)

	// worksheet methods

	AddWorksheet(name string) error
	RemoveWorksheet(name string) error
	RenameWorksheet(oldName string, newName string) error
	Worksheets() []string

	// structural edits

	InsertRows(sheet string, row, count int32) error
	DeleteRows(sheet string, row, count int32) error
	InsertColumns(sheet string, col, count int32) error
	DeleteColumns(sheet string, col, count int32) error

	// defined names

	DefineName(name string, formula string) error
	RemoveName(name string) error
	Names() []string

	// calculation

	Calculate() error
	SetMode(mode calc.Mode)
	SetRecursionLimit(n int)
	Settings() calc.Settings

	Close() error
}

var _ Interface = (*Workbook)(nil)

// Workbook combines cell storage, the reference tracker and the
// evaluation engine. it is not safe for concurrent use.
type Workbook struct {
	sheets   *WorksheetTable
	names    *NameTable
	strings  *StringTable
	formulas *FormulaTable
	graph    *DependencyGraph

	resolver *reference.Resolver
	tracker  *tracker.Tracker
	engine   *calc.Engine

	logger  *slog.Logger
	aliases map[string]string
	closed  bool
}

type options struct {
	logger   *slog.Logger
	settings calc.Settings
	engine   []calc.Option
}

// Option configures a Workbook
type Option func(*options)

// WithLogger sets the structured logger shared with the engine
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSettings replaces the default calculation settings
func WithSettings(s calc.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithClock sets the time source of NOW and TODAY
func WithClock(clock calc.Clock) Option {
	return func(o *options) { o.engine = append(o.engine, calc.WithClock(clock)) }
}

// WithRandom sets the generator behind RAND
func WithRandom(rng calc.RandomGenerator) Option {
	return func(o *options) { o.engine = append(o.engine, calc.WithRandom(rng)) }
}

// WithFunction registers an add-in function
func WithFunction(fn calc.Function) Option {
	return func(o *options) { o.engine = append(o.engine, calc.WithFunction(fn)) }
}

// New creates an empty workbook. add a worksheet before setting cells.
func New(opts ...Option) *Workbook {
	o := options{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		settings: calc.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	strs := NewStringTable()
	w := &Workbook{
		sheets:   NewWorksheetTable(),
		names:    NewNameTable(),
		strings:  strs,
		formulas: NewFormulaTable(),
		graph:    NewDependencyGraph(),
		logger:   o.logger,
		aliases:  o.settings.Aliases,
	}
	w.resolver = reference.NewResolver(o.settings.Format, w, w)
	w.tracker = tracker.New(w.resolver)

	engineOpts := []calc.Option{
		calc.WithSettings(o.settings),
		calc.WithLogger(o.logger),
		calc.WithTracker(w.tracker),
	}
	w.engine = calc.New(append(engineOpts, o.engine...)...)
	return w
}

// the calc.Workbook view

func (w *Workbook) SheetIndex(name string) (int, bool) {
	return w.sheets.Index(name)
}

func (w *Workbook) SheetNames() []string {
	return w.sheets.Names()
}

func (w *Workbook) DefinedName(name string) ([]token.Token, bool) {
	d, ok := w.names.Get(name)
	if !ok {
		return nil, false
	}
	return d.Tokens, true
}

func (w *Workbook) Cell(sheet string, row, col int32) calc.CellData {
	ws, ok := w.sheets.Get(sheet)
	if !ok {
		return calc.CellData{}
	}
	v, id := ws.Get(row, col)
	if id == 0 {
		return calc.CellData{Value: v}
	}
	f, ok := w.formulas.Get(id)
	if !ok {
		return calc.CellData{}
	}
	return calc.CellData{
		Formula: f.Tokens,
		Anchor:  f.Anchor,
		Cached:  f.Cached,
		Dirty:   w.graph.IsDirty(id),
	}
}

func (w *Workbook) StoreResult(sheet string, row, col int32, result token.Token) {
	ws, ok := w.sheets.Get(sheet)
	if !ok {
		return
	}
	if _, id := ws.Get(row, col); id != 0 {
		if f, ok := w.formulas.Get(id); ok {
			f.Cached = result
			w.graph.ClearDirty(id)
		}
	}
}

func (w *Workbook) Bounds(sheet string) (rows, cols int32) {
	ws, ok := w.sheets.Get(sheet)
	if !ok {
		return 0, 0
	}
	return ws.Bounds()
}

// cell methods

func (w *Workbook) check() error {
	if w.closed {
		return NewApplicationError(FailedPrecondition, "workbook is closed")
	}
	return nil
}

// resolveAddress parses a cell address such as B3 or 'My Sheet'!B3. an
// address without a sheet refers to the first worksheet.
func (w *Workbook) resolveAddress(address string) (*Worksheet, int32, int32, error) {
	if err := w.check(); err != nil {
		return nil, 0, 0, err
	}
	ref, err := token.ParseReference(strings.TrimSpace(address))
	if err != nil {
		return nil, 0, 0, wrap(InvalidArgument, err, "invalid address %q", address)
	}
	cell, ok := ref.(token.CellRef)
	if !ok || cell.WholeRow || cell.WholeCol {
		return nil, 0, 0, errorf(InvalidArgument, "address %q is not a single cell", address)
	}
	if cell.Row >= w.resolver.Format.MaxRows() || cell.Col >= w.resolver.Format.MaxCols() {
		return nil, 0, 0, errorf(OutOfRange, "address %q is outside the %s grid", address, w.resolver.Format)
	}
	if cell.Sheet == "" {
		all := w.sheets.All()
		if len(all) == 0 {
			return nil, 0, 0, NewApplicationError(FailedPrecondition, "workbook has no worksheets")
		}
		return all[0], cell.Row, cell.Col, nil
	}
	ws, ok := w.sheets.Get(cell.Sheet)
	if !ok {
		return nil, 0, 0, errorf(NotFound, "worksheet %q does not exist", cell.Sheet)
	}
	return ws, cell.Row, cell.Col, nil
}

// Get returns the value of a cell. formula cells are recalculated or
// served from cache according to the calculation mode.
func (w *Workbook) Get(address string) (token.Token, error) {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return nil, err
	}
	v, id := ws.Get(row, col)
	if id != 0 {
		return w.engine.Value(w, ws.name, row, col), nil
	}
	if v == nil {
		return token.Blank{}, nil
	}
	return v, nil
}

// Input returns what would be typed to reproduce a cell: formula text
// with its '=', or the constant in literal form
func (w *Workbook) Input(address string) (string, error) {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return "", err
	}
	return w.input(ws, row, col), nil
}

func (w *Workbook) input(ws *Worksheet, row, col int32) string {
	v, id := ws.Get(row, col)
	if id != 0 {
		if f, ok := w.formulas.Get(id); ok {
			return f.Text()
		}
	}
	return FormatInput(v)
}

// Set stores input in a cell. input starting with '=' is compiled as a
// formula; anything else is a constant parsed by ParseInput. a formula
// that does not compile leaves the cell unchanged and returns an
// InvalidArgument error wrapping the *compile.Error.
func (w *Workbook) Set(address string, input string) error {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	if len(input) > 1 && input[0] == '=' {
		return w.setFormula(ws, row, col, input)
	}
	w.removeFormula(ws.SetValue(row, col, ParseInput(input)))
	w.changed(ws.name, row, col)
	return nil
}

// SetValue stores a typed constant in a cell
func (w *Workbook) SetValue(address string, v token.Token) error {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	switch v.(type) {
	case nil, token.Blank, token.Number, token.Integer, token.Str, token.Bool, token.Error:
	default:
		return errorf(InvalidArgument, "%s is not a cell value", v.Kind())
	}
	w.removeFormula(ws.SetValue(row, col, v))
	w.changed(ws.name, row, col)
	return nil
}

func (w *Workbook) setFormula(ws *Worksheet, row, col int32, input string) error {
	tokens, err := w.compile(input)
	if err != nil {
		return wrap(InvalidArgument, err, "invalid formula at %s!%s", ws.name, token.CellName(row, col))
	}
	f := w.formulas.Add(ws.name, row, col, tokens)
	w.removeFormula(ws.SetFormula(row, col, f.ID))
	w.register(f)
	if w.engine.IsVolatile(tokens) {
		w.graph.MarkVolatile(f.ID)
	}
	w.graph.MarkDirty(f.ID)
	w.changed(ws.name, row, col)
	return nil
}

// Remove clears a cell
func (w *Workbook) Remove(address string) error {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	w.removeFormula(ws.Clear(row, col))
	w.changed(ws.name, row, col)
	return nil
}

// Evaluate computes a formula as if it were stored at address, without
// storing it
func (w *Workbook) Evaluate(address string, formula string) (token.Token, error) {
	ws, row, col, err := w.resolveAddress(address)
	if err != nil {
		return nil, err
	}
	tokens, err := w.compile(formula)
	if err != nil {
		return nil, wrap(InvalidArgument, err, "invalid formula")
	}
	v, err := w.engine.Evaluate(w, tokens, reference.NewAnchor(ws.name, row, col))
	if err != nil {
		return nil, wrap(Internal, err, "evaluation failed")
	}
	return v, nil
}

func (w *Workbook) compile(text string) ([]token.Token, error) {
	tokens, err := compile.Compile(text, compile.WithAliases(w.aliases))
	if err != nil {
		return nil, err
	}
	for i, t := range tokens {
		tokens[i] = w.canonicalRef(t)
	}
	return tokens, nil
}

// canonicalRef spells the sheet qualifiers of a reference the way the
// worksheets were defined, so references to the same sheet compare equal
func (w *Workbook) canonicalRef(t token.Token) token.Token {
	canonical := func(name string) string {
		if ws, ok := w.sheets.Get(name); ok && name != "" {
			return ws.name
		}
		return name
	}
	switch v := t.(type) {
	case token.CellRef:
		v.Sheet = canonical(v.Sheet)
		return v
	case token.AreaRef:
		v.First.Sheet = canonical(v.First.Sheet)
		v.Last.Sheet = canonical(v.Last.Sheet)
		return v
	case *token.RefList:
		out := &token.RefList{Refs: make([]token.Token, len(v.Refs))}
		for i, ref := range v.Refs {
			out.Refs[i] = w.canonicalRef(ref)
		}
		return out
	}
	return t
}

// register records every reference a formula reads with the tracker,
// following defined names into their definitions. earlier registrations
// of the formula are dropped first.
func (w *Workbook) register(f *Formula) {
	if err := w.tracker.Forget(f.ID); err != nil {
		return
	}
	w.graph.Reset(f.ID)
	w.registerTokens(f, f.Tokens, 0)
}

func (w *Workbook) registerTokens(f *Formula, tokens []token.Token, depth int) {
	for _, t := range tokens {
		switch v := t.(type) {
		case token.NameRef:
			w.graph.UseName(f.ID, v.Name)
			d, ok := w.names.Get(v.Name)
			if !ok {
				w.graph.MarkUnresolved(f.ID)
				continue
			}
			if depth < maxNameDepth {
				w.registerTokens(f, d.Tokens, depth+1)
			}
		case token.CellRef, token.AreaRef, *token.RefList:
			if err := w.tracker.Register(f.ID, t, f.Anchor); err != nil {
				w.graph.MarkUnresolved(f.ID)
				w.logger.Debug("unresolved reference",
					"sheet", f.Anchor.Sheet,
					"cell", token.CellName(f.Anchor.Row, f.Anchor.Col),
					"ref", t.String(),
					"error", err)
			}
		}
	}
}

func (w *Workbook) removeFormula(id tracker.FormulaID) {
	if id == 0 {
		return
	}
	_ = w.tracker.Forget(id)
	w.graph.Forget(id)
	w.formulas.Remove(id)
}

// changed invalidates everything derived from a cell. volatile formulas
// read cells the tracker does not know about, so they go dirty on every
// change along with their dependents.
func (w *Workbook) changed(sheet string, row, col int32) {
	w.tracker.ClearCaches()
	w.invalidate(reference.Cell(sheet, row, col))
	w.invalidateFormulas(w.graph.Volatile())
}

// invalidate marks every formula reading the ranges dirty, then the
// formulas reading those, until nothing new is found
func (w *Workbook) invalidate(ranges ...reference.Range) {
	queue := ranges
	seen := make(map[tracker.FormulaID]struct{})
	for len(queue) > 0 {
		rng := queue[0]
		queue = queue[1:]
		for id := range w.tracker.FindFormulasTouching(rng) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			w.graph.MarkDirty(id)
			if f, ok := w.formulas.Get(id); ok {
				queue = append(queue, reference.Cell(f.Anchor.Sheet, f.Anchor.Row, f.Anchor.Col))
			}
		}
	}
}

// invalidateFormulas marks formulas and everything reading them dirty
func (w *Workbook) invalidateFormulas(ids []tracker.FormulaID) {
	ranges := make([]reference.Range, 0, len(ids))
	for _, id := range ids {
		w.graph.MarkDirty(id)
		if f, ok := w.formulas.Get(id); ok {
			ranges = append(ranges, reference.Cell(f.Anchor.Sheet, f.Anchor.Row, f.Anchor.Col))
		}
	}
	w.invalidate(ranges...)
}

// worksheet methods

// AddWorksheet appends an empty worksheet. formulas that referenced the
// name before it existed are recalculated.
func (w *Workbook) AddWorksheet(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	if err := validateSheetName(name); err != nil {
		return err
	}
	if !w.sheets.Define(NewWorksheet(name, w.strings)) {
		return errorf(AlreadyExists, "worksheet %q already exists", name)
	}
	w.retryUnresolved()
	return nil
}

func validateSheetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewApplicationError(InvalidArgument, "worksheet name is empty")
	}
	if len([]rune(name)) > maxSheetName {
		return errorf(InvalidArgument, "worksheet name %q is longer than %d characters", name, maxSheetName)
	}
	if strings.ContainsAny(name, `[]:*?/\`) {
		return errorf(InvalidArgument, "worksheet name %q contains an invalid character", name)
	}
	return nil
}

// retryUnresolved registers formulas with dangling references again
func (w *Workbook) retryUnresolved() {
	ids := w.graph.Unresolved()
	if len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if f, ok := w.formulas.Get(id); ok {
			w.register(f)
		}
	}
	w.tracker.ClearCaches()
	w.invalidateFormulas(ids)
}

// Worksheets returns the worksheet names in workbook order
func (w *Workbook) Worksheets() []string {
	return w.sheets.Names()
}

// defined names

// DefineName adds or replaces a workbook-level name. the definition is
// formula text, with or without its '='.
func (w *Workbook) DefineName(name string, formula string) error {
	if err := w.check(); err != nil {
		return err
	}
	if !compile.IsName(name) {
		return errorf(InvalidArgument, "%q is not a valid name", name)
	}
	tokens, err := w.compile(formula)
	if err != nil {
		return wrap(InvalidArgument, err, "invalid definition of %s", name)
	}
	w.names.Define(name, tokens)
	w.refreshNameUsers(name)
	return nil
}

// RemoveName deletes a defined name. formulas reading it become #NAME?.
func (w *Workbook) RemoveName(name string) error {
	if err := w.check(); err != nil {
		return err
	}
	if !w.names.Undefine(name) {
		return errorf(NotFound, "name %q is not defined", name)
	}
	w.refreshNameUsers(name)
	return nil
}

func (w *Workbook) refreshNameUsers(name string) {
	users := w.graph.NameUsers(name)
	for _, id := range users {
		if f, ok := w.formulas.Get(id); ok {
			w.register(f)
		}
	}
	w.tracker.ClearCaches()
	w.invalidateFormulas(users)
}

// Names returns the defined names sorted ignoring case
func (w *Workbook) Names() []string {
	all := w.names.All()
	out := make([]string, len(all))
	for i, d := range all {
		out[i] = d.Name
	}
	return out
}

// Name returns the definition text of a name
func (w *Workbook) Name(name string) (string, bool) {
	d, ok := w.names.Get(name)
	if !ok {
		return "", false
	}
	return d.Text(), true
}

// calculation

// Calculate recalculates every dirty formula and every volatile one. it
// runs with automatic semantics whatever the mode, so precedents are
// brought up to date before the cells reading them.
func (w *Workbook) Calculate() error {
	if err := w.check(); err != nil {
		return err
	}
	start := time.Now()
	w.tracker.ClearCaches()
	w.invalidateFormulas(w.graph.Volatile())

	mode := w.engine.Settings().Mode
	w.engine.SetMode(calc.Automatic)
	defer w.engine.SetMode(mode)

	cells, passes := 0, 0
	for dirty := w.calculationOrder(); len(dirty) > 0; dirty = w.calculationOrder() {
		passes++
		for _, f := range dirty {
			if !w.graph.IsDirty(f.ID) {
				continue
			}
			w.engine.Calculate(w, f.Anchor.Sheet, f.Anchor.Row, f.Anchor.Col)
			w.graph.ClearDirty(f.ID)
			cells++
		}
	}
	w.logger.Debug("calculated",
		"cells", cells,
		"passes", passes,
		"elapsed", time.Since(start))
	return nil
}

// calculationOrder returns the dirty formulas sorted by sheet, row and
// column so passes are deterministic
func (w *Workbook) calculationOrder() []*Formula {
	ids := w.graph.Dirty()
	out := make([]*Formula, 0, len(ids))
	for _, id := range ids {
		f, ok := w.formulas.Get(id)
		if !ok {
			w.graph.ClearDirty(id)
			continue
		}
		out = append(out, f)
	}
	sortFormulas(out, w.sheets)
	return out
}

// SetMode changes the calculation mode
func (w *Workbook) SetMode(mode calc.Mode) {
	w.engine.SetMode(mode)
}

// SetRecursionLimit changes the recursion limit; values below 1 restore
// the default
func (w *Workbook) SetRecursionLimit(n int) {
	w.engine.SetRecursionLimit(n)
}

// Settings returns the current calculation settings
func (w *Workbook) Settings() calc.Settings {
	return w.engine.Settings()
}

// Stats describes the size of a workbook
type Stats struct {
	Worksheets int
	Cells      int
	Formulas   int
	Dirty      int
	Volatile   int
	Strings    int
	Names      int
	Tracker    tracker.Stats
}

// Stats returns counts of what the workbook holds
func (w *Workbook) Stats() Stats {
	s := Stats{
		Worksheets: w.sheets.Len(),
		Formulas:   w.formulas.Len(),
		Dirty:      len(w.graph.Dirty()),
		Volatile:   len(w.graph.Volatile()),
		Strings:    w.strings.Len(),
		Names:      w.names.Len(),
		Tracker:    w.tracker.Stats(),
	}
	for _, ws := range w.sheets.All() {
		s.Cells += ws.Len()
	}
	return s
}

// Close releases the tracker. every later operation fails with
// FailedPrecondition.
func (w *Workbook) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.tracker.Close()
}

// ParseInput turns constant cell input into a value: numbers, TRUE and
// FALSE, error literals and otherwise text. a leading apostrophe forces
// text and the empty string is blank.
func ParseInput(input string) token.Token {
	if input == "" {
		return token.Blank{}
	}
	if input[0] == '\'' {
		return token.Str(input[1:])
	}
	trimmed := strings.TrimSpace(input)
	if n, ok := token.ParseDecimal(trimmed); ok {
		return token.Number(n)
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return token.Bool(true)
	case "FALSE":
		return token.Bool(false)
	}
	if kind, ok := token.ParseErrorKind(strings.ToUpper(trimmed)); ok {
		return token.NewError(kind, "")
	}
	return token.Str(input)
}

// FormatInput is the inverse of ParseInput
func FormatInput(v token.Token) string {
	switch t := v.(type) {
	case nil, token.Blank:
		return ""
	case token.Number:
		return token.FormatNumber(float64(t))
	case token.Integer:
		return strconv.Itoa(int(t))
	case token.Bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case token.Error:
		return t.Code.String()
	case token.Str:
		s := string(t)
		if s == "" {
			return "'"
		}
		if s[0] == '=' || s[0] == '\'' {
			return "'" + s
		}
		if _, ok := ParseInput(s).(token.Str); !ok {
			return "'" + s
		}
		return s
	}
	return v.String()
}

package workbook

import (
	"cmp"
	"math/bits"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
	"github.com/vogtb/go-spreadsheet/packages/formula/tracker"
)

// ChunkKey identifies a chunk in the sparse chunk grid
type ChunkKey struct {
	ChunkRow int32
	ChunkCol int32
}

const (
	ChunkRows = 256
	ChunkCols = 256
	ChunkSize = ChunkRows * ChunkCols
)

// cellKind is what a chunk slot holds
type cellKind uint8

const (
	kindEmpty cellKind = iota
	kindNumber
	kindString
	kindBool
	kindError
	kindFormula
)

// Chunk stores a 256x256 block of cells as parallel arrays. slots are
// indexed column first.
type Chunk struct {
	// always allocated

	Kinds          []uint8
	NonEmptyCount  int
	OccupiedBitmap []uint64

	// allocated on first use

	Numbers    []float64 // numbers, booleans and error codes
	StringIDs  []uint32  // interned text and error messages
	FormulaIDs []uint32  // formula table ids
}

func newChunk() *Chunk {
	return &Chunk{
		Kinds:          make([]uint8, ChunkSize),
		OccupiedBitmap: make([]uint64, ChunkSize/64),
	}
}

func (c *Chunk) occupied(idx int) bool {
	return c.OccupiedBitmap[idx/64]&(1<<(idx%64)) != 0
}

func (c *Chunk) occupy(idx int) {
	if !c.occupied(idx) {
		c.OccupiedBitmap[idx/64] |= 1 << (idx % 64)
		c.NonEmptyCount++
	}
}

func (c *Chunk) vacate(idx int) {
	if c.occupied(idx) {
		c.OccupiedBitmap[idx/64] &^= 1 << (idx % 64)
		c.NonEmptyCount--
	}
}

func (c *Chunk) numbers() []float64 {
	if c.Numbers == nil {
		c.Numbers = make([]float64, ChunkSize)
	}
	return c.Numbers
}

func (c *Chunk) stringIDs() []uint32 {
	if c.StringIDs == nil {
		c.StringIDs = make([]uint32, ChunkSize)
	}
	return c.StringIDs
}

func (c *Chunk) formulaIDs() []uint32 {
	if c.FormulaIDs == nil {
		c.FormulaIDs = make([]uint32, ChunkSize)
	}
	return c.FormulaIDs
}

// cellEntry is one occupied cell as listed by Worksheet.entries
type cellEntry struct {
	Row, Col int32
	Value    token.Token
	Formula  tracker.FormulaID
}

// Worksheet is a sparse grid of constants and formula ids split into
// chunks allocated on first write
type Worksheet struct {
	name    string
	chunks  map[ChunkKey]*Chunk
	strings *StringTable

	rows, cols  int32 // cached bounds
	boundsStale bool
}

// NewWorksheet creates an empty worksheet whose text shares strings
func NewWorksheet(name string, strings *StringTable) *Worksheet {
	return &Worksheet{
		name:    name,
		chunks:  make(map[ChunkKey]*Chunk),
		strings: strings,
	}
}

// Name returns the worksheet's name as it was defined
func (w *Worksheet) Name() string {
	return w.name
}

func locate(row, col int32) (ChunkKey, int) {
	key := ChunkKey{ChunkRow: row / ChunkRows, ChunkCol: col / ChunkCols}
	localRow, localCol := row%ChunkRows, col%ChunkCols
	return key, int(localCol)*ChunkRows + int(localRow)
}

// Get returns the constant at a cell, or the id of the formula stored
// there. empty cells return nil and 0.
func (w *Worksheet) Get(row, col int32) (token.Token, tracker.FormulaID) {
	key, idx := locate(row, col)
	chunk, ok := w.chunks[key]
	if !ok || !chunk.occupied(idx) {
		return nil, 0
	}
	switch cellKind(chunk.Kinds[idx]) {
	case kindNumber:
		return token.Number(chunk.Numbers[idx]), 0
	case kindBool:
		return token.Bool(chunk.Numbers[idx] != 0), 0
	case kindString:
		s, _ := w.strings.Text(chunk.StringIDs[idx])
		return token.Str(s), 0
	case kindError:
		var msg string
		if chunk.StringIDs != nil && chunk.StringIDs[idx] != 0 {
			msg, _ = w.strings.Text(chunk.StringIDs[idx])
		}
		return token.Error{Code: token.ErrorKind(chunk.Numbers[idx]), Message: msg}, 0
	case kindFormula:
		return nil, tracker.FormulaID(chunk.FormulaIDs[idx])
	}
	return nil, 0
}

// SetValue stores a constant, replacing whatever the cell held. nil and
// blank values clear the cell. it returns the id of a formula the value
// replaced.
func (w *Worksheet) SetValue(row, col int32, v token.Token) tracker.FormulaID {
	previous := w.Clear(row, col)
	if v == nil || token.IsBlank(v) {
		return previous
	}
	key, idx := locate(row, col)
	chunk := w.chunk(key)
	switch t := v.(type) {
	case token.Number:
		chunk.numbers()[idx] = float64(t)
		chunk.Kinds[idx] = uint8(kindNumber)
	case token.Integer:
		chunk.numbers()[idx] = float64(t)
		chunk.Kinds[idx] = uint8(kindNumber)
	case token.Bool:
		n := 0.0
		if t {
			n = 1
		}
		chunk.numbers()[idx] = n
		chunk.Kinds[idx] = uint8(kindBool)
	case token.Str:
		chunk.stringIDs()[idx] = w.strings.Intern(string(t))
		chunk.Kinds[idx] = uint8(kindString)
	case token.Error:
		chunk.numbers()[idx] = float64(t.Code)
		if t.Message != "" {
			chunk.stringIDs()[idx] = w.strings.Intern(t.Message)
		}
		chunk.Kinds[idx] = uint8(kindError)
	default:
		// anything else is rendered as text
		chunk.stringIDs()[idx] = w.strings.Intern(v.String())
		chunk.Kinds[idx] = uint8(kindString)
	}
	chunk.occupy(idx)
	w.grow(row, col)
	return previous
}

// SetFormula marks a cell as holding formula id, replacing its contents.
// it returns the id of a formula the new one replaced.
func (w *Worksheet) SetFormula(row, col int32, id tracker.FormulaID) tracker.FormulaID {
	previous := w.Clear(row, col)
	key, idx := locate(row, col)
	chunk := w.chunk(key)
	chunk.formulaIDs()[idx] = uint32(id)
	chunk.Kinds[idx] = uint8(kindFormula)
	chunk.occupy(idx)
	w.grow(row, col)
	return previous
}

// Clear empties a cell, releasing its strings. it returns the id of the
// formula the cell held, if any.
func (w *Worksheet) Clear(row, col int32) tracker.FormulaID {
	key, idx := locate(row, col)
	chunk, ok := w.chunks[key]
	if !ok || !chunk.occupied(idx) {
		return 0
	}
	var previous tracker.FormulaID
	switch cellKind(chunk.Kinds[idx]) {
	case kindString, kindError:
		if chunk.StringIDs != nil && chunk.StringIDs[idx] != 0 {
			w.strings.Release(chunk.StringIDs[idx])
			chunk.StringIDs[idx] = 0
		}
	case kindFormula:
		previous = tracker.FormulaID(chunk.FormulaIDs[idx])
		chunk.FormulaIDs[idx] = 0
	}
	chunk.Kinds[idx] = uint8(kindEmpty)
	chunk.vacate(idx)
	if chunk.NonEmptyCount == 0 {
		delete(w.chunks, key)
	}
	w.boundsStale = true
	return previous
}

func (w *Worksheet) chunk(key ChunkKey) *Chunk {
	chunk, ok := w.chunks[key]
	if !ok {
		chunk = newChunk()
		w.chunks[key] = chunk
	}
	return chunk
}

func (w *Worksheet) grow(row, col int32) {
	w.rows = max(w.rows, row+1)
	w.cols = max(w.cols, col+1)
}

// Bounds returns one past the last occupied row and column
func (w *Worksheet) Bounds() (rows, cols int32) {
	if w.boundsStale {
		w.rows, w.cols = 0, 0
		w.each(func(row, col int32, _ *Chunk, _ int) {
			w.grow(row, col)
		})
		w.boundsStale = false
	}
	return w.rows, w.cols
}

// Len returns the number of occupied cells
func (w *Worksheet) Len() int {
	n := 0
	for _, chunk := range w.chunks {
		n += chunk.NonEmptyCount
	}
	return n
}

// each visits every occupied slot by walking the chunk bitmaps
func (w *Worksheet) each(fn func(row, col int32, chunk *Chunk, idx int)) {
	for key, chunk := range w.chunks {
		for word, bitsSet := range chunk.OccupiedBitmap {
			for bitsSet != 0 {
				bit := bits.TrailingZeros64(bitsSet)
				bitsSet &= bitsSet - 1
				idx := word*64 + bit
				row := key.ChunkRow*ChunkRows + int32(idx%ChunkRows)
				col := key.ChunkCol*ChunkCols + int32(idx/ChunkRows)
				fn(row, col, chunk, idx)
			}
		}
	}
}

// entries lists every occupied cell in row-major order
func (w *Worksheet) entries() []cellEntry {
	out := make([]cellEntry, 0, w.Len())
	w.each(func(row, col int32, _ *Chunk, _ int) {
		v, id := w.Get(row, col)
		out = append(out, cellEntry{Row: row, Col: col, Value: v, Formula: id})
	})
	slices.SortFunc(out, func(a, b cellEntry) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return out
}

package workbook

import (
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// CellRecord is the input of one occupied cell
type CellRecord struct {
	Sheet string `yaml:"sheet" json:"sheet"`
	Cell  string `yaml:"cell" json:"cell"`
	Input string `yaml:"input" json:"input"`
}

// NameRecord is one defined name and its definition text
type NameRecord struct {
	Name    string `yaml:"name" json:"name"`
	Formula string `yaml:"formula" json:"formula"`
}

// Snapshot is everything needed to rebuild a workbook's contents
type Snapshot struct {
	Worksheets []string     `yaml:"worksheets" json:"worksheets"`
	Names      []NameRecord `yaml:"names,omitempty" json:"names,omitempty"`
	Cells      []CellRecord `yaml:"cells,omitempty" json:"cells,omitempty"`
}

// Cells lists the input of every occupied cell, worksheet by worksheet in
// row-major order
func (w *Workbook) Cells() []CellRecord {
	var out []CellRecord
	for _, ws := range w.sheets.All() {
		for _, e := range ws.entries() {
			out = append(out, CellRecord{
				Sheet: ws.name,
				Cell:  token.CellName(e.Row, e.Col),
				Input: w.input(ws, e.Row, e.Col),
			})
		}
	}
	return out
}

// Snapshot captures the worksheets, defined names and cell inputs
func (w *Workbook) Snapshot() Snapshot {
	s := Snapshot{
		Worksheets: w.sheets.Names(),
		Cells:      w.Cells(),
	}
	for _, d := range w.names.All() {
		s.Names = append(s.Names, NameRecord{Name: d.Name, Formula: d.Text()})
	}
	return s
}

// Restore loads a snapshot into the workbook and calculates it. missing
// worksheets are added; cells and names already present are overwritten.
func (w *Workbook) Restore(s Snapshot) error {
	if err := w.check(); err != nil {
		return err
	}
	for _, name := range s.Worksheets {
		if _, ok := w.sheets.Get(name); ok {
			continue
		}
		if err := w.AddWorksheet(name); err != nil {
			return err
		}
	}
	for _, n := range s.Names {
		if err := w.DefineName(n.Name, n.Formula); err != nil {
			return err
		}
	}
	for _, c := range s.Cells {
		address := token.QuoteSheet(c.Sheet) + "!" + c.Cell
		if err := w.Set(address, c.Input); err != nil {
			return err
		}
	}
	return w.Calculate()
}

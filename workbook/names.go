package workbook

import (
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// DefinedName is a workbook-level name and the formula it stands for
type DefinedName struct {
	Name   string
	Tokens []token.Token
}

// Text renders the definition with its leading '='
func (d *DefinedName) Text() string {
	text, _ := token.Format(d.Tokens)
	return "=" + text
}

// NameTable holds defined names, matched ignoring case
type NameTable struct {
	names map[string]*DefinedName // folded name -> definition
}

// NewNameTable creates an empty name table
func NewNameTable() *NameTable {
	return &NameTable{names: make(map[string]*DefinedName)}
}

// Define adds or replaces a name and reports whether it existed
func (nt *NameTable) Define(name string, tokens []token.Token) bool {
	key := token.Fold(name)
	_, existed := nt.names[key]
	nt.names[key] = &DefinedName{Name: name, Tokens: tokens}
	return existed
}

// Undefine removes a name
func (nt *NameTable) Undefine(name string) bool {
	key := token.Fold(name)
	if _, ok := nt.names[key]; !ok {
		return false
	}
	delete(nt.names, key)
	return true
}

// Get returns the definition of a name
func (nt *NameTable) Get(name string) (*DefinedName, bool) {
	d, ok := nt.names[token.Fold(name)]
	return d, ok
}

// All returns the definitions sorted by name
func (nt *NameTable) All() []*DefinedName {
	out := make([]*DefinedName, 0, len(nt.names))
	for _, d := range nt.names {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *DefinedName) int {
		return compareFolded(a.Name, b.Name)
	})
	return out
}

// Len returns the number of defined names
func (nt *NameTable) Len() int {
	return len(nt.names)
}

func compareFolded(a, b string) int {
	fa, fb := token.Fold(a), token.Fold(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

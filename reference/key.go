package reference

import (
	"fmt"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// RefKey packs a single-cell coordinate into one integer for set membership.
// layout, most significant first:
//
//	bits 63-32  row, two's complement (the whole-column sentinel -1 is 0xFFFFFFFF)
//	bits 31-16  column (the whole-row sentinel -1 is 0xFFFF)
//	bits 15-0   sheet ordinal
//
// no valid coordinate of either format shares a key with a sentinel.
type RefKey uint64

// NewRefKey encodes a coordinate on the sheet with the given ordinal
func NewRefKey(sheet uint16, row, col int32) RefKey {
	return RefKey(uint64(uint32(row))<<32 | uint64(uint16(col))<<16 | uint64(sheet))
}

// Hash returns the key of a single-cell reference's stored coordinate
func Hash(c token.CellRef, sheet uint16) RefKey {
	row, col := c.Row, c.Col
	if c.WholeCol {
		row = token.Sentinel
	}
	if c.WholeRow {
		col = token.Sentinel
	}
	return NewRefKey(sheet, row, col)
}

// Decode returns the sheet ordinal, row and column of the key
func (k RefKey) Decode() (sheet uint16, row, col int32) {
	row = int32(uint32(k >> 32))
	c := uint16(k >> 16)
	if c == 0xFFFF {
		col = token.Sentinel
	} else {
		col = int32(c)
	}
	return uint16(k), row, col
}

func (k RefKey) String() string {
	sheet, row, col := k.Decode()
	return fmt.Sprintf("RefKey(%d,%d,%d)", sheet, row, col)
}

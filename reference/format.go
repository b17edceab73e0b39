// Package reference resolves reference tokens to concrete cell ranges,
// shifts them for structural edits and encodes single cells as RefKeys.
package reference

import (
	"fmt"
	"strings"
)

// Format selects the grid limits of the file format being evaluated
type Format uint8

const (
	// Extended is the OOXML grid (1,048,576 rows by 16,384 columns)
	Extended Format = iota
	// Legacy is the BIFF8 grid (65,536 rows by 256 columns)
	Legacy
)

// MaxRows returns the number of rows in the grid
func (f Format) MaxRows() int32 {
	if f == Legacy {
		return 65536
	}
	return 1048576
}

// MaxCols returns the number of columns in the grid
func (f Format) MaxCols() int32 {
	if f == Legacy {
		return 256
	}
	return 16384
}

func (f Format) String() string {
	if f == Legacy {
		return "legacy"
	}
	return "extended"
}

// ParseFormat parses "legacy" or "extended"
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "extended", "xlsx":
		return Extended, nil
	case "legacy", "xls", "biff8":
		return Legacy, nil
	default:
		return Extended, fmt.Errorf("unknown format %q", s)
	}
}

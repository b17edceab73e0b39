package calc

import (
	"fmt"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula/reference"
)

// DefaultRecursionLimit is the nesting depth of formula evaluations after
// which the circular reference token is produced
const DefaultRecursionLimit = 100

// Mode controls when a formula cell read during evaluation is recomputed
type Mode uint8

const (
	// Automatic recomputes a formula on read when it is dirty or has never
	// been calculated
	Automatic Mode = iota
	// Explicit uses cached results and ignores dirtiness; formulas are only
	// recomputed when the host asks for it
	Explicit
	// Always recomputes every formula on every read
	Always
)

var modeNames = [...]string{"automatic", "explicit", "always"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode parses a calculation mode name, ignoring case. the empty
// string is Automatic.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "automatic", "auto":
		return Automatic, nil
	case "explicit", "manual":
		return Explicit, nil
	case "always":
		return Always, nil
	}
	return Automatic, fmt.Errorf("unknown calculation mode %q", s)
}

// Settings are the workbook-level calculation settings
type Settings struct {
	RecursionLimit int
	Mode           Mode
	Format         reference.Format

	// Aliases maps alternate (localized) function names to canonical ones
	Aliases map[string]string
}

// DefaultSettings returns automatic calculation in the extended format
// with the default recursion limit
func DefaultSettings() Settings {
	return Settings{
		RecursionLimit: DefaultRecursionLimit,
		Mode:           Automatic,
		Format:         reference.Extended,
	}
}

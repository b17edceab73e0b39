package calc

import (
	"math"
	"time"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

// Excel date/time constants
const (
	// December 30, 1899 00:00:00 UTC in Unix milliseconds. day 1 is then
	// December 31, 1899, so serials from March 1900 on agree with Excel,
	// which counts a February 29, 1900 that did not exist.
	excelEpochMs = -2209161600000
	msPerDay     = 86400000
)

var excelEpoch = time.UnixMilli(excelEpochMs).UTC()

func dateFunctions() []Function {
	return []Function{
		builtin("NOW", Volatile, fnNow),
		builtin("TODAY", Volatile, fnToday),
		builtin("DATE", 0, fnDate),
		builtin("YEAR", 0, datePart(func(t time.Time) int { return t.Year() })),
		builtin("MONTH", 0, datePart(func(t time.Time) int { return int(t.Month()) })),
		builtin("DAY", 0, datePart(func(t time.Time) int { return t.Day() })),
	}
}

// serial converts a wall-clock time to a date serial, ignoring its zone
func serial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return float64(wall.UnixMilli()-excelEpochMs) / msPerDay
}

func fnNow(c *Context, args []token.Token) (token.Token, error) {
	return token.Number(serial(c.Now())), nil
}

func fnToday(c *Context, args []token.Token) (token.Token, error) {
	return token.Number(math.Floor(serial(c.Now()))), nil
}

// fnDate builds a serial from year, month and day. years below 1900 are
// offsets from 1900, and months and days outside their range roll over.
func fnDate(c *Context, args []token.Token) (token.Token, error) {
	year, err := c.Int(args[0])
	if err != nil {
		return nil, err
	}
	month, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	day, err := c.Int(args[2])
	if err != nil {
		return nil, err
	}
	if year < 0 || year > 9999 {
		return nil, token.NewError(token.ErrorNum, "DATE year is out of range")
	}
	if year < 1900 {
		year += 1900
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	n := serial(t)
	if n < 0 {
		return nil, token.NewError(token.ErrorNum, "DATE is before the first date")
	}
	return token.Number(n), nil
}

// datePart builds YEAR, MONTH and DAY
func datePart(part func(time.Time) int) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		n, err := c.Number(args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 2958465 {
			return nil, token.NewError(token.ErrorNum, c.Name+" serial is out of range")
		}
		ms := int64(math.Floor(n)) * msPerDay
		return token.Number(part(excelEpoch.Add(time.Duration(ms) * time.Millisecond))), nil
	}
}

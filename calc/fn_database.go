package calc

import (
	"math"

	"github.com/vogtb/go-spreadsheet/packages/formula/criteria"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func databaseFunctions() []Function {
	return []Function{
		builtin("DSUM", RefArgs, database(false, dbSum)),
		builtin("DCOUNT", RefArgs, database(true, dbCount)),
		builtin("DCOUNTA", RefArgs, database(true, dbCountA)),
		builtin("DAVERAGE", RefArgs, database(false, dbAverage)),
		builtin("DMAX", RefArgs, database(false, dbExtreme(math.Max))),
		builtin("DMIN", RefArgs, database(false, dbExtreme(math.Min))),
		builtin("DGET", RefArgs, database(false, dbGet)),
		builtin("DPRODUCT", RefArgs, database(false, dbProduct)),
		builtin("DSTDEV", RefArgs, database(false, dbVariance(1, true))),
		builtin("DSTDEVP", RefArgs, database(false, dbVariance(0, true))),
		builtin("DVAR", RefArgs, database(false, dbVariance(1, false))),
		builtin("DVARP", RefArgs, database(false, dbVariance(0, false))),
	}
}

// aggregate reduces the field values of the matching rows
type aggregate func(values []token.Token) (token.Token, error)

// database builds a D-function: parse the database and criteria ranges,
// select the field of every matching row and aggregate it. optionalField
// lets the field argument be omitted, in which case matching rows are
// counted.
func database(optionalField bool, agg aggregate) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		db, err := dbTable(c, args[0])
		if err != nil {
			return nil, err
		}
		crit, err := dbTable(c, args[2])
		if err != nil {
			return nil, err
		}

		if !Optional(args, 1) {
			if !optionalField {
				return nil, token.NewError(token.ErrorValue, c.Name+" needs a field")
			}
			var rows []token.Token
			for _, row := range db.Rows {
				if crit.Matches(row, db) {
					rows = append(rows, token.Number(1))
				}
			}
			return agg(rows)
		}

		field := c.Scalar(args[1])
		if e, ok := field.(token.Error); ok {
			return nil, e
		}
		col, ok := db.Column(field)
		if !ok {
			return nil, token.NewError(token.ErrorValue, c.Name+": no field "+field.String())
		}
		return agg(db.Select(col, crit))
	}
}

// dbTable parses a database or criteria range, reusing the tracker's cached
// parse of the same range text
func dbTable(c *Context, arg token.Token) (*criteria.Table, error) {
	tr := c.Tracker()
	key := c.rangeKey(arg)
	if tr != nil && key != "" {
		if t, ok := tr.Table(key); ok {
			return t, nil
		}
	}

	var cells []criteria.Cell
	err := c.EachCell(arg, func(row, col int32, v token.Token) error {
		cells = append(cells, criteria.Cell{Row: row, Col: col, Value: v})
		return nil
	})
	if err != nil {
		return nil, err
	}
	t, err := criteria.ParseTable(cells)
	if err != nil {
		return nil, token.NewError(token.ErrorValue, err.Error())
	}
	if tr != nil && key != "" {
		tr.PutTable(key, t)
	}
	return t, nil
}

// fieldNumbers keeps the numeric values of a selected column. an error
// value in the column is the result.
func fieldNumbers(values []token.Token) ([]float64, error) {
	var out []float64
	for _, v := range values {
		if e, ok := v.(token.Error); ok {
			return nil, e
		}
		if isNumber(v) {
			n, _ := toNumber(v)
			out = append(out, n)
		}
	}
	return out, nil
}

func dbSum(values []token.Token) (token.Token, error) {
	nums, err := fieldNumbers(values)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return numberResult(sum)
}

func dbCount(values []token.Token) (token.Token, error) {
	count := 0
	for _, v := range values {
		if isNumber(v) {
			count++
		}
	}
	return token.Number(count), nil
}

func dbCountA(values []token.Token) (token.Token, error) {
	count := 0
	for _, v := range values {
		if !token.IsBlank(v) {
			count++
		}
	}
	return token.Number(count), nil
}

func dbAverage(values []token.Token) (token.Token, error) {
	nums, err := fieldNumbers(values)
	if err != nil {
		return nil, err
	}
	return mean(nums)
}

func dbExtreme(pick func(a, b float64) float64) aggregate {
	return func(values []token.Token) (token.Token, error) {
		nums, err := fieldNumbers(values)
		if err != nil {
			return nil, err
		}
		if len(nums) == 0 {
			return token.Number(0), nil
		}
		result := nums[0]
		for _, n := range nums[1:] {
			result = pick(result, n)
		}
		return token.Number(result), nil
	}
}

func dbProduct(values []token.Token) (token.Token, error) {
	nums, err := fieldNumbers(values)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return token.Number(0), nil
	}
	product := 1.0
	for _, n := range nums {
		product *= n
	}
	return numberResult(product)
}

// dbGet returns the field of the only matching row
func dbGet(values []token.Token) (token.Token, error) {
	switch len(values) {
	case 0:
		return nil, token.NewError(token.ErrorValue, "DGET: no row matches")
	case 1:
		return values[0], nil
	}
	return nil, token.NewError(token.ErrorNum, "DGET: more than one row matches")
}

func dbVariance(ddof int, root bool) aggregate {
	return func(values []token.Token) (token.Token, error) {
		nums, err := fieldNumbers(values)
		if err != nil {
			return nil, err
		}
		v, err := varianceOf(nums, ddof)
		if err != nil {
			return nil, err
		}
		if root {
			v = math.Sqrt(v)
		}
		return numberResult(v)
	}
}

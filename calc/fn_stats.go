package calc

import (
	"math"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func statFunctions() []Function {
	return []Function{
		builtin("COUNT", RefArgs|RawErrors, fnCount),
		builtin("COUNTA", RefArgs|RawErrors, fnCountA),
		builtin("COUNTBLANK", RefArgs, fnCountBlank),
		builtin("AVERAGE", RefArgs, fnAverage),
		builtin("AVERAGEA", RefArgs, fnAverageA),
		builtin("MIN", RefArgs, extreme(numbers, math.Min)),
		builtin("MAX", RefArgs, extreme(numbers, math.Max)),
		builtin("MINA", RefArgs, extreme(allValues, math.Min)),
		builtin("MAXA", RefArgs, extreme(allValues, math.Max)),
		builtin("MEDIAN", RefArgs, fnMedian),
		builtin("MODE", RefArgs, fnMode),
		builtin("STDEV", RefArgs, variance(1, true)),
		builtin("STDEVP", RefArgs, variance(0, true)),
		builtin("VAR", RefArgs, variance(1, false)),
		builtin("VARP", RefArgs, variance(0, false)),
		builtin("LARGE", RefArgs, nth(true)),
		builtin("SMALL", RefArgs, nth(false)),
	}
}

// allValues is numbers for the A-suffixed functions: booleans read from
// cells count as 0 or 1 and text as 0
func allValues(c *Context, args []token.Token) ([]float64, error) {
	var out []float64
	for _, arg := range args {
		err := c.Each(arg, func(v token.Token, direct bool) error {
			switch x := v.(type) {
			case token.Error:
				return x
			case token.Blank, token.Missing:
				return nil
			case token.Str:
				if direct {
					n, err := toNumber(x)
					if err != nil {
						return err
					}
					out = append(out, n)
					return nil
				}
				out = append(out, 0)
				return nil
			}
			n, err := toNumber(v)
			if err != nil {
				return err
			}
			out = append(out, n)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fnCount(c *Context, args []token.Token) (token.Token, error) {
	count := 0
	for _, arg := range args {
		_ = c.Each(arg, func(v token.Token, direct bool) error {
			switch x := v.(type) {
			case token.Number, token.Integer:
				count++
			case token.Bool:
				if direct {
					count++
				}
			case token.Str:
				// numeric text only counts when written as an argument
				if _, ok := parseNumber(string(x)); ok && direct {
					count++
				}
			}
			return nil
		})
	}
	return token.Number(count), nil
}

func fnCountA(c *Context, args []token.Token) (token.Token, error) {
	count := 0
	for _, arg := range args {
		_ = c.Each(arg, func(v token.Token, _ bool) error {
			if !token.IsBlank(v) {
				count++
			}
			return nil
		})
	}
	return token.Number(count), nil
}

func fnCountBlank(c *Context, args []token.Token) (token.Token, error) {
	count := 0
	err := c.EachCell(args[0], func(_, _ int32, v token.Token) error {
		if token.IsBlank(v) || v == token.Str("") {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token.Number(count), nil
}

func fnAverage(c *Context, args []token.Token) (token.Token, error) {
	values, err := numbers(c, args)
	if err != nil {
		return nil, err
	}
	return mean(values)
}

func fnAverageA(c *Context, args []token.Token) (token.Token, error) {
	values, err := allValues(c, args)
	if err != nil {
		return nil, err
	}
	return mean(values)
}

func mean(values []float64) (token.Token, error) {
	if len(values) == 0 {
		return nil, token.NewError(token.ErrorDivZero, "average of no values")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return numberResult(sum / float64(len(values)))
}

// extreme builds MIN and MAX. with no values the result is 0.
func extreme(collect func(*Context, []token.Token) ([]float64, error), pick func(a, b float64) float64) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		values, err := collect(c, args)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return token.Number(0), nil
		}
		result := values[0]
		for _, v := range values[1:] {
			result = pick(result, v)
		}
		return token.Number(result), nil
	}
}

func fnMedian(c *Context, args []token.Token) (token.Token, error) {
	values, err := numbers(c, args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, token.NewError(token.ErrorNum, "MEDIAN has no numeric values")
	}
	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		// even count: average of two middle values
		return token.Number((values[mid-1] + values[mid]) / 2), nil
	}
	return token.Number(values[mid]), nil
}

func fnMode(c *Context, args []token.Token) (token.Token, error) {
	values, err := numbers(c, args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, token.NewError(token.ErrorNum, "MODE has no numeric values")
	}
	freq := make(map[float64]int)
	best, bestCount := 0.0, 0
	// ties go to the value seen first
	for _, v := range values {
		freq[v]++
		if freq[v] > bestCount {
			best, bestCount = v, freq[v]
		}
	}
	if bestCount < 2 {
		return nil, token.NewError(token.ErrorNA, "MODE: no value appears more than once")
	}
	return token.Number(best), nil
}

// variance builds VAR, VARP, STDEV and STDEVP. ddof is 1 for the sample
// forms and 0 for the population forms.
func variance(ddof int, root bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		values, err := numbers(c, args)
		if err != nil {
			return nil, err
		}
		v, err := varianceOf(values, ddof)
		if err != nil {
			return nil, err
		}
		if root {
			v = math.Sqrt(v)
		}
		return numberResult(v)
	}
}

func varianceOf(values []float64, ddof int) (float64, error) {
	n := len(values)
	if n-ddof <= 0 {
		return 0, token.NewError(token.ErrorDivZero, "not enough values")
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	m := sum / float64(n)
	sq := 0.0
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return sq / float64(n-ddof), nil
}

// nth builds LARGE and SMALL
func nth(largest bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		values, err := numbers(c, args[:1])
		if err != nil {
			return nil, err
		}
		k, err := c.Int(args[1])
		if err != nil {
			return nil, err
		}
		if k < 1 || k > len(values) {
			return nil, token.NewError(token.ErrorNum, c.Name+" position is out of range")
		}
		slices.Sort(values)
		if largest {
			return token.Number(values[len(values)-k]), nil
		}
		return token.Number(values[k-1]), nil
	}
}

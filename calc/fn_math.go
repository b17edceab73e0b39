package calc

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/vogtb/go-spreadsheet/packages/formula/criteria"
	"github.com/vogtb/go-spreadsheet/packages/formula/token"
)

func mathFunctions() []Function {
	return []Function{
		builtin("SUM", RefArgs, fnSum),
		builtin("PRODUCT", RefArgs, fnProduct),
		builtin("SUMPRODUCT", RefArgs, fnSumProduct),
		builtin("SUMIF", RefArgs, fnSumIf),
		builtin("COUNTIF", RefArgs, fnCountIf),
		builtin("ABS", 0, unaryMath(math.Abs)),
		builtin("INT", 0, unaryMath(math.Floor)),
		builtin("SIGN", 0, unaryMath(sign)),
		builtin("ROUND", 0, rounding(decimal.Decimal.Round)),
		builtin("ROUNDUP", 0, rounding(decimal.Decimal.RoundUp)),
		builtin("ROUNDDOWN", 0, rounding(decimal.Decimal.RoundDown)),
		builtin("TRUNC", 0, rounding(decimal.Decimal.RoundDown)),
		builtin("MOD", 0, fnMod),
		builtin("POWER", 0, fnPower),
		builtin("SQRT", 0, domainMath(math.Sqrt, func(x float64) bool { return x >= 0 })),
		builtin("EXP", 0, unaryMath(math.Exp)),
		builtin("LN", 0, domainMath(math.Log, positive)),
		builtin("LOG10", 0, domainMath(math.Log10, positive)),
		builtin("LOG", 0, fnLog),
		builtin("PI", 0, fnPi),
		builtin("FLOOR", 0, fnFloor),
		builtin("CEILING", 0, fnCeiling),
		builtin("FACT", 0, fnFact),
		builtin("COMBIN", 0, fnCombin),
		builtin("EVEN", 0, unaryMath(func(x float64) float64 { return roundAway(x, 2, 0) })),
		builtin("ODD", 0, unaryMath(func(x float64) float64 { return roundAway(x, 2, 1) })),
		builtin("SIN", 0, unaryMath(math.Sin)),
		builtin("COS", 0, unaryMath(math.Cos)),
		builtin("TAN", 0, unaryMath(math.Tan)),
		builtin("RADIANS", 0, unaryMath(func(x float64) float64 { return x * math.Pi / 180 })),
		builtin("DEGREES", 0, unaryMath(func(x float64) float64 { return x * 180 / math.Pi })),
		builtin("RAND", Volatile, fnRand),
	}
}

// numbers collects the numeric values of aggregate arguments. values
// written directly are coerced; values read from cells or arrays count
// only when they are numbers. errors stop the collection.
func numbers(c *Context, args []token.Token) ([]float64, error) {
	var out []float64
	for _, arg := range args {
		err := c.Each(arg, func(v token.Token, direct bool) error {
			if e, ok := v.(token.Error); ok {
				return e
			}
			if direct {
				n, err := toNumber(v)
				if err != nil {
					return err
				}
				out = append(out, n)
				return nil
			}
			if isNumber(v) {
				n, _ := toNumber(v)
				out = append(out, n)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fnSum(c *Context, args []token.Token) (token.Token, error) {
	values, err := numbers(c, args)
	if err != nil {
		return nil, err
	}
	sum := decimal.Zero
	for _, n := range values {
		sum = sum.Add(decimal.NewFromFloat(n))
	}
	return numberResult(sum.InexactFloat64())
}

func fnProduct(c *Context, args []token.Token) (token.Token, error) {
	values, err := numbers(c, args)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return token.Number(0), nil
	}
	product := decimal.NewFromInt(1)
	for _, n := range values {
		product = product.Mul(decimal.NewFromFloat(n))
	}
	return numberResult(product.InexactFloat64())
}

func fnSumProduct(c *Context, args []token.Token) (token.Token, error) {
	grids := make([]*token.Array, len(args))
	for i, arg := range args {
		g, err := c.Grid(arg)
		if err != nil {
			return nil, err
		}
		grids[i] = g
	}
	rows, cols := grids[0].Dims()
	for _, g := range grids[1:] {
		if r, cl := g.Dims(); r != rows || cl != cols {
			return nil, token.NewError(token.ErrorValue, "SUMPRODUCT arrays must have the same shape")
		}
	}
	sum := 0.0
	for i := range rows {
		for j := range cols {
			product := 1.0
			for _, g := range grids {
				v := g.At(i, j)
				if e, ok := v.(token.Error); ok {
					return nil, e
				}
				if !isNumber(v) {
					product = 0
					continue
				}
				n, _ := toNumber(v)
				product *= n
			}
			sum += product
		}
	}
	return numberResult(sum)
}

func fnSumIf(c *Context, args []token.Token) (token.Token, error) {
	values, err := c.Grid(args[0])
	if err != nil {
		return nil, err
	}
	crit := criteria.Parse(c.Scalar(args[1]))
	sums := values
	if Optional(args, 2) {
		if sums, err = c.Grid(args[2]); err != nil {
			return nil, err
		}
	}
	rows, cols := values.Dims()
	sum := 0.0
	for i := range rows {
		for j := range cols {
			if !crit.Match(values.At(i, j)) {
				continue
			}
			v := sums.At(i, j)
			if e, ok := v.(token.Error); ok {
				return nil, e
			}
			if isNumber(v) {
				n, _ := toNumber(v)
				sum += n
			}
		}
	}
	return numberResult(sum)
}

func fnCountIf(c *Context, args []token.Token) (token.Token, error) {
	crit := criteria.Parse(c.Scalar(args[1]))
	count := 0
	err := c.Each(args[0], func(v token.Token, _ bool) error {
		if crit.Match(v) {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token.Number(count), nil
}

// unaryMath lifts a float function of one argument
func unaryMath(f func(float64) float64) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		x, err := c.Number(args[0])
		if err != nil {
			return nil, err
		}
		return numberResult(f(x))
	}
}

// domainMath is unaryMath with #NUM! outside the function's domain
func domainMath(f func(float64) float64, inDomain func(float64) bool) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		x, err := c.Number(args[0])
		if err != nil {
			return nil, err
		}
		if !inDomain(x) {
			return nil, token.NewError(token.ErrorNum, c.Name+" argument is out of its domain")
		}
		return numberResult(f(x))
	}
}

func positive(x float64) bool { return x > 0 }

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// rounding builds ROUND and its variants on decimal arithmetic so that
// values like 2.675 round the way they are written
func rounding(round func(d decimal.Decimal, places int32) decimal.Decimal) Func {
	return func(c *Context, args []token.Token) (token.Token, error) {
		x, err := c.Number(args[0])
		if err != nil {
			return nil, err
		}
		places := 0
		if Optional(args, 1) {
			if places, err = c.Int(args[1]); err != nil {
				return nil, err
			}
		}
		d := round(decimal.NewFromFloat(x), int32(places))
		return numberResult(d.InexactFloat64())
	}
}

// roundAway rounds x away from zero to the next integer n with
// n mod step == rem
func roundAway(x, step, rem float64) float64 {
	s := sign(x)
	if s == 0 {
		s = 1
	}
	n := math.Ceil(math.Abs(x))
	for math.Mod(n, step) != rem {
		n++
	}
	return s * n
}

func fnMod(c *Context, args []token.Token) (token.Token, error) {
	n, err := c.Number(args[0])
	if err != nil {
		return nil, err
	}
	d, err := c.Number(args[1])
	if err != nil {
		return nil, err
	}
	if d == 0 {
		return nil, token.NewError(token.ErrorDivZero, "division by zero")
	}
	// the result takes the sign of the divisor
	return numberResult(n - d*math.Floor(n/d))
}

func fnPower(c *Context, args []token.Token) (token.Token, error) {
	return binary(token.OpPower, c.Scalar(args[0]), c.Scalar(args[1])), nil
}

func fnLog(c *Context, args []token.Token) (token.Token, error) {
	x, err := c.Number(args[0])
	if err != nil {
		return nil, err
	}
	base := 10.0
	if Optional(args, 1) {
		if base, err = c.Number(args[1]); err != nil {
			return nil, err
		}
	}
	if x <= 0 || base <= 0 {
		return nil, token.NewError(token.ErrorNum, "LOG needs positive arguments")
	}
	if base == 1 {
		return nil, token.NewError(token.ErrorDivZero, "LOG base 1")
	}
	return numberResult(math.Log(x) / math.Log(base))
}

func fnPi(c *Context, args []token.Token) (token.Token, error) {
	return token.Number(math.Pi), nil
}

func fnRand(c *Context, args []token.Token) (token.Token, error) {
	return token.Number(c.Random()), nil
}

// significance reads the number and multiple of FLOOR and CEILING
func significance(c *Context, args []token.Token) (x, sig float64, err error) {
	if x, err = c.Number(args[0]); err != nil {
		return 0, 0, err
	}
	if sig, err = c.Number(args[1]); err != nil {
		return 0, 0, err
	}
	if x > 0 && sig < 0 {
		return 0, 0, token.NewError(token.ErrorNum, "number and significance have different signs")
	}
	return x, sig, nil
}

func fnFloor(c *Context, args []token.Token) (token.Token, error) {
	x, sig, err := significance(c, args)
	if err != nil {
		return nil, err
	}
	if sig == 0 {
		if x == 0 {
			return token.Number(0), nil
		}
		return nil, token.NewError(token.ErrorDivZero, "FLOOR significance is 0")
	}
	return numberResult(math.Floor(x/sig) * sig)
}

func fnCeiling(c *Context, args []token.Token) (token.Token, error) {
	x, sig, err := significance(c, args)
	if err != nil {
		return nil, err
	}
	if sig == 0 {
		return token.Number(0), nil
	}
	return numberResult(math.Ceil(x/sig) * sig)
}

func fnFact(c *Context, args []token.Token) (token.Token, error) {
	n, err := c.Number(args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, token.NewError(token.ErrorNum, "FACT of a negative number")
	}
	result := 1.0
	for i := 2.0; i <= math.Trunc(n); i++ {
		result *= i
	}
	return numberResult(result)
}

func fnCombin(c *Context, args []token.Token) (token.Token, error) {
	n, err := c.Int(args[0])
	if err != nil {
		return nil, err
	}
	k, err := c.Int(args[1])
	if err != nil {
		return nil, err
	}
	if n < 0 || k < 0 || k > n {
		return nil, token.NewError(token.ErrorNum, "COMBIN arguments out of range")
	}
	k = min(k, n-k)
	result := 1.0
	for i := 1; i <= k; i++ {
		result = result * float64(n-k+i) / float64(i)
	}
	return numberResult(math.Round(result))
}

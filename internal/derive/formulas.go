package derive

import (
	"fmt"
	"math"

	"labfit/internal/fit"
	"labfit/internal/numfmt"
)

// Scale multiplies a column by a unit factor, e.g. mA to A
func Scale(name, input string, factor float64, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("%s * %g", input, factor),
		Row: func(r Row, _ Constants) (float64, error) {
			v, err := r.Get(input)
			return v * factor, err
		},
	}
}

// Ratio divides one column by another
func Ratio(name, num, den string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{num, den},
		Precision: p,
		Expr:      fmt.Sprintf("%s / %s", num, den),
		Row: func(r Row, _ Constants) (float64, error) {
			n, err := r.Get(num)
			if err != nil {
				return 0, err
			}
			d, err := r.Get(den)
			if err != nil {
				return 0, err
			}
			return Div(n, d)
		},
	}
}

// Product multiplies two columns and a constant. constant may be empty.
func Product(name, a, b, constant string, p numfmt.Precision) Formula {
	expr := fmt.Sprintf("%s * %s", a, b)
	if constant != "" {
		expr = fmt.Sprintf("%s * %s", constant, expr)
	}
	return Formula{
		Name:      name,
		Inputs:    []string{a, b},
		Precision: p,
		Expr:      expr,
		Row: func(r Row, c Constants) (float64, error) {
			va, err := r.Get(a)
			if err != nil {
				return 0, err
			}
			vb, err := r.Get(b)
			if err != nil {
				return 0, err
			}
			k := 1.0
			if constant != "" {
				if k, err = c.Get(constant); err != nil {
					return 0, err
				}
			}
			return k * va * vb, nil
		},
	}
}

// Offset subtracts a named constant from a column
func Offset(name, input, constant string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("%s - %s", input, constant),
		Row: func(r Row, c Constants) (float64, error) {
			v, err := r.Get(input)
			if err != nil {
				return 0, err
			}
			k, err := c.Get(constant)
			if err != nil {
				return 0, err
			}
			return v - k, nil
		},
	}
}

// MeanAbs averages the magnitudes of two readings taken with reversed
// polarity
func MeanAbs(name, a, b string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{a, b},
		Precision: p,
		Expr:      fmt.Sprintf("(|%s| + |%s|) / 2", a, b),
		Row: func(r Row, _ Constants) (float64, error) {
			va, err := r.Get(a)
			if err != nil {
				return 0, err
			}
			vb, err := r.Get(b)
			if err != nil {
				return 0, err
			}
			return (math.Abs(va) + math.Abs(vb)) / 2, nil
		},
	}
}

// RelativeError is |measured - reference| / |reference|
func RelativeError(name, measured, reference string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{measured, reference},
		Precision: p,
		Expr:      fmt.Sprintf("|%s - %s| / |%s|", measured, reference, reference),
		Row: func(r Row, _ Constants) (float64, error) {
			m, err := r.Get(measured)
			if err != nil {
				return 0, err
			}
			ref, err := r.Get(reference)
			if err != nil {
				return 0, err
			}
			return Div(math.Abs(m-ref), math.Abs(ref))
		},
	}
}

// CosSquaredDeg is cos²(θ) for an angle column in degrees
func CosSquaredDeg(name, input string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("cos^2(%s)", input),
		Row: func(r Row, _ Constants) (float64, error) {
			deg, err := r.Get(input)
			if err != nil {
				return 0, err
			}
			c := math.Cos(deg * math.Pi / 180)
			return c * c, nil
		},
	}
}

// Reciprocal is 1 / x
func Reciprocal(name, input string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("1 / %s", input),
		Row: func(r Row, _ Constants) (float64, error) {
			v, err := r.Get(input)
			if err != nil {
				return 0, err
			}
			return Div(1, v)
		},
	}
}

// InverseSquare is 1 / x²
func InverseSquare(name, input string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("1 / %s^2", input),
		Row: func(r Row, _ Constants) (float64, error) {
			v, err := r.Get(input)
			if err != nil {
				return 0, err
			}
			return Div(1, v*v)
		},
	}
}

// WavelengthToFrequency converts a wavelength in nm to a frequency in Hz
// using the speed of light constant named c
func WavelengthToFrequency(name, input, c string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("%s / (%s * 1e-9)", c, input),
		Row: func(r Row, consts Constants) (float64, error) {
			nm, err := r.Get(input)
			if err != nil {
				return 0, err
			}
			speed, err := consts.Get(c)
			if err != nil {
				return 0, err
			}
			return Div(speed, nm*1e-9)
		},
	}
}

// Broadcast fills a column with one value computed from constants
func Broadcast(name, expr string, p numfmt.Precision, fn BroadcastFunc) Formula {
	return Formula{
		Name:      name,
		Precision: p,
		Expr:      expr,
		Broadcast: fn,
	}
}

// RowSlope fits a line through the values of a column family in one row
// against their 1-based position, skipping missing cells
func RowSlope(name, prefix string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Precision: p,
		Expr:      fmt.Sprintf("slope(%s*)", prefix),
		Row: func(r Row, _ Constants) (float64, error) {
			ys := r.Family(prefix)
			xs := make([]float64, len(ys))
			for i := range xs {
				xs[i] = float64(i + 1)
			}
			line, err := fit.Linear(xs, ys)
			if err != nil {
				return 0, err
			}
			return line.Slope, nil
		},
	}
}

// ShiftToMin moves a column so that its smallest value becomes zero
func ShiftToMin(name, input string, p numfmt.Precision) Formula {
	return Formula{
		Name:      name,
		Inputs:    []string{input},
		Precision: p,
		Expr:      fmt.Sprintf("%s - min(%s)", input, input),
		Row: func(r Row, _ Constants) (float64, error) {
			col, err := r.Column(input)
			if err != nil {
				return 0, err
			}
			lo := math.Inf(1)
			for _, v := range col {
				lo = math.Min(lo, v)
			}
			return col[r.Index()] - lo, nil
		},
	}
}

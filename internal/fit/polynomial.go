package fit

import (
	"fmt"
	"math"

	apperrors "labfit/internal/errors"
)

// Poly is a least squares polynomial. Coefficients[i] multiplies x^i.
type Poly struct {
	Coefficients []float64
	RSquared     float64
	N            int
}

// Degree returns the polynomial degree
func (p Poly) Degree() int { return len(p.Coefficients) - 1 }

// Predict evaluates the polynomial at x by Horner's rule
func (p Poly) Predict(x float64) float64 {
	var y float64
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*x + p.Coefficients[i]
	}
	return y
}

// Polynomial fits a polynomial of the given degree. x is centred and
// scaled to [-1, 1] before the normal equations are formed, which keeps
// degree 6 to 8 fits well conditioned; the coefficients are then expanded
// back into powers of the raw x.
func Polynomial(x, y []float64, degree int) (Poly, error) {
	if degree < 1 {
		return Poly{}, apperrors.NewNumericError(fmt.Sprintf("degree must be at least 1, got %d", degree), nil)
	}
	xs, ys, err := pairs(x, y)
	if err != nil {
		return Poly{}, err
	}
	n := len(xs)
	if n < degree+1 {
		return Poly{}, apperrors.NewInsufficientDataError(degree+1, n)
	}

	lo, hi := xs[0], xs[0]
	for _, v := range xs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return Poly{}, apperrors.NewNumericError("all x values are equal", apperrors.ErrDegenerate)
	}
	shift := (hi + lo) / 2
	scale := (hi - lo) / 2

	m := degree + 1
	a := make([][]float64, m)
	for i := range a {
		a[i] = make([]float64, m)
	}
	b := make([]float64, m)
	pows := make([]float64, 2*m-1)
	for k := range xs {
		t := (xs[k] - shift) / scale
		p := 1.0
		for j := range pows {
			pows[j] = p
			p *= t
		}
		for i := 0; i < m; i++ {
			b[i] += pows[i] * ys[k]
			for j := 0; j < m; j++ {
				a[i][j] += pows[i+j]
			}
		}
	}

	scaled, err := solve(a, b)
	if err != nil {
		return Poly{}, err
	}
	coeffs := expand(scaled, shift, scale)

	poly := Poly{Coefficients: coeffs, N: n}
	my := mean(ys)
	var ssRes, ssTot float64
	for k := range xs {
		r := ys[k] - poly.Predict(xs[k])
		ssRes += r * r
		d := ys[k] - my
		ssTot += d * d
	}
	poly.RSquared = rSquared(ssRes, ssTot)
	return poly, nil
}

// solve solves a·x = b by Gaussian elimination with partial pivoting
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	aug := make([][]float64, n)
	for i := range a {
		aug[i] = append(append(make([]float64, 0, n+1), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs == 0 {
			return nil, apperrors.NewNumericError("normal equations are singular", apperrors.ErrDegenerate)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		for r := col + 1; r < n; r++ {
			factor := aug[r][col] / aug[col][col]
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := aug[i][n]
		for j := i + 1; j < n; j++ {
			sum -= aug[i][j] * x[j]
		}
		x[i] = sum / aug[i][i]
	}
	return x, nil
}

// expand rewrites sum c_i t^i with t = (x-shift)/scale as sum d_j x^j
func expand(c []float64, shift, scale float64) []float64 {
	out := make([]float64, len(c))
	// basis holds the coefficients of t^i in powers of x
	basis := []float64{1}
	for i, ci := range c {
		for j, bj := range basis {
			out[j] += ci * bj
		}
		if i == len(c)-1 {
			break
		}
		next := make([]float64, len(basis)+1)
		for j, bj := range basis {
			next[j] -= bj * shift / scale
			next[j+1] += bj / scale
		}
		basis = next
	}
	return out
}

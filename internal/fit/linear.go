// Package fit implements the least squares models used by the experiment
// reports: straight lines, power laws and polynomials.
//
// All results keep full float64 precision. Pairs where either coordinate is
// NaN are dropped before fitting, which is how sparse columns are skipped.
package fit

import (
	"fmt"
	"math"

	apperrors "labfit/internal/errors"
)

// Line is an ordinary least squares line y = Slope*x + Intercept
type Line struct {
	Slope           float64
	Intercept       float64
	RSquared        float64
	R               float64
	SlopeStdErr     float64
	InterceptStdErr float64
	N               int
}

// Predict evaluates the line at x
func (l Line) Predict(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// Linear fits y = a*x + b by closed-form OLS. It needs at least two
// finite pairs and some spread in x.
func Linear(x, y []float64) (Line, error) {
	xs, ys, err := pairs(x, y)
	if err != nil {
		return Line{}, err
	}
	n := len(xs)
	if n < 2 {
		return Line{}, apperrors.NewInsufficientDataError(2, n)
	}

	mx, my := mean(xs), mean(ys)
	var sxx, sxy, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return Line{}, apperrors.NewNumericError("all x values are equal", apperrors.ErrDegenerate).
			WithContext("x", mx)
	}

	slope := sxy / sxx
	intercept := my - slope*mx

	var ssRes float64
	for i := range xs {
		r := ys[i] - (slope*xs[i] + intercept)
		ssRes += r * r
	}

	line := Line{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  rSquared(ssRes, syy),
		N:         n,
	}
	if syy > 0 {
		line.R = sxy / math.Sqrt(sxx*syy)
	} else if ssRes == 0 {
		line.R = 1
	}
	if n > 2 {
		s2 := ssRes / float64(n-2)
		line.SlopeStdErr = math.Sqrt(s2 / sxx)
		var sumX2 float64
		for _, v := range xs {
			sumX2 += v * v
		}
		line.InterceptStdErr = math.Sqrt(s2 * sumX2 / (float64(n) * sxx))
	}
	return line, nil
}

// rSquared is 1 - SSres/SStot. A constant response is explained perfectly
// by a zero residual and not at all otherwise.
func rSquared(ssRes, ssTot float64) float64 {
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// pairs drops positions where either value is NaN. Infinities are
// rejected outright since a loaded table never contains them.
func pairs(x, y []float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, apperrors.NewNumericError(fmt.Sprintf("x has %d values, y has %d", len(x), len(y)), nil)
	}
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		if math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			return nil, nil, apperrors.NewNumericError(fmt.Sprintf("point %d is not finite", i+1), apperrors.ErrNonFinite)
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys, nil
}

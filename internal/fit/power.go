package fit

import (
	"fmt"
	"math"

	apperrors "labfit/internal/errors"
)

// PowerLaw is y = Coefficient * x^Exponent. RSquared is measured in log
// space, where the fit is linear.
type PowerLaw struct {
	Exponent    float64
	Coefficient float64
	RSquared    float64
	N           int
}

// Predict evaluates the power law at x
func (p PowerLaw) Predict(x float64) float64 {
	return p.Coefficient * math.Pow(x, p.Exponent)
}

// Power fits ln y = ln a + b ln x. Every x and y must be positive.
func Power(x, y []float64) (PowerLaw, error) {
	xs, ys, err := pairs(x, y)
	if err != nil {
		return PowerLaw{}, err
	}

	lx := make([]float64, len(xs))
	ly := make([]float64, len(ys))
	for i := range xs {
		if xs[i] <= 0 || ys[i] <= 0 {
			return PowerLaw{}, apperrors.NewNumericError(
				fmt.Sprintf("point %d (%g, %g) cannot be fitted in log space", i+1, xs[i], ys[i]),
				apperrors.ErrNonPositive).
				WithContext("x", xs[i]).
				WithContext("y", ys[i])
		}
		lx[i] = math.Log(xs[i])
		ly[i] = math.Log(ys[i])
	}

	line, err := Linear(lx, ly)
	if err != nil {
		return PowerLaw{}, err
	}
	return PowerLaw{
		Exponent:    line.Slope,
		Coefficient: math.Exp(line.Intercept),
		RSquared:    line.RSquared,
		N:           line.N,
	}, nil
}

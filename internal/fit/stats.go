package fit

import (
	"math"

	apperrors "labfit/internal/errors"
)

// Mean returns the arithmetic mean of the finite values, ignoring NaN
func Mean(values []float64) (float64, error) {
	xs := finite(values)
	if len(xs) == 0 {
		return 0, apperrors.NewInsufficientDataError(1, 0)
	}
	return mean(xs), nil
}

// SampleStdDev is the n-1 standard deviation, ignoring NaN
func SampleStdDev(values []float64) (float64, error) {
	xs := finite(values)
	if len(xs) < 2 {
		return 0, apperrors.NewInsufficientDataError(2, len(xs))
	}
	m := mean(xs)
	var ss float64
	for _, v := range xs {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1)), nil
}

// TypeA is the type A standard uncertainty of the mean, s/sqrt(n)
func TypeA(values []float64) (float64, error) {
	s, err := SampleStdDev(values)
	if err != nil {
		return 0, err
	}
	return s / math.Sqrt(float64(len(finite(values)))), nil
}

// Diff returns successive differences v[i+1] - v[i]
func Diff(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := range out {
		out[i] = values[i+1] - values[i]
	}
	return out
}

// MaxAbs returns the index and value of the element with the largest
// magnitude, ignoring NaN
func MaxAbs(values []float64) (int, float64, error) {
	best := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if best < 0 || math.Abs(v) > math.Abs(values[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, 0, apperrors.NewInsufficientDataError(1, 0)
	}
	return best, values[best], nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs))
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

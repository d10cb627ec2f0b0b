// Package signal holds the curve helpers used by peak based experiments:
// uniform resampling, FFT low-pass smoothing and peak detection.
package signal

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	apperrors "labfit/internal/errors"
)

// Curve is a sampled y(x) with strictly increasing x
type Curve struct {
	X []float64
	Y []float64
}

// Len returns the number of samples
func (c Curve) Len() int { return len(c.X) }

// Resample interpolates c linearly onto n evenly spaced points spanning
// the same x range
func Resample(c Curve, n int) (Curve, error) {
	if len(c.X) != len(c.Y) {
		return Curve{}, apperrors.NewNumericError(fmt.Sprintf("x has %d values, y has %d", len(c.X), len(c.Y)), nil)
	}
	if len(c.X) < 2 || n < 2 {
		return Curve{}, apperrors.NewInsufficientDataError(2, min(len(c.X), n))
	}
	for i := 1; i < len(c.X); i++ {
		if !(c.X[i] > c.X[i-1]) {
			return Curve{}, apperrors.NewNumericError(
				fmt.Sprintf("x must be strictly increasing, sample %d is %g after %g", i+1, c.X[i], c.X[i-1]),
				apperrors.ErrDegenerate)
		}
	}

	lo, hi := c.X[0], c.X[len(c.X)-1]
	step := (hi - lo) / float64(n-1)
	out := Curve{X: make([]float64, n), Y: make([]float64, n)}

	j := 0
	for i := 0; i < n; i++ {
		x := lo + float64(i)*step
		if i == n-1 {
			x = hi
		}
		for j < len(c.X)-2 && c.X[j+1] < x {
			j++
		}
		t := (x - c.X[j]) / (c.X[j+1] - c.X[j])
		out.X[i] = x
		out.Y[i] = c.Y[j] + t*(c.Y[j+1]-c.Y[j])
	}
	return out, nil
}

// LowPass removes frequency content above cutoff, given as a fraction of
// the Nyquist frequency in (0, 1]. The samples are mirrored before the
// transform so the ends do not ring against each other.
func LowPass(y []float64, cutoff float64) ([]float64, error) {
	if cutoff <= 0 || cutoff > 1 {
		return nil, apperrors.NewNumericError(fmt.Sprintf("cutoff %g outside (0, 1]", cutoff), nil)
	}
	n := len(y)
	if n < 2 {
		return nil, apperrors.NewInsufficientDataError(2, n)
	}

	mirrored := make([]float64, 2*n)
	for i, v := range y {
		mirrored[i] = v
		mirrored[2*n-1-i] = v
	}

	spectrum := fft.FFTReal(mirrored)
	m := len(spectrum)
	keep := int(math.Ceil(cutoff * float64(m/2)))
	for k := keep + 1; k <= m-keep-1; k++ {
		spectrum[k] = 0
	}

	filtered := fft.IFFT(spectrum)
	out := make([]float64, n)
	for i := range out {
		out[i] = real(filtered[i])
	}
	return out, nil
}

// Smooth resamples c onto n points and low-pass filters the result
func Smooth(c Curve, n int, cutoff float64) (Curve, error) {
	uniform, err := Resample(c, n)
	if err != nil {
		return Curve{}, err
	}
	y, err := LowPass(uniform.Y, cutoff)
	if err != nil {
		return Curve{}, err
	}
	uniform.Y = y
	return uniform, nil
}

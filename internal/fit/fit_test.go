package fit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "labfit/internal/errors"
)

func TestLinear_OhmScenario(t *testing.T) {
	line, err := Linear([]float64{0.01, 0.02, 0.03}, []float64{1, 2, 3})
	require.NoError(t, err)

	assert.InDelta(t, 100.0, line.Slope, 1e-9)
	assert.InDelta(t, 0.0, line.Intercept, 1e-9)
	assert.InDelta(t, 1.0, line.RSquared, 1e-12)
	assert.InDelta(t, 1.0, line.R, 1e-12)
	assert.Equal(t, 3, line.N)
	assert.InDelta(t, 5.0, line.Predict(0.05), 1e-9)
}

func TestLinear_RecoversNoisyLine(t *testing.T) {
	const a, b = 2.5, -1.2
	rng := rand.New(rand.NewSource(7))

	x := make([]float64, 200)
	clean := make([]float64, len(x))
	noisy := make([]float64, len(x))
	for i := range x {
		x[i] = float64(i) / 10
		clean[i] = a*x[i] + b
		noisy[i] = clean[i] + rng.NormFloat64()*0.5
	}

	line, err := Linear(x, noisy)
	require.NoError(t, err)
	assert.InDelta(t, a, line.Slope, 0.05)
	assert.InDelta(t, b, line.Intercept, 0.3)
	assert.Greater(t, line.RSquared, 0.98)
	assert.Greater(t, line.SlopeStdErr, 0.0)
	assert.Greater(t, line.InterceptStdErr, 0.0)

	exact, err := Linear(x, clean)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, exact.RSquared, 1e-12)
	assert.Greater(t, exact.RSquared, line.RSquared)
}

func TestLinear_Errors(t *testing.T) {
	tests := []struct {
		name     string
		x, y     []float64
		sentinel error
	}{
		{"empty", nil, nil, apperrors.ErrInsufficientData},
		{"one row", []float64{1}, []float64{2}, apperrors.ErrInsufficientData},
		{"nan leaves one", []float64{1, math.NaN()}, []float64{2, 3}, apperrors.ErrInsufficientData},
		{"constant x", []float64{1, 1, 1}, []float64{1, 2, 3}, apperrors.ErrDegenerate},
		{"infinite", []float64{1, math.Inf(1)}, []float64{1, 2}, apperrors.ErrNonFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Linear(tt.x, tt.y)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestLinear_ConstantResponse(t *testing.T) {
	line, err := Linear([]float64{1, 2, 3}, []float64{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, 0.0, line.Slope)
	assert.Equal(t, 1.0, line.RSquared)
}

func TestPower_InverseSquareRoot(t *testing.T) {
	x := []float64{1, 4, 9, 16, 25}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 3 / math.Sqrt(v)
	}

	p, err := Power(x, y)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, p.Exponent, 1e-12)
	assert.InDelta(t, 3.0, p.Coefficient, 1e-12)
	assert.InDelta(t, 1.0, p.RSquared, 1e-12)
	assert.InDelta(t, 1.0, p.Predict(9), 1e-12)
}

func TestPower_NonPositive(t *testing.T) {
	_, err := Power([]float64{1, 0, 2}, []float64{1, 2, 3})
	assert.ErrorIs(t, err, apperrors.ErrNonPositive)

	_, err = Power([]float64{1, 2}, []float64{1, -2})
	assert.ErrorIs(t, err, apperrors.ErrNonPositive)
}

func TestPolynomial_RecoversCubic(t *testing.T) {
	want := []float64{0.5, -2, 0.3, 0.01}
	x := make([]float64, 30)
	y := make([]float64, len(x))
	for i := range x {
		x[i] = float64(i) - 10
		y[i] = Poly{Coefficients: want}.Predict(x[i])
	}

	p, err := Polynomial(x, y, 3)
	require.NoError(t, err)
	require.Equal(t, 3, p.Degree())
	for i := range want {
		assert.InDelta(t, want[i], p.Coefficients[i], 1e-7)
	}
	assert.InDelta(t, 1.0, p.RSquared, 1e-12)
}

func TestPolynomial_HighDegreeOffsetAxis(t *testing.T) {
	// positions along a coil axis, far from zero in raw units
	x := make([]float64, 21)
	y := make([]float64, len(x))
	for i := range x {
		x[i] = 100 + float64(i)
		d := x[i] - 110
		y[i] = 2.0 - 0.001*d*d + 1e-6*d*d*d*d
	}

	p, err := Polynomial(x, y, 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.RSquared, 1e-9)
	assert.InDelta(t, 2.0, p.Predict(110), 1e-6)
}

func TestPolynomial_Errors(t *testing.T) {
	_, err := Polynomial([]float64{1, 2, 3}, []float64{1, 2, 3}, 3)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)

	_, err = Polynomial([]float64{1, 1, 1}, []float64{1, 2, 3}, 1)
	assert.ErrorIs(t, err, apperrors.ErrDegenerate)

	_, err = Polynomial([]float64{1, 2}, []float64{1, 2}, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
}

func TestStats(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9, math.NaN()}

	m, err := Mean(values)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, m, 1e-12)

	s, err := SampleStdDev(values)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(32.0/7), s, 1e-12)

	u, err := TypeA(values)
	require.NoError(t, err)
	assert.InDelta(t, s/math.Sqrt(8), u, 1e-12)

	assert.Equal(t, []float64{2, 0, 0, 1, 0, 2, 2}, Diff([]float64{2, 4, 4, 4, 5, 5, 7, 9}))
	assert.Nil(t, Diff([]float64{1}))

	i, v, err := MaxAbs([]float64{1, -3, math.NaN(), 2})
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, -3.0, v)

	_, err = Mean([]float64{math.NaN()})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
	_, err = SampleStdDev([]float64{1})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

package signal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "labfit/internal/errors"
)

func TestResample(t *testing.T) {
	c := Curve{X: []float64{0, 1, 3}, Y: []float64{0, 10, 30}}

	out, err := Resample(c, 7)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 3}, out.X, 1e-12)
	assert.InDeltaSlice(t, []float64{0, 5, 10, 15, 20, 25, 30}, out.Y, 1e-12)
}

func TestResample_Errors(t *testing.T) {
	_, err := Resample(Curve{X: []float64{1}, Y: []float64{1}}, 10)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)

	_, err = Resample(Curve{X: []float64{0, 2, 1}, Y: []float64{1, 2, 3}}, 10)
	assert.ErrorIs(t, err, apperrors.ErrDegenerate)

	_, err = Resample(Curve{X: []float64{0, 1}, Y: []float64{1}}, 10)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
}

func TestLowPass_RemovesHighFrequency(t *testing.T) {
	const n = 512
	clean := make([]float64, n)
	noisy := make([]float64, n)
	for i := range clean {
		x := float64(i) / n
		clean[i] = math.Sin(2 * math.Pi * 2 * x)
		noisy[i] = clean[i] + 0.3*math.Sin(2*math.Pi*100*x)
	}

	out, err := LowPass(noisy, 0.1)
	require.NoError(t, err)
	require.Len(t, out, n)

	// edges carry some leakage from the mirrored extension
	var worst float64
	for i := n / 8; i < n-n/8; i++ {
		worst = math.Max(worst, math.Abs(out[i]-clean[i]))
	}
	assert.Less(t, worst, 0.05)
}

func TestLowPass_FullBandIsIdentity(t *testing.T) {
	y := []float64{1, 3, 2, 5, 4}
	out, err := LowPass(y, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, y, out, 1e-9)
}

func TestLowPass_Errors(t *testing.T) {
	_, err := LowPass([]float64{1, 2}, 0)
	assert.Error(t, err)
	_, err = LowPass([]float64{1}, 0.5)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestFindPeaks(t *testing.T) {
	y := []float64{0, 5, 1, 3, 3, 3, 0, 8, 2, 2.5, 2}

	peaks := FindPeaks(y, PeakOptions{})
	require.Len(t, peaks, 4)
	assert.Equal(t, []int{1, 4, 7, 9}, []int{peaks[0].Index, peaks[1].Index, peaks[2].Index, peaks[3].Index})
	assert.InDelta(t, 5.0, peaks[0].Prominence, 1e-12)
	assert.InDelta(t, 2.0, peaks[1].Prominence, 1e-12)
	assert.InDelta(t, 6.0, peaks[2].Prominence, 1e-12)
	assert.InDelta(t, 0.5, peaks[3].Prominence, 1e-12)

	filtered := FindPeaks(y, PeakOptions{MinProminence: 1, MinHeight: 4})
	require.Len(t, filtered, 2)
	assert.Equal(t, 1, filtered[0].Index)
	assert.Equal(t, 7, filtered[1].Index)
}

func TestFindPeaks_EdgesAreNotPeaks(t *testing.T) {
	assert.Empty(t, FindPeaks([]float64{5, 1, 2, 3}, PeakOptions{}))
	assert.Empty(t, FindPeaks(nil, PeakOptions{}))
}

func TestHighest(t *testing.T) {
	peaks := []Peak{{Index: 0, Value: 1}, {Index: 1, Value: 9}, {Index: 2, Value: 4}}
	top := Highest(peaks, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 1, top[0].Index)
	assert.Equal(t, 2, top[1].Index)
	assert.Len(t, Highest(peaks, 5), 3)
}

func TestSmooth_FranckHertzLikeCurve(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var c Curve
	for u := 0.0; u <= 60; u += 0.5 {
		c.X = append(c.X, u)
		c.Y = append(c.Y, 100+10*u+200*math.Cos(2*math.Pi*(u-8)/5)+rng.NormFloat64()*5)
	}

	smooth, err := Smooth(c, 2000, 0.02)
	require.NoError(t, err)
	peaks := FindPeaks(smooth.Y, PeakOptions{MinProminence: 100})
	require.GreaterOrEqual(t, len(peaks), 10)

	for i := 1; i < len(peaks); i++ {
		spacing := smooth.X[peaks[i].Index] - smooth.X[peaks[i-1].Index]
		assert.InDelta(t, 5.0, spacing, 0.3)
	}
}

package signal

import (
	"math"
	"sort"
)

// Peak is a local maximum of a sampled curve
type Peak struct {
	Index      int
	Value      float64
	Prominence float64
}

// PeakOptions filters the local maxima returned by FindPeaks. Zero values
// disable a filter.
type PeakOptions struct {
	MinHeight     float64
	MinProminence float64
}

// FindPeaks returns the local maxima of y in index order. A flat top
// counts once, at its middle sample. Prominence is the height of the peak
// above the higher of the two lowest points reached before meeting a
// higher sample (or the edge) on either side.
func FindPeaks(y []float64, opts PeakOptions) []Peak {
	var peaks []Peak
	i := 1
	for i < len(y)-1 {
		if !(y[i] > y[i-1]) {
			i++
			continue
		}
		// walk across a plateau
		j := i
		for j+1 < len(y) && y[j+1] == y[i] {
			j++
		}
		if j+1 < len(y) && y[j+1] < y[i] {
			mid := (i + j) / 2
			p := Peak{Index: mid, Value: y[mid], Prominence: prominence(y, i, j)}
			if keepPeak(p, opts) {
				peaks = append(peaks, p)
			}
		}
		i = j + 1
	}
	return peaks
}

func keepPeak(p Peak, opts PeakOptions) bool {
	if opts.MinHeight != 0 && p.Value < opts.MinHeight {
		return false
	}
	if opts.MinProminence != 0 && p.Prominence < opts.MinProminence {
		return false
	}
	return true
}

// prominence of the plateau y[left..right]
func prominence(y []float64, left, right int) float64 {
	top := y[left]

	leftMin := top
	for k := left - 1; k >= 0 && y[k] <= top; k-- {
		leftMin = math.Min(leftMin, y[k])
	}
	rightMin := top
	for k := right + 1; k < len(y) && y[k] <= top; k++ {
		rightMin = math.Min(rightMin, y[k])
	}
	return top - math.Max(leftMin, rightMin)
}

// Highest returns the n peaks with the largest values, highest first
func Highest(peaks []Peak, n int) []Peak {
	sorted := append([]Peak(nil), peaks...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Value > sorted[b].Value })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

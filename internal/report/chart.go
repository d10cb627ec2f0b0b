package report

import (
	"bytes"
	"fmt"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"labfit/internal/numfmt"
)

// SeriesStyle tells series apart by shape rather than colour alone
type SeriesStyle int

const (
	// Marker draws points only
	Marker SeriesStyle = iota
	// Line draws a solid line without points
	Line
	// Dashed draws a dashed line
	Dashed
	// Dotted draws a dotted line
	Dotted
	// LineMarker draws a solid line through visible points
	LineMarker
	// LargeMarker draws points only, larger, for highlighted samples
	LargeMarker
)

// ImageFormat selects the chart encoding
type ImageFormat string

const (
	PNG ImageFormat = "png"
	SVG ImageFormat = "svg"
)

// Series is one plotted data set
type Series struct {
	Name  string
	X     []float64
	Y     []float64
	Style SeriesStyle
}

// Axis describes one chart axis. Major and Minor are tick and grid steps in
// data units; zero picks a nice step from the data span.
type Axis struct {
	Quantity string
	Unit     string
	Major    float64
	Minor    float64
	// Min and Max pin the range when Max > Min
	Min float64
	Max float64
}

// Label renders the axis title as "quantity (unit)"
func (a Axis) Label() string {
	if a.Unit == "" {
		return a.Quantity
	}
	return fmt.Sprintf("%s (%s)", a.Quantity, a.Unit)
}

// ChartSpec is a complete chart description
type ChartSpec struct {
	Title  string
	X      Axis
	Y      Axis
	Series []Series
	Width  int
	Height int
}

// maxTicks bounds the number of major ticks before falling back to a
// nice step
const maxTicks = 40

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("17becf"),
}

var (
	gridMajor = chart.Style{StrokeColor: drawing.ColorFromHex("b0b0b0"), StrokeWidth: 1.0}
	gridMinor = chart.Style{StrokeColor: drawing.ColorFromHex("e0e0e0"), StrokeWidth: 0.5, StrokeDashArray: []float64{2, 2}}
)

// RenderChart draws spec as a PNG or SVG image
func RenderChart(spec ChartSpec, format ImageFormat) ([]byte, error) {
	var xs, ys []float64
	var series []chart.Series
	for i, s := range spec.Series {
		if len(s.X) != len(s.Y) {
			return nil, fmt.Errorf("series %q has %d x and %d y values", s.Name, len(s.X), len(s.Y))
		}
		xv, yv := finitePairs(s.X, s.Y)
		if len(xv) == 0 {
			continue
		}
		xs = append(xs, xv...)
		ys = append(ys, yv...)
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xv,
			YValues: yv,
			Style:   seriesStyle(s.Style, palette[i%len(palette)]),
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("chart %q has no data to plot", spec.Title)
	}

	xRange, xTicks, xGrid := axisLayout(spec.X, xs)
	yRange, yTicks, yGrid := axisLayout(spec.Y, ys)

	graph := chart.Chart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           spec.X.Label(),
			Range:          xRange,
			Ticks:          xTicks,
			GridLines:      xGrid,
			GridMajorStyle: gridMajor,
			GridMinorStyle: gridMinor,
		},
		YAxis: chart.YAxis{
			Name:           spec.Y.Label(),
			Range:          yRange,
			Ticks:          yTicks,
			GridLines:      yGrid,
			GridMajorStyle: gridMajor,
			GridMinorStyle: gridMinor,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	provider := chart.PNG
	if format == SVG {
		provider = chart.SVG
	}

	var buf bytes.Buffer
	if err := graph.Render(provider, &buf); err != nil {
		return nil, fmt.Errorf("render %s chart: %w", format, err)
	}
	return buf.Bytes(), nil
}

func seriesStyle(style SeriesStyle, color drawing.Color) chart.Style {
	switch style {
	case Line:
		return chart.Style{StrokeColor: color, StrokeWidth: 2}
	case Dashed:
		return chart.Style{StrokeColor: color, StrokeWidth: 2, StrokeDashArray: []float64{8, 4}}
	case Dotted:
		return chart.Style{StrokeColor: color, StrokeWidth: 2, StrokeDashArray: []float64{2, 3}}
	case LineMarker:
		return chart.Style{StrokeColor: color, StrokeWidth: 1.5, DotColor: color, DotWidth: 3}
	case LargeMarker:
		return chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1, DotColor: color, DotWidth: 7}
	default:
		// a transparent stroke leaves only the dots
		return chart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 1, DotColor: color, DotWidth: 4}
	}
}

// axisLayout derives the range, labelled major ticks and the major and
// minor grid lines for one axis
func axisLayout(axis Axis, values []float64) (*chart.ContinuousRange, []chart.Tick, []chart.GridLine) {
	lo, hi := axis.Min, axis.Max
	if !(hi > lo) {
		lo, hi = bounds(values)
	}

	major := axis.Major
	if major <= 0 || (hi-lo)/major > maxTicks {
		major = niceStep(hi-lo, 8)
	}
	minor := axis.Minor
	if minor <= 0 || minor > major || (hi-lo)/minor > maxTicks*10 {
		minor = major / 5
	}

	if !(axis.Max > axis.Min) {
		lo = math.Floor(lo/major) * major
		hi = math.Ceil(hi/major) * major
	}

	precision := numfmt.Fixed(decimalsFor(major))
	var ticks []chart.Tick
	var grid []chart.GridLine
	for i := 0; ; i++ {
		v := lo + float64(i)*major
		if v > hi+major*1e-9 {
			break
		}
		ticks = append(ticks, chart.Tick{Value: v, Label: numfmt.Format(v, precision)})
		grid = append(grid, chart.GridLine{Value: v})
	}
	for i := 0; ; i++ {
		v := lo + float64(i)*minor
		if v > hi+minor*1e-9 {
			break
		}
		if !onStep(v-lo, major) {
			grid = append(grid, chart.GridLine{Value: v, IsMinor: true})
		}
	}

	return &chart.ContinuousRange{Min: lo, Max: hi}, ticks, grid
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return lo - pad, hi + pad
	}
	return lo, hi
}

// niceStep picks a 1, 2, 2.5 or 5 times power of ten step giving about n
// intervals over span
func niceStep(span float64, n int) float64 {
	if span <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(span/float64(n))))
	best := mag
	bestScore := math.MaxFloat64
	for _, c := range []float64{1, 2, 2.5, 5, 10} {
		step := c * mag
		score := math.Abs(span/step - float64(n))
		if score < bestScore {
			bestScore = score
			best = step
		}
	}
	return best
}

// decimalsFor returns the decimal places needed to print multiples of step
func decimalsFor(step float64) int {
	for d := 0; d < 10; d++ {
		scaled := step * math.Pow(10, float64(d))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9*math.Max(1, scaled) {
			return d
		}
	}
	return 10
}

func onStep(offset, step float64) bool {
	r := math.Mod(offset, step)
	return r < step*1e-6 || step-r < step*1e-6
}

func finitePairs(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

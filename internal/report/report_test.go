package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "labfit/internal/errors"
	"labfit/internal/fit"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
)

func ohmTable(t *testing.T) *measurement.Table {
	t.Helper()
	table, err := measurement.ReadCSV(strings.NewReader("U(V),I(mA),note\n1.0,10,a\n2.0,20,b\n3.0,30,c\n"),
		measurement.Columns("U(V)", "I(mA)"))
	require.NoError(t, err)
	require.NoError(t, table.AddDerived("I(A)", []float64{0.01, 0.02, 0.03}, numfmt.Fixed(4)))
	require.NoError(t, table.AddDerived("R(ohm)", []float64{100, 100, 100.004}, numfmt.Fixed(2)))
	return table
}

func TestTableCSV(t *testing.T) {
	data, err := TableCSV(ohmTable(t))
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, utf8BOM))
	want := "U(V),I(mA),note,I(A),R(ohm)\n" +
		"1.0,10,a,0.0100,100.00\n" +
		"2.0,20,b,0.0200,100.00\n" +
		"3.0,30,c,0.0300,100.00\n"
	assert.Equal(t, want, string(data[len(utf8BOM):]))

	again, err := TableCSV(ohmTable(t))
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestTableCSV_RoundTrip(t *testing.T) {
	data, err := TableCSV(ohmTable(t))
	require.NoError(t, err)

	reloaded, err := measurement.ReadCSV(bytes.NewReader(data), measurement.Columns("U(V)", "I(mA)", "I(A)"))
	require.NoError(t, err)

	u, _ := reloaded.Column("U(V)")
	assert.Equal(t, []string{"1.0", "2.0", "3.0"}, u.Raw)
	amps, err := reloaded.Values("I(A)")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.01, 0.02, 0.03}, amps, 1e-12)
}

func TestTableXLSX(t *testing.T) {
	data, err := TableXLSX(ohmTable(t), "ohm")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ohm")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"U(V)", "I(mA)", "note", "I(A)", "R(ohm)"}, rows[0])
	assert.Equal(t, "a", rows[1][2])
	assert.Equal(t, "100", rows[3][4])
}

func TestEquations(t *testing.T) {
	line := fit.Line{Slope: 100.0004, Intercept: -0.0049}
	assert.Equal(t, "U = 100.00 * I + 0.00", LinearEquation("U", "I", line, numfmt.Fixed(2)))
	assert.Equal(t, "U = 100.000 * I - 0.005", LinearEquation("U", "I", line, numfmt.Fixed(3)))

	pl := fit.PowerLaw{Coefficient: 3, Exponent: -0.5}
	assert.Equal(t, "I = 3.00 * L^-0.50", PowerEquation("I", "L", pl, numfmt.Fixed(2)))

	poly := fit.Poly{Coefficients: []float64{0.5, -2, 0.3}}
	assert.Equal(t, "y = 0.30 * x^2 - 2.00 * x + 0.50", PolynomialEquation("y", "x", poly, numfmt.Fixed(2)))
}

func TestValueString(t *testing.T) {
	v := NewValue("U_0", 11.8123, "V", numfmt.Fixed(2))
	assert.Equal(t, "U_0 = 11.81 V", v.String())
	assert.Equal(t, "U_0 = (11.81 ± 0.12) V", v.WithUncertainty(0.1234).String())
	assert.Equal(t, "ratio = 12.5%", NewValue("ratio", 0.125, "", numfmt.Percent(1)).String())
}

func TestSummary(t *testing.T) {
	data := SummaryData{
		Title:      "Ohm's law",
		Experiment: "ohm",
		Date:       "20251116",
		Input:      "input.csv",
		Rows:       3,
		Constants:  []Constant{{Name: "R0", Value: 50}},
		Derivations: []Derivation{
			{Name: "I(A)", Expr: "I(mA) * 0.001", Precision: numfmt.Fixed(4)},
		},
		Fits: []FitReport{{
			Name:     "U vs I",
			Equation: "U = 100.00 * I + 0.00",
			RSquared: 0.999999,
			N:        3,
		}},
		Values:   []Value{NewValue("R_mean", 100, "ohm", numfmt.Fixed(2))},
		Warnings: []string{"row 2 looks odd"},
	}

	out := string(Summary(data))
	want := strings.Join([]string{
		"Ohm's law",
		"=========",
		"Experiment: ohm",
		"Date: 20251116",
		"Input: input.csv",
		"Rows: 3",
		"",
		"CONSTANTS",
		"---------",
		"R0 = 50",
		"",
		"DERIVED COLUMNS",
		"---------------",
		"I(A) = I(mA) * 0.001 [fixed(4)]",
		"",
		"FITS",
		"----",
		"U vs I: U = 100.00 * I + 0.00",
		"  R^2 = 1.0000 (n = 3)",
		"",
		"RESULTS",
		"-------",
		"R_mean = 100.00 ohm",
		"",
		"WARNINGS",
		"--------",
		"- row 2 looks odd",
		"",
	}, "\n")
	assert.Equal(t, want, out)
	assert.Equal(t, out, string(Summary(data)))
}

func TestRenderChart(t *testing.T) {
	spec := ChartSpec{
		Title:  "U-I",
		X:      Axis{Quantity: "I", Unit: "A", Major: 0.01, Minor: 0.002},
		Y:      Axis{Quantity: "U", Unit: "V", Major: 0.5},
		Width:  640,
		Height: 480,
		Series: []Series{
			{Name: "measured", X: []float64{0.01, 0.02, 0.03}, Y: []float64{1, 2, 3}, Style: Marker},
			{Name: "U = 100.00 * I + 0.00", X: []float64{0.01, 0.03}, Y: []float64{1, 3}, Style: Dashed},
		},
	}

	png, err := RenderChart(spec, PNG)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	svg, err := RenderChart(spec, SVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	_, err = RenderChart(ChartSpec{Title: "empty"}, PNG)
	assert.Error(t, err)
}

func TestAxisLayout(t *testing.T) {
	r, ticks, grid := axisLayout(Axis{Major: 0.5, Minor: 0.1}, []float64{0.2, 1.9})
	assert.Equal(t, 0.0, r.Min)
	assert.Equal(t, 2.0, r.Max)
	require.Len(t, ticks, 5)
	assert.Equal(t, "0.5", ticks[1].Label)

	var minor int
	for _, g := range grid {
		if g.IsMinor {
			minor++
		}
	}
	assert.Equal(t, 16, minor)

	// zero step falls back to a nice one
	_, ticks, _ = axisLayout(Axis{}, []float64{0, 100})
	assert.GreaterOrEqual(t, len(ticks), 5)
	assert.Equal(t, "Position (mm)", Axis{Quantity: "Position", Unit: "mm"}.Label())
}

func TestCommit(t *testing.T) {
	dir := t.TempDir()
	artifacts := []Artifact{
		{Path: filepath.Join(dir, "data", "a.csv"), Data: []byte("x\n1\n")},
		{Path: filepath.Join(dir, "image", "a.png"), Data: []byte("png")},
	}
	require.NoError(t, Commit(context.Background(), artifacts))

	for _, a := range artifacts {
		got, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, a.Data, got)
	}

	// overwrite in place
	artifacts[0].Data = []byte("x\n2\n")
	require.NoError(t, Commit(context.Background(), artifacts))
	got, _ := os.ReadFile(artifacts[0].Path)
	assert.Equal(t, "x\n2\n", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestCommit_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "image")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0644))

	err := Commit(context.Background(), []Artifact{
		{Path: filepath.Join(dir, "data", "a.csv"), Data: []byte("x\n")},
		{Path: filepath.Join(blocker, "a.png"), Data: []byte("png")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutputWrite))

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommit_RenameFailureRestoresOutputs(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data", "d+output.csv")
	txtPath := filepath.Join(dir, "data", "d+output.txt")
	pngPath := filepath.Join(dir, "image", "d+output.png")

	require.NoError(t, os.MkdirAll(filepath.Dir(csvPath), 0755))
	require.NoError(t, os.WriteFile(csvPath, []byte("old\n"), 0644))
	require.NoError(t, os.MkdirAll(pngPath, 0755))

	err := Commit(context.Background(), []Artifact{
		{Path: csvPath, Data: []byte("new\n")},
		{Path: txtPath, Data: []byte("summary\n")},
		{Path: pngPath, Data: []byte("png")},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOutputWrite))

	got, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(got), "replaced file is restored")
	assert.NoFileExists(t, txtPath)

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp or backup files left behind")

	entries, err = os.ReadDir(filepath.Join(dir, "image"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, entries[0].IsDir())
}

package experiments

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labfit/internal/config"
	apperrors "labfit/internal/errors"
	"labfit/internal/fixture"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
	"labfit/internal/pipeline"
)

const testDate = "20251116"

func writeFile(t *testing.T, root, experiment string, data []byte) {
	t.Helper()
	paths := config.NewExperimentPaths(root, experiment)
	require.NoError(t, os.MkdirAll(paths.DataDir, 0755))
	require.NoError(t, os.WriteFile(paths.InputFile, data, 0644))
}

// runFixture runs exp against its generated fixture in a fresh root
func runFixture(t *testing.T, exp *pipeline.Experiment) *pipeline.Result {
	t.Helper()
	data, err := fixture.Generate(exp.Name, 42)
	require.NoError(t, err)

	root := t.TempDir()
	writeFile(t, root, exp.Name, data)
	res, err := pipeline.Run(context.Background(), exp, pipeline.Options{Date: testDate, Root: root})
	require.NoError(t, err)
	return res
}

func value(t *testing.T, res *pipeline.Result, name string) float64 {
	t.Helper()
	v, ok := res.Value(name)
	require.True(t, ok, "missing value %q", name)
	return v.Value
}

func TestDefault(t *testing.T) {
	reg := Default()
	names := reg.Names()
	assert.Len(t, names, 15)
	assert.Equal(t, "ohm", names[0])
	assert.Equal(t, "drag", names[len(names)-1])

	for _, exp := range reg.List() {
		assert.NoError(t, exp.Validate(), exp.Name)
		assert.NotEmpty(t, exp.Title, exp.Name)
	}
}

func TestCatalogue_RunsOnFixtures(t *testing.T) {
	for _, exp := range Default().List() {
		exp := exp
		t.Run(exp.Name, func(t *testing.T) {
			res := runFixture(t, exp)
			assert.Len(t, res.Files, 3)
			assert.NotEmpty(t, res.Values)

			summary, err := os.ReadFile(filepath.Join(experimentDir(res), "data", testDate+"+output.txt"))
			require.NoError(t, err)
			assert.Contains(t, string(summary), exp.Title)
		})
	}
}

// experimentDir recovers the experiment directory from the input path
func experimentDir(res *pipeline.Result) string {
	return filepath.Dir(filepath.Dir(res.InputFile))
}

func TestOhm(t *testing.T) {
	res := runFixture(t, Ohm())
	assert.InDelta(t, 100, value(t, res, "R_mean"), 2)
	assert.InDelta(t, 100, value(t, res, "R_fit"), 1)
}

func TestThevenin(t *testing.T) {
	res := runFixture(t, Thevenin())
	assert.InDelta(t, 4.5, value(t, res, "E_th"), 0.02)
	assert.InDelta(t, 12, value(t, res, "R_th"), 0.3)
	assert.Empty(t, res.Warnings)
}

func TestBridge(t *testing.T) {
	res := runFixture(t, Bridge())
	assert.InDelta(t, 0.0039, value(t, res, "alpha"), 0.0001)
	assert.InDelta(t, 50, value(t, res, "R_t(0)"), 0.1)
}

func TestPowerFactor(t *testing.T) {
	res := runFixture(t, PowerFactor())
	assert.InDelta(t, 0.98, value(t, res, "cos_phi_max"), 0.01)
	assert.InDelta(t, 4, value(t, res, "C_at_max"), 0.01)
	assert.InDelta(t, 4, value(t, res, "C_at_fitted_max"), 0.5)
}

func TestPowerFactor_ZeroCurrent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "power-factor", []byte("C(\\mu F),U(V),I(mA),P(W)\n1,220,300,60\n2,220,0,0\n3,220,300,62\n"))

	_, err := pipeline.Run(context.Background(), PowerFactor(), pipeline.Options{Date: testDate, Root: root})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
	assert.True(t, errors.Is(err, apperrors.ErrDivisionByZero))
	assert.Equal(t, "derive", apperrors.StageOf(err))

	entries, err := os.ReadDir(config.NewExperimentPaths(root, "power-factor").DataDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the input file")
}

func TestMalus(t *testing.T) {
	res := runFixture(t, Malus())
	assert.InDelta(t, 50, value(t, res, "i_max"), 0.5)
	assert.InDelta(t, 0.5, value(t, res, "i_dark"), 0.3)
}

func TestPhotoelectric(t *testing.T) {
	res := runFixture(t, Photoelectric())
	assert.InEpsilon(t, 6.626e-34, value(t, res, "h"), 0.02)
	assert.Greater(t, value(t, res, "lambda0"), 0.0)
}

func TestIVCurves(t *testing.T) {
	res := runFixture(t, IVCurves())
	assert.InDelta(t, -0.5, value(t, res, "U_stop(577nm)"), 1e-9)
	assert.InDelta(t, -1.0, value(t, res, "U_stop(546nm)"), 1e-9)
}

func TestInverseSquare(t *testing.T) {
	res := runFixture(t, InverseSquare())
	assert.InDelta(t, -2, value(t, res, "exponent"), 0.05)
	assert.InDelta(t, 0.5, value(t, res, "coefficient"), 0.02)
}

func TestHallCoil(t *testing.T) {
	res := runFixture(t, HallCoil())
	assert.Less(t, value(t, res, "max_rel_error"), 0.05)

	f, err := res.Fit("B_avg vs x")
	require.NoError(t, err)
	assert.Greater(t, f.RSquared(), 0.99)
}

func TestHelmholtz(t *testing.T) {
	res := runFixture(t, Helmholtz())
	assert.InDelta(t, 1.4386, value(t, res, "B0_theory"), 0.001)
	assert.Less(t, value(t, res, "relative_error"), 0.01)
}

func TestHelmholtz_NoCentreReading(t *testing.T) {
	data, err := fixture.Generate("helmholtz", 42)
	require.NoError(t, err)

	// drop the readings at S = 14, 15 and 16 cm
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		fields := strings.Split(line, ",")
		if fields[1] == "14.0" || fields[1] == "15.0" || fields[1] == "16.0" {
			continue
		}
		kept = append(kept, line)
	}
	root := t.TempDir()
	writeFile(t, root, "helmholtz", []byte(strings.Join(kept, "\n")+"\n"))

	_, err = pipeline.Run(context.Background(), Helmholtz(), pipeline.Options{Date: testDate, Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
	assert.Equal(t, "aggregate", apperrors.StageOf(err))
}

func TestHelmholtz_ChartNeedsTheoryColumn(t *testing.T) {
	exp := Helmholtz()
	res := runFixture(t, exp)

	x, err := res.Column("x(cm)")
	require.NoError(t, err)
	b, err := res.Column("B_avg(mT)")
	require.NoError(t, err)

	table := measurement.NewTable(len(x))
	require.NoError(t, table.AddDerived("x(cm)", x, numfmt.Fixed(0)))
	require.NoError(t, table.AddDerived("B_avg(mT)", b, numfmt.Fixed(3)))
	res.Table = table

	_, err = exp.Chart(res)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)
}

func TestFranckHertz(t *testing.T) {
	res := runFixture(t, FranckHertz())
	assert.InDelta(t, 4.9, value(t, res, "U_excitation"), 0.15)
	assert.InDelta(t, 4.9, value(t, res, "U_excitation_fit"), 0.15)
	_, ok := res.Value("U_peak2")
	assert.True(t, ok)
}

func TestFranckHertz_NoPeaks(t *testing.T) {
	var b strings.Builder
	b.WriteString("U,I\n")
	for i := 0; i <= 100; i++ {
		b.WriteString(strconv.Itoa(i) + "," + strconv.Itoa(5*i) + "\n")
	}
	root := t.TempDir()
	writeFile(t, root, "franck-hertz", []byte(b.String()))

	_, err := pipeline.Run(context.Background(), FranckHertz(), pipeline.Options{Date: testDate, Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
}

func TestFranckHertzAuto(t *testing.T) {
	res := runFixture(t, FranckHertzAuto())
	assert.InDelta(t, 4.9, value(t, res, "k_mean"), 0.05)

	ks, err := res.Column("k")
	require.NoError(t, err)
	assert.Len(t, ks, 5)
}

func TestDiffraction(t *testing.T) {
	res := runFixture(t, Diffraction())
	assert.GreaterOrEqual(t, value(t, res, "maxima"), 3.0)
	assert.InDelta(t, 100.5, value(t, res, "I_central"), 0.5)
	assert.InDelta(t, 0.052, value(t, res, "I_first/I_central"), 0.01)

	x, err := res.Column("x_normalized(mm)")
	require.NoError(t, err)
	assert.Equal(t, 0.0, x[0])
}

func TestDiffraction_TooFewMaxima(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "diffraction", []byte("x(mm),I(10^-8 A)\n1,0.5\n2,3\n3,10\n4,3\n5,0.5\n"))

	_, err := pipeline.Run(context.Background(), Diffraction(), pipeline.Options{Date: testDate, Root: root})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientData))
	assert.Contains(t, err.Error(), "need at least 3")
}

func TestCollision(t *testing.T) {
	res := runFixture(t, Collision())
	assert.InDelta(t, 0.95, value(t, res, "e_mean"), 0.01)
	// momentum is conserved in the generated runs
	assert.InDelta(t, 0, value(t, res, "deltp/p1_mean"), 0.01)
	assert.Less(t, value(t, res, "deltE/E1_mean"), 0.0)
}

func TestDrag(t *testing.T) {
	res := runFixture(t, Drag())
	assert.InDelta(t, 0.0015, value(t, res, "k_mean"), 0.0001)
	assert.InDelta(t, 0.0015, value(t, res, "k_fit"), 0.0002)
}

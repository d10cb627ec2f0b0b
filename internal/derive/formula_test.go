package derive

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "labfit/internal/errors"
	"labfit/internal/measurement"
	"labfit/internal/numfmt"
)

func loadTable(t *testing.T, csv string, schema measurement.Schema) *measurement.Table {
	t.Helper()
	table, err := measurement.ReadCSV(strings.NewReader(csv), schema)
	require.NoError(t, err)
	return table
}

func TestApply_OhmScenario(t *testing.T) {
	table := loadTable(t, "U(V),I(mA)\n1.0,10\n2.0,20\n3.0,30\n", measurement.Columns("U(V)", "I(mA)"))

	err := Apply(context.Background(), table, []Formula{
		Scale("I(A)", "I(mA)", 1e-3, numfmt.Fixed(4)),
		Ratio("R_calculated(ohm)", "U(V)", "I(A)", numfmt.Fixed(2)),
	}, nil)
	require.NoError(t, err)

	amps, err := table.Values("I(A)")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.01, 0.02, 0.03}, amps, 1e-12)

	r, _ := table.Column("R_calculated(ohm)")
	for i := 0; i < 3; i++ {
		assert.Equal(t, "100.00", r.Cell(i))
	}
}

func TestApply_DivisionByZero(t *testing.T) {
	table := loadTable(t, "U(V),I(mA)\n1.0,10\n2.0,0\n", measurement.Columns("U(V)", "I(mA)"))

	err := Apply(context.Background(), table, []Formula{
		Ratio("R(ohm)", "U(V)", "I(mA)", numfmt.Fixed(2)),
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
	assert.ErrorIs(t, err, apperrors.ErrDivisionByZero)
	assert.Contains(t, err.Error(), `row 2 column "R(ohm)"`)
	assert.False(t, table.Has("R(ohm)"), "failed column must not be appended")
}

func TestApply_NonFinite(t *testing.T) {
	table := loadTable(t, "x\n-1\n", measurement.Columns("x"))

	err := Apply(context.Background(), table, []Formula{{
		Name:   "sqrt_x",
		Inputs: []string{"x"},
		Row: func(r Row, _ Constants) (float64, error) {
			v, err := r.Get("x")
			return math.Sqrt(v), err
		},
	}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNonFinite)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNumeric))
}

func TestApply_MissingInputAndUnknownConstant(t *testing.T) {
	table := loadTable(t, "x\n1\n", measurement.Columns("x"))

	err := Apply(context.Background(), table, []Formula{Ratio("q", "x", "y", numfmt.Auto())}, nil)
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)

	err = Apply(context.Background(), table, []Formula{Offset("x0", "x", "zero", numfmt.Auto())}, Constants{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
	assert.ErrorIs(t, err, apperrors.ErrUnknownConstant)
}

func TestApply_OrderAndBroadcast(t *testing.T) {
	table := loadTable(t, "x\n1\n2\n", measurement.Columns("x"))

	err := Apply(context.Background(), table, []Formula{
		Broadcast("B0", "k * 2", numfmt.Fixed(1), func(c Constants) (float64, error) {
			k, err := c.Get("k")
			return k * 2, err
		}),
		RelativeError("dev", "x", "B0", numfmt.Percent(1)),
	}, Constants{"k": 1})
	require.NoError(t, err)

	b0, _ := table.Values("B0")
	assert.Equal(t, []float64{2, 2}, b0)

	dev, _ := table.Column("dev")
	assert.Equal(t, "50.0%", dev.Cell(0))
	assert.Equal(t, "0.0%", dev.Cell(1))
}

func TestApply_RejectsAmbiguousFormula(t *testing.T) {
	table := loadTable(t, "x\n1\n", measurement.Columns("x"))
	err := Apply(context.Background(), table, []Formula{{Name: "empty"}}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeSchema))
}

func TestApply_Cancelled(t *testing.T) {
	table := loadTable(t, "x\n1\n", measurement.Columns("x"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Apply(ctx, table, []Formula{Scale("y", "x", 2, numfmt.Auto())}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConstants_With(t *testing.T) {
	base := Constants{"R0": 50}

	got, err := base.With(map[string]float64{"R0": 51})
	require.NoError(t, err)
	assert.Equal(t, 51.0, got["R0"])
	assert.Equal(t, 50.0, base["R0"], "defaults are not modified")

	_, err = base.With(map[string]float64{"r0": 1})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))

	_, err = base.With(map[string]float64{"R0": math.Inf(1)})
	assert.ErrorIs(t, err, apperrors.ErrNonFinite)

	assert.Equal(t, []string{"R0"}, base.Names())
}

package numfmt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		p    Precision
		want string
	}{
		{"fixed keeps trailing zeros", 100, Fixed(2), "100.00"},
		{"fixed rounds half away", 0.125, Fixed(2), "0.13"},
		{"fixed hides float noise", 99.99999999999997, Fixed(2), "100.00"},
		{"fixed never prints negative zero", -1e-12, Fixed(2), "0.00"},
		{"fixed zero places", 14.6, Fixed(0), "15"},
		{"sig small", 0.012345, Sig(3), "0.0123"},
		{"sig carry adds digit", 9.996, Sig(3), "10.0"},
		{"sig large integer", 1234.5, Sig(2), "1200"},
		{"sig exponent for tiny", 4.135667e-15, Sig(4), "4.136e-15"},
		{"sig exponent for huge", 5.49e14, Sig(3), "5.49e+14"},
		{"sig zero", 0, Sig(3), "0.00"},
		{"percent", 0.0523, Percent(1), "5.2%"},
		{"auto shortest", 0.1, Auto(), "0.1"},
		{"nan is empty", math.NaN(), Fixed(2), ""},
		{"inf", math.Inf(-1), Fixed(2), "-inf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.v, tt.p))
		})
	}
}

func TestFormat_DoesNotMutateInput(t *testing.T) {
	v := 1.23456789
	_ = Format(v, Fixed(2))
	assert.Equal(t, 1.23456789, v)
}

func TestPrecision_String(t *testing.T) {
	assert.Equal(t, "fixed(2)", Fixed(2).String())
	assert.Equal(t, "sig(4)", Sig(4).String())
	assert.Equal(t, "percent(1)", Percent(1).String())
	assert.Equal(t, "auto", Auto().String())
}

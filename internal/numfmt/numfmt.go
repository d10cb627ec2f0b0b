// Package numfmt renders float64 values at a fixed presentation precision.
//
// Rounding happens here and nowhere else: computed values keep full float64
// precision and are only turned into strings at the report boundary.
package numfmt

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Mode selects how Digits is interpreted
type Mode int

const (
	// ModeAuto prints the shortest representation that round-trips
	ModeAuto Mode = iota
	// ModeFixed rounds to Digits decimal places
	ModeFixed
	// ModeSig rounds to Digits significant figures
	ModeSig
	// ModePercent multiplies by 100 and rounds to Digits decimal places
	ModePercent
)

// Sig switches to exponent notation outside [sigMinExp, sigMaxExp)
const (
	sigMinExp = -4
	sigMaxExp = 6
)

// Precision is a presentation rule for one number or column
type Precision struct {
	Mode   Mode
	Digits int
}

// Fixed rounds to n decimal places
func Fixed(n int) Precision { return Precision{Mode: ModeFixed, Digits: n} }

// Sig rounds to n significant figures
func Sig(n int) Precision { return Precision{Mode: ModeSig, Digits: n} }

// Percent renders a ratio as a percentage with n decimal places
func Percent(n int) Precision { return Precision{Mode: ModePercent, Digits: n} }

// Auto prints full precision
func Auto() Precision { return Precision{} }

// String describes the rule, e.g. "fixed(2)"
func (p Precision) String() string {
	switch p.Mode {
	case ModeFixed:
		return fmt.Sprintf("fixed(%d)", p.Digits)
	case ModeSig:
		return fmt.Sprintf("sig(%d)", p.Digits)
	case ModePercent:
		return fmt.Sprintf("percent(%d)", p.Digits)
	default:
		return "auto"
	}
}

// Format renders v under p. NaN renders as an empty cell, which is how
// missing values of sparse columns round-trip through CSV.
func Format(v float64, p Precision) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	switch p.Mode {
	case ModeFixed:
		return decimal.NewFromFloat(v).StringFixed(int32(max(p.Digits, 0)))
	case ModeSig:
		return formatSig(v, max(p.Digits, 1))
	case ModePercent:
		return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).StringFixed(int32(max(p.Digits, 0))) + "%"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func formatSig(v float64, sig int) string {
	if v == 0 {
		return decimal.Zero.StringFixed(int32(sig - 1))
	}

	exp := int(math.Floor(math.Log10(math.Abs(v))))
	if exp < sigMinExp || exp >= sigMaxExp {
		return strconv.FormatFloat(v, 'e', sig-1, 64)
	}

	places := sig - 1 - exp
	rounded := decimal.NewFromFloat(v).Round(int32(places))
	// 9.996 at 3 figures rounds up to 10.0, one more integer digit
	if rounded.Abs().GreaterThanOrEqual(decimal.New(1, int32(exp+1))) {
		places--
		rounded = decimal.NewFromFloat(v).Round(int32(places))
	}
	return rounded.StringFixed(int32(max(places, 0)))
}

package report

import (
	"fmt"
	"strings"

	"labfit/internal/fit"
	"labfit/internal/numfmt"
)

// Value is a named scalar result with an optional standard uncertainty
type Value struct {
	Name           string
	Value          float64
	Unit           string
	Precision      numfmt.Precision
	Uncertainty    float64
	HasUncertainty bool
}

// NewValue creates a value without uncertainty
func NewValue(name string, v float64, unit string, p numfmt.Precision) Value {
	return Value{Name: name, Value: v, Unit: unit, Precision: p}
}

// WithUncertainty returns a copy carrying u as its uncertainty
func (v Value) WithUncertainty(u float64) Value {
	v.Uncertainty = u
	v.HasUncertainty = true
	return v
}

// String renders "name = value ± u unit" at the value's precision
func (v Value) String() string {
	var b strings.Builder
	b.WriteString(v.Name)
	b.WriteString(" = ")
	if v.HasUncertainty {
		fmt.Fprintf(&b, "(%s ± %s)", numfmt.Format(v.Value, v.Precision), numfmt.Format(v.Uncertainty, v.Precision))
	} else {
		b.WriteString(numfmt.Format(v.Value, v.Precision))
	}
	if v.Unit != "" {
		b.WriteString(" ")
		b.WriteString(v.Unit)
	}
	return b.String()
}

// LinearEquation renders "y = a * x + b"
func LinearEquation(y, x string, l fit.Line, p numfmt.Precision) string {
	return fmt.Sprintf("%s = %s * %s%s", y, numfmt.Format(l.Slope, p), x, signed(l.Intercept, p))
}

// PowerEquation renders "y = a * x^b"
func PowerEquation(y, x string, pl fit.PowerLaw, p numfmt.Precision) string {
	return fmt.Sprintf("%s = %s * %s^%s", y, numfmt.Format(pl.Coefficient, p), x, numfmt.Format(pl.Exponent, p))
}

// PolynomialEquation renders the polynomial highest power first
func PolynomialEquation(y, x string, poly fit.Poly, p numfmt.Precision) string {
	var b strings.Builder
	b.WriteString(y)
	b.WriteString(" =")
	for i := len(poly.Coefficients) - 1; i >= 0; i-- {
		var term string
		switch i {
		case 0:
			term = ""
		case 1:
			term = " * " + x
		default:
			term = fmt.Sprintf(" * %s^%d", x, i)
		}
		if i == len(poly.Coefficients)-1 {
			b.WriteString(" " + numfmt.Format(poly.Coefficients[i], p) + term)
			continue
		}
		b.WriteString(signed(poly.Coefficients[i], p) + term)
	}
	return b.String()
}

// signed renders v as " + v" or " - |v|"
func signed(v float64, p numfmt.Precision) string {
	text := numfmt.Format(v, p)
	if strings.HasPrefix(text, "-") {
		return " - " + strings.TrimPrefix(text, "-")
	}
	return " + " + text
}

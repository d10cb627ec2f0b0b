package report

import (
	"bytes"
	"fmt"
	"strings"

	"labfit/internal/numfmt"
)

// Constant is a named constant as used by a run
type Constant struct {
	Name  string
	Value float64
}

// Derivation describes one derived column for the summary
type Derivation struct {
	Name      string
	Expr      string
	Precision numfmt.Precision
}

// FitReport is one fitted model, already rendered to an equation
type FitReport struct {
	Name     string
	Equation string
	RSquared float64
	N        int
	Details  []Value
}

// SummaryData is everything the text summary shows. It deliberately has
// no timestamps or run ids so repeated runs produce identical files.
type SummaryData struct {
	Title       string
	Experiment  string
	Date        string
	Input       string
	Rows        int
	Constants   []Constant
	Derivations []Derivation
	Fits        []FitReport
	Values      []Value
	Warnings    []string
}

// rSquaredPrecision is used for every R² in the summary
var rSquaredPrecision = numfmt.Fixed(4)

// Summary renders the plain text report
func Summary(data SummaryData) []byte {
	var buf bytes.Buffer

	heading(&buf, data.Title, "=")
	fmt.Fprintf(&buf, "Experiment: %s\n", data.Experiment)
	fmt.Fprintf(&buf, "Date: %s\n", data.Date)
	fmt.Fprintf(&buf, "Input: %s\n", data.Input)
	fmt.Fprintf(&buf, "Rows: %d\n\n", data.Rows)

	if len(data.Constants) > 0 {
		heading(&buf, "CONSTANTS", "-")
		for _, c := range data.Constants {
			fmt.Fprintf(&buf, "%s = %s\n", c.Name, numfmt.Format(c.Value, numfmt.Auto()))
		}
		buf.WriteString("\n")
	}

	if len(data.Derivations) > 0 {
		heading(&buf, "DERIVED COLUMNS", "-")
		for _, d := range data.Derivations {
			fmt.Fprintf(&buf, "%s = %s [%s]\n", d.Name, d.Expr, d.Precision)
		}
		buf.WriteString("\n")
	}

	if len(data.Fits) > 0 {
		heading(&buf, "FITS", "-")
		for _, f := range data.Fits {
			fmt.Fprintf(&buf, "%s: %s\n", f.Name, f.Equation)
			fmt.Fprintf(&buf, "  R^2 = %s (n = %d)\n", numfmt.Format(f.RSquared, rSquaredPrecision), f.N)
			for _, v := range f.Details {
				fmt.Fprintf(&buf, "  %s\n", v)
			}
		}
		buf.WriteString("\n")
	}

	if len(data.Values) > 0 {
		heading(&buf, "RESULTS", "-")
		for _, v := range data.Values {
			fmt.Fprintf(&buf, "%s\n", v)
		}
		buf.WriteString("\n")
	}

	if len(data.Warnings) > 0 {
		heading(&buf, "WARNINGS", "-")
		for _, w := range data.Warnings {
			fmt.Fprintf(&buf, "- %s\n", w)
		}
		buf.WriteString("\n")
	}

	return append(bytes.TrimRight(buf.Bytes(), "\n"), '\n')
}

func heading(buf *bytes.Buffer, title, rule string) {
	buf.WriteString(title)
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat(rule, max(len([]rune(title)), 4)))
	buf.WriteString("\n")
}

// Package fixture generates synthetic measurement files for the experiment
// catalogue. It is only reached through cmd/fixturegen and tests; the
// loader never falls back to generated data.
package fixture

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"

	apperrors "labfit/internal/errors"
)

// TemplateFranckHertz is the name of the blank Franck-Hertz recording sheet
const TemplateFranckHertz = "franck-hertz-template"

// grid is a header row followed by data rows
type grid [][]string

type generator func(rng *rand.Rand) grid

var generators = map[string]generator{
	"ohm":               ohm,
	"thevenin":          thevenin,
	"bridge":            bridge,
	"power-factor":      powerFactor,
	"malus":             malus,
	"photoelectric":     photoelectric,
	"iv-curves":         ivCurves,
	"inverse-square":    inverseSquare,
	"hall-coil":         hallCoil,
	"helmholtz":         helmholtz,
	"franck-hertz":      franckHertz,
	"franck-hertz-auto": franckHertzAuto,
	"diffraction":       diffraction,
	"collision":         collision,
	"drag":              drag,
	TemplateFranckHertz: franckHertzTemplate,
}

// Names lists every fixture Generate knows, sorted
func Names() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Generate returns a deterministic CSV input for the named experiment. The
// same name and seed always produce the same bytes.
func Generate(name string, seed int64) ([]byte, error) {
	rows, err := generate(name, seed)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to encode fixture %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func generate(name string, seed int64) (grid, error) {
	gen, ok := generators[name]
	if !ok {
		return nil, apperrors.NewConfigError(fmt.Sprintf("no fixture for experiment %q", name), nil)
	}
	return gen(rand.New(rand.NewSource(seed))), nil
}

func f(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// steps returns lo, lo+step, ... up to hi inclusive
func steps(lo, hi, step float64) []float64 {
	n := int(math.Round((hi-lo)/step)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

func ohm(rng *rand.Rand) grid {
	const r = 100.0
	g := grid{{"U(V)", "I(mA)"}}
	for _, ma := range steps(10, 100, 10) {
		u := r*ma/1000 + rng.NormFloat64()*0.01
		g = append(g, []string{f(u, 2), f(ma, 0)})
	}
	return g
}

func thevenin(rng *rand.Rand) grid {
	const emf, rth = 4.5, 12.0
	g := grid{{"U(V)", "I(mA)"}}
	for _, ma := range steps(10, 150, 20) {
		u := emf - rth*ma/1000 + rng.NormFloat64()*0.005
		g = append(g, []string{f(u, 3), f(ma, 0)})
	}
	return g
}

func bridge(rng *rand.Rand) grid {
	const r0, alpha = 50.0, 0.0039
	g := grid{{"t(°C)", "R_t(Ω)"}}
	for _, t := range steps(20, 80, 5) {
		rt := r0*(1+alpha*t) + rng.NormFloat64()*0.02
		g = append(g, []string{f(t, 1), f(rt, 2)})
	}
	return g
}

func powerFactor(rng *rand.Rand) grid {
	const volts = 220.0
	g := grid{{`C(\mu F)`, "U(V)", "I(mA)", "P(W)"}}
	for _, c := range steps(0, 8, 0.5) {
		d := c - 4
		cos := math.Max(0.98-0.035*d*d, 0.3)
		ma := 300 + 20*d*d + rng.NormFloat64()
		p := volts * ma / 1000 * cos
		g = append(g, []string{f(c, 1), f(volts, 1), f(ma, 1), f(p, 1)})
	}
	return g
}

func malus(rng *rand.Rand) grid {
	g := grid{{`\phi`, `i(\mu A)`}}
	for _, deg := range steps(0, 90, 10) {
		c := math.Cos(deg * math.Pi / 180)
		i := 50*c*c + 0.5 + rng.NormFloat64()*0.2
		g = append(g, []string{f(deg, 0), f(i, 2)})
	}
	return g
}

func photoelectric(rng *rand.Rand) grid {
	const hOverE, work = 4.1357e-15, 1.9
	g := grid{{"lambda(nm)", "U_a(V)"}}
	for _, nm := range []float64{365, 405, 436, 546, 577} {
		nu := 2.99792458e8 / (nm * 1e-9)
		u := hOverE*nu - work + rng.NormFloat64()*0.005
		g = append(g, []string{f(nm, 0), f(u, 3)})
	}
	return g
}

// phototube current in 1e-10 A, zero at U = -stop
func phototube(u, stop, saturation float64) float64 {
	x := u + stop
	if x < 0 {
		return 0.05 * x
	}
	return saturation * (1 - math.Exp(-x/3))
}

func ivCurves(rng *rand.Rand) grid {
	g := grid{{"U(V)", "I_577(1e-10A)", "I_546(1e-10A)"}}
	for _, u := range steps(-2, 20, 0.5) {
		long := phototube(u, 0.5, 20) + rng.NormFloat64()*0.002
		short := phototube(u, 1.0, 35) + rng.NormFloat64()*0.002
		g = append(g, []string{f(u, 1), f(long, 3), f(short, 3)})
	}
	return g
}

func inverseSquare(rng *rand.Rand) grid {
	const k = 0.5
	g := grid{{"L_cm", "I"}}
	for _, cm := range steps(10, 50, 5) {
		m := cm / 100
		i := k / (m * m) * (1 + rng.NormFloat64()*0.005)
		g = append(g, []string{f(cm, 1), f(i, 3)})
	}
	return g
}

// coilField is the on-axis field of one coil in mT at x cm from its centre
func coilField(xcm float64) float64 {
	const mu0, turns, current, radius = 4 * math.Pi * 1e-7, 400.0, 0.4, 0.10
	x := xcm / 100
	return mu0 * turns * current * radius * radius / (2 * math.Pow(x*x+radius*radius, 1.5)) * 1000
}

// hallRows simulates readings with both probe polarities and a small probe
// offset that cancels in the average
func hallRows(rng *rand.Rand, field func(x float64) float64) grid {
	const centre, offset = 15.0, 0.01
	g := grid{{"order", "S(cm)", "B_+(mT)", "B_-(mT)"}}
	for i, s := range steps(5, 25, 1) {
		b := field(s-centre) + rng.NormFloat64()*0.003
		g = append(g, []string{strconv.Itoa(i + 1), f(s, 1), f(b+offset, 3), f(-(b - offset), 3)})
	}
	return g
}

func hallCoil(rng *rand.Rand) grid {
	return hallRows(rng, coilField)
}

// helmholtz coils sit half a radius either side of the centre
func helmholtz(rng *rand.Rand) grid {
	return hallRows(rng, func(x float64) float64 {
		return coilField(x-5) + coilField(x+5)
	})
}

func franckHertz(rng *rand.Rand) grid {
	const first, spacing = 7.6, 4.9
	g := grid{{"U", "I"}}
	for _, u := range steps(0, 100, 0.5) {
		i := 6*u + 120*(1+math.Cos(2*math.Pi*(u-first)/spacing)) + rng.NormFloat64()*3
		g = append(g, []string{f(u, 1), f(i, 1)})
	}
	return g
}

func franckHertzAuto(rng *rand.Rand) grid {
	const peaks = 6
	header := []string{"exp_order"}
	for n := 1; n <= peaks; n++ {
		header = append(header, fmt.Sprintf("peakValue%d", n))
	}
	g := grid{header}
	for run := 1; run <= 5; run++ {
		row := []string{strconv.Itoa(run)}
		for n := 1; n <= peaks; n++ {
			// the third run stopped before its last peak
			if run == 3 && n == peaks {
				row = append(row, "")
				continue
			}
			v := 7.6 + 4.9*float64(n-1) + rng.NormFloat64()*0.05
			row = append(row, f(v, 2))
		}
		g = append(g, row)
	}
	return g
}

func diffraction(rng *rand.Rand) grid {
	const centre, width, peak, background = 30.0, 6.0, 100.0, 0.5
	g := grid{{"x(mm)", "I(10^-8 A)"}}
	for _, x := range steps(10, 50, 0.2) {
		a := math.Pi * (x - centre) / width
		sinc := 1.0
		if a != 0 {
			sinc = math.Sin(a) / a
		}
		i := peak*sinc*sinc + background + rng.NormFloat64()*0.02
		g = append(g, []string{f(x, 1), f(i, 2)})
	}
	return g
}

func collision(rng *rand.Rand) grid {
	const m1, m2, restitution = 0.3071, 0.3103, 0.95
	g := grid{{"exp_order", "v1_0(m/s)", "v1_1(m/s)", "v2_0(m/s)", "v2_1(m/s)"}}
	for run := 1; run <= 5; run++ {
		// cart 2 starts at rest; momentum is conserved exactly
		v := 0.35 + 0.05*float64(run) + rng.NormFloat64()*0.005
		after1 := v * (m1 - restitution*m2) / (m1 + m2)
		after2 := v * m1 * (1 + restitution) / (m1 + m2)
		g = append(g, []string{strconv.Itoa(run), f(v, 4), f(after1, 4), "0", f(after2, 4)})
	}
	return g
}

func drag(rng *rand.Rand) grid {
	const mass, k = 0.3102, 0.0015
	g := grid{{"exp_id", "v1 (m/s)", "v2 (m/s)", "a (m/s^2)"}}
	for run := 1; run <= 5; run++ {
		v := 0.33 + 0.075*float64(run-1)
		a := -k*v/mass + rng.NormFloat64()*0.00002
		g = append(g, []string{strconv.Itoa(run), f(v+0.0015, 4), f(v-0.0015, 4), f(a, 5)})
	}
	return g
}

// franckHertzTemplate is the blank sheet filled in by hand during the
// experiment: U from 0 to 100 V in 0.5 V steps and an empty I column
func franckHertzTemplate(*rand.Rand) grid {
	g := grid{{"U", "I"}}
	for _, u := range steps(0, 100, 0.5) {
		g = append(g, []string{f(u, 1), ""})
	}
	return g
}

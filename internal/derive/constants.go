package derive

import (
	"fmt"
	"math"
	"sort"

	apperrors "labfit/internal/errors"
)

// Physical constants shared by the experiment catalogue
const (
	// Mu0 is the permeability of free space in T·m/A
	Mu0 = 4 * math.Pi * 1e-7
	// ElementaryCharge in C
	ElementaryCharge = 1.602176634e-19
	// SpeedOfLight in m/s
	SpeedOfLight = 2.99792458e8
)

// Constants are the named parameters a formula may read. Experiments ship
// defaults; configuration overrides them by name.
type Constants map[string]float64

// Get returns a constant or an ErrUnknownConstant schema error
func (c Constants) Get(name string) (float64, error) {
	v, ok := c[name]
	if !ok {
		return 0, apperrors.NewSchemaError(fmt.Sprintf("constant %q is not defined", name), apperrors.ErrUnknownConstant).
			WithContext("constant", name)
	}
	return v, nil
}

// With returns a copy with overrides applied. Overriding a constant the
// experiment does not declare is a config error, so typos surface early.
func (c Constants) With(overrides map[string]float64) (Constants, error) {
	out := make(Constants, len(c))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		if _, ok := c[k]; !ok {
			return nil, apperrors.NewConfigError(fmt.Sprintf("unknown constant %q", k), apperrors.ErrUnknownConstant).
				WithContext("constant", k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, apperrors.NewConfigError(fmt.Sprintf("constant %q must be finite", k), apperrors.ErrNonFinite)
		}
		out[k] = v
	}
	return out, nil
}

// Names returns the constant names in sorted order
func (c Constants) Names() []string {
	names := make([]string, 0, len(c))
	for k := range c {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Package spread derives rate-differential series from raw yield series.
package spread

import (
	"errors"
	"fmt"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/series"
)

// Errors returned by the calculator.
var (
	// ErrDataAlignment means the two input series share no overlapping dates.
	ErrDataAlignment = errors.New("no overlapping dates between yield series")

	// ErrMissingInstrument means a spread definition references an
	// instrument with no supplied series at all. Fatal for that spread
	// only, never for the whole run.
	ErrMissingInstrument = errors.New("instrument series not supplied")
)

// Calculator computes spread series from a declarative definition set.
// Pure: no state beyond the definitions, no side effects.
type Calculator struct {
	defs []domain.SpreadDefinition
}

// NewCalculator creates a calculator for the given definitions.
func NewCalculator(defs []domain.SpreadDefinition) *Calculator {
	return &Calculator{defs: defs}
}

// Definitions returns the configured definition set.
func (c *Calculator) Definitions() []domain.SpreadDefinition {
	return c.defs
}

// Compute produces the spread series for one definition from the supplied
// yield series map. Output holds one point per date present in BOTH
// inputs; a date missing from either side is dropped, never forward-filled.
// Both inputs must already be date-ascending.
func (c *Calculator) Compute(def domain.SpreadDefinition, yields map[string][]domain.Point) ([]domain.Point, error) {
	minuend, ok := yields[def.Minuend]
	if !ok {
		return nil, fmt.Errorf("spread %s: %w: %s", def.SpreadID, ErrMissingInstrument, def.Minuend)
	}
	subtrahend, ok := yields[def.Subtrahend]
	if !ok {
		return nil, fmt.Errorf("spread %s: %w: %s", def.SpreadID, ErrMissingInstrument, def.Subtrahend)
	}
	if err := series.ValidateAscending(minuend); err != nil {
		return nil, fmt.Errorf("spread %s: minuend %s: %w", def.SpreadID, def.Minuend, err)
	}
	if err := series.ValidateAscending(subtrahend); err != nil {
		return nil, fmt.Errorf("spread %s: subtrahend %s: %w", def.SpreadID, def.Subtrahend, err)
	}

	// Merge join over two ascending series, keeping shared dates only.
	out := make([]domain.Point, 0, min(len(minuend), len(subtrahend)))
	i, j := 0, 0
	for i < len(minuend) && j < len(subtrahend) {
		a, b := minuend[i], subtrahend[j]
		switch {
		case a.Date.Equal(b.Date):
			out = append(out, domain.Point{Date: a.Date, Value: a.Value - b.Value})
			i++
			j++
		case a.Date.Before(b.Date):
			i++
		default:
			j++
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("spread %s (%s-%s): %w", def.SpreadID, def.Minuend, def.Subtrahend, ErrDataAlignment)
	}
	return out, nil
}

// ComputeAll computes every configured spread. Per-spread failures are
// isolated: the error map carries them while the result map holds every
// spread that succeeded.
func (c *Calculator) ComputeAll(yields map[string][]domain.Point) (map[string][]domain.Point, map[string]error) {
	results := make(map[string][]domain.Point, len(c.defs))
	errs := make(map[string]error)

	for _, def := range c.defs {
		points, err := c.Compute(def, yields)
		if err != nil {
			errs[def.SpreadID] = err
			continue
		}
		results[def.SpreadID] = points
	}
	return results, errs
}

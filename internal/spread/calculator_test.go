package spread

import (
	"errors"
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seriesFrom(start time.Time, values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return points
}

var usDE = domain.SpreadDefinition{SpreadID: "US_DE_10Y_spread", Minuend: "US_2Y", Subtrahend: "DE_10Y"}

func TestCompute_Subtraction(t *testing.T) {
	calc := NewCalculator([]domain.SpreadDefinition{usDE})

	yields := map[string][]domain.Point{
		"US_2Y":  {{Date: day(2024, 1, 2), Value: 3.43}},
		"DE_10Y": {{Date: day(2024, 1, 2), Value: 2.77}},
	}

	points, err := calc.Compute(usDE, yields)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if got := points[0].Value; got != 3.43-2.77 {
		t.Errorf("spread value: got %v, want 0.66", got)
	}
}

func TestCompute_SharedDatesOnly(t *testing.T) {
	calc := NewCalculator([]domain.SpreadDefinition{usDE})

	// US has a holiday gap on Jan 3, DE on Jan 4. Only Jan 2 and Jan 5
	// are shared; nothing is forward-filled.
	yields := map[string][]domain.Point{
		"US_2Y": {
			{Date: day(2024, 1, 2), Value: 3.40},
			{Date: day(2024, 1, 4), Value: 3.42},
			{Date: day(2024, 1, 5), Value: 3.43},
		},
		"DE_10Y": {
			{Date: day(2024, 1, 2), Value: 2.70},
			{Date: day(2024, 1, 3), Value: 2.72},
			{Date: day(2024, 1, 5), Value: 2.77},
		},
	}

	points, err := calc.Compute(usDE, yields)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 shared dates, got %d", len(points))
	}
	if !points[0].Date.Equal(day(2024, 1, 2)) || !points[1].Date.Equal(day(2024, 1, 5)) {
		t.Errorf("unexpected dates: %v, %v", points[0].Date, points[1].Date)
	}
}

func TestCompute_Antisymmetry(t *testing.T) {
	start := day(2024, 1, 2)
	yields := map[string][]domain.Point{
		"A": seriesFrom(start, 3.1, 3.2, 3.3),
		"B": seriesFrom(start, 2.5, 2.6, 2.4),
	}

	ab := domain.SpreadDefinition{SpreadID: "ab", Minuend: "A", Subtrahend: "B"}
	ba := domain.SpreadDefinition{SpreadID: "ba", Minuend: "B", Subtrahend: "A"}
	calc := NewCalculator([]domain.SpreadDefinition{ab, ba})

	fwd, err := calc.Compute(ab, yields)
	if err != nil {
		t.Fatalf("Compute ab: %v", err)
	}
	rev, err := calc.Compute(ba, yields)
	if err != nil {
		t.Fatalf("Compute ba: %v", err)
	}

	for i := range fwd {
		if fwd[i].Value != -rev[i].Value {
			t.Errorf("point %d: %v is not the negation of %v", i, fwd[i].Value, rev[i].Value)
		}
	}
}

func TestCompute_MissingInstrument(t *testing.T) {
	calc := NewCalculator([]domain.SpreadDefinition{usDE})

	yields := map[string][]domain.Point{
		"US_2Y": seriesFrom(day(2024, 1, 2), 3.43),
	}

	_, err := calc.Compute(usDE, yields)
	if !errors.Is(err, ErrMissingInstrument) {
		t.Errorf("expected ErrMissingInstrument, got %v", err)
	}
}

func TestCompute_NoOverlap(t *testing.T) {
	calc := NewCalculator([]domain.SpreadDefinition{usDE})

	yields := map[string][]domain.Point{
		"US_2Y":  seriesFrom(day(2024, 1, 2), 3.40, 3.41),
		"DE_10Y": seriesFrom(day(2024, 2, 2), 2.70, 2.71),
	}

	_, err := calc.Compute(usDE, yields)
	if !errors.Is(err, ErrDataAlignment) {
		t.Errorf("expected ErrDataAlignment, got %v", err)
	}
}

func TestCompute_RejectsUnsortedInput(t *testing.T) {
	calc := NewCalculator([]domain.SpreadDefinition{usDE})

	yields := map[string][]domain.Point{
		"US_2Y": {
			{Date: day(2024, 1, 3), Value: 3.41},
			{Date: day(2024, 1, 2), Value: 3.40},
		},
		"DE_10Y": seriesFrom(day(2024, 1, 2), 2.70, 2.71),
	}

	if _, err := calc.Compute(usDE, yields); err == nil {
		t.Error("expected error for unsorted minuend")
	}
}

func TestComputeAll_IsolatesFailures(t *testing.T) {
	broken := domain.SpreadDefinition{SpreadID: "broken", Minuend: "US_2Y", Subtrahend: "XX_10Y"}
	calc := NewCalculator([]domain.SpreadDefinition{usDE, broken})

	start := day(2024, 1, 2)
	yields := map[string][]domain.Point{
		"US_2Y":  seriesFrom(start, 3.40, 3.41),
		"DE_10Y": seriesFrom(start, 2.70, 2.71),
	}

	results, errs := calc.ComputeAll(yields)

	if _, ok := results["US_DE_10Y_spread"]; !ok {
		t.Error("healthy spread missing from results")
	}
	if _, ok := errs["broken"]; !ok {
		t.Error("broken spread missing from error map")
	}
	if _, ok := results["broken"]; ok {
		t.Error("broken spread must not appear in results")
	}
}

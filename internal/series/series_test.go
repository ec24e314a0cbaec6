package series

import (
	"errors"
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pts(values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: day(2024, 1, 1).AddDate(0, 0, i), Value: v}
	}
	return points
}

func TestValidateAscending(t *testing.T) {
	if err := ValidateAscending(pts(1, 2, 3)); err != nil {
		t.Fatalf("ascending series rejected: %v", err)
	}
	if err := ValidateAscending(nil); err != nil {
		t.Fatalf("empty series rejected: %v", err)
	}

	dup := []domain.Point{
		{Date: day(2024, 1, 1), Value: 1},
		{Date: day(2024, 1, 1), Value: 2},
	}
	if err := ValidateAscending(dup); !errors.Is(err, ErrUnsortedSeries) {
		t.Errorf("duplicate dates: expected ErrUnsortedSeries, got %v", err)
	}

	desc := []domain.Point{
		{Date: day(2024, 1, 2), Value: 1},
		{Date: day(2024, 1, 1), Value: 2},
	}
	if err := ValidateAscending(desc); !errors.Is(err, ErrUnsortedSeries) {
		t.Errorf("descending dates: expected ErrUnsortedSeries, got %v", err)
	}
}

func TestAsOf(t *testing.T) {
	weekly := []domain.Point{
		{Date: day(2024, 1, 2), Value: 100},
		{Date: day(2024, 1, 9), Value: 200},
	}

	// Exact hit.
	if v, ok := AsOf(weekly, day(2024, 1, 9)); !ok || v != 200 {
		t.Errorf("exact date: got %v ok=%v, want 200", v, ok)
	}

	// Between observations: nearest prior wins, never interpolated.
	if v, ok := AsOf(weekly, day(2024, 1, 5)); !ok || v != 100 {
		t.Errorf("between dates: got %v ok=%v, want 100", v, ok)
	}

	// After the last observation: still the last one.
	if v, ok := AsOf(weekly, day(2024, 2, 1)); !ok || v != 200 {
		t.Errorf("after last: got %v ok=%v, want 200", v, ok)
	}

	// Before the first observation: no value.
	if _, ok := AsOf(weekly, day(2024, 1, 1)); ok {
		t.Error("before first: expected ok=false")
	}

	if _, ok := AsOf(nil, day(2024, 1, 1)); ok {
		t.Error("empty series: expected ok=false")
	}
}

func TestIndexAsOf(t *testing.T) {
	points := pts(1, 2, 3)

	if i := IndexAsOf(points, day(2024, 1, 2)); i != 1 {
		t.Errorf("got index %d, want 1", i)
	}
	if i := IndexAsOf(points, day(2023, 12, 31)); i != -1 {
		t.Errorf("before series: got index %d, want -1", i)
	}
}

func TestDiff(t *testing.T) {
	points := pts(1.0, 1.5, 2.2)

	if v, ok := Diff(points, 2, 2); !ok || v != 2.2-1.0 {
		t.Errorf("got %v ok=%v, want 1.2", v, ok)
	}

	// Lookback predating the series start must report unavailable,
	// never zero.
	if _, ok := Diff(points, 2, 3); ok {
		t.Error("lookback past start: expected ok=false")
	}
	if _, ok := Diff(points, -1, 1); ok {
		t.Error("negative index: expected ok=false")
	}
}

func TestPctChange(t *testing.T) {
	points := pts(100, 110)

	v, ok := PctChange(points, 1, 1)
	if !ok || v != 10 {
		t.Errorf("got %v ok=%v, want 10", v, ok)
	}

	if _, ok := PctChange(points, 1, 2); ok {
		t.Error("lookback past start: expected ok=false")
	}

	zero := pts(0, 5)
	if _, ok := PctChange(zero, 1, 1); ok {
		t.Error("zero base: expected ok=false")
	}
}

func TestLast(t *testing.T) {
	if _, ok := Last(nil); ok {
		t.Error("empty series: expected ok=false")
	}
	if p, ok := Last(pts(1, 2)); !ok || p.Value != 2 {
		t.Errorf("got %v ok=%v, want value 2", p, ok)
	}
}

package volatility

import (
	"math"
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func closes(values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: day(2024, 1, 1).AddDate(0, 0, i), Value: v}
	}
	return points
}

func TestRealized_ShortSeries(t *testing.T) {
	// 30 prices give 29 returns, one short of a full window.
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1.05 + 0.001*float64(i)
	}
	if out := Realized(closes(prices...)); out != nil {
		t.Errorf("expected nil for insufficient history, got %d points", len(out))
	}
}

func TestRealized_ConstantPrices(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 1.10
	}

	out := Realized(closes(prices...))
	if len(out) != 40-1-ReturnWindow+1 {
		t.Fatalf("expected %d points, got %d", 40-1-ReturnWindow+1, len(out))
	}
	for _, p := range out {
		if p.Value != 0 {
			t.Errorf("constant prices produced non-zero vol %v on %s", p.Value, p.Date.Format("2006-01-02"))
		}
	}

	// First output lands on the 31st price date: 30 returns consumed.
	if want := day(2024, 1, 31); !out[0].Date.Equal(want) {
		t.Errorf("first vol date: got %s, want %s", out[0].Date.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}

func TestRealized_AlternatingReturns(t *testing.T) {
	// Prices alternating 1.0 and 1.01 give log returns of +r and -r with
	// r = ln(1.01). Sample stddev of a balanced +-r window is
	// r*sqrt(n/(n-1)).
	prices := make([]float64, 41)
	for i := range prices {
		if i%2 == 0 {
			prices[i] = 1.0
		} else {
			prices[i] = 1.01
		}
	}

	out := Realized(closes(prices...))
	if len(out) == 0 {
		t.Fatal("no output")
	}

	r := math.Log(1.01)
	want := r * math.Sqrt(float64(ReturnWindow)/float64(ReturnWindow-1)) *
		math.Sqrt(AnnualizationDays) * 100

	got := out[len(out)-1].Value
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("vol: got %v, want %v", got, want)
	}
}

func TestRealized_SkipsNonPositivePrices(t *testing.T) {
	prices := make([]float64, 42)
	for i := range prices {
		prices[i] = 1.05 + 0.001*float64(i)
	}
	prices[5] = 0 // bad tick

	out := Realized(closes(prices...))
	// The zero removes the two returns that touch it: 41 - 2 = 39
	// usable returns, 10 windows.
	if len(out) != 39-ReturnWindow+1 {
		t.Errorf("expected %d points, got %d", 39-ReturnWindow+1, len(out))
	}
	for _, p := range out {
		if math.IsInf(p.Value, 0) || math.IsNaN(p.Value) {
			t.Errorf("bad tick leaked into vol: %v on %s", p.Value, p.Date.Format("2006-01-02"))
		}
	}
}

package positioning

import (
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekly(values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: day(2024, 1, 2).AddDate(0, 0, 7*i), Value: v}
	}
	return points
}

func TestRanks_AverageRankTies(t *testing.T) {
	// Window [10,20,20,30,40] with a current value of 20: one value
	// strictly below, two ties, so the average-rank convention puts the
	// rank at exactly 50.
	engine := NewEngine(5, 5)
	ranks := engine.Ranks("EURUSD", weekly(10, 20, 30, 40, 20))

	last := ranks[len(ranks)-1]
	if last.Insufficient {
		t.Fatal("full window flagged insufficient")
	}
	if last.RankValue != 50 {
		t.Errorf("tied rank: got %v, want 50", last.RankValue)
	}
}

func TestRanks_Extremes(t *testing.T) {
	engine := NewEngine(4, 2)
	ranks := engine.Ranks("EURUSD", weekly(10, 20, 30, 40))

	// Max of its window: below=3, one self-tie in a window of 4.
	last := ranks[len(ranks)-1]
	want := (3 + 0.5*2) / 4 * 100
	if last.RankValue != want {
		t.Errorf("max rank: got %v, want %v", last.RankValue, want)
	}

	ranks = engine.Ranks("EURUSD", weekly(40, 30, 20, 10))
	last = ranks[len(ranks)-1]
	want = (0 + 0.5*2) / 4 * 100
	if last.RankValue != want {
		t.Errorf("min rank: got %v, want %v", last.RankValue, want)
	}
}

func TestRanks_MinObsBoundary(t *testing.T) {
	engine := NewEngine(10, 3)
	ranks := engine.Ranks("EURUSD", weekly(10, 20, 30, 40))

	// Windows of size 1 and 2 sit below the minimum.
	if !ranks[0].Insufficient || !ranks[1].Insufficient {
		t.Error("short windows not flagged insufficient")
	}
	// Size 3 is exactly the minimum and must produce a value.
	if ranks[2].Insufficient {
		t.Error("window at the minimum flagged insufficient")
	}
	if ranks[2].Rank() == nil {
		t.Error("valid rank returned nil")
	}
	if ranks[0].Rank() != nil {
		t.Error("insufficient rank must return nil, not a number")
	}
}

func TestRanks_WindowSlides(t *testing.T) {
	// With a window of 3, the earliest observations fall out: the final
	// window is [30,40,5], not the whole history.
	engine := NewEngine(3, 1)
	ranks := engine.Ranks("EURUSD", weekly(10, 20, 30, 40, 5))

	last := ranks[len(ranks)-1]
	if last.WindowSize != 3 {
		t.Fatalf("window size: got %d, want 3", last.WindowSize)
	}
	want := (0 + 0.5*2) / 3 * 100
	if last.RankValue != want {
		t.Errorf("sliding window rank: got %v, want %v", last.RankValue, want)
	}
}

func TestRanks_MonotoneInCurrentValue(t *testing.T) {
	history := []float64{15, 25, 35, 45}
	prev := -1.0
	for _, current := range []float64{5, 15, 20, 25, 50} {
		engine := NewEngine(5, 1)
		ranks := engine.Ranks("EURUSD", weekly(append(append([]float64{}, history...), current)...))
		got := ranks[len(ranks)-1].RankValue
		if got < prev {
			t.Errorf("rank decreased from %v to %v as current value rose to %v", prev, got, current)
		}
		prev = got
	}
}

func TestRanks_Idempotent(t *testing.T) {
	engine := NewEngine(5, 2).WithClock(func() time.Time { return day(2024, 6, 1) })
	points := weekly(10, 20, 30, 25, 40, 35)

	first := engine.Ranks("EURUSD", points)
	second := engine.Ranks("EURUSD", points)

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Errorf("rank %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestNetSeries(t *testing.T) {
	obs := []*domain.PositioningObservation{
		{PairID: "EURUSD", WeekEndingDate: day(2024, 1, 2), NetContracts: 6000, OpenInterest: 10000},
		{PairID: "EURUSD", WeekEndingDate: day(2024, 1, 9), NetContracts: -2500, OpenInterest: 0},
	}

	nets := NetSeries(obs)
	if len(nets) != 2 || nets[1].Value != -2500 {
		t.Errorf("unexpected net series: %+v", nets)
	}

	// Zero open interest weeks are dropped from the normalized series.
	pct := NetPctOISeries(obs)
	if len(pct) != 1 {
		t.Fatalf("expected 1 point, got %d", len(pct))
	}
	if pct[0].Value != 60 {
		t.Errorf("net pct OI: got %v, want 60", pct[0].Value)
	}
}

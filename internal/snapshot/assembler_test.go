package snapshot

import (
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daily(start time.Time, values ...float64) []domain.Point {
	points := make([]domain.Point, len(values))
	for i, v := range values {
		points[i] = domain.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return points
}

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
}

func TestAssemble_NoPrices(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)
	if snap := a.Assemble(Inputs{PairID: "EURUSD"}); snap != nil {
		t.Errorf("expected nil snapshot without prices, got %+v", snap)
	}
}

func TestAssemble_LatestDateAndDeltas(t *testing.T) {
	start := day(2024, 1, 1)
	a := NewAssembler().WithClock(fixedClock)

	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(start, 1.00, 1.01, 1.02, 1.03, 1.04, 1.05, 1.10),
	})
	if snap == nil {
		t.Fatal("nil snapshot")
	}

	if !snap.Date.Equal(day(2024, 1, 7)) {
		t.Errorf("snapshot date: got %s", snap.Date.Format("2006-01-02"))
	}
	if snap.Price != 1.10 {
		t.Errorf("price: got %v", snap.Price)
	}

	oneDay := snap.PriceChg["1D"]
	if oneDay == nil {
		t.Fatal("1D change missing")
	}
	want := (1.10/1.05 - 1) * 100
	if *oneDay != want {
		t.Errorf("1D change: got %v, want %v", *oneDay, want)
	}

	// Seven closes cannot support a 21-trading-day lookback. The delta
	// must be nil, never zero.
	if snap.PriceChg["1M"] != nil {
		t.Errorf("1M change on short history: got %v, want nil", *snap.PriceChg["1M"])
	}
	if !snap.CreatedAt.Equal(fixedClock()) {
		t.Errorf("created at: got %v", snap.CreatedAt)
	}
}

func TestAssemble_SpreadAsOfJoin(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)

	// Spread series ends one day before the price series: the snapshot
	// takes the nearest prior value rather than dropping the spread.
	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(day(2024, 1, 1), 1.05, 1.06, 1.07),
		Spreads: map[string][]domain.Point{
			"US_DE_10Y_spread": daily(day(2024, 1, 1), 0.60, 0.66),
		},
	})

	got, ok := snap.Spreads["US_DE_10Y_spread"]
	if !ok {
		t.Fatal("spread missing from snapshot")
	}
	if got != 0.66 {
		t.Errorf("spread as-of: got %v, want 0.66", got)
	}

	chg := snap.SpreadChg["US_DE_10Y_spread"]["1D"]
	if chg == nil {
		t.Fatal("1D spread change missing")
	}
	if delta := *chg; delta < 0.0599 || delta > 0.0601 {
		t.Errorf("1D spread change: got %v, want 0.06", delta)
	}
}

func TestAssemble_SpreadEntirelyAfterDate(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)

	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(day(2024, 1, 1), 1.05),
		Spreads: map[string][]domain.Point{
			"US_DE_10Y_spread": daily(day(2024, 2, 1), 0.66),
		},
	})

	if _, ok := snap.Spreads["US_DE_10Y_spread"]; ok {
		t.Error("spread with no prior-or-equal observation must be omitted")
	}
}

func TestAssemble_PositioningJoin(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)

	cotDate := day(2024, 1, 2)
	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(day(2024, 1, 1), 1.05, 1.06, 1.07, 1.08),
		NetContracts: []domain.Point{
			{Date: day(2023, 12, 26), Value: 50000},
			{Date: cotDate, Value: 60500},
		},
		NetPctOI: []domain.Point{
			{Date: cotDate, Value: 12.3},
		},
		Rank: &domain.PercentileRank{
			PairID: "EURUSD", Date: cotDate, RankValue: 97, WindowSize: 156,
		},
	})

	if snap.NetContracts == nil || *snap.NetContracts != 60500 {
		t.Fatalf("net contracts: got %v", snap.NetContracts)
	}
	if snap.PositioningDate == nil || !snap.PositioningDate.Equal(cotDate) {
		t.Errorf("positioning date: got %v, want %s", snap.PositioningDate, cotDate.Format("2006-01-02"))
	}
	if snap.NetPctOI == nil || *snap.NetPctOI != 12.3 {
		t.Errorf("net pct OI: got %v", snap.NetPctOI)
	}
	if snap.PercentileRank == nil || *snap.PercentileRank != 97 {
		t.Errorf("percentile rank: got %v", snap.PercentileRank)
	}
	if snap.WindowSize != 156 {
		t.Errorf("window size: got %d", snap.WindowSize)
	}
}

func TestAssemble_InsufficientRankStaysNil(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)

	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(day(2024, 1, 1), 1.05),
		Rank: &domain.PercentileRank{
			PairID: "EURUSD", Date: day(2024, 1, 2), RankValue: 99,
			WindowSize: 10, Insufficient: true,
		},
	})

	if snap.PercentileRank != nil {
		t.Errorf("insufficient rank leaked a value: %v", *snap.PercentileRank)
	}
}

func TestAssemble_RegimeLabel(t *testing.T) {
	a := NewAssembler().WithClock(fixedClock)

	snap := a.Assemble(Inputs{
		PairID: "EURUSD",
		Prices: daily(day(2024, 1, 1), 1.05),
		Regime: &domain.RegimeRecord{
			PairID: "EURUSD", Label: domain.RegimePositioningDominant,
		},
	})
	if snap.Label != domain.RegimePositioningDominant {
		t.Errorf("label: got %s", snap.Label)
	}

	// Without a record the label defaults to indeterminate.
	snap = a.Assemble(Inputs{
		PairID: "DXY",
		Prices: daily(day(2024, 1, 1), 104.2),
	})
	if snap.Label != domain.RegimeIndeterminate {
		t.Errorf("default label: got %s", snap.Label)
	}
}

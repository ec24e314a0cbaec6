package reporting

import (
	"strings"
	"testing"
	"time"

	"fx-regime-lab/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func testSnapshot() *domain.Snapshot {
	cotDate := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	return &domain.Snapshot{
		PairID: "EURUSD",
		Date:   time.Date(2024, 1, 19, 0, 0, 0, 0, time.UTC),
		Price:  1.0895,
		PriceChg: map[string]*float64{
			"1D": ptr(0.12), "1W": ptr(0.40), "1M": ptr(-0.80), "3M": ptr(1.10), "12M": nil,
		},
		Spreads: map[string]float64{"US_DE_10Y_spread": 0.66},
		SpreadChg: map[string]map[string]*float64{
			"US_DE_10Y_spread": {
				"1D": ptr(0.01), "1W": ptr(0.02), "1M": ptr(-0.05), "3M": ptr(-0.20), "12M": ptr(-0.74),
			},
		},
		NetContracts:    ptr(60500),
		NetPctOI:        ptr(12.3),
		PositioningDate: &cotDate,
		PercentileRank:  ptr(97),
		WindowSize:      156,
		Vol30:           ptr(7.4),
		VolPercentile:   ptr(41),
		Label:           domain.RegimePositioningDominant,
	}
}

func TestRenderCSV(t *testing.T) {
	out := RenderCSV([]*domain.Snapshot{testSnapshot()}, []string{"US_DE_10Y_spread"})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus one row, got %d lines", len(lines))
	}

	header := strings.Split(lines[0], ",")
	row := strings.Split(lines[1], ",")
	if len(header) != len(row) {
		t.Fatalf("Header has %d columns, row has %d", len(header), len(row))
	}

	cols := map[string]string{}
	for i, h := range header {
		cols[h] = row[i]
	}

	if cols["pair_id"] != "EURUSD" || cols["date"] != "2024-01-19" {
		t.Errorf("Unexpected identity columns: %v / %v", cols["pair_id"], cols["date"])
	}
	if cols["US_DE_10Y_spread"] != "0.660000" {
		t.Errorf("Expected spread 0.660000, got %q", cols["US_DE_10Y_spread"])
	}
	// Nil deltas are empty cells, not zeros.
	if cols["price_chg_12M"] != "" {
		t.Errorf("Expected empty cell for missing 12M price change, got %q", cols["price_chg_12M"])
	}
	if cols["regime"] != "POSITIONING_DOMINANT" {
		t.Errorf("Expected regime label column, got %q", cols["regime"])
	}
}

func TestRenderCSV_Deterministic(t *testing.T) {
	snaps := []*domain.Snapshot{testSnapshot()}
	ids := []string{"US_DE_10Y_spread"}
	if RenderCSV(snaps, ids) != RenderCSV(snaps, ids) {
		t.Error("Expected byte-identical CSV for identical inputs")
	}
}

func TestMorningBrief(t *testing.T) {
	pairs := []domain.Pair{
		{ID: "EURUSD", QuoteDirection: -1, SpreadID: "US_DE_10Y_spread"},
	}
	gen := NewGenerator(pairs, []string{"US_DE_10Y_spread"}, 85, 15, 0.10).
		WithClock(func() time.Time { return time.Date(2024, 1, 22, 7, 0, 0, 0, time.UTC) })

	brief := gen.MorningBrief([]*domain.Snapshot{testSnapshot()})

	for _, want := range []string{
		"G10 FX MORNING BRIEF",
		"data as of: 2024-01-19  |  COT as of: 2024-01-16",
		"US-DE 10Y",
		"+60,500 contracts",
		"CROWDED LONG  (97th pct)",
		"spread compression supports EUR strength",
		"positioning crowded long (97th pct)",
	} {
		if !strings.Contains(brief, want) {
			t.Errorf("Brief missing %q\n%s", want, brief)
		}
	}
}

func TestMorningBrief_MissingValuesRenderNA(t *testing.T) {
	snap := testSnapshot()
	snap.NetContracts = nil
	snap.NetPctOI = nil
	snap.PercentileRank = nil
	snap.PositioningDate = nil

	pairs := []domain.Pair{{ID: "EURUSD", QuoteDirection: -1, SpreadID: "US_DE_10Y_spread"}}
	gen := NewGenerator(pairs, []string{"US_DE_10Y_spread"}, 85, 15, 0.10).
		WithClock(func() time.Time { return time.Date(2024, 1, 22, 7, 0, 0, 0, time.UTC) })

	brief := gen.MorningBrief([]*domain.Snapshot{snap})

	if !strings.Contains(brief, "n/a contracts") {
		t.Errorf("Expected n/a for missing net contracts\n%s", brief)
	}
	if !strings.Contains(brief, "NO DATA") {
		t.Errorf("Expected NO DATA for missing percentile\n%s", brief)
	}
	if strings.Contains(brief, "+0 contracts") {
		t.Errorf("Missing value rendered as zero\n%s", brief)
	}
}

func TestMorningBrief_Deterministic(t *testing.T) {
	pairs := []domain.Pair{{ID: "EURUSD", QuoteDirection: -1, SpreadID: "US_DE_10Y_spread"}}
	clock := func() time.Time { return time.Date(2024, 1, 22, 7, 0, 0, 0, time.UTC) }
	snaps := []*domain.Snapshot{testSnapshot()}

	a := NewGenerator(pairs, []string{"US_DE_10Y_spread"}, 85, 15, 0.10).WithClock(clock).MorningBrief(snaps)
	b := NewGenerator(pairs, []string{"US_DE_10Y_spread"}, 85, 15, 0.10).WithClock(clock).MorningBrief(snaps)
	if a != b {
		t.Error("Expected byte-identical brief for identical inputs")
	}
}

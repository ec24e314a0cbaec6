// Package snapshot joins the latest spread values, percentile rank,
// volatility and regime label per pair into one flat dated record, the
// hand-off artifact to reporting and storage collaborators.
package snapshot

import (
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/series"
)

// Assembler builds per-pair snapshot records with lookback deltas.
type Assembler struct {
	periods []domain.DeltaPeriod
	created func() time.Time
}

// NewAssembler creates an assembler over the standard delta periods.
func NewAssembler() *Assembler {
	return &Assembler{
		periods: domain.DeltaPeriods,
		created: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the CreatedAt clock for deterministic output.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.created = now
	return a
}

// Inputs carries everything the assembler joins for one pair. All
// series are date-ascending; positioning series are weekly and joined
// as-of, never interpolated.
type Inputs struct {
	PairID string

	Prices  []domain.Point            // daily closes, drives the run date
	Spreads map[string][]domain.Point // spread_id -> daily series

	NetContracts []domain.Point // weekly
	NetPctOI     []domain.Point // weekly
	Rank         *domain.PercentileRank
	Vol30        []domain.Point
	VolRank      *domain.PercentileRank

	Regime *domain.RegimeRecord
}

// Assemble produces the snapshot for the most recent price date. Every
// lookback that predates its series start stays nil and is rendered as
// "n/a" downstream; a missing value is never reported as zero. Returns
// nil when the pair has no price data at all.
func (a *Assembler) Assemble(in Inputs) *domain.Snapshot {
	last, ok := series.Last(in.Prices)
	if !ok {
		return nil
	}
	idx := len(in.Prices) - 1

	snap := &domain.Snapshot{
		PairID:    in.PairID,
		Date:      last.Date,
		Price:     last.Value,
		PriceChg:  make(map[string]*float64, len(a.periods)),
		Spreads:   make(map[string]float64, len(in.Spreads)),
		SpreadChg: make(map[string]map[string]*float64, len(in.Spreads)),
		CreatedAt: a.created(),
		Label:     domain.RegimeIndeterminate,
	}

	for _, p := range a.periods {
		if chg, ok := series.PctChange(in.Prices, idx, p.TradingDays); ok {
			v := chg
			snap.PriceChg[p.Label] = &v
		} else {
			snap.PriceChg[p.Label] = nil
		}
	}

	for spreadID, points := range in.Spreads {
		// Spread value as of the snapshot date; a spread series can lag
		// the price calendar by a holiday or two.
		i := series.IndexAsOf(points, last.Date)
		if i < 0 {
			continue
		}
		snap.Spreads[spreadID] = points[i].Value

		deltas := make(map[string]*float64, len(a.periods))
		for _, p := range a.periods {
			if chg, ok := series.Diff(points, i, p.TradingDays); ok {
				v := chg
				deltas[p.Label] = &v
			} else {
				deltas[p.Label] = nil
			}
		}
		snap.SpreadChg[spreadID] = deltas
	}

	if i := series.IndexAsOf(in.NetContracts, last.Date); i >= 0 {
		v := in.NetContracts[i].Value
		d := in.NetContracts[i].Date
		snap.NetContracts = &v
		snap.PositioningDate = &d
	}
	if v, ok := series.AsOf(in.NetPctOI, last.Date); ok {
		snap.NetPctOI = &v
	}
	if in.Rank != nil {
		snap.PercentileRank = in.Rank.Rank()
		snap.WindowSize = in.Rank.WindowSize
	}
	if v, ok := series.AsOf(in.Vol30, last.Date); ok {
		snap.Vol30 = &v
	}
	if in.VolRank != nil {
		snap.VolPercentile = in.VolRank.Rank()
	}
	if in.Regime != nil {
		snap.Label = in.Regime.Label
	}

	return snap
}

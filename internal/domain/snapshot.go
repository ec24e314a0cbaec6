package domain

import "time"

// Delta period labels and their trading-day lookbacks. Trading days,
// not calendar days: weekend rows do not exist in the series.
var DeltaPeriods = []DeltaPeriod{
	{Label: "1D", TradingDays: 1},
	{Label: "1W", TradingDays: 5},
	{Label: "1M", TradingDays: 21},
	{Label: "3M", TradingDays: 63},
	{Label: "12M", TradingDays: 252},
}

// DeltaPeriod maps a human label to a trading-day lookback.
type DeltaPeriod struct {
	Label       string
	TradingDays int
}

// Snapshot is the per-pair per-run-date hand-off record: the latest
// spread values, positioning percentile, volatility and regime label
// joined into one row, plus lookback deltas. A lookback that predates
// the start of a series yields a nil delta, surfaced as "n/a" by the
// reporting layer, never as zero.
type Snapshot struct {
	PairID string
	Date   time.Time

	Price     float64
	PriceChg  map[string]*float64            // period label -> % change
	Spreads   map[string]float64             // spread_id -> latest value
	SpreadChg map[string]map[string]*float64 // spread_id -> period -> pp change

	NetContracts    *float64 // latest weekly positioning, as-of joined
	NetPctOI        *float64
	PositioningDate *time.Time // week-ending date the join landed on
	PercentileRank  *float64   // nil = insufficient history
	WindowSize      int

	Vol30         *float64 // 30d realized vol, annualized percent
	VolPercentile *float64

	Label     RegimeLabel
	CreatedAt time.Time
}

package domain

import "time"

// RegimeLabel names the force that best explains current price action.
type RegimeLabel string

const (
	RegimeRateDifferentialDominant RegimeLabel = "RATE_DIFFERENTIAL_DOMINANT"
	RegimePositioningDominant      RegimeLabel = "POSITIONING_DOMINANT"
	RegimeRiskSentimentDominant    RegimeLabel = "RISK_SENTIMENT_DOMINANT"
	RegimeIndeterminate            RegimeLabel = "INDETERMINATE"
)

// RegimeRecord is one classification outcome for a pair on a date.
// Corresponds to regime_records table in ClickHouse. Immutable once
// written and fully regenerable from the source series.
type RegimeRecord struct {
	PairID         string
	Date           time.Time
	SpreadID       string         // spread the trend was read from
	SpreadTrend    TrendDirection // over the classification lookback
	SpreadChangePP *float64       // pp change over lookback, nil = unavailable
	PriceChangePct *float64       // % change over lookback, nil = unavailable
	PercentileRank *float64       // nil = insufficient history
	VolPercentile  *float64       // nil = no external volatility signal
	Label          RegimeLabel
	Rule           string // name of the rule that fired, for audit
	CreatedAt      time.Time
}

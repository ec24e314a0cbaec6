// Package regime turns spread trend, price movement and positioning
// extremity into a discrete regime label per pair per date.
package regime

import (
	"time"

	"fx-regime-lab/internal/domain"
)

// Thresholds are the classification knobs. Immutable after construction;
// supplied from configuration, never read from ambient state.
type Thresholds struct {
	HighCrowding  float64 // percentile at or above which longs are crowded
	LowCrowding   float64 // percentile at or below which shorts are crowded
	FlatSpreadPP  float64 // |pp change| below this counts as flat
	CrisisVolPct  float64 // vol percentile at or above which risk sentiment dominates
	LookbackLabel string  // e.g. "12M", for audit fields only
}

// DefaultThresholds matches the desk convention: 85/15 crowding bands,
// 0.10pp flat band, 90th vol percentile crisis gate.
var DefaultThresholds = Thresholds{
	HighCrowding: 85,
	LowCrowding:  15,
	FlatSpreadPP: 0.10,
	CrisisVolPct: 90,
}

// Input is everything the classifier needs for a single pair and date.
// Nil pointers mean the input was not available: insufficient percentile
// history, a series shorter than the lookback, or no external
// volatility signal.
type Input struct {
	PairID string
	Date   time.Time

	SpreadID       string
	SpreadChangePP *float64 // spread change over the lookback
	PriceChangePct *float64 // price change over the same lookback
	PercentileRank *float64 // nil = insufficient history
	VolPercentile  *float64 // external signal, nil = absent

	// QuoteDirection is +1 when a widening spread implies the pair
	// trades higher (USDJPY, DXY) and -1 when it implies lower (EURUSD).
	QuoteDirection int
}

// rule is one priority-ordered classification step. Rules are evaluated
// in slice order, first match wins, so regimes can be added without
// restructuring control flow.
type rule struct {
	name  string
	when  func(in Input, t Thresholds) bool
	label domain.RegimeLabel
}

// Classifier is a pure, stateless decision function over the ordered
// rule list. Every record is independently derivable from its inputs,
// which makes classification replayable and auditable.
type Classifier struct {
	thresholds Thresholds
	rules      []rule
	created    func() time.Time
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{
		thresholds: t,
		rules: []rule{
			{
				name:  "insufficient_inputs",
				when:  insufficientInputs,
				label: domain.RegimeIndeterminate,
			},
			{
				name:  "crowded_positioning_confirmed",
				when:  crowdedPositioningConfirmed,
				label: domain.RegimePositioningDominant,
			},
			{
				name:  "price_follows_spread",
				when:  priceFollowsSpread,
				label: domain.RegimeRateDifferentialDominant,
			},
			{
				name:  "crisis_volatility",
				when:  crisisVolatility,
				label: domain.RegimeRiskSentimentDominant,
			},
		},
		created: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the CreatedAt clock for deterministic output.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.created = now
	return c
}

// Classify produces exactly one regime record for the input. Falls
// through to Indeterminate when no rule matches; the classifier never
// guesses.
func (c *Classifier) Classify(in Input) *domain.RegimeRecord {
	record := &domain.RegimeRecord{
		PairID:         in.PairID,
		Date:           in.Date,
		SpreadID:       in.SpreadID,
		SpreadTrend:    spreadTrend(in.SpreadChangePP, c.thresholds.FlatSpreadPP),
		SpreadChangePP: in.SpreadChangePP,
		PriceChangePct: in.PriceChangePct,
		PercentileRank: in.PercentileRank,
		VolPercentile:  in.VolPercentile,
		Label:          domain.RegimeIndeterminate,
		Rule:           "fallthrough",
		CreatedAt:      c.created(),
	}

	for _, r := range c.rules {
		if r.when(in, c.thresholds) {
			record.Label = r.label
			record.Rule = r.name
			return record
		}
	}
	return record
}

// insufficientInputs: percentile rank flagged, or a required series too
// short for the lookback.
func insufficientInputs(in Input, _ Thresholds) bool {
	return in.PercentileRank == nil || in.SpreadChangePP == nil || in.PriceChangePct == nil
}

// crowdedPositioningConfirmed: positioning at a crowding extreme and the
// price moving with the crowd. An extreme rank never reaches the
// rate-differential rule regardless of what spreads did.
func crowdedPositioningConfirmed(in Input, t Thresholds) bool {
	rank := *in.PercentileRank
	crowdedLong := rank >= t.HighCrowding
	crowdedShort := rank <= t.LowCrowding
	if !crowdedLong && !crowdedShort {
		return false
	}

	// The futures market is the foreign currency: crowded longs push the
	// pair against USD strength, i.e. opposite the quote direction.
	crowdSign := 1
	if crowdedShort {
		crowdSign = -1
	}
	positioningSign := -in.QuoteDirection * crowdSign

	return sign(*in.PriceChangePct) == positioningSign && positioningSign != 0
}

// priceFollowsSpread: price moved the way the spread implies and
// positioning sits in the neutral band.
func priceFollowsSpread(in Input, t Thresholds) bool {
	rank := *in.PercentileRank
	if rank < t.LowCrowding || rank > t.HighCrowding {
		return false
	}

	spreadSign := 0
	if *in.SpreadChangePP > t.FlatSpreadPP {
		spreadSign = 1
	} else if *in.SpreadChangePP < -t.FlatSpreadPP {
		spreadSign = -1
	}
	impliedPriceSign := spreadSign * in.QuoteDirection

	return impliedPriceSign != 0 && sign(*in.PriceChangePct) == impliedPriceSign
}

// crisisVolatility: the externally supplied dispersion signal exceeds
// the crisis threshold. Without the signal this rule is unreachable.
func crisisVolatility(in Input, t Thresholds) bool {
	return in.VolPercentile != nil && *in.VolPercentile >= t.CrisisVolPct
}

func spreadTrend(changePP *float64, flatPP float64) domain.TrendDirection {
	if changePP == nil {
		return domain.TrendFlat
	}
	switch {
	case *changePP > flatPP:
		return domain.TrendWidening
	case *changePP < -flatPP:
		return domain.TrendNarrowing
	default:
		return domain.TrendFlat
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

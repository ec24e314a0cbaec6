package domain

import "time"

// SpreadDefinition declares one rate-differential series as
// minuend minus subtrahend. Definitions come from configuration,
// never hard-coded per pair.
type SpreadDefinition struct {
	SpreadID   string // e.g. "US_DE_10Y_spread"
	Minuend    string // instrument id, e.g. "US_2Y"
	Subtrahend string // instrument id, e.g. "DE_10Y"
}

// SpreadPoint is one computed spread value. Derived data: always
// recomputable from the two source yield series, persisted only as cache.
type SpreadPoint struct {
	SpreadID  string
	Date      time.Time
	Value     float64 // minuend yield minus subtrahend yield, percentage points
	CreatedAt time.Time
}

// TrendDirection describes how a spread moved over a lookback window.
type TrendDirection string

const (
	TrendNarrowing TrendDirection = "NARROWING"
	TrendWidening  TrendDirection = "WIDENING"
	TrendFlat      TrendDirection = "FLAT"
)

// DefaultSpreadDefinitions mirrors the desk's standard set: US 2Y against
// the foreign leg both same-maturity and cross-maturity, plus the US curve.
var DefaultSpreadDefinitions = []SpreadDefinition{
	{SpreadID: "US_DE_10Y_spread", Minuend: "US_2Y", Subtrahend: "DE_10Y"},
	{SpreadID: "US_DE_2Y_spread", Minuend: "US_2Y", Subtrahend: "DE_2Y"},
	{SpreadID: "US_JP_10Y_spread", Minuend: "US_2Y", Subtrahend: "JP_10Y"},
	{SpreadID: "US_JP_2Y_spread", Minuend: "US_2Y", Subtrahend: "JP_2Y"},
	{SpreadID: "US_curve", Minuend: "US_10Y", Subtrahend: "US_2Y"},
}

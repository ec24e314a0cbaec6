package domain

// Pair describes one tracked FX pair (or index) and how its quote
// relates to the US rate differential.
type Pair struct {
	ID string

	// QuoteDirection is +1 when a widening US spread implies the pair
	// trades higher (USDJPY, DXY) and -1 when it implies lower (EURUSD,
	// quoted with USD as the denominator).
	QuoteDirection int

	// SpreadID names the primary rate differential used for regime
	// classification. Empty for price-only series without a futures
	// market, like DXY.
	SpreadID string
}

// DefaultPairs is the desk's standard watch list.
var DefaultPairs = []Pair{
	{ID: "EURUSD", QuoteDirection: -1, SpreadID: "US_DE_10Y_spread"},
	{ID: "USDJPY", QuoteDirection: 1, SpreadID: "US_JP_10Y_spread"},
	{ID: "DXY", QuoteDirection: 1},
}

package domain

import "time"

// PercentileRank places one positioning observation inside its trailing
// history window. Corresponds to percentile_ranks table in ClickHouse.
//
// Insufficient=true means the window held fewer than the configured
// minimum number of observations; RankValue is meaningless in that case
// and consumers must treat the record distinctly from a valid 0th or
// 100th percentile.
type PercentileRank struct {
	PairID       string
	Date         time.Time
	RankValue    float64 // 0-100, average-rank convention for ties
	WindowSize   int     // observations actually in the window
	Insufficient bool
	CreatedAt    time.Time
}

// Rank returns the numeric rank, or nil when history was insufficient.
func (p *PercentileRank) Rank() *float64 {
	if p.Insufficient {
		return nil
	}
	v := p.RankValue
	return &v
}

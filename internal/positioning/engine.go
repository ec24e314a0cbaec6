// Package positioning computes net speculative positioning and its
// trailing percentile rank from weekly CFTC leveraged-money data.
package positioning

import (
	"time"

	"fx-regime-lab/internal/domain"
)

// Engine ranks each observation against its trailing history window.
// Stateless between runs: the full rank series is recomputed every time
// so the window composition is always correct relative to the latest
// data. Weekly cadence keeps that cheap.
type Engine struct {
	window  int // most recent W observations, current included
	minObs  int // below this the rank is flagged insufficient
	created func() time.Time
}

// NewEngine creates an engine with the given trailing window length and
// minimum observation count. Typical values: window 156 (3 years of
// weekly reports), minObs 52.
func NewEngine(window, minObs int) *Engine {
	return &Engine{
		window:  window,
		minObs:  minObs,
		created: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets the CreatedAt clock for deterministic output.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.created = now
	return e
}

// NetSeries extracts net contracts as a point series.
func NetSeries(obs []*domain.PositioningObservation) []domain.Point {
	points := make([]domain.Point, 0, len(obs))
	for _, o := range obs {
		points = append(points, domain.Point{Date: o.WeekEndingDate, Value: o.NetContracts})
	}
	return points
}

// NetPctOISeries extracts net position as percent of open interest,
// normalizing across time as the market grows. Weeks with zero open
// interest are dropped.
func NetPctOISeries(obs []*domain.PositioningObservation) []domain.Point {
	points := make([]domain.Point, 0, len(obs))
	for _, o := range obs {
		if o.OpenInterest == 0 {
			continue
		}
		points = append(points, domain.Point{Date: o.WeekEndingDate, Value: o.NetContracts / o.OpenInterest * 100})
	}
	return points
}

// Ranks computes the percentile rank series for a date-ascending point
// series. For each date the window is the most recent W observations at
// or before it, current observation included.
//
// Tie convention is average-rank: the rank of the current value is the
// mean of the positions it would occupy in the sorted window, expressed
// as a fraction of the window size times 100. Equivalently
//
//	rank = (strictly_below + 0.5*(ties+1)) / W * 100
//
// where ties counts equal values including the current one. A window of
// [10,20,20,30,40] ranks a current value of 20 at exactly 50. The form
// avoids discontinuities when the current value repeats in history and
// is monotonically non-decreasing in the current value.
func (e *Engine) Ranks(pairID string, points []domain.Point) []*domain.PercentileRank {
	now := e.created()
	ranks := make([]*domain.PercentileRank, 0, len(points))

	for i := range points {
		start := i + 1 - e.window
		if start < 0 {
			start = 0
		}
		window := points[start : i+1]

		r := &domain.PercentileRank{
			PairID:     pairID,
			Date:       points[i].Date,
			WindowSize: len(window),
			CreatedAt:  now,
		}

		if len(window) < e.minObs {
			r.Insufficient = true
			ranks = append(ranks, r)
			continue
		}

		current := points[i].Value
		below, ties := 0, 0
		for _, p := range window {
			switch {
			case p.Value < current:
				below++
			case p.Value == current:
				ties++
			}
		}
		// ties >= 1 always: the current observation matches itself.
		r.RankValue = (float64(below) + 0.5*float64(ties+1)) / float64(len(window)) * 100
		ranks = append(ranks, r)
	}

	return ranks
}

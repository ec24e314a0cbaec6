package stub

import (
	"context"
	"time"

	"fx-regime-lab/internal/domain"
)

// StubYieldSource returns fixed in-memory yield observations for testing.
// Observations can be intentionally unordered to test normalization.
// Implements ingestion.YieldSource interface.
type StubYieldSource struct {
	obs []*domain.YieldObservation
}

// NewStubYieldSource creates a new stub yield source with the given observations.
func NewStubYieldSource(obs []*domain.YieldObservation) *StubYieldSource {
	return &StubYieldSource{obs: obs}
}

// Fetch returns observations matching the instrument and date range.
// Returns copies to prevent mutation.
func (s *StubYieldSource) Fetch(_ context.Context, instrumentID string, from, to time.Time) ([]*domain.YieldObservation, error) {
	var result []*domain.YieldObservation
	for _, o := range s.obs {
		if o.InstrumentID == instrumentID && !o.Date.Before(from) && !o.Date.After(to) {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

// StubPriceSource returns fixed in-memory price observations for testing.
// Implements ingestion.PriceSource interface.
type StubPriceSource struct {
	obs []*domain.PriceObservation
}

// NewStubPriceSource creates a new stub price source.
func NewStubPriceSource(obs []*domain.PriceObservation) *StubPriceSource {
	return &StubPriceSource{obs: obs}
}

// Fetch returns observations matching the pair and date range.
func (s *StubPriceSource) Fetch(_ context.Context, pairID string, from, to time.Time) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation
	for _, o := range s.obs {
		if o.PairID == pairID && !o.Date.Before(from) && !o.Date.After(to) {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

// StubPositioningSource returns fixed in-memory positioning observations
// for testing. Implements ingestion.PositioningSource interface.
type StubPositioningSource struct {
	obs []*domain.PositioningObservation
}

// NewStubPositioningSource creates a new stub positioning source.
func NewStubPositioningSource(obs []*domain.PositioningObservation) *StubPositioningSource {
	return &StubPositioningSource{obs: obs}
}

// Fetch returns observations within the date range, all pairs.
func (s *StubPositioningSource) Fetch(_ context.Context, from, to time.Time) ([]*domain.PositioningObservation, error) {
	var result []*domain.PositioningObservation
	for _, o := range s.obs {
		if !o.WeekEndingDate.Before(from) && !o.WeekEndingDate.After(to) {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

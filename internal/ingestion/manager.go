package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/series"
	"fx-regime-lab/internal/storage"
)

// Manager orchestrates ingestion from provider sources to storage.
// It normalizes fetched observations (dedup keep-last, ascending sort,
// monotonicity check) and only inserts rows newer than what the store
// already holds, so a daily rerun never trips duplicate rejection.
type Manager struct {
	yieldSources      map[string]YieldSource // keyed by instrument_id
	priceSource       PriceSource
	positioningSource PositioningSource

	yieldStore       storage.YieldStore
	priceStore       storage.PriceStore
	positioningStore storage.PositioningStore
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	YieldSources      map[string]YieldSource
	PriceSource       PriceSource
	PositioningSource PositioningSource

	YieldStore       storage.YieldStore
	PriceStore       storage.PriceStore
	PositioningStore storage.PositioningStore
}

// NewManager creates a new ingestion manager with the provided sources and stores.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		yieldSources:      opts.YieldSources,
		priceSource:       opts.PriceSource,
		positioningSource: opts.PositioningSource,
		yieldStore:        opts.YieldStore,
		priceStore:        opts.PriceStore,
		positioningStore:  opts.PositioningStore,
	}
}

// IngestYields fetches one instrument's yields and stores the rows newer
// than the latest stored date. Returns count of inserted observations.
func (m *Manager) IngestYields(ctx context.Context, instrumentID string, from, to time.Time) (int, error) {
	source, ok := m.yieldSources[instrumentID]
	if !ok || m.yieldStore == nil {
		return 0, nil
	}

	obs, err := source.Fetch(ctx, instrumentID, from, to)
	if err != nil {
		return 0, err
	}

	obs = dedupYields(obs)
	obs, err = m.trimKnownYields(ctx, instrumentID, obs)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	points := make([]domain.Point, len(obs))
	for i, o := range obs {
		points[i] = domain.Point{Date: o.Date, Value: o.Value}
	}
	if err := series.ValidateAscending(points); err != nil {
		return 0, fmt.Errorf("yields %s: %w", instrumentID, err)
	}

	if err := m.yieldStore.InsertBulk(ctx, obs); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// IngestPrices fetches one pair's closes and stores the rows newer than
// the latest stored date. Returns count of inserted observations.
func (m *Manager) IngestPrices(ctx context.Context, pairID string, from, to time.Time) (int, error) {
	if m.priceSource == nil || m.priceStore == nil {
		return 0, nil
	}

	obs, err := m.priceSource.Fetch(ctx, pairID, from, to)
	if err != nil {
		return 0, err
	}

	obs = dedupPrices(obs)
	obs, err = m.trimKnownPrices(ctx, pairID, obs)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	points := make([]domain.Point, len(obs))
	for i, o := range obs {
		points[i] = domain.Point{Date: o.Date, Value: o.Price}
	}
	if err := series.ValidateAscending(points); err != nil {
		return 0, fmt.Errorf("prices %s: %w", pairID, err)
	}

	if err := m.priceStore.InsertBulk(ctx, obs); err != nil {
		return 0, err
	}
	return len(obs), nil
}

// IngestPositioning fetches weekly positioning for all configured pairs
// and stores the rows newer than what each pair already has. Returns
// count of inserted observations.
func (m *Manager) IngestPositioning(ctx context.Context, from, to time.Time) (int, error) {
	if m.positioningSource == nil || m.positioningStore == nil {
		return 0, nil
	}

	obs, err := m.positioningSource.Fetch(ctx, from, to)
	if err != nil {
		return 0, err
	}

	byPair := make(map[string][]*domain.PositioningObservation)
	for _, o := range obs {
		byPair[o.PairID] = append(byPair[o.PairID], o)
	}

	// Fixed pair order keeps insert order deterministic.
	pairs := make([]string, 0, len(byPair))
	for pairID := range byPair {
		pairs = append(pairs, pairID)
	}
	sort.Strings(pairs)

	total := 0
	for _, pairID := range pairs {
		pairObs := dedupPositioning(byPair[pairID])
		pairObs, err := m.trimKnownPositioning(ctx, pairID, pairObs)
		if err != nil {
			return total, err
		}
		if len(pairObs) == 0 {
			continue
		}

		points := make([]domain.Point, len(pairObs))
		for i, o := range pairObs {
			points[i] = domain.Point{Date: o.WeekEndingDate, Value: o.NetContracts}
		}
		if err := series.ValidateAscending(points); err != nil {
			return total, fmt.Errorf("positioning %s: %w", pairID, err)
		}

		if err := m.positioningStore.InsertBulk(ctx, pairObs); err != nil {
			return total, err
		}
		total += len(pairObs)
	}

	return total, nil
}

// trimKnownYields drops observations at or before the store's latest date.
func (m *Manager) trimKnownYields(ctx context.Context, instrumentID string, obs []*domain.YieldObservation) ([]*domain.YieldObservation, error) {
	latest, err := m.yieldStore.LatestDate(ctx, instrumentID)
	if errors.Is(err, storage.ErrNotFound) {
		return obs, nil
	}
	if err != nil {
		return nil, err
	}
	var fresh []*domain.YieldObservation
	for _, o := range obs {
		if o.Date.After(latest) {
			fresh = append(fresh, o)
		}
	}
	return fresh, nil
}

func (m *Manager) trimKnownPrices(ctx context.Context, pairID string, obs []*domain.PriceObservation) ([]*domain.PriceObservation, error) {
	latest, err := m.priceStore.LatestDate(ctx, pairID)
	if errors.Is(err, storage.ErrNotFound) {
		return obs, nil
	}
	if err != nil {
		return nil, err
	}
	var fresh []*domain.PriceObservation
	for _, o := range obs {
		if o.Date.After(latest) {
			fresh = append(fresh, o)
		}
	}
	return fresh, nil
}

func (m *Manager) trimKnownPositioning(ctx context.Context, pairID string, obs []*domain.PositioningObservation) ([]*domain.PositioningObservation, error) {
	latest, err := m.positioningStore.LatestDate(ctx, pairID)
	if errors.Is(err, storage.ErrNotFound) {
		return obs, nil
	}
	if err != nil {
		return nil, err
	}
	var fresh []*domain.PositioningObservation
	for _, o := range obs {
		if o.WeekEndingDate.After(latest) {
			fresh = append(fresh, o)
		}
	}
	return fresh, nil
}

// dedupYields keeps the last occurrence per date and sorts ascending.
// Providers republish corrected values; last one wins.
func dedupYields(obs []*domain.YieldObservation) []*domain.YieldObservation {
	byDate := make(map[time.Time]*domain.YieldObservation, len(obs))
	for _, o := range obs {
		byDate[domain.Day(o.Date)] = o
	}
	result := make([]*domain.YieldObservation, 0, len(byDate))
	for _, o := range byDate {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func dedupPrices(obs []*domain.PriceObservation) []*domain.PriceObservation {
	byDate := make(map[time.Time]*domain.PriceObservation, len(obs))
	for _, o := range obs {
		byDate[domain.Day(o.Date)] = o
	}
	result := make([]*domain.PriceObservation, 0, len(byDate))
	for _, o := range byDate {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func dedupPositioning(obs []*domain.PositioningObservation) []*domain.PositioningObservation {
	byDate := make(map[time.Time]*domain.PositioningObservation, len(obs))
	for _, o := range obs {
		byDate[domain.Day(o.WeekEndingDate)] = o
	}
	result := make([]*domain.PositioningObservation, 0, len(byDate))
	for _, o := range byDate {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].WeekEndingDate.Before(result[j].WeekEndingDate)
	})
	return result
}

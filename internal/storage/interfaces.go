package storage

import (
	"context"
	"time"

	"fx-regime-lab/internal/domain"
)

// YieldStore provides access to yield_observations storage.
type YieldStore interface {
	// InsertBulk adds multiple observations atomically. Fails the entire
	// batch on any duplicate (instrument_id, date).
	InsertBulk(ctx context.Context, obs []*domain.YieldObservation) error

	// GetByInstrument retrieves all observations for an instrument,
	// ordered by date ASC.
	GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.YieldObservation, error)

	// GetByDateRange retrieves observations within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, instrumentID string, start, end time.Time) ([]*domain.YieldObservation, error)

	// LatestDate returns the most recent stored date for an instrument.
	// Returns ErrNotFound when the instrument has no data.
	LatestDate(ctx context.Context, instrumentID string) (time.Time, error)
}

// PriceStore provides access to price_observations storage.
type PriceStore interface {
	// InsertBulk adds multiple observations atomically. Fails the entire
	// batch on any duplicate (pair_id, date).
	InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error

	// GetByPair retrieves all observations for a pair, ordered by date ASC.
	GetByPair(ctx context.Context, pairID string) ([]*domain.PriceObservation, error)

	// GetByDateRange retrieves observations within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, pairID string, start, end time.Time) ([]*domain.PriceObservation, error)

	// LatestDate returns the most recent stored date for a pair.
	// Returns ErrNotFound when the pair has no data.
	LatestDate(ctx context.Context, pairID string) (time.Time, error)
}

// PositioningStore provides access to positioning_observations storage.
type PositioningStore interface {
	// InsertBulk adds multiple observations atomically. Fails the entire
	// batch on any duplicate (pair_id, week_ending_date).
	InsertBulk(ctx context.Context, obs []*domain.PositioningObservation) error

	// GetByPair retrieves all observations for a pair, ordered by
	// week_ending_date ASC.
	GetByPair(ctx context.Context, pairID string) ([]*domain.PositioningObservation, error)

	// GetByDateRange retrieves observations within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, pairID string, start, end time.Time) ([]*domain.PositioningObservation, error)

	// LatestDate returns the most recent stored week-ending date for a
	// pair. Returns ErrNotFound when the pair has no data.
	LatestDate(ctx context.Context, pairID string) (time.Time, error)
}

// SpreadStore provides access to spread_points storage. Spread series
// are derived cache: deterministically recomputed from the source yield
// series each run, never independent truth.
type SpreadStore interface {
	// InsertBulk adds multiple points. Fails the entire batch on any
	// duplicate (spread_id, date).
	InsertBulk(ctx context.Context, points []*domain.SpreadPoint) error

	// GetBySpread retrieves all points for a spread, ordered by date ASC.
	GetBySpread(ctx context.Context, spreadID string) ([]*domain.SpreadPoint, error)

	// LatestDate returns the most recent stored date for a spread.
	// Returns ErrNotFound when the spread has no data.
	LatestDate(ctx context.Context, spreadID string) (time.Time, error)
}

// PercentileStore provides access to percentile_ranks storage.
type PercentileStore interface {
	// InsertBulk adds multiple ranks. Fails the entire batch on any
	// duplicate (pair_id, date).
	InsertBulk(ctx context.Context, ranks []*domain.PercentileRank) error

	// GetByPair retrieves all ranks for a pair, ordered by date ASC.
	GetByPair(ctx context.Context, pairID string) ([]*domain.PercentileRank, error)

	// LatestDate returns the most recent stored date for a pair.
	// Returns ErrNotFound when the pair has no data.
	LatestDate(ctx context.Context, pairID string) (time.Time, error)
}

// RegimeRecordStore provides access to regime_records storage.
type RegimeRecordStore interface {
	// InsertBulk adds multiple records. Fails the entire batch on any
	// duplicate (pair_id, date).
	InsertBulk(ctx context.Context, records []*domain.RegimeRecord) error

	// GetByPair retrieves all records for a pair, ordered by date ASC.
	GetByPair(ctx context.Context, pairID string) ([]*domain.RegimeRecord, error)

	// GetByDate retrieves the records of every pair for one date.
	GetByDate(ctx context.Context, date time.Time) ([]*domain.RegimeRecord, error)
}

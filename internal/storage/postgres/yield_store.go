package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// YieldStore implements storage.YieldStore using PostgreSQL.
type YieldStore struct {
	pool *Pool
}

// NewYieldStore creates a new YieldStore.
func NewYieldStore(pool *Pool) *YieldStore {
	return &YieldStore{pool: pool}
}

// Compile-time interface check.
var _ storage.YieldStore = (*YieldStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch
// on any duplicate (instrument_id, date).
func (s *YieldStore) InsertBulk(ctx context.Context, obs []*domain.YieldObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO yield_observations (instrument_id, date, value)
		VALUES ($1, $2, $3)
	`

	for _, o := range obs {
		if o == nil || o.InstrumentID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query, o.InstrumentID, o.Date, o.Value)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert yield observation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByInstrument retrieves all observations for an instrument, ordered by date ASC.
func (s *YieldStore) GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.YieldObservation, error) {
	query := `
		SELECT instrument_id, date, value, created_at
		FROM yield_observations
		WHERE instrument_id = $1
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("get yields by instrument: %w", err)
	}
	defer rows.Close()

	return scanYields(rows)
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *YieldStore) GetByDateRange(ctx context.Context, instrumentID string, start, end time.Time) ([]*domain.YieldObservation, error) {
	query := `
		SELECT instrument_id, date, value, created_at
		FROM yield_observations
		WHERE instrument_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, instrumentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get yields by date range: %w", err)
	}
	defer rows.Close()

	return scanYields(rows)
}

// LatestDate returns the most recent stored date for an instrument.
func (s *YieldStore) LatestDate(ctx context.Context, instrumentID string) (time.Time, error) {
	query := `
		SELECT date
		FROM yield_observations
		WHERE instrument_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	var date time.Time
	err := s.pool.QueryRow(ctx, query, instrumentID).Scan(&date)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest yield date: %w", err)
	}
	return domain.Day(date), nil
}

// scanYields scans multiple rows into a slice of YieldObservation.
func scanYields(rows pgx.Rows) ([]*domain.YieldObservation, error) {
	var obs []*domain.YieldObservation

	for rows.Next() {
		var o domain.YieldObservation

		err := rows.Scan(&o.InstrumentID, &o.Date, &o.Value, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan yield row: %w", err)
		}
		o.Date = domain.Day(o.Date)

		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate yield rows: %w", err)
	}

	return obs, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// PriceStore implements storage.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *Pool
}

// NewPriceStore creates a new PriceStore.
func NewPriceStore(pool *Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceStore = (*PriceStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch
// on any duplicate (pair_id, date).
func (s *PriceStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_observations (pair_id, date, price)
		VALUES ($1, $2, $3)
	`

	for _, o := range obs {
		if o == nil || o.PairID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query, o.PairID, o.Date, o.Price)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price observation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByPair retrieves all observations for a pair, ordered by date ASC.
func (s *PriceStore) GetByPair(ctx context.Context, pairID string) ([]*domain.PriceObservation, error) {
	query := `
		SELECT pair_id, date, price, created_at
		FROM price_observations
		WHERE pair_id = $1
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("get prices by pair: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *PriceStore) GetByDateRange(ctx context.Context, pairID string, start, end time.Time) ([]*domain.PriceObservation, error) {
	query := `
		SELECT pair_id, date, price, created_at
		FROM price_observations
		WHERE pair_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get prices by date range: %w", err)
	}
	defer rows.Close()

	return scanPrices(rows)
}

// LatestDate returns the most recent stored date for a pair.
func (s *PriceStore) LatestDate(ctx context.Context, pairID string) (time.Time, error) {
	query := `
		SELECT date
		FROM price_observations
		WHERE pair_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	var date time.Time
	err := s.pool.QueryRow(ctx, query, pairID).Scan(&date)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest price date: %w", err)
	}
	return domain.Day(date), nil
}

// scanPrices scans multiple rows into a slice of PriceObservation.
func scanPrices(rows pgx.Rows) ([]*domain.PriceObservation, error) {
	var obs []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation

		err := rows.Scan(&o.PairID, &o.Date, &o.Price, &o.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		o.Date = domain.Day(o.Date)

		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rows: %w", err)
	}

	return obs, nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// PositioningStore implements storage.PositioningStore using PostgreSQL.
type PositioningStore struct {
	pool *Pool
}

// NewPositioningStore creates a new PositioningStore.
func NewPositioningStore(pool *Pool) *PositioningStore {
	return &PositioningStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositioningStore = (*PositioningStore)(nil)

// InsertBulk adds multiple observations atomically. Fails entire batch
// on any duplicate (pair_id, week_ending_date).
func (s *PositioningStore) InsertBulk(ctx context.Context, obs []*domain.PositioningObservation) error {
	if len(obs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO positioning_observations (
			pair_id, week_ending_date, long_contracts, short_contracts, net_contracts, open_interest
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, o := range obs {
		if o == nil || o.PairID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			o.PairID,
			o.WeekEndingDate,
			o.LongContracts,
			o.ShortContracts,
			o.NetContracts,
			o.OpenInterest,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert positioning observation in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByPair retrieves all observations for a pair, ordered by week_ending_date ASC.
func (s *PositioningStore) GetByPair(ctx context.Context, pairID string) ([]*domain.PositioningObservation, error) {
	query := `
		SELECT pair_id, week_ending_date, long_contracts, short_contracts, net_contracts, open_interest, created_at
		FROM positioning_observations
		WHERE pair_id = $1
		ORDER BY week_ending_date ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("get positioning by pair: %w", err)
	}
	defer rows.Close()

	return scanPositioning(rows)
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *PositioningStore) GetByDateRange(ctx context.Context, pairID string, start, end time.Time) ([]*domain.PositioningObservation, error) {
	query := `
		SELECT pair_id, week_ending_date, long_contracts, short_contracts, net_contracts, open_interest, created_at
		FROM positioning_observations
		WHERE pair_id = $1 AND week_ending_date >= $2 AND week_ending_date <= $3
		ORDER BY week_ending_date ASC
	`

	rows, err := s.pool.Query(ctx, query, pairID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get positioning by date range: %w", err)
	}
	defer rows.Close()

	return scanPositioning(rows)
}

// LatestDate returns the most recent stored week-ending date for a pair.
func (s *PositioningStore) LatestDate(ctx context.Context, pairID string) (time.Time, error) {
	query := `
		SELECT week_ending_date
		FROM positioning_observations
		WHERE pair_id = $1
		ORDER BY week_ending_date DESC
		LIMIT 1
	`

	var date time.Time
	err := s.pool.QueryRow(ctx, query, pairID).Scan(&date)
	if err != nil {
		if isNotFoundError(err) {
			return time.Time{}, storage.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("latest positioning date: %w", err)
	}
	return domain.Day(date), nil
}

// scanPositioning scans multiple rows into a slice of PositioningObservation.
func scanPositioning(rows pgx.Rows) ([]*domain.PositioningObservation, error) {
	var obs []*domain.PositioningObservation

	for rows.Next() {
		var o domain.PositioningObservation

		err := rows.Scan(
			&o.PairID,
			&o.WeekEndingDate,
			&o.LongContracts,
			&o.ShortContracts,
			&o.NetContracts,
			&o.OpenInterest,
			&o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan positioning row: %w", err)
		}
		o.WeekEndingDate = domain.Day(o.WeekEndingDate)

		obs = append(obs, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate positioning rows: %w", err)
	}

	return obs, nil
}

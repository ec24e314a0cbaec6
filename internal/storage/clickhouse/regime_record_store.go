package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/storage"
)

// RegimeRecordStore implements storage.RegimeRecordStore using ClickHouse.
type RegimeRecordStore struct {
	conn *Conn
}

// NewRegimeRecordStore creates a new RegimeRecordStore.
func NewRegimeRecordStore(conn *Conn) *RegimeRecordStore {
	return &RegimeRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RegimeRecordStore = (*RegimeRecordStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate (pair_id, date).
func (s *RegimeRecordStore) InsertBulk(ctx context.Context, records []*domain.RegimeRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		pairID string
		date   time.Time
	}
	seen := make(map[key]struct{})
	for _, r := range records {
		k := key{r.PairID, domain.Day(r.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.PairID, r.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO regime_records (
			pair_id, date, spread_id, spread_trend, spread_change_pp,
			price_change_pct, percentile_rank, vol_percentile, label, rule, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			r.PairID, domain.Day(r.Date), r.SpreadID, string(r.SpreadTrend),
			r.SpreadChangePP, r.PriceChangePct, r.PercentileRank, r.VolPercentile,
			string(r.Label), r.Rule, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPair retrieves all records for a pair, ordered by date ASC.
func (s *RegimeRecordStore) GetByPair(ctx context.Context, pairID string) ([]*domain.RegimeRecord, error) {
	query := `
		SELECT pair_id, date, spread_id, spread_trend, spread_change_pp,
		       price_change_pct, percentile_rank, vol_percentile, label, rule, created_at
		FROM regime_records
		WHERE pair_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, pairID)
	if err != nil {
		return nil, fmt.Errorf("query by pair id: %w", err)
	}
	defer rows.Close()

	return scanRegimeRecords(rows)
}

// GetByDate retrieves the records of every pair for one date.
func (s *RegimeRecordStore) GetByDate(ctx context.Context, date time.Time) ([]*domain.RegimeRecord, error) {
	query := `
		SELECT pair_id, date, spread_id, spread_trend, spread_change_pp,
		       price_change_pct, percentile_rank, vol_percentile, label, rule, created_at
		FROM regime_records
		WHERE date = ?
		ORDER BY pair_id ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query by date: %w", err)
	}
	defer rows.Close()

	return scanRegimeRecords(rows)
}

// exists checks if a record with the given key exists.
func (s *RegimeRecordStore) exists(ctx context.Context, pairID string, date time.Time) (bool, error) {
	query := `
		SELECT count(*) FROM regime_records
		WHERE pair_id = ? AND date = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, pairID, domain.Day(date)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanRegimeRecords scans multiple rows.
func scanRegimeRecords(rows chRows) ([]*domain.RegimeRecord, error) {
	var records []*domain.RegimeRecord

	for rows.Next() {
		var r domain.RegimeRecord
		var trend, label string

		err := rows.Scan(
			&r.PairID, &r.Date, &r.SpreadID, &trend, &r.SpreadChangePP,
			&r.PriceChangePct, &r.PercentileRank, &r.VolPercentile,
			&label, &r.Rule, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan regime record row: %w", err)
		}

		r.Date = domain.Day(r.Date)
		r.SpreadTrend = domain.TrendDirection(trend)
		r.Label = domain.RegimeLabel(label)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate regime record rows: %w", err)
	}

	return records, nil
}

package ingestion

import (
	"context"
	"time"

	"fx-regime-lab/internal/domain"
)

// YieldSource provides daily government bond yields from an external
// provider. One source may serve several instruments (a provider
// publishes a whole yield curve); the Manager routes by instrument.
type YieldSource interface {
	// Fetch returns observations for an instrument within [from, to]
	// (inclusive). Observations may be unordered and may contain
	// duplicates; Manager normalizes before storing.
	Fetch(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.YieldObservation, error)
}

// PriceSource provides daily FX closes from an external provider.
type PriceSource interface {
	// Fetch returns closes for a pair within [from, to] (inclusive).
	Fetch(ctx context.Context, pairID string, from, to time.Time) ([]*domain.PriceObservation, error)
}

// PositioningSource provides weekly futures positioning readings.
// A single fetch covers every configured pair because the upstream
// report files bundle all markets together.
type PositioningSource interface {
	// Fetch returns observations for all configured pairs with
	// week-ending dates within [from, to] (inclusive).
	Fetch(ctx context.Context, from, to time.Time) ([]*domain.PositioningObservation, error)
}

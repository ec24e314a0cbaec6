package domain

import "time"

// YieldObservation represents one daily government bond yield reading.
// Corresponds to yield_observations table in PostgreSQL.
// Append-only: corrections are new rows, never updates.
type YieldObservation struct {
	InstrumentID string    // country+tenor, e.g. "US_2Y", "DE_10Y"
	Date         time.Time // observation date, UTC midnight
	Value        float64   // yield in percent
	CreatedAt    time.Time // record creation timestamp
}

// PriceObservation represents one daily FX close.
// Corresponds to price_observations table in PostgreSQL.
type PriceObservation struct {
	PairID    string    // "EURUSD", "USDJPY", "DXY"
	Date      time.Time // NY-close trading date, UTC midnight
	Price     float64
	CreatedAt time.Time
}

// PositioningObservation represents one weekly CFTC leveraged-money reading.
// Corresponds to positioning_observations table in PostgreSQL.
// Weekly cadence; joins against daily series are always as-of
// (nearest prior-or-equal date), never interpolated.
type PositioningObservation struct {
	PairID         string    // pair the futures market maps to
	WeekEndingDate time.Time // CFTC report date, UTC midnight
	LongContracts  float64   // leveraged money longs
	ShortContracts float64   // leveraged money shorts
	NetContracts   float64   // longs minus shorts
	OpenInterest   float64   // total open interest for normalization
	CreatedAt      time.Time
}

// Point is a single (date, value) observation used by the compute
// packages. Raw typed observations convert to Point slices before
// any series math.
type Point struct {
	Date  time.Time
	Value float64
}

// Day truncates t to UTC midnight. All observation dates are stored
// in this form so equality and map keys behave.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

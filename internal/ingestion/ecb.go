package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"fx-regime-lab/internal/domain"
)

// DefaultECBBaseURL is the public ECB data API endpoint.
const DefaultECBBaseURL = "https://data-api.ecb.europa.eu/service/data"

// ECBSource fetches daily euro-area government yield-curve points from
// the ECB data API (SDMX-JSON). Implements YieldSource.
type ECBSource struct {
	baseURL string
	series  map[string]string // instrument_id -> SDMX key, e.g. "DE_10Y" -> "YC/B.U2.EUR.4F.G_N_A.SV_C_YM.SR_10Y"
	fetcher *httpFetcher
}

// NewECBSource creates an ECB yield source. series maps instrument ids
// to full SDMX series keys including the dataflow prefix.
func NewECBSource(baseURL string, series map[string]string, opts ...FetcherOption) *ECBSource {
	if baseURL == "" {
		baseURL = DefaultECBBaseURL
	}
	return &ECBSource{
		baseURL: baseURL,
		series:  series,
		fetcher: newHTTPFetcher(opts...),
	}
}

var _ YieldSource = (*ECBSource)(nil)

// sdmxResponse covers the small slice of SDMX-JSON the yield-curve
// dataflow actually uses: a single series whose observation index maps
// into the observation dimension's date values.
type sdmxResponse struct {
	DataSets []struct {
		Series map[string]struct {
			Observations map[string][]*float64 `json:"observations"`
		} `json:"series"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

// Fetch returns observations for an instrument within [from, to].
func (s *ECBSource) Fetch(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.YieldObservation, error) {
	key, ok := s.series[instrumentID]
	if !ok {
		return nil, fmt.Errorf("ecb: %w: %s", ErrUnknownInstrument, instrumentID)
	}

	q := url.Values{}
	q.Set("startPeriod", from.Format("2006-01-02"))
	q.Set("endPeriod", to.Format("2006-01-02"))
	q.Set("detail", "dataonly")

	headers := map[string]string{"Accept": "application/json"}
	body, err := s.fetcher.get(ctx, s.baseURL+"/"+key+"?"+q.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("ecb fetch %s: %w", key, err)
	}

	var resp sdmxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ecb decode %s: %w", key, err)
	}
	if len(resp.DataSets) == 0 {
		return nil, fmt.Errorf("ecb %s: %w: no data sets", key, ErrMalformedPayload)
	}
	if len(resp.Structure.Dimensions.Observation) == 0 {
		return nil, fmt.Errorf("ecb %s: %w: no observation dimension", key, ErrMalformedPayload)
	}
	dates := resp.Structure.Dimensions.Observation[0].Values

	var obs []*domain.YieldObservation
	for _, series := range resp.DataSets[0].Series {
		for idxStr, values := range series.Observations {
			var idx int
			if _, err := fmt.Sscanf(idxStr, "%d", &idx); err != nil {
				return nil, fmt.Errorf("ecb %s: %w: observation index %q", key, ErrMalformedPayload, idxStr)
			}
			if idx < 0 || idx >= len(dates) {
				return nil, fmt.Errorf("ecb %s: %w: observation index %d out of range", key, ErrMalformedPayload, idx)
			}
			if len(values) == 0 || values[0] == nil {
				continue
			}
			date, err := time.Parse("2006-01-02", dates[idx].ID)
			if err != nil {
				return nil, fmt.Errorf("ecb parse date %q: %w", dates[idx].ID, err)
			}
			obs = append(obs, &domain.YieldObservation{
				InstrumentID: instrumentID,
				Date:         domain.Day(date),
				Value:        *values[0],
			})
		}
		break // one series per key
	}

	return obs, nil
}

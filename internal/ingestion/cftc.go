package ingestion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"fx-regime-lab/internal/domain"
)

// DefaultCFTCBaseURL hosts the yearly financial-futures history archives.
const DefaultCFTCBaseURL = "https://www.cftc.gov/files/dea/history"

// Column headers in the CFTC financial futures disaggregated report.
// Leveraged money covers hedge funds and CTAs only; the broader
// noncommercial bucket mixes in asset managers and retail, which dilutes
// the positioning signal.
const (
	cftcColMarket       = "Market_and_Exchange_Names"
	cftcColReportDate   = "Report_Date_as_YYYY-MM-DD"
	cftcColLevLong      = "Lev_Money_Positions_Long_All"
	cftcColLevShort     = "Lev_Money_Positions_Short_All"
	cftcColOpenInterest = "Open_Interest_All"
)

// CFTCSource fetches weekly leveraged-money positioning from the CFTC
// financial futures history archives (fut_fin_txt_YYYY.zip). Implements
// PositioningSource.
type CFTCSource struct {
	baseURL string
	markets map[string]string // exact market name -> pair_id
	fetcher *httpFetcher
}

// NewCFTCSource creates a CFTC positioning source. markets maps the
// exact Market_and_Exchange_Names strings to pair ids, e.g.
// "EURO FX - CHICAGO MERCANTILE EXCHANGE" -> "EURUSD".
func NewCFTCSource(baseURL string, markets map[string]string, opts ...FetcherOption) *CFTCSource {
	if baseURL == "" {
		baseURL = DefaultCFTCBaseURL
	}
	return &CFTCSource{
		baseURL: baseURL,
		markets: markets,
		fetcher: newHTTPFetcher(opts...),
	}
}

var _ PositioningSource = (*CFTCSource)(nil)

// Fetch returns observations for all configured markets with report
// dates within [from, to]. One yearly archive is downloaded per
// calendar year in the range.
func (s *CFTCSource) Fetch(ctx context.Context, from, to time.Time) ([]*domain.PositioningObservation, error) {
	var all []*domain.PositioningObservation
	for year := from.Year(); year <= to.Year(); year++ {
		obs, err := s.fetchYear(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("cftc year %d: %w", year, err)
		}
		for _, o := range obs {
			if o.WeekEndingDate.Before(from) || o.WeekEndingDate.After(to) {
				continue
			}
			all = append(all, o)
		}
	}
	return all, nil
}

// fetchYear downloads and parses one yearly archive. The zip holds a
// single CSV member.
func (s *CFTCSource) fetchYear(ctx context.Context, year int) ([]*domain.PositioningObservation, error) {
	url := fmt.Sprintf("%s/fut_fin_txt_%d.zip", s.baseURL, year)
	body, err := s.fetcher.get(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	if len(archive.File) == 0 {
		return nil, fmt.Errorf("%w: empty archive", ErrMalformedPayload)
	}

	f, err := archive.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open archive member: %w", err)
	}
	defer f.Close()

	return s.parseReport(f)
}

func (s *CFTCSource) parseReport(r io.Reader) ([]*domain.PositioningObservation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	maxIdx := 0
	for _, col := range []string{cftcColMarket, cftcColReportDate, cftcColLevLong, cftcColLevShort, cftcColOpenInterest} {
		i, ok := idx[col]
		if !ok {
			return nil, fmt.Errorf("%w: column %q not found", ErrMalformedPayload, col)
		}
		if i > maxIdx {
			maxIdx = i
		}
	}

	var obs []*domain.PositioningObservation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(record) <= maxIdx {
			return nil, fmt.Errorf("%w: row has %d fields, need %d", ErrMalformedPayload, len(record), maxIdx+1)
		}

		market := strings.TrimSpace(record[idx[cftcColMarket]])
		pairID, ok := s.markets[market]
		if !ok {
			continue
		}

		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[idx[cftcColReportDate]]))
		if err != nil {
			return nil, fmt.Errorf("parse report date %q: %w", record[idx[cftcColReportDate]], err)
		}
		long, err := parseCFTCNumber(record[idx[cftcColLevLong]])
		if err != nil {
			return nil, fmt.Errorf("parse longs for %s: %w", market, err)
		}
		short, err := parseCFTCNumber(record[idx[cftcColLevShort]])
		if err != nil {
			return nil, fmt.Errorf("parse shorts for %s: %w", market, err)
		}
		oi, err := parseCFTCNumber(record[idx[cftcColOpenInterest]])
		if err != nil {
			return nil, fmt.Errorf("parse open interest for %s: %w", market, err)
		}

		obs = append(obs, &domain.PositioningObservation{
			PairID:         pairID,
			WeekEndingDate: domain.Day(date),
			LongContracts:  long,
			ShortContracts: short,
			NetContracts:   long - short,
			OpenInterest:   oi,
		})
	}

	return obs, nil
}

// parseCFTCNumber parses a report number. Values carry comma thousand
// separators and may be blank or "." for missing.
func parseCFTCNumber(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" || cleaned == "." {
		return 0, nil
	}
	return strconv.ParseFloat(cleaned, 64)
}

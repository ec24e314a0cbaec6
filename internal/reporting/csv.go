package reporting

import (
	"fmt"
	"strings"

	"fx-regime-lab/internal/domain"
)

// RenderCSV renders snapshots as one flat CSV row per pair. Column
// order is fixed by the period table and the spreadIDs argument, so
// identical inputs produce byte-identical output. Nil values render as
// empty cells, never as zero.
func RenderCSV(snapshots []*domain.Snapshot, spreadIDs []string) string {
	var sb strings.Builder

	// Header
	sb.WriteString("pair_id,date,price")
	for _, p := range domain.DeltaPeriods {
		sb.WriteString(",price_chg_" + p.Label)
	}
	for _, id := range spreadIDs {
		sb.WriteString("," + id)
		for _, p := range domain.DeltaPeriods {
			sb.WriteString("," + id + "_chg_" + p.Label)
		}
	}
	sb.WriteString(",net_contracts,net_pct_oi,percentile_rank,vol30,vol_percentile,regime\n")

	for _, s := range snapshots {
		sb.WriteString(fmt.Sprintf("%s,%s,%.6f", s.PairID, s.Date.Format("2006-01-02"), s.Price))
		for _, p := range domain.DeltaPeriods {
			sb.WriteString("," + cell(s.PriceChg[p.Label]))
		}
		for _, id := range spreadIDs {
			if v, ok := s.Spreads[id]; ok {
				sb.WriteString(fmt.Sprintf(",%.6f", v))
			} else {
				sb.WriteString(",")
			}
			for _, p := range domain.DeltaPeriods {
				var delta *float64
				if deltas, ok := s.SpreadChg[id]; ok {
					delta = deltas[p.Label]
				}
				sb.WriteString("," + cell(delta))
			}
		}
		sb.WriteString("," + cell(s.NetContracts))
		sb.WriteString("," + cell(s.NetPctOI))
		sb.WriteString("," + cell(s.PercentileRank))
		sb.WriteString("," + cell(s.Vol30))
		sb.WriteString("," + cell(s.VolPercentile))
		sb.WriteString("," + string(s.Label))
		sb.WriteString("\n")
	}

	return sb.String()
}

func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.6f", *v)
}

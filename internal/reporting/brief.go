package reporting

import (
	"fmt"
	"strings"
	"time"

	"fx-regime-lab/internal/domain"
)

const briefWidth = 70

// Generator produces desk-readable reports from assembled snapshots.
type Generator struct {
	pairs        []domain.Pair
	spreadIDs    []string
	highCrowding float64
	lowCrowding  float64
	flatPP       float64
	now          func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator. spreadIDs fixes the spread
// table order; highCrowding/lowCrowding/flatPP are the same thresholds
// the classifier uses, so the narrative never contradicts the label.
func NewGenerator(pairs []domain.Pair, spreadIDs []string, highCrowding, lowCrowding, flatPP float64) *Generator {
	return &Generator{
		pairs:        pairs,
		spreadIDs:    spreadIDs,
		highCrowding: highCrowding,
		lowCrowding:  lowCrowding,
		flatPP:       flatPP,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// MorningBrief renders the morning text brief from per-pair snapshots.
// Missing values render as "n/a"; a missing value is never shown as
// zero.
func (g *Generator) MorningBrief(snapshots []*domain.Snapshot) string {
	byPair := make(map[string]*domain.Snapshot, len(snapshots))
	for _, s := range snapshots {
		byPair[s.PairID] = s
	}

	asOf := "n/a"
	cotAsOf := "n/a"
	for _, p := range g.pairs {
		s, ok := byPair[p.ID]
		if !ok {
			continue
		}
		asOf = s.Date.Format("2006-01-02")
		if s.PositioningDate != nil {
			cotAsOf = s.PositioningDate.Format("2006-01-02")
		}
		break
	}

	sep := strings.Repeat("=", briefWidth)
	var lines []string
	lines = append(lines, sep)
	lines = append(lines, "  G10 FX MORNING BRIEF")
	lines = append(lines, "  "+g.now().Format("Monday, 02 January 2006"))
	lines = append(lines, fmt.Sprintf("  data as of: %s  |  COT as of: %s", asOf, cotAsOf))
	lines = append(lines, sep)

	// Prices
	lines = append(lines, "", "  PRICES")
	lines = append(lines, fmt.Sprintf("  %-10s %9s  %8s  %8s", "pair", "price", "1D", "12M"))
	lines = append(lines, "  "+strings.Repeat("-", 48))
	for _, p := range g.pairs {
		s, ok := byPair[p.ID]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %-10s %9.4f  %8s  %8s",
			p.ID, s.Price, pct(s.PriceChg["1D"]), pct(s.PriceChg["12M"])))
	}

	// Rate differentials
	lines = append(lines, "", "  RATE DIFFERENTIALS  (narrowing = foreign currency should strengthen)")
	lines = append(lines, fmt.Sprintf("  %-22s %7s  %8s  %8s", "spread", "today", "1D chg", "12M chg"))
	lines = append(lines, "  "+strings.Repeat("-", 52))
	for _, id := range g.spreadIDs {
		s := g.anySnapshotWithSpread(byPair, id)
		if s == nil {
			lines = append(lines, fmt.Sprintf("  %-22s %7s  %8s  %8s", spreadLabel(id), "n/a", "n/a", "n/a"))
			continue
		}
		var d1, d12 *float64
		if deltas, ok := s.SpreadChg[id]; ok {
			d1, d12 = deltas["1D"], deltas["12M"]
		}
		lines = append(lines, fmt.Sprintf("  %-22s %6.2f%%  %8s  %8s",
			spreadLabel(id), s.Spreads[id], pp(d1), pp(d12)))
	}

	// Positioning
	lines = append(lines, "", fmt.Sprintf("  COT POSITIONING (as of %s)", cotAsOf))
	lines = append(lines, "  "+strings.Repeat("-", 66))
	for _, p := range g.pairs {
		if p.SpreadID == "" {
			continue // price-only series, no futures market
		}
		s, ok := byPair[p.ID]
		if !ok {
			continue
		}
		lines = append(lines, "", fmt.Sprintf("  %s:", p.ID))
		lines = append(lines, fmt.Sprintf("    Leveraged Money   : %s contracts | %s | %s",
			net(s.NetContracts), pctOI(s.NetPctOI), g.crowdingLabel(s)))
	}

	// Regime reads
	lines = append(lines, "", "  REGIME READ")
	lines = append(lines, "  "+strings.Repeat("-", 66))
	first := true
	for _, p := range g.pairs {
		if p.SpreadID == "" {
			continue
		}
		s, ok := byPair[p.ID]
		if !ok {
			continue
		}
		if !first {
			lines = append(lines, "")
		}
		first = false
		lines = append(lines, fmt.Sprintf("  %-9s%s", p.ID, g.interpretation(p, s)))
	}

	lines = append(lines, "", sep, "")
	return strings.Join(lines, "\n")
}

// crowdingLabel mirrors the classifier's crowding bands.
func (g *Generator) crowdingLabel(s *domain.Snapshot) string {
	if s.PercentileRank == nil {
		return "NO DATA"
	}
	rank := *s.PercentileRank
	switch {
	case rank >= g.highCrowding:
		return fmt.Sprintf("CROWDED LONG  (%.0fth pct)", rank)
	case rank <= g.lowCrowding:
		return fmt.Sprintf("CROWDED SHORT (%.0fth pct)", rank)
	case s.NetContracts != nil && *s.NetContracts > 0:
		return fmt.Sprintf("NEUTRAL LONG  (%.0fth pct)", rank)
	default:
		return fmt.Sprintf("NEUTRAL SHORT (%.0fth pct)", rank)
	}
}

// interpretation is the one-line plain English read for a pair:
// direction from the 12M spread change, then the crowding overlay.
func (g *Generator) interpretation(p domain.Pair, s *domain.Snapshot) string {
	var spread12m *float64
	if deltas, ok := s.SpreadChg[p.SpreadID]; ok {
		spread12m = deltas["12M"]
	}

	direction := "spreads flat, no directional signal from differentials"
	if spread12m != nil {
		switch {
		case *spread12m < -g.flatPP && p.QuoteDirection < 0:
			direction = "spread compression supports " + foreignLeg(p.ID) + " strength"
		case *spread12m < -g.flatPP:
			direction = "spread compression favors lower " + p.ID
		case *spread12m > g.flatPP && p.QuoteDirection < 0:
			direction = "spread widening supports USD strength"
		case *spread12m > g.flatPP:
			direction = "spread widening favors higher " + p.ID
		}
	}

	crowding := "positioning data unavailable"
	if s.PercentileRank != nil {
		rank := *s.PercentileRank
		switch {
		case rank >= g.highCrowding:
			crowding = fmt.Sprintf("positioning crowded long (%.0fth pct) - asymmetric reversal risk", rank)
		case rank <= g.lowCrowding:
			crowding = fmt.Sprintf("positioning crowded short (%.0fth pct) - squeeze risk on a catalyst", rank)
		default:
			crowding = fmt.Sprintf("positioning neutral (%.0fth pct) - no crowding distortion", rank)
		}
	}

	return fmt.Sprintf("%s; %s.", direction, crowding)
}

// anySnapshotWithSpread finds a snapshot carrying the given spread, in
// configured pair order.
func (g *Generator) anySnapshotWithSpread(byPair map[string]*domain.Snapshot, spreadID string) *domain.Snapshot {
	for _, p := range g.pairs {
		if s, ok := byPair[p.ID]; ok {
			if _, has := s.Spreads[spreadID]; has {
				return s
			}
		}
	}
	return nil
}

// spreadLabel turns "US_DE_10Y_spread" into "US-DE 10Y".
func spreadLabel(id string) string {
	trimmed := strings.TrimSuffix(id, "_spread")
	parts := strings.Split(trimmed, "_")
	if len(parts) == 3 {
		return parts[0] + "-" + parts[1] + " " + parts[2]
	}
	return strings.Join(parts, " ")
}

// foreignLeg names the non-USD side of a pair id like "EURUSD".
func foreignLeg(pairID string) string {
	if len(pairID) == 6 {
		if strings.HasPrefix(pairID, "USD") {
			return pairID[3:]
		}
		return pairID[:3]
	}
	return pairID
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func pp(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2fpp", *v)
}

func pctOI(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%% OI", *v)
}

// net formats contract counts with a sign and comma separators.
func net(v *float64) string {
	if v == nil {
		return "n/a"
	}
	n := int64(*v)
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	return sign + sb.String()
}

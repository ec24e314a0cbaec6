// Package orchestrator provides end-to-end pipeline orchestration.
// It coordinates: load series → spreads → positioning percentiles →
// volatility → regime classification → snapshot assembly.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"fx-regime-lab/internal/domain"
	"fx-regime-lab/internal/positioning"
	"fx-regime-lab/internal/regime"
	"fx-regime-lab/internal/series"
	"fx-regime-lab/internal/snapshot"
	"fx-regime-lab/internal/spread"
	"fx-regime-lab/internal/storage"
	"fx-regime-lab/internal/volatility"
)

// ClassificationLookbackDays is the trading-day lookback for the spread
// and price changes the classifier sees. Twelve months: regime shifts
// play out over quarters, shorter windows flap.
const ClassificationLookbackDays = 252

// Orchestrator coordinates one full pipeline run. Single-threaded by
// design: series are immutable within a run and a fixed computation
// order keeps reruns byte-identical.
type Orchestrator struct {
	yieldStore        storage.YieldStore
	priceStore        storage.PriceStore
	positioningStore  storage.PositioningStore
	spreadStore       storage.SpreadStore
	percentileStore   storage.PercentileStore
	regimeRecordStore storage.RegimeRecordStore

	pairs       []domain.Pair
	definitions []domain.SpreadDefinition
	thresholds  regime.Thresholds

	rankWindow  int
	rankMinObs  int
	lookback    int
	created     func() time.Time
	log         zerolog.Logger
}

// Options for creating an Orchestrator.
type Options struct {
	YieldStore        storage.YieldStore
	PriceStore        storage.PriceStore
	PositioningStore  storage.PositioningStore
	SpreadStore       storage.SpreadStore
	PercentileStore   storage.PercentileStore
	RegimeRecordStore storage.RegimeRecordStore

	Pairs       []domain.Pair
	Definitions []domain.SpreadDefinition
	Thresholds  regime.Thresholds

	// RankWindow and RankMinObs control the positioning percentile
	// window. Zero values fall back to 156/52 weekly observations.
	RankWindow int
	RankMinObs int

	// LookbackDays overrides ClassificationLookbackDays, tests only.
	LookbackDays int

	Logger zerolog.Logger

	// Clock overrides CreatedAt timestamps for deterministic output.
	Clock func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		yieldStore:        opts.YieldStore,
		priceStore:        opts.PriceStore,
		positioningStore:  opts.PositioningStore,
		spreadStore:       opts.SpreadStore,
		percentileStore:   opts.PercentileStore,
		regimeRecordStore: opts.RegimeRecordStore,
		pairs:             opts.Pairs,
		definitions:       opts.Definitions,
		thresholds:        opts.Thresholds,
		rankWindow:        opts.RankWindow,
		rankMinObs:        opts.RankMinObs,
		lookback:          opts.LookbackDays,
		log:               opts.Logger,
		created:           opts.Clock,
	}
	if o.rankWindow == 0 {
		o.rankWindow = 156
	}
	if o.rankMinObs == 0 {
		o.rankMinObs = 52
	}
	if o.lookback == 0 {
		o.lookback = ClassificationLookbackDays
	}
	if o.created == nil {
		o.created = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// RunResult contains results from one pipeline run.
type RunResult struct {
	SpreadsComputed int
	RanksComputed   int
	RegimesCreated  int
	Snapshots       []*domain.Snapshot
	Errors          []string
}

// Run executes the full pipeline. A data problem in one pair or spread
// lands in result.Errors and the run continues; only infrastructure
// failures abort.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: load raw series.
	o.log.Info().Msg("phase 1: loading raw series")
	yields, err := o.loadYields(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load yields) failed: %w", err)
	}

	// Phase 2: spreads.
	o.log.Info().Msg("phase 2: computing spreads")
	spreads := o.runSpreads(ctx, yields, result)

	// Phases 3-6 per pair, fixed order.
	for _, pair := range o.pairs {
		if err := o.runPair(ctx, pair, spreads, result); err != nil {
			if isInfrastructure(err) {
				return nil, fmt.Errorf("pair %s: %w", pair.ID, err)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("pair %s: %v", pair.ID, err))
		}
	}

	o.log.Info().
		Int("spreads", result.SpreadsComputed).
		Int("ranks", result.RanksComputed).
		Int("regimes", result.RegimesCreated).
		Int("snapshots", len(result.Snapshots)).
		Int("errors", len(result.Errors)).
		Msg("pipeline completed")

	return result, nil
}

// loadYields loads every instrument the spread definitions reference.
func (o *Orchestrator) loadYields(ctx context.Context) (map[string][]domain.Point, error) {
	instruments := map[string]struct{}{}
	for _, def := range o.definitions {
		instruments[def.Minuend] = struct{}{}
		instruments[def.Subtrahend] = struct{}{}
	}

	ids := make([]string, 0, len(instruments))
	for id := range instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	yields := make(map[string][]domain.Point, len(ids))
	for _, id := range ids {
		obs, err := o.yieldStore.GetByInstrument(ctx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load yields %s: %w", id, err)
		}
		points := make([]domain.Point, 0, len(obs))
		for _, ob := range obs {
			points = append(points, domain.Point{Date: ob.Date, Value: ob.Value})
		}
		yields[id] = points
	}
	return yields, nil
}

// runSpreads computes and persists every configured spread. Per-spread
// failures are collected, not fatal.
func (o *Orchestrator) runSpreads(ctx context.Context, yields map[string][]domain.Point, result *RunResult) map[string][]domain.Point {
	calc := spread.NewCalculator(o.definitions)
	computed, errs := calc.ComputeAll(yields)

	ids := make([]string, 0, len(o.definitions))
	for _, def := range o.definitions {
		ids = append(ids, def.SpreadID)
	}

	for _, id := range ids {
		if err, failed := errs[id]; failed {
			result.Errors = append(result.Errors, fmt.Sprintf("spread %s: %v", id, err))
			continue
		}
		points := computed[id]
		result.SpreadsComputed += len(points)

		if o.spreadStore == nil {
			continue
		}
		rows := make([]*domain.SpreadPoint, len(points))
		now := o.created()
		for i, p := range points {
			rows[i] = &domain.SpreadPoint{SpreadID: id, Date: p.Date, Value: p.Value, CreatedAt: now}
		}
		// Each run recomputes the full history; drop the dates the
		// store already holds so only the new tail is inserted.
		rows, err := o.trimStoredSpread(ctx, id, rows)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist spread %s: %v", id, err))
			continue
		}
		if err := o.spreadStore.InsertBulk(ctx, rows); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("persist spread %s: %v", id, err))
		}
	}

	return computed
}

// trimStoredSpread drops points at or before the store's latest date.
func (o *Orchestrator) trimStoredSpread(ctx context.Context, spreadID string, rows []*domain.SpreadPoint) ([]*domain.SpreadPoint, error) {
	latest, err := o.spreadStore.LatestDate(ctx, spreadID)
	if errors.Is(err, storage.ErrNotFound) {
		return rows, nil
	}
	if err != nil {
		return nil, err
	}
	var fresh []*domain.SpreadPoint
	for _, r := range rows {
		if r.Date.After(latest) {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

// trimStoredRanks drops ranks at or before the store's latest date.
func (o *Orchestrator) trimStoredRanks(ctx context.Context, pairID string, ranks []*domain.PercentileRank) ([]*domain.PercentileRank, error) {
	latest, err := o.percentileStore.LatestDate(ctx, pairID)
	if errors.Is(err, storage.ErrNotFound) {
		return ranks, nil
	}
	if err != nil {
		return nil, err
	}
	var fresh []*domain.PercentileRank
	for _, r := range ranks {
		if r.Date.After(latest) {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

// runPair executes phases 3-6 for one pair.
func (o *Orchestrator) runPair(ctx context.Context, pair domain.Pair, spreads map[string][]domain.Point, result *RunResult) error {
	prices, err := o.loadPrices(ctx, pair.ID)
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return fmt.Errorf("no price data")
	}

	posObs, err := o.loadPositioning(ctx, pair.ID)
	if err != nil {
		return err
	}

	// Phase 3: positioning percentiles.
	var ranks []*domain.PercentileRank
	if len(posObs) > 0 {
		engine := positioning.NewEngine(o.rankWindow, o.rankMinObs).WithClock(o.created)
		ranks = engine.Ranks(pair.ID, positioning.NetSeries(posObs))
		result.RanksComputed += len(ranks)

		if o.percentileStore != nil {
			fresh, err := o.trimStoredRanks(ctx, pair.ID, ranks)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("persist ranks %s: %v", pair.ID, err))
			} else if err := o.percentileStore.InsertBulk(ctx, fresh); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("persist ranks %s: %v", pair.ID, err))
			}
		}
	}

	// Phase 4: volatility and its percentile.
	vol30 := volatility.Realized(prices)
	var volRanks []*domain.PercentileRank
	if len(vol30) > 0 {
		volEngine := positioning.NewEngine(volatility.PercentileWindow, volatility.PercentileMinObs).WithClock(o.created)
		volRanks = volEngine.Ranks(pair.ID, vol30)
	}

	// Phase 5: regime classification, only for pairs with a primary
	// spread configured.
	var record *domain.RegimeRecord
	if pair.SpreadID != "" {
		record = o.classify(pair, prices, spreads[pair.SpreadID], ranks, volRanks)
		result.RegimesCreated++

		if o.regimeRecordStore != nil {
			// Single-row batch; a duplicate means the same record was
			// already written for this date.
			if err := o.regimeRecordStore.InsertBulk(ctx, []*domain.RegimeRecord{record}); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				result.Errors = append(result.Errors, fmt.Sprintf("persist regime %s: %v", pair.ID, err))
			}
		}
	}

	// Phase 6: snapshot assembly.
	assembler := snapshot.NewAssembler().WithClock(o.created)
	snap := assembler.Assemble(snapshot.Inputs{
		PairID:       pair.ID,
		Prices:       prices,
		Spreads:      spreads,
		NetContracts: positioning.NetSeries(posObs),
		NetPctOI:     positioning.NetPctOISeries(posObs),
		Rank:         lastRank(ranks),
		Vol30:        vol30,
		VolRank:      lastRank(volRanks),
		Regime:       record,
	})
	if snap != nil {
		result.Snapshots = append(result.Snapshots, snap)
	}

	return nil
}

// classify builds the classifier input for the latest price date and
// runs the rule chain. Missing pieces stay nil; the classifier owns the
// insufficiency decision.
func (o *Orchestrator) classify(pair domain.Pair, prices, spreadPoints []domain.Point, ranks, volRanks []*domain.PercentileRank) *domain.RegimeRecord {
	last := prices[len(prices)-1]

	in := regime.Input{
		PairID:         pair.ID,
		Date:           last.Date,
		SpreadID:       pair.SpreadID,
		QuoteDirection: pair.QuoteDirection,
	}

	if chg, ok := series.PctChange(prices, len(prices)-1, o.lookback); ok {
		in.PriceChangePct = &chg
	}
	if i := series.IndexAsOf(spreadPoints, last.Date); i >= 0 {
		if chg, ok := series.Diff(spreadPoints, i, o.lookback); ok {
			in.SpreadChangePP = &chg
		}
	}
	if r := lastRank(ranks); r != nil {
		in.PercentileRank = r.Rank()
	}
	if r := lastRank(volRanks); r != nil {
		in.VolPercentile = r.Rank()
	}

	return regime.NewClassifier(o.thresholds).WithClock(o.created).Classify(in)
}

func (o *Orchestrator) loadPrices(ctx context.Context, pairID string) ([]domain.Point, error) {
	obs, err := o.priceStore.GetByPair(ctx, pairID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	points := make([]domain.Point, 0, len(obs))
	for _, ob := range obs {
		points = append(points, domain.Point{Date: ob.Date, Value: ob.Price})
	}
	return points, nil
}

func (o *Orchestrator) loadPositioning(ctx context.Context, pairID string) ([]*domain.PositioningObservation, error) {
	if o.positioningStore == nil {
		return nil, nil
	}
	obs, err := o.positioningStore.GetByPair(ctx, pairID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load positioning: %w", err)
	}
	return obs, nil
}

// lastRank returns the most recent rank in a date-ascending series.
func lastRank(ranks []*domain.PercentileRank) *domain.PercentileRank {
	if len(ranks) == 0 {
		return nil
	}
	return ranks[len(ranks)-1]
}

// isInfrastructure separates store failures from data problems. Context
// cancellation and anything that is not one of the known data sentinels
// aborts the run; data sentinels are isolated per pair.
func isInfrastructure(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

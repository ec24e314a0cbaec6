// Package main provides the pipeline entry point.
// Executes: load series → spreads → percentiles → volatility → regimes →
// snapshots, then writes the CSV export and the morning brief.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-regime-lab/internal/config"
	"fx-regime-lab/internal/ingestion"
	"fx-regime-lab/internal/logging"
	"fx-regime-lab/internal/observability"
	"fx-regime-lab/internal/orchestrator"
	"fx-regime-lab/internal/regime"
	"fx-regime-lab/internal/reporting"
	"fx-regime-lab/internal/storage"
	chstore "fx-regime-lab/internal/storage/clickhouse"
	"fx-regime-lab/internal/storage/memory"
	"fx-regime-lab/internal/storage/migrations"
	pgstore "fx-regime-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	skipIngest := flag.Bool("skip-ingest", false, "Skip the ingestion step with the memory backend")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("component", "pipeline").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("cancelling pipeline")
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr, logger)
	}

	stores, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}
	defer cleanup()

	// The memory backend has no data from earlier processes, so the
	// pipeline ingests in the same run unless told otherwise.
	if cfg.Storage.Backend == "memory" && !*skipIngest {
		if err := ingestAll(ctx, cfg, stores, logger, metrics); err != nil {
			logger.Fatal().Err(err).Msg("ingestion failed")
		}
	}

	start := time.Now()
	orch := orchestrator.New(orchestrator.Options{
		YieldStore:        stores.yields,
		PriceStore:        stores.prices,
		PositioningStore:  stores.positioning,
		SpreadStore:       stores.spreads,
		PercentileStore:   stores.percentiles,
		RegimeRecordStore: stores.regimes,
		Pairs:             cfg.DomainPairs(),
		Definitions:       cfg.SpreadDefinitions(),
		Thresholds: regime.Thresholds{
			HighCrowding:  cfg.Thresholds.HighCrowding,
			LowCrowding:   cfg.Thresholds.LowCrowding,
			FlatSpreadPP:  cfg.Thresholds.FlatSpreadPP,
			CrisisVolPct:  cfg.Thresholds.CrisisVolPct,
			LookbackLabel: "12M",
		},
		RankWindow:   cfg.Windows.RankWindow,
		RankMinObs:   cfg.Windows.RankMinObs,
		LookbackDays: cfg.Windows.LookbackDays,
		Logger:       logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		metrics.PipelineRunsTotal.WithLabelValues("error").Inc()
		logger.Fatal().Err(err).Msg("pipeline failed")
	}
	metrics.PipelineRunsTotal.WithLabelValues("ok").Inc()
	metrics.PipelineDuration.WithLabelValues("run").Observe(time.Since(start).Seconds())
	metrics.SpreadsComputed.Add(float64(result.SpreadsComputed))
	metrics.RanksComputed.Add(float64(result.RanksComputed))
	metrics.PairErrors.Add(float64(len(result.Errors)))
	metrics.LastSuccessfulPipeline.SetToCurrentTime()

	for _, snap := range result.Snapshots {
		if snap.Label != "" {
			metrics.RegimesClassified.WithLabelValues(string(snap.Label)).Inc()
		}
	}

	fmt.Printf("Pipeline completed:\n")
	fmt.Printf("  Spread points: %d\n", result.SpreadsComputed)
	fmt.Printf("  Percentile ranks: %d\n", result.RanksComputed)
	fmt.Printf("  Regimes: %d\n", result.RegimesCreated)
	fmt.Printf("  Snapshots: %d\n", len(result.Snapshots))
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if err := writeReports(cfg, result, *outputDir, metrics); err != nil {
		logger.Fatal().Err(err).Msg("report generation failed")
	}

	fmt.Printf("\nReports written:\n")
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "latest.csv"))
	fmt.Printf("  - %s\n", filepath.Join(*outputDir, "morning_brief.txt"))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func startMetricsServer(addr string, logger zerolog.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		logger.Info().Str("addr", addr).Msg("starting metrics server")
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// allStores bundles raw and derived stores.
type allStores struct {
	yields      storage.YieldStore
	prices      storage.PriceStore
	positioning storage.PositioningStore
	spreads     storage.SpreadStore
	percentiles storage.PercentileStore
	regimes     storage.RegimeRecordStore
}

// buildStores selects the configured backend. The db backend keeps raw
// observations in PostgreSQL and derived series in ClickHouse; both
// schemas are migrated before use.
func buildStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.Storage.Backend == "memory" {
		return &allStores{
			yields:      memory.NewYieldStore(),
			prices:      memory.NewPriceStore(),
			positioning: memory.NewPositioningStore(),
			spreads:     memory.NewSpreadStore(),
			percentiles: memory.NewPercentileStore(),
			regimes:     memory.NewRegimeRecordStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}

	return &allStores{
		yields:      pgstore.NewYieldStore(pool),
		prices:      pgstore.NewPriceStore(pool),
		positioning: pgstore.NewPositioningStore(pool),
		spreads:     chstore.NewSpreadStore(conn),
		percentiles: chstore.NewPercentileStore(conn),
		regimes:     chstore.NewRegimeRecordStore(conn),
	}, cleanup, nil
}

// ingestAll runs the full ingestion step in-process.
func ingestAll(ctx context.Context, cfg *config.Config, stores *allStores, logger zerolog.Logger, metrics *observability.Metrics) error {
	manager, err := buildManager(cfg, stores)
	if err != nil {
		return err
	}

	from, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return fmt.Errorf("parse start_date: %w", err)
	}
	to := time.Now().UTC().Truncate(24 * time.Hour)

	ids := make([]string, 0, len(cfg.Instruments))
	for _, in := range cfg.Instruments {
		ids = append(ids, in.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n, err := manager.IngestYields(ctx, id, from, to)
		if err != nil {
			return fmt.Errorf("ingest yields %s: %w", id, err)
		}
		metrics.ObservationsStored.WithLabelValues("yields").Add(float64(n))
		logger.Info().Str("instrument", id).Int("stored", n).Msg("yields ingested")
	}

	for _, p := range cfg.Pairs {
		if p.YahooTicker == "" {
			continue
		}
		n, err := manager.IngestPrices(ctx, p.ID, from, to)
		if err != nil {
			return fmt.Errorf("ingest prices %s: %w", p.ID, err)
		}
		metrics.ObservationsStored.WithLabelValues("prices").Add(float64(n))
		logger.Info().Str("pair", p.ID).Int("stored", n).Msg("prices ingested")
	}

	n, err := manager.IngestPositioning(ctx, from, to)
	if err != nil {
		return fmt.Errorf("ingest positioning: %w", err)
	}
	metrics.ObservationsStored.WithLabelValues("positioning").Add(float64(n))
	logger.Info().Int("stored", n).Msg("positioning ingested")

	return nil
}

// buildManager wires the provider sources declared in configuration.
func buildManager(cfg *config.Config, stores *allStores) (*ingestion.Manager, error) {
	fredSeries := map[string]string{}
	ecbSeries := map[string]string{}
	mofColumns := map[string]string{}
	for _, in := range cfg.Instruments {
		switch in.Source {
		case "fred":
			fredSeries[in.ID] = in.Series
		case "ecb":
			ecbSeries[in.ID] = in.Series
		case "mof":
			mofColumns[in.ID] = in.Series
		}
	}

	if len(fredSeries) > 0 && cfg.Sources.FREDAPIKey == "" {
		return nil, fmt.Errorf("FRED instruments configured but no API key set (FRED_API_KEY or sources.fred_api_key)")
	}

	yieldSources := map[string]ingestion.YieldSource{}
	if len(fredSeries) > 0 {
		src := ingestion.NewFREDSource(cfg.Sources.FREDBaseURL, cfg.Sources.FREDAPIKey, fredSeries)
		for id := range fredSeries {
			yieldSources[id] = src
		}
	}
	if len(ecbSeries) > 0 {
		src := ingestion.NewECBSource(cfg.Sources.ECBBaseURL, ecbSeries)
		for id := range ecbSeries {
			yieldSources[id] = src
		}
	}
	if len(mofColumns) > 0 {
		src := ingestion.NewMOFSource(cfg.Sources.MOFHistoricalURL, cfg.Sources.MOFCurrentURL, mofColumns)
		for id := range mofColumns {
			yieldSources[id] = src
		}
	}

	tickers := map[string]string{}
	markets := map[string]string{}
	for _, p := range cfg.Pairs {
		if p.YahooTicker != "" {
			tickers[p.ID] = p.YahooTicker
		}
		if p.CFTCMarket != "" {
			markets[p.CFTCMarket] = p.ID
		}
	}

	return ingestion.NewManager(ingestion.ManagerOptions{
		YieldSources:      yieldSources,
		PriceSource:       ingestion.NewYahooSource(cfg.Sources.YahooBaseURL, tickers),
		PositioningSource: ingestion.NewCFTCSource(cfg.Sources.CFTCBaseURL, markets),
		YieldStore:        stores.yields,
		PriceStore:        stores.prices,
		PositioningStore:  stores.positioning,
	}), nil
}

// writeReports renders and writes the CSV export and the morning brief.
func writeReports(cfg *config.Config, result *orchestrator.RunResult, outputDir string, metrics *observability.Metrics) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvOut := reporting.RenderCSV(result.Snapshots, cfg.SpreadIDs())
	if err := os.WriteFile(filepath.Join(outputDir, "latest.csv"), []byte(csvOut), 0o644); err != nil {
		return fmt.Errorf("write latest.csv: %w", err)
	}
	metrics.ReportsGenerated.WithLabelValues("csv").Inc()

	gen := reporting.NewGenerator(cfg.DomainPairs(), cfg.SpreadIDs(),
		cfg.Thresholds.HighCrowding, cfg.Thresholds.LowCrowding, cfg.Thresholds.FlatSpreadPP)
	brief := gen.MorningBrief(result.Snapshots)
	if err := os.WriteFile(filepath.Join(outputDir, "morning_brief.txt"), []byte(brief), 0o644); err != nil {
		return fmt.Errorf("write morning_brief.txt: %w", err)
	}
	metrics.ReportsGenerated.WithLabelValues("brief").Inc()

	return nil
}

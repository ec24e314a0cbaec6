// Package main provides the ingestion entry point. It pulls yields,
// prices and positioning from the configured providers and stores the
// raw observations.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"fx-regime-lab/internal/config"
	"fx-regime-lab/internal/ingestion"
	"fx-regime-lab/internal/logging"
	"fx-regime-lab/internal/observability"
	"fx-regime-lab/internal/storage"
	"fx-regime-lab/internal/storage/memory"
	"fx-regime-lab/internal/storage/migrations"
	pgstore "fx-regime-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	fromStr := flag.String("from", "", "Start date YYYY-MM-DD (default: config start_date)")
	toStr := flag.String("to", "", "End date YYYY-MM-DD (default: today)")
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
	logger = logger.With().Str("component", "ingest").Logger()

	from, to, err := resolveRange(cfg, *fromStr, *toStr)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid date range")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("cancelling ingestion")
		cancel()
	}()

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr, logger)
	}

	stores, cleanup, err := buildRawStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}
	defer cleanup()

	manager, err := buildManager(cfg, stores)
	if err != nil {
		logger.Fatal().Err(err).Msg("source setup failed")
	}

	logger.Info().
		Time("from", from).
		Time("to", to).
		Str("backend", cfg.Storage.Backend).
		Msg("starting ingestion")

	failures := 0

	ids := make([]string, 0, len(cfg.Instruments))
	for _, in := range cfg.Instruments {
		ids = append(ids, in.ID)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n, err := manager.IngestYields(ctx, id, from, to)
		if err != nil {
			logger.Error().Err(err).Str("instrument", id).Msg("yield ingestion failed")
			metrics.FetchErrors.WithLabelValues("yields").Inc()
			failures++
			continue
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
			logger.Error().Err(err).Str("pair", p.ID).Msg("price ingestion failed")
			metrics.FetchErrors.WithLabelValues("prices").Inc()
			failures++
			continue
		}
		metrics.ObservationsStored.WithLabelValues("prices").Add(float64(n))
		logger.Info().Str("pair", p.ID).Int("stored", n).Msg("prices ingested")
	}

	n, err := manager.IngestPositioning(ctx, from, to)
	if err != nil {
		logger.Error().Err(err).Msg("positioning ingestion failed")
		metrics.FetchErrors.WithLabelValues("positioning").Inc()
		failures++
	} else {
		metrics.ObservationsStored.WithLabelValues("positioning").Add(float64(n))
		logger.Info().Int("stored", n).Msg("positioning ingested")
	}

	if failures > 0 {
		logger.Error().Int("failures", failures).Msg("ingestion completed with errors")
		os.Exit(1)
	}

	metrics.LastSuccessfulIngestion.SetToCurrentTime()
	logger.Info().Msg("ingestion complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func resolveRange(cfg *config.Config, fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" {
		fromStr = cfg.StartDate
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse from: %w", err)
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	if toStr != "" {
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse to: %w", err)
		}
	}
	return from, to, nil
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

// rawStores bundles the three raw observation stores.
type rawStores struct {
	yields      storage.YieldStore
	prices      storage.PriceStore
	positioning storage.PositioningStore
}

// buildRawStores selects the configured backend. The db backend stores
// raw observations in PostgreSQL and applies pending migrations first.
func buildRawStores(ctx context.Context, cfg *config.Config) (*rawStores, func(), error) {
	if cfg.Storage.Backend == "memory" {
		return &rawStores{
			yields:      memory.NewYieldStore(),
			prices:      memory.NewPriceStore(),
			positioning: memory.NewPositioningStore(),
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

	return &rawStores{
		yields:      pgstore.NewYieldStore(pool),
		prices:      pgstore.NewPriceStore(pool),
		positioning: pgstore.NewPositioningStore(pool),
	}, pool.Close, nil
}

// buildManager wires the provider sources declared in configuration.
func buildManager(cfg *config.Config, stores *rawStores) (*ingestion.Manager, error) {
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

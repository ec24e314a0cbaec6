// Package main provides the reporting entry point. It reassembles
// snapshots from stored observations and prints the morning brief,
// plus writes the CSV export.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"fx-regime-lab/internal/config"
	"fx-regime-lab/internal/logging"
	"fx-regime-lab/internal/orchestrator"
	"fx-regime-lab/internal/regime"
	"fx-regime-lab/internal/reporting"
	chstore "fx-regime-lab/internal/storage/clickhouse"
	"fx-regime-lab/internal/storage/migrations"
	pgstore "fx-regime-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (built-in defaults when empty)")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Reporting reads data written by earlier ingest runs, which only
	// exists with the db backend. Memory-backend users get the same
	// output from the pipeline command.
	if cfg.Storage.Backend != "db" {
		fmt.Fprintln(os.Stderr, "Error: the report command requires storage.backend: db")
		fmt.Fprintln(os.Stderr, "With the memory backend, run the pipeline command instead")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger = logger.With().Str("component", "report").Logger()

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to postgres")
	}
	defer pool.Close()

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to clickhouse")
	}
	defer conn.Close()

	// Derived data is deterministic, so reassembling snapshots is a
	// plain rerun; already-stored dates are trimmed before persist.
	orch := orchestrator.New(orchestrator.Options{
		YieldStore:        pgstore.NewYieldStore(pool),
		PriceStore:        pgstore.NewPriceStore(pool),
		PositioningStore:  pgstore.NewPositioningStore(pool),
		SpreadStore:       chstore.NewSpreadStore(conn),
		PercentileStore:   chstore.NewPercentileStore(conn),
		RegimeRecordStore: chstore.NewRegimeRecordStore(conn),
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
		logger.Fatal().Err(err).Msg("snapshot assembly failed")
	}
	for _, e := range result.Errors {
		logger.Warn().Str("error", e).Msg("partial data")
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("create output dir")
	}

	csvOut := reporting.RenderCSV(result.Snapshots, cfg.SpreadIDs())
	csvPath := filepath.Join(*outputDir, "latest.csv")
	if err := os.WriteFile(csvPath, []byte(csvOut), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write latest.csv")
	}

	gen := reporting.NewGenerator(cfg.DomainPairs(), cfg.SpreadIDs(),
		cfg.Thresholds.HighCrowding, cfg.Thresholds.LowCrowding, cfg.Thresholds.FlatSpreadPP)
	brief := gen.MorningBrief(result.Snapshots)

	briefPath := filepath.Join(*outputDir, "morning_brief.txt")
	if err := os.WriteFile(briefPath, []byte(brief), 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write morning_brief.txt")
	}

	fmt.Print(brief)
	fmt.Printf("\nWritten: %s, %s\n", csvPath, briefPath)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

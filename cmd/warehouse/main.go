// Command warehouse ingests the retail CSV and loads it into the MySQL
// star schema. It runs to completion and exits.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"retail-analytics/internal/config"
	"retail-analytics/internal/observability"
	"retail-analytics/internal/services"
	"retail-analytics/internal/warehouse"
)

const loadTimeout = 10 * time.Minute

func main() {
	csvOverride := flag.String("csv", "", "path to the retail CSV (overrides CSV_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if cfg.Warehouse.DSN == "" {
		logger.Error("WAREHOUSE_DSN is required")
		os.Exit(1)
	}

	csvPath := cfg.Data.CSVFile
	if *csvOverride != "" {
		csvPath = *csvOverride
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	analytics := services.NewAnalytics()
	if err := analytics.LoadFromCSV(ctx, csvPath); err != nil {
		logger.Error("failed to load CSV data", "error", err, "csv", csvPath)
		os.Exit(1)
	}
	facts := analytics.Transactions()
	logger.Info("CSV data loaded", "facts", len(facts))

	db, err := warehouse.Open(cfg.Warehouse.DSN)
	if err != nil {
		logger.Error("failed to open warehouse", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("warehouse unreachable", "error", err)
		os.Exit(1)
	}

	if err := warehouse.EnsureSchema(ctx, db); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	loader := warehouse.NewLoader(db, cfg.Warehouse.BatchSize, observability.Component(logger, "warehouse"))
	if err := loader.LoadAll(ctx, facts); err != nil {
		logger.Error("warehouse load failed", "error", err)
		os.Exit(1)
	}

	logger.Info("warehouse load finished")
}

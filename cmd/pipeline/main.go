// Command pipeline runs the trip cleaning and feature-engineering
// pipeline once: load raw trips and zones, validate, enrich, derive
// features, and persist the cleaned artifacts plus the exclusion
// ledger. Stages whose output already exists for the same inputs are
// skipped, so re-running after a successful run is a no-op.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/adapter/http"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/config"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/observability"
	"github.com/IshimweJ-Ona/NYC-Taxi-trips/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	orch := pipeline.NewOrchestrator(cfg, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional metrics listener for watching long ingests.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, orch, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	summary, err := orch.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("http server shutdown error", "error", shutdownErr)
		}
		cancel()
	}

	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run complete",
		"run_id", summary.RunID,
		"raw_records", summary.RawRecords,
		"accepted", summary.Accepted,
		"excluded", summary.Excluded,
		"skipped_rows", summary.SkippedRows,
		"stages_skipped", summary.StagesSkipped,
	)
}

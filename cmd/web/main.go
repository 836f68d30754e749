package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/go-co-op/gocron"

	"retail-analytics/internal/config"
	"retail-analytics/internal/middleware"
	"retail-analytics/internal/observability"
	"retail-analytics/internal/report"
	"retail-analytics/internal/server"
	"retail-analytics/internal/services"
	"retail-analytics/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
	cacheMaxAge    = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	analytics := services.NewAnalytics()
	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.LoadFromCSV(ctx, cfg.Data.CSVFile); err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))

	reports := report.NewGenerator(cfg.Data.ReportDir, observability.Component(logger, "report"))

	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
	}

	srv := server.NewServer(analytics, reports, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		logger.Error("failed to build compression adapter", "error", err)
		os.Exit(1)
	}

	handler := compress(middlewareChain(srv))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	if cfg.Data.RefreshInterval > 0 {
		scheduler := gocron.NewScheduler(time.UTC)
		if _, err := scheduler.Every(cfg.Data.RefreshInterval).Do(func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
			defer cancel()
			if err := analytics.Refresh(refreshCtx); err != nil {
				logger.Error("scheduled data refresh failed", "error", err)
			}
		}); err != nil {
			logger.Error("failed to schedule data refresh", "error", err)
			os.Exit(1)
		}
		scheduler.StartAsync()
		logger.Info("data refresh scheduled", "interval", cfg.Data.RefreshInterval)

		gracefulServer.RegisterShutdownHook("scheduler", func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		})
	}

	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("shutting down analytics service")
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}

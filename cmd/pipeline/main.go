package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/cellguard/internal/adapter/repository/spool"
	"github.com/V4T54L/cellguard/internal/app"
	"github.com/V4T54L/cellguard/internal/domain"
	"github.com/V4T54L/cellguard/internal/pkg/config"
	"github.com/V4T54L/cellguard/internal/pkg/logger"
)

func main() {
	detectKind := flag.String("detect", "", "run detection once for a kind (cdr, network, auth, sms or all) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.New(ctx, cfg, prometheus.DefaultRegisterer, log)
	if err != nil {
		log.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	if *detectKind != "" {
		if err := runDetection(ctx, pipeline, *detectKind, log); err != nil {
			log.Error("detection failed", "error", err)
			pipeline.Close()
			os.Exit(1)
		}
		return
	}

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	records, err := spool.NewSpoolRepository(cfg.SpoolDir, cfg.SpoolSegmentSize, cfg.SpoolMaxDiskSize, log)
	if err != nil {
		log.Error("failed to initialize spool repository", "error", err)
		pipeline.Close()
		os.Exit(1)
	}

	// Drain the spool on every tick
	ticker := time.NewTicker(cfg.ProcessingInterval)
	defer ticker.Stop()

	log.Info("pipeline worker started, draining spool...", "dir", cfg.SpoolDir, "interval", cfg.ProcessingInterval)

Loop:
	for {
		select {
		case <-ticker.C:
			if err := records.Replay(ctx, pipeline.Pipeline.ProcessSpooled); err != nil {
				if ctx.Err() != nil {
					break Loop
				}
				if errors.Is(err, spool.ErrQuarantined) {
					pipeline.Metrics.IncQuarantined()
				}
				log.Error("error processing spool", "error", err)
			}
		case <-ctx.Done():
			break Loop
		}
	}

	log.Info("context cancelled, shutting down pipeline worker")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown failed", "error", err)
	}
	log.Info("pipeline worker shut down gracefully")
}

func runDetection(ctx context.Context, a *app.App, kind string, log *slog.Logger) error {
	kinds := domain.AllKinds
	if kind != "all" {
		k, err := domain.ParseKind(kind)
		if err != nil {
			return err
		}
		kinds = []domain.EventKind{k}
	}

	for _, k := range kinds {
		report, err := a.Pipeline.Detect(ctx, k)
		if err != nil {
			return err
		}
		log.Info("detection finished", "kind", k, "flagged", report.Flagged, "alerts", len(report.Alerts))
	}
	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/V4T54L/cellguard/internal/adapter/repository/spool"
	"github.com/V4T54L/cellguard/internal/app"
	"github.com/V4T54L/cellguard/internal/domain"
	"github.com/V4T54L/cellguard/internal/generator"
	"github.com/V4T54L/cellguard/internal/pkg/config"
	"github.com/V4T54L/cellguard/internal/pkg/logger"
)

type options struct {
	kind     string
	count    int
	seed     uint64
	spoolDir string
	rps      float64
	batch    int
	patterns bool
}

func main() {
	var opts options
	flag.StringVar(&opts.kind, "type", "all", "record kind to generate: all, cdr, network, auth or sms")
	flag.IntVar(&opts.count, "count", 10000, "normal records per kind")
	flag.Uint64Var(&opts.seed, "seed", 0, "random seed (0 picks one from the clock)")
	flag.StringVar(&opts.spoolDir, "spool", "", "write records to this spool directory instead of running the pipeline")
	flag.Float64Var(&opts.rps, "rps", 0, "records per second limit (0 is unlimited)")
	flag.IntVar(&opts.batch, "batch", 1000, "records per pipeline batch")
	flag.BoolVar(&opts.patterns, "patterns", true, "append fraud patterns to the normal records")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		// The wrapped error carries the failing step; the stack only shows main.
		fmt.Fprintf(os.Stderr, "error: %v\n\ngoroutine stack at exit:\n%s", err, debug.Stack())
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.count < 0 {
		return fmt.Errorf("count must not be negative, got %d", opts.count)
	}
	if opts.batch <= 0 {
		return fmt.Errorf("batch must be positive, got %d", opts.batch)
	}

	kinds := domain.AllKinds
	if opts.kind != "all" {
		k, err := domain.ParseKind(opts.kind)
		if err != nil {
			return fmt.Errorf("invalid --type: %w", err)
		}
		kinds = []domain.EventKind{k}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	seed := opts.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen := generator.New(seed, nil)
	log.Info("generating records", "kinds", kinds, "count", opts.count, "seed", seed, "patterns", opts.patterns)

	limit := rate.Inf
	if opts.rps > 0 {
		limit = rate.Limit(opts.rps)
	}

	if opts.spoolDir != "" {
		return spoolRecords(ctx, cfg, gen, kinds, opts, rate.NewLimiter(limit, 1), log)
	}
	return runPipeline(ctx, cfg, gen, kinds, opts, rate.NewLimiter(limit, opts.batch), log)
}

// spoolRecords hands records to a running pipeline worker through the spool.
func spoolRecords(ctx context.Context, cfg *config.Config, gen *generator.Generator, kinds []domain.EventKind, opts options, limiter *rate.Limiter, log *slog.Logger) (err error) {
	records, err := spool.NewSpoolRepository(opts.spoolDir, cfg.SpoolSegmentSize, cfg.SpoolMaxDiskSize, log)
	if err != nil {
		return fmt.Errorf("open spool: %w", err)
	}
	if _, err := records.RecoverOrphans(); err != nil {
		return fmt.Errorf("recover spool orphans: %w", err)
	}
	defer func() {
		if closeErr := records.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close spool: %w", closeErr)
		}
	}()

	written := 0
	for _, kind := range kinds {
		batch, err := gen.Records(kind, opts.count, opts.patterns)
		if err != nil {
			return fmt.Errorf("generate %s records: %w", kind, err)
		}
		for _, rec := range batch {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("spool %s: %w", kind, err)
			}
			if err := records.Write(ctx, domain.SpooledRecord{Kind: kind, Record: rec}); err != nil {
				return fmt.Errorf("failed to spool %s record: %w", kind, err)
			}
			written++
		}
		log.Info("spooled records", "kind", kind, "count", len(batch))
	}
	log.Info("generation finished", "dir", opts.spoolDir, "written", written)
	return nil
}

// runPipeline pushes records straight through validation, ingestion and
// detection, one batch at a time.
func runPipeline(ctx context.Context, cfg *config.Config, gen *generator.Generator, kinds []domain.EventKind, opts options, limiter *rate.Limiter, log *slog.Logger) error {
	pipeline, err := app.New(ctx, cfg, prometheus.NewRegistry(), log)
	if err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer pipeline.Close()

	var received, rejected, ingested, alerts int
	for _, kind := range kinds {
		records, err := gen.Records(kind, opts.count, opts.patterns)
		if err != nil {
			return fmt.Errorf("generate %s records: %w", kind, err)
		}

		for start := 0; start < len(records); start += opts.batch {
			end := min(start+opts.batch, len(records))
			chunk := records[start:end]
			if err := limiter.WaitN(ctx, len(chunk)); err != nil {
				return fmt.Errorf("%s batch at record %d: %w", kind, start, err)
			}

			report, err := pipeline.Pipeline.Run(ctx, kind, chunk)
			if err != nil {
				return fmt.Errorf("%s batch at record %d: %w", kind, start, err)
			}
			received += report.Received
			rejected += report.Rejected
			ingested += report.Ingested
			alerts += len(report.Alerts)
		}

		// Run only detects inline for call records.
		if kind != domain.KindCDR {
			report, err := pipeline.Pipeline.Detect(ctx, kind)
			if err != nil {
				return fmt.Errorf("%s detection: %w", kind, err)
			}
			alerts += len(report.Alerts)
		}
		log.Info("kind processed", "kind", kind, "records", len(records))
	}

	log.Info("generation finished",
		"received", received,
		"rejected", rejected,
		"ingested", ingested,
		"alerts", alerts,
	)
	return nil
}

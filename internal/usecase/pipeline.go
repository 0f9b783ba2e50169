package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/cellguard/internal/adapter/metrics"
	"github.com/V4T54L/cellguard/internal/adapter/pii"
	"github.com/V4T54L/cellguard/internal/detection"
	"github.com/V4T54L/cellguard/internal/domain"
	"github.com/V4T54L/cellguard/internal/validation"
)

// BatchReport summarizes one pipeline run.
type BatchReport struct {
	Kind     domain.EventKind
	Received int
	Rejected int
	Ingested int
	Flagged  int
	Alerts   []domain.FraudAlert
}

// PipelineUseCase runs a batch of raw records through validation,
// ingestion, detection, alerting and cache publishing, strictly in that
// order. A stage error aborts the stages after it.
type PipelineUseCase struct {
	ingest    *IngestUseCase
	engine    *detection.Engine
	alerts    *AlertUseCase
	publisher *CachePublisher
	redactor  *pii.Redactor
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
}

// NewPipelineUseCase creates a new PipelineUseCase. m may be nil.
func NewPipelineUseCase(ingest *IngestUseCase, engine *detection.Engine, alerts *AlertUseCase, publisher *CachePublisher, m *metrics.PipelineMetrics, logger *slog.Logger) *PipelineUseCase {
	return &PipelineUseCase{
		ingest:    ingest,
		engine:    engine,
		alerts:    alerts,
		publisher: publisher,
		metrics:   m,
		logger:    logger.With("component", "pipeline"),
	}
}

// WithRedactor makes rejected records appear in the log, masked by r.
func (uc *PipelineUseCase) WithRedactor(r *pii.Redactor) *PipelineUseCase {
	uc.redactor = r
	return uc
}

// Run processes one batch of records of a single kind. Detection runs
// inline for call records only; other kinds are detected through Detect.
func (uc *PipelineUseCase) Run(ctx context.Context, kind domain.EventKind, records []domain.RawRecord) (report BatchReport, err error) {
	report = BatchReport{Kind: kind, Received: len(records)}
	defer func() { uc.metrics.ObserveBatch(string(kind), err) }()

	if _, err := domain.ParseKind(string(kind)); err != nil {
		return report, err
	}

	// 1. Validate, dropping bad records
	start := time.Now()
	valid := make([]domain.RawRecord, 0, len(records))
	for i, rec := range records {
		if ok, reason := validation.Validate(rec, kind); !ok {
			report.Rejected++
			uc.logger.Warn("rejected record",
				"error", &domain.ValidationError{Kind: kind, Index: i, Reason: reason},
				"record", uc.redactor.Redact(rec),
			)
			continue
		}
		valid = append(valid, rec)
	}
	uc.metrics.ObserveRecords(string(kind), len(valid), report.Rejected)
	uc.metrics.ObserveStage("validate", start)

	// 2. Ingest
	start = time.Now()
	report.Ingested, err = uc.ingest.Ingest(ctx, kind, valid)
	uc.metrics.ObserveStage("ingest", start)
	if err != nil {
		return report, err
	}

	// 3. Detect, materialize and publish alerts
	if kind == domain.KindCDR {
		report.Flagged, report.Alerts, err = uc.detect(ctx, kind)
		if err != nil {
			return report, err
		}
	}

	// 4. Refresh dashboard figures
	start = time.Now()
	uc.publisher.PublishMetrics(ctx)
	uc.metrics.ObserveStage("publish_metrics", start)

	uc.logger.Info("batch processed",
		"kind", kind,
		"count", report.Received,
		"rejected", report.Rejected,
		"ingested", report.Ingested,
		"flagged", report.Flagged,
		"alerts", len(report.Alerts),
	)
	return report, nil
}

// Detect runs detection over the current window of one kind, then
// materializes and publishes alerts for every flagged group.
func (uc *PipelineUseCase) Detect(ctx context.Context, kind domain.EventKind) (BatchReport, error) {
	report := BatchReport{Kind: kind}
	var err error
	report.Flagged, report.Alerts, err = uc.detect(ctx, kind)
	if err != nil {
		return report, err
	}
	uc.publisher.PublishMetrics(ctx)
	return report, nil
}

func (uc *PipelineUseCase) detect(ctx context.Context, kind domain.EventKind) (int, []domain.FraudAlert, error) {
	start := time.Now()
	rows, err := uc.engine.Detect(ctx, kind)
	uc.metrics.ObserveStage("detect", start)
	if err != nil {
		return 0, nil, err
	}
	flagged := detection.CountSuspicious(rows)
	uc.metrics.AddSuspicious(string(kind), flagged)
	if flagged == 0 {
		return 0, nil, nil
	}

	start = time.Now()
	alerts, err := uc.alerts.Materialize(ctx, rows)
	uc.metrics.ObserveStage("materialize", start)
	if err != nil {
		return flagged, nil, err
	}

	start = time.Now()
	uc.publisher.PublishAlerts(ctx, alerts)
	uc.metrics.ObserveStage("publish_alerts", start)
	return flagged, alerts, nil
}

// ProcessSpooled runs spooled records through Run, one call per run of
// consecutive records sharing a kind, then detects once for every kind
// that Run does not detect inline. It stops at the first failure.
func (uc *PipelineUseCase) ProcessSpooled(ctx context.Context, records []domain.SpooledRecord) error {
	pending := make(map[domain.EventKind]bool)
	for len(records) > 0 {
		kind := records[0].Kind
		n := 1
		for n < len(records) && records[n].Kind == kind {
			n++
		}
		batch := make([]domain.RawRecord, n)
		for i := range batch {
			batch[i] = records[i].Record
		}
		if _, err := uc.Run(ctx, kind, batch); err != nil {
			return fmt.Errorf("spooled %s batch of %d: %w", kind, n, err)
		}
		if kind != domain.KindCDR {
			pending[kind] = true
		}
		records = records[n:]
	}

	for _, kind := range domain.AllKinds {
		if !pending[kind] {
			continue
		}
		if _, err := uc.Detect(ctx, kind); err != nil {
			return fmt.Errorf("spooled %s detection: %w", kind, err)
		}
	}
	return nil
}

package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/cellguard/internal/adapter/metrics"
	"github.com/V4T54L/cellguard/internal/adapter/pii"
	"github.com/V4T54L/cellguard/internal/detection"
	"github.com/V4T54L/cellguard/internal/domain"
)

// DefaultAlertNumberPrefix is used when no prefix is configured.
const DefaultAlertNumberPrefix = "FR"

// AlertUseCase turns suspicious aggregate rows into persisted fraud alerts.
type AlertUseCase struct {
	store      domain.AlertStore
	thresholds detection.Thresholds
	prefix     string
	newID      func() string
	now        func() time.Time
	metrics    *metrics.PipelineMetrics
	logger     *slog.Logger
}

// NewAlertUseCase creates a new AlertUseCase. m may be nil.
func NewAlertUseCase(store domain.AlertStore, thresholds detection.Thresholds, prefix string, m *metrics.PipelineMetrics, logger *slog.Logger) *AlertUseCase {
	if prefix == "" {
		prefix = DefaultAlertNumberPrefix
	}
	return &AlertUseCase{
		store:      store,
		thresholds: thresholds,
		prefix:     prefix,
		newID:      uuid.NewString,
		now:        time.Now,
		metrics:    m,
		logger:     logger.With("component", "alert_materializer"),
	}
}

// Materialize creates one alert per suspicious row and writes them in a
// single batch. Rows that are not suspicious are skipped. No alerts are
// returned when the write fails.
func (uc *AlertUseCase) Materialize(ctx context.Context, rows []domain.Aggregate) ([]domain.FraudAlert, error) {
	detectedAt := uc.now().UTC()

	var alerts []domain.FraudAlert
	for _, row := range rows {
		a, ok := detection.Assess(row, uc.thresholds)
		if !ok {
			continue
		}
		id := uc.newID()
		alerts = append(alerts, domain.FraudAlert{
			ID:              id,
			Number:          uc.alertNumber(id, detectedAt),
			Type:            a.Type,
			Severity:        a.Severity,
			Status:          domain.AlertStatusActive,
			ConfidenceScore: a.Confidence,
			AffectedEntity:  a.AffectedEntity,
			Location:        a.Location,
			DetectionTime:   detectedAt,
			Explanation:     a.Explanation,
			Correlation:     a.Correlation,
			RevenueAtRisk:   a.RevenueAtRisk,
		})
	}
	if len(alerts) == 0 {
		return nil, nil
	}

	if err := uc.store.WriteBatch(ctx, alerts); err != nil {
		uc.logger.Error("failed to write alert batch", "count", len(alerts), "error", err)
		return nil, &domain.AlertWriteError{Count: len(alerts), Err: err}
	}

	for _, a := range alerts {
		uc.metrics.IncAlert(string(a.Type), string(a.Severity))
		uc.logger.Info("fraud alert raised",
			"alert_number", a.Number,
			"type", a.Type,
			"severity", a.Severity,
			"entity", pii.Mask(a.AffectedEntity),
		)
	}
	return alerts, nil
}

// alertNumber renders <prefix>-<yyyymmdd>-<all 32 hex digits of id>. The
// full id is kept so numbers are as unique as the ids themselves.
func (uc *AlertUseCase) alertNumber(id string, at time.Time) string {
	hex := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	return uc.prefix + "-" + at.Format("20060102") + "-" + hex
}

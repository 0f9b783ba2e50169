package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/cellguard/internal/domain"
)

// AlertRepository implements domain.AlertStore for PostgreSQL.
type AlertRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAlertRepository creates a new PostgreSQL alert repository.
func NewAlertRepository(db *sql.DB, logger *slog.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger.With("component", "alert_store")}
}

// WriteBatch inserts all alerts in one transaction. A duplicate alert number
// or any other failure rolls the whole batch back.
func (r *AlertRepository) WriteBatch(ctx context.Context, alerts []domain.FraudAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	stmt, err := txn.PrepareContext(ctx, `
		INSERT INTO alerts (id, alert_number, alert_type, severity, status, confidence_score,
		                    customer_affected, location, detection_time, ai_analysis,
		                    correlation_data, revenue_at_risk)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range alerts {
		analysis, err := json.Marshal(nonNilStrings(a.Explanation))
		if err != nil {
			return fmt.Errorf("alert %s: %w", a.Number, err)
		}
		correlation, err := json.Marshal(nonNilMap(a.Correlation))
		if err != nil {
			return fmt.Errorf("alert %s: %w", a.Number, err)
		}
		_, err = stmt.ExecContext(ctx,
			a.ID, a.Number, string(a.Type), string(a.Severity), a.Status, a.ConfidenceScore,
			a.AffectedEntity, a.Location, a.DetectionTime.UTC(), string(analysis),
			string(correlation), a.RevenueAtRisk)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				r.logger.Error("duplicate alert number", "alert_number", a.Number, "constraint", pqErr.Constraint)
			}
			return fmt.Errorf("alert %s: %w", a.Number, err)
		}
	}

	return txn.Commit()
}

// ReadAggregateCounts returns the number of active alerts and the revenue at
// risk across active and investigating alerts.
func (r *AlertRepository) ReadAggregateCounts(ctx context.Context) (domain.DashboardCounts, error) {
	var counts domain.DashboardCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COALESCE(SUM(revenue_at_risk) FILTER (WHERE status IN ('active', 'investigating')), 0)::float8
		FROM alerts`).Scan(&counts.ActiveCount, &counts.AtRiskRevenue)
	if err != nil {
		return domain.DashboardCounts{}, err
	}
	return counts, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

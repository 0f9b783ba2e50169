package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/V4T54L/cellguard/internal/adapter/metrics"
	"github.com/V4T54L/cellguard/internal/domain"
)

// CacheOptions configures key names and lifetimes of published entries.
type CacheOptions struct {
	Namespace   string
	AlertTTL    time.Duration
	MetricsTTL  time.Duration
	ActiveLimit int64
}

// DefaultCacheOptions returns the dashboard's expected layout.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Namespace:   "cybercell",
		AlertTTL:    300 * time.Second,
		MetricsTTL:  60 * time.Second,
		ActiveLimit: 100,
	}
}

func (o CacheOptions) AlertKey(number string) string { return o.Namespace + ":alert:" + number }
func (o CacheOptions) ActiveListKey() string         { return o.Namespace + ":alerts:active" }
func (o CacheOptions) CriticalCountKey() string      { return o.Namespace + ":metrics:critical_count" }
func (o CacheOptions) DashboardKey() string          { return o.Namespace + ":dashboard:metrics" }

// alertSnapshot is the short-lived view of an alert the dashboard renders.
type alertSnapshot struct {
	Number        string           `json:"alertNumber"`
	Type          domain.AlertType `json:"type"`
	Severity      domain.Severity  `json:"severity"`
	Confidence    int              `json:"confidence"`
	Location      string           `json:"location"`
	DetectionTime time.Time        `json:"detectionTime"`
	Explanation   []string         `json:"aiAnalysis"`
}

type dashboardMetrics struct {
	ActiveThreats int64     `json:"activeThreats"`
	RevenueAtRisk float64   `json:"revenueAtRisk"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// CachePublisher pushes alert snapshots and dashboard figures to the cache.
// Every operation is best effort: failures are logged and counted but never
// returned, since the cache is not a source of truth.
type CachePublisher struct {
	cache   domain.Cache
	alerts  domain.AlertStore
	opts    CacheOptions
	now     func() time.Time
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger
}

// NewCachePublisher creates a new CachePublisher. m may be nil.
func NewCachePublisher(cache domain.Cache, alerts domain.AlertStore, opts CacheOptions, m *metrics.PipelineMetrics, logger *slog.Logger) *CachePublisher {
	return &CachePublisher{
		cache:   cache,
		alerts:  alerts,
		opts:    opts,
		now:     time.Now,
		metrics: m,
		logger:  logger.With("component", "cache_publisher"),
	}
}

// PublishAlert writes the alert snapshot, records it in the bounded recency
// list and bumps the critical counter for critical alerts. Each write is
// attempted independently.
func (p *CachePublisher) PublishAlert(ctx context.Context, alert domain.FraudAlert) {
	snapshot, err := json.Marshal(alertSnapshot{
		Number:        alert.Number,
		Type:          alert.Type,
		Severity:      alert.Severity,
		Confidence:    alert.ConfidenceScore,
		Location:      alert.Location,
		DetectionTime: alert.DetectionTime,
		Explanation:   alert.Explanation,
	})
	key := p.opts.AlertKey(alert.Number)
	if err != nil {
		p.fail(&domain.CachePublishError{Op: "encode", Key: key, Err: err})
		return
	}

	if err := p.cache.SetWithTTL(ctx, key, snapshot, p.opts.AlertTTL); err != nil {
		p.fail(&domain.CachePublishError{Op: "set", Key: key, Err: err})
	}

	if err := p.cache.PushBounded(ctx, p.opts.ActiveListKey(), alert.Number, p.opts.ActiveLimit); err != nil {
		p.fail(&domain.CachePublishError{Op: "push", Key: p.opts.ActiveListKey(), Err: err})
	}

	if alert.Severity == domain.SeverityCritical {
		if _, err := p.cache.Increment(ctx, p.opts.CriticalCountKey()); err != nil {
			p.fail(&domain.CachePublishError{Op: "incr", Key: p.opts.CriticalCountKey(), Err: err})
		}
	}

	p.logger.Debug("published alert to cache", "alert_number", alert.Number)
}

// PublishAlerts publishes each alert in order.
func (p *CachePublisher) PublishAlerts(ctx context.Context, alerts []domain.FraudAlert) {
	for _, a := range alerts {
		p.PublishAlert(ctx, a)
	}
}

// PublishMetrics reads the dashboard counts from the alert store and writes
// them under the dashboard key.
func (p *CachePublisher) PublishMetrics(ctx context.Context) {
	counts, err := p.alerts.ReadAggregateCounts(ctx)
	if err != nil {
		p.fail(&domain.CachePublishError{Op: "read_counts", Key: p.opts.DashboardKey(), Err: err})
		return
	}

	body, err := json.Marshal(dashboardMetrics{
		ActiveThreats: counts.ActiveCount,
		RevenueAtRisk: counts.AtRiskRevenue,
		LastUpdated:   p.now().UTC(),
	})
	if err != nil {
		p.fail(&domain.CachePublishError{Op: "encode", Key: p.opts.DashboardKey(), Err: err})
		return
	}

	if err := p.cache.SetWithTTL(ctx, p.opts.DashboardKey(), body, p.opts.MetricsTTL); err != nil {
		p.fail(&domain.CachePublishError{Op: "set", Key: p.opts.DashboardKey(), Err: err})
		return
	}
	p.logger.Debug("dashboard metrics updated", "active", counts.ActiveCount, "at_risk", counts.AtRiskRevenue)
}

func (p *CachePublisher) fail(err *domain.CachePublishError) {
	p.metrics.IncCacheFailure(err.Op)
	p.logger.Warn("cache publish failed", "op", err.Op, "key", err.Key, "error", err)
}

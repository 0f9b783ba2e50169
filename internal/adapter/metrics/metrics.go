package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds all Prometheus metrics for the detection pipeline.
type PipelineMetrics struct {
	RecordsTotal        *prometheus.CounterVec
	BatchesTotal        *prometheus.CounterVec
	SuspiciousGroups    *prometheus.CounterVec
	AlertsTotal         *prometheus.CounterVec
	CacheFailuresTotal  *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	SpoolSegmentsFailed prometheus.Counter
}

// NewPipelineMetrics initializes the metrics and registers them with reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	factory := promauto.With(reg)
	return &PipelineMetrics{
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Total number of input records by kind and outcome.",
		}, []string{"kind", "status"}), // status: accepted, rejected
		BatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "pipeline",
			Name:      "batches_total",
			Help:      "Total number of pipeline batches by kind and outcome.",
		}, []string{"kind", "status"}), // status: ok, error
		SuspiciousGroups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "detection",
			Name:      "suspicious_groups_total",
			Help:      "Total number of aggregate rows labeled suspicious.",
		}, []string{"kind"}),
		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "alerts",
			Name:      "materialized_total",
			Help:      "Total number of fraud alerts written, by type and severity.",
		}, []string{"type", "severity"}),
		CacheFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "cache",
			Name:      "publish_failures_total",
			Help:      "Total number of swallowed cache write failures.",
		}, []string{"op"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cellguard",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		SpoolSegmentsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "cellguard",
			Subsystem: "spool",
			Name:      "segments_quarantined_total",
			Help:      "Total number of spool segments quarantined after a failed batch.",
		}),
	}
}

// The helpers below are safe to call on a nil *PipelineMetrics so that
// use cases can run without a registry.

func (m *PipelineMetrics) ObserveRecords(kind string, accepted, rejected int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(kind, "accepted").Add(float64(accepted))
	m.RecordsTotal.WithLabelValues(kind, "rejected").Add(float64(rejected))
}

func (m *PipelineMetrics) ObserveBatch(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.BatchesTotal.WithLabelValues(kind, status).Inc()
}

func (m *PipelineMetrics) AddSuspicious(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SuspiciousGroups.WithLabelValues(kind).Add(float64(n))
}

func (m *PipelineMetrics) IncAlert(alertType, severity string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(alertType, severity).Inc()
}

func (m *PipelineMetrics) IncCacheFailure(op string) {
	if m == nil {
		return
	}
	m.CacheFailuresTotal.WithLabelValues(op).Inc()
}

// ObserveStage records the time elapsed since start for a pipeline stage.
func (m *PipelineMetrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *PipelineMetrics) IncQuarantined() {
	if m == nil {
		return
	}
	m.SpoolSegmentsFailed.Inc()
}

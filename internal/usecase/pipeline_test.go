package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/cellguard/internal/adapter/metrics"
	"github.com/V4T54L/cellguard/internal/adapter/pii"
	"github.com/V4T54L/cellguard/internal/detection"
	"github.com/V4T54L/cellguard/internal/domain"
	"github.com/V4T54L/cellguard/internal/domain/mocks"
)

type pipelineFixture struct {
	events  *mocks.MockEventStore
	alerts  *mocks.MockAlertStore
	cache   *mocks.MockCache
	metrics *metrics.PipelineMetrics
	uc      *PipelineUseCase
}

func newPipelineFixture(th detection.Thresholds) *pipelineFixture {
	f := &pipelineFixture{
		events:  &mocks.MockEventStore{},
		alerts:  &mocks.MockAlertStore{},
		cache:   mocks.NewMockCache(),
		metrics: metrics.NewPipelineMetrics(prometheus.NewRegistry()),
	}
	logger := discardLogger()
	clock := func() time.Time { return testNow }

	ingest := NewIngestUseCase(f.events, logger)
	ingest.now = clock
	engine := detection.NewEngine(f.events, th, time.Hour, logger).WithClock(clock)
	alerts := NewAlertUseCase(f.alerts, th, "FR", f.metrics, logger)
	alerts.now = clock
	publisher := NewCachePublisher(f.cache, f.alerts, DefaultCacheOptions(), f.metrics, logger)
	publisher.now = clock

	f.uc = NewPipelineUseCase(ingest, engine, alerts, publisher, f.metrics, logger)
	return f
}

func simboxCalls(phone string, n int) []domain.RawRecord {
	records := make([]domain.RawRecord, n)
	for i := range records {
		records[i] = domain.RawRecord{
			"phone_number":     phone,
			"call_time":        testNow.Add(-time.Duration(i+1) * time.Second),
			"duration":         30,
			"cell_id":          "CELL001",
			"is_international": true,
			"cost":             0.15,
		}
	}
	return records
}

func TestPipelineUseCase_Run_SIMBox(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	records := simboxCalls("+994501234567", 101)
	records = append(records, domain.RawRecord{"phone_number": "12", "call_time": testNow, "duration": 1})

	report, err := f.uc.Run(context.Background(), domain.KindCDR, records)
	require.NoError(t, err)

	assert.Equal(t, 102, report.Received)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 101, report.Ingested)
	assert.Equal(t, 1, report.Flagged)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, domain.SeverityHigh, report.Alerts[0].Severity)
	assert.InDelta(t, 15.15, report.Alerts[0].RevenueAtRisk, 1e-9)

	assert.Len(t, f.events.Events, 101)
	assert.Len(t, f.alerts.Alerts, 1)
	assert.Equal(t, []string{report.Alerts[0].Number}, f.cache.Lists["cybercell:alerts:active"])
	assert.Contains(t, f.cache.Values, "cybercell:dashboard:metrics")

	assert.Equal(t, 101.0, testutil.ToFloat64(f.metrics.RecordsTotal.WithLabelValues("cdr", "accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RecordsTotal.WithLabelValues("cdr", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BatchesTotal.WithLabelValues("cdr", "ok")))
}

func TestPipelineUseCase_Run_InvalidRecordsNeverIngested(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	report, err := f.uc.Run(context.Background(), domain.KindNetwork, []domain.RawRecord{
		{"source_ip": "256.1.1.1", "dest_ip": "10.0.0.1", "bytes": 10},
		{"source_ip": "10.0.0.2", "bytes": 10},
		{"source_ip": "10.0.0.3", "dest_ip": "10.0.0.1", "bytes": 10},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, 1, report.Ingested)
	require.Len(t, f.events.Events, 1)
	assert.Equal(t, "10.0.0.3", f.events.Events[0].SourceIP)
	assert.Zero(t, report.Flagged, "detection runs inline for call records only")
}

func TestPipelineUseCase_Run_RejectedRecordsAreLoggedMasked(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	f.uc.logger = logger
	f.uc.WithRedactor(pii.NewRedactor([]string{"phone_number"}, logger))

	_, err := f.uc.Run(context.Background(), domain.KindCDR, []domain.RawRecord{
		{"phone_number": "+994501234567", "duration": 30},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "rejected record")
	assert.Contains(t, out, "*********4567")
	assert.NotContains(t, out, "+994501234567")
}

func TestPipelineUseCase_Run_UnparseableCallTimeRejected(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	report, err := f.uc.Run(context.Background(), domain.KindCDR, []domain.RawRecord{
		{"phone_number": "+994501234567", "call_time": "yesterday", "duration": 30},
		{"phone_number": "+994501234567", "call_time": "2026-10-17 03:00:00", "duration": 30},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Rejected)
	require.Len(t, f.events.Events, 1)
	assert.Equal(t, time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC), f.events.Events[0].Time)
}

func TestPipelineUseCase_Run_IngestFailureAborts(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	f.events.WriteErr = errors.New("connection reset")

	report, err := f.uc.Run(context.Background(), domain.KindCDR, simboxCalls("+994501234567", 150))

	var ingestErr *domain.IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Zero(t, report.Ingested)
	assert.Empty(t, f.alerts.Alerts)
	assert.NotContains(t, f.cache.Values, "cybercell:dashboard:metrics")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.BatchesTotal.WithLabelValues("cdr", "error")))
}

func TestPipelineUseCase_Run_ExtractionFailureAborts(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	f.events.QueryErr = errors.New("statement timeout")

	report, err := f.uc.Run(context.Background(), domain.KindCDR, simboxCalls("+994501234567", 5))

	var extractErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, 5, report.Ingested, "ingestion already committed")
	assert.Empty(t, f.alerts.Alerts)
}

func TestPipelineUseCase_Run_AlertWriteFailureAborts(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	f.alerts.WriteErr = errors.New("duplicate alert_number")

	_, err := f.uc.Run(context.Background(), domain.KindCDR, simboxCalls("+994501234567", 101))

	var writeErr *domain.AlertWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Empty(t, f.cache.Lists)
}

func TestPipelineUseCase_Run_CacheOutageDoesNotFail(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	f.cache.SetErr = errors.New("redis down")
	f.cache.PushErr = errors.New("redis down")

	report, err := f.uc.Run(context.Background(), domain.KindCDR, simboxCalls("+994501234567", 101))
	require.NoError(t, err)
	assert.Len(t, report.Alerts, 1)
	assert.Len(t, f.alerts.Alerts, 1)
}

func TestPipelineUseCase_Run_UnknownKind(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	_, err := f.uc.Run(context.Background(), domain.EventKind("fax"), []domain.RawRecord{{}})
	require.Error(t, err)
	assert.Empty(t, f.events.Events)
}

func TestPipelineUseCase_Detect_Auth(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	ctx := context.Background()

	var records []domain.RawRecord
	for i := 0; i < 6; i++ {
		records = append(records, domain.RawRecord{
			"phone_number": "+994501234567",
			"timestamp":    testNow.Add(-time.Duration(10-i) * time.Minute),
			"success":      false,
			"location":     "Foreign",
		})
	}
	records = append(records, domain.RawRecord{
		"phone_number": "+994501234567",
		"timestamp":    testNow.Add(-time.Minute),
		"success":      true,
		"new_device":   true,
		"location":     "Baku",
	})

	report, err := f.uc.Run(ctx, domain.KindAuth, records)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Ingested)
	assert.Empty(t, report.Alerts)

	report, err = f.uc.Detect(ctx, domain.KindAuth)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flagged)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, domain.AlertSIMSwap, report.Alerts[0].Type)
	assert.Equal(t, domain.SeverityHigh, report.Alerts[0].Severity)
	assert.Equal(t, "Baku", report.Alerts[0].Location)
}

func TestPipelineUseCase_ProcessSpooled(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	spooled := []domain.SpooledRecord{
		{Kind: domain.KindSMS, Record: domain.RawRecord{"sender": "+994501234567", "timestamp": testNow}},
		{Kind: domain.KindSMS, Record: domain.RawRecord{"sender": "+994501234568", "timestamp": testNow}},
		{Kind: domain.KindAuth, Record: domain.RawRecord{"phone_number": "+994501234567", "timestamp": testNow}},
		{Kind: domain.KindSMS, Record: domain.RawRecord{"sender": "+994501234569", "timestamp": testNow}},
	}

	require.NoError(t, f.uc.ProcessSpooled(context.Background(), spooled))

	assert.Equal(t, 3, f.events.Batches, "one batch per run of same-kind records")
	require.Len(t, f.events.Events, 4)
	assert.Equal(t, domain.KindSMS, f.events.Events[0].Kind)
	assert.Equal(t, domain.KindAuth, f.events.Events[2].Kind)
	assert.Equal(t, "+994501234569", f.events.Events[3].PhoneNumber)
}

func TestPipelineUseCase_ProcessSpooled_DetectsNonCallKinds(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())

	var spooled []domain.SpooledRecord
	for i := 0; i < 6; i++ {
		spooled = append(spooled, domain.SpooledRecord{Kind: domain.KindAuth, Record: domain.RawRecord{
			"phone_number": "+994501234567",
			"timestamp":    testNow.Add(-time.Duration(10-i) * time.Minute),
			"success":      false,
		}})
	}

	require.NoError(t, f.uc.ProcessSpooled(context.Background(), spooled))

	require.Len(t, f.alerts.Alerts, 1)
	assert.Equal(t, domain.AlertSIMSwap, f.alerts.Alerts[0].Type)
	assert.Equal(t, []string{f.alerts.Alerts[0].Number}, f.cache.Lists["cybercell:alerts:active"])
}

func TestPipelineUseCase_ProcessSpooled_StopsOnError(t *testing.T) {
	f := newPipelineFixture(detection.DefaultThresholds())
	f.events.WriteErr = errors.New("disk full")

	err := f.uc.ProcessSpooled(context.Background(), []domain.SpooledRecord{
		{Kind: domain.KindSMS, Record: domain.RawRecord{"sender": "+994501234567"}},
		{Kind: domain.KindAuth, Record: domain.RawRecord{"phone_number": "+994501234567"}},
	})
	require.Error(t, err)
	assert.Zero(t, f.events.Batches)
}

// Package detection turns a trailing window of stored events into per-entity
// aggregate rows and labels each row against static thresholds.
package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/cellguard/internal/domain"
)

// DefaultWindow is the trailing window used when none is configured.
const DefaultWindow = time.Hour

// Engine extracts windows from the event store and labels them.
type Engine struct {
	store      domain.EventStore
	thresholds Thresholds
	window     time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewEngine creates an Engine. A non-positive window falls back to DefaultWindow.
func NewEngine(store domain.EventStore, thresholds Thresholds, window time.Duration, logger *slog.Logger) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		store:      store,
		thresholds: thresholds,
		window:     window,
		now:        time.Now,
		logger:     logger.With("component", "detection_engine"),
	}
}

// WithClock replaces the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Thresholds returns the thresholds the engine labels with.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

func (e *Engine) currentWindow() domain.TimeRange {
	end := e.now().UTC()
	return domain.TimeRange{From: end.Add(-e.window), To: end}
}

func (e *Engine) extract(ctx context.Context, kind domain.EventKind) ([]domain.TelecomEvent, domain.TimeRange, error) {
	window := e.currentWindow()
	events, err := e.store.Query(ctx, kind, window)
	if err != nil {
		return nil, window, &domain.ExtractionError{Kind: kind, Err: err}
	}
	e.logger.Debug("extracted detection window", "kind", kind, "count", len(events), "from", window.From, "to", window.To)
	return events, window, nil
}

// ExtractCDR groups the window's call records by (phone number, cell).
func (e *Engine) ExtractCDR(ctx context.Context) ([]domain.CDRAggregate, error) {
	events, window, err := e.extract(ctx, domain.KindCDR)
	if err != nil {
		return nil, err
	}
	return GroupCDR(events, window), nil
}

// ExtractAuth groups the window's authentication events by phone number.
func (e *Engine) ExtractAuth(ctx context.Context) ([]domain.AuthAggregate, error) {
	events, window, err := e.extract(ctx, domain.KindAuth)
	if err != nil {
		return nil, err
	}
	return GroupAuth(events, window), nil
}

// ExtractNetwork groups the window's traffic by source IP.
func (e *Engine) ExtractNetwork(ctx context.Context) ([]domain.NetworkAggregate, error) {
	events, window, err := e.extract(ctx, domain.KindNetwork)
	if err != nil {
		return nil, err
	}
	return GroupNetwork(events, window), nil
}

// ExtractSMS groups the window's messages by sender.
func (e *Engine) ExtractSMS(ctx context.Context) ([]domain.SMSAggregate, error) {
	events, window, err := e.extract(ctx, domain.KindSMS)
	if err != nil {
		return nil, err
	}
	return GroupSMS(events, window), nil
}

// Detect extracts and labels the window for kind. Every row is returned,
// flagged or not, in first-occurrence order.
func (e *Engine) Detect(ctx context.Context, kind domain.EventKind) ([]domain.Aggregate, error) {
	var out []domain.Aggregate
	switch kind {
	case domain.KindCDR:
		rows, err := e.ExtractCDR(ctx)
		if err != nil {
			return nil, err
		}
		LabelCDR(rows, e.thresholds)
		out = make([]domain.Aggregate, len(rows))
		for i, r := range rows {
			out[i] = r
		}
	case domain.KindAuth:
		rows, err := e.ExtractAuth(ctx)
		if err != nil {
			return nil, err
		}
		LabelAuth(rows, e.thresholds)
		out = make([]domain.Aggregate, len(rows))
		for i, r := range rows {
			out[i] = r
		}
	case domain.KindNetwork:
		rows, err := e.ExtractNetwork(ctx)
		if err != nil {
			return nil, err
		}
		LabelNetwork(rows, e.thresholds)
		out = make([]domain.Aggregate, len(rows))
		for i, r := range rows {
			out[i] = r
		}
	case domain.KindSMS:
		rows, err := e.ExtractSMS(ctx)
		if err != nil {
			return nil, err
		}
		LabelSMS(rows, e.thresholds)
		out = make([]domain.Aggregate, len(rows))
		for i, r := range rows {
			out[i] = r
		}
	default:
		return nil, fmt.Errorf("no detection rules for kind %q", kind)
	}

	e.logger.Info("labeled detection window", "kind", kind, "groups", len(out), "suspicious", CountSuspicious(out))
	return out, nil
}

// CountSuspicious returns how many rows carry the suspicious flag.
func CountSuspicious(rows []domain.Aggregate) int {
	n := 0
	for _, r := range rows {
		if r.Header().Suspicious {
			n++
		}
	}
	return n
}

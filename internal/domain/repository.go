package domain

import (
	"context"
	"time"
)

// EventStore is the durable, time-keyed store of normalized telecom events.
// This abstracts away the specific implementation (e.g., TimescaleDB).
type EventStore interface {
	// WriteBatch appends all events in a single atomic transaction. On any
	// failure nothing from the batch is visible.
	WriteBatch(ctx context.Context, events []TelecomEvent) error

	// Query returns the events of one kind inside the time range, ordered by
	// event time and then by write order.
	Query(ctx context.Context, kind EventKind, window TimeRange) ([]TelecomEvent, error)
}

// AlertStore is the relational store of fraud alerts.
type AlertStore interface {
	// WriteBatch persists all alerts atomically.
	WriteBatch(ctx context.Context, alerts []FraudAlert) error

	// ReadAggregateCounts returns the active alert count and the revenue at risk.
	ReadAggregateCounts(ctx context.Context) (DashboardCounts, error)
}

// Cache is the fast key-value store the dashboard reads from.
// Implementations must be safe for concurrent use.
type Cache interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PushBounded prepends value to the list at key and trims it to maxLen,
	// evicting the oldest entries.
	PushBounded(ctx context.Context, key, value string, maxLen int64) error

	Increment(ctx context.Context, key string) (int64, error)
}

// SpooledRecord is a raw record waiting in the local spool.
type SpooledRecord struct {
	Kind   EventKind `json:"kind"`
	Record RawRecord `json:"record"`
}

// SpoolRepository defines the interface for the on-disk record spool that
// decouples record producers from the pipeline worker.
type SpoolRepository interface {
	// Write appends a record to the current spool segment.
	Write(ctx context.Context, rec SpooledRecord) error

	// Replay hands each sealed segment's records to handler, in order. A
	// segment is removed once handler succeeds and quarantined when it fails.
	Replay(ctx context.Context, handler func(ctx context.Context, records []SpooledRecord) error) error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/cellguard/internal/domain"
)

const eventsTableName = "telecom_events"

// EventRepository implements domain.EventStore on a TimescaleDB hypertable.
type EventRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEventRepository creates a new TimescaleDB event repository.
func NewEventRepository(db *sql.DB, logger *slog.Logger) *EventRepository {
	return &EventRepository{db: db, logger: logger.With("component", "event_store")}
}

// WriteBatch streams the events into the hypertable with the COPY protocol
// inside a single transaction. Rows receive their ingest_seq in slice order.
func (r *EventRepository) WriteBatch(ctx context.Context, events []domain.TelecomEvent) error {
	if len(events) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(eventsTableName,
		"time", "event_type", "event_subtype", "source_ip", "dest_ip",
		"phone_number", "cell_id", "call_duration", "data_volume", "data"))
	if err != nil {
		return err
	}

	for i, ev := range events {
		data, err := domain.MarshalPayload(ev.Payload)
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("event %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx,
			ev.Time.UTC(), string(ev.Kind), nullString(ev.Subtype), nullString(ev.SourceIP), nullString(ev.DestIP),
			nullString(ev.PhoneNumber), nullString(ev.CellID), nullInt(ev.CallDuration), nullFloat(ev.DataVolume), string(data))
		if err != nil {
			_ = stmt.Close()
			return r.describe(fmt.Errorf("event %d: %w", i, err))
		}
	}

	// Flush the COPY buffer; row-level errors surface here.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return r.describe(err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	return txn.Commit()
}

// Query returns the events of one kind with time in (From, To], ordered by
// time and then by write order.
func (r *EventRepository) Query(ctx context.Context, kind domain.EventKind, window domain.TimeRange) ([]domain.TelecomEvent, error) {
	const query = `
		SELECT time, event_type, event_subtype, source_ip, dest_ip, phone_number,
		       cell_id, call_duration, data_volume, data
		FROM ` + eventsTableName + `
		WHERE event_type = $1 AND time > $2 AND time <= $3
		ORDER BY time, ingest_seq`

	rows, err := r.db.QueryContext(ctx, query, string(kind), window.From.UTC(), window.To.UTC())
	if err != nil {
		return nil, r.describe(err)
	}
	defer rows.Close()

	var events []domain.TelecomEvent
	for rows.Next() {
		var (
			ev                    domain.TelecomEvent
			eventType             string
			subtype, srcIP, dstIP sql.NullString
			phone, cell           sql.NullString
			duration              sql.NullInt64
			volume                sql.NullFloat64
			data                  []byte
		)
		if err := rows.Scan(&ev.Time, &eventType, &subtype, &srcIP, &dstIP, &phone, &cell, &duration, &volume, &data); err != nil {
			return nil, err
		}
		ev.Kind = domain.EventKind(eventType)
		ev.Subtype = subtype.String
		ev.SourceIP = srcIP.String
		ev.DestIP = dstIP.String
		ev.PhoneNumber = phone.String
		ev.CellID = cell.String
		if duration.Valid {
			d := int(duration.Int64)
			ev.CallDuration = &d
		}
		if volume.Valid {
			v := volume.Float64
			ev.DataVolume = &v
		}
		if ev.Payload, err = domain.UnmarshalPayload(ev.Kind, data); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// describe logs server-side error details that the wrapped error drops.
func (r *EventRepository) describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		r.logger.Error("timescale rejected statement", "pg_code", pqErr.Code, "detail", pqErr.Detail, "error", err)
	}
	return err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/cellguard/internal/domain"
)

const bytesPerMB = 1024 * 1024

// IngestUseCase normalizes validated raw records and writes them to the
// event store in one batch.
type IngestUseCase struct {
	store    domain.EventStore
	defaults domain.PayloadDefaults
	now      func() time.Time
	logger   *slog.Logger
}

// NewIngestUseCase creates a new IngestUseCase.
func NewIngestUseCase(store domain.EventStore, logger *slog.Logger) *IngestUseCase {
	return &IngestUseCase{
		store:    store,
		defaults: domain.DefaultPayloads(),
		now:      time.Now,
		logger:   logger.With("component", "ingest"),
	}
}

// Ingest maps records of one kind to events and writes them atomically. It
// returns the number of events written; on failure nothing is written.
func (uc *IngestUseCase) Ingest(ctx context.Context, kind domain.EventKind, records []domain.RawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	now := uc.now().UTC()
	events := make([]domain.TelecomEvent, 0, len(records))
	for i, rec := range records {
		ev, err := uc.toEvent(kind, rec, now)
		if err != nil {
			return 0, &domain.IngestionError{Kind: kind, Count: len(records), Err: fmt.Errorf("record %d: %w", i, err)}
		}
		events = append(events, ev)
	}

	if err := uc.store.WriteBatch(ctx, events); err != nil {
		uc.logger.Error("failed to write event batch", "kind", kind, "count", len(events), "error", err)
		return 0, &domain.IngestionError{Kind: kind, Count: len(events), Err: err}
	}

	uc.logger.Info("ingested event batch", "kind", kind, "count", len(events))
	return len(events), nil
}

func (uc *IngestUseCase) toEvent(kind domain.EventKind, rec domain.RawRecord, now time.Time) (domain.TelecomEvent, error) {
	ev := domain.TelecomEvent{Kind: kind, Time: now}
	if field := domain.TimeField(kind); rec.Has(field) {
		t, ok := rec.Time(field)
		if !ok {
			return ev, fmt.Errorf("unparseable %s %v", field, rec[field])
		}
		ev.Time = t.UTC()
	}

	switch kind {
	case domain.KindCDR:
		ev.PhoneNumber = rec.String("phone_number")
		ev.CellID = rec.String("cell_id")
		if d, ok := rec.Int("duration"); ok {
			ev.CallDuration = &d
		}
		p := uc.defaults.CDR
		p.Destination = rec.String("destination")
		if v := rec.String("call_type"); v != "" {
			p.CallType = v
		}
		if v, ok := rec.Bool("is_international"); ok {
			p.IsInternational = v
		}
		if v, ok := rec.Float("cost"); ok {
			p.Cost = v
		}
		p.Pattern = rec.String("pattern")
		ev.Subtype = p.CallType
		ev.Payload = p

	case domain.KindNetwork:
		ev.SourceIP = rec.String("source_ip")
		ev.DestIP = rec.String("dest_ip")
		if b, ok := rec.Float("bytes"); ok {
			mb := b / bytesPerMB
			ev.DataVolume = &mb
		}
		p := uc.defaults.Network
		p.Protocol = rec.String("protocol")
		if v, ok := rec.Int("port"); ok {
			p.Port = v
		}
		if v, ok := rec.Int("packets"); ok {
			p.Packets = v
		}
		if v, ok := rec.Bool("is_encrypted"); ok {
			p.IsEncrypted = v
		}
		p.AttackVector = rec.String("attack_vector")
		p.Pattern = rec.String("pattern")
		ev.Subtype = p.Protocol
		ev.Payload = p

	case domain.KindAuth:
		ev.PhoneNumber = rec.String("phone_number")
		ev.SourceIP = rec.String("ip_address")
		p := uc.defaults.Auth
		if v := rec.String("auth_type"); v != "" {
			p.AuthType = v
		}
		if v, ok := rec.Bool("success"); ok {
			p.Success = v
		}
		p.Location = rec.String("location")
		p.DeviceID = rec.String("device_id")
		if v, ok := rec.Bool("new_device"); ok {
			p.NewDevice = v
		}
		p.Pattern = rec.String("pattern")
		ev.Subtype = p.AuthType
		ev.Payload = p

	case domain.KindSMS:
		ev.PhoneNumber = rec.String("sender")
		p := uc.defaults.SMS
		p.Recipient = rec.String("recipient")
		if v, ok := rec.Int("message_length"); ok {
			p.MessageLength = v
		}
		if v := rec.String("message_type"); v != "" {
			p.MessageType = v
		}
		if v, ok := rec.Bool("contains_url"); ok {
			p.ContainsURL = v
		}
		p.URL = rec.String("url")
		if v, ok := rec.Bool("is_bulk"); ok {
			p.IsBulk = v
		}
		p.Pattern = rec.String("pattern")
		ev.Subtype = p.MessageType
		ev.Payload = p

	default:
		return domain.TelecomEvent{}, fmt.Errorf("unsupported event kind %q", kind)
	}

	return ev, nil
}

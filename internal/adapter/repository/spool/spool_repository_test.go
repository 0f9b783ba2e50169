package spool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/V4T54L/cellguard/internal/domain"
)

func setupTestSpool(t *testing.T, maxSegmentSize, maxTotalSize int64) *SpoolRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSpoolRepository(t.TempDir(), maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create SpoolRepository: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func smsRecord(sender string) domain.SpooledRecord {
	return domain.SpooledRecord{Kind: domain.KindSMS, Record: domain.RawRecord{"sender": sender, "contains_url": true}}
}

func listFiles(t *testing.T, dir, prefix string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestSpool_WriteAndReplay(t *testing.T) {
	s := setupTestSpool(t, 1024, 10*1024)
	ctx := context.Background()

	senders := []string{"+994501111111", "+994502222222", "+994503333333"}
	for _, sender := range senders {
		if err := s.Write(ctx, smsRecord(sender)); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}

	// Open segments are invisible to replay.
	calls := 0
	if err := s.Replay(ctx, func(context.Context, []domain.SpooledRecord) error { calls++; return nil }); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no replay before sealing, got %d calls", calls)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("failed to close spool: %v", err)
	}

	var replayed []domain.SpooledRecord
	err := s.Replay(ctx, func(_ context.Context, records []domain.SpooledRecord) error {
		replayed = append(replayed, records...)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to replay records: %v", err)
	}

	if len(replayed) != len(senders) {
		t.Fatalf("expected %d replayed records, got %d", len(senders), len(replayed))
	}
	for i, sender := range senders {
		if replayed[i].Kind != domain.KindSMS || replayed[i].Record.String("sender") != sender {
			t.Errorf("replayed record mismatch at index %d: got %+v", i, replayed[i])
		}
		if v, ok := replayed[i].Record.Bool("contains_url"); !ok || !v {
			t.Errorf("expected contains_url to survive the round trip at index %d", i)
		}
	}

	if segs := listFiles(t, s.dir, segmentPrefix); len(segs) != 0 {
		t.Errorf("expected replayed segments to be removed, found %v", segs)
	}
}

func TestSpool_SegmentRotationPreservesOrder(t *testing.T) {
	// Small segments force a rotation every couple of records.
	s := setupTestSpool(t, 100, 100*1024)
	ctx := context.Background()

	const n = 20
	for i := 0; i < n; i++ {
		rec := domain.SpooledRecord{Kind: domain.KindCDR, Record: domain.RawRecord{"seq": i, "phone_number": "+994501234567"}}
		if err := s.Write(ctx, rec); err != nil {
			t.Fatalf("failed to write record %d: %v", i, err)
		}
	}
	s.Close()

	if segs := listFiles(t, s.dir, segmentPrefix); len(segs) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segs))
	}

	var seqs []int
	err := s.Replay(ctx, func(_ context.Context, records []domain.SpooledRecord) error {
		for _, r := range records {
			v, _ := r.Record.Int("seq")
			seqs = append(seqs, v)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(seqs) != n {
		t.Fatalf("expected %d records, got %d", n, len(seqs))
	}
	for i, v := range seqs {
		if v != i {
			t.Fatalf("record order broken at %d: got seq %d", i, v)
		}
	}
}

func TestSpool_FailedSegmentIsQuarantined(t *testing.T) {
	s := setupTestSpool(t, 1, 10*1024) // every record seals its own segment
	ctx := context.Background()

	for _, sender := range []string{"+994501111111", "+994502222222", "+994503333333"} {
		if err := s.Write(ctx, smsRecord(sender)); err != nil {
			t.Fatalf("failed to write record: %v", err)
		}
	}

	handled := 0
	errStore := errors.New("store unavailable")
	err := s.Replay(ctx, func(context.Context, []domain.SpooledRecord) error {
		handled++
		if handled == 2 {
			return errStore
		}
		return nil
	})
	if !errors.Is(err, errStore) {
		t.Fatalf("expected handler error, got %v", err)
	}

	if failed := listFiles(t, s.dir, failedPrefix); len(failed) != 1 {
		t.Errorf("expected 1 quarantined segment, got %v", failed)
	}
	if segs := listFiles(t, s.dir, segmentPrefix); len(segs) != 1 {
		t.Errorf("expected the unvisited segment to remain, got %v", segs)
	}
}

func TestSpool_MaxTotalSize(t *testing.T) {
	s := setupTestSpool(t, 100, 150) // Max total size is very small

	var err error
	for i := 0; i < 5; i++ { // Write until we expect an error
		err = s.Write(context.Background(), smsRecord("+994501234567"))
		if err != nil {
			break
		}
	}

	if err == nil {
		t.Fatal("expected an error when writing beyond max total size, but got nil")
	}
}

func TestSpool_RecoverOrphans(t *testing.T) {
	s := setupTestSpool(t, 1024, 10*1024)

	orphan := filepath.Join(s.dir, segmentPrefix+"1"+openSuffix)
	if err := os.WriteFile(orphan, []byte(`{"kind":"auth","record":{"phone_number":"+994501234567"}}`+"\n"), filePerm); err != nil {
		t.Fatalf("failed to write orphan: %v", err)
	}

	n, err := s.RecoverOrphans()
	if err != nil || n != 1 {
		t.Fatalf("expected 1 recovered segment, got %d (%v)", n, err)
	}

	var replayed []domain.SpooledRecord
	if err := s.Replay(context.Background(), func(_ context.Context, r []domain.SpooledRecord) error {
		replayed = append(replayed, r...)
		return nil
	}); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(replayed) != 1 || replayed[0].Kind != domain.KindAuth {
		t.Errorf("unexpected replay result: %+v", replayed)
	}
}

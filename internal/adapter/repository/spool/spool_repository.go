package spool

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/cellguard/internal/domain"
)

const (
	segmentPrefix  = "segment-"
	sealedSuffix   = ".log"
	openSuffix     = ".log.open"
	failedPrefix   = "failed-"
	filePerm       = 0644
	maxRecordBytes = 1 << 20
)

// ErrQuarantined marks a Replay error after which a segment was set aside.
var ErrQuarantined = errors.New("spool segment quarantined")

// SpoolRepository is a segmented, newline-delimited JSON record spool.
// Records are appended to an open segment which is sealed on rotation or
// Close; only sealed segments are replayed.
type SpoolRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentPath    string
	currentSize    int64
}

// NewSpoolRepository creates a new SpoolRepository. No segment is opened
// until the first Write.
func NewSpoolRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*SpoolRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory %s: %w", dir, err)
	}
	return &SpoolRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "spool_repository"),
	}, nil
}

// Write appends a record to the current segment, opening one if needed.
func (s *SpoolRepository) Write(ctx context.Context, rec domain.SpooledRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record for spool: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSegment == nil {
		if err := s.openSegment(); err != nil {
			return err
		}
	}

	totalSize, err := s.calculateTotalSize()
	if err != nil {
		return fmt.Errorf("could not verify spool disk space: %w", err)
	}
	if totalSize+int64(len(data)) > s.maxTotalSize {
		return fmt.Errorf("spool max total size exceeded (%d > %d)", totalSize+int64(len(data)), s.maxTotalSize)
	}

	n, err := s.currentSegment.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to spool segment: %w", err)
	}
	s.currentSize += int64(n)

	if s.currentSize >= s.maxSegmentSize {
		if err := s.seal(); err != nil {
			s.logger.Error("Failed to seal spool segment", "error", err)
		}
	}
	return nil
}

// Replay hands the records of each sealed segment, oldest first, to handler.
// Segments are deleted once handled. A segment whose handler fails is
// renamed with the failed- prefix and replay stops with the handler's error.
func (s *SpoolRepository) Replay(ctx context.Context, handler func(ctx context.Context, records []domain.SpooledRecord) error) error {
	segments, err := s.sealedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	s.logger.Debug("Starting spool replay", "segment_count", len(segments))

	for _, path := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := s.readSegment(path)
		if err != nil {
			return err
		}

		if len(records) > 0 {
			if err := handler(ctx, records); err != nil {
				if ctx.Err() != nil {
					// interrupted, not failed: leave the segment for the next run
					return ctx.Err()
				}
				quarantined := filepath.Join(s.dir, failedPrefix+filepath.Base(path))
				if renameErr := os.Rename(path, quarantined); renameErr != nil {
					s.logger.Error("Failed to quarantine spool segment", "path", path, "error", renameErr)
				}
				s.logger.Error("Spool replay handler failed, stopping replay", "path", quarantined, "count", len(records), "error", err)
				return fmt.Errorf("%w: %s: %w", ErrQuarantined, filepath.Base(path), err)
			}
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove replayed segment %s: %w", path, err)
		}
		s.logger.Info("Replayed spool segment", "path", path, "count", len(records))
	}
	return nil
}

// RecoverOrphans seals open segments left behind by a writer that did not
// shut down cleanly. Only call it when no other writer uses the directory.
func (s *SpoolRepository) RecoverOrphans() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read spool directory: %w", err)
	}
	recovered := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, openSuffix) {
			continue
		}
		path := filepath.Join(s.dir, name)
		if path == s.currentPath {
			continue
		}
		if err := os.Rename(path, strings.TrimSuffix(path, ".open")); err != nil {
			return recovered, fmt.Errorf("failed to seal orphaned segment %s: %w", path, err)
		}
		recovered++
	}
	if recovered > 0 {
		s.logger.Warn("Sealed orphaned spool segments", "count", recovered)
	}
	return recovered, nil
}

// Close seals the current segment.
func (s *SpoolRepository) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seal()
}

func (s *SpoolRepository) openSegment() error {
	for ns := time.Now().UnixNano(); ; ns++ {
		path := filepath.Join(s.dir, fmt.Sprintf("%s%d%s", segmentPrefix, ns, openSuffix))
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to create spool segment %s: %w", path, err)
		}
		s.currentSegment = f
		s.currentPath = path
		s.currentSize = 0
		s.logger.Debug("Opened spool segment", "path", path)
		return nil
	}
}

// seal closes the current segment and makes it visible to Replay. Empty
// segments are removed instead.
func (s *SpoolRepository) seal() error {
	if s.currentSegment == nil {
		return nil
	}
	f, path, size := s.currentSegment, s.currentPath, s.currentSize
	s.currentSegment, s.currentPath, s.currentSize = nil, "", 0

	if err := f.Sync(); err != nil {
		s.logger.Error("Failed to sync spool segment before sealing", "error", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close spool segment %s: %w", path, err)
	}
	if size == 0 {
		return os.Remove(path)
	}
	if err := os.Rename(path, strings.TrimSuffix(path, ".open")); err != nil {
		return fmt.Errorf("failed to seal spool segment %s: %w", path, err)
	}
	return nil
}

func (s *SpoolRepository) readSegment(path string) ([]domain.SpooledRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	var records []domain.SpooledRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	for scanner.Scan() {
		var rec domain.SpooledRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			s.logger.Warn("Failed to unmarshal spooled record, skipping", "error", err, "path", path)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return records, nil
}

func (s *SpoolRepository) sealedSegments() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, sealedSuffix) {
			segments = append(segments, filepath.Join(s.dir, name))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (s *SpoolRepository) calculateTotalSize() (int64, error) {
	var totalSize int64
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), segmentPrefix) {
			info, err := entry.Info()
			if err != nil {
				return 0, err
			}
			totalSize += info.Size()
		}
	}
	return totalSize, nil
}

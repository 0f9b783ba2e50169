package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/V4T54L/cellguard/internal/domain"
)

// MockEventStore is an in-memory domain.EventStore for testing. Batches are
// staged and only committed when every event is accepted.
type MockEventStore struct {
	mu       sync.Mutex
	Events   []domain.TelecomEvent
	Batches  int
	WriteErr error
	QueryErr error
	// When FailAt is set, WriteBatch rejects the event at FailAtIndex
	// (0-based) and discards everything staged before it.
	FailAt      bool
	FailAtIndex int
}

func (m *MockEventStore) WriteBatch(ctx context.Context, events []domain.TelecomEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	staged := make([]domain.TelecomEvent, 0, len(events))
	for i, ev := range events {
		if m.FailAt && i == m.FailAtIndex {
			return fmt.Errorf("row %d rejected", i)
		}
		staged = append(staged, ev)
	}
	m.Events = append(m.Events, staged...)
	m.Batches++
	return nil
}

func (m *MockEventStore) Query(ctx context.Context, kind domain.EventKind, window domain.TimeRange) ([]domain.TelecomEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	var out []domain.TelecomEvent
	for _, ev := range m.Events {
		if ev.Kind == kind && window.Contains(ev.Time) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// MockAlertStore is an in-memory domain.AlertStore for testing.
type MockAlertStore struct {
	mu       sync.Mutex
	Alerts   []domain.FraudAlert
	Counts   domain.DashboardCounts
	WriteErr error
	ReadErr  error
}

func (m *MockAlertStore) WriteBatch(ctx context.Context, alerts []domain.FraudAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Alerts = append(m.Alerts, alerts...)
	return nil
}

func (m *MockAlertStore) ReadAggregateCounts(ctx context.Context) (domain.DashboardCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return domain.DashboardCounts{}, m.ReadErr
	}
	return m.Counts, nil
}

// CacheEntry is a value written through MockCache.SetWithTTL.
type CacheEntry struct {
	Value []byte
	TTL   time.Duration
}

// MockCache is an in-memory domain.Cache for testing.
type MockCache struct {
	mu       sync.Mutex
	Values   map[string]CacheEntry
	Lists    map[string][]string
	Counters map[string]int64
	SetErr   error
	PushErr  error
	IncrErr  error
}

func NewMockCache() *MockCache {
	return &MockCache{
		Values:   make(map[string]CacheEntry),
		Lists:    make(map[string][]string),
		Counters: make(map[string]int64),
	}
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Values[key] = CacheEntry{Value: value, TTL: ttl}
	return nil
}

func (m *MockCache) PushBounded(ctx context.Context, key, value string, maxLen int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	list := append([]string{value}, m.Lists[key]...)
	if int64(len(list)) > maxLen {
		list = list[:maxLen]
	}
	m.Lists[key] = list
	return nil
}

func (m *MockCache) Increment(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrErr != nil {
		return 0, m.IncrErr
	}
	m.Counters[key]++
	return m.Counters[key], nil
}

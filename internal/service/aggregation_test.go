package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/service"
	"github.com/spendtrack/spendtrack/internal/snapshot"
)

type memAggregator struct {
	mu         sync.Mutex
	aggregates []model.CategoryAggregate
	err        error
	calls      int
	lastStart  *time.Time
	lastEnd    *time.Time
}

func (m *memAggregator) AggregateByCategory(_ context.Context, start, end *time.Time) ([]model.CategoryAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastStart, m.lastEnd = start, end
	if m.err != nil {
		return nil, m.err
	}
	return m.aggregates, nil
}

type memPublisher struct {
	mu       sync.Mutex
	payloads []snapshot.Payload
}

func (m *memPublisher) PublishAsync(p snapshot.Payload) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
}

func (m *memPublisher) published() []snapshot.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]snapshot.Payload(nil), m.payloads...)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]model.CategoryAggregate
	sets    []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]model.CategoryAggregate)}
}

func (m *memCache) GetCategoryAggregates(_ context.Context, key string) ([]model.CategoryAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	aggs, ok := m.entries[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return aggs, nil
}

func (m *memCache) SetCategoryAggregates(_ context.Context, key string, aggs []model.CategoryAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = aggs
	m.sets = append(m.sets, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleAggregates = []model.CategoryAggregate{
	{Category: "Food", TotalAmount: 150, Count: 2},
	{Category: "Transport", TotalAmount: 30, Count: 1},
}

func TestAggregatePassThrough(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	svc := service.NewAggregationService(agg, nil, nil, testLogger(), nil)

	got, err := svc.AggregateByCategory(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Category != "Food" || got[0].TotalAmount != 150 || got[0].Count != 2 {
		t.Fatalf("unexpected first group: %+v", got[0])
	}
	if got[1].Category != "Transport" || got[1].TotalAmount != 30 {
		t.Fatalf("unexpected second group: %+v", got[1])
	}
}

func TestAggregateOneSidedRangeIgnored(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	pub := &memPublisher{}
	svc := service.NewAggregationService(agg, pub, nil, testLogger(), nil)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.AggregateByCategory(context.Background(), &start, nil); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if agg.lastStart != nil || agg.lastEnd != nil {
		t.Fatal("expected lone bound to be dropped before reaching the store")
	}
	if len(pub.published()) != 0 {
		t.Fatal("expected no snapshots without a closed range")
	}
}

func TestAggregatePublishesSnapshotsForClosedRange(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	pub := &memPublisher{}
	svc := service.NewAggregationService(agg, pub, nil, testLogger(), nil)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	if _, err := svc.AggregateByCategory(context.Background(), &start, &end); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	payloads := pub.published()
	if len(payloads) != 2 {
		t.Fatalf("expected one snapshot per group, got %d", len(payloads))
	}
	first := payloads[0]
	if first.Category != "Food" || first.TotalAmount != 150 || first.Count != 2 {
		t.Fatalf("unexpected payload: %+v", first)
	}
	if first.StartDate != "2025-06-01" || first.EndDate != "2025-06-30" {
		t.Fatalf("unexpected payload range: %s..%s", first.StartDate, first.EndDate)
	}
	if first.ComputedAt == 0 {
		t.Fatal("expected computed_at to be set")
	}
}

func TestAggregateNoPublishWithoutRange(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	pub := &memPublisher{}
	svc := service.NewAggregationService(agg, pub, nil, testLogger(), nil)

	if _, err := svc.AggregateByCategory(context.Background(), nil, nil); err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(pub.published()) != 0 {
		t.Fatal("expected no snapshots for an unbounded aggregation")
	}
}

func TestAggregateCacheHitSkipsStore(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	cache := newMemCache()
	cache.entries["all"] = sampleAggregates
	svc := service.NewAggregationService(agg, nil, cache, testLogger(), nil)

	got, err := svc.AggregateByCategory(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.calls != 0 {
		t.Fatalf("expected cache hit to skip the store, got %d store calls", agg.calls)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 groups from cache, got %d", len(got))
	}
}

func TestAggregateCacheMissPopulatesCache(t *testing.T) {
	agg := &memAggregator{aggregates: sampleAggregates}
	cache := newMemCache()
	svc := service.NewAggregationService(agg, nil, cache, testLogger(), nil)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	if _, err := svc.AggregateByCategory(context.Background(), &start, &end); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if agg.calls != 1 {
		t.Fatalf("expected one store call, got %d", agg.calls)
	}
	if len(cache.sets) != 1 || cache.sets[0] != "2025-06-01:2025-06-30" {
		t.Fatalf("expected cache set under range key, got %v", cache.sets)
	}
}

func TestAggregateStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	agg := &memAggregator{err: storeErr}
	svc := service.NewAggregationService(agg, nil, nil, testLogger(), nil)

	_, err := svc.AggregateByCategory(context.Background(), nil, nil)
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

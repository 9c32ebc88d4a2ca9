package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spendtrack/spendtrack/internal/metrics"
	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/snapshot"
)

// SnapshotPublisher enqueues aggregate snapshots for background persistence.
type SnapshotPublisher interface {
	PublishAsync(payload snapshot.Payload)
}

// AggregateCache caches aggregation results keyed by date range.
type AggregateCache interface {
	GetCategoryAggregates(ctx context.Context, key string) ([]model.CategoryAggregate, error)
	SetCategoryAggregates(ctx context.Context, key string, aggregates []model.CategoryAggregate) error
}

// AggregationService computes per-category spending totals.
type AggregationService struct {
	agg       Aggregator
	publisher SnapshotPublisher
	cache     AggregateCache
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewAggregationService creates a new aggregation service. The publisher and
// cache are optional; passing nil disables the corresponding side channel.
func NewAggregationService(agg Aggregator, publisher SnapshotPublisher, cache AggregateCache, logger *slog.Logger, recorder metrics.Recorder) *AggregationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AggregationService{
		agg:       agg,
		publisher: publisher,
		cache:     cache,
		logger:    logger.With("component", "service.aggregation"),
		metrics:   recorder,
	}
}

// AggregateByCategory groups expenses by category over an optional date range.
// The range only applies when both bounds are present; a one-sided range is
// ignored and the aggregation spans all records.
func (s *AggregationService) AggregateByCategory(ctx context.Context, start, end *time.Time) ([]model.CategoryAggregate, error) {
	rangeActive := start != nil && end != nil
	if !rangeActive {
		start, end = nil, nil
	}

	key := rangeKey(start, end)

	if s.cache != nil {
		aggregates, err := s.cache.GetCategoryAggregates(ctx, key)
		if err == nil {
			s.metrics.IncAggregateQuery("cache")
			return aggregates, nil
		}
	}

	aggregates, err := s.agg.AggregateByCategory(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("aggregate by category: %w", err)
	}
	s.metrics.IncAggregateQuery("store")

	if s.cache != nil {
		if err := s.cache.SetCategoryAggregates(ctx, key, aggregates); err != nil {
			s.logger.Warn("failed to cache aggregates", "key", key, "error", err)
		}
	}

	// Snapshots only describe closed date ranges; an unbounded aggregation
	// drifts with every new record and is not worth persisting.
	if rangeActive && s.publisher != nil {
		computedAt := time.Now().UnixMilli()
		for _, group := range aggregates {
			s.publisher.PublishAsync(snapshot.Payload{
				Category:    group.Category,
				TotalAmount: group.TotalAmount,
				Count:       group.Count,
				StartDate:   start.Format(snapshot.DateLayout),
				EndDate:     end.Format(snapshot.DateLayout),
				ComputedAt:  computedAt,
			})
		}
	}

	return aggregates, nil
}

// rangeKey builds the cache key for a date range. Unbounded aggregations
// share the "all" key.
func rangeKey(start, end *time.Time) string {
	if start == nil || end == nil {
		return "all"
	}
	return start.Format(snapshot.DateLayout) + ":" + end.Format(snapshot.DateLayout)
}

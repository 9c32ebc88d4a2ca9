package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spendtrack/spendtrack/internal/model"
)

const aggregateKeyPrefix = "aggregate:category:"

// DefaultAggregateTTL is the TTL for cached aggregation results.
const DefaultAggregateTTL = 30 * time.Second

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// AggregateCache caches category aggregation results keyed by date range.
// Entries are short-lived; new expense records make any cached rollup stale.
type AggregateCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAggregateCache creates an aggregate cache with the given TTL.
// A non-positive TTL falls back to DefaultAggregateTTL.
func NewAggregateCache(c *Cache, ttl time.Duration) *AggregateCache {
	if ttl <= 0 {
		ttl = DefaultAggregateTTL
	}
	return &AggregateCache{cache: c, ttl: ttl}
}

// GetCategoryAggregates retrieves a cached aggregation result.
// Returns ErrCacheMiss if absent.
func (a *AggregateCache) GetCategoryAggregates(ctx context.Context, key string) ([]model.CategoryAggregate, error) {
	raw, err := a.cache.client.Get(ctx, aggregateKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var aggregates []model.CategoryAggregate
	if err := json.Unmarshal([]byte(raw), &aggregates); err != nil {
		return nil, fmt.Errorf("failed to decode cached aggregates: %w", err)
	}

	return aggregates, nil
}

// SetCategoryAggregates stores an aggregation result under the range key.
func (a *AggregateCache) SetCategoryAggregates(ctx context.Context, key string, aggregates []model.CategoryAggregate) error {
	data, err := json.Marshal(aggregates)
	if err != nil {
		return fmt.Errorf("failed to encode aggregates: %w", err)
	}

	if err := a.cache.client.Set(ctx, aggregateKeyPrefix+key, data, a.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache aggregates: %w", err)
	}

	return nil
}

// Invalidate drops every cached aggregation result. Called after writes that
// change the underlying totals.
func (a *AggregateCache) Invalidate(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := a.cache.client.Scan(ctx, cursor, aggregateKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan aggregate keys: %w", err)
		}
		if len(keys) > 0 {
			if err := a.cache.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete aggregate keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nil
}

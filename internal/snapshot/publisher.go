// Package snapshot persists category aggregate snapshots through a Redis
// stream. Publishing is best-effort: the aggregation response never waits on
// or reflects snapshot outcomes.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spendtrack/spendtrack/internal/metrics"
)

const (
	// StreamKey is the Redis stream for snapshot payloads.
	StreamKey = "stream:category_snapshots"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:category_snapshots:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 50000

	// PublishTimeout is the max time to wait for a Redis publish.
	PublishTimeout = 250 * time.Millisecond

	// DateLayout is the calendar date format carried in payloads.
	DateLayout = "2006-01-02"
)

// Payload is the compressed snapshot format carried on the Redis stream.
type Payload struct {
	Category    string  `json:"c"`
	TotalAmount float64 `json:"ta"`
	Count       int64   `json:"n"`
	StartDate   string  `json:"sd"` // YYYY-MM-DD
	EndDate     string  `json:"ed"` // YYYY-MM-DD
	ComputedAt  int64   `json:"t"`  // Unix milliseconds
}

// Publisher enqueues snapshot payloads to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new snapshot publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "snapshot.publisher"),
		metrics: recorder,
	}
}

// Publish adds a snapshot payload to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload Payload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(payload Payload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, payload)
		if err != nil {
			p.logger.Warn("failed to publish snapshot",
				"category", payload.Category,
				"error", err,
			)
			p.metrics.IncSnapshotPublished("dropped")
			return
		}

		p.logger.Debug("snapshot published",
			"category", payload.Category,
			"stream_id", streamID,
		)
		p.metrics.IncSnapshotPublished("success")
	}()
}

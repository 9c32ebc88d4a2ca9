package snapshot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spendtrack/spendtrack/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func samplePayload() Payload {
	return Payload{
		Category:    "Food",
		TotalAmount: 150,
		Count:       2,
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-30",
		ComputedAt:  time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestPublishWritesToStream(t *testing.T) {
	_, client := setupRedis(t)
	pub := NewPublisher(client, testLogger(), nil)

	ctx := context.Background()
	streamID, err := pub.Publish(ctx, samplePayload())
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if streamID == "" {
		t.Fatal("expected a stream ID")
	}

	messages, err := client.XRange(ctx, StreamKey, "-", "+").Result()
	if err != nil {
		t.Fatalf("xrange: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message on stream, got %d", len(messages))
	}

	raw, ok := messages[0].Values["payload"].(string)
	if !ok {
		t.Fatal("expected payload field to be a string")
	}
	var got Payload
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Category != "Food" || got.TotalAmount != 150 || got.Count != 2 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.StartDate != "2025-06-01" || got.EndDate != "2025-06-30" {
		t.Fatalf("unexpected payload range: %s..%s", got.StartDate, got.EndDate)
	}
}

func TestPublishAsyncEventuallyWrites(t *testing.T) {
	_, client := setupRedis(t)
	recorder := metrics.NewInMemory()
	pub := NewPublisher(client, testLogger(), recorder)

	pub.PublishAsync(samplePayload())

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := client.XLen(ctx, StreamKey).Result()
		if err == nil && n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 message on stream, got %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	deadline = time.Now().Add(2 * time.Second)
	for recorder.Snapshot().SnapshotsPublished["success"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("expected a success publish metric")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishAsyncDropsOnFailure(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := metrics.NewInMemory()
	pub := NewPublisher(client, testLogger(), recorder)

	mr.Close() // publishing now fails

	pub.PublishAsync(samplePayload())

	deadline := time.Now().Add(2 * time.Second)
	for recorder.Snapshot().SnapshotsPublished["dropped"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("expected a dropped publish metric")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Payload)
		wantErr error
	}{
		{"valid", func(p *Payload) {}, nil},
		{"empty category", func(p *Payload) { p.Category = "" }, ErrEmptyCategory},
		{"negative count", func(p *Payload) { p.Count = -1 }, ErrNegativeCount},
		{"bad start date", func(p *Payload) { p.StartDate = "June 1st" }, ErrBadDate},
		{"bad end date", func(p *Payload) { p.EndDate = "" }, ErrBadDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePayload()
			tt.mutate(&p)
			if err := ValidatePayload(p); err != tt.wantErr {
				t.Errorf("ValidatePayload() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

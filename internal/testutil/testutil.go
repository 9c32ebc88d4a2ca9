// Package testutil provides shared helpers for integration and unit tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spendtrack/spendtrack/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 770077

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetExpenseData removes all expense and snapshot rows between tests.
// Assumes the schema is already migrated.
func ResetExpenseData(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "TRUNCATE expenses"); err != nil {
		return fmt.Errorf("truncate expenses: %w", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE category_snapshots"); err != nil {
		return fmt.Errorf("truncate category_snapshots: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestExpense creates a test expense with sensible defaults.
func NewTestExpense(t testing.TB, ownerID string) *model.Expense {
	t.Helper()
	now := time.Now().UTC()
	return &model.Expense{
		ID:            ulid.Make().String(),
		OwnerID:       ownerID,
		Title:         "Groceries",
		Amount:        42.50,
		Category:      "Food",
		PaymentMethod: model.PaymentCash,
		Date:          now.Truncate(24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// UniqueID returns a fresh ULID string for use as a record ID.
func UniqueID() string {
	return ulid.Make().String()
}

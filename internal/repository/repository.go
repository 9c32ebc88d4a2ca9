// Package repository provides PostgreSQL access for expense records and
// category snapshots.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spendtrack/spendtrack/internal/service"
)

// Repository provides database access methods.
type Repository struct {
	pool         *pgxpool.Pool
	storeTimeout time.Duration
}

// New creates a new Repository with a connection pool. Every operation is
// bounded by storeTimeout on top of the caller's context.
func New(ctx context.Context, databaseURL string, storeTimeout time.Duration) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool, storeTimeout: storeTimeout}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// opCtx derives a context bounded by the store timeout.
func (r *Repository) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.storeTimeout)
}

// mapStoreErr translates a timed-out operation into the service-level
// unavailability error so handlers can respond uniformly.
func mapStoreErr(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, service.ErrStoreUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

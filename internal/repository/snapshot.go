package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spendtrack/spendtrack/internal/model"
)

// CreateSnapshots inserts a batch of category snapshots in one round trip.
// Conflicting IDs are skipped so redelivered messages stay idempotent.
func (r *Repository) CreateSnapshots(ctx context.Context, snapshots []*model.CategorySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO category_snapshots (id, category, total_amount, count, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, s := range snapshots {
		batch.Queue(query,
			s.ID,
			s.Category,
			s.TotalAmount,
			s.Count,
			s.StartDate,
			s.EndDate,
			s.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			return mapStoreErr(err, "failed to insert snapshot")
		}
	}

	return nil
}

// ListSnapshots returns snapshots recorded for a closed date range, newest
// first. Mostly useful for inspection and tests.
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]*model.CategorySnapshot, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := `
		SELECT id, category, total_amount, count, start_date, end_date, created_at
		FROM category_snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, mapStoreErr(err, "failed to list snapshots")
	}
	defer rows.Close()

	var snapshots []*model.CategorySnapshot
	for rows.Next() {
		var s model.CategorySnapshot
		if err := rows.Scan(&s.ID, &s.Category, &s.TotalAmount, &s.Count, &s.StartDate, &s.EndDate, &s.CreatedAt); err != nil {
			return nil, mapStoreErr(err, "failed to scan snapshot")
		}
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err, "error iterating snapshots")
	}

	return snapshots, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/service"
)

const expenseColumns = "id, owner_id, title, amount, category, payment_method, date, created_at, updated_at"

// Create inserts a new expense record.
func (r *Repository) Create(ctx context.Context, e *model.Expense) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := `
		INSERT INTO expenses (id, owner_id, title, amount, category, payment_method, date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.OwnerID,
		e.Title,
		e.Amount,
		e.Category,
		e.PaymentMethod,
		e.Date,
		e.CreatedAt,
		e.UpdatedAt,
	)

	if err != nil {
		return mapStoreErr(err, "failed to create expense")
	}

	return nil
}

// buildExpenseWhere builds the WHERE clause shared by List and Count.
// The date range only applies when both bounds are set.
func buildExpenseWhere(f service.ExpenseFilter) (string, []any) {
	where := " WHERE owner_id = $1"
	args := []any{f.OwnerID}
	argIndex := 2

	if f.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, f.Category)
		argIndex++
	}

	if f.StartDate != nil && f.EndDate != nil {
		where += fmt.Sprintf(" AND date >= $%d AND date <= $%d", argIndex, argIndex+1)
		args = append(args, *f.StartDate, *f.EndDate)
	}

	return where, args
}

// orderClause maps a sort key to a stable ORDER BY.
func orderClause(sortBy string) string {
	switch sortBy {
	case "amount":
		return " ORDER BY amount ASC, id ASC"
	case "date":
		return " ORDER BY date ASC, id ASC"
	default:
		return " ORDER BY created_at ASC, id ASC"
	}
}

// List retrieves one window of expenses matching the filter.
func (r *Repository) List(ctx context.Context, f service.ExpenseFilter, sortBy string, offset, limit int) ([]*model.Expense, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	where, args := buildExpenseWhere(f)
	query := "SELECT " + expenseColumns + " FROM expenses" + where + orderClause(sortBy)
	query += fmt.Sprintf(" OFFSET $%d LIMIT $%d", len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStoreErr(err, "failed to list expenses")
	}
	defer rows.Close()

	var expenses []*model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err, "error iterating expenses")
	}

	return expenses, nil
}

// Count returns the number of expenses matching the filter.
func (r *Repository) Count(ctx context.Context, f service.ExpenseFilter) (int64, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	where, args := buildExpenseWhere(f)
	query := "SELECT COUNT(*) FROM expenses" + where

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, mapStoreErr(err, "failed to count expenses")
	}

	return count, nil
}

// Update applies the non-nil fields of u to the record matching (id, ownerID)
// and returns the updated record. Ownership is enforced in the WHERE clause so
// a foreign record is indistinguishable from a missing one.
func (r *Repository) Update(ctx context.Context, ownerID, id string, u service.ExpenseUpdate) (*model.Expense, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	set := "updated_at = NOW()"
	args := []any{id, ownerID}
	argIndex := 3

	addSet := func(column string, value any) {
		set += fmt.Sprintf(", %s = $%d", column, argIndex)
		args = append(args, value)
		argIndex++
	}

	if u.Title != nil {
		addSet("title", *u.Title)
	}
	if u.Amount != nil {
		addSet("amount", *u.Amount)
	}
	if u.Category != nil {
		addSet("category", *u.Category)
	}
	if u.PaymentMethod != nil {
		addSet("payment_method", *u.PaymentMethod)
	}
	if u.Date != nil {
		addSet("date", *u.Date)
	}

	query := "UPDATE expenses SET " + set +
		" WHERE id = $1 AND owner_id = $2 RETURNING " + expenseColumns

	e, err := scanExpense(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrNotFound
		}
		return nil, mapStoreErr(err, "failed to update expense")
	}

	return e, nil
}

// Delete removes the record matching (id, ownerID).
func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := `DELETE FROM expenses WHERE id = $1 AND owner_id = $2`

	result, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return mapStoreErr(err, "failed to delete expense")
	}

	if result.RowsAffected() == 0 {
		return service.ErrNotFound
	}

	return nil
}

// AggregateByCategory groups expenses by category across all owners.
// Groups are ordered by total amount descending; ties break on the earliest
// record then the category name so the order is deterministic.
func (r *Repository) AggregateByCategory(ctx context.Context, start, end *time.Time) ([]model.CategoryAggregate, error) {
	ctx, cancel := r.opCtx(ctx)
	defer cancel()

	query := `
		SELECT category, SUM(amount), COUNT(*)
		FROM expenses
	`
	var args []any
	if start != nil && end != nil {
		query += " WHERE date >= $1 AND date <= $2"
		args = append(args, *start, *end)
	}
	query += `
		GROUP BY category
		ORDER BY SUM(amount) DESC, MIN(created_at) ASC, category ASC
	`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStoreErr(err, "failed to aggregate expenses")
	}
	defer rows.Close()

	var aggregates []model.CategoryAggregate
	for rows.Next() {
		var a model.CategoryAggregate
		if err := rows.Scan(&a.Category, &a.TotalAmount, &a.Count); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		aggregates = append(aggregates, a)
	}

	if err := rows.Err(); err != nil {
		return nil, mapStoreErr(err, "error iterating aggregates")
	}

	return aggregates, nil
}

// scanExpense scans a single row into an Expense model.
func scanExpense(row pgx.Row) (*model.Expense, error) {
	var e model.Expense
	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.Title,
		&e.Amount,
		&e.Category,
		&e.PaymentMethod,
		&e.Date,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return &e, err
}

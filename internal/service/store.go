package service

import (
	"context"
	"time"

	"github.com/spendtrack/spendtrack/internal/model"
)

// ExpenseFilter selects expense records for listing and counting.
// OwnerID is always applied. Category matches exactly when non-empty.
// The date range participates only when both bounds are set; a single bound
// applies no date filtering at all.
type ExpenseFilter struct {
	OwnerID   string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// ExpenseUpdate holds the mutable fields of a partial update.
// Nil fields are left unchanged.
type ExpenseUpdate struct {
	Title         *string
	Amount        *float64
	Category      *string
	PaymentMethod *model.PaymentMethod
	Date          *time.Time
}

// ExpenseStore defines the data access contract for expense records.
// Implementations must be safe for concurrent use.
type ExpenseStore interface {
	// Create inserts a new expense record.
	Create(ctx context.Context, e *model.Expense) error

	// List returns records matching the filter, sorted ascending by sortBy
	// ("amount" or "date"); any other value keeps the store's natural
	// insertion order. The window skips offset records and takes limit.
	List(ctx context.Context, f ExpenseFilter, sortBy string, offset, limit int) ([]*model.Expense, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, f ExpenseFilter) (int64, error)

	// Update applies the non-nil fields to the record matching (id, ownerID)
	// and returns the updated record. Returns ErrNotFound if no match.
	Update(ctx context.Context, ownerID, id string, u ExpenseUpdate) (*model.Expense, error)

	// Delete removes the record matching (id, ownerID).
	// Returns ErrNotFound if no match.
	Delete(ctx context.Context, ownerID, id string) error
}

// Aggregator computes category rollups across all owners.
type Aggregator interface {
	// AggregateByCategory groups matching records by category and returns
	// one aggregate per group, ordered by total amount descending. The date
	// range participates only when both bounds are non-nil.
	AggregateByCategory(ctx context.Context, start, end *time.Time) ([]model.CategoryAggregate, error)
}

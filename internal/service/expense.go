// Package service implements the expense query and aggregation engines.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spendtrack/spendtrack/internal/metrics"
	"github.com/spendtrack/spendtrack/internal/model"
)

// DefaultPageSize is the page size applied when the caller supplies none.
const DefaultPageSize = 10

// AggregateInvalidator drops cached aggregation results after a write.
type AggregateInvalidator interface {
	Invalidate(ctx context.Context) error
}

// ExpenseService handles expense record business logic.
type ExpenseService struct {
	store       ExpenseStore
	invalidator AggregateInvalidator
	metrics     metrics.Recorder
}

// NewExpenseService creates an ExpenseService backed by the given store.
func NewExpenseService(store ExpenseStore, recorder metrics.Recorder) *ExpenseService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ExpenseService{store: store, metrics: recorder}
}

// SetAggregateInvalidator makes writes drop cached aggregation results.
func (s *ExpenseService) SetAggregateInvalidator(inv AggregateInvalidator) {
	s.invalidator = inv
}

// invalidateAggregates is best-effort: stale entries expire via TTL anyway.
func (s *ExpenseService) invalidateAggregates(ctx context.Context) {
	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx)
	}
}

// CreateInput defines the validated fields for a new expense.
type CreateInput struct {
	Title         string
	Amount        float64
	Category      string
	PaymentMethod model.PaymentMethod
	Date          time.Time
}

// Create persists a new expense owned by ownerID and returns it with its
// generated id and timestamps.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Expense, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	expense := &model.Expense{
		ID:            ulid.Make().String(),
		OwnerID:       ownerID,
		Title:         in.Title,
		Amount:        in.Amount,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Date:          in.Date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.metrics.IncExpenseCreated()
	s.invalidateAggregates(ctx)

	return expense, nil
}

// ListInput defines input for listing expenses.
type ListInput struct {
	OwnerID   string
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	Page      int
	Limit     int
}

// ListOutput defines output for listing expenses.
type ListOutput struct {
	Total       int64
	TotalPages  int64
	CurrentPage int
	Expenses    []*model.Expense
}

// List returns one page of the caller's expenses plus pagination totals.
// Pages past the end of the result set yield an empty page, not an error.
func (s *ExpenseService) List(ctx context.Context, in ListInput) (*ListOutput, error) {
	if in.OwnerID == "" {
		return nil, ErrOwnerRequired
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = DefaultPageSize
	}

	filter := ExpenseFilter{
		OwnerID:  in.OwnerID,
		Category: in.Category,
	}
	// Restrictive range policy: a lone bound filters nothing.
	if in.StartDate != nil && in.EndDate != nil {
		filter.StartDate = in.StartDate
		filter.EndDate = in.EndDate
	}

	offset := (in.Page - 1) * in.Limit
	expenses, err := s.store.List(ctx, filter, in.SortBy, offset, in.Limit)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count expenses: %w", err)
	}

	s.metrics.IncExpenseListed()

	limit := int64(in.Limit)
	return &ListOutput{
		Total:       total,
		TotalPages:  (total + limit - 1) / limit,
		CurrentPage: in.Page,
		Expenses:    expenses,
	}, nil
}

// Update applies a partial update to the record matching (id, ownerID).
// A record owned by someone else yields the same ErrNotFound as a missing one.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, u ExpenseUpdate) (*model.Expense, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	expense, err := s.store.Update(ctx, ownerID, id, u)
	if err != nil {
		return nil, err
	}

	s.metrics.IncExpenseUpdated()
	s.invalidateAggregates(ctx)

	return expense, nil
}

// Delete removes the record matching (id, ownerID).
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrOwnerRequired
	}

	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.metrics.IncExpenseDeleted()
	s.invalidateAggregates(ctx)

	return nil
}

// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/spendtrack/spendtrack/internal/model"
)

// CreateExpenseRequest represents the request body for adding an expense.
// Pointer fields distinguish absent from zero-valued input.
type CreateExpenseRequest struct {
	Title         *string  `json:"title"`
	Amount        *float64 `json:"amount"`
	Category      *string  `json:"category"`
	PaymentMethod *string  `json:"paymentMethod"`
	Date          *string  `json:"date"`
}

// UpdateExpenseRequest represents the request body for a partial update.
type UpdateExpenseRequest struct {
	Title         *string  `json:"title,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Category      *string  `json:"category,omitempty"`
	PaymentMethod *string  `json:"paymentMethod,omitempty"`
	Date          *string  `json:"date,omitempty"`
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Title         string    `json:"title"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	PaymentMethod string    `json:"paymentMethod"`
	Date          time.Time `json:"date"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ExpenseEnvelope wraps a single expense with a status message.
type ExpenseEnvelope struct {
	Message string           `json:"message"`
	Expense *ExpenseResponse `json:"expense"`
}

// ListExpensesResponse represents one page of expenses with totals.
type ListExpensesResponse struct {
	TotalExpenses int64             `json:"totalExpenses"`
	TotalPages    int64             `json:"totalPages"`
	CurrentPage   int               `json:"currentPage"`
	Expenses      []ExpenseResponse `json:"expenses"`
}

// AggregateResponse wraps category aggregation results.
type AggregateResponse struct {
	Message string                    `json:"message"`
	Data    []model.CategoryAggregate `json:"data"`
}

// ToExpenseResponse converts an Expense model to its response DTO.
func ToExpenseResponse(e *model.Expense) *ExpenseResponse {
	return &ExpenseResponse{
		ID:            e.ID,
		UserID:        e.OwnerID,
		Title:         e.Title,
		Amount:        e.Amount,
		Category:      e.Category,
		PaymentMethod: string(e.PaymentMethod),
		Date:          e.Date,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// ToListExpensesResponse converts a page of expenses to its response DTO.
func ToListExpensesResponse(total, totalPages int64, currentPage int, expenses []*model.Expense) *ListExpensesResponse {
	items := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, *ToExpenseResponse(e))
	}
	return &ListExpensesResponse{
		TotalExpenses: total,
		TotalPages:    totalPages,
		CurrentPage:   currentPage,
		Expenses:      items,
	}
}

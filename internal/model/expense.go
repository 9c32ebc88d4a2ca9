// Package model defines domain entities for the application.
package model

import "time"

// PaymentMethod is the means by which an expense was paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit"
)

// IsValid checks if the payment method is one of the supported values.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentCash || p == PaymentCredit
}

// Expense represents a single expense record. Every expense has exactly one
// owner; all reads and writes are scoped to that owner.
type Expense struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"userId"`
	Title         string        `json:"title"`
	Amount        float64       `json:"amount"`
	Category      string        `json:"category"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Date          time.Time     `json:"date"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

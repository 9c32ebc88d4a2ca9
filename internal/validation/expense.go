// Package validation checks request input before any domain logic runs.
// Rules are kept as declarative per-field predicate tables; both the create
// path (all fields required) and the update path (only supplied fields
// checked) evaluate the same table.
package validation

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// minCategoryLength is the minimum accepted category length.
const minCategoryLength = 3

// FieldError describes a single failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error aggregates all failed rules for one request.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ExpenseInput carries the raw, possibly absent expense fields from a
// request body. Nil means the field was not supplied.
type ExpenseInput struct {
	Title         *string
	Amount        *float64
	Category      *string
	PaymentMethod *string
	Date          *string
}

// fieldRule is a single named predicate over an ExpenseInput field.
type fieldRule struct {
	field       string
	requiredMsg string
	invalidMsg  string
	present     func(in ExpenseInput) bool
	valid       func(in ExpenseInput) bool
}

var expenseRules = []fieldRule{
	{
		field:       "title",
		requiredMsg: "Expense title is required",
		invalidMsg:  "Expense title must not be empty",
		present:     func(in ExpenseInput) bool { return in.Title != nil },
		valid:       func(in ExpenseInput) bool { return strings.TrimSpace(*in.Title) != "" },
	},
	{
		field:       "amount",
		requiredMsg: "Amount is required",
		invalidMsg:  "Amount must be a number",
		present:     func(in ExpenseInput) bool { return in.Amount != nil },
		valid: func(in ExpenseInput) bool {
			return !math.IsNaN(*in.Amount) && !math.IsInf(*in.Amount, 0)
		},
	},
	{
		field:       "category",
		requiredMsg: "Category is required",
		invalidMsg:  fmt.Sprintf("Category must be at least %d characters long", minCategoryLength),
		present:     func(in ExpenseInput) bool { return in.Category != nil },
		valid: func(in ExpenseInput) bool {
			return len(strings.TrimSpace(*in.Category)) >= minCategoryLength
		},
	},
	{
		field:       "paymentMethod",
		requiredMsg: "Payment method is required",
		invalidMsg:  `Payment method must be either "cash" or "credit"`,
		present:     func(in ExpenseInput) bool { return in.PaymentMethod != nil },
		valid: func(in ExpenseInput) bool {
			return *in.PaymentMethod == "cash" || *in.PaymentMethod == "credit"
		},
	},
	{
		field:       "date",
		requiredMsg: "Date is required",
		invalidMsg:  "Date must be in ISO 8601 format",
		present:     func(in ExpenseInput) bool { return in.Date != nil },
		valid: func(in ExpenseInput) bool {
			_, err := ParseDate(*in.Date)
			return err == nil
		},
	},
}

// ValidateCreateExpense checks a create request. Every field is required.
func ValidateCreateExpense(in ExpenseInput) error {
	return validateExpense(in, true)
}

// ValidateUpdateExpense checks a partial update. Only supplied fields are
// validated; absent fields are left unchanged by the update.
func ValidateUpdateExpense(in ExpenseInput) error {
	return validateExpense(in, false)
}

func validateExpense(in ExpenseInput, requireAll bool) error {
	var fields []FieldError
	for _, rule := range expenseRules {
		if !rule.present(in) {
			if requireAll {
				fields = append(fields, FieldError{Field: rule.field, Message: rule.requiredMsg})
			}
			continue
		}
		if !rule.valid(in) {
			fields = append(fields, FieldError{Field: rule.field, Message: rule.invalidMsg})
		}
	}
	if len(fields) > 0 {
		return &Error{Fields: fields}
	}
	return nil
}

// dateLayouts are the accepted calendar date formats, tried in order.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// ParseDate parses an ISO 8601 calendar date or timestamp.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

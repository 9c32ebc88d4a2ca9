package validation

import (
	"net/url"
	"strconv"
	"time"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListQuery holds the validated query parameters for listing expenses.
type ListQuery struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	Page      int
	Limit     int
}

// queryRule validates one query parameter.
type queryRule struct {
	field   string
	message string
	valid   func(value string) bool
}

var listQueryRules = []queryRule{
	{
		field:   "sortBy",
		message: `Sort by must be either "amount" or "date"`,
		valid:   func(v string) bool { return v == "amount" || v == "date" },
	},
	{
		field:   "page",
		message: "Page must be an integer greater than 0",
		valid:   isPositiveInt,
	},
	{
		field:   "limit",
		message: "Limit must be an integer greater than 0",
		valid:   isPositiveInt,
	},
	{
		field:   "startDate",
		message: "Start date must be in ISO 8601 format",
		valid:   isDate,
	},
	{
		field:   "endDate",
		message: "End date must be in ISO 8601 format",
		valid:   isDate,
	},
}

// ParseListQuery validates list query parameters and applies pagination
// defaults. Absent parameters are always acceptable.
func ParseListQuery(values url.Values) (ListQuery, error) {
	var fields []FieldError
	for _, rule := range listQueryRules {
		v := values.Get(rule.field)
		if v == "" {
			continue
		}
		if !rule.valid(v) {
			fields = append(fields, FieldError{Field: rule.field, Message: rule.message})
		}
	}
	if len(fields) > 0 {
		return ListQuery{}, &Error{Fields: fields}
	}

	q := ListQuery{
		Category: values.Get("category"),
		SortBy:   values.Get("sortBy"),
		Page:     DefaultPage,
		Limit:    DefaultLimit,
	}
	if v := values.Get("page"); v != "" {
		q.Page, _ = strconv.Atoi(v)
	}
	if v := values.Get("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}
	if v := values.Get("startDate"); v != "" {
		t, _ := ParseDate(v)
		q.StartDate = &t
	}
	if v := values.Get("endDate"); v != "" {
		t, _ := ParseDate(v)
		q.EndDate = &t
	}
	return q, nil
}

// ParseDateRange validates the optional startDate/endDate pair used by
// aggregation queries.
func ParseDateRange(values url.Values) (start, end *time.Time, err error) {
	var fields []FieldError
	for _, field := range []string{"startDate", "endDate"} {
		v := values.Get(field)
		if v == "" {
			continue
		}
		t, perr := ParseDate(v)
		if perr != nil {
			fields = append(fields, FieldError{Field: field, Message: "Date must be in ISO 8601 format"})
			continue
		}
		if field == "startDate" {
			start = &t
		} else {
			end = &t
		}
	}
	if len(fields) > 0 {
		return nil, nil, &Error{Fields: fields}
	}
	return start, end, nil
}

func isPositiveInt(v string) bool {
	n, err := strconv.Atoi(v)
	return err == nil && n > 0
}

func isDate(v string) bool {
	_, err := ParseDate(v)
	return err == nil
}

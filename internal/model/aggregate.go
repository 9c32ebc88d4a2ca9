package model

import "time"

// CategoryAggregate is a derived per-category rollup of expense amounts.
// It is computed on demand and never authoritative.
type CategoryAggregate struct {
	Category    string  `json:"category"`
	TotalAmount float64 `json:"totalAmount"`
	Count       int64   `json:"count"`
}

// CategorySnapshot is a persisted historical record of one aggregate group,
// carrying the date range it was computed over. Snapshots are append-only and
// never constrain future aggregations.
type CategorySnapshot struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	TotalAmount float64   `json:"totalAmount"`
	Count       int64     `json:"count"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

package snapshot

import (
	"errors"
	"time"
)

var (
	// ErrEmptyCategory is returned when a payload has no category.
	ErrEmptyCategory = errors.New("empty category")

	// ErrNegativeCount is returned when a payload's count is negative.
	ErrNegativeCount = errors.New("negative count")

	// ErrBadDate is returned when a payload's date range cannot be parsed.
	ErrBadDate = errors.New("invalid snapshot date")
)

// ValidatePayload rejects payloads that could not have come from a real
// aggregation run. Invalid payloads go to the dead-letter stream instead of
// the store.
func ValidatePayload(p Payload) error {
	if p.Category == "" {
		return ErrEmptyCategory
	}
	if p.Count < 0 {
		return ErrNegativeCount
	}
	if _, err := time.Parse(DateLayout, p.StartDate); err != nil {
		return ErrBadDate
	}
	if _, err := time.Parse(DateLayout, p.EndDate); err != nil {
		return ErrBadDate
	}
	return nil
}

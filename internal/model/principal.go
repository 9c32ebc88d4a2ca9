package model

// Principal is the authenticated identity making a request, resolved from a
// verified bearer credential by the auth middleware.
type Principal struct {
	UserID string
}

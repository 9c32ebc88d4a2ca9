package service

import "errors"

// Sentinel errors for the expense service layer. Store implementations
// return these so the handlers can map them to HTTP status codes without
// inspecting driver errors.
var (
	// ErrNotFound covers both "record does not exist" and "record owned by
	// someone else". The two cases are deliberately indistinguishable so an
	// owner id cannot be probed for other users' records.
	ErrNotFound = errors.New("expense not found")

	// ErrOwnerRequired is returned when the caller context carries no
	// principal identifier.
	ErrOwnerRequired = errors.New("owner id is required")

	// ErrStoreUnavailable is returned when a store call exceeds its
	// configured deadline or the store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

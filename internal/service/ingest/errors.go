package ingest

import "errors"

// Sentinel errors for the ingest service layer.
var (
	// ErrValidation covers missing or malformed required fields, including
	// malformed identifiers.
	ErrValidation = errors.New("invalid submission")

	// ErrConflict marks a customer resubmission whose visit count matches
	// the stored record, a no-op that must not mutate anything.
	ErrConflict = errors.New("customer with this email already has that visit count")

	// ErrCustomerNotFound means a referenced customer id does not resolve.
	ErrCustomerNotFound = errors.New("customer not found")
)

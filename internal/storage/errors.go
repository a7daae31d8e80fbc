package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested key or record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the persistence backend is unreachable.
	// Readers degrade to the last in-memory snapshot; writers surface it.
	ErrUnavailable = errors.New("persistence backend unavailable")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

package database

import "errors"

var (
	// ErrNotFound is returned when a lookup by id matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an active reservation on the room overlaps the new one.
	ErrConflict = errors.New("overlapping active reservation")

	// ErrAlreadyCancelled is returned when cancelling a reservation that is already cancelled.
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
)

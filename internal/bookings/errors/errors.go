package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrLockHeld means another commit currently owns the vehicle's lock.
	ErrLockHeld = errors.New("vehicle booking lock is held")
)

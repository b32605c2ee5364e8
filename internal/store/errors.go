package store

import "errors"

var (
	// ErrUserNotFound is returned when a referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskNotFound is returned when a referenced task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidStatus is returned when a status value is outside the
	// recognized enum.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidDate is returned when a date does not parse as YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

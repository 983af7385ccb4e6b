package database

import "errors"

var (
	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedRecord is returned when a stored document lacks a required
	// field or carries a field of the wrong type.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrDuplicate is returned when a reminder notification already exists
	// for the appointment.
	ErrDuplicate = errors.New("duplicate record")
)

package storage

import "errors"

var (
	// ErrNotFound means no record matches the lookup key.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means an insert collided with an existing token ID or
	// draft key. Records are write-once.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput means a record is missing a required field.
	ErrInvalidInput = errors.New("invalid input")
)

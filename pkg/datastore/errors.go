package datastore

import "errors"

var (
	// ErrNotFound indicates no record matched the query
	ErrNotFound = errors.New("datastore.not_found")

	// ErrDuplicateID indicates an insert collided with an existing record id
	ErrDuplicateID = errors.New("datastore.duplicate_id")

	// ErrInvalidRecord indicates a nil or otherwise unusable record
	ErrInvalidRecord = errors.New("datastore.invalid_record")
)

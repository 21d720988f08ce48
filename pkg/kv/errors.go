package kv

import "errors"

// Sentinel errors for key-value operations.
var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("kv: key not found")

	// ErrClosed is returned when an operation is attempted on a closed database.
	ErrClosed = errors.New("kv: closed")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("kv: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("kv: failed to unmarshal value")
)

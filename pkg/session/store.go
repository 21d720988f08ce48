package session

import "context"

// Store is the storage contract consumed by session middleware.
//
// A missing or expired session is reported as (nil, nil) from Get, not as
// an error. Errors from the underlying database are returned unchanged.
type Store interface {
	// Get loads a session by id.
	Get(ctx context.Context, id string) (*Record, error)

	// Set persists a session unconditionally.
	Set(ctx context.Context, id string, rec Record) error

	// Destroy removes a session. Destroying a missing session is not an error.
	Destroy(ctx context.Context, id string) error

	// Touch extends a session's lifetime. Implementations may skip the
	// write when the stored expiration is still recent enough.
	Touch(ctx context.Context, id string, rec Record) error
}

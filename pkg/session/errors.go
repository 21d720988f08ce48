package session

import "errors"

// Session errors.
var (
	// ErrNotInContext is returned by helpers that need a session when the
	// request did not pass through Manager.Middleware.
	ErrNotInContext = errors.New("session: not found in context")

	// ErrInvalidSchedule is returned when a sweep schedule cannot be parsed.
	ErrInvalidSchedule = errors.New("session: invalid sweep schedule")

	// ErrSweeperRunning is returned when Start is called twice.
	ErrSweeperRunning = errors.New("session: sweeper already running")
)

package session

import (
	"log/slog"
	"time"
)

// DefaultKeyPrefix namespaces session keys in the key-value database.
const DefaultKeyPrefix = "sessionstorage:"

// Option configures an ExpiryStore.
type Option func(*ExpiryStore)

// WithRefreshThreshold sets the minimum gap between the last scheduled
// expiration and a new one before Touch writes to the database.
// Zero or negative (the default) turns Touch into a no-op.
//
// A coalesced Touch leaves the stored expiration at its previous value,
// so a session may expire up to d before a cookie re-issued with the
// newer expiration does.
func WithRefreshThreshold(d time.Duration) Option {
	return func(s *ExpiryStore) {
		s.threshold = max(d, 0)
	}
}

// WithLogger sets the logger used for background expiration events.
func WithLogger(l *slog.Logger) Option {
	return func(s *ExpiryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *ExpiryStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

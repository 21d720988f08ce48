package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"

	"github.com/dmitrymomot/sessionkv/pkg/logger"
)

// Session is the request-scoped handle to a session loaded by Manager.
// It is safe for concurrent use by the goroutines serving one request.
type Session struct {
	record    Record
	id        string
	previous  string // id replaced by Renew, destroyed on commit
	mu        sync.Mutex
	isNew     bool
	modified  bool
	destroyed bool
}

func newSession(id string, rec Record, isNew bool) *Session {
	rec.Data = maps.Clone(rec.Data)
	if rec.Data == nil {
		rec.Data = make(map[string]any)
	}
	return &Session{id: id, record: rec, isNew: isNew}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// IsNew reports whether the session was created for this request.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// Get returns a stored value.
func (s *Session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.record.Data[key]
	return v, ok
}

// Put stores a value and marks the session for saving.
func (s *Session) Put(key string, val any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Data[key] = val
	s.modified = true
}

// Delete removes a value. The session is marked for saving only if the
// key existed.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.record.Data[key]; ok {
		delete(s.record.Data, key)
		s.modified = true
	}
}

// Destroy deletes the session from the store and clears the cookie when
// the response is written.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

// Renew moves the session data to a fresh id, for example after login.
// The old id is destroyed when the response is written.
func (s *Session) Renew(newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isNew && s.previous == "" {
		s.previous = s.id
	}
	s.id = newID
	s.modified = true
}

// Record returns a copy of the underlying record.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record
	rec.Data = maps.Clone(s.record.Data)
	return rec
}

type ctxKey struct{}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by Manager.Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Value retrieves a typed value from the request's session.
func Value[T any](ctx context.Context, key string) (T, error) {
	var zero T

	s, ok := FromContext(ctx)
	if !ok {
		return zero, ErrNotInContext
	}

	val, ok := s.Get(key)
	if !ok {
		return zero, errors.New("session: no value for key: " + key)
	}

	typed, ok := val.(T)
	if !ok {
		return zero, errors.New("session: type mismatch for key: " + key)
	}
	return typed, nil
}

// ValueOr is like Value but returns def on any failure.
func ValueOr[T any](ctx context.Context, key string, def T) T {
	v, err := Value[T](ctx, key)
	if err != nil {
		return def
	}
	return v
}

// LogExtractor adds the current session id to log records as session_id.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("session_id", s.ID()), true
	}
}

package session

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/sessionkv/pkg/kv"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
)

// ExpiryStore persists sessions in a key-value database and purges expired
// ones proactively.
//
// For every session with a known future expiration that passed through
// Get or Set, the store arms a timer. When it fires the session is read
// again through Get, which deletes it only if the database still holds an
// expired record. Another process sharing the database may have extended
// the session in the meantime.
//
// The expiration index is process-local and safe to lose: after a restart,
// sessions are cleaned up lazily on their next read, or by a Sweeper.
type ExpiryStore struct {
	db        kv.DB[Record]
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	entries   map[string]*expiration
	prefix    string
	group     singleflight.Group
	threshold time.Duration
	mu        sync.Mutex
	closed    bool
}

// expiration is a scheduled cleanup for one session id.
type expiration struct {
	expiresAt time.Time
	timer     *time.Timer
}

// NewExpiryStore creates a store on top of db.
//
// Example:
//
//	store := session.NewExpiryStore(kv.NewMemory[session.Record](),
//	    session.WithRefreshThreshold(10*time.Second),
//	)
//	defer store.Shutdown()
func NewExpiryStore(db kv.DB[Record], opts ...Option) *ExpiryStore {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ExpiryStore{
		db:      db,
		logger:  logger.NewNope(),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*expiration),
		prefix:  DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a session. It returns (nil, nil) when the session does not
// exist or has expired; an expired record is deleted before returning.
// The returned Data map is a copy owned by the caller.
func (s *ExpiryStore) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.db.Get(ctx, s.Key(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			s.cancelExpiration(id)
			return nil, nil
		}
		return nil, err
	}

	rec.Data = maps.Clone(rec.Data)

	at, ok := rec.Cookie.Expires.Time()
	if !ok {
		s.cancelExpiration(id)
		return &rec, nil
	}

	if !at.After(time.Now()) {
		if err := s.Destroy(ctx, id); err != nil {
			return nil, err
		}
		s.logger.DebugContext(ctx, "expired session purged on read", slog.String("session_id", id))
		return nil, nil
	}

	s.scheduleExpiration(id, at)
	return &rec, nil
}

// Set writes the session unconditionally and reschedules its cleanup
// from rec.Cookie.Expires. Data is copied, so later changes to the
// caller's map are not stored.
func (s *ExpiryStore) Set(ctx context.Context, id string, rec Record) error {
	rec.Data = maps.Clone(rec.Data)
	if err := s.db.Set(ctx, s.Key(id), rec); err != nil {
		return err
	}

	if at, ok := rec.Cookie.Expires.Time(); ok && at.After(time.Now()) {
		s.scheduleExpiration(id, at)
	} else {
		s.cancelExpiration(id)
	}
	return nil
}

// Destroy cancels any scheduled cleanup and deletes the session.
// It is idempotent.
func (s *ExpiryStore) Destroy(ctx context.Context, id string) error {
	s.cancelExpiration(id)
	return s.db.Remove(ctx, s.Key(id))
}

// Touch extends a session for rolling-expiration middleware.
//
// Touch never writes a record without an expiration, and never writes
// when no refresh threshold is configured. With a threshold R and a
// scheduled expiration E, a new expiration earlier than E+R is not written
// either. In every other case, including a session this process has not
// scheduled, Touch performs a full Set.
func (s *ExpiryStore) Touch(ctx context.Context, id string, rec Record) error {
	at, ok := rec.Cookie.Expires.Time()
	if !ok || s.threshold <= 0 {
		return nil
	}

	if last, scheduled := s.Scheduled(id); scheduled && at.Before(last.Add(s.threshold)) {
		return nil
	}

	return s.Set(ctx, id, rec)
}

// Revalidate re-reads a session through Get and reports whether it is
// still alive. Concurrent calls for the same id share one read.
func (s *ExpiryStore) Revalidate(ctx context.Context, id string) (bool, error) {
	v, err, _ := s.group.Do(id, func() (any, error) {
		rec, err := s.Get(ctx, id)
		return rec != nil, err
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Shutdown stops every scheduled timer. The store remains usable for
// reads and writes, but no further timers are armed.
func (s *ExpiryStore) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.cancel()
}

// Scheduled returns the expiration currently scheduled for id.
func (s *ExpiryStore) Scheduled(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	return e.expiresAt, true
}

// Pending returns the number of scheduled timers.
func (s *ExpiryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Key returns the database key for a session id.
func (s *ExpiryStore) Key(id string) string {
	return s.prefix + id
}

// Prefix returns the key prefix shared by all session keys.
func (s *ExpiryStore) Prefix() string {
	return s.prefix
}

// idFromKey is the inverse of Key.
func (s *ExpiryStore) idFromKey(key string) (string, bool) {
	return strings.CutPrefix(key, s.prefix)
}

// scheduleExpiration replaces any timer for id with one firing at at.
func (s *ExpiryStore) scheduleExpiration(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[id]; ok {
		prev.timer.Stop()
		delete(s.entries, id)
	}
	if s.closed {
		return
	}

	e := &expiration{expiresAt: at}
	e.timer = time.AfterFunc(time.Until(at), func() { s.expire(id, e) })
	s.entries[id] = e
}

func (s *ExpiryStore) cancelExpiration(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.timer.Stop()
		delete(s.entries, id)
	}
}

// expire runs on the timer goroutine. A timer that was replaced or
// cancelled after it started firing finds a different entry and exits.
func (s *ExpiryStore) expire(id string, e *expiration) {
	s.mu.Lock()
	current := !s.closed && s.entries[id] == e
	s.mu.Unlock()
	if !current {
		return
	}

	alive, err := s.Revalidate(s.ctx, id)
	switch {
	case err != nil:
		if s.ctx.Err() == nil {
			s.logger.WarnContext(s.ctx, "session expiration check failed",
				slog.String("session_id", id),
				slog.Any("error", err),
			)
		}
	case alive:
		s.logger.DebugContext(s.ctx, "session extended elsewhere, rescheduled", slog.String("session_id", id))
	default:
		s.logger.DebugContext(s.ctx, "expired session purged", slog.String("session_id", id))
	}
}

var _ Store = (*ExpiryStore)(nil)

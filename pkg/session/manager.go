package session

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkv/pkg/cookie"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
)

// Default Manager configuration.
const (
	DefaultCookieName = "__sid"
	DefaultMaxAge     = 24 * time.Hour
)

// Manager is net/http middleware that loads a session per request and
// commits it before the first response byte:
//
//   - destroyed sessions are removed and the cookie is cleared
//   - modified sessions are saved with Store.Set and a new expiry
//   - unmodified existing sessions are extended with Store.Touch when
//     rolling expiration is enabled
//   - new sessions with no data are never persisted
type Manager struct {
	store      Store
	logger     *slog.Logger
	signer     *cookie.Signer
	newID      func() string
	cookieName string
	path       string
	domain     string
	maxAge     time.Duration
	sameSite   http.SameSite
	secure     bool
	httpOnly   bool
	rolling    bool
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		logger:     logger.NewNope(),
		newID:      uuid.NewString,
		cookieName: DefaultCookieName,
		path:       "/",
		maxAge:     DefaultMaxAge,
		sameSite:   http.SameSiteLaxMode,
		httpOnly:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh session id, for use with Session.Renew.
func (m *Manager) NewID() string {
	return m.newID()
}

// Middleware loads the session and attaches it to the request context.
// A store failure while loading responds with 500.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := m.load(r)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to load session", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		r = r.WithContext(withSession(ctx, sess))
		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() { m.commit(cw.ResponseWriter, r, sess) }

		next.ServeHTTP(cw, r)
		cw.flushCommit()
	})
}

func (m *Manager) load(r *http.Request) (*Session, error) {
	if id, ok := m.cookieID(r); ok {
		rec, err := m.store.Get(r.Context(), id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return newSession(id, *rec, false), nil
		}
	}
	return newSession(m.newID(), Record{}, true), nil
}

// cookieID returns the session id carried by the request cookie.
// A cookie with a bad signature is treated as absent.
func (m *Manager) cookieID(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	if m.signer == nil {
		return c.Value, true
	}

	id, err := m.signer.Unsign(c.Value)
	if err != nil {
		m.logger.DebugContext(r.Context(), "rejected session cookie", slog.Any("error", err))
		return "", false
	}
	return id, id != ""
}

func (m *Manager) commit(w http.ResponseWriter, r *http.Request, s *Session) {
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch {
	case s.destroyed:
		if !s.isNew {
			err = m.store.Destroy(ctx, s.id)
		}
		if s.previous != "" {
			err = errors.Join(err, m.store.Destroy(ctx, s.previous))
		}
		m.clearCookie(w)

	case s.modified:
		if s.previous != "" {
			if err = m.store.Destroy(ctx, s.previous); err != nil {
				break
			}
		}
		expires := time.Now().Add(m.maxAge)
		s.record.Cookie = m.recordCookie(expires)
		if err = m.store.Set(ctx, s.id, s.record); err == nil {
			m.writeCookie(w, s.id, expires)
		}

	case !s.isNew && m.rolling:
		expires := time.Now().Add(m.maxAge)
		s.record.Cookie = m.recordCookie(expires)
		if err = m.store.Touch(ctx, s.id, s.record); err == nil {
			m.writeCookie(w, s.id, expires)
		}
	}

	if err != nil {
		m.logger.ErrorContext(ctx, "failed to commit session",
			slog.String("session_id", s.id),
			slog.Any("error", err),
		)
	}
}

func (m *Manager) recordCookie(expires time.Time) Cookie {
	return Cookie{
		Expires:        ExpiresAt(expires),
		Path:           m.path,
		Domain:         m.domain,
		SameSite:       sameSiteName(m.sameSite),
		OriginalMaxAge: m.maxAge.Milliseconds(),
		Secure:         m.secure,
		HTTPOnly:       m.httpOnly,
	}
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string, expires time.Time) {
	value := id
	if m.signer != nil {
		value = m.signer.Sign(id)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Expires:  expires,
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     m.path,
		Domain:   m.domain,
		MaxAge:   -1,
		Secure:   m.secure,
		HttpOnly: m.httpOnly,
		SameSite: m.sameSite,
	})
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "lax"
	case http.SameSiteStrictMode:
		return "strict"
	case http.SameSiteNoneMode:
		return "none"
	default:
		return ""
	}
}

// commitWriter runs commit once, right before the headers are sent.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (w *commitWriter) flushCommit() {
	w.once.Do(w.commit)
}

func (w *commitWriter) WriteHeader(code int) {
	w.flushCommit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.flushCommit()
	return w.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionkv/pkg/cookie"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCookieName sets the session cookie name.
func WithCookieName(name string) ManagerOption {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithMaxAge sets how long a session lives after its last save or touch.
func WithMaxAge(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithCookiePath sets the cookie Path attribute.
func WithCookiePath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithCookieDomain sets the cookie Domain attribute.
func WithCookieDomain(domain string) ManagerOption {
	return func(m *Manager) {
		m.domain = domain
	}
}

// WithSecure sets the cookie Secure flag.
func WithSecure(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithSameSite sets the cookie SameSite attribute.
func WithSameSite(sameSite http.SameSite) ManagerOption {
	return func(m *Manager) {
		m.sameSite = sameSite
	}
}

// WithRolling enables rolling expiration: every request to an existing
// session extends it through Store.Touch and re-issues the cookie with
// now + max age.
//
// The cookie is re-issued even when Touch skips the write. With an
// ExpiryStore the stored expiration then trails the cookie by up to the
// refresh threshold. Without a threshold Touch never writes, so a session
// is extended only when a handler modifies it.
func WithRolling(rolling bool) ManagerOption {
	return func(m *Manager) {
		m.rolling = rolling
	}
}

// WithIDGenerator replaces the default UUID session id generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithManagerLogger sets the logger for commit failures.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSigner signs the session id in the cookie. Requests whose cookie
// fails verification get a new session.
func WithSigner(s *cookie.Signer) ManagerOption {
	return func(m *Manager) {
		m.signer = s
	}
}

package session

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Record is the value persisted for a session.
type Record struct {
	Data   map[string]any `json:"data,omitempty"`
	Cookie Cookie         `json:"cookie"`
}

// Cookie mirrors the attributes of the session cookie issued to the client.
// Only Expires affects storage; the rest travels with the record so a
// session can be re-issued with the same attributes.
type Cookie struct {
	Expires        Expiry `json:"expires,omitzero"`
	Path           string `json:"path,omitempty"`
	Domain         string `json:"domain,omitempty"`
	SameSite       string `json:"sameSite,omitempty"`
	OriginalMaxAge int64  `json:"originalMaxAge,omitempty"` // milliseconds
	Secure         bool   `json:"secure,omitempty"`
	HTTPOnly       bool   `json:"httpOnly,omitempty"`
}

// Expiry is an optional absolute expiration instant.
// The zero value means the session never expires.
type Expiry struct {
	at time.Time
}

// ExpiresAt returns an Expiry for t. A zero t yields "no expiration".
func ExpiresAt(t time.Time) Expiry {
	return Expiry{at: t}
}

// ExpiresIn returns an Expiry d from now.
func ExpiresIn(d time.Duration) Expiry {
	return Expiry{at: time.Now().Add(d)}
}

// Time returns the expiration instant and whether one is set.
func (e Expiry) Time() (time.Time, bool) {
	return e.at, !e.at.IsZero()
}

// IsZero reports whether no expiration is set.
func (e Expiry) IsZero() bool {
	return e.at.IsZero()
}

// MarshalJSON encodes the instant as RFC 3339 text, or null when unset.
func (e Expiry) MarshalJSON() ([]byte, error) {
	if e.at.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(e.at.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 text or Unix milliseconds.
// Anything else, including null, decodes as "no expiration" rather than
// failing: a malformed expiry must not make a session unreadable.
func (e *Expiry) UnmarshalJSON(data []byte) error {
	e.at = time.Time{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			e.at = t
		}
		return nil
	}

	if ms, err := strconv.ParseInt(string(data), 10, 64); err == nil && ms > 0 {
		e.at = time.UnixMilli(ms)
	}
	return nil
}

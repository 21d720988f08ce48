// Package cookie signs cookie values with HMAC-SHA256 so the server can
// reject values it did not issue.
//
// Signed values have the form value + "." + base64url(mac). A Signer holds
// one or more secrets: the first signs, every one verifies, which lets a
// secret be rotated without invalidating cookies issued under the old one.
//
//	s, err := cookie.NewSigner(os.Getenv("SESSION_SECRET"))
//	if err != nil {
//		return err
//	}
//	signed := s.Sign(sessionID)
//	id, err := s.Unsign(signed)
package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// MinSecretLength is the shortest secret NewSigner accepts.
const MinSecretLength = 32

// Errors.
var (
	ErrNoSecret  = errors.New("cookie: secret required")
	ErrBadSecret = errors.New("cookie: secret must be 32+ bytes")
	ErrBadSig    = errors.New("cookie: invalid signature")
)

// Signer signs and verifies cookie values.
type Signer struct {
	secrets [][]byte
}

// NewSigner creates a Signer. The first secret signs new values; all of
// them are accepted when verifying.
func NewSigner(secrets ...string) (*Signer, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	s := &Signer{secrets: make([][]byte, 0, len(secrets))}
	for _, secret := range secrets {
		if len(secret) < MinSecretLength {
			return nil, ErrBadSecret
		}
		s.secrets = append(s.secrets, []byte(secret))
	}
	return s, nil
}

// Sign returns value with its signature appended.
func (s *Signer) Sign(value string) string {
	return value + "." + base64.RawURLEncoding.EncodeToString(mac(s.secrets[0], value))
}

// Unsign verifies a value produced by Sign and returns the original.
// Returns ErrBadSig if the value is malformed or no secret matches.
func (s *Signer) Unsign(signed string) (string, error) {
	i := strings.LastIndexByte(signed, '.')
	if i < 0 {
		return "", ErrBadSig
	}

	value := signed[:i]
	sig, err := base64.RawURLEncoding.DecodeString(signed[i+1:])
	if err != nil {
		return "", ErrBadSig
	}

	for _, secret := range s.secrets {
		if hmac.Equal(sig, mac(secret, value)) {
			return value, nil
		}
	}
	return "", ErrBadSig
}

func mac(secret []byte, value string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(value))
	return h.Sum(nil)
}

// Package scsstore exposes a session.ExpiryStore as a storage backend for
// github.com/alexedwards/scs/v2.
//
// scs owns the session encoding; this adapter stores its opaque blob in the
// record's data and maps the scs deadline to Cookie.Expires, so expired
// scs sessions are purged by the ExpiryStore timers.
//
//	store := session.NewExpiryStore(db)
//	defer store.Shutdown()
//
//	sm := scs.New()
//	sm.Store = scsstore.New(store)
package scsstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/dmitrymomot/sessionkv/pkg/session"
)

// dataKey holds the base64-encoded scs blob inside Record.Data.
const dataKey = "scs"

// Store adapts a session.ExpiryStore to scs.Store and scs.CtxStore.
type Store struct {
	store *session.ExpiryStore
}

// New wraps store.
func New(store *session.ExpiryStore) *Store {
	return &Store{store: store}
}

// Find returns the blob for token. Missing and expired sessions report
// found == false.
func (s *Store) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

// Commit stores the blob with the given absolute expiry.
func (s *Store) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

// Delete removes the session.
func (s *Store) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

// FindCtx is Find with a context.
func (s *Store) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	rec, err := s.store.Get(ctx, token)
	if err != nil || rec == nil {
		return nil, false, err
	}

	encoded, ok := rec.Data[dataKey].(string)
	if !ok {
		return nil, false, nil
	}

	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, fmt.Errorf("scsstore: decode session %q: %w", token, err)
	}
	return b, true, nil
}

// CommitCtx is Commit with a context.
func (s *Store) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	return s.store.Set(ctx, token, session.Record{
		Cookie: session.Cookie{Expires: session.ExpiresAt(expiry)},
		Data:   map[string]any{dataKey: base64.StdEncoding.EncodeToString(b)},
	})
}

// DeleteCtx is Delete with a context.
func (s *Store) DeleteCtx(ctx context.Context, token string) error {
	return s.store.Destroy(ctx, token)
}

var (
	_ scs.Store    = (*Store)(nil)
	_ scs.CtxStore = (*Store)(nil)
)

package session_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkv/pkg/cookie"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

func sequentialIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func doRequest(t *testing.T, h http.Handler, cookie *http.Cookie) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	return nil
}

func TestManager_NewSession(t *testing.T) {
	t.Parallel()

	t.Run("unmodified new session is not persisted", func(t *testing.T) {
		t.Parallel()

		db := newSpyDB()
		store := session.NewExpiryStore(db)
		defer store.Shutdown()

		m := session.NewManager(store, session.WithRolling(true))
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := session.FromContext(r.Context())
			require.True(t, ok)
			require.True(t, s.IsNew())
			w.WriteHeader(http.StatusNoContent)
		}))

		resp := doRequest(t, h, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Nil(t, sessionCookie(resp))
		require.Zero(t, db.sets.Load())
	})

	t.Run("modified new session is saved with expiry", func(t *testing.T) {
		t.Parallel()

		db := newSpyDB()
		store := session.NewExpiryStore(db)
		defer store.Shutdown()

		m := session.NewManager(store,
			session.WithIDGenerator(sequentialIDs("sid-1")),
			session.WithMaxAge(time.Hour),
		)
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := session.FromContext(r.Context())
			s.Put("user", "u-1")
			_, _ = io.WriteString(w, "ok")
		}))

		resp := doRequest(t, h, nil)
		c := sessionCookie(resp)
		require.NotNil(t, c)
		require.Equal(t, "sid-1", c.Value)
		require.Equal(t, 3600, c.MaxAge)
		require.True(t, c.HttpOnly)

		got, err := store.Get(context.Background(), "sid-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "u-1", got.Data["user"])
		require.Equal(t, int64(time.Hour.Milliseconds()), got.Cookie.OriginalMaxAge)

		at, ok := store.Scheduled("sid-1")
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(time.Hour), at, time.Minute)
	})
}

func TestManager_ExistingSession(t *testing.T) {
	t.Parallel()

	t.Run("loads stored values", func(t *testing.T) {
		t.Parallel()

		store := session.NewExpiryStore(newSpyDB())
		defer store.Shutdown()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "sid-1", session.Record{Data: map[string]any{"n": 3}}))

		m := session.NewManager(store)
		var got int
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = session.ValueOr(r.Context(), "n", 0)
		}))

		doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
		require.Equal(t, 3, got)
	})

	t.Run("rolling touch coalesces within threshold", func(t *testing.T) {
		t.Parallel()

		db := newSpyDB()
		store := session.NewExpiryStore(db, session.WithRefreshThreshold(time.Minute))
		defer store.Shutdown()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "sid-1", recordExpiringAt(time.Now().Add(time.Hour))))
		require.Equal(t, int32(1), db.sets.Load())

		m := session.NewManager(store, session.WithRolling(true), session.WithMaxAge(time.Hour))
		h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		resp := doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
		require.NotNil(t, sessionCookie(resp), "rolling sessions re-issue the cookie")
		require.Equal(t, int32(1), db.sets.Load(), "touch within threshold must not write")
	})

	t.Run("rolling touch writes past threshold", func(t *testing.T) {
		t.Parallel()

		db := newSpyDB()
		store := session.NewExpiryStore(db, session.WithRefreshThreshold(time.Minute))
		defer store.Shutdown()

		ctx := context.Background()
		require.NoError(t, store.Set(ctx, "sid-1", recordExpiringAt(time.Now().Add(time.Minute))))

		m := session.NewManager(store, session.WithRolling(true), session.WithMaxAge(time.Hour))
		h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
		require.Equal(t, int32(2), db.sets.Load())

		at, ok := store.Scheduled("sid-1")
		require.True(t, ok)
		require.WithinDuration(t, time.Now().Add(time.Hour), at, time.Minute)
	})

	t.Run("rolling without threshold reissues cookie only", func(t *testing.T) {
		t.Parallel()

		db := newSpyDB()
		store := session.NewExpiryStore(db)
		defer store.Shutdown()

		ctx := context.Background()
		stored := time.Now().Add(time.Minute)
		require.NoError(t, store.Set(ctx, "sid-1", recordExpiringAt(stored)))

		m := session.NewManager(store, session.WithRolling(true), session.WithMaxAge(time.Hour))
		h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		c := sessionCookie(doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"}))
		require.NotNil(t, c)
		require.Equal(t, 3600, c.MaxAge)
		require.Equal(t, int32(1), db.sets.Load())

		at, ok := store.Scheduled("sid-1")
		require.True(t, ok)
		require.True(t, at.Equal(stored), "stored expiration is not extended")
	})

	t.Run("unknown cookie starts a new session", func(t *testing.T) {
		t.Parallel()

		store := session.NewExpiryStore(newSpyDB())
		defer store.Shutdown()

		m := session.NewManager(store, session.WithIDGenerator(sequentialIDs("fresh")))
		var id string
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := session.FromContext(r.Context())
			id = s.ID()
		}))

		doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "stale"})
		require.Equal(t, "fresh", id)
	})
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()

	store := session.NewExpiryStore(newSpyDB())
	defer store.Shutdown()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "sid-1", recordExpiringAt(time.Now().Add(time.Hour))))

	m := session.NewManager(store)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := session.FromContext(r.Context())
		s.Destroy()
	}))

	resp := doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
	c := sessionCookie(resp)
	require.NotNil(t, c)
	require.Empty(t, c.Value)
	require.Negative(t, c.MaxAge)

	got, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Zero(t, store.Pending())
}

func TestManager_Renew(t *testing.T) {
	t.Parallel()

	store := session.NewExpiryStore(newSpyDB())
	defer store.Shutdown()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "old", session.Record{Data: map[string]any{"cart": "3 items"}}))

	m := session.NewManager(store, session.WithIDGenerator(sequentialIDs("new")))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := session.FromContext(r.Context())
		s.Renew(m.NewID())
		s.Put("user", "u-1")
	}))

	resp := doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "old"})
	require.Equal(t, "new", sessionCookie(resp).Value)

	old, err := store.Get(ctx, "old")
	require.NoError(t, err)
	require.Nil(t, old)

	renewed, err := store.Get(ctx, "new")
	require.NoError(t, err)
	require.NotNil(t, renewed)
	require.Equal(t, "3 items", renewed.Data["cart"])
	require.Equal(t, "u-1", renewed.Data["user"])
}

func TestManager_StoreFailure(t *testing.T) {
	t.Parallel()

	db := newSpyDB()
	db.err = errors.New("connection refused")
	store := session.NewExpiryStore(db)
	defer store.Shutdown()

	var buf bytes.Buffer
	m := session.NewManager(store, session.WithManagerLogger(logger.NewWithWriter(&buf, logger.Config{})))

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	resp := doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.False(t, called)
	require.Contains(t, buf.String(), "connection refused")
}

func TestManager_SignedCookie(t *testing.T) {
	t.Parallel()

	signer, err := cookie.NewSigner("this-is-a-32-byte-or-longer-key!")
	require.NoError(t, err)

	db := newSpyDB()
	store := session.NewExpiryStore(db)
	defer store.Shutdown()

	m := session.NewManager(store,
		session.WithSigner(signer),
		session.WithIDGenerator(sequentialIDs("sid-1", "sid-2")),
	)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, _ := session.FromContext(r.Context())
		s.Put("id", s.ID())
		_, _ = io.WriteString(w, s.ID())
	}))

	c := sessionCookie(doRequest(t, h, nil))
	require.NotNil(t, c)
	require.Equal(t, signer.Sign("sid-1"), c.Value)

	t.Run("valid signature loads the session", func(t *testing.T) {
		resp := doRequest(t, h, c)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "sid-1", string(body))
	})

	t.Run("unsigned id starts a new session", func(t *testing.T) {
		resp := doRequest(t, h, &http.Cookie{Name: session.DefaultCookieName, Value: "sid-1"})
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "sid-2", string(body))
	})
}

func TestValue(t *testing.T) {
	t.Parallel()

	_, err := session.Value[string](context.Background(), "k")
	require.ErrorIs(t, err, session.ErrNotInContext)
	require.Equal(t, "def", session.ValueOr(context.Background(), "k", "def"))
}

func TestLogExtractor(t *testing.T) {
	t.Parallel()

	store := session.NewExpiryStore(newSpyDB())
	defer store.Shutdown()

	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, logger.Config{}, session.LogExtractor())

	m := session.NewManager(store, session.WithIDGenerator(sequentialIDs("sid-log")))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.InfoContext(r.Context(), "handled", slog.Int("status", 200))
	}))
	doRequest(t, h, nil)

	require.Contains(t, buf.String(), `"session_id":"sid-log"`)
}

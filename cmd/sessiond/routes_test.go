package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkv/pkg/cookie"
	"github.com/dmitrymomot/sessionkv/pkg/kv"
	"github.com/dmitrymomot/sessionkv/pkg/logger"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

func newTestApp(t *testing.T) (*app, *kv.Memory[session.Record]) {
	t.Helper()

	cfg, err := loadConfig(map[string]string{})
	require.NoError(t, err)

	mem := kv.NewMemory[session.Record]()
	b := newBackend(mem)
	a, err := newApp(cfg, b, logger.NewNope())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.shutdown(context.Background())) })
	return a, mem
}

func serve(h http.Handler, req *http.Request, c *http.Cookie) *httptest.ResponseRecorder {
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c
		}
	}
	return nil
}

func decodeViews(t *testing.T, rec *httptest.ResponseRecorder) viewsResponse {
	t.Helper()

	var resp viewsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRouter_Views(t *testing.T) {
	t.Parallel()

	a, mem := newTestApp(t)

	first := serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, decodeViews(t, first).Views)

	cookie := findCookie(first)
	require.NotNil(t, cookie)
	require.Equal(t, 1, mem.Len())

	_, ok := a.store.Scheduled(cookie.Value)
	require.True(t, ok)

	second := serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	resp := decodeViews(t, second)
	require.Equal(t, 2, resp.Views)
	require.Equal(t, cookie.Value, resp.SessionID)
}

func TestRouter_LoginRenewsSession(t *testing.T) {
	t.Parallel()

	a, mem := newTestApp(t)

	first := serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	before := findCookie(first)
	require.NotNil(t, before)

	form := url.Values{"user": {"alice"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	login := serve(a.handler, req, before)
	require.Equal(t, http.StatusNoContent, login.Code)

	after := findCookie(login)
	require.NotNil(t, after)
	require.NotEqual(t, before.Value, after.Value)

	_, ok := a.store.Scheduled(before.Value)
	require.False(t, ok)
	require.Equal(t, 1, mem.Len())

	resp := decodeViews(t, serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), after))
	require.Equal(t, "alice", resp.User)
	require.Equal(t, 2, resp.Views)
}

func TestRouter_LoginRequiresUser(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)

	rec := serve(a.handler, httptest.NewRequest(http.MethodPost, "/login", nil), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Logout(t *testing.T) {
	t.Parallel()

	a, mem := newTestApp(t)

	cookie := findCookie(serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), nil))
	require.NotNil(t, cookie)

	rec := serve(a.handler, httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	cleared := findCookie(rec)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Zero(t, mem.Len())
	require.Zero(t, a.store.Pending())
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t)

	live := serve(a.handler, httptest.NewRequest(http.MethodGet, "/health/live", nil), nil)
	require.Equal(t, http.StatusOK, live.Code)

	ready := serve(a.handler, httptest.NewRequest(http.MethodGet, "/health/ready", nil), nil)
	require.Equal(t, http.StatusOK, ready.Code)
	require.Nil(t, findCookie(ready))
}

func TestNewApp_RejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(map[string]string{"SESSION_SECRETS": "short"})
	require.NoError(t, err)

	_, err = newApp(cfg, newBackend(kv.NewMemory[session.Record]()), logger.NewNope())
	require.ErrorIs(t, err, cookie.ErrBadSecret)
}

func TestRouter_SignedCookie(t *testing.T) {
	t.Parallel()

	secret := "this-is-a-32-byte-or-longer-key!"
	cfg, err := loadConfig(map[string]string{"SESSION_SECRETS": secret})
	require.NoError(t, err)
	require.Equal(t, []string{secret}, cfg.Secrets)

	a, err := newApp(cfg, newBackend(kv.NewMemory[session.Record]()), logger.NewNope())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.shutdown(context.Background())) }()

	first := serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	c := findCookie(first)
	require.NotNil(t, c)

	id := decodeViews(t, first).SessionID
	require.NotEqual(t, id, c.Value)
	require.True(t, strings.HasPrefix(c.Value, id+"."))

	second := serve(a.handler, httptest.NewRequest(http.MethodGet, "/", nil), c)
	require.Equal(t, 2, decodeViews(t, second).Views)
}

func TestAsInt(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3, asInt(3))
	require.Equal(t, 3, asInt(int64(3)))
	require.Equal(t, 3, asInt(float64(3)))
	require.Zero(t, asInt("3"))
	require.Zero(t, asInt(nil))
}

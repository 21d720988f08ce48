package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/sessionkv/pkg/health"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

func newRouter(m *session.Manager, checks health.Checks, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(checks, health.WithLogger(log)))

	r.Group(func(r chi.Router) {
		r.Use(m.Middleware)
		r.Get("/", viewsHandler(log))
		r.Post("/login", loginHandler(m))
		r.Post("/logout", logoutHandler)
	})

	return r
}

type viewsResponse struct {
	SessionID string `json:"session_id"`
	User      string `json:"user,omitempty"`
	Views     int    `json:"views"`
}

// viewsHandler counts visits per session.
func viewsHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := session.FromContext(r.Context())

		views := 0
		if v, ok := s.Get("views"); ok {
			views = asInt(v)
		}
		views++
		s.Put("views", views)

		log.DebugContext(r.Context(), "session viewed", slog.Int("views", views))
		writeJSON(w, http.StatusOK, viewsResponse{
			SessionID: s.ID(),
			User:      session.ValueOr(r.Context(), "user", ""),
			Views:     views,
		})
	}
}

// loginHandler renews the session id and records the user, so a session
// id issued before login cannot be reused after it.
func loginHandler(m *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := r.FormValue("user")
		if user == "" {
			http.Error(w, "user is required", http.StatusBadRequest)
			return
		}

		s, _ := session.FromContext(r.Context())
		s.Renew(m.NewID())
		s.Put("user", user)
		w.WriteHeader(http.StatusNoContent)
	}
}

func logoutHandler(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	s.Destroy()
	w.WriteHeader(http.StatusNoContent)
}

// asInt accepts the int written in-process and the float64 that comes back
// from a JSON-encoded backend.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package session stores web sessions in a key-value database and purges
// expired ones with in-process timers.
//
// # ExpiryStore
//
// [ExpiryStore] implements [Store] (Get, Set, Destroy, Touch) over any
// [github.com/dmitrymomot/sessionkv/pkg/kv.DB]. Records live under
// "sessionstorage:" + id.
//
// For each session with a future Cookie.Expires that passes through Get or
// Set, the store keeps one timer. When the timer fires, the session is read
// again and deleted only if the database still holds an expired record, so
// several processes can share one database safely. A session without an
// expiration is never cleaned up proactively.
//
//	store := session.NewExpiryStore(kv.NewMemory[session.Record](),
//		session.WithRefreshThreshold(10*time.Second),
//	)
//	defer store.Shutdown()
//
// # Touch and the refresh threshold
//
// Rolling-expiration middleware calls Touch on every request. With a refresh
// threshold R configured and a scheduled expiration E, a Touch carrying a new
// expiration below E+R is dropped, which bounds database writes to one per R
// per session. Without a threshold every Touch with an expiration is a full
// Set. Touch on a record without an expiration does nothing.
//
// # Manager
//
// [Manager] is net/http middleware driving a [Store]. The handle returned by
// [FromContext] records changes, and the middleware commits them right before
// the response headers are written:
//
//	m := session.NewManager(store, session.WithRolling(true), session.WithMaxAge(time.Hour))
//	r.Use(m.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		s, _ := session.FromContext(r.Context())
//		s.Put("user_id", "u-1")
//	}
//
// With [WithSigner] the cookie carries an HMAC-signed id and cookies that
// fail verification start a new session.
//
// # Sweeper
//
// The expiration index is process-local. After a restart, [Sweeper] re-reads
// every stored session on a cron schedule, deleting expired ones and
// re-arming timers for the rest.
//
// # Errors
//
// Database errors are returned unchanged. A missing or unparsable
// Cookie.Expires is treated as "no expiration", never as an error.
package session

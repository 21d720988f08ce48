// Package kv provides a generic key-value database interface with in-memory,
// Redis, and PostgreSQL implementations.
//
// All implementations share the [DB] interface, so session storage and other
// consumers can run against [Memory] in tests and against [Redis] or
// [Postgres] in production.
//
// # Interface
//
//   - Get(ctx, key) (V, error) — retrieve a value, [ErrNotFound] on miss
//   - Set(ctx, key, value) error — store a value
//   - Remove(ctx, key) error — delete a key; missing keys are not an error
//
// Backends that can enumerate keys also implement [Lister].
//
// Unlike a cache, a DB never expires entries by itself. Expiration is the
// caller's concern (see pkg/session).
//
// # In-Memory
//
//	db := kv.NewMemory[session.Record]()
//	defer db.Close()
//
// # Redis
//
// Requires a [github.com/redis/go-redis/v9.UniversalClient] from pkg/redis:
//
//	client := redis.MustOpen(ctx, os.Getenv("REDIS_URL"))
//	db := kv.NewRedis[session.Record](client, nil, kv.WithNamespace("myapp"))
//
// # PostgreSQL
//
// Requires a pgx pool from pkg/db and the bundled schema:
//
//	pool := db.MustConnect(ctx, cfg)
//	if err := db.Migrate(ctx, pool, kv.Migrations, cfg.MigrationsTable, log); err != nil {
//	    return err
//	}
//	store := kv.NewPostgres[session.Record](pool, nil)
//
// Pass a custom [Marshaler] to [NewRedis] or [NewPostgres] to change
// serialization. If nil, JSON is used.
//
// # Error Handling
//
//   - [ErrNotFound] — key does not exist
//   - [ErrClosed] — operation on a closed in-memory database
//   - [ErrMarshal] — value serialization failed
//   - [ErrUnmarshal] — value deserialization failed
//
// Any other error comes from the backend driver unchanged.
package kv

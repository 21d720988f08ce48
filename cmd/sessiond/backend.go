package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/sessionkv/pkg/db"
	"github.com/dmitrymomot/sessionkv/pkg/health"
	"github.com/dmitrymomot/sessionkv/pkg/kv"
	"github.com/dmitrymomot/sessionkv/pkg/redis"
	"github.com/dmitrymomot/sessionkv/pkg/session"
)

// backend is an opened key-value database plus its lifecycle hooks.
type backend struct {
	db       kv.DB[session.Record]
	lister   kv.Lister
	checks   health.Checks
	shutdown []func(context.Context) error
}

// kvStore is what every backend implementation provides.
type kvStore interface {
	kv.DB[session.Record]
	kv.Lister
}

func newBackend(store kvStore) *backend {
	return &backend{db: store, lister: store, checks: health.Checks{}}
}

func openBackend(ctx context.Context, cfg Config, log *slog.Logger) (*backend, error) {
	switch cfg.Backend {
	case backendRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		b := newBackend(kv.NewRedis[session.Record](client, nil))
		b.checks["redis"] = redis.Healthcheck(client)
		b.shutdown = append(b.shutdown, redis.Shutdown(client))
		return b, nil

	case backendPostgres:
		pool, err := db.Connect(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, pool, kv.Migrations, cfg.DB.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, err
		}
		b := newBackend(kv.NewPostgres[session.Record](pool, nil))
		b.checks["postgres"] = db.Healthcheck(pool)
		b.shutdown = append(b.shutdown, db.Shutdown(pool))
		return b, nil

	default:
		mem := kv.NewMemory[session.Record]()
		b := newBackend(mem)
		b.shutdown = append(b.shutdown, func(context.Context) error { return mem.Close() })
		return b, nil
	}
}

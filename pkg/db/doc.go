// Package db connects to PostgreSQL for the kv Postgres backend.
//
// [Connect] opens a [github.com/jackc/pgx/v5/pgxpool.Pool] with startup
// retries; [Migrate] applies goose migrations from any [io/fs.FS], usually
// kv.Migrations:
//
//	pool, err := db.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := db.Migrate(ctx, pool, kv.Migrations, cfg.MigrationsTable, log); err != nil {
//		return err
//	}
//
// [Healthcheck] and [Shutdown] plug into readiness probes and shutdown hooks.
package db

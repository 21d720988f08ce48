// Package redis connects to Redis for the kv Redis backend.
//
// It wraps [github.com/redis/go-redis/v9] with env-driven configuration,
// startup retries, a readiness check, and a shutdown hook.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//		return err
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	db := kv.NewRedis[session.Record](client, nil)
//
// Errors are wrapped with [errors.Join] so the sentinel and the driver
// error can both be matched with [errors.Is].
package redis

package kv

// RedisOption configures the Redis database.
type RedisOption func(*redisOptions)

type redisOptions struct {
	namespace string
	scanCount int64
}

func defaultRedisOptions() *redisOptions {
	return &redisOptions{
		scanCount: 100,
	}
}

// WithNamespace sets a key namespace for all operations.
// Keys are stored as "{namespace}:{key}", which keeps several databases
// apart on one Redis instance.
func WithNamespace(ns string) RedisOption {
	return func(o *redisOptions) {
		o.namespace = ns
	}
}

// WithScanCount sets the COUNT hint used by Keys.
// Default: 100.
func WithScanCount(n int64) RedisOption {
	return func(o *redisOptions) {
		if n > 0 {
			o.scanCount = n
		}
	}
}

package kv

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis is a key-value database backed by Redis.
// It serializes values using the configured Marshaler (default: JSON).
type Redis[V any] struct {
	client    redis.UniversalClient
	opts      *redisOptions
	marshaler Marshaler[V]
}

// NewRedis creates a Redis-backed database.
// The client should be obtained from pkg/redis.Connect or pkg/redis.MustConnect.
// If m is nil, JSON serialization is used.
//
// Example:
//
//	client := redis.MustConnect(ctx, cfg.Redis)
//	db := kv.NewRedis[session.Record](client, nil, kv.WithNamespace("app"))
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], opts ...RedisOption) *Redis[V] {
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	return &Redis[V]{
		client:    client,
		opts:      o,
		marshaler: m,
	}
}

// Get retrieves a value by key from Redis.
// Returns ErrNotFound if the key does not exist.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	data, err := r.client.Get(ctx, r.namespaced(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	return r.marshaler.Unmarshal(data)
}

// Set stores a value without a Redis-side TTL.
func (r *Redis[V]) Set(ctx context.Context, key string, value V) error {
	data, err := r.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.namespaced(key), data, 0).Err()
}

// Remove deletes a key from Redis.
func (r *Redis[V]) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.namespaced(key)).Err()
}

// Keys returns the keys starting with prefix using SCAN, with the
// namespace stripped. SCAN does not block the server.
func (r *Redis[V]) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapePattern(r.namespaced(prefix)) + "*"
	var (
		cursor uint64
		keys   []string
	)

	for {
		batch, next, err := r.client.Scan(ctx, cursor, pattern, r.opts.scanCount).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range batch {
			keys = append(keys, r.strip(k))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return keys, nil
}

func (r *Redis[V]) namespaced(key string) string {
	if r.opts.namespace == "" {
		return key
	}
	return r.opts.namespace + ":" + key
}

func (r *Redis[V]) strip(key string) string {
	if r.opts.namespace == "" {
		return key
	}
	return strings.TrimPrefix(key, r.opts.namespace+":")
}

// escapePattern escapes glob metacharacters so prefix matches literally.
func escapePattern(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

var (
	_ DB[any] = (*Redis[any])(nil)
	_ Lister  = (*Redis[any])(nil)
)

package redis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkv/pkg/redis"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		client, err := redis.Connect(ctx, redis.Config{})
		require.ErrorIs(t, err, redis.ErrEmptyConnectionURL)
		require.Nil(t, client)
	})

	testCases := []struct {
		name string
		url  string
	}{
		{name: "http scheme", url: "http://localhost:6379"},
		{name: "no scheme", url: "localhost:6379"},
		{name: "postgres scheme", url: "postgres://localhost:5432"},
		{name: "invalid port", url: "redis://localhost:notaport"},
		{name: "invalid database", url: "redis://localhost:6379/notanumber"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, err := redis.Connect(ctx, redis.Config{URL: tc.url})
			require.ErrorIs(t, err, redis.ErrFailedToParseURL)
			require.Nil(t, client)
		})
	}
}

func TestConnect_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := redis.Connect(ctx, redis.Config{
		URL:           "redis://127.0.0.1:1/0",
		RetryAttempts: 3,
		RetryInterval: time.Second,
		DialTimeout:   50 * time.Millisecond,
	})
	require.ErrorIs(t, err, redis.ErrConnectionFailed)
	require.Nil(t, client)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := redis.Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}

type closer struct{ err error }

func (c closer) Close() error { return c.err }

func TestShutdown(t *testing.T) {
	t.Parallel()

	require.NoError(t, redis.Shutdown(closer{})(context.Background()))

	boom := errors.New("boom")
	require.ErrorIs(t, redis.Shutdown(closer{err: boom})(context.Background()), boom)
}

package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkv/pkg/db"
)

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	t.Run("empty connection string", func(t *testing.T) {
		t.Parallel()

		pool, err := db.Connect(context.Background(), db.Config{})
		require.ErrorIs(t, err, db.ErrEmptyConnectionString)
		require.Nil(t, pool)
	})

	t.Run("unparsable connection string", func(t *testing.T) {
		t.Parallel()

		pool, err := db.Connect(context.Background(), db.Config{ConnectionString: "postgres://host:notaport/db"})
		require.ErrorIs(t, err, db.ErrFailedToParseDBConfig)
		require.Nil(t, pool)
	})
}

func TestHealthcheck_NilPool(t *testing.T) {
	t.Parallel()

	err := db.Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, db.ErrHealthcheckFailed)
}

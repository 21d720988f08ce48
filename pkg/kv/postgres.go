package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTable is the table created by the bundled migrations.
const DefaultTable = "kv_entries"

// Querier is the subset of *pgxpool.Pool used by Postgres.
// pgx.Tx satisfies it too, so a Postgres database can run inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is a key-value database stored in a single PostgreSQL table
// with a jsonb value column. See Migrations for the schema.
type Postgres[V any] struct {
	db        Querier
	marshaler Marshaler[V]

	getSQL    string
	setSQL    string
	removeSQL string
	keysSQL   string
}

// NewPostgres creates a PostgreSQL-backed database.
// The pool should be obtained from pkg/db.Connect and the schema applied
// with pkg/db.Migrate(ctx, pool, kv.Migrations, ...).
// If m is nil, JSON serialization is used; the marshaled bytes must be
// valid JSON because the column type is jsonb.
func NewPostgres[V any](db Querier, m Marshaler[V], opts ...PostgresOption) *Postgres[V] {
	o := defaultPostgresOptions()
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	table := pgx.Identifier{o.table}.Sanitize()
	return &Postgres[V]{
		db:        db,
		marshaler: m,
		getSQL:    fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, table),
		setSQL: fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, table),
		removeSQL: fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, table),
		keysSQL:   fmt.Sprintf(`SELECT key FROM %s WHERE starts_with(key, $1) ORDER BY key`, table),
	}
}

// Get retrieves a value by key.
// Returns ErrNotFound if the row does not exist.
func (p *Postgres[V]) Get(ctx context.Context, key string) (V, error) {
	var (
		zero V
		data []byte
	)

	if err := p.db.QueryRow(ctx, p.getSQL, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	return p.marshaler.Unmarshal(data)
}

// Set upserts a value.
func (p *Postgres[V]) Set(ctx context.Context, key string, value V) error {
	data, err := p.marshaler.Marshal(value)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, p.setSQL, key, data)
	return err
}

// Remove deletes a row. Deleting a missing row is not an error.
func (p *Postgres[V]) Remove(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, p.removeSQL, key)
	return err
}

// Keys returns the sorted keys that start with prefix.
func (p *Postgres[V]) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.db.Query(ctx, p.keysSQL, prefix)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

var (
	_ DB[any] = (*Postgres[any])(nil)
	_ Lister  = (*Postgres[any])(nil)
)

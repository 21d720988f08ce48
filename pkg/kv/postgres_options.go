package kv

// PostgresOption configures the PostgreSQL database.
type PostgresOption func(*postgresOptions)

type postgresOptions struct {
	table string
}

func defaultPostgresOptions() *postgresOptions {
	return &postgresOptions{table: DefaultTable}
}

// WithTable overrides the table name. The table must have the same
// columns as the one created by Migrations.
// Default: "kv_entries".
func WithTable(name string) PostgresOption {
	return func(o *postgresOptions) {
		if name != "" {
			o.table = name
		}
	}
}

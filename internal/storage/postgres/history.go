package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"colmerge/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Repo implements storage.RunRepository for Postgres.
type Repo struct {
	pool  *pgxpool.Pool
	table string
}

// New opens a pgx pool for cfg.DSN and verifies connectivity.
func New(ctx context.Context, cfg storage.Config) (storage.RunRepository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool, table: cfg.TableName()}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTable creates the schema (for qualified names) and the history table.
func (r *Repo) EnsureTable(ctx context.Context) error {
	schemaSQL, tableSQL := buildCreateSQL(r.table)
	if schemaSQL != "" {
		if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := r.pool.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

// InsertRun inserts rec and returns its id.
func (r *Repo) InsertRun(ctx context.Context, rec storage.RunRecord) (int64, error) {
	sql, args := buildInsertSQL(r.table, storage.RecordColumns, rec.Values())

	var id int64
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert run into %s: %w", r.table, err)
	}
	return id, nil
}

// buildCreateSQL is pure so the DDL can be tested without a database.
func buildCreateSQL(table string) (schemaSQL, tableSQL string) {
	if schema, _ := splitQualifiedName(table); schema != "" {
		schemaSQL = "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
	}
	tableSQL = "CREATE TABLE IF NOT EXISTS " + tableIdent(table) + ` (
	id BIGSERIAL PRIMARY KEY,
	job TEXT NOT NULL,
	sources TEXT NOT NULL,
	output TEXT NOT NULL,
	percentage DOUBLE PRECISION NOT NULL,
	merged BOOLEAN NOT NULL,
	columns TEXT NOT NULL,
	message TEXT NOT NULL,
	error TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`
	return schemaSQL, tableSQL
}

// buildInsertSQL builds a single-row INSERT ... RETURNING id with $n
// placeholders. len(values) must equal len(columns).
func buildInsertSQL(table string, columns []string, values []any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(tableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c}.Sanitize())
	}
	b.WriteString(") VALUES (")
	for i := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteString(") RETURNING id")

	args := make([]any, len(values))
	copy(args, values)
	return b.String(), args
}

func splitQualifiedName(name string) (schema, table string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", name
}

func tableIdent(name string) string {
	schema, table := splitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

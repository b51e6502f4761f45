package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"colmerge/internal/storage"
)

// Repo implements storage.RunRepository for SQLite.
//
// SQLite has no native timestamp or boolean type: started_at is stored as
// RFC3339Nano TEXT and merged as INTEGER 0/1.
type Repo struct {
	db    *sql.DB
	table string
}

func init() {
	storage.Register("sqlite", New)
}

// New opens cfg.DSN (a file path or ":memory:") with the modernc driver.
func New(ctx context.Context, cfg storage.Config) (storage.RunRepository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, table: cfg.TableName()}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTable creates the history table if it is missing.
func (r *Repo) EnsureTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, buildCreateSQL(r.table)); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

// InsertRun inserts rec and returns its rowid.
func (r *Repo) InsertRun(ctx context.Context, rec storage.RunRecord) (int64, error) {
	q, args := buildInsertSQL(r.table, storage.RecordColumns, sqliteValues(rec))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("insert run into %s: %w", r.table, err)
	}
	return res.LastInsertId()
}

// sqliteValues adapts RunRecord.Values to SQLite storage classes.
func sqliteValues(rec storage.RunRecord) []any {
	vals := rec.Values()
	for i, v := range vals {
		switch t := v.(type) {
		case bool:
			if t {
				vals[i] = int64(1)
			} else {
				vals[i] = int64(0)
			}
		case time.Time:
			vals[i] = formatSQLiteTime(t)
		}
	}
	return vals
}

func buildCreateSQL(table string) string {
	return "CREATE TABLE IF NOT EXISTS " + sqlIdent(table) + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job TEXT NOT NULL,
	sources TEXT NOT NULL,
	output TEXT NOT NULL,
	percentage REAL NOT NULL,
	merged INTEGER NOT NULL,
	columns TEXT NOT NULL,
	message TEXT NOT NULL,
	error TEXT NOT NULL,
	started_at TEXT NOT NULL,
	duration_ms INTEGER NOT NULL
)`
}

func buildInsertSQL(table string, columns []string, values []any) (string, []any) {
	idents := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		idents[i] = sqlIdent(c)
		marks[i] = "?"
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqlIdent(table), strings.Join(idents, ", "), strings.Join(marks, ", "))
	return q, values
}

// sqlIdent double-quotes an identifier, escaping embedded quotes.
func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// formatSQLiteTime formats a time as RFC3339Nano in UTC.
func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

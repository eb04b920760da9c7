// Package sqlite implements the embedded-store destination using
// database/sql. SQLite has no dedicated bulk-load API like Postgres COPY, but
// a prepared single-row INSERT inside a transaction keeps performance
// acceptable for the benchmarking volumes this path serves.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Pure-Go SQLite driver; alternative: github.com/mattn/go-sqlite3
	_ "modernc.org/sqlite"
)

// Open opens a SQLite database at the given path (":memory:" for tests) and
// verifies the connection with a short ping under the caller's context.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	// One connection per invocation: SQLite is single-writer, and a pool of
	// connections against ":memory:" would each see a different database.
	db.SetMaxOpenConns(1)

	// Contending invocations wait briefly instead of failing with
	// SQLITE_BUSY immediately.
	_, _ = db.ExecContext(pingCtx, "PRAGMA busy_timeout = 5000;")

	return db, nil
}

// Repository wraps a SQLite connection for the ingest path.
type Repository struct {
	db *sql.DB
}

// New wraps an already-open database.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateTable creates the destination table if absent, with one TEXT column
// per name. Column identifiers are double-quoted; callers sanitize them
// first.
func (r *Repository) CreateTable(ctx context.Context, table string, columns []string) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("sqlite: table must not be empty")
	}
	if len(columns) == 0 {
		return fmt.Errorf("sqlite: at least one column is required")
	}

	var sb strings.Builder
	sb.WriteString("CREATE TABLE IF NOT EXISTS ")
	sb.WriteString(table)
	sb.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('"')
		sb.WriteString(c)
		sb.WriteString(`" TEXT`)
	}
	sb.WriteString(");")

	if err := r.Exec(ctx, sb.String()); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", table, err)
	}
	return nil
}

// InsertBatch inserts the rows into the table using a prepared single-row
// INSERT inside one transaction, committed at the end. One call is one
// durable batch: a later failure never unwinds rows committed here.
//
// Every row must have len(columns) values; nil values insert as NULL.
func (r *Repository) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: InsertBatch: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: InsertBatch: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Count returns the row count of the table.
func (r *Repository) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return n, nil
}

// Exec executes an arbitrary SQL statement (typically DDL) on the underlying
// connection.
func (r *Repository) Exec(ctx context.Context, sqlStmt string) error {
	if strings.TrimSpace(sqlStmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlStmt); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

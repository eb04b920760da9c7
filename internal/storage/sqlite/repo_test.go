package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
)

func newMemDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite :memory:: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func newRepo(tb testing.TB) *Repository {
	tb.Helper()
	return New(newMemDB(tb))
}

func uniqNameFrom(name, suffix string) string {
	// Keep identifiers simple and deterministic per test.
	n := strings.ReplaceAll(name, "/", "_")
	return fmt.Sprintf("%s_%s", n, suffix)
}

func TestOpenEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("Open accepted an empty path")
	}
}

func TestCreateTableIdempotent(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	table := uniqNameFrom(t.Name(), "t")

	cols := []string{"Id", "Host_Name_", "col"}
	if err := r.CreateTable(ctx, table, cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// Second create with the same columns is a no-op, not an error.
	if err := r.CreateTable(ctx, table, cols); err != nil {
		t.Fatalf("CreateTable (again): %v", err)
	}

	if _, err := r.InsertBatch(ctx, table, cols, [][]any{{"1", "a", "b"}}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	n, err := r.Count(ctx, table)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestCreateTableValidation(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if err := r.CreateTable(ctx, "", []string{"a"}); err == nil {
		t.Error("empty table name accepted")
	}
	if err := r.CreateTable(ctx, "t", nil); err == nil {
		t.Error("empty column list accepted")
	}
}

func TestInsertBatch(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	table := uniqNameFrom(t.Name(), "rows")
	cols := []string{"a", "b"}

	if err := r.CreateTable(ctx, table, cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := [][]any{
		{"1", "x"},
		{"2", nil}, // nil inserts as NULL
		{"3", "z"},
	}
	n, err := r.InsertBatch(ctx, table, cols, rows)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != 3 {
		t.Errorf("inserted = %d, want 3", n)
	}

	var nulls int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE "b" IS NULL`).Scan(&nulls); err != nil {
		t.Fatalf("query nulls: %v", err)
	}
	if nulls != 1 {
		t.Errorf("null count = %d, want 1", nulls)
	}
}

func TestInsertBatchEmptyRows(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	n, err := r.InsertBatch(context.Background(), "whatever", []string{"a"}, nil)
	if err != nil {
		t.Fatalf("InsertBatch(empty): %v", err)
	}
	if n != 0 {
		t.Errorf("inserted = %d, want 0", n)
	}
}

func TestInsertBatchRowLengthMismatchRollsBack(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()
	table := uniqNameFrom(t.Name(), "rows")
	cols := []string{"a", "b"}

	if err := r.CreateTable(ctx, table, cols); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	rows := [][]any{
		{"1", "x"},
		{"2"}, // short row
	}
	if _, err := r.InsertBatch(ctx, table, cols, rows); err == nil {
		t.Fatal("short row accepted")
	}

	// The failed batch must not leave partial rows behind.
	n, err := r.Count(ctx, table)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Errorf("count after failed batch = %d, want 0", n)
	}
}

func TestExec(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	ctx := context.Background()

	if err := r.Exec(ctx, ""); err != nil {
		t.Errorf("Exec(empty) = %v, want nil", err)
	}
	if err := r.Exec(ctx, "CREATE TABLE x (a TEXT)"); err != nil {
		t.Errorf("Exec(ddl) = %v", err)
	}
	if err := r.Exec(ctx, "NOT SQL AT ALL"); err == nil {
		t.Error("Exec accepted invalid SQL")
	}
}

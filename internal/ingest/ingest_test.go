package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bulkloader/internal/storage/sqlite"
)

func TestSanitizeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"clean", []string{"Id", "host_id"}, []string{"Id", "host_id"}},
		{"spaces and punctuation", []string{" Host Name!"}, []string{"Host_Name_"}},
		{"empty token", []string{""}, []string{"col"}},
		{"all punctuation", []string{"$%"}, []string{"__"}},
		{"mixed", []string{"Id", " Host Name!", "price ($)"}, []string{"Id", "Host_Name_", "price____"}},
		{"nil slice", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SanitizeHeader(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SanitizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripBOM(t *testing.T) {
	t.Parallel()

	tokens := []string{"\uFEFFid", "name"}
	stripBOM(tokens)
	if tokens[0] != "id" || tokens[1] != "name" {
		t.Fatalf("stripBOM gave %q", tokens)
	}

	stripBOM(nil) // must not panic
}

// recordingInserter captures CreateTable/InsertBatch calls without a database.
type recordingInserter struct {
	table   string
	columns []string
	sizes   []int
	rows    [][]any

	failOnBatch int // 1-based batch index to fail on; 0 disables
}

func (r *recordingInserter) CreateTable(_ context.Context, table string, columns []string) error {
	r.table = table
	r.columns = append([]string(nil), columns...)
	return nil
}

func (r *recordingInserter) InsertBatch(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	if r.failOnBatch > 0 && len(r.sizes)+1 == r.failOnBatch {
		return 0, errors.New("disk full")
	}
	r.sizes = append(r.sizes, len(rows))
	for _, row := range rows {
		r.rows = append(r.rows, append([]any(nil), row...))
	}
	return int64(len(rows)), nil
}

func TestIngestFileBatching(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("id,name\n")
	for i := 0; i < 2500; i++ {
		fmt.Fprintf(&sb, "%d,row%d\n", i, i)
	}

	repo := &recordingInserter{}
	rows, batches, err := ingestFile(context.Background(), repo, "listings", strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ingestFile: %v", err)
	}
	if rows != 2500 {
		t.Fatalf("rows = %d, want 2500", rows)
	}
	if batches != 3 {
		t.Fatalf("batches = %d, want 3", batches)
	}
	if want := []int{1000, 1000, 500}; !reflect.DeepEqual(repo.sizes, want) {
		t.Fatalf("batch sizes = %v, want %v", repo.sizes, want)
	}
	if repo.table != "listings" {
		t.Fatalf("created table %q", repo.table)
	}
	if want := []string{"id", "name"}; !reflect.DeepEqual(repo.columns, want) {
		t.Fatalf("columns = %v, want %v", repo.columns, want)
	}
}

func TestIngestFileNoHeader(t *testing.T) {
	t.Parallel()

	_, _, err := ingestFile(context.Background(), &recordingInserter{}, "t", strings.NewReader(""))
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("err = %v, want ErrNoHeader", err)
	}
}

func TestIngestFileShortRowsPadNull(t *testing.T) {
	t.Parallel()

	in := "a,b,c\n1,2,3\n4,5\n6\n"
	repo := &recordingInserter{}
	rows, _, err := ingestFile(context.Background(), repo, "t", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ingestFile: %v", err)
	}
	if rows != 3 {
		t.Fatalf("rows = %d, want 3", rows)
	}
	want := [][]any{
		{"1", "2", "3"},
		{"4", "5", nil},
		{"6", nil, nil},
	}
	if !reflect.DeepEqual(repo.rows, want) {
		t.Fatalf("rows = %v, want %v", repo.rows, want)
	}
}

func TestIngestFileHeaderBOMStripped(t *testing.T) {
	t.Parallel()

	repo := &recordingInserter{}
	_, _, err := ingestFile(context.Background(), repo, "t", strings.NewReader("\uFEFFid,name\n1,a\n"))
	if err != nil {
		t.Fatalf("ingestFile: %v", err)
	}
	if want := []string{"id", "name"}; !reflect.DeepEqual(repo.columns, want) {
		t.Fatalf("columns = %v, want %v", repo.columns, want)
	}
}

func TestIngestFileBatchFailureKeepsEarlierCount(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("id\n")
	for i := 0; i < 1500; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}

	repo := &recordingInserter{failOnBatch: 2}
	rows, batches, err := ingestFile(context.Background(), repo, "t", strings.NewReader(sb.String()))
	if err == nil {
		t.Fatal("expected batch failure")
	}
	if rows != 1000 || batches != 1 {
		t.Fatalf("rows=%d batches=%d, want 1000/1", rows, batches)
	}
}

// fileDownloader serves canned bytes through a scratch file, the way the real
// object store download does.
type fileDownloader struct {
	data string
	err  error

	path string // scratch file handed to the caller
}

func (d *fileDownloader) DownloadTemp(_ context.Context, _, _ string) (string, int64, uint64, error) {
	if d.err != nil {
		return "", 0, 0, d.err
	}
	f, err := os.CreateTemp("", "ingest_test_*.csv")
	if err != nil {
		return "", 0, 0, err
	}
	if _, err := f.WriteString(d.data); err != nil {
		f.Close()
		return "", 0, 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, 0, err
	}
	d.path = f.Name()
	return f.Name(), int64(len(d.data)), 42, nil
}

// captureLogs redirects the package log hook; tests using it must not run in
// parallel.
func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	prev := logf
	logf = func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	t.Cleanup(func() { logf = prev })
	return &lines
}

func TestIngestEndToEnd(t *testing.T) {
	lines := captureLogs(t)

	dl := &fileDownloader{data: "id,name\n1,alpha\n2,beta\n"}
	dbPath := filepath.Join(t.TempDir(), "out.db")

	rows, err := Ingest(context.Background(), dl, "bkt", "data.csv", dbPath, "listings")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rows != 2 {
		t.Fatalf("rows = %d, want 2", rows)
	}

	if _, err := os.Stat(dl.path); !os.IsNotExist(err) {
		t.Fatalf("scratch file %s not removed (stat err=%v)", dl.path, err)
	}

	db, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()

	var n int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM "listings"`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("table count = %d, want 2", n)
	}
	var name sql.NullString
	if err := db.QueryRow(`SELECT "name" FROM "listings" WHERE "id" = '1'`).Scan(&name); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !name.Valid || name.String != "alpha" {
		t.Fatalf("name = %+v, want alpha", name)
	}

	// The completion log reports the table's total size.
	counted := false
	for _, ln := range *lines {
		if strings.Contains(ln, "total_rows=2") {
			counted = true
		}
	}
	if !counted {
		t.Error("completion log did not report the table row count")
	}
}

func TestIngestDownloadFailure(t *testing.T) {
	t.Parallel()

	dl := &fileDownloader{err: errors.New("no such key")}
	_, err := Ingest(context.Background(), dl, "bkt", "missing.csv", filepath.Join(t.TempDir(), "out.db"), "t")
	if err == nil || !strings.Contains(err.Error(), "no such key") {
		t.Fatalf("err = %v, want download failure", err)
	}
}

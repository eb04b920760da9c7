// Package ingest implements the embedded-store load path: it downloads a CSV
// object to a scratch file, derives an all-TEXT table from the header row, and
// writes the data rows to SQLite in fixed-size committed batches.
//
// Unlike the relational path this is not transactional end to end. Each batch
// commits independently; a failure mid-stream leaves the batches already
// committed in place and propagates the error.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"bulkloader/internal/metrics"
	"bulkloader/internal/objstore"
	"bulkloader/internal/storage/sqlite"
)

// BatchSize is the number of data rows committed per batch.
const BatchSize = 1000

// Operation labels this path's metrics and log records.
const Operation = "sqlite_bulk_load"

// ErrNoHeader reports an empty object: there is no header row to derive the
// table shape from.
var ErrNoHeader = errors.New("ingest: input has no header row")

var logf = log.Printf

// batchInserter is the slice of the sqlite repository the ingest loop needs.
type batchInserter interface {
	CreateTable(ctx context.Context, table string, columns []string) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// Ingest downloads s3://bucket/key and loads it into table inside the SQLite
// database at dbPath, creating the table from the sanitized header if needed.
// It returns the number of rows loaded; on a mid-stream failure that count
// covers the batches already committed. A metrics record is emitted exactly
// once on every path, success or failure.
func Ingest(ctx context.Context, dl objstore.Downloader, bucket, key, dbPath, table string) (rows int64, err error) {
	start := time.Now()
	st := &stats{Bucket: bucket, Key: key, Table: table}
	defer func() { st.emit(rows, err, time.Since(start)) }()

	dlStart := time.Now()
	path, size, sum, err := dl.DownloadTemp(ctx, bucket, key)
	st.DownloadMS = time.Since(dlStart).Milliseconds()
	metrics.RecordPhase(Operation, "download", err, time.Since(dlStart))
	if err != nil {
		return 0, fmt.Errorf("ingest: download s3://%s/%s: %w", bucket, key, err)
	}
	defer os.Remove(path)
	st.Bytes = size
	st.Checksum = fmt.Sprintf("%016x", sum)
	logf("ingest: downloaded s3://%s/%s bytes=%s checksum=%s",
		bucket, key, humanize.Bytes(uint64(size)), st.Checksum)

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("ingest: open scratch file: %w", err)
	}
	defer f.Close()

	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return 0, fmt.Errorf("ingest: open %s: %w", dbPath, err)
	}
	defer db.Close()

	repo := sqlite.New(db)

	insStart := time.Now()
	rows, st.Batches, err = ingestFile(ctx, repo, table, f)
	st.IngestMS = time.Since(insStart).Milliseconds()
	metrics.RecordPhase(Operation, "ingest", err, time.Since(insStart))
	if err != nil {
		return rows, err
	}

	// The table may hold rows from earlier runs; report its full size
	// alongside this run's contribution.
	if n, cerr := repo.Count(ctx, table); cerr != nil {
		logf("ingest: count %s: %v", table, cerr)
	} else {
		logf("ingest: table=%s loaded=%s total_rows=%s",
			table, humanize.Comma(rows), humanize.Comma(n))
	}
	return rows, nil
}

// ingestFile reads CSV from r and writes it to repo in BatchSize batches.
// The first record is the header; a trailing partial batch is committed when
// non-empty. Short data rows are padded with NULLs rather than rejected.
func ingestFile(ctx context.Context, repo batchInserter, table string, r io.Reader) (int64, int, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1 // rows narrower or wider than the header are expected
	cr.ReuseRecord = true   // fields are copied into each batch below

	hdr, err := cr.Read()
	if err == io.EOF {
		return 0, 0, ErrNoHeader
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: read header: %w", err)
	}
	// ReuseRecord means hdr's backing array is recycled on the next Read.
	columns := append([]string(nil), hdr...)
	stripBOM(columns)
	columns = SanitizeHeader(columns)

	if err := repo.CreateTable(ctx, table, columns); err != nil {
		return 0, 0, err
	}

	var (
		total   int64
		batches int
		batch   = make([][]any, 0, BatchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.InsertBatch(ctx, table, columns, batch)
		if err != nil {
			return err
		}
		total += n
		batches++
		logf("ingest: table=%s batch=%d rows=%s total=%s",
			table, batches, humanize.Comma(n), humanize.Comma(total))
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, batches, fmt.Errorf("ingest: read row: %w", err)
		}

		row := make([]any, len(columns))
		for i := range columns {
			if i < len(rec) {
				row[i] = rec[i]
			}
			// Missing trailing fields stay nil and load as NULL.
		}
		batch = append(batch, row)

		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return total, batches, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, batches, err
	}
	return total, batches, nil
}

// stats is the structured metrics line emitted once per invocation.
type stats struct {
	Operation  string `json:"operation"`
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	Table      string `json:"table"`
	Rows       int64  `json:"rows"`
	Batches    int    `json:"batches"`
	Bytes      int64  `json:"bytes"`
	Checksum   string `json:"checksum,omitempty"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	DownloadMS int64  `json:"download_ms"`
	IngestMS   int64  `json:"ingest_ms"`
	TotalMS    int64  `json:"total_ms"`
}

func (st *stats) emit(rows int64, runErr error, total time.Duration) {
	st.Operation = Operation
	st.Rows = rows
	st.TotalMS = total.Milliseconds()
	st.Outcome = "loaded"
	if runErr != nil {
		st.Outcome = "failed"
		st.Error = runErr.Error()
	}

	b, err := json.Marshal(st)
	if err != nil {
		logf("ingest: marshal metrics record: %v", err)
	} else {
		logf("metrics: %s", b)
	}

	metrics.RecordRows(Operation, "loaded", rows)
	metrics.RecordOutcome(Operation, st.Outcome)
}

// Package bulkload implements the staged, transactional bulk load into the
// relational destination.
//
// One Run is one multi-phase transaction: truncate staging (pre-transaction
// cleanup), begin, best-effort session tuning, create staging if absent,
// engine-native bulk ingest from the source object, count, promote via a
// set-oriented coercing insert-select, sample rejected rows for diagnostics,
// commit. Any failure at or after begin rolls the transaction back and
// rethrows the original error; a rollback failure is logged but never masks
// it. There are no retries: a phase timeout or engine error is terminal for
// the invocation.
//
// Concurrent runs are not coordinated. Two simultaneous invocations race on
// the shared staging table (each truncates it at start); callers must
// serialize runs externally.
package bulkload

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bulkloader/internal/metrics"
	"bulkloader/internal/sqlgen"
)

// Phase names, in execution order.
const (
	PhaseTruncate      = "truncate"
	PhaseBegin         = "begin"
	PhaseSessionTuning = "session_tuning"
	PhaseCreateStaging = "create_staging"
	PhaseLoad          = "load"
	PhaseCount         = "count"
	PhasePromote       = "promote"
	PhaseBadRows       = "bad_rows"
	PhaseCommit        = "commit"
)

// Terminal outcomes of a run. Exactly one is reached per invocation.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeFailed     = "failed" // failure before a transaction existed
)

// DefaultPhaseTimeout bounds each statement attempt. Bulk loads of large
// objects dominate; shorter phases share the same generous bound rather than
// carrying per-phase knobs.
const DefaultPhaseTimeout = 14 * time.Minute

// logf is a test hook for log output.
var logf = log.Printf

// Loader executes the staged bulk load. DB is expected to be a MySQL-dialect
// connection in production; tests substitute dialect-neutral statements and
// an embedded database.
type Loader struct {
	DB    *sql.DB
	Stmts sqlgen.Statements

	// Operation tags the metrics record, default "aurora_bulk_load".
	Operation string

	// Database and Table label logs and the metrics record only; the
	// statements already name the tables.
	Database string
	Table    string

	// RunTag is the caller-supplied job label, optional.
	RunTag string

	// PhaseTimeout bounds each statement attempt; zero means
	// DefaultPhaseTimeout.
	PhaseTimeout time.Duration
}

// BadRow is one sampled staging row that failed the numeric-id rule or the
// currency rule, carrying the raw offending values. Advisory only: the
// sample is bounded and representative, not exhaustive.
type BadRow struct {
	ID        string
	NumericID string
	Currency  string
}

// Result is the successful outcome of one run.
type Result struct {
	// RunID identifies this invocation in logs and metrics.
	RunID string

	// StagingCount is the number of rows staged from the source object.
	StagingCount int64

	// Inserted is the engine-reported affected-row count of the promote
	// statement. Approximate: destination triggers or constraints may
	// alter it.
	Inserted int64

	// BadRows is the bounded diagnostic sample.
	BadRows []BadRow

	// Timings holds per-phase elapsed times in execution order.
	Timings Timings

	// Outcome is the terminal transaction state.
	Outcome string
}

// Run executes the full phase sequence and returns the result. On any error
// the returned Result still carries the run id, the timings of the phases
// that ran, and the terminal outcome. A metrics record is emitted exactly
// once per invocation, success or failure.
func (l *Loader) Run(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString(), Outcome: OutcomeFailed}
	start := time.Now()

	err := l.run(ctx, &res)

	l.emitRecord(&res, err, time.Since(start))
	if err != nil {
		return res, err
	}
	return res, nil
}

func (l *Loader) run(ctx context.Context, res *Result) error {
	op := l.operation()

	// Pre-transaction idempotent cleanup: the staging table never survives
	// a previous run into this one.
	if err := l.phase(ctx, res, PhaseTruncate, func(pctx context.Context) error {
		_, err := l.DB.ExecContext(pctx, l.Stmts.Truncate)
		return err
	}); err != nil {
		// The staging table may not exist yet on a first run; creation
		// happens inside the transaction, so this is not fatal.
		logf("bulkload: run=%s truncate staging: %v (continuing)", res.RunID, err)
	}

	// Begin. The transaction context must outlive every phase, so the
	// begin phase is timed but runs under the caller's context.
	beginStart := time.Now()
	tx, err := l.DB.BeginTx(ctx, nil)
	beginDur := time.Since(beginStart)
	res.Timings.Add(PhaseBegin, beginDur)
	metrics.RecordPhase(op, PhaseBegin, err, beginDur)
	if err != nil {
		return &PhaseError{Phase: PhaseBegin, Err: err}
	}
	logf("bulkload: run=%s transaction begun", res.RunID)

	if err := l.runInTx(ctx, tx, res); err != nil {
		l.rollback(tx, res)
		return err
	}

	if err := l.phase(ctx, res, PhaseCommit, func(context.Context) error {
		return tx.Commit()
	}); err != nil {
		// A failed commit resolves the transaction on the engine side, so
		// the rollback here usually reports ErrTxDone; the attempt is
		// still made and logged like any other failure path.
		l.rollback(tx, res)
		return err
	}

	res.Outcome = OutcomeCommitted
	logf("bulkload: run=%s committed staged=%s inserted=%s bad_rows_shown=%d",
		res.RunID, humanize.Comma(res.StagingCount), humanize.Comma(res.Inserted), len(res.BadRows))
	return nil
}

// rollback attempts to roll the transaction back and records the outcome.
// Log only: the phase error that led here must propagate unchanged.
func (l *Loader) rollback(tx *sql.Tx, res *Result) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logf("bulkload: run=%s rollback failed: %v (original error preserved)", res.RunID, rbErr)
	} else {
		logf("bulkload: run=%s rolled back", res.RunID)
	}
	res.Outcome = OutcomeRolledBack
}

// runInTx executes phases 3..8 inside the open transaction.
func (l *Loader) runInTx(ctx context.Context, tx *sql.Tx, res *Result) error {
	// Best-effort session tuning: the engine may not support the
	// variable. Rejection is a logged warning, never fatal.
	if err := l.phase(ctx, res, PhaseSessionTuning, func(pctx context.Context) error {
		_, err := tx.ExecContext(pctx, l.Stmts.SessionTuning)
		return err
	}); err != nil {
		logf("bulkload: run=%s warning: session tuning rejected: %v (continuing)", res.RunID, err)
	}

	if err := l.phase(ctx, res, PhaseCreateStaging, func(pctx context.Context) error {
		_, err := tx.ExecContext(pctx, l.Stmts.CreateStaging)
		return err
	}); err != nil {
		return err
	}

	if err := l.phase(ctx, res, PhaseLoad, func(pctx context.Context) error {
		_, err := tx.ExecContext(pctx, l.Stmts.Load)
		return err
	}); err != nil {
		return err
	}

	if err := l.phase(ctx, res, PhaseCount, func(pctx context.Context) error {
		return tx.QueryRowContext(pctx, l.Stmts.CountStaging).Scan(&res.StagingCount)
	}); err != nil {
		return err
	}

	if err := l.phase(ctx, res, PhasePromote, func(pctx context.Context) error {
		r, err := tx.ExecContext(pctx, l.Stmts.Promote)
		if err != nil {
			return err
		}
		if n, err := r.RowsAffected(); err == nil {
			res.Inserted = n
		}
		return nil
	}); err != nil {
		return err
	}

	// Diagnostic sample. This runs before commit, so its failure aborts
	// the whole transaction even though the promote already succeeded;
	// observed behavior kept as-is.
	if err := l.phase(ctx, res, PhaseBadRows, func(pctx context.Context) error {
		bad, err := l.sampleBadRows(pctx, tx)
		if err != nil {
			return err
		}
		res.BadRows = bad
		return nil
	}); err != nil {
		return err
	}

	if len(res.BadRows) > 0 {
		logf("bulkload: run=%s %d rows failed the numeric-id or currency rule (showing up to %d)",
			res.RunID, len(res.BadRows), sqlgen.DefaultBadRowLimit)
		for _, b := range res.BadRows {
			logf("bulkload: run=%s bad row id=%q numeric_id=%q currency=%q", res.RunID, b.ID, b.NumericID, b.Currency)
		}
	}
	return nil
}

func (l *Loader) sampleBadRows(ctx context.Context, tx *sql.Tx) ([]BadRow, error) {
	rows, err := tx.QueryContext(ctx, l.Stmts.BadRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BadRow
	for rows.Next() {
		var id, num, cur sql.NullString
		if err := rows.Scan(&id, &num, &cur); err != nil {
			return nil, err
		}
		out = append(out, BadRow{ID: id.String, NumericID: num.String, Currency: cur.String})
	}
	return out, rows.Err()
}

// phase runs fn under the per-phase timeout, records its timing into the
// accumulator and the metrics backend, and wraps failures in a PhaseError.
func (l *Loader) phase(ctx context.Context, res *Result, name string, fn func(context.Context) error) error {
	pctx, cancel := context.WithTimeout(ctx, l.phaseTimeout())
	defer cancel()

	start := time.Now()
	err := fn(pctx)
	d := time.Since(start)

	res.Timings.Add(name, d)
	metrics.RecordPhase(l.operation(), name, err, d)

	if err != nil {
		return &PhaseError{Phase: name, Err: err}
	}
	return nil
}

func (l *Loader) operation() string {
	if l.Operation != "" {
		return l.Operation
	}
	return "aurora_bulk_load"
}

func (l *Loader) phaseTimeout() time.Duration {
	if l.PhaseTimeout > 0 {
		return l.PhaseTimeout
	}
	return DefaultPhaseTimeout
}

// record is the structured metrics line emitted once per invocation.
type record struct {
	Operation    string           `json:"operation"`
	RunID        string           `json:"run_id"`
	RunTag       string           `json:"run_tag,omitempty"`
	Database     string           `json:"database"`
	Table        string           `json:"table"`
	StagingCount int64            `json:"staging_count"`
	Inserted     int64            `json:"inserted"`
	BadRowsShown int              `json:"bad_rows_shown"`
	Outcome      string           `json:"outcome"`
	Error        string           `json:"error,omitempty"`
	TimingsMS    map[string]int64 `json:"timings_ms"`
	TotalMS      int64            `json:"total_ms"`
}

// emitRecord writes the one-per-invocation metrics record: a JSON log line
// plus counters on the metrics backend.
func (l *Loader) emitRecord(res *Result, runErr error, total time.Duration) {
	rec := record{
		Operation:    l.operation(),
		RunID:        res.RunID,
		RunTag:       l.RunTag,
		Database:     l.Database,
		Table:        l.Table,
		StagingCount: res.StagingCount,
		Inserted:     res.Inserted,
		BadRowsShown: len(res.BadRows),
		Outcome:      res.Outcome,
		TimingsMS:    res.Timings.Milliseconds(),
		TotalMS:      total.Milliseconds(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	b, err := json.Marshal(rec)
	if err != nil {
		logf("bulkload: run=%s marshal metrics record: %v", res.RunID, err)
	} else {
		logf("metrics: %s", b)
	}

	op := l.operation()
	metrics.RecordRows(op, "staged", res.StagingCount)
	metrics.RecordRows(op, "inserted", res.Inserted)
	metrics.RecordRows(op, "bad_rows_shown", int64(len(res.BadRows)))
	metrics.RecordOutcome(op, res.Outcome)
}

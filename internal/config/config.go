// Package config defines the canonical, JSON-serializable job model for the
// bulkloader. It is intentionally small, explicit, and dependency-free so
// jobs can be loaded from disk (or another resolver) and passed through the
// program without additional glue code.
//
// The identifiers in a Job arrive already resolved: credential lookup, event
// parsing, and environment wiring happen upstream of this program.
//
// Example (trimmed):
//
//	{
//	  "run_tag": "listings-2026-08",
//	  "source": { "bucket": "ingest", "key": "in/listings.csv" },
//	  "object_store": { "endpoint": "s3.us-east-2.amazonaws.com" },
//	  "destination": {
//	    "kind": "aurora",
//	    "aurora": { "dsn": "user:pass@tcp(host:3306)/saaf", "database": "saaf", "table": "listings" }
//	  }
//	}
package config

import (
	"encoding/json"
	"io"
	"os"

	"bulkloader/internal/objstore"
)

// Destination kinds routed by the entry point.
const (
	// KindAurora selects the staged, transactional load into the
	// Aurora-MySQL-compatible cluster.
	KindAurora = "aurora"

	// KindSQLite selects the embedded-store batch ingest used for
	// benchmarking.
	KindSQLite = "sqlite"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// RunTag labels logs and metrics for this job. Optional; a run id is
	// generated per invocation regardless.
	RunTag string `json:"run_tag"`

	// Source identifies the object to load.
	Source Source `json:"source"`

	// ObjectStore configures access to the object store. The relational
	// path does not need it (the engine reads the object itself); the
	// embedded-store path does.
	ObjectStore objstore.Config `json:"object_store"`

	// Destination selects and configures where rows land.
	Destination Destination `json:"destination"`
}

// Source is an object-store location: bucket plus key. The object is assumed
// to be comma-separated text with one header line, optionally quote-enclosed,
// newline-terminated.
type Source struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Destination selects the load path. Exactly one of the kind-specific blocks
// is consulted, chosen by Kind.
type Destination struct {
	// Kind is "aurora" or "sqlite".
	Kind string `json:"kind"`

	Aurora Aurora `json:"aurora"`
	SQLite SQLite `json:"sqlite"`
}

// Aurora holds the relational-path identifiers.
type Aurora struct {
	// DSN is the go-sql-driver/mysql connection string, e.g.
	// "user:pass@tcp(cluster:3306)/saaf?parseTime=true".
	DSN string `json:"dsn"`

	// Database and Table label the metrics record and select the typed
	// destination relation. The destination table is externally owned;
	// the loader only appends to it.
	Database string `json:"database"`
	Table    string `json:"table"`

	// StagingTable overrides the default staging table name.
	StagingTable string `json:"staging_table"`
}

// SQLite holds the embedded-store identifiers.
type SQLite struct {
	// Path is the database file path, e.g. "/tmp/saaf.db".
	Path string `json:"path"`

	// Table is the destination table name.
	Table string `json:"table"`
}

// Load reads and decodes a job file.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a Job from JSON. Unknown fields are rejected so typos in job
// files fail loudly instead of silently selecting defaults.
func Decode(r io.Reader) (Job, error) {
	var j Job
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, err
	}
	return j, nil
}

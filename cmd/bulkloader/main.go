package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"bulkloader/internal/bulkload"
	"bulkloader/internal/config"
	"bulkloader/internal/ingest"
	"bulkloader/internal/metrics"
	"bulkloader/internal/metrics/datadog"
	"bulkloader/internal/metrics/prompush"
	"bulkloader/internal/objstore"
	"bulkloader/internal/rules"
	"bulkloader/internal/sqlgen"
)

// defaultStagingTable is used when the job does not name one.
const defaultStagingTable = "listings_staging"

// main is the entry point for the bulkloader binary. It loads the job config,
// optionally initializes a metrics backend, and routes the run on the
// destination kind.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/jobs/sample.json", "job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the job config and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	job, err := config.Load(cfgPath)
	if err != nil {
		fatalf("load config: %v", err)
	}

	issues := config.Validate(job)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		jobName := job.RunTag
		if jobName == "" {
			jobName = "bulkload"
		}

		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
		} else {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
			metrics.SetBackend(b)
			defer flushMetrics()
		}

	case "datadog":
		addr := dogstatsdAddrFlg
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}

		b, err := datadog.NewBackend(datadog.Config{
			Addr:      addr,
			Namespace: "bulkload.",
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: addr=%v, backend=%v", addr, backendName)
			metrics.SetBackend(b)
			defer flushMetrics()
		}

	case "", "none":
		// metrics disabled; nop backend remains
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("job: run_tag=%s source=s3://%s/%s destination=%s",
			job.RunTag, job.Source.Bucket, job.Source.Key, job.Destination.Kind)
	}

	switch job.Destination.Kind {
	case config.KindAurora:
		if err := runAurora(ctx, job, *verbose); err != nil {
			log.Fatalf("%v", err)
		}
	case config.KindSQLite:
		if err := runSQLite(ctx, job); err != nil {
			log.Fatalf("%v", err)
		}
	default:
		// Validate rejects unknown kinds; this is unreachable with a
		// validated job.
		log.Fatalf("unknown destination kind %q", job.Destination.Kind)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// runAurora executes the staged, transactional relational load.
func runAurora(ctx context.Context, job config.Job, verbose bool) error {
	dst := job.Destination.Aurora

	db, err := sql.Open("mysql", dst.DSN)
	if err != nil {
		return fmt.Errorf("open aurora: %w", err)
	}
	defer db.Close()

	staging := dst.StagingTable
	if staging == "" {
		staging = defaultStagingTable
	}

	b := sqlgen.Builder{
		Staging: staging,
		Target:  dst.Table,
		Rules:   rules.Listings(),
	}

	loader := &bulkload.Loader{
		DB:       db,
		Stmts:    b.Statements(job.Source.Bucket, job.Source.Key),
		Database: dst.Database,
		Table:    dst.Table,
		RunTag:   job.RunTag,
	}

	res, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	if verbose {
		for _, row := range res.BadRows {
			log.Printf("bad row: id=%q host_id=%q price=%q", row.ID, row.NumericID, row.Currency)
		}
	}
	log.Printf("run=%s staged=%d inserted=%d bad_rows_shown=%d",
		res.RunID, res.StagingCount, res.Inserted, len(res.BadRows))
	return nil
}

// runSQLite executes the embedded-store batch ingest.
func runSQLite(ctx context.Context, job config.Job) error {
	store, err := objstore.New(job.ObjectStore)
	if err != nil {
		return err
	}

	dst := job.Destination.SQLite
	rows, err := ingest.Ingest(ctx, store, job.Source.Bucket, job.Source.Key, dst.Path, dst.Table)
	if err != nil {
		return err
	}
	log.Printf("loaded %d rows into %s (%s)", rows, dst.Table, dst.Path)
	return nil
}

func flushMetrics() {
	if err := metrics.Flush(); err != nil {
		log.Printf("metrics: flush error: %v", err)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// This file adds a lightweight validator for Job values. It performs static
// checks over a decoded Job and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
//
// A Job with error-severity issues must not open any connection: missing
// destination identifiers are fatal before a transaction exists.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that should be surfaced to users
	// but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Job.
//
// Path is a dotted path into the config (e.g. "destination.aurora.dsn").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of a Job. It does not mutate the job;
// callers decide whether warnings are fatal.
func Validate(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Source.Bucket) == "" {
		issues = append(issues, errIssue("source.bucket", "bucket must not be empty"))
	}
	if strings.TrimSpace(j.Source.Key) == "" {
		issues = append(issues, errIssue("source.key", "object key must not be empty"))
	}

	switch j.Destination.Kind {
	case KindAurora:
		a := j.Destination.Aurora
		if strings.TrimSpace(a.DSN) == "" {
			issues = append(issues, errIssue("destination.aurora.dsn", "dsn must not be empty"))
		}
		if strings.TrimSpace(a.Database) == "" {
			issues = append(issues, errIssue("destination.aurora.database", "database must not be empty"))
		}
		if strings.TrimSpace(a.Table) == "" {
			issues = append(issues, errIssue("destination.aurora.table", "table must not be empty"))
		}

	case KindSQLite:
		s := j.Destination.SQLite
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, errIssue("destination.sqlite.path", "database path must not be empty"))
		}
		if strings.TrimSpace(s.Table) == "" {
			issues = append(issues, errIssue("destination.sqlite.table", "table must not be empty"))
		}
		if strings.TrimSpace(j.ObjectStore.Endpoint) == "" {
			issues = append(issues, errIssue("object_store.endpoint",
				"the sqlite path downloads the object and needs an object-store endpoint"))
		}

	case "":
		issues = append(issues, errIssue("destination.kind", "destination kind must not be empty"))

	default:
		issues = append(issues, errIssue("destination.kind",
			fmt.Sprintf("unknown destination kind %q (want %q or %q)", j.Destination.Kind, KindAurora, KindSQLite)))
	}

	if j.RunTag == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "run_tag",
			Message:  "run_tag is empty; metrics will be labeled by the generated run id only",
		})
	}

	return issues
}

func errIssue(path, msg string) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: msg}
}

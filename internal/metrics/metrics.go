// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the bulk-load pipeline.
//
// It exposes a narrow Backend interface (counters and timing observations)
// behind a global, pluggable backend that defaults to a no-op implementation,
// so metrics calls are always safe even when no real backend is configured.
// Concrete systems (Prometheus Pushgateway, DogStatsD) live in subpackages
// and are installed at startup via SetBackend; the rest of the codebase
// depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordPhase records one timed phase of a load: latency plus a
// success/failure counter, labeled by operation and phase.
func RecordPhase(op, phase string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"operation": op,
		"phase":     phase,
		"status":    status,
	}

	backend.IncCounter("bulkload_phase_total", 1, lbls)
	backend.ObserveHistogram("bulkload_phase_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given operation and kind.
//
// Typical kinds mirror the load result fields:
//   - "staged"
//   - "inserted"
//   - "bad_rows_shown"
//   - "loaded"
func RecordRows(op, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("bulkload_rows_total", float64(delta), Labels{
		"operation": op,
		"kind":      kind,
	})
}

// RecordOutcome counts one finished invocation with its terminal outcome
// ("committed", "rolled_back", "loaded", "failed").
func RecordOutcome(op, outcome string) {
	backend.IncCounter("bulkload_runs_total", 1, Labels{
		"operation": op,
		"outcome":   outcome,
	})
}

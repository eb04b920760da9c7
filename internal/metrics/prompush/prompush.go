// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Bulk loads are short-lived batch jobs, so a scrape endpoint is the wrong
// shape; this backend collects into a private registry and pushes the result
// to a Pushgateway on Flush. It maps the pipeline's common labels (operation,
// phase, status, kind, outcome) onto Prometheus label sets and keeps all
// Prometheus-specific dependencies out of the rest of the project.
package prompush

import (
	"fmt"

	"bulkloader/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	phaseCounter  *prometheus.CounterVec // "bulkload_phase_total"
	phaseDuration *prometheus.SummaryVec // "bulkload_phase_duration_seconds"
	rowCounter    *prometheus.CounterVec // "bulkload_rows_total"
	runCounter    *prometheus.CounterVec // "bulkload_runs_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName is the Pushgateway "job" grouping key; gatewayURL the base URL of
// the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "bulkload"
	}

	reg := prometheus.NewRegistry()

	phaseCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkload_phase_total",
			Help: "Total load-phase executions, partitioned by operation, phase, and status.",
		},
		[]string{"operation", "phase", "status"},
	)
	phaseDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "bulkload_phase_duration_seconds",
			Help:       "Duration of load phases in seconds, partitioned by operation, phase, and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"operation", "phase", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkload_rows_total",
			Help: "Row-level counts per operation and kind (staged, inserted, loaded, bad_rows_shown).",
		},
		[]string{"operation", "kind"},
	)
	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulkload_runs_total",
			Help: "Finished invocations per operation and terminal outcome.",
		},
		[]string{"operation", "outcome"},
	)

	for name, c := range map[string]prometheus.Collector{
		"phase counter": phaseCounter,
		"phase summary": phaseDuration,
		"row counter":   rowCounter,
		"run counter":   runCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		phaseCounter:  phaseCounter,
		phaseDuration: phaseDuration,
		rowCounter:    rowCounter,
		runCounter:    runCounter,
	}, nil
}

// IncCounter implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "bulkload_phase_total":
		if b.phaseCounter == nil {
			return
		}
		b.phaseCounter.WithLabelValues(labels["operation"], labels["phase"], labels["status"]).Add(delta)

	case "bulkload_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["operation"], labels["kind"]).Add(delta)

	case "bulkload_runs_total":
		if b.runCounter == nil {
			return
		}
		b.runCounter.WithLabelValues(labels["operation"], labels["outcome"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

// ObserveHistogram implements metrics.Backend for the phase-duration summary.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "bulkload_phase_duration_seconds" || b.phaseDuration == nil {
		return
	}
	b.phaseDuration.WithLabelValues(labels["operation"], labels["phase"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}

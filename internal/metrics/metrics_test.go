package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// captureBackend records calls for assertions.
type captureBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	labels   map[string]Labels
	observed map[string][]float64
	flushed  int
}

func newCapture() *captureBackend {
	return &captureBackend{
		counters: map[string]float64{},
		labels:   map[string]Labels{},
		observed: map[string][]float64{},
	}
}

func (c *captureBackend) IncCounter(name string, delta float64, labels Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
	c.labels[name] = labels
}

func (c *captureBackend) ObserveHistogram(name string, value float64, labels Labels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observed[name] = append(c.observed[name], value)
	c.labels[name] = labels
}

func (c *captureBackend) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed++
	return nil
}

// withBackend installs b for the duration of the test. These tests mutate the
// package-global backend, so they must not run in parallel.
func withBackend(t *testing.T, b Backend) {
	t.Helper()
	prev := backend
	SetBackend(b)
	t.Cleanup(func() { backend = prev })
}

func TestRecordPhase(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	RecordPhase("aurora_bulk_load", "promote", nil, 1500*time.Millisecond)

	if got := c.counters["bulkload_phase_total"]; got != 1 {
		t.Errorf("phase counter = %v, want 1", got)
	}
	lbls := c.labels["bulkload_phase_total"]
	if lbls["status"] != "success" || lbls["phase"] != "promote" || lbls["operation"] != "aurora_bulk_load" {
		t.Errorf("unexpected labels: %v", lbls)
	}
	if obs := c.observed["bulkload_phase_duration_seconds"]; len(obs) != 1 || obs[0] != 1.5 {
		t.Errorf("duration observations = %v", obs)
	}

	RecordPhase("aurora_bulk_load", "load", errors.New("boom"), time.Second)
	if c.labels["bulkload_phase_total"]["status"] != "failure" {
		t.Errorf("error call did not label failure: %v", c.labels["bulkload_phase_total"])
	}
}

func TestRecordRowsIgnoresNonPositive(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	RecordRows("sqlite_bulk_load", "loaded", 0)
	RecordRows("sqlite_bulk_load", "loaded", -3)
	if got := c.counters["bulkload_rows_total"]; got != 0 {
		t.Errorf("rows counter = %v, want 0", got)
	}

	RecordRows("sqlite_bulk_load", "loaded", 2500)
	if got := c.counters["bulkload_rows_total"]; got != 2500 {
		t.Errorf("rows counter = %v, want 2500", got)
	}
}

func TestSetBackendNilKeepsExisting(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	SetBackend(nil)
	RecordOutcome("aurora_bulk_load", "committed")
	if got := c.counters["bulkload_runs_total"]; got != 1 {
		t.Errorf("runs counter = %v, want 1 (nil SetBackend replaced the backend?)", got)
	}
}

func TestFlushDelegates(t *testing.T) {
	c := newCapture()
	withBackend(t, c)

	if err := Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if c.flushed != 1 {
		t.Errorf("flushed = %d, want 1", c.flushed)
	}
}

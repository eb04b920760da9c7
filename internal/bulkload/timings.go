package bulkload

import "time"

// PhaseTiming records how long one phase took.
type PhaseTiming struct {
	Phase   string
	Elapsed time.Duration
}

// Timings is the ordered per-phase timing accumulator threaded through a run
// and returned as part of the result. Order is execution order; a phase that
// never ran is simply absent.
type Timings []PhaseTiming

// Add appends one phase measurement.
func (t *Timings) Add(phase string, d time.Duration) {
	*t = append(*t, PhaseTiming{Phase: phase, Elapsed: d})
}

// Get returns the elapsed time for the named phase, or zero when absent.
func (t Timings) Get(phase string) time.Duration {
	for _, pt := range t {
		if pt.Phase == phase {
			return pt.Elapsed
		}
	}
	return 0
}

// Total sums all recorded phases.
func (t Timings) Total() time.Duration {
	var sum time.Duration
	for _, pt := range t {
		sum += pt.Elapsed
	}
	return sum
}

// Milliseconds renders the accumulator as a phase→ms map for the metrics
// record.
func (t Timings) Milliseconds() map[string]int64 {
	out := make(map[string]int64, len(t))
	for _, pt := range t {
		out[pt.Phase] = pt.Elapsed.Milliseconds()
	}
	return out
}

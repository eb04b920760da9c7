package bulkload

import "fmt"

// PhaseError wraps a statement failure inside the load, recording which phase
// failed. The original cause is preserved for errors.Is/As; a PhaseError at
// or after the begin phase means a rollback was attempted.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("bulkload: phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

package analysis

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStale signals a transition guard rejected the update because
	// the request is no longer in the expected status.
	ErrStale = errors.New("request status changed concurrently")
)

// TimeoutReasonPrefix marks sweep-induced failures so they stay
// distinguishable from engine faults.
const TimeoutReasonPrefix = "timeout:"

// IsTimeoutFailure reports whether a failure reason came from the
// maintenance sweep.
func IsTimeoutFailure(reason string) bool {
	return strings.HasPrefix(reason, TimeoutReasonPrefix)
}

// EngineError wraps a fault raised inside the analysis engine. The
// worker converts it into a failed request; it never reaches a client.
type EngineError struct {
	PhotoID string
	Err     error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("analysis engine: photo %s: %v", e.PhotoID, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ABOUTME: Closed error taxonomy for AI backend failures
// ABOUTME: Classification happens once where the raw failure is observed; callers switch on Kind

package backend

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class of a backend dispatch.
type Kind int

const (
	// KindAPI is a provider-reported error from the HTTP completion endpoint.
	KindAPI Kind = iota

	// KindTimeout means the backend call exceeded its wall-clock budget.
	KindTimeout

	// KindSpawn means the harness process could not be started at all.
	KindSpawn

	// KindAuth is an authentication failure reported by the harness.
	KindAuth

	// KindRateLimit is a rate-limit failure reported by the harness.
	KindRateLimit

	// KindCommandFormat means the harness rejected its own command line.
	KindCommandFormat

	// KindProcess is any other non-zero harness exit.
	KindProcess
)

// String returns a stable name for the kind, used in logs.
func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindTimeout:
		return "timeout"
	case KindSpawn:
		return "spawn"
	case KindAuth:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindCommandFormat:
		return "command_format"
	case KindProcess:
		return "process"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced by Dispatch. The Kind is assigned
// at the boundary where the raw backend failure is first observed so that
// downstream code never re-parses error text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return fmt.Sprintf("backend %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error returned by Dispatch.
// The second return is false for errors that did not originate here.
func KindOf(err error) (Kind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

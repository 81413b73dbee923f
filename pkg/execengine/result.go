package execengine

import "fmt"

// ExecutionResult is what every primitive dispatch ultimately produces.
type ExecutionResult struct {
	Success    bool
	DurationMS int64
	Stdout     string
	Stderr     string
	StatusCode int
	Body       []byte
	Events     []StreamEvent
}

// ExecutionErrorKind classifies why a dispatch failed before it produced
// a result at all (as opposed to a non-2xx/non-zero result, which is
// still a successfully-obtained ExecutionResult with Success=false).
type ExecutionErrorKind string

const (
	ErrAuthRequired   ExecutionErrorKind = "auth_required"
	ErrUnresolvedPath ExecutionErrorKind = "unresolved_placeholder"
	ErrConnection     ExecutionErrorKind = "connection_error"
	ErrTimeout        ExecutionErrorKind = "timeout"
)

// ExecutionError reports a dispatch-time failure.
type ExecutionError struct {
	Kind    ExecutionErrorKind
	Service string
	Scope   string
	Err     error
}

func (e *ExecutionError) Error() string {
	switch e.Kind {
	case ErrAuthRequired:
		return fmt.Sprintf("execengine: auth required for service %q scope %q", e.Service, e.Scope)
	default:
		if e.Err != nil {
			return fmt.Sprintf("execengine: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("execengine: %s", e.Kind)
	}
}

func (e *ExecutionError) Unwrap() error { return e.Err }

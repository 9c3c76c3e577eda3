// Package errs provides the shared error taxonomy for the orchestration
// core: a single component/operation/message/wrapped-error shape used by
// every subsystem, plus the sentinel errors callers match on with errors.Is.
package errs

import "fmt"

// Kind classifies an error into one of the abstract categories the engine
// and router reason about when deciding retry vs. terminal failure.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNoEligibleAgent Kind = "no_eligible_agent"
	KindExecutorFailure Kind = "executor_failure"
	KindExecutorTimeout Kind = "executor_timeout"
	KindDeadlock        Kind = "deadlock"
	KindCheckpointIO    Kind = "checkpoint_io"
	KindMemoryIO        Kind = "memory_io"
	KindCompression     Kind = "compression_overflow"
)

// Error is the shared error shape: component/operation/message/wrapped-err.
type Error struct {
	Component string
	Operation string
	Kind      Kind
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, errs.ErrValidation) to match wrapped instances that
// carry the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a new component error.
func New(component, operation string, kind Kind, message string, err error) *Error {
	return &Error{Component: component, Operation: operation, Kind: kind, Message: message, Err: err}
}

// Sentinels compared purely by Kind via the Is method above.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNoEligibleAgent = &Error{Kind: KindNoEligibleAgent}
	ErrExecutorFailure = &Error{Kind: KindExecutorFailure}
	ErrExecutorTimeout = &Error{Kind: KindExecutorTimeout}
	ErrDeadlock        = &Error{Kind: KindDeadlock}
	ErrCheckpointIO    = &Error{Kind: KindCheckpointIO}
	ErrMemoryIO        = &Error{Kind: KindMemoryIO}
	ErrCompression     = &Error{Kind: KindCompression}
)

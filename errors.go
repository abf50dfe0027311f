package pipeline

import (
	"errors"
	"fmt"
)

var (
	// Store errors.
	ErrNoStore = errors.New("pipeline: no store configured")

	// Registration errors.
	ErrInvalidRegistration = errors.New("pipeline: invalid step registration")
	ErrStepNotFound        = errors.New("pipeline: step registration not found")

	// Async operation errors.
	ErrOperationNotFound  = errors.New("pipeline: async operation not found")
	ErrOperationCompleted = errors.New("pipeline: async operation already completed")
	ErrOperationClaimed   = errors.New("pipeline: async operation already executing")
)

// RecursionLimitError is returned by ExecuteStage when the invocation depth
// exceeds the configured maximum. No handlers run for the triggering call;
// unrelated pipeline invocations are unaffected.
type RecursionLimitError struct {
	// Depth is the depth the rejected invocation arrived with.
	Depth int
	// Limit is the configured maximum depth.
	Limit int
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("pipeline: invocation depth %d exceeds max depth %d", e.Depth, e.Limit)
}

// ExecutionError wraps a failure raised by a synchronous step handler.
// It aborts the remaining registrations of the stage call and propagates
// to the caller, which must treat it as an operation failure.
//
// Failures of asynchronous handlers are never wrapped in ExecutionError;
// they are recorded on the async.Operation instead.
type ExecutionError struct {
	// StepName is the display name of the failed registration.
	StepName string
	// Message is the platform message being processed (Create, Update, ...).
	Message string
	// Stage is the pipeline stage the step ran in.
	Stage Stage
	// Err is the original failure raised by the handler.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("pipeline: step %q failed in %s stage of %s: %v", e.StepName, e.Stage, e.Message, e.Err)
}

// Unwrap returns the original handler failure.
func (e *ExecutionError) Unwrap() error { return e.Err }

package async

import (
	"context"
	"time"

	"github.com/rnwood/Fake4Dataverse-sub003/id"
)

// State represents the lifecycle state of an async operation.
// The machine has exactly one transition: Ready → Completed. Completed
// is terminal; a completed operation is never mutated again.
type State string

const (
	// StateReady means the operation is enqueued and waiting to be executed.
	StateReady State = "ready"
	// StateCompleted means the operation has been executed. Whether it
	// succeeded is refined by Status.
	StateCompleted State = "completed"
)

// Status refines the outcome of an operation's lifecycle.
type Status string

const (
	// StatusWaiting means the operation has not been executed yet.
	StatusWaiting Status = "waiting_for_resources"
	// StatusSucceeded means the captured invocation returned no error.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the captured invocation returned an error; the
	// error is recorded on the operation, never raised to the caller.
	StatusFailed Status = "failed"
)

// TypePluginExecution is the operation kind for deferred step invocations.
const TypePluginExecution = "plugin_execution"

// Runner is the captured closure an operation executes when its turn
// comes: the registration plus the invocation assembled at dispatch time.
type Runner func(ctx context.Context) error

// Operation is one deferred handler invocation tracked as a stateful job.
type Operation struct {
	ID id.AsyncID `json:"id"`

	// Name is a display name, typically the registration's display name.
	Name string `json:"name"`

	// OperationType is the operation kind, e.g. TypePluginExecution.
	OperationType string `json:"operation_type"`

	State  State  `json:"state"`
	Status Status `json:"status"`

	// Seq is the enqueue sequence number, assigned by the store.
	// ExecuteAll drains in ascending Seq order.
	Seq int `json:"seq"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ErrorMessage holds the failure recorded when Status is StatusFailed.
	ErrorMessage string `json:"error_message,omitempty"`

	run Runner
}

// NewOperation creates a Ready operation capturing the given runner.
func NewOperation(name, operationType string, run Runner) *Operation {
	return &Operation{
		ID:            id.NewAsyncID(),
		Name:          name,
		OperationType: operationType,
		State:         StateReady,
		Status:        StatusWaiting,
		CreatedAt:     time.Now().UTC(),
		run:           run,
	}
}

// IsCompleted reports whether the operation reached the terminal state.
func (o *Operation) IsCompleted() bool { return o.State == StateCompleted }

// IsPending reports whether the operation is still waiting to execute.
func (o *Operation) IsPending() bool { return o.State == StateReady }

// IsSucceeded reports whether the operation completed without error.
func (o *Operation) IsSucceeded() bool { return o.Status == StatusSucceeded }

// IsFailed reports whether the operation completed with a recorded error.
func (o *Operation) IsFailed() bool { return o.Status == StatusFailed }

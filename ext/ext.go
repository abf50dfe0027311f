package ext

import (
	"context"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/async"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Stage lifecycle hooks
// ──────────────────────────────────────────────────

// StageStarted is called when a stage dispatch begins, after the depth
// guard has passed.
type StageStarted interface {
	OnStageStarted(ctx context.Context, req *pipeline.StageRequest) error
}

// StageCompleted is called after every matched registration of a stage
// call has been dispatched without a synchronous failure.
type StageCompleted interface {
	OnStageCompleted(ctx context.Context, req *pipeline.StageRequest, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Step lifecycle hooks
// ──────────────────────────────────────────────────

// StepStarted is called just before a step handler is invoked.
type StepStarted interface {
	OnStepStarted(ctx context.Context, inv *pipeline.Invocation) error
}

// StepCompleted is called after a step handler returns successfully.
type StepCompleted interface {
	OnStepCompleted(ctx context.Context, inv *pipeline.Invocation, elapsed time.Duration) error
}

// StepFailed is called when a step handler fails, regardless of mode.
type StepFailed interface {
	OnStepFailed(ctx context.Context, inv *pipeline.Invocation, err error) error
}

// StepSkipped is called when a registration matched its trigger but was
// excluded by attribute filtering.
type StepSkipped interface {
	OnStepSkipped(ctx context.Context, reg *step.Registration, modified []string) error
}

// ──────────────────────────────────────────────────
// Async operation hooks
// ──────────────────────────────────────────────────

// AsyncEnqueued is called after an operation is accepted by the queue.
type AsyncEnqueued interface {
	OnAsyncEnqueued(ctx context.Context, op *async.Operation) error
}

// AsyncCompleted is called after an operation executes successfully.
type AsyncCompleted interface {
	OnAsyncCompleted(ctx context.Context, op *async.Operation, elapsed time.Duration) error
}

// AsyncFailed is called when an operation's captured invocation fails.
type AsyncFailed interface {
	OnAsyncFailed(ctx context.Context, op *async.Operation, err error) error
}

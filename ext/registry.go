package ext

import (
	"context"
	"log/slog"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/async"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type stageStartedEntry struct {
	name string
	hook StageStarted
}

type stageCompletedEntry struct {
	name string
	hook StageCompleted
}

type stepStartedEntry struct {
	name string
	hook StepStarted
}

type stepCompletedEntry struct {
	name string
	hook StepCompleted
}

type stepFailedEntry struct {
	name string
	hook StepFailed
}

type stepSkippedEntry struct {
	name string
	hook StepSkipped
}

type asyncEnqueuedEntry struct {
	name string
	hook AsyncEnqueued
}

type asyncCompletedEntry struct {
	name string
	hook AsyncCompleted
}

type asyncFailedEntry struct {
	name string
	hook AsyncFailed
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	stageStarted   []stageStartedEntry
	stageCompleted []stageCompletedEntry
	stepStarted    []stepStartedEntry
	stepCompleted  []stepCompletedEntry
	stepFailed     []stepFailedEntry
	stepSkipped    []stepSkippedEntry
	asyncEnqueued  []asyncEnqueuedEntry
	asyncCompleted []asyncCompletedEntry
	asyncFailed    []asyncFailedEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(StageStarted); ok {
		r.stageStarted = append(r.stageStarted, stageStartedEntry{name, h})
	}
	if h, ok := e.(StageCompleted); ok {
		r.stageCompleted = append(r.stageCompleted, stageCompletedEntry{name, h})
	}
	if h, ok := e.(StepStarted); ok {
		r.stepStarted = append(r.stepStarted, stepStartedEntry{name, h})
	}
	if h, ok := e.(StepCompleted); ok {
		r.stepCompleted = append(r.stepCompleted, stepCompletedEntry{name, h})
	}
	if h, ok := e.(StepFailed); ok {
		r.stepFailed = append(r.stepFailed, stepFailedEntry{name, h})
	}
	if h, ok := e.(StepSkipped); ok {
		r.stepSkipped = append(r.stepSkipped, stepSkippedEntry{name, h})
	}
	if h, ok := e.(AsyncEnqueued); ok {
		r.asyncEnqueued = append(r.asyncEnqueued, asyncEnqueuedEntry{name, h})
	}
	if h, ok := e.(AsyncCompleted); ok {
		r.asyncCompleted = append(r.asyncCompleted, asyncCompletedEntry{name, h})
	}
	if h, ok := e.(AsyncFailed); ok {
		r.asyncFailed = append(r.asyncFailed, asyncFailedEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Stage event emitters
// ──────────────────────────────────────────────────

// EmitStageStarted notifies all extensions that implement StageStarted.
func (r *Registry) EmitStageStarted(ctx context.Context, req *pipeline.StageRequest) {
	for _, e := range r.stageStarted {
		if err := e.hook.OnStageStarted(ctx, req); err != nil {
			r.logHookError("OnStageStarted", e.name, err)
		}
	}
}

// EmitStageCompleted notifies all extensions that implement StageCompleted.
func (r *Registry) EmitStageCompleted(ctx context.Context, req *pipeline.StageRequest, elapsed time.Duration) {
	for _, e := range r.stageCompleted {
		if err := e.hook.OnStageCompleted(ctx, req, elapsed); err != nil {
			r.logHookError("OnStageCompleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Step event emitters
// ──────────────────────────────────────────────────

// EmitStepStarted notifies all extensions that implement StepStarted.
func (r *Registry) EmitStepStarted(ctx context.Context, inv *pipeline.Invocation) {
	for _, e := range r.stepStarted {
		if err := e.hook.OnStepStarted(ctx, inv); err != nil {
			r.logHookError("OnStepStarted", e.name, err)
		}
	}
}

// EmitStepCompleted notifies all extensions that implement StepCompleted.
func (r *Registry) EmitStepCompleted(ctx context.Context, inv *pipeline.Invocation, elapsed time.Duration) {
	for _, e := range r.stepCompleted {
		if err := e.hook.OnStepCompleted(ctx, inv, elapsed); err != nil {
			r.logHookError("OnStepCompleted", e.name, err)
		}
	}
}

// EmitStepFailed notifies all extensions that implement StepFailed.
func (r *Registry) EmitStepFailed(ctx context.Context, inv *pipeline.Invocation, stepErr error) {
	for _, e := range r.stepFailed {
		if err := e.hook.OnStepFailed(ctx, inv, stepErr); err != nil {
			r.logHookError("OnStepFailed", e.name, err)
		}
	}
}

// EmitStepSkipped notifies all extensions that implement StepSkipped.
func (r *Registry) EmitStepSkipped(ctx context.Context, reg *step.Registration, modified []string) {
	for _, e := range r.stepSkipped {
		if err := e.hook.OnStepSkipped(ctx, reg, modified); err != nil {
			r.logHookError("OnStepSkipped", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Async event emitters
// ──────────────────────────────────────────────────

// EmitAsyncEnqueued notifies all extensions that implement AsyncEnqueued.
func (r *Registry) EmitAsyncEnqueued(ctx context.Context, op *async.Operation) {
	for _, e := range r.asyncEnqueued {
		if err := e.hook.OnAsyncEnqueued(ctx, op); err != nil {
			r.logHookError("OnAsyncEnqueued", e.name, err)
		}
	}
}

// EmitAsyncCompleted notifies all extensions that implement AsyncCompleted.
func (r *Registry) EmitAsyncCompleted(ctx context.Context, op *async.Operation, elapsed time.Duration) {
	for _, e := range r.asyncCompleted {
		if err := e.hook.OnAsyncCompleted(ctx, op, elapsed); err != nil {
			r.logHookError("OnAsyncCompleted", e.name, err)
		}
	}
}

// EmitAsyncFailed notifies all extensions that implement AsyncFailed.
func (r *Registry) EmitAsyncFailed(ctx context.Context, op *async.Operation, opErr error) {
	for _, e := range r.asyncFailed {
		if err := e.hook.OnAsyncFailed(ctx, op, opErr); err != nil {
			r.logHookError("OnAsyncFailed", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Hook errors never propagate: one
// misbehaving extension must not break dispatch or other extensions.
func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}

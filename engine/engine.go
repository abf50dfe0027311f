// Package engine wires all pipeline subsystems together. It creates the
// registration store, extension registry, middleware chain, handler host,
// and async job queue, and provides the ExecuteStage dispatch entry point
// the record storage engine calls around every core operation.
//
// This package sits above all subsystem packages and below the
// application layer.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/async"
	"github.com/rnwood/Fake4Dataverse-sub003/ext"
	"github.com/rnwood/Fake4Dataverse-sub003/host"
	"github.com/rnwood/Fake4Dataverse-sub003/id"
	"github.com/rnwood/Fake4Dataverse-sub003/image"
	mw "github.com/rnwood/Fake4Dataverse-sub003/middleware"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
	"github.com/rnwood/Fake4Dataverse-sub003/store"
	"github.com/rnwood/Fake4Dataverse-sub003/store/memory"
)

// scopeName is the instrumentation scope for engine-level telemetry.
const scopeName = "github.com/rnwood/Fake4Dataverse-sub003/engine"

// extAsyncEmitter adapts *ext.Registry to satisfy async.Emitter.
// This breaks the import cycle: async defines the interface, ext.Registry
// provides the implementation, and the engine layer plugs them together.
type extAsyncEmitter struct {
	r *ext.Registry
}

func (a *extAsyncEmitter) EmitAsyncEnqueued(ctx context.Context, op *async.Operation) {
	a.r.EmitAsyncEnqueued(ctx, op)
}

func (a *extAsyncEmitter) EmitAsyncCompleted(ctx context.Context, op *async.Operation, elapsed time.Duration) {
	a.r.EmitAsyncCompleted(ctx, op, elapsed)
}

func (a *extAsyncEmitter) EmitAsyncFailed(ctx context.Context, op *async.Operation, err error) {
	a.r.EmitAsyncFailed(ctx, op, err)
}

// Engine is the plugin execution pipeline. One Engine is embedded in each
// simulated organization; independent instances share nothing.
type Engine struct {
	store      store.Store
	logger     *slog.Logger
	extensions *ext.Registry
	host       *host.Host
	queue      *async.Queue

	mu       sync.RWMutex
	maxDepth int
}

// options collects configuration applied by New.
type options struct {
	store       store.Store
	logger      *slog.Logger
	config      pipeline.Config
	extensions  []ext.Extension
	mws         []mw.Middleware
	throttle    *async.Throttle
	tracer      trace.TracerProvider
	meter       metric.MeterProvider
	noDefaultMW bool
}

// Option configures an Engine.
type Option func(*options)

// WithStore sets the backing store. Defaults to a fresh memory store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithLogger sets the structured logger for the engine and everything it
// wires together.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConfig replaces the whole pipeline configuration.
func WithConfig(c pipeline.Config) Option {
	return func(o *options) { o.config = c }
}

// WithMaxDepth sets the recursion ceiling for nested stage calls.
func WithMaxDepth(d int) Option {
	return func(o *options) { o.config.MaxDepth = d }
}

// WithAutoExecute makes every async enqueue run its operation to
// completion before the enqueue returns.
func WithAutoExecute(on bool) Option {
	return func(o *options) { o.config.AutoExecute = on }
}

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, e) }
}

// WithMiddleware adds middleware around every handler invocation.
// Middleware runs inside the default logging middleware, outermost first
// in the order given.
func WithMiddleware(m mw.Middleware) Option {
	return func(o *options) { o.mws = append(o.mws, m) }
}

// WithThrottle paces queue drains with a token bucket.
func WithThrottle(t *async.Throttle) Option {
	return func(o *options) { o.throttle = t }
}

// WithTracerProvider enables tracing middleware using the given provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithMeterProvider enables metrics middleware using the given provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// WithoutDefaultMiddleware drops the built-in recover and logging
// middleware, leaving only middleware added via WithMiddleware.
func WithoutDefaultMiddleware() Option {
	return func(o *options) { o.noDefaultMW = true }
}

// New creates an engine. With no options it is fully self-contained: an
// in-memory store, the default logger, and the default configuration.
func New(opts ...Option) *Engine {
	o := &options{
		config: pipeline.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = memory.New()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.config.MaxDepth <= 0 {
		o.config.MaxDepth = pipeline.DefaultMaxDepth
	}

	registry := ext.NewRegistry(o.logger)
	for _, e := range o.extensions {
		registry.Register(e)
	}

	var mws []mw.Middleware
	if !o.noDefaultMW {
		mws = append(mws, mw.Recover(o.logger))
	}
	if o.tracer != nil {
		mws = append(mws, mw.TracingWithTracer(o.tracer.Tracer(scopeName)))
	}
	if o.meter != nil {
		mws = append(mws, mw.MetricsWithMeter(o.meter.Meter(scopeName)))
	}
	if !o.noDefaultMW {
		mws = append(mws, mw.Logging(o.logger))
	}
	mws = append(mws, o.mws...)

	queueOpts := []async.QueueOption{
		async.WithLogger(o.logger),
		async.WithEmitter(&extAsyncEmitter{r: registry}),
		async.WithAutoExecute(o.config.AutoExecute),
	}
	if o.throttle != nil {
		queueOpts = append(queueOpts, async.WithThrottle(o.throttle))
	}

	return &Engine{
		store:      o.store,
		logger:     o.logger,
		extensions: registry,
		host:       host.New(registry, o.logger, mws...),
		queue:      async.NewQueue(o.store, queueOpts...),
		maxDepth:   o.config.MaxDepth,
	}
}

// ──────────────────────────────────────────────────
// Registration management
// ──────────────────────────────────────────────────

// RegisterStep validates and stores one registration. A nil ID gets a
// fresh one; an empty Name gets the synthesized display name so logs and
// async operations stay identifiable.
func (e *Engine) RegisterStep(reg *step.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if reg.ID.IsNil() {
		reg.ID = id.NewStepID()
	}
	if reg.Name == "" {
		reg.Name = reg.DisplayName()
	}
	if err := e.store.RegisterStep(reg); err != nil {
		return err
	}
	e.logger.Debug("step registered",
		slog.String("step_id", reg.ID.String()),
		slog.String("name", reg.Name),
		slog.String("message", reg.Message),
		slog.String("entity", reg.EntityName),
		slog.String("stage", string(reg.Stage)),
	)
	return nil
}

// RegisterSteps registers each registration in order, stopping at the
// first failure.
func (e *Engine) RegisterSteps(regs ...*step.Registration) error {
	for _, reg := range regs {
		if err := e.RegisterStep(reg); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSources converts declarative registration sources into
// registrations and registers them. With no converters, sources must
// implement step.Describes.
func (e *Engine) RegisterSources(sources []any, converters ...step.Converter) error {
	regs, err := step.Convert(sources, converters...)
	if err != nil {
		return err
	}
	return e.RegisterSteps(regs...)
}

// UnregisterStep removes a previously registered registration.
func (e *Engine) UnregisterStep(reg *step.Registration) error {
	return e.store.UnregisterStep(reg)
}

// ClearSteps removes every registration and returns the removed count.
func (e *Engine) ClearSteps() int {
	return e.store.ClearSteps()
}

// Steps returns the registrations that would trigger for the given
// message, entity, and stage, in evaluation order.
func (e *Engine) Steps(message, entity string, stage pipeline.Stage) []*step.Registration {
	return e.store.QuerySteps(message, entity, stage)
}

// CountSteps returns the total number of registrations held.
func (e *Engine) CountSteps() int {
	return e.store.CountSteps()
}

// ──────────────────────────────────────────────────
// Dispatch
// ──────────────────────────────────────────────────

// ExecuteStage dispatches one (message, stage) boundary of a core record
// operation through the registered steps.
//
// Matched registrations run in ascending rank order, ties in registration
// order. Synchronous steps run inline; the first failure aborts the
// remaining registrations and returns an ExecutionError. Asynchronous
// steps are captured into queue operations and never fail the stage call.
//
// A request whose depth exceeds the configured maximum fails with
// RecursionLimitError before any handler runs.
func (e *Engine) ExecuteStage(ctx context.Context, req *pipeline.StageRequest) error {
	limit := e.MaxDepth()
	if req.Depth > limit {
		e.logger.Warn("stage call rejected: depth limit",
			slog.String("message", req.Message),
			slog.String("entity", req.EntityName),
			slog.Int("depth", req.Depth),
			slog.Int("limit", limit),
		)
		return &pipeline.RecursionLimitError{Depth: req.Depth, Limit: limit}
	}

	start := time.Now()
	e.extensions.EmitStageStarted(ctx, req)

	for _, reg := range e.store.QuerySteps(req.Message, req.EntityName, req.Stage) {
		if !reg.AppliesTo(req.Message, req.ModifiedAttributes) {
			e.extensions.EmitStepSkipped(ctx, reg, req.ModifiedAttributes)
			e.logger.Debug("step skipped by attribute filter",
				slog.String("step", reg.DisplayName()),
				slog.String("entity", req.EntityName),
			)
			continue
		}

		inv := e.buildInvocation(reg, req)

		if reg.Mode == pipeline.ModeAsynchronous {
			if err := e.enqueueAsync(ctx, reg, inv); err != nil {
				return err
			}
			continue
		}

		if out := e.host.Invoke(ctx, reg, inv); !out.Succeeded() {
			return &pipeline.ExecutionError{
				StepName: inv.StepName,
				Message:  req.Message,
				Stage:    req.Stage,
				Err:      out.Err,
			}
		}
	}

	e.extensions.EmitStageCompleted(ctx, req, time.Since(start))
	return nil
}

// buildInvocation assembles the per-call payload for one registration.
func (e *Engine) buildInvocation(reg *step.Registration, req *pipeline.StageRequest) *pipeline.Invocation {
	pre, post := image.Build(reg.Images, req.PreSnapshot, req.PostSnapshot, req.Message)

	mode := reg.Mode
	if mode == "" {
		mode = pipeline.ModeSynchronous
	}

	return &pipeline.Invocation{
		StepName:   reg.DisplayName(),
		Message:    req.Message,
		EntityName: req.EntityName,
		Stage:      req.Stage,
		Mode:       mode,
		Depth:      req.Depth,
		Target:     req.Target,
		PreImages:  pre,
		PostImages: post,
		Config:     reg.Config,
		CallerID:   req.CallerID,
	}
}

// enqueueAsync captures the registration and assembled invocation into a
// queue operation. The handler is constructed when the operation runs,
// not at enqueue time.
func (e *Engine) enqueueAsync(ctx context.Context, reg *step.Registration, inv *pipeline.Invocation) error {
	op := async.NewOperation(reg.DisplayName(), async.TypePluginExecution, func(runCtx context.Context) error {
		return e.host.Invoke(runCtx, reg, inv).Err
	})
	return e.queue.Enqueue(ctx, op)
}

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Queue returns the async job queue for inspection, draining, and waiting.
func (e *Engine) Queue() *async.Queue { return e.queue }

// Store returns the backing store.
func (e *Engine) Store() store.Store { return e.store }

// Extensions returns all registered extensions.
func (e *Engine) Extensions() []ext.Extension { return e.extensions.Extensions() }

// MaxDepth returns the current recursion ceiling.
func (e *Engine) MaxDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxDepth
}

// SetMaxDepth changes the recursion ceiling. Values below one are
// ignored.
func (e *Engine) SetMaxDepth(d int) {
	if d < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maxDepth = d
}

// Reset clears all registrations and async operations, returning the
// engine to its initial empty state.
func (e *Engine) Reset() {
	e.store.Reset()
}

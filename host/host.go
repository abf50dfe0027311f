// Package host runs step handlers in isolation. Each invocation gets a
// freshly constructed handler instance, a recovered panic surfaces as an
// error, and lifecycle events are emitted around the call.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
	"github.com/rnwood/Fake4Dataverse-sub003/ext"
	"github.com/rnwood/Fake4Dataverse-sub003/middleware"
	"github.com/rnwood/Fake4Dataverse-sub003/step"
)

// Outcome is the result of one handler invocation.
type Outcome struct {
	Err     error
	Elapsed time.Duration
}

// Succeeded reports whether the handler returned without error.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Host invokes step handlers through the configured middleware chain.
type Host struct {
	extensions *ext.Registry
	mw         middleware.Middleware
	logger     *slog.Logger
}

// New creates a handler host. Middlewares wrap the handler in order, so
// the first middleware is the outermost.
func New(extensions *ext.Registry, logger *slog.Logger, mws ...middleware.Middleware) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		extensions: extensions,
		mw:         middleware.Chain(mws...),
		logger:     logger,
	}
}

// Invoke constructs a fresh handler from the registration's factory and
// runs it against the invocation. Handler state never leaks between
// invocations. A panic in the handler is recovered and reported through
// the outcome like any other failure.
func (h *Host) Invoke(ctx context.Context, reg *step.Registration, inv *pipeline.Invocation) Outcome {
	start := time.Now()

	if h.extensions != nil {
		h.extensions.EmitStepStarted(ctx, inv)
	}

	err := h.mw(ctx, inv, func(ctx context.Context) error {
		return h.run(ctx, reg, inv)
	})

	out := Outcome{Err: err, Elapsed: time.Since(start)}
	if h.extensions != nil {
		if err != nil {
			h.extensions.EmitStepFailed(ctx, inv, err)
		} else {
			h.extensions.EmitStepCompleted(ctx, inv, out.Elapsed)
		}
	}
	return out
}

// run executes the handler itself, converting panics to errors.
func (h *Host) run(ctx context.Context, reg *step.Registration, inv *pipeline.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			h.logger.Error("step handler panicked",
				slog.String("step", inv.StepName),
				slog.Any("panic", r),
				slog.String("stack", string(stack)),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler := reg.Handler()
	return handler.Execute(ctx, inv)
}

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace. The host
// already recovers handler panics; use this to guard custom middleware
// placed inside it.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *pipeline.Invocation, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("step handler panicked",
					slog.String("step", inv.StepName),
					slog.String("message", inv.Message),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in step %s: %v", inv.StepName, r)
			}
		}()
		return next(ctx)
	}
}

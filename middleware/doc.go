// Package middleware provides composable middleware for step invocation.
//
// A [Middleware] is a function that wraps a step handler call. Middleware
// are composed into a chain using [Chain] and applied around every
// invocation, synchronous or queued. They are applied right-to-left: the
// first middleware in the slice is the outermost wrapper.
//
//	// tracing → logging → handler
//	chain := middleware.Chain(middleware.Tracing(), middleware.Logging(logger))
//
// # Built-in Middleware
//
//   - [Recover] — converts a panic below it into a returned error
//   - [Logging] — logs step name, message, stage, duration, and outcome
//   - [Tracing] — wraps the invocation in an OpenTelemetry span
//   - [Metrics] — records per-step duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, inv *pipeline.Invocation, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting.
package middleware

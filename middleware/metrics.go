package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
)

// meterName is the instrumentation scope name for pipeline metrics.
const meterName = "github.com/rnwood/Fake4Dataverse-sub003"

// Metrics returns middleware that records per-step execution metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - pipeline.step.duration (Float64Histogram): execution time in seconds,
//     with attributes: step, message, stage, status ("ok" or "error")
//   - pipeline.step.executions (Int64Counter): total executions,
//     with attributes: step, message, stage, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"pipeline.step.duration",
		metric.WithDescription("Duration of step execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"pipeline.step.executions",
		metric.WithDescription("Total number of step executions"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, inv *pipeline.Invocation, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("step", inv.StepName),
			attribute.String("message", inv.Message),
			attribute.String("stage", string(inv.Stage)),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		executions.Add(ctx, 1, attrs)

		return err
	}
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
)

// Logging returns middleware that logs step start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, inv *pipeline.Invocation, next Handler) error {
		logger.Info("step started",
			slog.String("step", inv.StepName),
			slog.String("message", inv.Message),
			slog.String("entity", inv.EntityName),
			slog.String("stage", string(inv.Stage)),
			slog.Int("depth", inv.Depth),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("step failed",
				slog.String("step", inv.StepName),
				slog.String("message", inv.Message),
				slog.String("stage", string(inv.Stage)),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("step completed",
				slog.String("step", inv.StepName),
				slog.String("message", inv.Message),
				slog.String("stage", string(inv.Stage)),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}

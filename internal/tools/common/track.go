package common

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pedalacom/catalog-api/internal/observability"
)

// Track wraps a tool action so each run reports its outcome and duration.
func Track(tool, command string, fn func(context.Context) ([]string, error)) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		ctx, span := observability.StartSpan(ctx, "tool."+tool,
			attribute.String("tool.name", tool),
			attribute.String("tool.command", command),
		)
		defer span.End()

		start := time.Now()
		details, err := fn(ctx)
		outcome := "success"
		if err != nil {
			outcome = "error"
			observability.RecordSpanError(span, err)
		}
		observability.RecordToolCommandRun(ctx, tool, command, outcome)
		observability.RecordToolCommandDuration(ctx, tool, command, outcome, time.Since(start))
		return details, err
	}
}

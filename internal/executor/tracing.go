package executor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"aicode/internal/action"
)

func (e *Executor) startActionSpan(ctx context.Context, a action.Action) (context.Context, trace.Span) {
	ctx, span := e.tracer.Start(ctx, "executor.execute")
	span.SetAttributes(
		attribute.String("action.kind", string(a.Kind())),
		attribute.String("action.description", a.Description()),
		attribute.Bool("action.requires_confirmation", a.RequiresConfirmation()),
	)
	return ctx, span
}

func (e *Executor) endActionSpan(span trace.Span, res Result) {
	span.SetAttributes(attribute.Bool("action.success", res.Success))
	if res.ExitCode != nil {
		span.SetAttributes(attribute.Int("action.exit_code", *res.ExitCode))
	}
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}
	span.End()
}

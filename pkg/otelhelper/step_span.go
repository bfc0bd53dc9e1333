package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StepSpan wraps the span of one remote call made by a contribution step.
type StepSpan struct {
	span trace.Span
}

// StartStepSpan opens a span named "contribution.<step>".
func StartStepSpan(ctx context.Context, tracer trace.Tracer, runID string, index int, step, account string) (context.Context, StepSpan) {
	ctx, span := tracer.Start(ctx, "contribution."+step, trace.WithAttributes(
		attribute.String(RunIDKey, runID),
		attribute.Int(StepIndexKey, index),
		attribute.String(StepNameKey, step),
		attribute.String(AccountKey, account),
	))

	return ctx, StepSpan{span: span}
}

// Fail records err and its classification. The span still has to be ended.
func (s StepSpan) Fail(err error, kind string) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.AddEvent("step_failed", trace.WithAttributes(
		attribute.String(ErrorKindKey, kind),
	))
}

func (s StepSpan) Succeed() {
	s.span.SetStatus(codes.Ok, "")
}

func (s StepSpan) End() {
	s.span.End()
}

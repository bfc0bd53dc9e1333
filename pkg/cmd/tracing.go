package cmd

import (
	"context"

	"github.com/sudao/sudao/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer returns an OTLP tracer when enabled, otherwise the global no-op tracer.
// The shutdown function is always safe to call.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool) (trace.Tracer, func(context.Context) error, error) {
	if !enabled {
		return otel.Tracer(serviceName), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}

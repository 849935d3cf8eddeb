package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/storyflow/pkg/otelhelper"
	"go.opentelemetry.io/otel/trace"
)

// NewTracer returns an OTLP tracer when enabled. A disabled or failing
// exporter falls back to a tracer that records nothing.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool, serviceName string, logger *slog.Logger) trace.Tracer {
	if !enabled {
		return otelhelper.Noop()
	}

	tracer, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled, failed to create exporter", "error", err)

		return otelhelper.Noop()
	}

	return tracer
}

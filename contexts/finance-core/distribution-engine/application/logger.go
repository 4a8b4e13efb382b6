package application

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// ModuleName labels logs and spans emitted by this module.
const ModuleName = "finance-core/distribution-engine"

func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func ResolveMetrics(metrics ports.Metrics) ports.Metrics {
	if metrics != nil {
		return metrics
	}
	return ports.NoopMetrics{}
}

// Tracer uses the global provider, which is a no-op unless the process installs one.
func Tracer() trace.Tracer {
	return otel.Tracer("profitshare/distribution-engine")
}

func Now(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

// Detached keeps ctx values but drops its cancellation so an in-flight write
// always completes once started.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("telemetry", fx.Provide(NewEmitter))

type EventName string

const (
	KeyActivated EventName = "key.activated"
)

type Event struct {
	Name    EventName
	Payload map[string]string
}

// Emitter records product telemetry. Callers treat it as best-effort and
// never fail an operation because Track returned an error.
type Emitter interface {
	Track(ctx context.Context, event Event) error
}

type otelEmitter struct {
	counter metric.Int64Counter
}

func NewEmitter() (Emitter, error) {
	meter := otel.Meter("entitlement-controlplane/telemetry")
	counter, err := meter.Int64Counter("telemetry_events_total",
		metric.WithDescription("Product telemetry events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("create telemetry counter: %w", err)
	}
	return &otelEmitter{counter: counter}, nil
}

func (e *otelEmitter) Track(ctx context.Context, event Event) error {
	if event.Name == "" {
		return fmt.Errorf("telemetry event name is required")
	}

	attrs := make([]attribute.KeyValue, 0, len(event.Payload)+1)
	attrs = append(attrs, attribute.String("event", string(event.Name)))
	for k, v := range event.Payload {
		attrs = append(attrs, attribute.String(k, v))
	}

	e.counter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", string(event.Name))))
	trace.SpanFromContext(ctx).AddEvent(string(event.Name), trace.WithAttributes(attrs...))

	fields := make([]zap.Field, 0, len(event.Payload)+1)
	fields = append(fields, zap.String("event", string(event.Name)))
	for k, v := range event.Payload {
		fields = append(fields, zap.String(k, v))
	}
	zap.L().Info("telemetry event", fields...)

	return nil
}

package telemetry

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Returned when tracing export is disabled
func noopShutdown(context.Context) error { return nil }

// InitJaeger installs a global tracer provider exporting to the Jaeger
// collector at endpoint and returns its shutdown func. An empty endpoint
// leaves the default no-op provider in place.
func InitJaeger(serviceName, endpoint string) (func(context.Context) error, error) {
	if endpoint == "" {
		log.Println("🔭 Tracing export disabled (JAEGER_ENDPOINT not set)")
		return noopShutdown, nil
	}

	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	log.Printf("🔭 Jaeger tracing initialized: %s", endpoint)
	return tp.Shutdown, nil
}

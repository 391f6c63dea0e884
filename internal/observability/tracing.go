// Package observability configura el TracerProvider global de OpenTelemetry.
package observability

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

// Shutdown vacía y detiene el exporter
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracing instala el TracerProvider global. Con tracing deshabilitado los
// spans quedan en el provider no-op. Sin endpoint OTLP los spans se escriben
// en stdoutWriter.
func InitTracing(ctx context.Context, cfg *config.Config, stdoutWriter io.Writer, logger *logrus.Logger) (Shutdown, error) {
	if !cfg.Tracing.Enabled {
		return noop, nil
	}

	serviceName := strings.TrimSpace(cfg.Tracing.ServiceName)
	if serviceName == "" {
		serviceName = "vendas-audit"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("deployment.environment", cfg.Server.Env),
		),
	)
	if err != nil {
		logger.WithError(err).Warn("OpenTelemetry resource init failed, continuing")
	}

	exporter, err := buildExporter(ctx, cfg.Tracing.OTLPEndpoint, stdoutWriter)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithFields(logrus.Fields{
		"service":  serviceName,
		"endpoint": cfg.Tracing.OTLPEndpoint,
	}).Info("OpenTelemetry tracing initialized")

	return tp.Shutdown, nil
}

func buildExporter(ctx context.Context, endpoint string, stdoutWriter io.Writer) (sdktrace.SpanExporter, error) {
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts := []otlptracehttp.Option{}
		if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		} else {
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	}
	return stdouttrace.New(stdouttrace.WithWriter(stdoutWriter))
}

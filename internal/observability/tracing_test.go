package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/JulioAnalista/vendas-audit/internal/config"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracingDisabled(t *testing.T) {
	logger, _ := test.NewNullLogger()

	shutdown, err := InitTracing(context.Background(), &config.Config{}, nil, logger)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingStdout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var buf bytes.Buffer
	cfg := &config.Config{Tracing: config.TracingConfig{Enabled: true, ServiceName: "vendas-audit-test"}}

	shutdown, err := InitTracing(context.Background(), cfg, &buf, logger)
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "nfe.import_document")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "nfe.import_document")
	assert.Contains(t, buf.String(), "vendas-audit-test")
}

package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracing(t *testing.T) {
	previous := otel.GetTracerProvider()
	previousTracer := Tracer
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		Tracer = previousTracer
	})

	shutdown, err := InitTracing(context.Background(), "localhost:4317")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	_, span := Tracer.Start(context.Background(), "test")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_DisabledIsNoop(t *testing.T) {
	cfg := DefaultConfig("stockroom-api")

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_EnabledSetsGlobalProvider(t *testing.T) {
	// Non-routable endpoint; span export is batched and async so init still
	// succeeds.
	cfg := Config{
		ServiceName:    "stockroom-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "127.0.0.1:0",
		SampleRate:     1.0,
		Enabled:        true,
	}

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	defer shutdown(context.Background()) //nolint:errcheck

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")
}

func TestInitTracer_SampleRates(t *testing.T) {
	for _, rate := range []float64{0.0, 0.25, 1.0} {
		cfg := Config{
			ServiceName:  "stockroom-api",
			Environment:  "test",
			OTLPEndpoint: "127.0.0.1:0",
			SampleRate:   rate,
			Enabled:      true,
		}

		shutdown, err := InitTracer(context.Background(), cfg)
		require.NoError(t, err, "sample rate %v", rate)
		shutdown(context.Background()) //nolint:errcheck
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("stockroom-api")

	assert.Equal(t, "stockroom-api", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestTracer_StartsSpansWithoutPanic(t *testing.T) {
	tracer := Tracer("warehouse")
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "CreateMovement")
	span.End()
}

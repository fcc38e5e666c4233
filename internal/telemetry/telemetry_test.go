package telemetry

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown := setup(context.Background(), "fanpulse-test", logging.Nop(), func(string) string { return "" })
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestSetup_InstallsProvider(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	env := map[string]string{
		"OTEL_EXPORTER_OTLP_ENDPOINT": "http://127.0.0.1:4317",
	}
	shutdown := setup(context.Background(), "fanpulse-test", logging.Nop(), func(k string) string { return env[k] })

	assert.NotEqual(t, before, otel.GetTracerProvider())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestIsEndpointURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"http://collector:4317", true},
		{"https://otel.example.com:4317", true},
		{"collector:4317", false},
		{"127.0.0.1:4317", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isEndpointURL(tt.endpoint))
		})
	}
}

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitDisabledPipeline(t *testing.T) {
	shutdown, err := Init(context.Background(), "nestkit-test", "0.0.1", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Spans can be created and ended without a visible exporter.
	_, span := otel.Tracer("nestkit/test").Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

func TestInitTracingDisabledReturnsNoopShutdown(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitTracing(context.Background(), logger.Nop(), TracingConfig{ServiceName: "test"})
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer("test").Start(context.Background(), "noop")
	span.End()
}

func TestSampleRatioClamps(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	assert.Equal(t, 1.0, sampleRatio())
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	assert.Equal(t, 0.0, sampleRatio())
	t.Setenv("OTEL_SAMPLER_RATIO", "0.25")
	assert.Equal(t, 0.25, sampleRatio())
	t.Setenv("OTEL_SAMPLER_RATIO", "")
	assert.Equal(t, 1.0, sampleRatio())
}

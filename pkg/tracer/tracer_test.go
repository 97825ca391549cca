package tracer

import (
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJaegerTracerWithoutAgent(t *testing.T) {
	tr, closer, err := NewJaegerTracer("doc-history-service", "")
	require.NoError(t, err)
	assert.Equal(t, opentracing.GlobalTracer(), tr)
	assert.NoError(t, closer.Close())
}

func TestNewJaegerTracerWithAgent(t *testing.T) {
	prev := opentracing.GlobalTracer()
	defer opentracing.SetGlobalTracer(prev)

	tr, closer, err := NewJaegerTracer("doc-history-service", "127.0.0.1:6831")
	require.NoError(t, err)
	defer closer.Close()

	span := tr.StartSpan("probe")
	span.Finish()
	assert.Equal(t, tr, opentracing.GlobalTracer())
}

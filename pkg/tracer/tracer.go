// Package tracer sets up the global opentracing tracer backed by jaeger
// Package tracer 初始化基于 jaeger 的全局 opentracing tracer
package tracer

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewJaegerTracer installs a jaeger tracer as the global tracer.
// With an empty agentHostPort the global noop tracer is kept and spans are dropped.
// NewJaegerTracer 安装 jaeger tracer 为全局 tracer，agentHostPort 为空时保留 noop tracer
func NewJaegerTracer(serviceName, agentHostPort string) (opentracing.Tracer, io.Closer, error) {
	if agentHostPort == "" {
		return opentracing.GlobalTracer(), nopCloser{}, nil
	}
	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           false,
			LocalAgentHostPort: agentHostPort,
		},
	}
	t, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, errors.Wrap(err, "new jaeger tracer")
	}
	opentracing.SetGlobalTracer(t)
	return t, closer, nil
}

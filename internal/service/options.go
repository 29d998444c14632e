package service

import (
	"greenzone/internal/metrics"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultStepPageSize is the number of steps DeriveSupplyChain reads per page.
const DefaultStepPageSize = 50

type options struct {
	policy   Policy
	clock    Clock
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	pageSize int
}

// Option configures a service.
type Option func(*options)

// WithPolicy sets the authorization policy. The default allows everything.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithStepPageSize sets how many steps DeriveSupplyChain reads at a time.
func WithStepPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

func buildOptions(opts []Option) options {
	o := options{
		policy:   AllowAll{},
		clock:    SystemClock{},
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		pageSize: DefaultStepPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.pageSize <= 0 {
		o.pageSize = DefaultStepPageSize
	}
	return o
}
